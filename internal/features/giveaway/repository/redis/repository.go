package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"giveaway-bot/internal/features/giveaway/models"
	"giveaway-bot/internal/features/giveaway/repository"
)

const (
	keyActiveGiveaways   = "giveaways:active"
	keyArchivedGiveaways = "giveaways:archive"
	keyDisqualifications = "disqualifications"

	maxReplaceAttempts = 5
)

type redisRepository struct {
	client redis.UniversalClient
}

// NewRedisGiveawayRepository stores each giveaway as a JSON value in a hash
// keyed by giveaway id, one hash for active and one for archived records.
func NewRedisGiveawayRepository(client redis.UniversalClient) repository.GiveawayRepository {
	return &redisRepository{client: client}
}

func (r *redisRepository) Insert(ctx context.Context, giveaway *models.Giveaway) error {
	return r.insert(ctx, keyActiveGiveaways, giveaway)
}

func (r *redisRepository) InsertArchive(ctx context.Context, giveaway *models.Giveaway) error {
	return r.insert(ctx, keyArchivedGiveaways, giveaway)
}

func (r *redisRepository) insert(ctx context.Context, key string, giveaway *models.Giveaway) error {
	data, err := json.Marshal(giveaway)
	if err != nil {
		return fmt.Errorf("failed to marshal giveaway: %w", err)
	}

	ok, err := r.client.HSetNX(ctx, key, giveaway.ID, data).Result()
	if err != nil {
		return fmt.Errorf("failed to insert giveaway %s: %w", giveaway.ID, err)
	}
	if !ok {
		return fmt.Errorf("giveaway %s in %s: %w", giveaway.ID, key, repository.ErrDuplicateKey)
	}
	return nil
}

func (r *redisRepository) Find(ctx context.Context, id string) (*models.Giveaway, error) {
	return r.find(ctx, keyActiveGiveaways, id)
}

func (r *redisRepository) FindArchived(ctx context.Context, id string) (*models.Giveaway, error) {
	return r.find(ctx, keyArchivedGiveaways, id)
}

func (r *redisRepository) find(ctx context.Context, key, id string) (*models.Giveaway, error) {
	data, err := r.client.HGet(ctx, key, id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrGiveawayNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get giveaway %s: %w", id, err)
	}

	var giveaway models.Giveaway
	if err := json.Unmarshal(data, &giveaway); err != nil {
		return nil, fmt.Errorf("failed to unmarshal giveaway %s: %w", id, err)
	}
	return &giveaway, nil
}

func (r *redisRepository) FindAll(ctx context.Context) ([]*models.Giveaway, error) {
	return r.findAll(ctx, keyActiveGiveaways)
}

func (r *redisRepository) FindAllArchived(ctx context.Context) ([]*models.Giveaway, error) {
	return r.findAll(ctx, keyArchivedGiveaways)
}

func (r *redisRepository) findAll(ctx context.Context, key string) ([]*models.Giveaway, error) {
	values, err := r.client.HVals(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", key, err)
	}

	giveaways := make([]*models.Giveaway, 0, len(values))
	for _, v := range values {
		var giveaway models.Giveaway
		if err := json.Unmarshal([]byte(v), &giveaway); err != nil {
			return nil, fmt.Errorf("failed to unmarshal giveaway in %s: %w", key, err)
		}
		giveaways = append(giveaways, &giveaway)
	}
	return giveaways, nil
}

func (r *redisRepository) Replace(ctx context.Context, giveaway *models.Giveaway) error {
	data, err := json.Marshal(giveaway)
	if err != nil {
		return fmt.Errorf("failed to marshal giveaway: %w", err)
	}
	// Only overwrite a record that is still active, so a replace racing an
	// archive cannot bring the giveaway back.
	replace := func(tx *redis.Tx) error {
		exists, err := tx.HExists(ctx, keyActiveGiveaways, giveaway.ID).Result()
		if err != nil {
			return err
		}
		if !exists {
			return repository.ErrGiveawayNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, keyActiveGiveaways, giveaway.ID, data)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxReplaceAttempts; attempt++ {
		err = r.client.Watch(ctx, replace, keyActiveGiveaways)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if errors.Is(err, repository.ErrGiveawayNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to replace giveaway %s: %w", giveaway.ID, err)
	}
	return nil
}

func (r *redisRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.HDel(ctx, keyActiveGiveaways, id).Err(); err != nil {
		return fmt.Errorf("failed to delete giveaway %s: %w", id, err)
	}
	return nil
}

func (r *redisRepository) MoveToArchive(ctx context.Context, giveaway *models.Giveaway) error {
	data, err := json.Marshal(giveaway)
	if err != nil {
		return fmt.Errorf("failed to marshal giveaway: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, keyArchivedGiveaways, giveaway.ID, data)
		pipe.HDel(ctx, keyActiveGiveaways, giveaway.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to move giveaway %s to archive: %w", giveaway.ID, err)
	}
	return nil
}

func (r *redisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
