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

type disqualificationRepository struct {
	client redis.UniversalClient
}

func NewRedisDisqualificationRepository(client redis.UniversalClient) repository.DisqualificationRepository {
	return &disqualificationRepository{client: client}
}

func (r *disqualificationRepository) Insert(ctx context.Context, dq *models.Disqualification) error {
	data, err := json.Marshal(dq)
	if err != nil {
		return fmt.Errorf("failed to marshal disqualification: %w", err)
	}
	ok, err := r.client.HSetNX(ctx, keyDisqualifications, dq.ID, data).Result()
	if err != nil {
		return fmt.Errorf("failed to insert disqualification %s: %w", dq.ID, err)
	}
	if !ok {
		return fmt.Errorf("disqualification %s: %w", dq.ID, repository.ErrDuplicateKey)
	}
	return nil
}

func (r *disqualificationRepository) Replace(ctx context.Context, dq *models.Disqualification) error {
	data, err := json.Marshal(dq)
	if err != nil {
		return fmt.Errorf("failed to marshal disqualification: %w", err)
	}
	return r.client.HSet(ctx, keyDisqualifications, dq.ID, data).Err()
}

func (r *disqualificationRepository) Find(ctx context.Context, id string) (*models.Disqualification, error) {
	data, err := r.client.HGet(ctx, keyDisqualifications, id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrDisqualificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get disqualification %s: %w", id, err)
	}
	var dq models.Disqualification
	if err := json.Unmarshal(data, &dq); err != nil {
		return nil, err
	}
	return &dq, nil
}

func (r *disqualificationRepository) FindAll(ctx context.Context) ([]*models.Disqualification, error) {
	values, err := r.client.HVals(ctx, keyDisqualifications).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to scan disqualifications: %w", err)
	}
	out := make([]*models.Disqualification, 0, len(values))
	for _, v := range values {
		var dq models.Disqualification
		if err := json.Unmarshal([]byte(v), &dq); err != nil {
			return nil, err
		}
		out = append(out, &dq)
	}
	return out, nil
}

func (r *disqualificationRepository) Delete(ctx context.Context, id string) error {
	return r.client.HDel(ctx, keyDisqualifications, id).Err()
}
