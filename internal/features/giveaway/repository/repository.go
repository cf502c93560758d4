package repository

import (
	"context"
	"errors"

	"giveaway-bot/internal/features/giveaway/models"
)

var (
	ErrGiveawayNotFound         = errors.New("giveaway not found")
	ErrDisqualificationNotFound = errors.New("disqualification not found")
	ErrDuplicateKey             = errors.New("duplicate key")
)

// GiveawayRepository stores active giveaways and the archive of ended ones.
// Every operation is atomic for a single record.
type GiveawayRepository interface {
	Insert(ctx context.Context, giveaway *models.Giveaway) error
	Find(ctx context.Context, id string) (*models.Giveaway, error)
	FindAll(ctx context.Context) ([]*models.Giveaway, error)
	// Replace overwrites an active giveaway and returns ErrGiveawayNotFound
	// when the id is no longer active.
	Replace(ctx context.Context, giveaway *models.Giveaway) error
	Delete(ctx context.Context, id string) error

	// MoveToArchive writes the record to the archive, overwriting any copy
	// left by an interrupted move, and removes it from the active store.
	MoveToArchive(ctx context.Context, giveaway *models.Giveaway) error
	InsertArchive(ctx context.Context, giveaway *models.Giveaway) error
	FindArchived(ctx context.Context, id string) (*models.Giveaway, error)
	FindAllArchived(ctx context.Context) ([]*models.Giveaway, error)

	Ping(ctx context.Context) error
}

type DisqualificationRepository interface {
	Insert(ctx context.Context, dq *models.Disqualification) error
	Replace(ctx context.Context, dq *models.Disqualification) error
	Find(ctx context.Context, id string) (*models.Disqualification, error)
	FindAll(ctx context.Context) ([]*models.Disqualification, error)
	Delete(ctx context.Context, id string) error
}
