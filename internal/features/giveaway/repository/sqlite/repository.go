package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"giveaway-bot/internal/features/giveaway/models"
	"giveaway-bot/internal/features/giveaway/repository"
)

const (
	tableActive  = "giveaways_active"
	tableArchive = "giveaways_archive"
)

type record struct {
	ID      string `db:"id"`
	Ending  int64  `db:"ending"`
	Payload string `db:"payload"`
}

type sqliteRepository struct {
	db *sqlx.DB
}

// NewSQLiteGiveawayRepository keeps each giveaway as a JSON payload next to
// its id and ending.
func NewSQLiteGiveawayRepository(db *sqlx.DB) repository.GiveawayRepository {
	return &sqliteRepository{db: db}
}

func toRecord(giveaway *models.Giveaway) (record, error) {
	data, err := json.Marshal(giveaway)
	if err != nil {
		return record{}, fmt.Errorf("failed to marshal giveaway: %w", err)
	}
	return record{ID: giveaway.ID, Ending: giveaway.Ending, Payload: string(data)}, nil
}

func fromRecord(r record) (*models.Giveaway, error) {
	var giveaway models.Giveaway
	if err := json.Unmarshal([]byte(r.Payload), &giveaway); err != nil {
		return nil, fmt.Errorf("failed to unmarshal giveaway %s: %w", r.ID, err)
	}
	return &giveaway, nil
}

func isConstraint(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}

func (r *sqliteRepository) Insert(ctx context.Context, giveaway *models.Giveaway) error {
	return r.insert(ctx, tableActive, giveaway)
}

func (r *sqliteRepository) InsertArchive(ctx context.Context, giveaway *models.Giveaway) error {
	return r.insert(ctx, tableArchive, giveaway)
}

func (r *sqliteRepository) insert(ctx context.Context, table string, giveaway *models.Giveaway) error {
	rec, err := toRecord(giveaway)
	if err != nil {
		return err
	}
	query := `INSERT INTO ` + table + ` (id, ending, payload) VALUES (:id, :ending, :payload)`
	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		if isConstraint(err) {
			return fmt.Errorf("giveaway %s in %s: %w", giveaway.ID, table, repository.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to insert giveaway %s: %w", giveaway.ID, err)
	}
	return nil
}

func (r *sqliteRepository) Find(ctx context.Context, id string) (*models.Giveaway, error) {
	return r.find(ctx, tableActive, id)
}

func (r *sqliteRepository) FindArchived(ctx context.Context, id string) (*models.Giveaway, error) {
	return r.find(ctx, tableArchive, id)
}

func (r *sqliteRepository) find(ctx context.Context, table, id string) (*models.Giveaway, error) {
	var rec record
	err := r.db.GetContext(ctx, &rec, `SELECT id, ending, payload FROM `+table+` WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrGiveawayNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get giveaway %s: %w", id, err)
	}
	return fromRecord(rec)
}

func (r *sqliteRepository) FindAll(ctx context.Context) ([]*models.Giveaway, error) {
	return r.findAll(ctx, tableActive)
}

func (r *sqliteRepository) FindAllArchived(ctx context.Context) ([]*models.Giveaway, error) {
	return r.findAll(ctx, tableArchive)
}

func (r *sqliteRepository) findAll(ctx context.Context, table string) ([]*models.Giveaway, error) {
	var recs []record
	if err := r.db.SelectContext(ctx, &recs, `SELECT id, ending, payload FROM `+table); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", table, err)
	}
	giveaways := make([]*models.Giveaway, 0, len(recs))
	for _, rec := range recs {
		g, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		giveaways = append(giveaways, g)
	}
	return giveaways, nil
}

const updateActive = `UPDATE giveaways_active SET ending = :ending, payload = :payload WHERE id = :id`

const upsertArchive = `INSERT INTO giveaways_archive (id, ending, payload) VALUES (:id, :ending, :payload)
ON CONFLICT(id) DO UPDATE SET ending = excluded.ending, payload = excluded.payload`

func (r *sqliteRepository) Replace(ctx context.Context, giveaway *models.Giveaway) error {
	rec, err := toRecord(giveaway)
	if err != nil {
		return err
	}
	res, err := r.db.NamedExecContext(ctx, updateActive, rec)
	if err != nil {
		return fmt.Errorf("failed to replace giveaway %s: %w", giveaway.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to replace giveaway %s: %w", giveaway.ID, err)
	}
	if n == 0 {
		return repository.ErrGiveawayNotFound
	}
	return nil
}

func (r *sqliteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM giveaways_active WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete giveaway %s: %w", id, err)
	}
	return nil
}

func (r *sqliteRepository) MoveToArchive(ctx context.Context, giveaway *models.Giveaway) error {
	rec, err := toRecord(giveaway)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin archive transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.NamedExecContext(ctx, upsertArchive, rec); err != nil {
		return fmt.Errorf("failed to archive giveaway %s: %w", giveaway.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM giveaways_active WHERE id = ?`, giveaway.ID); err != nil {
		return fmt.Errorf("failed to remove active giveaway %s: %w", giveaway.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit archive of giveaway %s: %w", giveaway.ID, err)
	}
	return nil
}

func (r *sqliteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
