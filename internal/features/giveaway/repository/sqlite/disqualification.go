package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"giveaway-bot/internal/features/giveaway/models"
	"giveaway-bot/internal/features/giveaway/repository"
)

type disqualificationRepository struct {
	db *sqlx.DB
}

func NewSQLiteDisqualificationRepository(db *sqlx.DB) repository.DisqualificationRepository {
	return &disqualificationRepository{db: db}
}

func dqRecord(dq *models.Disqualification) (record, error) {
	data, err := json.Marshal(dq)
	if err != nil {
		return record{}, fmt.Errorf("failed to marshal disqualification: %w", err)
	}
	return record{ID: dq.ID, Ending: dq.Ending, Payload: string(data)}, nil
}

func (r *disqualificationRepository) Insert(ctx context.Context, dq *models.Disqualification) error {
	rec, err := dqRecord(dq)
	if err != nil {
		return err
	}
	_, err = r.db.NamedExecContext(ctx,
		`INSERT INTO disqualifications (id, ending, payload) VALUES (:id, :ending, :payload)`, rec)
	if isConstraint(err) {
		return fmt.Errorf("disqualification %s: %w", dq.ID, repository.ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("failed to insert disqualification %s: %w", dq.ID, err)
	}
	return nil
}

func (r *disqualificationRepository) Replace(ctx context.Context, dq *models.Disqualification) error {
	rec, err := dqRecord(dq)
	if err != nil {
		return err
	}
	_, err = r.db.NamedExecContext(ctx, `INSERT INTO disqualifications (id, ending, payload) VALUES (:id, :ending, :payload)
ON CONFLICT(id) DO UPDATE SET ending = excluded.ending, payload = excluded.payload`, rec)
	if err != nil {
		return fmt.Errorf("failed to replace disqualification %s: %w", dq.ID, err)
	}
	return nil
}

func (r *disqualificationRepository) Find(ctx context.Context, id string) (*models.Disqualification, error) {
	var rec record
	err := r.db.GetContext(ctx, &rec, `SELECT id, ending, payload FROM disqualifications WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrDisqualificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get disqualification %s: %w", id, err)
	}
	var dq models.Disqualification
	if err := json.Unmarshal([]byte(rec.Payload), &dq); err != nil {
		return nil, err
	}
	return &dq, nil
}

func (r *disqualificationRepository) FindAll(ctx context.Context) ([]*models.Disqualification, error) {
	var recs []record
	if err := r.db.SelectContext(ctx, &recs, `SELECT id, ending, payload FROM disqualifications`); err != nil {
		return nil, fmt.Errorf("failed to scan disqualifications: %w", err)
	}
	out := make([]*models.Disqualification, 0, len(recs))
	for _, rec := range recs {
		var dq models.Disqualification
		if err := json.Unmarshal([]byte(rec.Payload), &dq); err != nil {
			return nil, err
		}
		out = append(out, &dq)
	}
	return out, nil
}

func (r *disqualificationRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM disqualifications WHERE id = ?`, id)
	return err
}
