package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/models"
)

type modelRepository struct {
	db  *DB
	now func() time.Time
}

func newModelRepository(db *DB) *modelRepository {
	return &modelRepository{db: db, now: time.Now}
}

func (r *modelRepository) Upsert(ctx context.Context, m models.Model) error {
	payload := string(m.Payload)
	if payload == "" {
		payload = "{}"
	}

	_, err := r.db.exec(ctx, r.db.builder.
		Insert(tableModels).
		Columns(modelColumns...).
		Values(m.Name, m.ID, payload, r.now().UnixMilli()).
		Suffix(upsertModelSuffix))
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "modelRepository.Upsert").
			Str("model_name", m.Name).
			Str("model_id", m.ID).
			Msg("failed to upsert model")
		return fmt.Errorf("failed to save model %s: %w", m.Identity(), err)
	}

	return nil
}

func (r *modelRepository) Delete(ctx context.Context, id models.Identity) (int64, error) {
	res, err := r.db.exec(ctx, r.db.builder.
		Delete(tableModels).
		Where(sq.Eq{"model_name": id.ModelName, "model_id": id.ModelID}))
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "modelRepository.Delete").
			Str("model_name", id.ModelName).
			Str("model_id", id.ModelID).
			Msg("failed to delete model")
		return 0, fmt.Errorf("failed to delete model %s: %w", id, err)
	}

	return res.RowsAffected()
}

func (r *modelRepository) Get(ctx context.Context, id models.Identity) (models.Model, error) {
	row, err := r.db.queryRow(ctx, r.db.builder.
		Select(modelColumns[:3]...).
		From(tableModels).
		Where(sq.Eq{"model_name": id.ModelName, "model_id": id.ModelID}))
	if err != nil {
		return models.Model{}, err
	}

	m, err := scanModel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Model{}, ErrModelNotFound
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "modelRepository.Get").
			Str("model_name", id.ModelName).
			Str("model_id", id.ModelID).
			Msg("failed to scan model row")
		return models.Model{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return m, nil
}

func (r *modelRepository) List(ctx context.Context, modelName string) ([]models.Model, error) {
	rows, err := r.db.query(ctx, r.db.builder.
		Select(modelColumns[:3]...).
		From(tableModels).
		Where(sq.Eq{"model_name": modelName}).
		OrderBy("model_id"))
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "modelRepository.List").
			Str("model_name", modelName).
			Msg("failed to query models")
		return nil, err
	}
	defer rows.Close()

	var items []models.Model
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		items = append(items, m)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating model rows: %w", err)
	}

	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanModel(row rowScanner) (models.Model, error) {
	var (
		m       models.Model
		payload string
	)
	if err := row.Scan(&m.Name, &m.ID, &payload); err != nil {
		return models.Model{}, err
	}
	m.Payload = []byte(payload)

	return m, nil
}
