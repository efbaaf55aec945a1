// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/models"
)

type changeRecordRepository struct {
	db *DB
}

// NewChangeRecordRepository returns the SQL-backed outbox repository.
func NewChangeRecordRepository(db *DB) ChangeRecordRepository {
	return &changeRecordRepository{db: db}
}

func (r *changeRecordRepository) Insert(ctx context.Context, rec models.ChangeRecord) (int64, error) {
	item, err := json.Marshal(rec.Item)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrEncodingItem, err)
	}

	row, err := r.db.queryRow(ctx, r.db.builder.
		Insert(tableChangeRecords).
		Columns(changeRecordColumns[1:]...).
		Values(rec.ID, rec.ModelName, rec.ModelID, string(item), string(rec.Kind), string(rec.Initiator), rec.CreatedAt.UnixMilli()).
		Suffix("RETURNING seq"))
	if err != nil {
		return 0, err
	}

	var seq int64
	if err = row.Scan(&seq); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "changeRecordRepository.Insert").
			Str("mutation_id", rec.ID).
			Str("model_name", rec.ModelName).
			Str("model_id", rec.ModelID).
			Msg("failed to insert change record")
		return 0, fmt.Errorf("failed to insert change record %s: %w", rec.ID, err)
	}

	return seq, nil
}

func (r *changeRecordRepository) Update(ctx context.Context, rec models.ChangeRecord) error {
	item, err := json.Marshal(rec.Item)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncodingItem, err)
	}

	res, err := r.db.exec(ctx, r.db.builder.
		Update(tableChangeRecords).
		Set("item", string(item)).
		Set("kind", string(rec.Kind)).
		Set("initiator", string(rec.Initiator)).
		Where(sq.Eq{"id": rec.ID}))
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "changeRecordRepository.Update").
			Str("mutation_id", rec.ID).
			Msg("failed to update change record")
		return fmt.Errorf("failed to update change record %s: %w", rec.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update change record %s: %w", rec.ID, err)
	}
	if affected == 0 {
		return ErrChangeRecordNotFound
	}

	return nil
}

func (r *changeRecordRepository) Delete(ctx context.Context, id string) (int64, error) {
	res, err := r.db.exec(ctx, r.db.builder.
		Delete(tableChangeRecords).
		Where(sq.Eq{"id": id}))
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "changeRecordRepository.Delete").
			Str("mutation_id", id).
			Msg("failed to delete change record")
		return 0, fmt.Errorf("failed to delete change record %s: %w", id, err)
	}

	return res.RowsAffected()
}

func (r *changeRecordRepository) List(ctx context.Context) ([]models.ChangeRecord, error) {
	rows, err := r.db.query(ctx, r.db.builder.
		Select(changeRecordColumns...).
		From(tableChangeRecords).
		OrderBy("seq"))
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "changeRecordRepository.List").
			Msg("failed to query change records")
		return nil, err
	}
	defer rows.Close()

	var records []models.ChangeRecord
	for rows.Next() {
		var (
			rec       models.ChangeRecord
			item      string
			kind      string
			initiator string
			createdAt int64
		)
		if err = rows.Scan(&rec.Seq, &rec.ID, &rec.ModelName, &rec.ModelID, &item, &kind, &initiator, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		if err = json.Unmarshal([]byte(item), &rec.Item); err != nil {
			return nil, fmt.Errorf("%w: change record %s: %w", ErrEncodingItem, rec.ID, err)
		}
		rec.Kind = models.MutationKind(kind)
		rec.Initiator = models.Initiator(initiator)
		rec.CreatedAt = time.UnixMilli(createdAt).UTC()

		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating change record rows: %w", err)
	}

	return records, nil
}
