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

type syncCursorRepository struct {
	db *DB
}

// NewSyncCursorRepository returns the SQL-backed cursor repository.
func NewSyncCursorRepository(db *DB) SyncCursorRepository {
	return &syncCursorRepository{db: db}
}

func (r *syncCursorRepository) Get(ctx context.Context, modelName string) (models.SyncCursor, error) {
	row, err := r.db.queryRow(ctx, r.db.builder.
		Select(syncCursorColumns...).
		From(tableSyncCursors).
		Where(sq.Eq{"model_name": modelName}))
	if err != nil {
		return models.SyncCursor{}, err
	}

	cursor, err := scanSyncCursor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SyncCursor{}, ErrCursorNotFound
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "syncCursorRepository.Get").
			Str("model_name", modelName).
			Msg("failed to scan sync cursor row")
		return models.SyncCursor{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return cursor, nil
}

func (r *syncCursorRepository) Save(ctx context.Context, cursor models.SyncCursor) error {
	_, err := r.db.exec(ctx, r.db.builder.
		Insert(tableSyncCursors).
		Columns(syncCursorColumns...).
		Values(cursor.ModelName, cursor.Token, unixMilli(cursor.LastSyncAt), unixMilli(cursor.LastFullSyncAt)).
		Suffix(upsertSyncCursorSuffix))
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "syncCursorRepository.Save").
			Str("model_name", cursor.ModelName).
			Msg("failed to save sync cursor")
		return fmt.Errorf("failed to save sync cursor for %s: %w", cursor.ModelName, err)
	}

	return nil
}

func (r *syncCursorRepository) List(ctx context.Context) ([]models.SyncCursor, error) {
	rows, err := r.db.query(ctx, r.db.builder.
		Select(syncCursorColumns...).
		From(tableSyncCursors).
		OrderBy("model_name"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cursors []models.SyncCursor
	for rows.Next() {
		cursor, err := scanSyncCursor(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		cursors = append(cursors, cursor)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync cursor rows: %w", err)
	}

	return cursors, nil
}

func scanSyncCursor(row rowScanner) (models.SyncCursor, error) {
	var (
		cursor           models.SyncCursor
		lastSync, lastFS int64
	)
	if err := row.Scan(&cursor.ModelName, &cursor.Token, &lastSync, &lastFS); err != nil {
		return models.SyncCursor{}, err
	}
	cursor.LastSyncAt = fromUnixMilli(lastSync)
	cursor.LastFullSyncAt = fromUnixMilli(lastFS)

	return cursor, nil
}

// Zero times are stored as 0 so "never" survives a round trip.
func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromUnixMilli(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
