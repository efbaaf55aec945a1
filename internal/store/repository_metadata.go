package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/models"
)

type metadataRepository struct {
	db *DB
}

func newMetadataRepository(db *DB) *metadataRepository {
	return &metadataRepository{db: db}
}

func (r *metadataRepository) Get(ctx context.Context, id models.Identity) (models.ModelMetadata, error) {
	row, err := r.db.queryRow(ctx, r.db.builder.
		Select(metadataColumns...).
		From(tableModelMetadata).
		Where(sq.Eq{"model_name": id.ModelName, "model_id": id.ModelID}))
	if err != nil {
		return models.ModelMetadata{}, err
	}

	var md models.ModelMetadata
	err = row.Scan(&md.ModelName, &md.ID, &md.Version, &md.Deleted, &md.LastChangedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ModelMetadata{}, ErrMetadataNotFound
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "metadataRepository.Get").
			Str("model_name", id.ModelName).
			Str("model_id", id.ModelID).
			Msg("failed to scan metadata row")
		return models.ModelMetadata{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return md, nil
}

// CompareAndSwap writes md only if the stored version still equals the one
// in current. A nil current means "no metadata stored yet".
func (r *metadataRepository) CompareAndSwap(ctx context.Context, md models.ModelMetadata, current *models.ModelMetadata) error {
	var b sq.Sqlizer
	if current == nil {
		b = r.db.builder.
			Insert(tableModelMetadata).
			Columns(metadataColumns...).
			Values(md.ModelName, md.ID, md.Version, md.Deleted, md.LastChangedAt).
			Suffix(insertMetadataSuffix)
	} else {
		b = r.db.builder.
			Update(tableModelMetadata).
			Set("version", md.Version).
			Set("deleted", md.Deleted).
			Set("last_changed_at", md.LastChangedAt).
			Where(sq.Eq{"model_name": md.ModelName, "model_id": md.ID, "version": current.Version})
	}

	res, err := r.db.exec(ctx, b)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "metadataRepository.CompareAndSwap").
			Str("model_name", md.ModelName).
			Str("model_id", md.ID).
			Int64("version", md.Version).
			Msg("failed to write metadata")
		return fmt.Errorf("failed to save metadata %s: %w", md.Identity(), err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save metadata %s: %w", md.Identity(), err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}

	return nil
}
