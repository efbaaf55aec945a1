package store

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-sync-engine/internal/config"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
)

// Storages groups everything the engine persists locally.
type Storages struct {
	Local         LocalStorage
	ChangeRecords ChangeRecordRepository
	SyncCursors   SyncCursorRepository

	db *DB
}

// NewStorages opens the configured database, runs pending migrations and
// wires the repositories over the shared connection.
func NewStorages(ctx context.Context, cfg config.EngineStorage, log *logger.Logger) (*Storages, error) {
	log.Info().Str("driver", cfg.Driver).Msg("creating new storages...")

	var (
		db  *DB
		err error
	)
	switch cfg.Driver {
	case config.DriverSQLite, "":
		db, err = NewConnectSQLite(ctx, cfg, log)
	case config.DriverPostgres:
		db, err = NewConnectPostgres(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("%s connection error: %w", cfg.Driver, err)
	}

	if err = db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return NewStoragesFromDB(db, log), nil
}

// NewStoragesFromDB wires the repositories over an already migrated db.
func NewStoragesFromDB(db *DB, log *logger.Logger) *Storages {
	return &Storages{
		Local:         NewLocalStorage(db, log),
		ChangeRecords: NewChangeRecordRepository(db),
		SyncCursors:   NewSyncCursorRepository(db),
		db:            db,
	}
}

// IsRetryable reports whether err is a transient storage failure.
func (s *Storages) IsRetryable(err error) bool {
	return s.db.IsRetryable(err)
}

// Ping checks the underlying connection.
func (s *Storages) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying connection.
func (s *Storages) Close() error {
	return s.db.Close()
}
