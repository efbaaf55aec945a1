package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-sync-engine/internal/config"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return newDB(conn, config.DriverSQLite, NewSQLiteErrorClassifier(), logger.Nop()), mock
}

// newTestStorages opens a migrated SQLite file under t.TempDir().
func newTestStorages(t *testing.T) *Storages {
	t.Helper()

	cfg := config.EngineStorage{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "store.db"),
	}
	s, err := NewStorages(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}
