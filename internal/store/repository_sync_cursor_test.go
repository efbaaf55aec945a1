package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-sync-engine/models"
)

func TestSyncCursorRepository_Get_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSyncCursorRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM sync_cursors WHERE model_name = ?").
		WithArgs("Post").
		WillReturnRows(sqlmock.NewRows(syncCursorColumns))

	_, err := repo.Get(context.Background(), "Post")
	assert.ErrorIs(t, err, ErrCursorNotFound)
}

func TestSyncCursorRepository_Save_Upserts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSyncCursorRepository(db)

	at := time.UnixMilli(1_700_000_000_000)
	mock.ExpectExec("INSERT INTO sync_cursors (.+) ON CONFLICT").
		WithArgs("Post", "tok", at.UnixMilli(), int64(0)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Save(context.Background(), models.SyncCursor{ModelName: "Post", Token: "tok", LastSyncAt: at})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncCursorRepository_RoundTrip(t *testing.T) {
	s := newTestStorages(t)
	ctx := context.Background()

	at := time.UnixMilli(1_700_000_000_000).UTC()
	require.NoError(t, s.SyncCursors.Save(ctx, models.SyncCursor{ModelName: "Post", Token: "t1", LastSyncAt: at, LastFullSyncAt: at}))
	require.NoError(t, s.SyncCursors.Save(ctx, models.SyncCursor{ModelName: "Post", Token: "t2", LastSyncAt: at.Add(time.Minute), LastFullSyncAt: at}))

	got, err := s.SyncCursors.Get(ctx, "Post")
	require.NoError(t, err)
	assert.Equal(t, "t2", got.Token)
	assert.Equal(t, at.Add(time.Minute), got.LastSyncAt)
	assert.Equal(t, at, got.LastFullSyncAt)

	all, err := s.SyncCursors.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
