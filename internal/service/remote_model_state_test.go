package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/go-sync-engine/internal/adapter"
	"github.com/MKhiriev/go-sync-engine/internal/config"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/internal/mock"
	"github.com/MKhiriev/go-sync-engine/internal/store"
	"github.com/MKhiriev/go-sync-engine/models"
)

func newTestRemoteState(t *testing.T, cfg config.EngineSync, schemas ...models.ModelSchema) (*RemoteModelState, *mock.MockRemoteEndpoint, *store.Storages) {
	t.Helper()

	s := newTestStorages(t)
	remote := mock.NewMockRemoteEndpoint(gomock.NewController(t))
	state := NewRemoteModelState(remote, s.SyncCursors, testRegistry(t, schemas...), cfg, logger.Nop())

	return state, remote, s
}

// collect drains the stream and returns items and cursors per model.
func collect(state *RemoteModelState) (map[string][]models.ModelWithMetadata, map[string]models.SyncCursor, []RemoteModelEvent, error) {
	events, wait := state.Observe(context.Background())

	items := make(map[string][]models.ModelWithMetadata)
	cursors := make(map[string]models.SyncCursor)
	var all []RemoteModelEvent
	for ev := range events {
		all = append(all, ev)
		if ev.Cursor != nil {
			cursors[ev.ModelName] = *ev.Cursor
			continue
		}
		items[ev.ModelName] = append(items[ev.ModelName], *ev.Item)
	}

	return items, cursors, all, wait()
}

func TestRemoteModelState_FullSync_Pages(t *testing.T) {
	cfg := fastSync()
	cfg.PageSize = 2
	state, remote, _ := newTestRemoteState(t, cfg)

	remote.EXPECT().Sync(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req models.SyncRequest) (models.SyncPage, error) {
			assert.Equal(t, "Post", req.ModelName)
			assert.Empty(t, req.SinceToken)
			assert.Equal(t, 2, req.Limit)

			switch req.NextToken {
			case "":
				return models.SyncPage{
					Items:     []models.ModelWithMetadata{remotePost("p1", "a", 1), remotePost("p2", "b", 1)},
					NextToken: "page-2",
					SyncToken: "t1",
				}, nil
			case "page-2":
				return models.SyncPage{
					Items:     []models.ModelWithMetadata{remotePost("p3", "c", 1)},
					SyncToken: "t2",
				}, nil
			}
			t.Errorf("unexpected next token %q", req.NextToken)
			return models.SyncPage{}, nil
		}).Times(2)

	items, cursors, all, err := collect(state)
	require.NoError(t, err)

	require.Len(t, items["Post"], 3)
	cursor, ok := cursors["Post"]
	require.True(t, ok)
	assert.Equal(t, "t1", cursor.Token, "the token of the first page is kept")
	assert.False(t, cursor.LastFullSyncAt.IsZero())

	last := all[len(all)-1]
	assert.NotNil(t, last.Cursor, "cursor comes after all items")
	assert.True(t, last.IsFullSync)
}

func TestRemoteModelState_DeltaSync(t *testing.T) {
	state, remote, s := newTestRemoteState(t, fastSync())
	ctx := context.Background()

	fullAt := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, s.SyncCursors.Save(ctx, models.SyncCursor{
		ModelName:      "Post",
		Token:          "t0",
		LastSyncAt:     fullAt,
		LastFullSyncAt: fullAt,
	}))

	remote.EXPECT().Sync(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req models.SyncRequest) (models.SyncPage, error) {
			assert.Equal(t, "t0", req.SinceToken)
			return models.SyncPage{Items: []models.ModelWithMetadata{remotePost("p1", "a", 2)}, SyncToken: "t1"}, nil
		})

	_, cursors, all, err := collect(state)
	require.NoError(t, err)

	assert.False(t, all[0].IsFullSync)
	assert.Equal(t, "t1", cursors["Post"].Token)
	assert.WithinDuration(t, fullAt, cursors["Post"].LastFullSyncAt, time.Second)
}

func TestRemoteModelState_FullSyncAfterInterval(t *testing.T) {
	cfg := fastSync()
	cfg.FullSyncInterval = time.Hour
	state, remote, s := newTestRemoteState(t, cfg)
	ctx := context.Background()

	old := time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, s.SyncCursors.Save(ctx, models.SyncCursor{
		ModelName: "Post", Token: "t0", LastSyncAt: old, LastFullSyncAt: old,
	}))

	remote.EXPECT().Sync(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req models.SyncRequest) (models.SyncPage, error) {
			assert.Empty(t, req.SinceToken)
			return models.SyncPage{SyncToken: "t1"}, nil
		})

	_, cursors, _, err := collect(state)
	require.NoError(t, err)
	assert.True(t, cursors["Post"].LastFullSyncAt.After(old))
}

func TestRemoteModelState_MaxRecords(t *testing.T) {
	cfg := fastSync()
	cfg.PageSize = 2
	cfg.MaxRecords = 3
	state, remote, _ := newTestRemoteState(t, cfg)

	gomock.InOrder(
		remote.EXPECT().Sync(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req models.SyncRequest) (models.SyncPage, error) {
				assert.Equal(t, 2, req.Limit)
				return models.SyncPage{
					Items:     []models.ModelWithMetadata{remotePost("p1", "a", 1), remotePost("p2", "b", 1)},
					NextToken: "page-2",
					SyncToken: "t1",
				}, nil
			}),
		remote.EXPECT().Sync(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req models.SyncRequest) (models.SyncPage, error) {
				assert.Equal(t, 1, req.Limit)
				return models.SyncPage{
					Items:     []models.ModelWithMetadata{remotePost("p3", "c", 1)},
					NextToken: "page-3",
				}, nil
			}),
	)

	items, cursors, _, err := collect(state)
	require.NoError(t, err)
	assert.Len(t, items["Post"], 3)
	assert.Equal(t, "t1", cursors["Post"].Token)
}

func TestRemoteModelState_SyncExpression(t *testing.T) {
	schema := models.ModelSchema{
		Name:           "Post",
		Fields:         []string{"title", "status"},
		SyncExpression: `title == "keep"`,
	}
	state, remote, _ := newTestRemoteState(t, fastSync(), schema)

	remote.EXPECT().Sync(gomock.Any(), gomock.Any()).Return(models.SyncPage{
		Items: []models.ModelWithMetadata{
			remotePost("p1", "keep", 1),
			remotePost("p2", "drop", 1),
			tombstone("p3", 2),
		},
		SyncToken: "t1",
	}, nil)

	items, _, _, err := collect(state)
	require.NoError(t, err)

	var ids []string
	for _, item := range items["Post"] {
		ids = append(ids, item.Model.ID)
	}
	assert.Equal(t, []string{"p1", "p3"}, ids, "tombstones always pass the filter")
}

func TestRemoteModelState_RetriesTransientPage(t *testing.T) {
	state, remote, _ := newTestRemoteState(t, fastSync())

	gomock.InOrder(
		remote.EXPECT().Sync(gomock.Any(), gomock.Any()).Return(models.SyncPage{}, adapter.ErrBadGateway),
		remote.EXPECT().Sync(gomock.Any(), gomock.Any()).Return(models.SyncPage{SyncToken: "t1"}, nil),
	)

	_, cursors, _, err := collect(state)
	require.NoError(t, err)
	assert.Equal(t, "t1", cursors["Post"].Token)
}

func TestRemoteModelState_FailFast(t *testing.T) {
	cfg := fastSync()
	cfg.Workers = 1
	state, remote, _ := newTestRemoteState(t, cfg,
		models.ModelSchema{Name: "Comment", Fields: []string{"body"}},
		models.ModelSchema{Name: "Post", Fields: []string{"title"}},
	)

	remote.EXPECT().Sync(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req models.SyncRequest) (models.SyncPage, error) {
			if req.ModelName == "Comment" {
				return models.SyncPage{}, adapter.ErrBadRequest
			}
			return models.SyncPage{SyncToken: "t1"}, nil
		}).MinTimes(1).MaxTimes(2)

	_, cursors, _, err := collect(state)
	require.ErrorIs(t, err, adapter.ErrBadRequest)
	assert.Contains(t, err.Error(), "Comment")
	assert.NotContains(t, cursors, "Comment")
}

func TestRemoteModelState_ContinueOnError(t *testing.T) {
	cfg := fastSync()
	cfg.ContinueOnError = true
	state, remote, _ := newTestRemoteState(t, cfg,
		models.ModelSchema{Name: "Comment", Fields: []string{"body"}},
		models.ModelSchema{Name: "Post", Fields: []string{"title"}},
	)

	remote.EXPECT().Sync(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req models.SyncRequest) (models.SyncPage, error) {
			if req.ModelName == "Comment" {
				return models.SyncPage{}, adapter.ErrBadRequest
			}
			return models.SyncPage{Items: []models.ModelWithMetadata{remotePost("p1", "a", 1)}, SyncToken: "t1"}, nil
		}).Times(2)

	items, cursors, _, err := collect(state)
	require.ErrorIs(t, err, adapter.ErrBadRequest)
	assert.Len(t, items["Post"], 1)
	assert.Equal(t, "t1", cursors["Post"].Token)
	assert.NotContains(t, cursors, "Comment")
}
