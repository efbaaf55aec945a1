package service

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-sync-engine/internal/config"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/internal/store"
	"github.com/MKhiriev/go-sync-engine/models"
)

// newTestStorages opens a migrated SQLite file under t.TempDir().
func newTestStorages(t *testing.T) *store.Storages {
	t.Helper()

	cfg := config.EngineStorage{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "engine.db"),
	}
	s, err := store.NewStorages(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func testRegistry(t *testing.T, schemas ...models.ModelSchema) *models.SchemaRegistry {
	t.Helper()

	if len(schemas) == 0 {
		schemas = []models.ModelSchema{{Name: "Post", Fields: []string{"title", "status"}}}
	}
	r, err := models.NewSchemaRegistry(schemas...)
	require.NoError(t, err)
	return r
}

// fastSync keeps backoffs short enough for tests.
func fastSync() config.EngineSync {
	cfg := config.DefaultEngineSync()
	cfg.SendTimeout = time.Second
	cfg.BackoffBase = time.Millisecond
	cfg.BackoffMax = 5 * time.Millisecond
	return cfg
}

func post(id, title string) models.Model {
	return models.Model{Name: "Post", ID: id, Payload: json.RawMessage(`{"title":"` + title + `"}`)}
}

func remotePost(id, title string, version int64) models.ModelWithMetadata {
	return models.ModelWithMetadata{
		Model: post(id, title),
		Metadata: models.ModelMetadata{
			ModelName:     "Post",
			ID:            id,
			Version:       version,
			LastChangedAt: 1_700_000_000_000 + version,
		},
	}
}

func tombstone(id string, version int64) models.ModelWithMetadata {
	item := remotePost(id, "", version)
	item.Model.Payload = nil
	item.Metadata.Deleted = true
	return item
}

func saveChange(m models.Model) models.StorageItemChange {
	return models.StorageItemChange{Item: m, Kind: models.MutationSave, Initiator: models.InitiatorLocal}
}

func deleteChange(m models.Model) models.StorageItemChange {
	return models.StorageItemChange{Item: m, Kind: models.MutationDelete, Initiator: models.InitiatorLocal}
}

// seedRemote stores item as if it had been hydrated.
func seedRemote(t *testing.T, local store.LocalStorage, item models.ModelWithMetadata) {
	t.Helper()

	_, err := local.Merge(context.Background(), item, func(context.Context, *models.ModelMetadata) (store.MergeDecision, error) {
		return store.MergeApply, nil
	})
	require.NoError(t, err)
}

func title(t *testing.T, local store.LocalStorage, id string) string {
	t.Helper()

	m, err := local.Get(context.Background(), models.Identity{ModelName: "Post", ModelID: id})
	require.NoError(t, err)
	v, _ := m.Field("title")
	s, _ := v.(string)
	return s
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e models.Event) {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
}

func (p *recordingPublisher) Find(name models.EventName) []models.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []models.Event
	for _, e := range p.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

func (p *recordingPublisher) Names() []models.EventName {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]models.EventName, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Name)
	}
	return out
}
