package http

import (
	"context"

	"github.com/MKhiriev/go-sync-engine/models"
)

// Engine is the part of the sync engine the ops endpoint drives.
type Engine interface {
	Status() models.EngineStatus
	Hydrate(ctx context.Context) error
}

// Pinger reports whether the local database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// LocalModels is the local store the model API reads and writes. Writes
// made through it are local writes and reach the outbox.
type LocalModels interface {
	Save(ctx context.Context, m models.Model, initiator models.Initiator) error
	Delete(ctx context.Context, id models.Identity, initiator models.Initiator) error
	Get(ctx context.Context, id models.Identity) (models.Model, error)
	Query(ctx context.Context, modelName string, p models.Predicate) ([]models.Model, error)
}

// Schemas resolves registered model types.
type Schemas interface {
	Get(name string) (models.ModelSchema, error)
}

// EventSource hands out engine event subscriptions.
type EventSource interface {
	Subscribe(buffer int) (<-chan models.Event, func())
}

// Services bundles what the handler serves.
type Services struct {
	Engine  Engine
	Storage Pinger
	Models  LocalModels
	Schemas Schemas
	Events  EventSource
}
