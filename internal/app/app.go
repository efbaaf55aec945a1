// Package app assembles the sync daemon from its configuration and runs it
// until the run context ends.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-sync-engine/internal/adapter"
	"github.com/MKhiriev/go-sync-engine/internal/config"
	"github.com/MKhiriev/go-sync-engine/internal/handler"
	opshttp "github.com/MKhiriev/go-sync-engine/internal/handler/http"
	"github.com/MKhiriev/go-sync-engine/internal/hub"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/internal/server"
	"github.com/MKhiriev/go-sync-engine/internal/service"
	"github.com/MKhiriev/go-sync-engine/internal/store"
	"github.com/MKhiriev/go-sync-engine/models"
)

type App struct {
	storages *store.Storages
	hub      *hub.Hub
	engine   *service.SyncEngine
	server   server.Server

	logger *logger.Logger
}

// NewApp opens the local store and builds the engine and, when an address
// is configured, the ops server. Resources opened before a failure are
// released.
func NewApp(ctx context.Context, cfg *config.EngineConfig, info models.AppBuildInfo, log *logger.Logger) (*App, error) {
	registry, err := models.LoadSchemaRegistry(cfg.Sync.SchemaPath)
	if err != nil {
		return nil, fmt.Errorf("load model schemas: %w", err)
	}

	remote, err := adapter.NewGraphQLEndpoint(cfg.Adapter, registry, log.WithComponent("graphql"))
	if err != nil {
		return nil, fmt.Errorf("create remote endpoint: %w", err)
	}

	var opts []service.EngineOption
	if cfg.Sync.Subscriptions {
		subscriber, err := adapter.NewWebsocketSubscriber(cfg.Adapter, registry, log.WithComponent("realtime"))
		if err != nil {
			return nil, fmt.Errorf("create realtime subscriber: %w", err)
		}
		opts = append(opts, service.WithSubscriber(subscriber))
	}

	storages, err := store.NewStorages(ctx, cfg.Storage, log.WithComponent("store"))
	if err != nil {
		return nil, fmt.Errorf("create storages: %w", err)
	}

	events := hub.New(log.WithComponent("hub"))
	events.OnEvent(logEvent(log))

	a := &App{
		storages: storages,
		hub:      events,
		engine:   service.NewSyncEngine(storages, remote, registry, events, cfg.Sync, log.WithComponent("engine"), opts...),
		logger:   log,
	}

	if cfg.Server.HTTPAddress == "" {
		log.Info().Msg("ops endpoint is disabled")
		return a, nil
	}

	services := opshttp.Services{
		Engine:  a.engine,
		Storage: storages,
		Models:  storages.Local,
		Schemas: registry,
		Events:  events,
	}
	handlers, err := handler.NewHandlers(services, info, cfg.Server, log)
	if err != nil {
		storages.Close()
		return nil, fmt.Errorf("create handlers: %w", err)
	}
	if a.server, err = server.NewServer(handlers, cfg.Server, log); err != nil {
		storages.Close()
		return nil, fmt.Errorf("create server: %w", err)
	}

	return a, nil
}

// Run starts the engine and the ops server and blocks until ctx is done or
// the server fails. The engine is closed and the store closed on return.
func (a *App) Run(ctx context.Context) error {
	if err := a.engine.Start(ctx); err != nil {
		a.close()
		return fmt.Errorf("start sync engine: %w", err)
	}

	var runErr error
	if a.server != nil {
		runErr = a.server.RunServer(ctx)
	} else {
		<-ctx.Done()
	}

	if err := a.engine.Close(); err != nil {
		runErr = errors.Join(runErr, err)
	}
	a.close()

	return runErr
}

func (a *App) close() {
	a.hub.Close()
	if err := a.storages.Close(); err != nil {
		a.logger.Err(err).Str("func", "App.close").Msg("error closing storages")
	}
}

// logEvent writes every hub event to the daemon log. Failures are warnings.
func logEvent(log *logger.Logger) hub.Hook {
	return func(_ context.Context, e models.Event) {
		event := log.Debug()
		switch e.Name {
		case models.EventOutboxMutationFailed, models.EventHydrationFailed, models.EventConflictDetected:
			event = log.Warn()
		case models.EventReady:
			event = log.Info()
		}
		event.Str("event", string(e.Name)).Interface("payload", e.Payload).Msg("engine event")
	}
}
