// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MKhiriev/go-sync-engine/internal/adapter"
	"github.com/MKhiriev/go-sync-engine/internal/config"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/internal/store"
	"github.com/MKhiriev/go-sync-engine/internal/workers"
	"github.com/MKhiriev/go-sync-engine/models"
	"github.com/sethvargo/go-retry"
)

// SyncEngine wires the outbox, the mutation processor and hydration
// together and owns their lifecycle. Local writes are captured into the
// outbox from construction until Close, whether or not the engine is
// running; Start and Stop only control sending and hydration.
type SyncEngine struct {
	outbox    *MutationOutbox
	processor *MutationProcessor
	sync      *SyncProcessor
	subs      *SubscriptionProcessor
	job       HydrationJob
	publisher Publisher
	cfg       config.EngineSync

	mu        sync.Mutex
	running   bool
	closed    bool
	cancel    context.CancelFunc
	done      chan struct{}
	unobserve func()

	statusMu         sync.Mutex
	lastHydrationAt  time.Time
	lastHydrationErr error

	logger *logger.Logger
}

// EngineOption customizes [NewSyncEngine].
type EngineOption func(*engineOptions)

type engineOptions struct {
	subscriber adapter.Subscriber
	conflicts  ConflictHandler
}

// WithSubscriber enables realtime subscriptions when the sync config allows
// them.
func WithSubscriber(s adapter.Subscriber) EngineOption {
	return func(o *engineOptions) { o.subscriber = s }
}

// WithConflictHandler replaces the default [ApplyRemote] handler.
func WithConflictHandler(h ConflictHandler) EngineOption {
	return func(o *engineOptions) { o.conflicts = h }
}

// NewSyncEngine builds an engine over storages and remote and starts
// capturing local writes into the outbox. Nothing is sent until Start.
func NewSyncEngine(
	storages *store.Storages,
	remote adapter.RemoteEndpoint,
	registry *models.SchemaRegistry,
	publisher Publisher,
	cfg config.EngineSync,
	log *logger.Logger,
	opts ...EngineOption,
) *SyncEngine {
	var o engineOptions
	for _, opt := range opts {
		opt(&o)
	}
	cfg = withSyncDefaults(cfg)

	outbox := NewMutationOutbox(storages, publisher, cfg.SaveAfterDelete, log.WithComponent("outbox"))
	merger := NewMerger(storages.Local, outbox)

	e := &SyncEngine{
		outbox:    outbox,
		publisher: publisher,
		cfg:       cfg,
		logger:    log,
	}
	e.processor = NewMutationProcessor(outbox, remote, storages.Local, merger, o.conflicts, publisher, cfg,
		log.WithComponent("mutation_processor"))
	e.sync = NewSyncProcessor(
		NewRemoteModelState(remote, storages.SyncCursors, registry, cfg, log.WithComponent("remote_model_state")),
		merger, storages.SyncCursors, registry, publisher, log.WithComponent("sync_processor"))
	e.job = NewHydrationJob(e, log.WithComponent("hydration_job"))
	if o.subscriber != nil && cfg.Subscriptions {
		e.subs = NewSubscriptionProcessor(o.subscriber, merger, registry, publisher, e.Hydrate,
			cfg.BackoffBase, cfg.BackoffMax, log.WithComponent("subscriptions"))
	}

	e.unobserve = storages.Local.Observe(func(ctx context.Context, change models.StorageItemChange) error {
		if change.Initiator != models.InitiatorLocal {
			return nil
		}
		return outbox.Enqueue(ctx, change)
	})

	return e
}

// Outbox exposes the engine's outbox.
func (e *SyncEngine) Outbox() *MutationOutbox {
	return e.outbox
}

// Start opens the outbox and launches the background workers: the mutation processor, the initial hydration with
// retry, the periodic hydration job and subscriptions. It returns once the
// workers are running.
func (e *SyncEngine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}
	if e.running {
		return ErrEngineRunning
	}

	if err := e.outbox.Open(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel
	e.done = make(chan struct{})
	e.running = true

	ws := workers.New(e.logger).
		Add("mutation_processor", e.processor).
		Add("initial_hydration", workers.Func(e.initialHydration))
	if e.subs != nil {
		ws.Add("subscriptions", e.subs)
	}

	go func(done chan struct{}) {
		defer close(done)
		if err := ws.Run(runCtx); err != nil {
			e.logger.Err(err).Str("func", "SyncEngine.Start").Msg("engine worker failed")
		}
	}(e.done)

	e.logger.Info().Str("func", "SyncEngine.Start").Int("pending", e.outbox.Len()).Msg("sync engine started")
	return nil
}

// initialHydration hydrates until it succeeds, backing off between
// attempts, then announces readiness and starts the periodic job.
func (e *SyncEngine) initialHydration(ctx context.Context) error {
	backoff := retry.WithCappedDuration(e.cfg.BackoffMax, retry.NewExponential(e.cfg.BackoffBase))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := e.Hydrate(ctx)
		if err == nil || errors.Is(err, ErrHydrationInProgress) {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return retry.RetryableError(err)
	})
	if err != nil {
		return nil
	}

	e.publisher.Publish(ctx, models.NewEvent(models.EventReady, nil))
	e.job.Start(ctx, e.cfg.HydrationInterval)
	return nil
}

// Stop cancels all workers and waits for them. An in-flight send completes
// first. Local writes keep being captured.
func (e *SyncEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.stopLocked()
}

// Close stops the engine if it runs and stops capturing local writes. A
// closed engine cannot be started again.
func (e *SyncEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.unobserve()

	if err := e.stopLocked(); err != nil && !errors.Is(err, ErrEngineNotRunning) {
		return err
	}
	return nil
}

func (e *SyncEngine) stopLocked() error {
	if !e.running {
		return ErrEngineNotRunning
	}

	e.cancel()
	<-e.done
	e.job.Stop()

	e.running = false
	e.logger.Info().Str("func", "SyncEngine.Stop").Msg("sync engine stopped")
	return nil
}

// Hydrate runs one hydration now. It returns [ErrHydrationInProgress] when
// another one is running.
func (e *SyncEngine) Hydrate(ctx context.Context) error {
	_, err := e.sync.Hydrate(ctx)
	if errors.Is(err, ErrHydrationInProgress) {
		return err
	}

	e.statusMu.Lock()
	e.lastHydrationAt = time.Now().UTC()
	e.lastHydrationErr = err
	e.statusMu.Unlock()

	if err != nil {
		return fmt.Errorf("hydration: %w", err)
	}
	return nil
}

// Status reports a snapshot of the engine.
func (e *SyncEngine) Status() models.EngineStatus {
	e.mu.Lock()
	running := e.running
	e.mu.Unlock()

	pending := e.outbox.Pending()
	status := models.EngineStatus{
		Running:      running,
		PendingCount: len(pending),
		PendingIDs:   make([]string, 0, len(pending)),
	}
	for _, rec := range pending {
		status.PendingIDs = append(status.PendingIDs, rec.ID)
	}

	e.statusMu.Lock()
	status.LastHydrationAt = e.lastHydrationAt
	if e.lastHydrationErr != nil {
		status.LastHydrationErr = e.lastHydrationErr.Error()
	}
	e.statusMu.Unlock()

	return status
}

// ProcessorState reports the mutation processor state.
func (e *SyncEngine) ProcessorState() ProcessorState {
	return e.processor.State()
}

// withSyncDefaults fills unset tuning values from [config.DefaultEngineSync].
func withSyncDefaults(cfg config.EngineSync) config.EngineSync {
	d := config.DefaultEngineSync()
	if cfg.FullSyncInterval <= 0 {
		cfg.FullSyncInterval = d.FullSyncInterval
	}
	if cfg.HydrationInterval <= 0 {
		cfg.HydrationInterval = d.HydrationInterval
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = d.PageSize
	}
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = d.MaxRecords
	}
	if cfg.Workers <= 0 {
		cfg.Workers = d.Workers
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = d.SendTimeout
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = d.BackoffBase
	}
	if cfg.BackoffMax < cfg.BackoffBase {
		cfg.BackoffMax = max(d.BackoffMax, cfg.BackoffBase)
	}
	if cfg.SaveAfterDelete == "" {
		cfg.SaveAfterDelete = d.SaveAfterDelete
	}
	return cfg
}
