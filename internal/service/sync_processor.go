package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/internal/store"
	"github.com/MKhiriev/go-sync-engine/models"
)

// HydrationReport summarizes one hydration run.
type HydrationReport struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Models     map[string]*models.ModelSyncedPayload
}

// SyncProcessor pulls the remote model state into local storage and
// advances the sync cursors once everything was applied.
type SyncProcessor struct {
	state     *RemoteModelState
	merger    *Merger
	cursors   store.SyncCursorRepository
	registry  *models.SchemaRegistry
	publisher Publisher

	// serializes hydrations
	mu sync.Mutex

	logger *logger.Logger
}

func NewSyncProcessor(
	state *RemoteModelState,
	merger *Merger,
	cursors store.SyncCursorRepository,
	registry *models.SchemaRegistry,
	publisher Publisher,
	log *logger.Logger,
) *SyncProcessor {
	return &SyncProcessor{
		state:     state,
		merger:    merger,
		cursors:   cursors,
		registry:  registry,
		publisher: publisher,
		logger:    log,
	}
}

// Hydrate merges every remote item through the version gate. Cursors are
// saved only when the remote stream completed; with continue-on-error the
// types that completed keep their cursors and the error lists the others.
// Running Hydrate again after a failure is always safe.
func (p *SyncProcessor) Hydrate(ctx context.Context) (HydrationReport, error) {
	if !p.mu.TryLock() {
		return HydrationReport{}, ErrHydrationInProgress
	}
	defer p.mu.Unlock()

	report := HydrationReport{
		StartedAt: time.Now().UTC(),
		Models:    make(map[string]*models.ModelSyncedPayload),
	}
	names := p.registry.Names()
	for _, name := range names {
		report.Models[name] = &models.ModelSyncedPayload{ModelName: name}
	}

	p.logger.Info().Str("func", "SyncProcessor.Hydrate").Strs("models", names).Msg("hydration started")
	p.publisher.Publish(ctx, models.NewEvent(models.EventSyncQueriesStarted, models.SyncQueriesStartedPayload{ModelNames: names}))

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, wait := p.state.Observe(streamCtx)

	var (
		cursors  []models.SyncCursor
		mergeErr error
	)
	for ev := range events {
		if mergeErr != nil {
			// drain after cancel
			continue
		}

		stats, ok := report.Models[ev.ModelName]
		if !ok {
			stats = &models.ModelSyncedPayload{ModelName: ev.ModelName}
			report.Models[ev.ModelName] = stats
		}
		stats.IsFullSync = ev.IsFullSync

		if ev.Cursor != nil {
			cursors = append(cursors, *ev.Cursor)
			p.publisher.Publish(ctx, models.NewEvent(models.EventModelSynced, *stats))
			continue
		}

		if err := p.apply(ctx, *ev.Item, stats); err != nil {
			mergeErr = fmt.Errorf("hydrate %s: %w", ev.Item.Identity(), err)
			cancel()
		}
	}

	fetchErr := wait()
	if mergeErr != nil {
		return p.failed(ctx, report, mergeErr)
	}
	if fetchErr != nil && !p.state.continueOnError {
		return p.failed(ctx, report, fetchErr)
	}

	for _, c := range cursors {
		if err := p.cursors.Save(ctx, c); err != nil {
			return p.failed(ctx, report, fmt.Errorf("save %s cursor: %w", c.ModelName, err))
		}
	}

	report.FinishedAt = time.Now().UTC()
	if fetchErr != nil {
		return p.failed(ctx, report, fetchErr)
	}

	p.logger.Info().Str("func", "SyncProcessor.Hydrate").
		Dur("took", report.FinishedAt.Sub(report.StartedAt)).
		Msg("hydration finished")
	p.publisher.Publish(ctx, models.NewEvent(models.EventSyncQueriesReady, nil))

	return report, nil
}

func (p *SyncProcessor) apply(ctx context.Context, item models.ModelWithMetadata, stats *models.ModelSyncedPayload) error {
	res, err := p.merger.Merge(ctx, item)
	if errors.Is(err, store.ErrVersionConflict) {
		// another writer stored newer metadata first
		stats.Skipped++
		return nil
	}
	if err != nil {
		return err
	}

	switch {
	case res.Decision == store.MergeSkip:
		stats.Skipped++
	case item.Metadata.Deleted:
		stats.Deleted++
	case res.Current == nil:
		stats.Created++
	default:
		stats.Updated++
	}
	return nil
}

func (p *SyncProcessor) failed(ctx context.Context, report HydrationReport, err error) (HydrationReport, error) {
	report.FinishedAt = time.Now().UTC()

	p.logger.Err(err).Str("func", "SyncProcessor.Hydrate").Msg("hydration failed")
	p.publisher.Publish(ctx, models.NewEvent(models.EventHydrationFailed, models.HydrationFailedPayload{Error: err.Error()}))

	return report, err
}
