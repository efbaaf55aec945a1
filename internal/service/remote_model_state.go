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
	"github.com/MKhiriev/go-sync-engine/internal/predicate"
	"github.com/MKhiriev/go-sync-engine/internal/store"
	"github.com/MKhiriev/go-sync-engine/models"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
)

const pageAttempts = 3

// RemoteModelEvent is one element of the merged remote stream. Exactly one
// of Item and Cursor is set; a type's Cursor follows all of its items.
type RemoteModelEvent struct {
	ModelName  string
	IsFullSync bool
	Item       *models.ModelWithMetadata
	Cursor     *models.SyncCursor
}

// RemoteModelState fans sync queries out per model type and merges the
// pages into one finite stream.
type RemoteModelState struct {
	remote   adapter.RemoteEndpoint
	cursors  store.SyncCursorRepository
	registry *models.SchemaRegistry

	pageSize         int
	maxRecords       int
	workers          int
	fullSyncInterval time.Duration
	continueOnError  bool
	backoffBase      time.Duration

	now func() time.Time

	logger *logger.Logger
}

func NewRemoteModelState(
	remote adapter.RemoteEndpoint,
	cursors store.SyncCursorRepository,
	registry *models.SchemaRegistry,
	cfg config.EngineSync,
	log *logger.Logger,
) *RemoteModelState {
	defaults := config.DefaultEngineSync()
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaults.PageSize
	}
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = defaults.MaxRecords
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.FullSyncInterval <= 0 {
		cfg.FullSyncInterval = defaults.FullSyncInterval
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaults.BackoffBase
	}

	return &RemoteModelState{
		remote:           remote,
		cursors:          cursors,
		registry:         registry,
		pageSize:         cfg.PageSize,
		maxRecords:       cfg.MaxRecords,
		workers:          cfg.Workers,
		fullSyncInterval: cfg.FullSyncInterval,
		continueOnError:  cfg.ContinueOnError,
		backoffBase:      cfg.BackoffBase,
		now:              time.Now,
		logger:           log,
	}
}

// Observe starts fetching every registered type and returns the merged
// stream together with a wait function. wait blocks until the stream is
// closed and returns the fetch error, if any. Unless continue-on-error is
// set, the first failing type cancels the rest.
//
// The consumer must drain the channel or cancel ctx.
func (s *RemoteModelState) Observe(ctx context.Context) (<-chan RemoteModelEvent, func() error) {
	out := make(chan RemoteModelEvent)
	done := make(chan struct{})

	var (
		g      *errgroup.Group
		gctx   = ctx
		mu     sync.Mutex
		failed []error
	)
	if s.continueOnError {
		g = &errgroup.Group{}
	} else {
		g, gctx = errgroup.WithContext(ctx)
	}
	g.SetLimit(s.workers)

	go func() {
		defer close(done)
		defer close(out)

		for _, schema := range s.registry.All() {
			g.Go(func() error {
				err := s.observeModel(gctx, schema, out)
				if err == nil {
					return nil
				}
				err = fmt.Errorf("sync %s: %w", schema.Name, err)
				if !s.continueOnError {
					return err
				}

				s.logger.Err(err).Str("func", "RemoteModelState.Observe").Str("model_name", schema.Name).
					Msg("model sync failed, continuing with other types")
				mu.Lock()
				failed = append(failed, err)
				mu.Unlock()
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			mu.Lock()
			failed = append(failed, err)
			mu.Unlock()
		}
	}()

	wait := func() error {
		<-done
		mu.Lock()
		defer mu.Unlock()
		return errors.Join(failed...)
	}

	return out, wait
}

func (s *RemoteModelState) observeModel(ctx context.Context, schema models.ModelSchema, out chan<- RemoteModelEvent) error {
	now := s.now().UTC()

	cursor, err := s.cursors.Get(ctx, schema.Name)
	switch {
	case errors.Is(err, store.ErrCursorNotFound):
		cursor = models.SyncCursor{ModelName: schema.Name}
	case err != nil:
		return err
	}

	isFullSync := cursor.Token == "" || now.Sub(cursor.LastFullSyncAt) > s.fullSyncInterval
	sinceToken := cursor.Token
	if isFullSync {
		sinceToken = ""
	}

	var filter models.Predicate
	if schema.SyncExpression != "" {
		if filter, err = predicate.Compile(schema.SyncExpression); err != nil {
			return err
		}
	}

	log := s.logger.With().Str("model_name", schema.Name).Bool("full_sync", isFullSync).Logger()
	log.Debug().Str("func", "RemoteModelState.observeModel").Msg("sync query started")

	var (
		fetched, filtered int
		nextToken         string
		syncToken         string
	)
	for page := 0; ; page++ {
		req := models.SyncRequest{
			ModelName:  schema.Name,
			SinceToken: sinceToken,
			NextToken:  nextToken,
			Limit:      min(s.pageSize, s.maxRecords-fetched),
			Filter:     schema.SyncFilter,
		}

		res, err := s.fetchPage(ctx, req)
		if err != nil {
			return err
		}
		if page == 0 {
			syncToken = res.SyncToken
		}

		for i := range res.Items {
			item := res.Items[i]
			if filter != nil && !item.Metadata.Deleted {
				ok, err := filter.Match(item.Model)
				if err != nil {
					return err
				}
				if !ok {
					filtered++
					continue
				}
			}

			select {
			case out <- RemoteModelEvent{ModelName: schema.Name, IsFullSync: isFullSync, Item: &item}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		fetched += len(res.Items)
		nextToken = res.NextToken
		if nextToken == "" {
			break
		}
		if fetched >= s.maxRecords {
			log.Warn().Str("func", "RemoteModelState.observeModel").Int("max_records", s.maxRecords).
				Msg("record limit reached, remaining pages left for the next sync")
			break
		}
	}

	next := models.SyncCursor{
		ModelName:      schema.Name,
		Token:          syncToken,
		LastSyncAt:     now,
		LastFullSyncAt: cursor.LastFullSyncAt,
	}
	if isFullSync {
		next.LastFullSyncAt = now
	}

	log.Debug().Str("func", "RemoteModelState.observeModel").Int("fetched", fetched).Int("filtered", filtered).
		Msg("sync query finished")

	select {
	case out <- RemoteModelEvent{ModelName: schema.Name, IsFullSync: isFullSync, Cursor: &next}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fetchPage retries transient page failures a few times.
func (s *RemoteModelState) fetchPage(ctx context.Context, req models.SyncRequest) (models.SyncPage, error) {
	var page models.SyncPage
	backoff := retry.WithMaxRetries(pageAttempts-1, retry.NewExponential(s.backoffBase))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		page, err = s.remote.Sync(ctx, req)
		if err != nil && adapter.IsRetryable(err) {
			s.logger.Warn().Err(err).Str("func", "RemoteModelState.fetchPage").Str("model_name", req.ModelName).
				Msg("transient sync failure, retrying")
			return retry.RetryableError(err)
		}
		return err
	})

	return page, err
}
