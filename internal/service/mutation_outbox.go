// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/MKhiriev/go-sync-engine/internal/config"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/internal/store"
	"github.com/MKhiriev/go-sync-engine/internal/utils"
	"github.com/MKhiriev/go-sync-engine/models"
)

// MutationOutbox is the durable queue of local mutations waiting to be sent.
//
// Records are persisted through [store.ChangeRecordRepository] and mirrored
// in memory in enqueue order. A record handed out by [MutationOutbox.Next]
// is in flight until it is removed or released; mutations for its identity
// arriving meanwhile are queued behind it instead of being coalesced into it.
type MutationOutbox struct {
	records   store.ChangeRecordRepository
	local     store.LocalStorage
	publisher Publisher
	ids       *utils.UUIDGenerator
	policy    string
	now       func() time.Time

	mu       sync.Mutex
	loaded   bool
	queue    []models.ChangeRecord
	inFlight map[string]struct{}
	// reserved holds identities with an uncommitted enqueue.
	reserved map[models.Identity]struct{}
	changed  chan struct{}

	logger *logger.Logger
}

// NewMutationOutbox builds an outbox. Persisted records are replayed by
// Load, or by Open and Enqueue on first use.
func NewMutationOutbox(storages *store.Storages, publisher Publisher, saveAfterDelete string, log *logger.Logger) *MutationOutbox {
	if saveAfterDelete == "" {
		saveAfterDelete = config.SaveAfterDeleteReject
	}

	return &MutationOutbox{
		records:   storages.ChangeRecords,
		local:     storages.Local,
		publisher: publisher,
		ids:       utils.NewUUIDGenerator(),
		policy:    saveAfterDelete,
		now:       time.Now,
		inFlight:  make(map[string]struct{}),
		reserved:  make(map[models.Identity]struct{}),
		changed:   make(chan struct{}),
		logger:    log,
	}
}

// Load replaces the in-memory queue with the persisted records, oldest
// first, and clears in-flight marks.
func (o *MutationOutbox) Load(ctx context.Context) error {
	recs, err := o.records.List(ctx)
	if err != nil {
		return fmt.Errorf("load outbox: %w", err)
	}

	o.mu.Lock()
	o.queue = recs
	o.loaded = true
	o.inFlight = make(map[string]struct{})
	o.broadcastLocked()
	empty := len(o.queue) == 0
	o.mu.Unlock()

	o.logger.Info().Str("func", "MutationOutbox.Load").Int("pending", len(recs)).Msg("outbox loaded")
	o.publisher.Publish(ctx, models.NewEvent(models.EventOutboxStatus, models.OutboxStatusPayload{IsEmpty: empty}))

	return nil
}

// Open prepares the outbox for a new processing run. Persisted records are
// loaded the first time only, so a live queue keeps records enqueued while
// no processor was running. In-flight marks are cleared.
func (o *MutationOutbox) Open(ctx context.Context) error {
	if err := o.ensureLoaded(ctx); err != nil {
		return err
	}

	o.mu.Lock()
	o.inFlight = make(map[string]struct{})
	o.broadcastLocked()
	pending := len(o.queue)
	o.mu.Unlock()

	o.logger.Info().Str("func", "MutationOutbox.Open").Int("pending", pending).Msg("outbox opened")
	o.publisher.Publish(ctx, models.NewEvent(models.EventOutboxStatus, models.OutboxStatusPayload{IsEmpty: pending == 0}))

	return nil
}

// ensureLoaded replays persisted records into an outbox that has not been
// loaded yet. Records committed after the first load reach the queue
// through Enqueue.
func (o *MutationOutbox) ensureLoaded(ctx context.Context) error {
	o.mu.Lock()
	loaded := o.loaded
	o.mu.Unlock()
	if loaded {
		return nil
	}

	recs, err := o.records.List(ctx)
	if err != nil {
		return fmt.Errorf("load outbox: %w", err)
	}

	o.mu.Lock()
	if !o.loaded {
		o.queue = recs
		o.loaded = true
		o.broadcastLocked()
	}
	o.mu.Unlock()

	return nil
}

// Enqueue durably records a local change, coalescing it with a queued
// record for the same identity when one is waiting. It returns once the
// change is persisted; when ctx carries a transaction the record becomes
// visible to Next only after that transaction commits.
func (o *MutationOutbox) Enqueue(ctx context.Context, change models.StorageItemChange) error {
	if change.Item.Name == "" || change.Item.ID == "" {
		return fmt.Errorf("%w: change without identity", store.ErrInvalidModel)
	}
	if change.Kind != models.MutationSave && change.Kind != models.MutationDelete {
		return fmt.Errorf("%w: %q", ErrUnsupportedMutation, change.Kind)
	}

	id := change.Item.Identity()
	log := logger.FromContext(ctx)

	return o.local.WithinTx(ctx, func(ctx context.Context) error {
		if err := o.ensureLoaded(ctx); err != nil {
			return err
		}
		if err := o.reserve(ctx, id); err != nil {
			return err
		}

		rec, merged, err := o.write(ctx, change)
		if err != nil {
			o.unreserve(id)
			return err
		}

		store.OnTxDone(ctx, func(committed bool) {
			o.mu.Lock()
			delete(o.reserved, id)
			if committed {
				if merged {
					o.replaceLocked(rec)
				} else {
					o.queue = append(o.queue, rec)
				}
			}
			o.broadcastLocked()
			o.mu.Unlock()

			if !committed {
				return
			}
			log.Debug().
				Str("func", "MutationOutbox.Enqueue").
				Str("mutation_id", rec.ID).
				Str("model_name", rec.ModelName).
				Str("model_id", rec.ModelID).
				Str("kind", string(rec.Kind)).
				Bool("coalesced", merged).
				Msg("mutation enqueued")
			o.publisher.Publish(ctx, models.NewEvent(models.EventOutboxMutationEnqueued, models.MutationEventPayload{Record: rec}))
		})

		return nil
	})
}

// reserve marks id as having an uncommitted enqueue, waiting for a previous
// reservation to end.
func (o *MutationOutbox) reserve(ctx context.Context, id models.Identity) error {
	for {
		o.mu.Lock()
		if _, busy := o.reserved[id]; !busy {
			o.reserved[id] = struct{}{}
			o.mu.Unlock()
			return nil
		}
		changed := o.changed
		o.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

func (o *MutationOutbox) unreserve(id models.Identity) {
	o.mu.Lock()
	delete(o.reserved, id)
	o.broadcastLocked()
	o.mu.Unlock()
}

// write applies the coalescing rules and persists the result. merged
// reports whether an existing queued record was rewritten.
func (o *MutationOutbox) write(ctx context.Context, change models.StorageItemChange) (models.ChangeRecord, bool, error) {
	o.mu.Lock()
	latest, hasLatest := o.latestLocked(change.Item.Identity())
	_, latestInFlight := o.inFlight[latest.ID]
	o.mu.Unlock()

	if hasLatest && latest.Kind == models.MutationDelete && change.Kind == models.MutationSave &&
		o.policy != config.SaveAfterDeleteQueue {
		return models.ChangeRecord{}, false, fmt.Errorf("%w: %s", ErrModelScheduledForDeletion, change.Item.Identity())
	}

	canMerge := hasLatest && !latestInFlight &&
		!(latest.Kind == models.MutationDelete && change.Kind == models.MutationSave)

	if canMerge {
		latest.Item = change.Item
		latest.Kind = change.Kind
		latest.Initiator = change.Initiator
		if err := o.records.Update(ctx, latest); err != nil {
			return models.ChangeRecord{}, false, fmt.Errorf("coalesce mutation %s: %w", latest.ID, err)
		}
		return latest, true, nil
	}

	rec := models.NewChangeRecord(o.ids.Generate(), change, o.now())
	seq, err := o.records.Insert(ctx, rec)
	if err != nil {
		return models.ChangeRecord{}, false, fmt.Errorf("enqueue mutation: %w", err)
	}
	rec.Seq = seq

	return rec, false, nil
}

// Next blocks until a record can be sent and marks it in flight. Only one
// record is in flight at a time; records whose identity has an uncommitted
// enqueue are skipped until it ends.
func (o *MutationOutbox) Next(ctx context.Context) (models.ChangeRecord, error) {
	for {
		o.mu.Lock()
		if len(o.inFlight) == 0 {
			for _, rec := range o.queue {
				if _, busy := o.reserved[rec.Identity()]; busy {
					continue
				}
				o.inFlight[rec.ID] = struct{}{}
				o.mu.Unlock()
				return rec, nil
			}
		}
		changed := o.changed
		o.mu.Unlock()

		select {
		case <-ctx.Done():
			return models.ChangeRecord{}, ctx.Err()
		case <-changed:
		}
	}
}

// Observe streams records oldest first: every unresolved record, then newly
// enqueued ones. Each delivered record must be removed or released before
// the next one is delivered. The channel closes when ctx is done; a record
// that was taken but not delivered is released.
func (o *MutationOutbox) Observe(ctx context.Context) <-chan models.ChangeRecord {
	out := make(chan models.ChangeRecord)

	go func() {
		defer close(out)
		for {
			rec, err := o.Next(ctx)
			if err != nil {
				return
			}
			select {
			case out <- rec:
			case <-ctx.Done():
				o.Release(rec)
				return
			}
		}
	}()

	return out
}

// Release returns an in-flight record to the queue untouched.
func (o *MutationOutbox) Release(rec models.ChangeRecord) {
	o.mu.Lock()
	delete(o.inFlight, rec.ID)
	o.broadcastLocked()
	o.mu.Unlock()
}

// Remove deletes a resolved record. Removing an unknown record only logs.
func (o *MutationOutbox) Remove(ctx context.Context, rec models.ChangeRecord) error {
	return o.local.WithinTx(ctx, func(ctx context.Context) error {
		removed, err := o.records.Delete(ctx, rec.ID)
		if err != nil {
			return fmt.Errorf("remove mutation %s: %w", rec.ID, err)
		}
		if removed == 0 {
			o.logger.Warn().
				Str("func", "MutationOutbox.Remove").
				Str("mutation_id", rec.ID).
				Str("model_name", rec.ModelName).
				Str("model_id", rec.ModelID).
				Msg("mutation already removed")
		}

		store.OnTxDone(ctx, func(committed bool) {
			if !committed {
				return
			}

			o.mu.Lock()
			delete(o.inFlight, rec.ID)
			for i := range o.queue {
				if o.queue[i].ID == rec.ID {
					o.queue = append(o.queue[:i], o.queue[i+1:]...)
					break
				}
			}
			empty := len(o.queue) == 0
			o.broadcastLocked()
			o.mu.Unlock()

			if empty {
				o.publisher.Publish(ctx, models.NewEvent(models.EventOutboxStatus, models.OutboxStatusPayload{IsEmpty: true}))
			}
		})

		return nil
	})
}

// HasPending reports whether an unresolved record targets id. Records with
// the given ids are ignored.
func (o *MutationOutbox) HasPending(id models.Identity, except ...string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, rec := range o.queue {
		if rec.Identity() != id {
			continue
		}
		if !slices.Contains(except, rec.ID) {
			return true
		}
	}
	return false
}

// Pending returns a snapshot of the unresolved records in enqueue order.
func (o *MutationOutbox) Pending() []models.ChangeRecord {
	o.mu.Lock()
	defer o.mu.Unlock()

	return append([]models.ChangeRecord(nil), o.queue...)
}

// Len returns the number of unresolved records.
func (o *MutationOutbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return len(o.queue)
}

func (o *MutationOutbox) latestLocked(id models.Identity) (models.ChangeRecord, bool) {
	for i := len(o.queue) - 1; i >= 0; i-- {
		if o.queue[i].Identity() == id {
			return o.queue[i], true
		}
	}
	return models.ChangeRecord{}, false
}

func (o *MutationOutbox) replaceLocked(rec models.ChangeRecord) {
	for i := range o.queue {
		if o.queue[i].ID == rec.ID {
			o.queue[i] = rec
			return
		}
	}
	o.queue = append(o.queue, rec)
}

// broadcastLocked wakes every goroutine waiting for a queue change.
func (o *MutationOutbox) broadcastLocked() {
	close(o.changed)
	o.changed = make(chan struct{})
}
