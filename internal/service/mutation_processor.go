// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/MKhiriev/go-sync-engine/internal/adapter"
	"github.com/MKhiriev/go-sync-engine/internal/config"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/internal/store"
	"github.com/MKhiriev/go-sync-engine/models"
	"github.com/sethvargo/go-retry"
)

// ProcessorState is the lifecycle state of a [MutationProcessor].
type ProcessorState int32

const (
	ProcessorStopped ProcessorState = iota
	ProcessorDraining
	ProcessorSending
)

func (s ProcessorState) String() string {
	switch s {
	case ProcessorStopped:
		return "stopped"
	case ProcessorDraining:
		return "draining"
	case ProcessorSending:
		return "sending"
	}
	return fmt.Sprintf("ProcessorState(%d)", int32(s))
}

const (
	removeAttempts = 3
	removeBackoff  = 100 * time.Millisecond
)

// MutationProcessor drains the outbox to the remote endpoint one record at
// a time, in enqueue order.
type MutationProcessor struct {
	outbox    *MutationOutbox
	remote    adapter.RemoteEndpoint
	local     store.LocalStorage
	merger    *Merger
	conflicts ConflictHandler
	publisher Publisher

	sendTimeout time.Duration
	backoffBase time.Duration
	backoffMax  time.Duration

	state atomic.Int32

	logger *logger.Logger
}

// NewMutationProcessor wires a processor. A nil handler means [ApplyRemote].
func NewMutationProcessor(
	outbox *MutationOutbox,
	remote adapter.RemoteEndpoint,
	local store.LocalStorage,
	merger *Merger,
	handler ConflictHandler,
	publisher Publisher,
	cfg config.EngineSync,
	log *logger.Logger,
) *MutationProcessor {
	if handler == nil {
		handler = ApplyRemote{}
	}
	defaults := config.DefaultEngineSync()
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaults.SendTimeout
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaults.BackoffBase
	}
	if cfg.BackoffMax < cfg.BackoffBase {
		cfg.BackoffMax = cfg.BackoffBase
	}

	return &MutationProcessor{
		outbox:      outbox,
		remote:      remote,
		local:       local,
		merger:      merger,
		conflicts:   handler,
		publisher:   publisher,
		sendTimeout: cfg.SendTimeout,
		backoffBase: cfg.BackoffBase,
		backoffMax:  cfg.BackoffMax,
		logger:      log,
	}
}

// State returns the current processor state.
func (p *MutationProcessor) State() ProcessorState {
	return ProcessorState(p.state.Load())
}

// Run drains the outbox until ctx is done. A send already on the wire when
// ctx is cancelled is completed and acknowledged.
func (p *MutationProcessor) Run(ctx context.Context) error {
	p.state.Store(int32(ProcessorDraining))
	defer p.state.Store(int32(ProcessorStopped))

	p.logger.Info().Str("func", "MutationProcessor.Run").Msg("draining mutation outbox")

	for rec := range p.outbox.Observe(ctx) {
		p.state.Store(int32(ProcessorSending))
		p.process(ctx, rec)
		p.state.Store(int32(ProcessorDraining))
	}

	p.logger.Info().Str("func", "MutationProcessor.Run").Msg("mutation processor stopped")
	return nil
}

// sendResult is the outcome of a successful send.
type sendResult struct {
	response models.ModelWithMetadata
	// skipped is set when no remote call was needed.
	skipped bool
	// version is the expected version the mutation was sent with.
	version int64
}

func (p *MutationProcessor) process(ctx context.Context, rec models.ChangeRecord) {
	item := rec.Item

	for attempt := 1; ; attempt++ {
		res, err := p.send(ctx, rec, item)
		if err == nil {
			p.acknowledge(ctx, rec, res)
			return
		}

		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			// stopped while backing off; resent after restart
			p.outbox.Release(rec)
			return
		}

		remote, isConflict := adapter.IsConflict(err)
		if !isConflict {
			p.fail(ctx, rec, err)
			return
		}

		next, retryWith := p.resolveConflict(ctx, rec, remote, res.version, attempt)
		if !retryWith {
			return
		}
		item = next
	}
}

func (p *MutationProcessor) metadata(ctx context.Context, id models.Identity) (*models.ModelMetadata, error) {
	md, err := p.local.GetMetadata(ctx, id)
	if errors.Is(err, store.ErrMetadataNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &md, nil
}

// send maps the record to a remote call and retries transient failures
// with capped exponential backoff until ctx is done. The expected version
// is re-read from local metadata on every attempt.
func (p *MutationProcessor) send(ctx context.Context, rec models.ChangeRecord, item models.Model) (sendResult, error) {
	log := p.logger.With().
		Str("mutation_id", rec.ID).
		Str("model_name", rec.ModelName).
		Str("model_id", rec.ModelID).
		Str("kind", string(rec.Kind)).
		Logger()

	var res sendResult
	backoff := retry.WithCappedDuration(p.backoffMax, retry.NewExponential(p.backoffBase))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		res = sendResult{}

		md, err := p.metadata(ctx, rec.Identity())
		if err != nil {
			log.Err(err).Str("func", "MutationProcessor.send").Int("attempt", attempt).Msg("error reading metadata, retrying")
			return retry.RetryableError(fmt.Errorf("read metadata: %w", err))
		}
		if md != nil {
			res.version = md.Version
		}

		var call func(ctx context.Context) (models.ModelWithMetadata, error)
		switch {
		case rec.Kind == models.MutationSave && res.version == 0:
			call = func(ctx context.Context) (models.ModelWithMetadata, error) {
				return p.remote.Create(ctx, item)
			}
		case rec.Kind == models.MutationSave:
			call = func(ctx context.Context) (models.ModelWithMetadata, error) {
				return p.remote.Update(ctx, item, res.version)
			}
		case rec.Kind == models.MutationDelete && (res.version == 0 || md.Deleted):
			log.Debug().Str("func", "MutationProcessor.send").Msg("record unknown to remote or already deleted, nothing to send")
			res.skipped = true
			return nil
		case rec.Kind == models.MutationDelete:
			call = func(ctx context.Context) (models.ModelWithMetadata, error) {
				return p.remote.Delete(ctx, item, res.version)
			}
		default:
			return fmt.Errorf("%w: %q", ErrUnsupportedMutation, rec.Kind)
		}

		// an attempt outlives ctx cancellation, bounded by the send timeout
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.sendTimeout)
		defer cancel()

		resp, err := call(sendCtx)
		if err == nil {
			res.response = resp
			return nil
		}
		if !adapter.IsRetryable(err) {
			return err
		}

		log.Warn().Err(err).Str("func", "MutationProcessor.send").Int("attempt", attempt).Msg("transient send failure, retrying")
		p.publisher.Publish(ctx, models.NewEvent(models.EventNetworkRetry, models.NetworkRetryPayload{
			Record:  rec,
			Attempt: attempt,
			Error:   err.Error(),
		}))
		return retry.RetryableError(err)
	})

	return res, err
}

// acknowledge stores the response metadata, then removes the record.
func (p *MutationProcessor) acknowledge(ctx context.Context, rec models.ChangeRecord, res sendResult) {
	ackCtx := context.WithoutCancel(ctx)

	if !res.skipped {
		result, err := p.merger.Merge(ackCtx, res.response, rec.ID)
		switch {
		case errors.Is(err, store.ErrVersionConflict):
			p.logger.Debug().Str("func", "MutationProcessor.acknowledge").Str("mutation_id", rec.ID).
				Msg("metadata changed concurrently, acknowledgment skipped")
		case err != nil:
			p.logger.Err(err).Str("func", "MutationProcessor.acknowledge").Str("mutation_id", rec.ID).
				Str("model_name", rec.ModelName).Str("model_id", rec.ModelID).
				Msg("error storing acknowledged metadata")
		default:
			p.logger.Debug().Str("func", "MutationProcessor.acknowledge").
				Str("mutation_id", rec.ID).
				Str("model_name", rec.ModelName).
				Str("model_id", rec.ModelID).
				Int64("version", res.response.Metadata.Version).
				Str("decision", result.Decision.String()).
				Msg("mutation acknowledged")
		}
	}

	if !p.remove(ackCtx, rec) {
		return
	}
	p.publisher.Publish(ackCtx, models.NewEvent(models.EventOutboxMutationProcessed, models.MutationEventPayload{Record: rec}))
}

// fail reports a non-retryable rejection and drops the record.
func (p *MutationProcessor) fail(ctx context.Context, rec models.ChangeRecord, cause error) {
	p.logger.Err(cause).
		Str("func", "MutationProcessor.fail").
		Str("mutation_id", rec.ID).
		Str("model_name", rec.ModelName).
		Str("model_id", rec.ModelID).
		Msg("mutation rejected by remote, dropping")

	ackCtx := context.WithoutCancel(ctx)
	p.publisher.Publish(ackCtx, models.NewEvent(models.EventOutboxMutationFailed, models.MutationEventPayload{
		Record: rec,
		Error:  cause.Error(),
	}))
	p.remove(ackCtx, rec)
}

// remove deletes rec from the outbox with a few quick retries. When removal
// keeps failing the record is released and will be sent again.
func (p *MutationProcessor) remove(ctx context.Context, rec models.ChangeRecord) bool {
	backoff := retry.WithMaxRetries(removeAttempts-1, retry.NewConstant(removeBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := p.outbox.Remove(ctx, rec); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		p.logger.Err(err).Str("func", "MutationProcessor.remove").Str("mutation_id", rec.ID).
			Msg("error removing mutation, it will be sent again")
		p.outbox.Release(rec)
		return false
	}
	return true
}

// resolveConflict asks the conflict handler what to do and reports the item
// to resend, if any. A record is resent at most once.
func (p *MutationProcessor) resolveConflict(
	ctx context.Context,
	rec models.ChangeRecord,
	remote *models.ModelWithMetadata,
	sentVersion int64,
	attempt int,
) (models.Model, bool) {
	log := p.logger.With().
		Str("mutation_id", rec.ID).
		Str("model_name", rec.ModelName).
		Str("model_id", rec.ModelID).
		Int64("version", sentVersion).
		Int("attempt", attempt).
		Logger()

	if attempt > 1 {
		log.Warn().Str("func", "MutationProcessor.resolveConflict").Msg("conflict persists after retry, abandoning local change")
		p.abandon(ctx, rec, remote, "abandoned")
		return models.Model{}, false
	}

	decision, err := p.conflicts.Resolve(ctx, ConflictData{Record: rec, Remote: remote, Attempt: attempt})
	if err != nil {
		log.Err(err).Str("func", "MutationProcessor.resolveConflict").Msg("conflict handler failed, applying remote")
		decision = ConflictDecision{Resolution: ResolveApplyRemote}
	}
	log.Info().Str("func", "MutationProcessor.resolveConflict").Str("resolution", decision.Resolution.String()).Msg("version conflict")

	if decision.Resolution == ResolveApplyRemote {
		p.abandon(ctx, rec, remote, decision.Resolution.String())
		return models.Model{}, false
	}

	p.publisher.Publish(ctx, models.NewEvent(models.EventConflictDetected, models.ConflictEventPayload{
		Record:     rec,
		Remote:     remote,
		Resolution: decision.Resolution.String(),
	}))

	if remote != nil {
		// the record itself is pending, so only the remote version is taken
		if _, err = p.merger.Merge(ctx, *remote); err != nil && !errors.Is(err, store.ErrVersionConflict) {
			log.Err(err).Str("func", "MutationProcessor.resolveConflict").Msg("error storing remote metadata")
			p.outbox.Release(rec)
			return models.Model{}, false
		}
	} else if md, err := p.metadata(ctx, rec.Identity()); err != nil || md == nil || md.Version <= sentVersion {
		log.Warn().Str("func", "MutationProcessor.resolveConflict").Msg("remote version unknown, cannot retry")
		p.abandon(ctx, rec, nil, "abandoned")
		return models.Model{}, false
	}

	if decision.Resolution == ResolveRetryWith {
		item := decision.Model
		item.Name, item.ID = rec.ModelName, rec.ModelID
		return item, true
	}
	return rec.Item, true
}

// abandon drops the local change, keeping remote state when it is known.
func (p *MutationProcessor) abandon(ctx context.Context, rec models.ChangeRecord, remote *models.ModelWithMetadata, resolution string) {
	ackCtx := context.WithoutCancel(ctx)

	if remote != nil {
		if _, err := p.merger.ForceMerge(ackCtx, *remote); err != nil && !errors.Is(err, store.ErrVersionConflict) {
			p.logger.Err(err).Str("func", "MutationProcessor.abandon").Str("mutation_id", rec.ID).
				Msg("error applying remote record")
		}
	}

	p.publisher.Publish(ackCtx, models.NewEvent(models.EventConflictDetected, models.ConflictEventPayload{
		Record:     rec,
		Remote:     remote,
		Resolution: resolution,
	}))
	if resolution != ResolveApplyRemote.String() {
		p.publisher.Publish(ackCtx, models.NewEvent(models.EventOutboxMutationFailed, models.MutationEventPayload{
			Record: rec,
			Error:  ErrConflictUnresolved.Error(),
		}))
	}
	p.remove(ackCtx, rec)
}
