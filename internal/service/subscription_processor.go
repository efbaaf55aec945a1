package service

import (
	"context"
	"errors"
	"time"

	"github.com/MKhiriev/go-sync-engine/internal/adapter"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/internal/store"
	"github.com/MKhiriev/go-sync-engine/models"
	"github.com/sethvargo/go-retry"
)

// SubscriptionProcessor applies live remote changes through the same
// version-gated merge as hydration. After a dropped connection it
// resubscribes with backoff and calls onReconnect to catch up on missed
// changes.
type SubscriptionProcessor struct {
	subscriber adapter.Subscriber
	merger     *Merger
	registry   *models.SchemaRegistry
	publisher  Publisher

	onReconnect func(ctx context.Context) error
	backoffBase time.Duration
	backoffMax  time.Duration

	logger *logger.Logger
}

func NewSubscriptionProcessor(
	subscriber adapter.Subscriber,
	merger *Merger,
	registry *models.SchemaRegistry,
	publisher Publisher,
	onReconnect func(ctx context.Context) error,
	backoffBase, backoffMax time.Duration,
	log *logger.Logger,
) *SubscriptionProcessor {
	if backoffBase <= 0 {
		backoffBase = time.Second
	}
	if backoffMax < backoffBase {
		backoffMax = backoffBase
	}

	return &SubscriptionProcessor{
		subscriber:  subscriber,
		merger:      merger,
		registry:    registry,
		publisher:   publisher,
		onReconnect: onReconnect,
		backoffBase: backoffBase,
		backoffMax:  backoffMax,
		logger:      log,
	}
}

// Run keeps a subscription open until ctx is done.
func (s *SubscriptionProcessor) Run(ctx context.Context) error {
	names := s.registry.Names()

	for connected := 0; ; connected++ {
		var (
			items <-chan models.ModelWithMetadata
			errs  <-chan error
		)
		backoff := retry.WithCappedDuration(s.backoffMax, retry.NewExponential(s.backoffBase))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			var err error
			items, errs, err = s.subscriber.Subscribe(ctx, names)
			if err != nil {
				s.logger.Warn().Err(err).Str("func", "SubscriptionProcessor.Run").Msg("subscribe failed, retrying")
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil {
			return nil
		}

		s.logger.Info().Str("func", "SubscriptionProcessor.Run").Strs("models", names).Msg("subscribed to remote changes")
		if connected > 0 && s.onReconnect != nil {
			if err = s.onReconnect(ctx); err != nil && !errors.Is(err, ErrHydrationInProgress) {
				s.logger.Err(err).Str("func", "SubscriptionProcessor.Run").Msg("catch-up hydration failed")
			}
		}

		s.consume(ctx, items, errs)
		if ctx.Err() != nil {
			return nil
		}
		s.logger.Warn().Str("func", "SubscriptionProcessor.Run").Msg("subscription closed, reconnecting")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.backoffBase):
		}
	}
}

func (s *SubscriptionProcessor) consume(ctx context.Context, items <-chan models.ModelWithMetadata, errs <-chan error) {
	for items != nil || errs != nil {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-items:
			if !ok {
				items = nil
				continue
			}
			s.apply(ctx, item)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.logger.Err(err).Str("func", "SubscriptionProcessor.consume").Msg("subscription error")
		}
	}
}

func (s *SubscriptionProcessor) apply(ctx context.Context, item models.ModelWithMetadata) {
	res, err := s.merger.Merge(ctx, item)
	if err != nil && !errors.Is(err, store.ErrVersionConflict) {
		s.logger.Err(err).Str("func", "SubscriptionProcessor.apply").
			Str("model_name", item.Model.Name).
			Str("model_id", item.Model.ID).
			Int64("version", item.Metadata.Version).
			Msg("error applying remote change")
		return
	}

	s.publisher.Publish(ctx, models.NewEvent(models.EventSubscriptionDataProcessed, models.SubscriptionDataPayload{
		Item:    item,
		Applied: err == nil && res.Decision != store.MergeSkip,
	}))
}
