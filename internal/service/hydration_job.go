package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MKhiriev/go-sync-engine/internal/config"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
)

type hydrationJob struct {
	hydrator Hydrator

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *logger.Logger
}

// NewHydrationJob creates a job that calls hydrator.Hydrate on a ticker. The
// job is idle until Start is called.
func NewHydrationJob(hydrator Hydrator, log *logger.Logger) HydrationJob {
	return &hydrationJob{hydrator: hydrator, logger: log}
}

// Start implements HydrationJob. It stops any previously running job, then
// launches a background goroutine that hydrates every interval. If interval
// is zero or negative it defaults to [config.DefaultHydrationInterval]. The
// goroutine exits when ctx is cancelled or Stop is called.
func (j *hydrationJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = config.DefaultHydrationInterval
	}

	j.Stop()

	j.mu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.wg.Add(1)
	j.mu.Unlock()

	go func() {
		defer j.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-jobCtx.Done():
				return
			case <-t.C:
				err := j.hydrator.Hydrate(jobCtx)
				if err != nil && !errors.Is(err, ErrHydrationInProgress) && jobCtx.Err() == nil {
					j.logger.Err(err).Str("func", "hydrationJob.Start").Msg("periodic hydration failed")
				}
			}
		}
	}()
}

// Stop implements HydrationJob. It cancels the background goroutine's
// context and blocks until the goroutine has fully exited. Safe to call when
// the job is not running.
func (j *hydrationJob) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	j.wg.Wait()
}
