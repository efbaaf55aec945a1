// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spyHydrator counts Hydrate calls.
type spyHydrator struct {
	calls atomic.Int64
	err   error
}

func (s *spyHydrator) Hydrate(_ context.Context) error {
	s.calls.Add(1)
	return s.err
}

// ── NewHydrationJob ─────────────────────────────────────────────────────────

func TestNewHydrationJob_ReturnsInterface(t *testing.T) {
	job := NewHydrationJob(&spyHydrator{}, logger.Nop())
	require.NotNil(t, job)

	var _ HydrationJob = job
}

// ── Start / Stop ─────────────────────────────────────────────────────────────

func TestHydrationJob_Start_CallsHydrate(t *testing.T) {
	spy := &spyHydrator{}
	job := NewHydrationJob(spy, logger.Nop())

	// 10ms interval: about 5 ticks in 55ms
	job.Start(context.Background(), 10*time.Millisecond)
	time.Sleep(55 * time.Millisecond)
	job.Stop()

	got := spy.calls.Load()
	assert.GreaterOrEqual(t, got, int64(3), "Hydrate should run several times, ran: %d", got)
}

func TestHydrationJob_Stop_StopsGoroutine(t *testing.T) {
	spy := &spyHydrator{}
	job := NewHydrationJob(spy, logger.Nop())

	job.Start(context.Background(), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	job.Stop()

	callsAfterStop := spy.calls.Load()
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, callsAfterStop, spy.calls.Load(), "no calls after Stop")
}

func TestHydrationJob_Stop_Twice(t *testing.T) {
	job := NewHydrationJob(&spyHydrator{}, logger.Nop())

	// Stop without Start must not panic
	assert.NotPanics(t, func() { job.Stop() })

	job.Start(context.Background(), 10*time.Millisecond)
	job.Stop()
	assert.NotPanics(t, func() { job.Stop() })
}

func TestHydrationJob_Start_DefaultInterval(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Second} {
		spy := &spyHydrator{}
		job := NewHydrationJob(spy, logger.Nop())

		// interval <= 0 falls back to the default, so no calls within 20ms
		job.Start(context.Background(), interval)
		time.Sleep(20 * time.Millisecond)
		job.Stop()

		assert.Equal(t, int64(0), spy.calls.Load())
	}
}

func TestHydrationJob_Restart_StopsPrevious(t *testing.T) {
	spy := &spyHydrator{}
	job := NewHydrationJob(spy, logger.Nop())
	ctx := context.Background()

	job.Start(ctx, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	callsBefore := spy.calls.Load()
	assert.Greater(t, callsBefore, int64(0))

	// restarting the same job stops the previous run first
	job.Start(ctx, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	job.Stop()

	assert.Greater(t, spy.calls.Load(), callsBefore, "the second Start keeps calling Hydrate")
}

func TestHydrationJob_ContextCancel_StopsJob(t *testing.T) {
	job := NewHydrationJob(&spyHydrator{}, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	job.Start(ctx, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		job.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop hung after the context was cancelled")
	}
}

func TestHydrationJob_HydrateError_DoesNotStopJob(t *testing.T) {
	for _, err := range []error{assert.AnError, ErrHydrationInProgress} {
		spy := &spyHydrator{err: err}
		job := NewHydrationJob(spy, logger.Nop())

		job.Start(context.Background(), 10*time.Millisecond)
		time.Sleep(55 * time.Millisecond)
		job.Stop()

		got := spy.calls.Load()
		assert.GreaterOrEqual(t, got, int64(3), "Hydrate keeps running despite errors: %d", got)
	}
}
