// Package workers runs the engine's long-lived background loops side by
// side and waits for all of them to stop.
package workers

import "context"

// Worker is a background loop. Run blocks until ctx is done or the worker
// gives up, and returns the reason it stopped, or nil on a clean stop.
//
// Example implementation:
//
//	type Ticker struct{}
//
//	func (w *Ticker) Run(ctx context.Context) error {
//	    <-ctx.Done()
//	    return nil
//	}
type Worker interface {
	Run(ctx context.Context) error
}

// Func adapts a function to [Worker].
type Func func(ctx context.Context) error

func (f Func) Run(ctx context.Context) error {
	return f(ctx)
}
