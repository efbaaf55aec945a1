package workers

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"golang.org/x/sync/errgroup"
)

// Workers runs a named set of workers. A failing worker does not stop the
// others.
type Workers struct {
	names   []string
	workers []Worker

	logger *logger.Logger
}

func New(log *logger.Logger) *Workers {
	return &Workers{logger: log}
}

// Add registers w under name. Workers added after Run has started are not
// run.
func (w *Workers) Add(name string, worker Worker) *Workers {
	w.names = append(w.names, name)
	w.workers = append(w.workers, worker)
	return w
}

// Run starts every worker and blocks until all have returned. The returned
// error is the first worker failure.
func (w *Workers) Run(ctx context.Context) error {
	var g errgroup.Group

	for i, worker := range w.workers {
		name := w.names[i]
		g.Go(func() error {
			w.logger.Debug().Str("func", "Workers.Run").Str("worker", name).Msg("worker started")
			err := worker.Run(ctx)
			if err != nil {
				w.logger.Err(err).Str("func", "Workers.Run").Str("worker", name).Msg("worker stopped with error")
				return fmt.Errorf("worker %s: %w", name, err)
			}
			w.logger.Debug().Str("func", "Workers.Run").Str("worker", name).Msg("worker stopped")
			return nil
		})
	}

	return g.Wait()
}
