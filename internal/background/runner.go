// Package background runs detached tasks: post-response effects that must
// never block or fail the request that spawned them.
package background

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultTaskTimeout = 5 * time.Second

// Runner executes submitted tasks on their own goroutines. Task failures
// and panics are logged under the task name and go no further.
type Runner struct {
	log     zerolog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewRunner(log zerolog.Logger, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = defaultTaskTimeout
	}
	return &Runner{log: log, timeout: timeout}
}

// Submit schedules fn and returns immediately. The task gets a fresh
// context bounded by the runner timeout, deliberately not derived from any
// request context.
func (r *Runner) Submit(name string, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				r.log.Error().Interface("panic", rec).Str("task", name).Msg("background task panicked")
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			r.log.Warn().Err(err).Str("task", name).Msg("background task failed")
		}
	}()
}

// Wait blocks until every submitted task finished. Used on shutdown so
// in-flight cache maintenance drains before the process exits.
func (r *Runner) Wait() {
	r.wg.Wait()
}
