// Package async provides a small bounded-concurrency dispatcher for
// fire-and-forget side effects (achievement evaluation, notifications,
// analysis hand-off). Tasks run on background goroutines so a slow
// collaborator can never stall the request path; failures are logged with
// structured context and never propagated or retried here — redelivery, when
// wanted, belongs to the external transport.
package async

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// defaultTaskTimeout bounds a single background task.
const defaultTaskTimeout = 30 * time.Second

// Dispatcher runs named tasks in the background with a concurrency cap.
// It is safe for concurrent use. A zero-value Dispatcher is not usable;
// construct with NewDispatcher.
type Dispatcher struct {
	sem     *semaphore.Weighted
	wg      sync.WaitGroup
	timeout time.Duration

	mu     sync.Mutex
	closed bool
}

// NewDispatcher returns a dispatcher permitting at most workers concurrent
// tasks. Values <= 0 are coerced to 1.
func NewDispatcher(workers int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{
		sem:     semaphore.NewWeighted(int64(workers)),
		timeout: defaultTaskTimeout,
	}
}

// Go schedules fn to run in the background under the concurrency cap.
//
// The task receives a fresh context detached from the caller's request (the
// request may complete long before the task does) but bounded by the task
// timeout. Panics are recovered and logged; errors are logged at error level
// with the task name. Tasks submitted after Close are dropped with a warning.
func (d *Dispatcher) Go(name string, fn func(ctx context.Context) error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		log.Warn().Str("task", name).Msg("dispatcher closed; task dropped")
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.sem.Acquire(ctx, 1); err != nil {
			log.Error().Err(err).Str("task", name).Msg("background task never started")
			return
		}
		defer d.sem.Release(1)

		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Str("task", name).Msg("background task panicked")
			}
		}()

		start := time.Now()
		if err := fn(ctx); err != nil {
			log.Error().Err(err).Str("task", name).Dur("elapsed", time.Since(start)).Msg("background task failed")
			return
		}
		log.Debug().Str("task", name).Dur("elapsed", time.Since(start)).Msg("background task done")
	}()
}

// Close stops accepting new tasks and blocks until in-flight tasks finish.
// Used during graceful shutdown so pending achievement evaluations and
// notifications are not cut off mid-write.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}
