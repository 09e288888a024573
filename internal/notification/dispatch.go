package notification

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Dispatcher runs fire-and-forget tasks with bounded concurrency. Tasks run
// on a detached context so they outlive the request that queued them.
type Dispatcher struct {
	sem     *semaphore.Weighted
	wg      sync.WaitGroup
	timeout time.Duration
	logger  *zap.Logger
}

func NewDispatcher(limit int64, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if limit <= 0 {
		limit = 16
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{
		sem:     semaphore.NewWeighted(limit),
		timeout: timeout,
		logger:  logger.Named("dispatcher"),
	}
}

// Go queues fn and returns immediately.
func (d *Dispatcher) Go(name string, fn func(ctx context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.sem.Acquire(ctx, 1); err != nil {
			d.logger.Warn("task dropped waiting for slot", zap.String("task", name), zap.Error(err))
			return
		}
		defer d.sem.Release(1)

		if err := d.run(ctx, fn); err != nil {
			d.logger.Warn("task failed", zap.String("task", name), zap.Error(err))
		}
	}()
}

func (d *Dispatcher) run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return fn(ctx)
}

// Wait blocks until every queued task has finished or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
