package notification

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RetentionJob periodically prunes notifications older than the configured
// number of days.
type RetentionJob struct {
	mu       sync.Mutex
	store    *Store
	days     int
	interval time.Duration
	logger   *zap.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewRetentionJob(store *Store, days int, interval time.Duration, logger *zap.Logger) *RetentionJob {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &RetentionJob{
		store:    store,
		days:     days,
		interval: interval,
		logger:   logger.Named("retention"),
	}
}

// Start prunes once before returning, then every interval. A zero retention
// disables the job. Calling Start on a running job does nothing.
func (j *RetentionJob) Start(ctx context.Context) {
	if j.days <= 0 {
		j.logger.Info("notification retention disabled")
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancel != nil {
		return
	}

	j.tick(ctx)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	j.cancel, j.done = cancel, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				j.tick(ctx)
			}
		}
	}()
}

// Stop cancels the ticker loop and waits for it to exit. The job may be
// started again afterwards.
func (j *RetentionJob) Stop() {
	j.mu.Lock()
	cancel, done := j.cancel, j.done
	j.cancel, j.done = nil, nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (j *RetentionJob) tick(ctx context.Context) {
	if n := j.store.DeleteOlderThan(ctx, j.days); n > 0 {
		j.logger.Info("pruned notifications", zap.Int64("deleted", n), zap.Int("days", j.days))
	}
}
