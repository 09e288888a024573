package notification

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestDispatcherRunsAndWaits(t *testing.T) {
	d := NewDispatcher(2, time.Second, zap.NewNop())
	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		d.Go("count", func(ctx context.Context) error {
			ran.Add(1)
			return nil
		})
	}
	if err := d.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if got := ran.Load(); got != 10 {
		t.Errorf("ran = %d, want 10", got)
	}
}

func TestDispatcherBoundsConcurrency(t *testing.T) {
	d := NewDispatcher(2, time.Second, zap.NewNop())
	var active, peak atomic.Int32
	for i := 0; i < 8; i++ {
		d.Go("bounded", func(ctx context.Context) error {
			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			active.Add(-1)
			return nil
		})
	}
	_ = d.Wait(context.Background())
	if p := peak.Load(); p > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", p)
	}
}

func TestDispatcherRecoversPanicsAndErrors(t *testing.T) {
	d := NewDispatcher(1, time.Second, zap.NewNop())
	d.Go("panics", func(ctx context.Context) error { panic("boom") })
	d.Go("fails", func(ctx context.Context) error { return errors.New("nope") })

	var after atomic.Bool
	d.Go("after", func(ctx context.Context) error {
		after.Store(true)
		return nil
	})
	if err := d.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if !after.Load() {
		t.Error("dispatcher stopped after a panicking task")
	}
}

func TestDispatcherWaitHonoursContext(t *testing.T) {
	d := NewDispatcher(1, time.Second, zap.NewNop())
	release := make(chan struct{})
	d.Go("blocked", func(ctx context.Context) error {
		<-release
		return nil
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := d.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want deadline exceeded", err)
	}
	close(release)
	_ = d.Wait(context.Background())
}
