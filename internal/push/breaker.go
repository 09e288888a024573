package push

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/gracechurch/church-backend/internal/notification"
)

// breakerSender fails fast while a provider is unhealthy. A "gone"
// subscription is a healthy provider answer and does not count as a failure.
type breakerSender struct {
	next Sender
	cb   *gobreaker.CircuitBreaker
}

func withBreaker(name string, next Sender, logger *zap.Logger) Sender {
	return &breakerSender{
		next: next,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 10
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, ErrGone) || errors.Is(err, ErrNotConfigured) || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("push circuit breaker state changed",
					zap.String("transport", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}),
	}
}

func (b *breakerSender) Send(ctx context.Context, sub *notification.PushSubscription, p Payload) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Send(ctx, sub, p)
	})
	return err
}
