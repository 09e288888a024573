package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Broadcaster delivers a freshly stored notification to live connections.
type Broadcaster interface {
	Deliver(n *Notification)
}

// PushDeliverer fans a stored notification out to push subscriptions.
type PushDeliverer interface {
	DeliverNotification(ctx context.Context, n *Notification)
}

// Notifier is the single entry point for raising a notification:
// persist, broadcast to live connections, then push in the background.
type Notifier struct {
	store       *Store
	broadcaster Broadcaster
	pusher      PushDeliverer
	dispatcher  *Dispatcher
	logger      *zap.Logger
}

func NewNotifier(store *Store, broadcaster Broadcaster, pusher PushDeliverer, dispatcher *Dispatcher, logger *zap.Logger) *Notifier {
	return &Notifier{
		store:       store,
		broadcaster: broadcaster,
		pusher:      pusher,
		dispatcher:  dispatcher,
		logger:      logger.Named("notifier"),
	}
}

// Notify returns nil when the notification could not be stored; nothing is
// broadcast or pushed in that case.
func (s *Notifier) Notify(ctx context.Context, in CreateInput) *Notification {
	n := s.store.Create(ctx, in)
	if n == nil {
		return nil
	}

	if s.broadcaster != nil {
		s.broadcaster.Deliver(n)
	}
	if s.pusher != nil {
		s.dispatcher.Go("push:"+n.ID, func(ctx context.Context) error {
			s.pusher.DeliverNotification(ctx, n)
			return nil
		})
	}

	s.logger.Info("notification raised",
		zap.String("id", n.ID),
		zap.String("type", string(n.Type)),
		zap.String("audience", string(n.TargetAudience)),
	)
	return n
}

// NotifyAsync is for callers that must not wait on notification delivery.
func (s *Notifier) NotifyAsync(in CreateInput) {
	s.dispatcher.Go("notify:"+string(in.Type), func(ctx context.Context) error {
		if s.Notify(ctx, in) == nil {
			return fmt.Errorf("notification %q not stored", in.Title)
		}
		return nil
	})
}
