package push

import (
	"context"
	"errors"

	"github.com/gracechurch/church-backend/internal/notification"
)

var (
	// ErrGone means the provider reports the subscription no longer exists.
	ErrGone = errors.New("push subscription gone")
	// ErrNotConfigured means the transport has no credentials.
	ErrNotConfigured = errors.New("push transport not configured")
)

// Sender delivers one payload to one subscription.
type Sender interface {
	Send(ctx context.Context, sub *notification.PushSubscription, p Payload) error
}
