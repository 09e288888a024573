package push

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/gracechurch/church-backend/internal/notification"
)

// WebPushSender delivers through the browser push services using VAPID.
type WebPushSender struct {
	publicKey  string
	privateKey string
	subject    string
	client     webpush.HTTPClient
	ttl        int
}

func NewWebPushSender(publicKey, privateKey, subject string, client webpush.HTTPClient) *WebPushSender {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &WebPushSender{
		publicKey:  publicKey,
		privateKey: privateKey,
		subject:    subject,
		client:     client,
		ttl:        24 * 60 * 60,
	}
}

func urgencyFor(priority string) webpush.Urgency {
	switch notification.Priority(priority) {
	case notification.PriorityUrgent, notification.PriorityHigh:
		return webpush.UrgencyHigh
	case notification.PriorityLow:
		return webpush.UrgencyLow
	default:
		return webpush.UrgencyNormal
	}
}

func (w *WebPushSender) Send(ctx context.Context, sub *notification.PushSubscription, p Payload) error {
	if w.publicKey == "" || w.privateKey == "" {
		return ErrNotConfigured
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      w.client,
		Subscriber:      w.subject,
		VAPIDPublicKey:  w.publicKey,
		VAPIDPrivateKey: w.privateKey,
		TTL:             w.ttl,
		Urgency:         urgencyFor(p.Priority),
	})
	if err != nil {
		return fmt.Errorf("send web push: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrGone
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}
