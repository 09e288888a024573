package push

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"

	"github.com/gracechurch/church-backend/internal/notification"
)

// FCMClient is the subset of *messaging.Client used for delivery.
type FCMClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMSender delivers to subscriptions whose endpoint is an FCM registration token.
type FCMSender struct {
	client FCMClient
}

func NewFCMSender(client FCMClient) *FCMSender {
	return &FCMSender{client: client}
}

func (f *FCMSender) Send(ctx context.Context, sub *notification.PushSubscription, p Payload) error {
	if f.client == nil {
		return ErrNotConfigured
	}

	androidPriority := "normal"
	if p.Priority == string(notification.PriorityHigh) || p.Priority == string(notification.PriorityUrgent) {
		androidPriority = "high"
	}

	msg := &messaging.Message{
		Token: sub.Endpoint,
		Notification: &messaging.Notification{
			Title: p.Title,
			Body:  p.Body,
		},
		Data: map[string]string{
			"id":       p.NotificationID,
			"type":     p.Type,
			"priority": p.Priority,
			"url":      p.URL,
		},
		Android: &messaging.AndroidConfig{
			Priority:    androidPriority,
			CollapseKey: p.Tag,
			Notification: &messaging.AndroidNotification{
				ChannelID:    "church_notifications",
				DefaultSound: true,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
		Webpush: &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Title: p.Title,
				Body:  p.Body,
				Icon:  "/icon-192x192.png",
				Tag:   p.Tag,
			},
		},
	}
	if p.URL != "" {
		msg.Webpush.FCMOptions = &messaging.WebpushFCMOptions{Link: p.URL}
	}

	if _, err := f.client.Send(ctx, msg); err != nil {
		if messaging.IsUnregistered(err) {
			return ErrGone
		}
		return fmt.Errorf("send fcm message: %w", err)
	}
	return nil
}
