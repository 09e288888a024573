package realtime

import (
	"encoding/json"
	"time"

	"github.com/gracechurch/church-backend/internal/notification"
)

type FrameType string

const (
	FrameConnected            FrameType = "connected"
	FrameInitialNotifications FrameType = "initial_notifications"
	FrameNotification         FrameType = "notification"
	FrameHeartbeat            FrameType = "heartbeat"
)

// Frame is one message on a live stream. Clients dedupe notifications by id.
type Frame struct {
	Type    FrameType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

type ConnectedPayload struct {
	ConnectionID string    `json:"connection_id"`
	UserID       string    `json:"user_id,omitempty"`
	Role         string    `json:"role"`
	Timestamp    time.Time `json:"timestamp"`
}

type HeartbeatPayload struct {
	Timestamp time.Time `json:"timestamp"`
}

// notificationFrame leaves out the recipient list; readers of a
// "specific" notification only learn that it is addressed to them.
func notificationFrame(n *notification.Notification) Frame {
	out := *n
	out.SpecificUserIDs = nil
	return Frame{Type: FrameNotification, Payload: out}
}

func (f Frame) encode() ([]byte, error) {
	return json.Marshal(f)
}
