package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gracechurch/church-backend/internal/notification"
)

const RelayChannel = "notifications:broadcast"

type relayEnvelope struct {
	Origin       string                     `json:"origin"`
	Notification *notification.Notification `json:"notification"`
}

// Relay carries broadcasts between instances over Redis pub/sub. Each
// instance still delivers only to its own Hub.
type Relay struct {
	rdb        *redis.Client
	hub        *Hub
	instanceID string
	logger     *zap.Logger
}

func NewRelay(rdb *redis.Client, hub *Hub, logger *zap.Logger) *Relay {
	return &Relay{
		rdb:        rdb,
		hub:        hub,
		instanceID: uuid.NewString(),
		logger:     logger.Named("relay"),
	}
}

func (r *Relay) Publish(ctx context.Context, n *notification.Notification) error {
	data, err := json.Marshal(relayEnvelope{Origin: r.instanceID, Notification: n})
	if err != nil {
		return fmt.Errorf("marshal relay envelope: %w", err)
	}
	if err := r.rdb.Publish(ctx, RelayChannel, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", RelayChannel, err)
	}
	return nil
}

// Run delivers notifications published by other instances until ctx ends.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, RelayChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", RelayChannel, err)
	}
	r.logger.Info("relay subscribed", zap.String("channel", RelayChannel), zap.String("instance_id", r.instanceID))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle(msg.Payload)
		}
	}
}

func (r *Relay) handle(payload string) {
	var env relayEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil || env.Notification == nil {
		r.logger.Warn("dropping malformed relay message", zap.Error(err))
		return
	}
	// the origin already delivered locally
	if env.Origin == r.instanceID {
		return
	}
	r.hub.Deliver(env.Notification)
}

// Broadcaster delivers to the local Hub and, when a Relay is set, to the
// other instances.
type Broadcaster struct {
	hub     *Hub
	relay   *Relay
	timeout time.Duration
	logger  *zap.Logger
}

func NewBroadcaster(hub *Hub, relay *Relay, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{hub: hub, relay: relay, timeout: 2 * time.Second, logger: logger.Named("broadcaster")}
}

func (b *Broadcaster) Deliver(n *notification.Notification) {
	b.hub.Deliver(n)
	if b.relay == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	if err := b.relay.Publish(ctx, n); err != nil {
		b.logger.Warn("relay publish failed", zap.String("notification_id", n.ID), zap.Error(err))
	}
}
