package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gracechurch/church-backend/internal/notification"
)

// Source supplies the notifications a reader may see.
type Source interface {
	ListForUser(ctx context.Context, userID, role string, limit int, includeRead bool) []notification.NotificationView
}

type Options struct {
	HeartbeatInterval time.Duration
	PollInterval      time.Duration
	MaxAge            time.Duration
	WriteTimeout      time.Duration
	InitialBatch      int
	PollPageSize      int
	// DisablePolling turns the per-connection poller off; live delivery
	// then depends on Deliver alone.
	DisablePolling bool
}

func DefaultOptions() Options {
	return Options{
		HeartbeatInterval: 30 * time.Second,
		PollInterval:      5 * time.Second,
		MaxAge:            290 * time.Second,
		WriteTimeout:      10 * time.Second,
		InitialBatch:      20,
		PollPageSize:      10,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = d.HeartbeatInterval
	}
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if o.MaxAge <= 0 {
		o.MaxAge = d.MaxAge
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = d.WriteTimeout
	}
	if o.InitialBatch <= 0 {
		o.InitialBatch = d.InitialBatch
	}
	if o.PollPageSize <= 0 {
		o.PollPageSize = d.PollPageSize
	}
	return o
}

// deliverFanout bounds concurrent writes during one broadcast.
const deliverFanout = 64

// Hub is the per-process registry of live connections.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]*Conn
	source Source
	opts   Options
	now    func() time.Time
	logger *zap.Logger
}

func NewHub(source Source, opts Options, logger *zap.Logger) *Hub {
	return &Hub{
		conns:  make(map[string]*Conn),
		source: source,
		opts:   opts.withDefaults(),
		now:    time.Now,
		logger: logger.Named("realtime"),
	}
}

// Register adds c, closing any connection already registered under its id.
func (h *Hub) Register(c *Conn) {
	c.onClose = h.Unregister

	h.mu.Lock()
	old := h.conns[c.id]
	h.conns[c.id] = c
	h.mu.Unlock()

	if old != nil && old != c {
		h.logger.Info("replacing connection", zap.String("connection_id", c.id))
		old.Close()
	}
}

// Unregister removes c if it is still the registered connection for its id.
func (h *Hub) Unregister(c *Conn) {
	h.mu.Lock()
	if cur, ok := h.conns[c.id]; ok && cur == c {
		delete(h.conns, c.id)
	}
	h.mu.Unlock()
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) snapshot() []*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		out = append(out, c)
	}
	return out
}

// Deliver writes n to every registered connection allowed to see it.
// Connections whose write fails are removed after the pass.
func (h *Hub) Deliver(n *notification.Notification) {
	now := h.now()
	var (
		mu   sync.Mutex
		dead []*Conn
		sent int
		g    errgroup.Group
	)
	// a stalled client costs at most one write timeout, not one per connection
	g.SetLimit(deliverFanout)
	for _, c := range h.snapshot() {
		if !notification.CanSee(n, c.userID, c.role, now) {
			continue
		}
		g.Go(func() error {
			err := c.deliver(n)
			mu.Lock()
			if err != nil {
				dead = append(dead, c)
			} else {
				sent++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	h.sweep(dead)
	h.logger.Debug("notification broadcast",
		zap.String("notification_id", n.ID),
		zap.Int("delivered", sent),
		zap.Int("dead", len(dead)),
	)
}

func (h *Hub) sweep(dead []*Conn) {
	for _, c := range dead {
		c.closeWith(StateErrored)
	}
}

// CloseAll ends every connection, for shutdown.
func (h *Hub) CloseAll() {
	conns := h.snapshot()
	for _, c := range conns {
		c.Close()
	}
	h.logger.Info("closed live connections", zap.Int("count", len(conns)))
}

// Serve runs one connection until it ends and returns its terminal state.
// The initial batch is written before the connection becomes visible to Deliver.
func (h *Hub) Serve(ctx context.Context, stream Stream, connID, userID, role string) State {
	if connID == "" {
		connID = uuid.NewString()
	}
	c := newConn(connID, userID, role, stream, h.opts.WriteTimeout, h.logger)
	opened := h.now()

	err := c.send(Frame{Type: FrameConnected, Payload: ConnectedPayload{
		ConnectionID: connID,
		UserID:       userID,
		Role:         role,
		Timestamp:    opened,
	}})
	if err == nil {
		initial := h.source.ListForUser(ctx, userID, role, h.opts.InitialBatch, true)
		err = c.send(Frame{Type: FrameInitialNotifications, Payload: initial})
		c.advance(opened)
		for _, v := range initial {
			c.advance(v.CreatedAt)
		}
	}
	if err != nil {
		c.logger.Debug("connection failed during setup", zap.Error(err))
		c.closeWith(StateErrored)
		return c.State()
	}

	c.state.Store(int32(StateOpen))
	h.Register(c)
	c.logger.Info("connection opened", zap.String("role", role), zap.Int("connections", h.Count()))

	h.serve(ctx, c)
	return c.State()
}

// serve owns the connection's timers; all of them stop on every exit path.
func (h *Hub) serve(ctx context.Context, c *Conn) {
	heartbeat := time.NewTicker(h.opts.HeartbeatInterval)
	defer heartbeat.Stop()
	timeout := time.NewTimer(h.opts.MaxAge)
	defer timeout.Stop()

	var pollC <-chan time.Time
	if !h.opts.DisablePolling {
		poll := time.NewTicker(h.opts.PollInterval)
		defer poll.Stop()
		pollC = poll.C
	}

	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			c.closeWith(StateClosed)
			return
		case <-timeout.C:
			c.closeWith(StateTimedOut)
			return
		case <-heartbeat.C:
			if err := c.send(Frame{Type: FrameHeartbeat, Payload: HeartbeatPayload{Timestamp: h.now()}}); err != nil {
				c.logger.Debug("heartbeat failed", zap.Error(err))
				c.closeWith(StateErrored)
				return
			}
		case <-pollC:
			if err := h.poll(ctx, c); err != nil {
				c.logger.Debug("poll write failed", zap.Error(err))
				c.closeWith(StateErrored)
				return
			}
		}
	}
}
