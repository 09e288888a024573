package realtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/gracechurch/church-backend/internal/notification"
)

var ErrConnClosed = errors.New("connection closed")

type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
	StateTimedOut
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateTimedOut:
		return "timed_out"
	case StateErrored:
		return "errored"
	}
	return "unknown"
}

func (s State) terminal() bool {
	return s >= StateClosed
}

// Conn is one live stream. Writes are serialised by mu; every terminal
// transition runs the same cleanup exactly once.
type Conn struct {
	id     string
	userID string
	role   string

	stream       Stream
	writeTimeout time.Duration

	mu       sync.Mutex
	lastSeen time.Time

	state     atomic.Int32
	closeOnce sync.Once
	done      chan struct{}
	onClose   func(*Conn)
	logger    *zap.Logger
}

func newConn(id, userID, role string, stream Stream, writeTimeout time.Duration, logger *zap.Logger) *Conn {
	return &Conn{
		id:           id,
		userID:       userID,
		role:         role,
		stream:       stream,
		writeTimeout: writeTimeout,
		done:         make(chan struct{}),
		logger:       logger.With(zap.String("connection_id", id), zap.String("user_id", userID)),
	}
}

func (c *Conn) State() State {
	return State(c.state.Load())
}

func (c *Conn) send(f Frame) error {
	data, err := f.encode()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State().terminal() {
		return ErrConnClosed
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.writeTimeout)
	defer cancel()
	return c.stream.WriteFrame(ctx, data)
}

// deliver writes a notification and advances the high-water mark.
func (c *Conn) deliver(n *notification.Notification) error {
	if err := c.send(notificationFrame(n)); err != nil {
		return err
	}
	c.advance(n.CreatedAt)
	return nil
}

func (c *Conn) advance(t time.Time) {
	c.mu.Lock()
	if t.After(c.lastSeen) {
		c.lastSeen = t
	}
	c.mu.Unlock()
}

func (c *Conn) highWaterMark() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

// Close ends the connection. Repeated calls are no-ops.
func (c *Conn) Close() {
	c.closeWith(StateClosed)
}

func (c *Conn) closeWith(state State) {
	c.closeOnce.Do(func() {
		c.state.Store(int32(state))
		close(c.done)
		if err := c.stream.Close(); err != nil {
			c.logger.Debug("stream close", zap.Error(err))
		}
		// waits out any write in flight before the transport goes away
		c.mu.Lock()
		c.stream = nil
		c.mu.Unlock()
		if c.onClose != nil {
			c.onClose(c)
		}
		c.logger.Info("connection ended", zap.String("state", state.String()))
	})
}
