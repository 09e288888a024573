package realtime

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

// Stream is the transport under a connection: one call writes one frame.
type Stream interface {
	WriteFrame(ctx context.Context, data []byte) error
	Close() error
}

type sseStream struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

// NewSSEStream writes frames as text/event-stream "data:" events. The caller
// sets the response headers before the first write.
func NewSSEStream(w http.ResponseWriter) Stream {
	return &sseStream{w: w, rc: http.NewResponseController(w)}
}

func (s *sseStream) WriteFrame(ctx context.Context, data []byte) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.rc.SetWriteDeadline(deadline)
		defer s.rc.SetWriteDeadline(time.Time{})
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	return s.rc.Flush()
}

// Close is a no-op; the response ends when the handler returns.
func (s *sseStream) Close() error {
	return nil
}

type wsStream struct {
	conn *websocket.Conn
}

func NewWebSocketStream(conn *websocket.Conn) Stream {
	return &wsStream{conn: conn}
}

func (s *wsStream) WriteFrame(ctx context.Context, data []byte) error {
	return s.conn.Write(ctx, websocket.MessageText, data)
}

func (s *wsStream) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "")
}
