package realtime

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gracechurch/church-backend/middleware"
)

type Handler struct {
	hub            *Hub
	originPatterns []string
	logger         *zap.Logger
}

// NewHandler accepts WebSocket upgrades from the given origin patterns; "*"
// disables the origin check.
func NewHandler(hub *Hub, originPatterns []string, logger *zap.Logger) *Handler {
	return &Handler{hub: hub, originPatterns: originPatterns, logger: logger.Named("realtime_handler")}
}

func identity(c *gin.Context) middleware.AccessContext {
	ac, ok := middleware.GetAccessContext(c)
	if !ok {
		return middleware.VisitorContext()
	}
	return ac
}

// Stream godoc
// @Summary Live notification stream (SSE)
// @Tags Notifications
// @Produce text/event-stream
// @Param connectionId query string false "Client supplied connection id"
// @Param token query string false "JWT when headers cannot be set"
// @Success 200
// @Router /api/v1/notifications/stream [get]
func (h *Handler) Stream(c *gin.Context) {
	ac := identity(c)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)

	state := h.hub.Serve(c.Request.Context(), NewSSEStream(c.Writer), c.Query("connectionId"), ac.UserID, ac.RoleName)
	h.logger.Debug("sse stream finished", zap.String("state", state.String()))
}

// GET /api/v1/notifications/ws
func (h *Handler) WebSocket(c *gin.Context) {
	ac := identity(c)

	opts := &websocket.AcceptOptions{OriginPatterns: h.originPatterns}
	for _, p := range h.originPatterns {
		if p == "*" {
			opts = &websocket.AcceptOptions{InsecureSkipVerify: true}
			break
		}
	}
	conn, err := websocket.Accept(c.Writer, c.Request, opts)
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}

	// inbound messages are ignored; CloseRead cancels ctx when the peer goes away
	ctx := conn.CloseRead(c.Request.Context())
	state := h.hub.Serve(ctx, NewWebSocketStream(conn), c.Query("connectionId"), ac.UserID, ac.RoleName)
	h.logger.Debug("websocket finished", zap.String("state", state.String()))
}
