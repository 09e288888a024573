package push

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gracechurch/church-backend/internal/notification"
	"github.com/gracechurch/church-backend/middleware"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger.Named("push_handler")}
}

// VAPIDKey godoc
// @Summary Web Push public key
// @Tags Push
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/push/vapid-key [get]
func (h *Handler) VAPIDKey(c *gin.Context) {
	if !h.service.Configured() {
		c.JSON(http.StatusOK, gin.H{"configured": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"configured": true, "public_key": h.service.VAPIDPublicKey()})
}

// Subscribe godoc
// @Summary Register a push subscription for the caller
// @Tags Push
// @Accept json
// @Produce json
// @Param body body SubscribeRequest true "Subscription"
// @Success 201 {object} notification.PushSubscription
// @Failure 400 {object} map[string]string
// @Router /api/v1/push/subscribe [post]
func (h *Handler) Subscribe(c *gin.Context) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok || !ac.IsAuthenticated() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access context missing"})
		return
	}

	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.service.Subscribe(c.Request.Context(), ac.UserID, req)
	if err != nil {
		if errors.Is(err, ErrInvalidSubscription) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("subscribe failed", zap.String("user_id", ac.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save subscription"})
		return
	}
	c.JSON(http.StatusCreated, sub)
}

// DELETE /api/v1/push/subscribe
func (h *Handler) Unsubscribe(c *gin.Context) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok || !ac.IsAuthenticated() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access context missing"})
		return
	}

	var req UnsubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.Unsubscribe(c.Request.Context(), ac.UserID, req.Endpoint); err != nil {
		if errors.Is(err, notification.ErrSubscriptionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
			return
		}
		h.logger.Error("unsubscribe failed", zap.String("user_id", ac.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove subscription"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "unsubscribed"})
}
