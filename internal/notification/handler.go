package notification

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gracechurch/church-backend/internal/auditlog"
	"github.com/gracechurch/church-backend/middleware"
)

type Handler struct {
	store    *Store
	notifier *Notifier
	audit    auditlog.Service
	logger   *zap.Logger
}

func NewHandler(store *Store, notifier *Notifier, audit auditlog.Service, logger *zap.Logger) *Handler {
	return &Handler{
		store:    store,
		notifier: notifier,
		audit:    audit,
		logger:   logger.Named("notification_handler"),
	}
}

func currentUser(c *gin.Context) (middleware.AccessContext, bool) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok || !ac.IsAuthenticated() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access context missing"})
		return ac, false
	}
	return ac, true
}

// List godoc
// @Summary List my notifications
// @Tags Notifications
// @Produce json
// @Param limit query int false "Max items (default 20, max 100)"
// @Param include_read query bool false "Include already read items (default true)"
// @Success 200 {array} NotificationView
// @Router /api/v1/notifications [get]
func (h *Handler) List(c *gin.Context) {
	ac, ok := currentUser(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultListLimit)))
	if limit > UnreadCap {
		limit = UnreadCap
	}
	includeRead := c.DefaultQuery("include_read", "true") != "false"

	c.JSON(http.StatusOK, h.store.ListForUser(c.Request.Context(), ac.UserID, ac.RoleName, limit, includeRead))
}

// GET /api/v1/notifications/unread-count
func (h *Handler) UnreadCount(c *gin.Context) {
	ac, ok := currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": h.store.CountUnread(c.Request.Context(), ac.UserID, ac.RoleName)})
}

// PUT /api/v1/notifications/:id/read
func (h *Handler) MarkRead(c *gin.Context) {
	ac, ok := currentUser(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if !h.store.MarkRead(c.Request.Context(), id, ac.UserID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "failed to mark as read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "marked as read"})
}

// PUT /api/v1/notifications/read-all
func (h *Handler) MarkAllRead(c *gin.Context) {
	ac, ok := currentUser(c)
	if !ok {
		return
	}
	if !h.store.MarkAllRead(c.Request.Context(), ac.UserID, ac.RoleName) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark all as read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "all marked as read"})
}

// GET /api/v1/notifications/preferences
func (h *Handler) GetPreferences(c *gin.Context) {
	ac, ok := currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.store.GetPreferences(c.Request.Context(), ac.UserID))
}

// UpdatePreferencesRequest carries a partial update; omitted fields keep
// their stored value.
type UpdatePreferencesRequest struct {
	PushEnabled       *bool   `json:"push_enabled"`
	Announcements     *bool   `json:"announcements"`
	Events            *bool   `json:"events"`
	PrayerRequests    *bool   `json:"prayer_requests"`
	SystemAlerts      *bool   `json:"system_alerts"`
	QuietHoursEnabled *bool   `json:"quiet_hours_enabled"`
	QuietHoursStart   *string `json:"quiet_hours_start"`
	QuietHoursEnd     *string `json:"quiet_hours_end"`
}

func (r UpdatePreferencesRequest) apply(p *Preferences) {
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.PushEnabled, r.PushEnabled)
	set(&p.Announcements, r.Announcements)
	set(&p.Events, r.Events)
	set(&p.PrayerRequests, r.PrayerRequests)
	set(&p.SystemAlerts, r.SystemAlerts)
	set(&p.QuietHoursEnabled, r.QuietHoursEnabled)
	if r.QuietHoursStart != nil {
		p.QuietHoursStart = *r.QuietHoursStart
	}
	if r.QuietHoursEnd != nil {
		p.QuietHoursEnd = *r.QuietHoursEnd
	}
}

// UpdatePreferences godoc
// @Summary Update my push preferences
// @Tags Notifications
// @Accept json
// @Produce json
// @Param body body UpdatePreferencesRequest true "Fields to change"
// @Success 200 {object} Preferences
// @Failure 400 {object} map[string]string
// @Router /api/v1/notifications/preferences [put]
func (h *Handler) UpdatePreferences(c *gin.Context) {
	ac, ok := currentUser(c)
	if !ok {
		return
	}

	var req UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prefs := h.store.GetPreferences(c.Request.Context(), ac.UserID)
	req.apply(&prefs)
	prefs.UserID = ac.UserID

	if prefs.QuietHoursEnabled {
		if _, ok := ParseClock(prefs.QuietHoursStart); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "quiet_hours_start must be HH:MM"})
			return
		}
		if _, ok := ParseClock(prefs.QuietHoursEnd); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "quiet_hours_end must be HH:MM"})
			return
		}
	}

	if !h.store.SavePreferences(c.Request.Context(), prefs) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save preferences"})
		return
	}
	c.JSON(http.StatusOK, h.store.GetPreferences(c.Request.Context(), ac.UserID))
}

// Create godoc
// @Summary Raise a notification (admin)
// @Tags Notifications
// @Accept json
// @Produce json
// @Param body body CreateInput true "Notification"
// @Success 201 {object} Notification
// @Failure 400 {object} map[string]string
// @Router /api/v1/admin/notifications [post]
func (h *Handler) Create(c *gin.Context) {
	ac, ok := currentUser(c)
	if !ok {
		return
	}

	var in CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := in.normalize(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	n := h.notifier.Notify(c.Request.Context(), in)
	if n == nil {
		h.audit.LogAction(c.Request.Context(), ac.UserID, "", auditlog.ActionNotificationCreated,
			map[string]interface{}{"title": in.Title}, middleware.GetIPFromContext(c), auditlog.StatusFailure)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create notification"})
		return
	}

	h.audit.LogAction(c.Request.Context(), ac.UserID, n.ID, auditlog.ActionNotificationCreated,
		map[string]interface{}{
			"title":    n.Title,
			"type":     n.Type,
			"audience": n.TargetAudience,
		}, middleware.GetIPFromContext(c), auditlog.StatusSuccess)

	c.JSON(http.StatusCreated, n)
}

var errInvalidDays = errors.New("days must be a positive integer")

// DELETE /api/v1/admin/notifications/retention?days=N
func (h *Handler) Prune(c *gin.Context) {
	ac, ok := currentUser(c)
	if !ok {
		return
	}
	days, err := strconv.Atoi(c.Query("days"))
	if err != nil || days <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidDays.Error()})
		return
	}

	deleted := h.store.DeleteOlderThan(c.Request.Context(), days)
	h.audit.LogAction(c.Request.Context(), ac.UserID, "", auditlog.ActionNotificationsPruned,
		map[string]interface{}{"days": days, "deleted": deleted}, middleware.GetIPFromContext(c), auditlog.StatusSuccess)

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
