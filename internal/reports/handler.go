package reports

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gracechurch/church-backend/middleware"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger.Named("reports_handler")}
}

// GetReadReceiptReport godoc
// @Summary Notification read-receipt report (admin)
// @Tags Reports
// @Produce json,text/csv,application/pdf
// @Param date_range query string false "daily|weekly|monthly|yearly|custom (default weekly)"
// @Param start_date query string false "YYYY-MM-DD, custom range only"
// @Param end_date query string false "YYYY-MM-DD, custom range only"
// @Param type query string false "Notification type filter"
// @Param format query string false "csv|xlsx|pdf; JSON when empty"
// @Success 200 {object} ReadReceiptReport
// @Failure 400 {object} map[string]string
// @Router /api/v1/admin/notifications/report [get]
func (h *Handler) GetReadReceiptReport(c *gin.Context) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok || !ac.IsAuthenticated() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access context missing"})
		return
	}

	req := ReportRequest{
		DateRange: c.DefaultQuery("date_range", DateRangeWeekly),
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
		Type:      c.Query("type"),
		Format:    c.Query("format"),
	}

	if req.Format == "" {
		report, err := h.service.ReadReceipts(c.Request.Context(), req)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
		return
	}

	data, filename, mime, err := h.service.ExportReadReceipts(c.Request.Context(), req, ac.UserID, middleware.GetIPFromContext(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, mime, data)
}

func (h *Handler) fail(c *gin.Context, err error) {
	if errors.Is(err, ErrUnsupportedFormat) || errors.Is(err, ErrInvalidDateRange) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.logger.Error("read receipt report failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build report"})
}
