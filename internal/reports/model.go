package reports

import (
	"time"
)

const (
	// Date range presets
	DateRangeDaily   = "daily"
	DateRangeWeekly  = "weekly"
	DateRangeMonthly = "monthly"
	DateRangeYearly  = "yearly"
	DateRangeCustom  = "custom"

	// Export formats; "xlsx" is accepted as an alias of "excel"
	FormatCSV   = "csv"
	FormatExcel = "excel"
	FormatXLSX  = "xlsx"
	FormatPDF   = "pdf"
)

// ReadReceiptRow summarises how far one notification was read.
type ReadReceiptRow struct {
	NotificationID string    `gorm:"column:id" json:"notification_id"`
	Title          string    `json:"title"`
	Type           string    `json:"type"`
	Priority       string    `json:"priority"`
	TargetAudience string    `json:"target_audience"`
	CreatedAt      time.Time `json:"created_at"`
	RecipientCount int64     `json:"recipient_count"` // explicit recipients; 0 for role audiences
	ReadCount      int64     `json:"read_count"`
}

type ReportRequest struct {
	DateRange string
	StartDate string
	EndDate   string
	Type      string
	Format    string // csv, excel/xlsx, pdf, or empty for JSON
}

type ReadReceiptReport struct {
	Start time.Time        `json:"start"`
	End   time.Time        `json:"end"`
	Rows  []ReadReceiptRow `json:"rows"`
}
