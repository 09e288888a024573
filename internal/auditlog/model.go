package auditlog

import (
	"time"

	"gorm.io/datatypes"
)

// Actions recorded on the notification surface.
const (
	ActionNotificationCreated = "NOTIFICATION_CREATED"
	ActionNotificationsPruned = "NOTIFICATIONS_PRUNED"
	ActionUserStatusChanged   = "USER_STATUS_CHANGED"
	ActionReportExported      = "NOTIFICATION_REPORT_EXPORTED"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// AuditLog represents the audit_logs table
type AuditLog struct {
	ID        uint              `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string            `gorm:"size:64;index" json:"user_id"`     // actor, empty for system jobs
	TargetID  string            `gorm:"size:64;index" json:"target_id"`   // notification or user acted upon
	Action    string            `gorm:"size:100;not null;index" json:"action"`
	Details   datatypes.JSONMap `json:"details"`
	IPAddress string            `gorm:"size:45" json:"ip_address"`
	Status    string            `gorm:"size:20;not null;index" json:"status"`
	CreatedAt time.Time         `gorm:"autoCreateTime;index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

func Models() []interface{} {
	return []interface{}{&AuditLog{}}
}

// AuditLogFilter represents filters for querying audit logs
type AuditLogFilter struct {
	UserID   string
	Action   string
	Status   string
	FromDate *time.Time
	ToDate   *time.Time
	Page     int
	Limit    int
}

// PaginatedAuditLogs represents paginated audit log response
type PaginatedAuditLogs struct {
	Data       []AuditLog `json:"data"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	TotalPages int        `json:"total_pages"`
}
