package auth

import "time"

const (
	StatusActive    = "active"
	StatusPending   = "pending"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusPending, StatusInactive, StatusSuspended:
		return true
	}
	return false
}

// User is the read model of the identity service's users table.
type User struct {
	ID        string    `gorm:"size:64;primaryKey" json:"id"`
	Email     string    `gorm:"size:255;uniqueIndex" json:"email"`
	FullName  string    `gorm:"size:200" json:"full_name"`
	Role      string    `gorm:"size:20;not null;index" json:"role"`
	Status    string    `gorm:"size:20;not null;default:active" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func Models() []interface{} {
	return []interface{}{&User{}}
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
