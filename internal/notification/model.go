package notification

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

type Type string

const (
	TypeAnnouncement  Type = "announcement"
	TypeEvent         Type = "event"
	TypePrayerRequest Type = "prayer_request"
	TypeSystem        Type = "system"
	TypeAdmin         Type = "admin"
)

func (t Type) Valid() bool {
	switch t {
	case TypeAnnouncement, TypeEvent, TypePrayerRequest, TypeSystem, TypeAdmin:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Audience string

const (
	AudienceAll      Audience = "all"
	AudienceMembers  Audience = "members"
	AudienceAdmin    Audience = "admin"
	AudienceSpecific Audience = "specific"
)

func (a Audience) Valid() bool {
	switch a {
	case AudienceAll, AudienceMembers, AudienceAdmin, AudienceSpecific:
		return true
	}
	return false
}

// Roles as issued by the identity service.
const (
	RoleAdmin   = "admin"
	RoleMember  = "member"
	RoleVisitor = "visitor"
)

const (
	PlatformWebPush = "webpush"
	PlatformFCM     = "fcm"
)

var ErrInvalidNotification = errors.New("invalid notification")

// Notification is immutable once stored.
type Notification struct {
	ID              string            `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title           string            `gorm:"size:200;not null" json:"title"`
	Message         string            `gorm:"type:text;not null" json:"message"`
	Type            Type              `gorm:"size:30;not null;index" json:"type"`
	Priority        Priority          `gorm:"size:10;not null" json:"priority"`
	TargetAudience  Audience          `gorm:"size:20;not null;index" json:"target_audience"`
	SpecificUserIDs []string          `gorm:"-" json:"specific_user_ids,omitempty"` // stored in notification_recipients
	Metadata        datatypes.JSONMap `json:"metadata,omitempty"`
	ActionURL       *string           `gorm:"size:500" json:"action_url,omitempty"`
	ExpiresAt       *time.Time        `gorm:"index" json:"expires_at,omitempty"`
	CreatedAt       time.Time         `gorm:"index" json:"created_at"`
}

// NotificationRecipient lists the explicit recipients of a "specific" notification.
type NotificationRecipient struct {
	NotificationID string `gorm:"type:varchar(36);primaryKey"`
	UserID         string `gorm:"size:64;primaryKey;index"`
}

// NotificationRead is a read receipt; at most one per (notification, user).
type NotificationRead struct {
	NotificationID string    `gorm:"type:varchar(36);primaryKey" json:"notification_id"`
	UserID         string    `gorm:"size:64;primaryKey;index" json:"user_id"`
	CreatedAt      time.Time `json:"created_at"`
}

type PushSubscription struct {
	ID         string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID     string     `gorm:"size:64;not null;index" json:"user_id"`
	Endpoint   string     `gorm:"size:768;not null;uniqueIndex" json:"endpoint"` // FCM registration token for platform=fcm
	P256dh     string     `gorm:"size:255" json:"-"`
	Auth       string     `gorm:"size:255" json:"-"`
	Platform   string     `gorm:"size:20;not null" json:"platform"`
	UserAgent  string     `gorm:"size:255" json:"user_agent,omitempty"`
	IsActive   bool       `gorm:"not null;index" json:"is_active"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Preferences holds a user's push settings. SystemAlerts covers both
// "system" and "admin" notifications.
type Preferences struct {
	UserID            string    `gorm:"size:64;primaryKey" json:"user_id"`
	PushEnabled       bool      `gorm:"not null" json:"push_enabled"`
	Announcements     bool      `gorm:"not null" json:"announcements"`
	Events            bool      `gorm:"not null" json:"events"`
	PrayerRequests    bool      `gorm:"not null" json:"prayer_requests"`
	SystemAlerts      bool      `gorm:"not null" json:"system_alerts"`
	QuietHoursEnabled bool      `gorm:"not null" json:"quiet_hours_enabled"`
	QuietHoursStart   string    `gorm:"size:5" json:"quiet_hours_start"`
	QuietHoursEnd     string    `gorm:"size:5" json:"quiet_hours_end"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (Preferences) TableName() string { return "notification_preferences" }

// DefaultPreferences applies when a user has never saved preferences.
func DefaultPreferences(userID string) Preferences {
	return Preferences{
		UserID:         userID,
		PushEnabled:    true,
		Announcements:  true,
		Events:         true,
		PrayerRequests: true,
		SystemAlerts:   true,
	}
}

// Models returns every table owned by this package, for AutoMigrate.
func Models() []interface{} {
	return []interface{}{
		&Notification{},
		&NotificationRecipient{},
		&NotificationRead{},
		&PushSubscription{},
		&Preferences{},
	}
}

// NotificationView is a notification annotated for one reader.
type NotificationView struct {
	Notification
	Read bool `json:"read"`
}

// ================ Request DTOs ================

type CreateInput struct {
	Title           string                 `json:"title" binding:"required"`
	Message         string                 `json:"message" binding:"required"`
	Type            Type                   `json:"type" binding:"required"`
	Priority        Priority               `json:"priority,omitempty"`
	TargetAudience  Audience               `json:"target_audience,omitempty"`
	SpecificUserIDs []string               `json:"specific_user_ids,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
	ActionURL       string                 `json:"action_url,omitempty"`
	ExpiresAt       *time.Time             `json:"expires_at,omitempty"`
}

// normalize fills defaults and validates. The returned input is safe to persist.
func (in CreateInput) normalize() (CreateInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return in, fmt.Errorf("%w: title is required", ErrInvalidNotification)
	}
	if !in.Type.Valid() {
		return in, fmt.Errorf("%w: unknown type %q", ErrInvalidNotification, in.Type)
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if !in.Priority.Valid() {
		return in, fmt.Errorf("%w: unknown priority %q", ErrInvalidNotification, in.Priority)
	}
	if in.TargetAudience == "" {
		in.TargetAudience = AudienceAll
	}
	if !in.TargetAudience.Valid() {
		return in, fmt.Errorf("%w: unknown audience %q", ErrInvalidNotification, in.TargetAudience)
	}

	if in.TargetAudience == AudienceSpecific {
		in.SpecificUserIDs = dedupe(in.SpecificUserIDs)
		if len(in.SpecificUserIDs) == 0 {
			return in, fmt.Errorf("%w: specific audience requires recipients", ErrInvalidNotification)
		}
	} else {
		in.SpecificUserIDs = nil
	}
	return in, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
