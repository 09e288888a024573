package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound             = errors.New("notification not found")
	ErrSubscriptionNotFound = errors.New("push subscription not found")
)

// ListQuery selects the notifications one reader may see.
type ListQuery struct {
	UserID      string
	Role        string
	Limit       int
	IncludeRead bool
	Now         time.Time
}

type Repository interface {
	// Notifications
	Create(ctx context.Context, n *Notification) error
	ListForUser(ctx context.Context, q ListQuery) ([]NotificationView, error)
	MarkRead(ctx context.Context, notificationID, userID string, at time.Time) error
	MarkManyRead(ctx context.Context, notificationIDs []string, userID string, at time.Time) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// Preferences
	GetPreferences(ctx context.Context, userID string) (*Preferences, error)
	SavePreferences(ctx context.Context, p *Preferences) error

	// Push subscriptions
	UpsertSubscription(ctx context.Context, sub *PushSubscription) (*PushSubscription, error)
	DeleteSubscription(ctx context.Context, userID, endpoint string) error
	ListActiveSubscriptions(ctx context.Context, userID string) ([]PushSubscription, error)
	ListActiveSubscriberIDs(ctx context.Context) ([]string, error)
	DeactivateSubscription(ctx context.Context, id string) error
	TouchSubscription(ctx context.Context, id string, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// ------------------------------
// Notifications
// ------------------------------

func (r *repository) Create(ctx context.Context, n *Notification) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(n).Error; err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
		if n.TargetAudience != AudienceSpecific || len(n.SpecificUserIDs) == 0 {
			return nil
		}
		rows := make([]NotificationRecipient, 0, len(n.SpecificUserIDs))
		for _, uid := range n.SpecificUserIDs {
			rows = append(rows, NotificationRecipient{NotificationID: n.ID, UserID: uid})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			return fmt.Errorf("insert recipients: %w", err)
		}
		return nil
	})
}

func audienceStrings(as []Audience) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = string(a)
	}
	return out
}

func (r *repository) ListForUser(ctx context.Context, q ListQuery) ([]NotificationView, error) {
	db := r.db.WithContext(ctx)
	audiences := audienceStrings(VisibleAudiences(q.Role))

	query := db.Model(&Notification{}).
		Where("(expires_at IS NULL OR expires_at > ?)", q.Now)

	if q.UserID != "" {
		recipients := r.db.Model(&NotificationRecipient{}).
			Select("notification_id").
			Where("user_id = ?", q.UserID)
		query = query.Where(
			r.db.Where("target_audience IN ?", audiences).
				Or("target_audience = ? AND id IN (?)", string(AudienceSpecific), recipients),
		)
		if !q.IncludeRead {
			reads := r.db.Model(&NotificationRead{}).
				Select("notification_id").
				Where("user_id = ?", q.UserID)
			query = query.Where("id NOT IN (?)", reads)
		}
	} else {
		query = query.Where("target_audience IN ?", audiences)
	}

	var items []Notification
	if err := query.Order("created_at DESC").Limit(q.Limit).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	views := make([]NotificationView, len(items))
	for i := range items {
		views[i] = NotificationView{Notification: items[i]}
	}
	if !q.IncludeRead || q.UserID == "" || len(items) == 0 {
		return views, nil
	}

	ids := make([]string, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	var readIDs []string
	if err := db.Model(&NotificationRead{}).
		Where("user_id = ? AND notification_id IN ?", q.UserID, ids).
		Pluck("notification_id", &readIDs).Error; err != nil {
		return nil, fmt.Errorf("load read receipts: %w", err)
	}
	read := make(map[string]bool, len(readIDs))
	for _, id := range readIDs {
		read[id] = true
	}
	for i := range views {
		views[i].Read = read[views[i].ID]
	}
	return views, nil
}

func (r *repository) MarkRead(ctx context.Context, notificationID, userID string, at time.Time) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&Notification{}).
		Where("id = ?", notificationID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("lookup notification: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return r.MarkManyRead(ctx, []string{notificationID}, userID, at)
}

func (r *repository) MarkManyRead(ctx context.Context, notificationIDs []string, userID string, at time.Time) error {
	if len(notificationIDs) == 0 {
		return nil
	}
	rows := make([]NotificationRead, len(notificationIDs))
	for i, id := range notificationIDs {
		rows[i] = NotificationRead{NotificationID: id, UserID: userID, CreatedAt: at}
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("insert read receipts: %w", err)
	}
	return nil
}

func (r *repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		old := tx.Model(&Notification{}).Select("id").Where("created_at < ?", cutoff)
		if err := tx.Where("notification_id IN (?)", old).Delete(&NotificationRead{}).Error; err != nil {
			return fmt.Errorf("delete read receipts: %w", err)
		}
		old = tx.Model(&Notification{}).Select("id").Where("created_at < ?", cutoff)
		if err := tx.Where("notification_id IN (?)", old).Delete(&NotificationRecipient{}).Error; err != nil {
			return fmt.Errorf("delete recipients: %w", err)
		}
		res := tx.Where("created_at < ?", cutoff).Delete(&Notification{})
		if res.Error != nil {
			return fmt.Errorf("delete notifications: %w", res.Error)
		}
		deleted = res.RowsAffected
		return nil
	})
	return deleted, err
}

// ------------------------------
// Preferences
// ------------------------------

func (r *repository) GetPreferences(ctx context.Context, userID string) (*Preferences, error) {
	var p Preferences
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	return &p, nil
}

func (r *repository) SavePreferences(ctx context.Context, p *Preferences) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(p).Error
	if err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

// ------------------------------
// Push subscriptions
// ------------------------------

// UpsertSubscription inserts or rebinds a subscription by endpoint.
func (r *repository) UpsertSubscription(ctx context.Context, sub *PushSubscription) (*PushSubscription, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.Platform == "" {
		sub.Platform = PlatformWebPush
	}
	sub.IsActive = true

	db := r.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id", "p256dh", "auth", "platform", "user_agent", "is_active", "updated_at",
		}),
	}).Create(sub).Error
	if err != nil {
		return nil, fmt.Errorf("upsert subscription: %w", err)
	}

	var saved PushSubscription
	if err := db.Where("endpoint = ?", sub.Endpoint).First(&saved).Error; err != nil {
		return nil, fmt.Errorf("reload subscription: %w", err)
	}
	return &saved, nil
}

func (r *repository) DeleteSubscription(ctx context.Context, userID, endpoint string) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND endpoint = ?", userID, endpoint).
		Delete(&PushSubscription{})
	if res.Error != nil {
		return fmt.Errorf("delete subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (r *repository) ListActiveSubscriptions(ctx context.Context, userID string) ([]PushSubscription, error) {
	var subs []PushSubscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at ASC").
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return subs, nil
}

func (r *repository) ListActiveSubscriberIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&PushSubscription{}).
		Where("is_active = ?", true).
		Distinct().
		Order("user_id").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	return ids, nil
}

func (r *repository) DeactivateSubscription(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&PushSubscription{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}

func (r *repository) TouchSubscription(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&PushSubscription{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
}
