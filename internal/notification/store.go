package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultListLimit = 20
	// UnreadCap bounds both the unread count and mark-all-read.
	UnreadCap = 100
)

// Store is the error-swallowing face of Repository used by the delivery
// paths: failures are logged and surface as empty results.
type Store struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

func NewStore(repo Repository, logger *zap.Logger) *Store {
	return &Store{
		repo:   repo,
		logger: logger.Named("notification_store"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) Repository() Repository {
	return s.repo
}

// Create persists a notification. It returns nil when the input is invalid
// or the insert fails; callers never see the error.
func (s *Store) Create(ctx context.Context, in CreateInput) *Notification {
	in, err := in.normalize()
	if err != nil {
		s.logger.Warn("rejected notification", zap.Error(err), zap.String("title", in.Title))
		return nil
	}

	n := &Notification{
		ID:              uuid.NewString(),
		Title:           in.Title,
		Message:         in.Message,
		Type:            in.Type,
		Priority:        in.Priority,
		TargetAudience:  in.TargetAudience,
		SpecificUserIDs: in.SpecificUserIDs,
		ExpiresAt:       in.ExpiresAt,
		CreatedAt:       s.now().Truncate(time.Microsecond),
	}
	if len(in.Metadata) > 0 {
		n.Metadata = in.Metadata
	}
	if in.ActionURL != "" {
		url := in.ActionURL
		n.ActionURL = &url
	}

	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error("failed to create notification", zap.Error(err), zap.String("type", string(n.Type)))
		return nil
	}
	return n
}

// ListForUser returns visible, unexpired notifications newest first.
func (s *Store) ListForUser(ctx context.Context, userID, role string, limit int, includeRead bool) []NotificationView {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	views, err := s.repo.ListForUser(ctx, ListQuery{
		UserID:      userID,
		Role:        role,
		Limit:       limit,
		IncludeRead: includeRead,
		Now:         s.now(),
	})
	if err != nil {
		s.logger.Error("failed to list notifications", zap.Error(err), zap.String("user_id", userID))
		return []NotificationView{}
	}
	return views
}

// MarkRead is idempotent; a repeated call still reports success.
func (s *Store) MarkRead(ctx context.Context, notificationID, userID string) bool {
	if userID == "" {
		return false
	}
	if err := s.repo.MarkRead(ctx, notificationID, userID, s.now()); err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Debug("mark read on unknown notification", zap.String("notification_id", notificationID))
		} else {
			s.logger.Error("failed to mark notification read", zap.Error(err), zap.String("notification_id", notificationID))
		}
		return false
	}
	return true
}

// MarkAllRead records receipts for the current unread set, up to UnreadCap.
func (s *Store) MarkAllRead(ctx context.Context, userID, role string) bool {
	if userID == "" {
		return false
	}
	unread, err := s.repo.ListForUser(ctx, ListQuery{
		UserID: userID,
		Role:   role,
		Limit:  UnreadCap,
		Now:    s.now(),
	})
	if err != nil {
		s.logger.Error("failed to load unread notifications", zap.Error(err), zap.String("user_id", userID))
		return false
	}
	if len(unread) == 0 {
		return true
	}
	ids := make([]string, len(unread))
	for i, v := range unread {
		ids[i] = v.ID
	}
	if err := s.repo.MarkManyRead(ctx, ids, userID, s.now()); err != nil {
		s.logger.Error("failed to mark all read", zap.Error(err), zap.String("user_id", userID))
		return false
	}
	return true
}

// CountUnread is capped at UnreadCap.
func (s *Store) CountUnread(ctx context.Context, userID, role string) int {
	return len(s.ListForUser(ctx, userID, role, UnreadCap, false))
}

// DeleteOlderThan prunes notifications created more than days ago.
func (s *Store) DeleteOlderThan(ctx context.Context, days int) int64 {
	if days <= 0 {
		return 0
	}
	cutoff := s.now().AddDate(0, 0, -days)
	n, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("failed to prune notifications", zap.Error(err), zap.Int("days", days))
		return 0
	}
	return n
}

// GetPreferences falls back to defaults when no row exists or the read fails.
func (s *Store) GetPreferences(ctx context.Context, userID string) Preferences {
	p, err := s.repo.GetPreferences(ctx, userID)
	if err != nil {
		s.logger.Error("failed to load preferences", zap.Error(err), zap.String("user_id", userID))
		return DefaultPreferences(userID)
	}
	if p == nil {
		return DefaultPreferences(userID)
	}
	return *p
}

func (s *Store) SavePreferences(ctx context.Context, p Preferences) bool {
	p.UpdatedAt = s.now()
	if err := s.repo.SavePreferences(ctx, &p); err != nil {
		s.logger.Error("failed to save preferences", zap.Error(err), zap.String("user_id", p.UserID))
		return false
	}
	return true
}
