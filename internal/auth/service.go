package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/gracechurch/church-backend/internal/auditlog"
	"github.com/gracechurch/church-backend/internal/notification"
	"github.com/gracechurch/church-backend/middleware"
)

var ErrInvalidStatus = errors.New("invalid user status")

// StatusNotifier raises notifications without waiting for delivery.
type StatusNotifier interface {
	NotifyAsync(in notification.CreateInput)
}

type Service interface {
	ResolveAccess(ctx context.Context, userID string) (middleware.AccessContext, error)
	RolesByUserIDs(ctx context.Context, userIDs []string) (map[string]string, error)
	UpdateUserStatus(ctx context.Context, actorID, userID, status, ip string) (*User, error)
}

type service struct {
	repo     Repository
	notifier StatusNotifier
	audit    auditlog.Service
	logger   *zap.Logger
}

func NewService(repo Repository, notifier StatusNotifier, audit auditlog.Service, logger *zap.Logger) Service {
	return &service{
		repo:     repo,
		notifier: notifier,
		audit:    audit,
		logger:   logger.Named("auth"),
	}
}

// ResolveAccess maps a token subject to its current role and status.
// Roles outside admin/member are treated as visitor.
func (s *service) ResolveAccess(ctx context.Context, userID string) (middleware.AccessContext, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return middleware.AccessContext{}, err
	}
	role := u.Role
	switch role {
	case middleware.RoleAdmin, middleware.RoleMember:
	default:
		role = middleware.RoleVisitor
	}
	return middleware.AccessContext{
		UserID:   u.ID,
		Email:    u.Email,
		RoleName: role,
		Status:   u.Status,
	}, nil
}

func (s *service) RolesByUserIDs(ctx context.Context, userIDs []string) (map[string]string, error) {
	return s.repo.RolesByUserIDs(ctx, userIDs)
}

// UpdateUserStatus persists the new status, audits it and tells the user.
// Setting the current status again is a no-op that still succeeds.
func (s *service) UpdateUserStatus(ctx context.Context, actorID, userID, status, ip string) (*User, error) {
	if !ValidStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Status == status {
		return u, nil
	}

	previous := u.Status
	if err := s.repo.UpdateStatus(ctx, userID, status); err != nil {
		s.audit.LogAction(ctx, actorID, userID, auditlog.ActionUserStatusChanged,
			map[string]interface{}{"status": status}, ip, auditlog.StatusFailure)
		return nil, err
	}
	u.Status = status

	s.audit.LogAction(ctx, actorID, userID, auditlog.ActionUserStatusChanged,
		map[string]interface{}{"from": previous, "to": status}, ip, auditlog.StatusSuccess)
	if s.notifier != nil {
		s.notifier.NotifyAsync(notification.UserStatusChanged(u.ID, u.FullName, status))
	}

	s.logger.Info("user status changed",
		zap.String("user_id", userID),
		zap.String("from", previous),
		zap.String("to", status),
		zap.String("actor_id", actorID),
	)
	return u, nil
}
