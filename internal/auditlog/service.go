package auditlog

import (
	"context"
	"math"

	"go.uber.org/zap"
)

type Service interface {
	LogAction(ctx context.Context, userID, targetID, action string, details map[string]interface{}, ip, status string)
	GetAuditLogs(ctx context.Context, filter AuditLogFilter) (*PaginatedAuditLogs, error)
}

type service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) Service {
	return &service{repo: repo, logger: logger.Named("auditlog")}
}

// LogAction records an audit entry. Failures are logged, never returned,
// so auditing cannot fail the action being audited.
func (s *service) LogAction(ctx context.Context, userID, targetID, action string, details map[string]interface{}, ip, status string) {
	if details == nil {
		details = make(map[string]interface{})
	}
	entry := &AuditLog{
		UserID:    userID,
		TargetID:  targetID,
		Action:    action,
		Details:   details,
		IPAddress: ip,
		Status:    status,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error("failed to write audit log", zap.Error(err), zap.String("action", action))
	}
}

// GetAuditLogs retrieves paginated audit logs with filters
func (s *service) GetAuditLogs(ctx context.Context, filter AuditLogFilter) (*PaginatedAuditLogs, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}

	logs, total, err := s.repo.GetByFilter(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &PaginatedAuditLogs{
		Data:       logs,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
	}, nil
}
