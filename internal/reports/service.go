package reports

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/gracechurch/church-backend/internal/auditlog"
)

var ErrUnsupportedFormat = errors.New("unsupported report format")

type Service interface {
	ReadReceipts(ctx context.Context, req ReportRequest) (*ReadReceiptReport, error)
	ExportReadReceipts(ctx context.Context, req ReportRequest, actorID, ip string) ([]byte, string, string, error)
}

type service struct {
	repo     Repository
	exporter ReportExporter
	audit    auditlog.Service
	now      func() time.Time
	logger   *zap.Logger
}

func NewService(repo Repository, exporter ReportExporter, audit auditlog.Service, loc *time.Location, logger *zap.Logger) Service {
	if loc == nil {
		loc = time.Local
	}
	return &service{
		repo:     repo,
		exporter: exporter,
		audit:    audit,
		now:      func() time.Time { return time.Now().In(loc) },
		logger:   logger.Named("reports"),
	}
}

func (s *service) ReadReceipts(ctx context.Context, req ReportRequest) (*ReadReceiptReport, error) {
	start, end, err := GetDateRange(s.now(), req.DateRange, req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ReadReceipts(ctx, start, end, req.Type)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []ReadReceiptRow{}
	}
	return &ReadReceiptReport{Start: start, End: end, Rows: rows}, nil
}

func (s *service) ExportReadReceipts(ctx context.Context, req ReportRequest, actorID, ip string) ([]byte, string, string, error) {
	report, err := s.ReadReceipts(ctx, req)
	if err != nil {
		return nil, "", "", err
	}

	data, filename, mime, err := s.exporter.Export(req.Format, report.Rows)
	status := auditlog.StatusSuccess
	if err != nil {
		status = auditlog.StatusFailure
		s.logger.Warn("report export failed", zap.String("format", req.Format), zap.Error(err))
	}
	s.audit.LogAction(ctx, actorID, "", auditlog.ActionReportExported, map[string]interface{}{
		"format":     req.Format,
		"date_range": req.DateRange,
		"rows":       len(report.Rows),
	}, ip, status)

	return data, filename, mime, err
}
