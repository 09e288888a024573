package reports

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	ReadReceipts(ctx context.Context, start, end time.Time, notificationType string) ([]ReadReceiptRow, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ReadReceipts(ctx context.Context, start, end time.Time, notificationType string) ([]ReadReceiptRow, error) {
	query := r.db.WithContext(ctx).
		Table("notifications AS n").
		Select(`n.id, n.title, n.type, n.priority, n.target_audience, n.created_at,
			(SELECT COUNT(*) FROM notification_recipients rc WHERE rc.notification_id = n.id) AS recipient_count,
			COUNT(r.user_id) AS read_count`).
		Joins("LEFT JOIN notification_reads r ON r.notification_id = n.id").
		Where("n.created_at BETWEEN ? AND ?", start.UTC(), end.UTC())

	if notificationType != "" {
		query = query.Where("n.type = ?", notificationType)
	}

	var rows []ReadReceiptRow
	err := query.
		Group("n.id, n.title, n.type, n.priority, n.target_audience, n.created_at").
		Order("n.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("read receipt report: %w", err)
	}
	return rows, nil
}
