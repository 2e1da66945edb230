package repositories

import (
	"context"
	"time"

	"github.com/maxaizer/tender-monitor/internal/entities"
	"gorm.io/gorm"
)

type NotificationLogs struct {
	db *gorm.DB
}

func NewNotificationLogsRepository(db *gorm.DB) *NotificationLogs {
	return &NotificationLogs{db: db}
}

func (repo *NotificationLogs) Add(ctx context.Context, entry entities.NotificationLog) error {
	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now()
	}
	return repo.db.WithContext(ctx).Create(&entry).Error
}

func (repo *NotificationLogs) GetByProfile(ctx context.Context, profile string, limit int) ([]entities.NotificationLog, error) {
	var logs []entities.NotificationLog
	if err := repo.db.WithContext(ctx).Where("profile = ?", profile).
		Order("sent_at DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (repo *NotificationLogs) RemoveOlderThan(ctx context.Context, before time.Time) (int64, error) {
	res := repo.db.WithContext(ctx).Delete(&entities.NotificationLog{}, "sent_at < ?", before)
	return res.RowsAffected, res.Error
}
