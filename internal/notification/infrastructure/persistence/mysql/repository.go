// Package mysql 提供了通知仓储接口的 GORM 实现。
package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/youngberry1/coindarks-sub001/internal/notification/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type notificationRepository struct{ db *gorm.DB }

// NewNotificationRepository 创建通知仓储实例
func NewNotificationRepository(db *gorm.DB) domain.NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	var n domain.Notification
	err := r.db.WithContext(ctx).Where("notification_id = ?", notificationID).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return &n, nil
}

// Save 按 notification_id 插入或更新
func (r *notificationRepository) Save(ctx context.Context, n *domain.Notification) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "notification_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"subject", "content", "target", "status", "attempts", "error_message", "sent_at", "updated_at",
		}),
	}).Create(n).Error
	if err != nil {
		return fmt.Errorf("save notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Notification, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Notification{}).Where("user_id = ?", userID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	var items []*domain.Notification
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	return items, total, nil
}
