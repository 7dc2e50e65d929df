// Package domain 通知服务的领域模型
package domain

import (
	"context"
	"errors"
	"time"
)

// NotificationStatus 通知状态
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "PENDING"
	NotificationStatusSent    NotificationStatus = "SENT"
	NotificationStatusFailed  NotificationStatus = "FAILED"
)

// ErrNotificationNotFound 通知记录不存在
var ErrNotificationNotFound = errors.New("notification not found")

// Notification 通知记录，NotificationID 由事件 key 与模板名确定，重复投递时据此去重
type Notification struct {
	ID             uint               `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	NotificationID string             `gorm:"column:notification_id;type:varchar(96);uniqueIndex;not null" json:"notification_id"`
	UserID         string             `gorm:"column:user_id;type:varchar(36);index" json:"user_id"`
	Template       string             `gorm:"column:template;type:varchar(64);not null" json:"template"`
	Subject        string             `gorm:"column:subject;type:varchar(255)" json:"subject"`
	Content        string             `gorm:"column:content;type:text" json:"content"`
	Target         string             `gorm:"column:target;type:varchar(255);not null" json:"target"`
	Status         NotificationStatus `gorm:"column:status;type:varchar(20);index;not null" json:"status"`
	Attempts       int                `gorm:"column:attempts;not null" json:"attempts"`
	ErrorMessage   string             `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	SentAt         *time.Time         `gorm:"column:sent_at" json:"sent_at"`
	CreatedAt      time.Time          `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time          `gorm:"column:updated_at" json:"updated_at"`
}

// TableName 指定表名
func (Notification) TableName() string {
	return "notifications"
}

// MarkSent 标记已发送
func (n *Notification) MarkSent(at time.Time) {
	n.Status = NotificationStatusSent
	n.SentAt = &at
	n.ErrorMessage = ""
}

// MarkFailed 记录一次失败
func (n *Notification) MarkFailed(err error) {
	n.Status = NotificationStatusFailed
	n.ErrorMessage = err.Error()
}

// Message 待发送消息
type Message struct {
	Address  string
	Template string
	Params   map[string]any
}

// Sender 消息发送器
type Sender interface {
	Send(ctx context.Context, target, subject, content string) error
}

// RecipientDirectory 按用户 ID 查收件地址
type RecipientDirectory interface {
	EmailOf(ctx context.Context, userID string) (string, error)
}

// NotificationRepository 通知记录仓储接口
type NotificationRepository interface {
	// Get 不存在时返回 ErrNotificationNotFound
	Get(ctx context.Context, notificationID string) (*Notification, error)
	Save(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Notification, int64, error)
}
