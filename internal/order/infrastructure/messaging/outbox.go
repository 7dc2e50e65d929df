package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/youngberry1/coindarks-sub001/pkg/logger"
	"github.com/youngberry1/coindarks-sub001/pkg/metrics"
	"github.com/youngberry1/coindarks-sub001/pkg/utils"
	"gorm.io/gorm"
)

const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// OutboxMessage 发件箱记录
type OutboxMessage struct {
	ID        string `gorm:"column:id;type:varchar(36);primaryKey"`
	EventType string `gorm:"column:event_type;type:varchar(100);index"`
	// 分区 key，通常为订单号
	Key       string `gorm:"column:message_key;type:varchar(64)"`
	Payload   string `gorm:"column:payload;type:text"`
	Status    string `gorm:"column:status;type:varchar(20);index;default:pending"`
	Attempts  int    `gorm:"column:attempts;not null;default:0"`
	LastError string `gorm:"column:last_error;type:text"`
	// 为空表示可立即投递
	NextAttemptAt *time.Time `gorm:"column:next_attempt_at;index"`
	CreatedAt     time.Time  `gorm:"column:created_at;index"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
}

// TableName 指定表名
func (OutboxMessage) TableName() string {
	return "order_outbox_messages"
}

// Append 在调用方事务内写入一条待投递消息
func Append(tx *gorm.DB, eventType, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", eventType, err)
	}

	now := time.Now()
	msg := OutboxMessage{
		ID:        uuid.New().String(),
		EventType: eventType,
		Key:       key,
		Payload:   string(payload),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return tx.Create(&msg).Error
}

// Dispatcher 将发件箱消息投递到下游
type Dispatcher interface {
	Dispatch(ctx context.Context, msg *OutboxMessage) error
}

// DispatcherFunc 函数适配器
type DispatcherFunc func(ctx context.Context, msg *OutboxMessage) error

// Dispatch 调用 f
func (f DispatcherFunc) Dispatch(ctx context.Context, msg *OutboxMessage) error {
	return f(ctx, msg)
}

// RelayConfig 投递参数
type RelayConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	Retention    time.Duration
	// 失败后的重试间隔，按次数递增至 MaxBackoff；为 0 时下一轮立即重试
	RetryBackoff time.Duration
	MaxBackoff   time.Duration
}

// OutboxRelay 轮询待投递消息并交给 Dispatcher，失败后退避重试，超限标记 failed
type OutboxRelay struct {
	db         *gorm.DB
	dispatcher Dispatcher
	cfg        RelayConfig
	metrics    *metrics.Metrics
}

// NewOutboxRelay 创建投递器
func NewOutboxRelay(db *gorm.DB, dispatcher Dispatcher, cfg RelayConfig, m *metrics.Metrics) *OutboxRelay {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &OutboxRelay{db: db, dispatcher: dispatcher, cfg: cfg, metrics: m}
}

// Run 定时投递并清理，ctx 取消后返回 nil
func (r *OutboxRelay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	lastCleanup := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if _, err := r.ProcessBatch(ctx); err != nil && ctx.Err() == nil {
			logger.Error(ctx, "Outbox relay batch failed", "error", err)
		}

		if r.cfg.Retention > 0 && time.Since(lastCleanup) > time.Hour {
			lastCleanup = time.Now()
			if err := r.Cleanup(ctx, time.Now().Add(-r.cfg.Retention)); err != nil {
				logger.Warn(ctx, "Outbox cleanup failed", "error", err)
			}
		}
	}
}

// ProcessBatch 投递一批待处理消息，返回成功条数
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	var messages []*OutboxMessage
	err := r.db.WithContext(ctx).
		Where("status = ?", StatusPending).
		Where("next_attempt_at IS NULL OR next_attempt_at <= ?", time.Now()).
		Order("created_at ASC").
		Limit(r.cfg.BatchSize).
		Find(&messages).Error
	if err != nil {
		return 0, fmt.Errorf("load outbox messages: %w", err)
	}

	sent := 0
	for _, msg := range messages {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if err := r.deliver(ctx, msg); err != nil {
			return sent, err
		}
		if msg.Status == StatusSent {
			sent++
		}
	}
	return sent, nil
}

func (r *OutboxRelay) deliver(ctx context.Context, msg *OutboxMessage) error {
	dispatchErr := r.dispatcher.Dispatch(ctx, msg)

	updates := map[string]any{"updated_at": time.Now()}
	switch {
	case dispatchErr == nil:
		msg.Status = StatusSent
		updates["status"] = StatusSent
		r.metrics.RecordOutbox("sent")
	default:
		msg.Attempts++
		updates["attempts"] = msg.Attempts
		updates["last_error"] = dispatchErr.Error()
		if msg.Attempts >= r.cfg.MaxAttempts {
			msg.Status = StatusFailed
			updates["status"] = StatusFailed
			r.metrics.RecordOutbox("failed")
			logger.Error(ctx, "Outbox message abandoned", "id", msg.ID, "event_type", msg.EventType, "attempts", msg.Attempts, "error", dispatchErr)
		} else {
			delay := utils.Backoff(msg.Attempts, r.cfg.RetryBackoff, r.cfg.MaxBackoff)
			if delay > 0 {
				next := time.Now().Add(delay)
				msg.NextAttemptAt = &next
				updates["next_attempt_at"] = next
			}
			r.metrics.RecordOutbox("retry")
			logger.Warn(ctx, "Outbox dispatch failed", "id", msg.ID, "event_type", msg.EventType, "attempts", msg.Attempts, "retry_in", delay, "error", dispatchErr)
		}
	}

	if err := r.db.WithContext(ctx).Model(&OutboxMessage{}).Where("id = ?", msg.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("update outbox message %s: %w", msg.ID, err)
	}
	return nil
}

// Cleanup 删除 before 之前已投递的消息
func (r *OutboxRelay) Cleanup(ctx context.Context, before time.Time) error {
	return r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", StatusSent, before).
		Delete(&OutboxMessage{}).Error
}

// ErrUnknownEvent 没有对应处理器的事件类型
var ErrUnknownEvent = errors.New("unknown outbox event type")
