// Package application 通知应用服务：订单事件转为用户与管理员通知
package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/youngberry1/coindarks-sub001/internal/notification/domain"
	"github.com/youngberry1/coindarks-sub001/pkg/logger"
	"github.com/youngberry1/coindarks-sub001/pkg/metrics"
)

// OrderCreatedPayload 订单创建事件的消费端视图
type OrderCreatedPayload struct {
	OrderID        string `json:"order_id"`
	OrderNumber    string `json:"order_number"`
	UserID         string `json:"user_id"`
	Type           string `json:"type"`
	Asset          string `json:"asset"`
	AmountCrypto   string `json:"amount_crypto"`
	AmountFiat     string `json:"amount_fiat"`
	FiatCurrency   string `json:"fiat_currency"`
	DepositAddress string `json:"deposit_address"`
}

type outgoing struct {
	userID string
	msg    domain.Message
}

// NotificationService 通知服务
type NotificationService struct {
	repo         domain.NotificationRepository
	sender       domain.Sender
	recipients   domain.RecipientDirectory
	adminAddress string
	metrics      *metrics.Metrics
	now          func() time.Time
}

// NewNotificationService adminAddress 为空时不发送管理员提醒
func NewNotificationService(
	repo domain.NotificationRepository,
	sender domain.Sender,
	recipients domain.RecipientDirectory,
	adminAddress string,
	m *metrics.Metrics,
) *NotificationService {
	return &NotificationService{
		repo:         repo,
		sender:       sender,
		recipients:   recipients,
		adminAddress: adminAddress,
		metrics:      m,
		now:          time.Now,
	}
}

// HandleOrderCreated 通知下单用户与管理员；发送失败返回错误以便上游重投，已发送的通知不会重复发送
func (s *NotificationService) HandleOrderCreated(ctx context.Context, payload []byte) error {
	var evt OrderCreatedPayload
	if err := json.Unmarshal(payload, &evt); err != nil || evt.OrderNumber == "" {
		// 无法解析的消息重投也无法处理，丢弃
		logger.Error(ctx, "Dropping malformed OrderCreated payload", "error", err, "payload", string(payload))
		s.metrics.RecordNotification("dropped")
		return nil
	}

	var messages []outgoing
	email, err := s.recipients.EmailOf(ctx, evt.UserID)
	switch {
	case err != nil:
		logger.Warn(ctx, "Order owner has no reachable address", "order_number", evt.OrderNumber, "user_id", evt.UserID, "error", err)
	case email != "":
		messages = append(messages, outgoing{
			userID: evt.UserID,
			msg:    domain.Message{Address: email, Template: TemplateOrderCreated, Params: evt.params()},
		})
	}
	if s.adminAddress != "" {
		messages = append(messages, outgoing{
			msg: domain.Message{Address: s.adminAddress, Template: TemplateAdminOrderAlert, Params: evt.params()},
		})
	}

	var errs []error
	for _, m := range messages {
		id := evt.OrderNumber + ":" + m.msg.Template
		if err := s.Deliver(ctx, id, m.userID, m.msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e OrderCreatedPayload) params() map[string]any {
	return map[string]any{
		"OrderID":        e.OrderID,
		"OrderNumber":    e.OrderNumber,
		"UserID":         e.UserID,
		"Type":           e.Type,
		"Asset":          e.Asset,
		"AmountCrypto":   e.AmountCrypto,
		"AmountFiat":     e.AmountFiat,
		"FiatCurrency":   e.FiatCurrency,
		"DepositAddress": e.DepositAddress,
	}
}

// Deliver 渲染并发送一条消息，notificationID 已发送过时直接返回
func (s *NotificationService) Deliver(ctx context.Context, notificationID, userID string, msg domain.Message) error {
	n, err := s.repo.Get(ctx, notificationID)
	switch {
	case errors.Is(err, domain.ErrNotificationNotFound):
		n = &domain.Notification{
			NotificationID: notificationID,
			UserID:         userID,
			Template:       msg.Template,
			Target:         msg.Address,
			Status:         domain.NotificationStatusPending,
		}
	case err != nil:
		return err
	case n.Status == domain.NotificationStatusSent:
		logger.Debug(ctx, "Notification already sent", "notification_id", notificationID)
		s.metrics.RecordNotification("duplicate")
		return nil
	}

	subject, content, err := Render(msg.Template, msg.Params)
	if err != nil {
		return err
	}
	n.Subject = subject
	n.Content = content
	n.Target = msg.Address
	n.Attempts++

	sendErr := s.sender.Send(ctx, msg.Address, subject, content)
	if sendErr != nil {
		n.MarkFailed(sendErr)
		s.metrics.RecordNotification("failed")
		logger.Warn(ctx, "Notification send failed", "notification_id", notificationID, "target", msg.Address, "attempts", n.Attempts, "error", sendErr)
	} else {
		n.MarkSent(s.now())
		s.metrics.RecordNotification("sent")
	}

	if err := s.repo.Save(ctx, n); err != nil {
		return errors.Join(sendErr, err)
	}
	if sendErr != nil {
		return fmt.Errorf("send %s: %w", notificationID, sendErr)
	}
	return nil
}

// ListNotifications 用户的通知历史
func (s *NotificationService) ListNotifications(ctx context.Context, userID string, limit, offset int) ([]*domain.Notification, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}
