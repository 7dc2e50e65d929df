package sender

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/youngberry1/coindarks-sub001/pkg/logger"
)

// WebhookSender 将消息 POST 到投递网关，由网关负责邮件/短信下发
type WebhookSender struct {
	client *resty.Client
	url    string
}

// NewWebhookSender 创建 webhook 发送器
func NewWebhookSender(url string, timeout time.Duration) *WebhookSender {
	c := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &WebhookSender{client: c, url: url}
}

type webhookPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// Send 非 2xx 视为失败
func (s *WebhookSender) Send(ctx context.Context, target, subject, content string) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(webhookPayload{To: target, Subject: subject, Text: content}).
		Post(s.url)
	if err != nil {
		return errors.Wrap(err, "webhook request failed")
	}
	if resp.IsError() {
		return errors.Errorf("webhook returned status %d", resp.StatusCode())
	}

	logger.Debug(ctx, "Webhook triggered", "target", target, "subject", subject, "status", resp.StatusCode())
	return nil
}
