// Package sender 通知发送器实现
package sender

import (
	"context"

	"github.com/youngberry1/coindarks-sub001/pkg/logger"
)

// LogSender 仅写日志，开发环境与未配置外部通道时使用
type LogSender struct{}

// NewLogSender 创建日志发送器
func NewLogSender() *LogSender {
	return &LogSender{}
}

// Send 记录消息
func (s *LogSender) Send(ctx context.Context, target, subject, content string) error {
	logger.Info(ctx, "Notification sent", "target", target, "subject", subject, "content", content)
	return nil
}
