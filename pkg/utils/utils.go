// Package utils 提供有界重试与退避计算
package utils

import (
	"context"
	"time"
)

// Retry 最多执行 fn maxAttempts 次，retryable 判定错误是否值得再试（nil 表示全部重试），
// 每次重试前等待 backoff，ctx 取消时立即返回
func Retry(ctx context.Context, maxAttempts int, backoff time.Duration, retryable func(error) bool, fn func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}

		if backoff > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
	}
	return lastErr
}

// Backoff 第 attempt 次失败后的等待时长，从 initial 起每次乘以 1.5，不超过 max
func Backoff(attempt int, initial, max time.Duration) time.Duration {
	if attempt < 1 || initial <= 0 {
		return 0
	}
	delay := initial
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * 1.5)
		if max > 0 && delay >= max {
			return max
		}
	}
	if max > 0 && delay > max {
		return max
	}
	return delay
}
