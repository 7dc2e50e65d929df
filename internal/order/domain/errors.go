package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// KycRequiredError 未通过 KYC 的非管理员用户
type KycRequiredError struct{}

func (e *KycRequiredError) Error() string {
	return "KYC verification required to trade"
}

// RateUnavailableError 加价后汇率非正
type RateUnavailableError struct {
	Asset    string
	Currency string
}

func (e *RateUnavailableError) Error() string {
	if e.Asset == "" {
		return "Exchange rate unavailable."
	}
	return fmt.Sprintf("Exchange rate unavailable for %s/%s.", e.Asset, e.Currency)
}

// MinimumOrderError 卖单金额低于法币下限
type MinimumOrderError struct {
	Minimum  decimal.Decimal
	Amount   decimal.Decimal
	Currency string
}

func (e *MinimumOrderError) Error() string {
	return fmt.Sprintf("Minimum sell amount is %s %s (order value %s %s)",
		e.Minimum.String(), e.Currency, e.Amount.StringFixed(2), e.Currency)
}

// NoDestinationError 结算货币没有启用的平台地址
type NoDestinationError struct {
	Currency string
}

func (e *NoDestinationError) Error() string {
	return fmt.Sprintf("System account not available for %s. Please contact support.", e.Currency)
}

// OrderCreationError 持久化失败，对外不暴露内部原因
type OrderCreationError struct {
	Cause error
}

func (e *OrderCreationError) Error() string {
	return "Failed to process order"
}

func (e *OrderCreationError) Unwrap() error {
	return e.Cause
}

// InvalidOrderError 请求参数不合法
type InvalidOrderError struct {
	Field  string
	Reason string
}

func (e *InvalidOrderError) Error() string {
	return fmt.Sprintf("Invalid %s: %s", e.Field, e.Reason)
}
