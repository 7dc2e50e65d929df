package domain

import (
	"time"
)

// EventOrderCreated 订单创建事件类型
const EventOrderCreated = "OrderCreated"

// OrderCreatedEvent 订单创建事件，与订单同事务写入发件箱
type OrderCreatedEvent struct {
	OrderID        string    `json:"order_id"`
	OrderNumber    string    `json:"order_number"`
	UserID         string    `json:"user_id"`
	Type           OrderType `json:"type"`
	Asset          string    `json:"asset"`
	AmountCrypto   string    `json:"amount_crypto"`
	AmountFiat     string    `json:"amount_fiat"`
	FiatCurrency   string    `json:"fiat_currency"`
	DepositAddress string    `json:"deposit_address"`
	OccurredOn     time.Time `json:"occurred_on"`
}

// NewOrderCreatedEvent 由订单构造事件
func NewOrderCreatedEvent(o *Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		OrderID:        o.ID,
		OrderNumber:    o.OrderNumber,
		UserID:         o.UserID,
		Type:           o.Type,
		Asset:          o.Asset,
		AmountCrypto:   o.AmountCrypto.StringFixed(CryptoPrecision),
		AmountFiat:     o.AmountFiat.StringFixed(FiatPrecision),
		FiatCurrency:   o.FiatCurrency,
		DepositAddress: o.DepositAddress,
		OccurredOn:     o.CreatedAt,
	}
}
