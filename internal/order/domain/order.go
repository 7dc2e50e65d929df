// Package domain 包含订单、平台钱包与库存的领域模型
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	ratesdomain "github.com/youngberry1/coindarks-sub001/internal/rates/domain"
)

// OrderType 订单方向
type OrderType string

const (
	OrderTypeBuy  OrderType = "BUY"
	OrderTypeSell OrderType = "SELL"
)

// Side 转为汇率侧的方向
func (t OrderType) Side() ratesdomain.Side {
	if t == OrderTypeSell {
		return ratesdomain.SideSell
	}
	return ratesdomain.SideBuy
}

// InputType 输入金额的计价单位
type InputType string

const (
	InputCrypto InputType = "CRYPTO"
	InputFiat   InputType = "FIAT"
)

// OrderStatus 订单状态
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusRefunded   OrderStatus = "REFUNDED"
)

// Valid 是否为已知状态
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// Order 订单实体，创建后金额不可变
type Order struct {
	ID          string    `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	OrderNumber string    `gorm:"column:order_number;type:varchar(32);uniqueIndex;not null" json:"order_number"`
	UserID      string    `gorm:"column:user_id;type:varchar(36);index;not null" json:"user_id"`
	Type        OrderType `gorm:"column:type;type:varchar(8);not null" json:"type"`
	Asset       string    `gorm:"column:asset;type:varchar(16);not null" json:"asset"`
	// 加价后的成交汇率
	FinalRate        decimal.Decimal `gorm:"column:final_rate;type:decimal(30,10);not null" json:"final_rate"`
	AmountCrypto     decimal.Decimal `gorm:"column:amount_crypto;type:decimal(20,8);not null" json:"amount_crypto"`
	AmountFiat       decimal.Decimal `gorm:"column:amount_fiat;type:decimal(20,2);not null" json:"amount_fiat"`
	FiatCurrency     string          `gorm:"column:fiat_currency;type:varchar(8);not null" json:"fiat_currency"`
	ReceivingAddress string          `gorm:"column:receiving_address;type:varchar(255);not null" json:"receiving_address"`
	// 平台收款/付款地址，多个以换行分隔
	DepositAddress string      `gorm:"column:deposit_address;type:text;not null" json:"deposit_address"`
	Status         OrderStatus `gorm:"column:status;type:varchar(16);index;not null" json:"status"`
	CreatedAt      time.Time   `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt      time.Time   `gorm:"column:updated_at" json:"updated_at"`
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// AdminWallet 平台收付款地址
type AdminWallet struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Chain     string    `gorm:"column:chain;type:varchar(32);not null" json:"chain"`
	Currency  string    `gorm:"column:currency;type:varchar(16);index;not null" json:"currency"`
	Address   string    `gorm:"column:address;type:varchar(255);not null" json:"address"`
	Label     *string   `gorm:"column:label;type:varchar(64)" json:"label"`
	IsActive  bool      `gorm:"column:is_active;not null" json:"is_active"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName 指定表名
func (AdminWallet) TableName() string {
	return "admin_wallets"
}

// Inventory 资产买卖开关，由前端层执行
type Inventory struct {
	Asset       string    `gorm:"column:asset;type:varchar(16);primaryKey" json:"asset"`
	BuyEnabled  bool      `gorm:"column:buy_enabled;not null" json:"buy_enabled"`
	SellEnabled bool      `gorm:"column:sell_enabled;not null" json:"sell_enabled"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName 指定表名
func (Inventory) TableName() string {
	return "inventory"
}

// NormalizeCode 资产与货币代码统一为大写
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
