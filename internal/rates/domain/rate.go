// Package domain 包含汇率、行情桥接与加价规则的领域模型
package domain

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side 交易方向
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ErrPairNotFound 交易对不存在
var ErrPairNotFound = errors.New("trading pair not found")

var pairPattern = regexp.MustCompile(`^[A-Z0-9]+-[A-Z0-9]+$`)

// ValidatePair 校验交易对格式 BASE-QUOTE
func ValidatePair(pair string) error {
	if !pairPattern.MatchString(pair) {
		return fmt.Errorf("invalid pair %q: expected BASE-QUOTE", pair)
	}
	return nil
}

// PairName 拼接交易对名称
func PairName(base, quote string) string {
	return strings.ToUpper(base) + "-" + strings.ToUpper(quote)
}

// TradingPair 交易对配置
type TradingPair struct {
	ID   uint   `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	Pair string `gorm:"column:pair;type:varchar(32);uniqueIndex;not null" json:"pair"`
	// 配置汇率，自动行情失败时的兜底
	Rate decimal.Decimal `gorm:"column:rate;type:decimal(30,10);not null;default:0" json:"rate"`
	// 人工汇率，非空且非零时优先于 rate
	ManualRate    decimal.NullDecimal `gorm:"column:manual_rate;type:decimal(30,10)" json:"manual_rate"`
	MarginPercent decimal.Decimal     `gorm:"column:margin_percent;type:decimal(10,4);not null;default:0" json:"margin_percent"`
	// 买卖方向独立加价，为空时回落到 margin_percent
	BuyMarginPercent  decimal.NullDecimal `gorm:"column:buy_margin_percent;type:decimal(10,4)" json:"buy_margin_percent"`
	SellMarginPercent decimal.NullDecimal `gorm:"column:sell_margin_percent;type:decimal(10,4)" json:"sell_margin_percent"`
	IsAutomated       bool                `gorm:"column:is_automated;not null;default:false" json:"is_automated"`
	UpdatedAt         time.Time           `gorm:"column:updated_at" json:"updated_at"`
}

// TableName 指定表名
func (TradingPair) TableName() string {
	return "exchange_rates"
}

// Base 基础资产
func (p *TradingPair) Base() string {
	base, _, _ := strings.Cut(p.Pair, "-")
	return base
}

// Quote 计价货币
func (p *TradingPair) Quote() string {
	_, quote, _ := strings.Cut(p.Pair, "-")
	return quote
}

// BuyMargin 买入加价百分比
func (p *TradingPair) BuyMargin() decimal.Decimal {
	if p.BuyMarginPercent.Valid {
		return p.BuyMarginPercent.Decimal
	}
	return p.MarginPercent
}

// SellMargin 卖出加价百分比
func (p *TradingPair) SellMargin() decimal.Decimal {
	if p.SellMarginPercent.Valid {
		return p.SellMarginPercent.Decimal
	}
	return p.MarginPercent
}

// FallbackRate 无行情时的基准汇率：人工汇率非零优先，否则配置汇率
func (p *TradingPair) FallbackRate() decimal.Decimal {
	if p.ManualRate.Valid && !p.ManualRate.Decimal.IsZero() {
		return p.ManualRate.Decimal
	}
	return p.Rate
}

// RateQuote 解析后的交易对报价，DisplayRate 未含加价
type RateQuote struct {
	Pair              string
	Base              string
	Quote             string
	Rate              decimal.Decimal
	ManualRate        decimal.NullDecimal
	MarginPercent     decimal.Decimal
	BuyMarginPercent  decimal.Decimal
	SellMarginPercent decimal.Decimal
	IsAutomated       bool
	// 是否采用了实时行情
	Live        bool
	DisplayRate decimal.Decimal
}

// MarginFor 按方向取加价百分比
func (q RateQuote) MarginFor(side Side) decimal.Decimal {
	if side == SideSell {
		return q.SellMarginPercent
	}
	return q.BuyMarginPercent
}

// NewRateQuote 用基准汇率构造报价
func NewRateQuote(p *TradingPair, baseRate decimal.Decimal, live bool) RateQuote {
	return RateQuote{
		Pair:              p.Pair,
		Base:              p.Base(),
		Quote:             p.Quote(),
		Rate:              p.Rate,
		ManualRate:        p.ManualRate,
		MarginPercent:     p.MarginPercent,
		BuyMarginPercent:  p.BuyMargin(),
		SellMarginPercent: p.SellMargin(),
		IsAutomated:       p.IsAutomated,
		Live:              live,
		DisplayRate:       baseRate,
	}
}

// TradingPairRepository 交易对仓储接口
type TradingPairRepository interface {
	List(ctx context.Context) ([]*TradingPair, error)
	// Upsert 按 pair 插入或更新
	Upsert(ctx context.Context, pair *TradingPair) error
	// Delete 不存在时返回 ErrPairNotFound
	Delete(ctx context.Context, pair string) error
}
