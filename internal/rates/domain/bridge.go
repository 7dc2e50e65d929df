package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// NoRateError 资产既无直连交易对也无美元交易对
type NoRateError struct {
	Asset string
}

func (e *NoRateError) Error() string {
	return fmt.Sprintf("No exchange rate found for %s.", e.Asset)
}

// usdQuotes 资产美元报价的查找顺序
var usdQuotes = []string{"USD", "USDT"}

// bridgeAssets 美元类资产到法币的桥接顺序
var bridgeAssets = []string{"USDT", "USDC", "USD"}

// EffectiveRate 加价前的有效汇率
type EffectiveRate struct {
	Rate          decimal.Decimal
	MarginPercent decimal.Decimal
	// 提供汇率的交易对
	SourcePair string
	Bridged    bool
	// 桥接交易对，使用固定兜底系数时为空
	BridgePair string
	Multiplier decimal.Decimal
}

// RateBridger 无直连交易对时经美元桥接合成有效汇率
type RateBridger struct {
	fallbacks map[string]decimal.Decimal
}

// NewRateBridger fallbacks 为法币代码到固定美元兑换系数的映射
func NewRateBridger(fallbacks map[string]decimal.Decimal) *RateBridger {
	fb := make(map[string]decimal.Decimal, len(fallbacks))
	for k, v := range fallbacks {
		fb[strings.ToUpper(k)] = v
	}
	return &RateBridger{fallbacks: fb}
}

// Resolve 计算 asset/fiat 的有效汇率与对应方向的加价
func (b *RateBridger) Resolve(asset, fiat string, side Side, quotes []RateQuote) (EffectiveRate, error) {
	asset = strings.ToUpper(asset)
	fiat = strings.ToUpper(fiat)

	index := make(map[string]RateQuote, len(quotes))
	for _, q := range quotes {
		index[q.Pair] = q
	}

	// 直连交易对优先
	if direct, ok := index[PairName(asset, fiat)]; ok && direct.DisplayRate.IsPositive() {
		return EffectiveRate{
			Rate:          direct.DisplayRate,
			MarginPercent: direct.MarginFor(side),
			SourcePair:    direct.Pair,
			Multiplier:    decimal.NewFromInt(1),
		}, nil
	}

	usd, ok := b.usdQuote(asset, index)
	if !ok {
		return EffectiveRate{}, &NoRateError{Asset: asset}
	}

	multiplier, bridgePair := b.bridgeMultiplier(fiat, index)
	return EffectiveRate{
		Rate:          usd.DisplayRate.Mul(multiplier),
		MarginPercent: usd.MarginFor(side),
		SourcePair:    usd.Pair,
		Bridged:       true,
		BridgePair:    bridgePair,
		Multiplier:    multiplier,
	}, nil
}

// usdQuote 优先取有正汇率的美元报价，都为零时返回第一个存在的
func (b *RateBridger) usdQuote(asset string, index map[string]RateQuote) (RateQuote, bool) {
	var first RateQuote
	found := false
	for _, ccy := range usdQuotes {
		q, ok := index[PairName(asset, ccy)]
		if !ok {
			continue
		}
		if q.DisplayRate.IsPositive() {
			return q, true
		}
		if !found {
			first, found = q, true
		}
	}
	return first, found
}

func (b *RateBridger) bridgeMultiplier(fiat string, index map[string]RateQuote) (decimal.Decimal, string) {
	for _, stable := range bridgeAssets {
		if q, ok := index[PairName(stable, fiat)]; ok && q.DisplayRate.IsPositive() {
			return q.DisplayRate, q.Pair
		}
	}
	if v, ok := b.fallbacks[fiat]; ok && v.IsPositive() {
		return v, ""
	}
	return decimal.NewFromInt(1), ""
}

var hundred = decimal.NewFromInt(100)

// ApplyMargin 按方向加价：买入上浮、卖出下浮，不做截断
func ApplyMargin(effective, marginPercent decimal.Decimal, side Side) decimal.Decimal {
	factor := marginPercent.Div(hundred)
	if side == SideSell {
		return effective.Mul(decimal.NewFromInt(1).Sub(factor))
	}
	return effective.Mul(decimal.NewFromInt(1).Add(factor))
}
