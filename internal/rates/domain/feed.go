package domain

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// feedIDs 资产代码到外部行情 ID 的映射，不在表中的资产不请求实时行情
var feedIDs = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"USDT": "tether",
	"USDC": "usd-coin",
	"BNB":  "binancecoin",
	"SOL":  "solana",
	"LTC":  "litecoin",
	"TRX":  "tron",
	"XRP":  "ripple",
	"DOGE": "dogecoin",
}

// FeedID 返回资产对应的行情 ID
func FeedID(asset string) (string, bool) {
	id, ok := feedIDs[strings.ToUpper(asset)]
	return id, ok
}

// Prices 行情快照：feed id -> 小写货币 -> 价格
type Prices map[string]map[string]decimal.Decimal

// Lookup 查询价格，只返回正数
func (p Prices) Lookup(feedID, currency string) (decimal.Decimal, bool) {
	byCcy, ok := p[feedID]
	if !ok {
		return decimal.Zero, false
	}
	v, ok := byCcy[strings.ToLower(currency)]
	if !ok || !v.IsPositive() {
		return decimal.Zero, false
	}
	return v, true
}

// PriceFeed 外部现货行情源
type PriceFeed interface {
	// SimplePrices 批量查询 ids × currencies 的现货价格
	SimplePrices(ctx context.Context, ids, currencies []string) (Prices, error)
}
