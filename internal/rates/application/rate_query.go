// Package application 汇率应用服务：报价解析与交易对管理
package application

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/youngberry1/coindarks-sub001/internal/rates/domain"
	"github.com/youngberry1/coindarks-sub001/pkg/logger"
)

// RateResolver 加载交易对并合并自动交易对的实时行情
type RateResolver struct {
	repo domain.TradingPairRepository
	feed domain.PriceFeed
}

// NewRateResolver 创建报价解析器
func NewRateResolver(repo domain.TradingPairRepository, feed domain.PriceFeed) *RateResolver {
	return &RateResolver{repo: repo, feed: feed}
}

// LoadRates 返回全部交易对的报价，行情失败时回落到配置汇率
func (r *RateResolver) LoadRates(ctx context.Context) ([]domain.RateQuote, error) {
	pairs, err := r.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load trading pairs: %w", err)
	}
	if len(pairs) == 0 {
		return []domain.RateQuote{}, nil
	}

	ids, currencies := feedRequest(pairs)
	prices := domain.Prices{}
	if len(ids) > 0 && r.feed != nil {
		live, err := r.feed.SimplePrices(ctx, ids, currencies)
		if err != nil {
			logger.Warn(ctx, "Price feed unavailable, using configured rates", "error", err)
		} else if live != nil {
			prices = live
		}
	}

	quotes := make([]domain.RateQuote, 0, len(pairs))
	for _, p := range pairs {
		quotes = append(quotes, resolve(p, prices))
	}
	return quotes, nil
}

func resolve(p *domain.TradingPair, prices domain.Prices) domain.RateQuote {
	if p.IsAutomated {
		if id, ok := domain.FeedID(p.Base()); ok {
			if live, ok := prices.Lookup(id, p.Quote()); ok {
				return domain.NewRateQuote(p, live, true)
			}
		}
	}

	base := p.FallbackRate()
	if base.IsNegative() {
		base = decimal.Zero
	}
	return domain.NewRateQuote(p, base, false)
}

// feedRequest 收集行情 ID 与小写计价货币，排序后保证缓存 key 稳定
func feedRequest(pairs []*domain.TradingPair) ([]string, []string) {
	idSet := map[string]struct{}{}
	ccySet := map[string]struct{}{}
	for _, p := range pairs {
		if id, ok := domain.FeedID(p.Base()); ok {
			idSet[id] = struct{}{}
		}
		if q := strings.ToLower(p.Quote()); q != "" {
			ccySet[q] = struct{}{}
		}
	}
	if len(ccySet) == 0 {
		ccySet["usd"] = struct{}{}
	}
	return sortedKeys(idSet), sortedKeys(ccySet)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
