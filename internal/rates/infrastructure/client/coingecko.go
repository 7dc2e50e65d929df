package client

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/youngberry1/coindarks-sub001/internal/rates/domain"
)

// CoinGeckoClient 兼容 /simple/price 接口的行情客户端
type CoinGeckoClient struct {
	client *resty.Client
}

// NewCoinGeckoClient 创建行情客户端，apiKey 为空时不带鉴权头
func NewCoinGeckoClient(baseURL, apiKey string, timeout time.Duration) *CoinGeckoClient {
	c := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		c.SetHeader("x-cg-demo-api-key", apiKey)
	}
	return &CoinGeckoClient{client: c}
}

// SimplePrices 查询现货价格，非数值或非正的条目被忽略
func (c *CoinGeckoClient) SimplePrices(ctx context.Context, ids, currencies []string) (domain.Prices, error) {
	if len(ids) == 0 || len(currencies) == 0 {
		return domain.Prices{}, nil
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ids":           strings.Join(ids, ","),
			"vs_currencies": strings.Join(currencies, ","),
		}).
		Get("/simple/price")
	if err != nil {
		return nil, errors.Wrap(err, "price feed request failed")
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, errors.Errorf("price feed returned status %d", resp.StatusCode())
	}

	var raw map[string]map[string]json.Number
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, errors.Wrap(err, "decode price feed response")
	}

	prices := make(domain.Prices, len(raw))
	for id, byCcy := range raw {
		for ccy, num := range byCcy {
			v, err := decimal.NewFromString(num.String())
			if err != nil || !v.IsPositive() {
				continue
			}
			if prices[id] == nil {
				prices[id] = map[string]decimal.Decimal{}
			}
			prices[id][strings.ToLower(ccy)] = v
		}
	}
	return prices, nil
}
