package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youngberry1/coindarks-sub001/internal/rates/domain"
)

type countingFeed struct {
	calls int
	err   error
}

func (f *countingFeed) SimplePrices(context.Context, []string, []string) (domain.Prices, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return domain.Prices{"bitcoin": {"usd": decimal.NewFromInt(60000)}}, nil
}

func TestCachedPriceFeedServesFromCache(t *testing.T) {
	upstream := &countingFeed{}
	feed := NewCachedPriceFeed(upstream, NewMemoryStore(time.Minute), time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		prices, err := feed.SimplePrices(ctx, []string{"bitcoin"}, []string{"usd"})
		require.NoError(t, err)
		_, ok := prices.Lookup("bitcoin", "usd")
		assert.True(t, ok)
	}
	assert.Equal(t, 1, upstream.calls)

	_, err := feed.SimplePrices(ctx, []string{"bitcoin"}, []string{"ghs"})
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.calls)
}

func TestCachedPriceFeedDoesNotCacheErrors(t *testing.T) {
	upstream := &countingFeed{err: errors.New("timeout")}
	feed := NewCachedPriceFeed(upstream, NewMemoryStore(time.Minute), time.Minute, nil)
	ctx := context.Background()

	_, err := feed.SimplePrices(ctx, []string{"bitcoin"}, []string{"usd"})
	assert.Error(t, err)
	_, err = feed.SimplePrices(ctx, []string{"bitcoin"}, []string{"usd"})
	assert.Error(t, err)
	assert.Equal(t, 2, upstream.calls)
}
