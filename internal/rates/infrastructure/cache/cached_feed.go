// Package cache 为行情源提供短时快照缓存
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/youngberry1/coindarks-sub001/internal/rates/domain"
	pkgcache "github.com/youngberry1/coindarks-sub001/pkg/cache"
	"github.com/youngberry1/coindarks-sub001/pkg/logger"
	"github.com/youngberry1/coindarks-sub001/pkg/metrics"
)

// SnapshotStore 行情快照存储
type SnapshotStore interface {
	Get(ctx context.Context, key string) (domain.Prices, bool)
	Set(ctx context.Context, key string, prices domain.Prices, ttl time.Duration)
}

// CachedPriceFeed 以请求参数为 key 缓存行情快照，错误结果不缓存
type CachedPriceFeed struct {
	next    domain.PriceFeed
	store   SnapshotStore
	ttl     time.Duration
	metrics *metrics.Metrics
}

// NewCachedPriceFeed 创建带缓存的行情源
func NewCachedPriceFeed(next domain.PriceFeed, store SnapshotStore, ttl time.Duration, m *metrics.Metrics) *CachedPriceFeed {
	return &CachedPriceFeed{next: next, store: store, ttl: ttl, metrics: m}
}

// SimplePrices 先查缓存，未命中再请求上游
func (f *CachedPriceFeed) SimplePrices(ctx context.Context, ids, currencies []string) (domain.Prices, error) {
	key := "price_feed:" + strings.Join(ids, ",") + ":" + strings.Join(currencies, ",")
	if prices, ok := f.store.Get(ctx, key); ok {
		f.metrics.RecordPriceFeed("hit")
		return prices, nil
	}

	prices, err := f.next.SimplePrices(ctx, ids, currencies)
	if err != nil {
		f.metrics.RecordPriceFeed("error")
		return nil, err
	}
	f.metrics.RecordPriceFeed("ok")
	f.store.Set(ctx, key, prices, f.ttl)
	return prices, nil
}

// MemoryStore 进程内快照存储
type MemoryStore struct {
	cache *pkgcache.MemoryCache[string, domain.Prices]
}

// NewMemoryStore 创建进程内快照存储
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{cache: pkgcache.NewMemoryCache[string, domain.Prices](ttl)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (domain.Prices, bool) {
	return s.cache.Get(key)
}

func (s *MemoryStore) Set(_ context.Context, key string, prices domain.Prices, ttl time.Duration) {
	s.cache.Set(key, prices, ttl)
}

// RedisStore 多实例共享的 Redis 快照存储，Redis 故障视为未命中
type RedisStore struct {
	cache *pkgcache.RedisCache
}

// NewRedisStore 创建 Redis 快照存储
func NewRedisStore(c *pkgcache.RedisCache) *RedisStore {
	return &RedisStore{cache: c}
}

func (s *RedisStore) Get(ctx context.Context, key string) (domain.Prices, bool) {
	var prices domain.Prices
	ok, err := s.cache.GetJSON(ctx, key, &prices)
	if err != nil || !ok {
		return nil, false
	}
	return prices, true
}

func (s *RedisStore) Set(ctx context.Context, key string, prices domain.Prices, ttl time.Duration) {
	if err := s.cache.SetJSON(ctx, key, prices, ttl); err != nil {
		logger.Warn(ctx, "Failed to cache price snapshot", "key", key, "error", err)
	}
}
