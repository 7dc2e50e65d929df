package cache

import (
	"sync"
	"time"
)

// MemoryCache 进程内 TTL 缓存，未启用 Redis 时使用
type MemoryCache[K comparable, V any] struct {
	mu         sync.RWMutex
	items      map[K]memoryItem[V]
	defaultTTL time.Duration
	now        func() time.Time
}

type memoryItem[V any] struct {
	value     V
	expiresAt time.Time
}

// NewMemoryCache 创建内存缓存
func NewMemoryCache[K comparable, V any](defaultTTL time.Duration) *MemoryCache[K, V] {
	return &MemoryCache[K, V]{
		items:      make(map[K]memoryItem[V]),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Get 获取缓存值，过期项视为未命中
func (c *MemoryCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || !c.now().Before(item.expiresAt) {
		var zero V
		return zero, false
	}
	return item.value, true
}

// Set 设置缓存值，ttl 为 0 时使用默认时长
func (c *MemoryCache[K, V]) Set(key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// 写入时顺带清理过期项
	now := c.now()
	for k, it := range c.items {
		if !now.Before(it.expiresAt) {
			delete(c.items, k)
		}
	}
	c.items[key] = memoryItem[V]{value: value, expiresAt: now.Add(ttl)}
}

// Delete 删除缓存项
func (c *MemoryCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Size 当前缓存项数量（含尚未清理的过期项）
func (c *MemoryCache[K, V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
