package utils

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheItem 包装缓存数据和写入时间
type CacheItem[V any] struct {
	Data     V
	StoredAt time.Time
}

// TTLCache 本地 LRU 缓存，条目超过 ttl 后视为未命中。
// 过期条目不会在读取时删除，下一次 Set 会覆盖它。
type TTLCache[V any] struct {
	lruCache *lru.Cache[string, CacheItem[V]]
	ttl      time.Duration
	now      func() time.Time
}

// NewTTLCache 创建容量为 size 的缓存；now 为 nil 时使用 time.Now
func NewTTLCache[V any](size int, ttl time.Duration, now func() time.Time) (*TTLCache[V], error) {
	l, err := lru.New[string, CacheItem[V]](size)
	if err != nil {
		return nil, fmt.Errorf("create LRU cache: %w", err)
	}
	if now == nil {
		now = time.Now
	}
	return &TTLCache[V]{lruCache: l, ttl: ttl, now: now}, nil
}

// Set 无条件替换 key 对应的条目，并记录当前时间
func (c *TTLCache[V]) Set(key string, data V) {
	c.lruCache.Add(key, CacheItem[V]{
		Data:     data,
		StoredAt: c.now(),
	})
}

// Get returns the entry only while now - StoredAt < ttl.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	var zero V
	val, ok := c.lruCache.Get(key)
	if !ok {
		return zero, false
	}
	if c.now().Sub(val.StoredAt) >= c.ttl {
		return zero, false
	}
	return val.Data, true
}

// Delete 删除指定缓存，不存在时什么也不做
func (c *TTLCache[V]) Delete(key string) {
	c.lruCache.Remove(key)
}
