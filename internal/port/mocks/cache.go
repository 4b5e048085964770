package mocks

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rl1809/catalog-orders/internal/port"
)

// ErrCacheDown is returned by every Cache call while the cache is down.
var ErrCacheDown = errors.New("cache backend unreachable")

type cacheEntry struct {
	value []byte
	ttl   time.Duration
}

// Cache is an in-memory port.CacheRepository that records deletions.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	down    bool
	deleted []string
}

func NewCache() *Cache {
	return &Cache{entries: map[string]cacheEntry{}}
}

// SetDown makes every subsequent call fail with ErrCacheDown.
func (c *Cache) SetDown(down bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.down = down
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return nil, ErrCacheDown
	}
	e, ok := c.entries[key]
	if !ok {
		return nil, port.ErrCacheMiss
	}
	return e.value, nil
}

func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return ErrCacheDown
	}
	c.entries[key] = cacheEntry{value: value, ttl: ttl}
	return nil
}

func (c *Cache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return ErrCacheDown
	}
	for _, k := range keys {
		delete(c.entries, k)
		c.deleted = append(c.deleted, k)
	}
	return nil
}

func (c *Cache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return ErrCacheDown
	}
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	c.deleted = append(c.deleted, prefix+"*")
	return nil
}

// Put stores a raw value, bypassing the down switch.
func (c *Cache) Put(key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, ttl: ttl}
}

func (c *Cache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

func (c *Cache) TTL(key string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[key].ttl
}

func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Deleted lists every key passed to Delete, and prefix+"*" for DeletePrefix.
func (c *Cache) Deleted() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.deleted...)
}
