package di

import (
	"context"
	"sync"
	"time"

	"flowcanvas/application/ports"
)

// janitorInterval is how often expired entries are swept out.
const janitorInterval = time.Minute

// InMemoryCache is the process-local cache behind ports.Cache. The
// bridge uses it for validation reports keyed by document revision;
// entries for superseded revisions simply age out.
type InMemoryCache struct {
	mu    sync.RWMutex
	items map[string]cacheItem

	stopJanitor chan struct{}
	stopOnce    sync.Once
}

type cacheItem struct {
	value     interface{}
	expiresAt time.Time
}

var _ ports.Cache = (*InMemoryCache)(nil)

// NewInMemoryCache creates a cache and starts its expiry janitor.
func NewInMemoryCache() *InMemoryCache {
	cache := &InMemoryCache{
		items:       make(map[string]cacheItem),
		stopJanitor: make(chan struct{}),
	}
	go cache.janitor()
	return cache
}

// Get retrieves a value. Expired entries read as absent even before the
// janitor removes them.
func (c *InMemoryCache) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists || time.Now().After(item.expiresAt) {
		return nil, false
	}
	return item.value, true
}

// Set stores a value with a TTL in seconds.
func (c *InMemoryCache) Set(ctx context.Context, key string, value interface{}, ttl int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = cacheItem{
		value:     value,
		expiresAt: time.Now().Add(time.Duration(ttl) * time.Second),
	}
	return nil
}

// Delete removes a value.
func (c *InMemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
	return nil
}

// Clear removes all values.
func (c *InMemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]cacheItem)
	return nil
}

// Close stops the expiry janitor. Safe to call more than once.
func (c *InMemoryCache) Close() {
	c.stopOnce.Do(func() {
		close(c.stopJanitor)
	})
}

func (c *InMemoryCache) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopJanitor:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, item := range c.items {
				if now.After(item.expiresAt) {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
