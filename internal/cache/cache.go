// ABOUTME: HTTP response caching for vulnerability feed requests.
// ABOUTME: A TTL memory tier fronts an on-disk cache that survives across invocations.

package cache

import (
	"sync"
	"time"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTTL      = 30 * time.Minute
	cleanupInterval = 10 * time.Minute
)

type CacheEntry struct {
	Data      []byte
	ExpiresAt time.Time
}

// MemoryCache is an in-memory httpcache.Cache whose entries expire after a TTL
type MemoryCache struct {
	cache  map[string]*CacheEntry
	mutex  sync.RWMutex
	ttl    time.Duration
	logger *logrus.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

var _ httpcache.Cache = (*MemoryCache)(nil)

func NewMemoryCache(ttl time.Duration, logger *logrus.Logger) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	cache := &MemoryCache{
		cache:  make(map[string]*CacheEntry),
		ttl:    ttl,
		logger: logger,
		stop:   make(chan struct{}),
	}

	// Start cleanup goroutine
	go cache.startCleanup()

	return cache
}

func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.cache[key]
	if !exists {
		return nil, false
	}

	// Expired entries are left for the cleanup goroutine
	if time.Now().After(entry.ExpiresAt) {
		return nil, false
	}

	c.logger.WithField("key", key).Trace("Memory cache hit")
	return entry.Data, true
}

func (c *MemoryCache) Set(key string, data []byte) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache[key] = &CacheEntry{
		Data:      data,
		ExpiresAt: time.Now().Add(c.ttl),
	}

	c.logger.WithField("key", key).Trace("Cached feed response")
}

func (c *MemoryCache) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.cache, key)
}

// Close stops the cleanup goroutine
func (c *MemoryCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *MemoryCache) startCleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *MemoryCache) cleanup() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	expiredCount := 0

	for key, entry := range c.cache {
		if now.After(entry.ExpiresAt) {
			delete(c.cache, key)
			expiredCount++
		}
	}

	if expiredCount > 0 {
		c.logger.WithFields(logrus.Fields{
			"expired_entries":   expiredCount,
			"remaining_entries": len(c.cache),
		}).Debug("Cache cleanup completed")
	}
}

func (c *MemoryCache) Stats() (total int, expired int) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	now := time.Now()
	total = len(c.cache)

	for _, entry := range c.cache {
		if now.After(entry.ExpiresAt) {
			expired++
		}
	}

	return total, expired
}

// TieredCache serves from memory first and falls back to a persistent tier,
// back-filling memory on a persistent hit.
type TieredCache struct {
	memory     *MemoryCache
	persistent httpcache.Cache
}

var _ httpcache.Cache = (*TieredCache)(nil)

// NewTieredCache creates a cache persisted under dir. An empty dir keeps
// responses in memory only.
func NewTieredCache(dir string, ttl time.Duration, logger *logrus.Logger) *TieredCache {
	var persistent httpcache.Cache
	if dir != "" {
		persistent = diskcache.New(dir)
		logger.WithField("cache_dir", dir).Debug("Using on-disk feed response cache")
	}

	return &TieredCache{
		memory:     NewMemoryCache(ttl, logger),
		persistent: persistent,
	}
}

func (t *TieredCache) Get(key string) ([]byte, bool) {
	if data, ok := t.memory.Get(key); ok {
		return data, true
	}
	if t.persistent == nil {
		return nil, false
	}

	data, ok := t.persistent.Get(key)
	if ok {
		t.memory.Set(key, data)
	}
	return data, ok
}

func (t *TieredCache) Set(key string, data []byte) {
	t.memory.Set(key, data)
	if t.persistent != nil {
		t.persistent.Set(key, data)
	}
}

func (t *TieredCache) Delete(key string) {
	t.memory.Delete(key)
	if t.persistent != nil {
		t.persistent.Delete(key)
	}
}

func (t *TieredCache) Close() {
	t.memory.Close()
}

func (t *TieredCache) Stats() (total int, expired int) {
	return t.memory.Stats()
}
