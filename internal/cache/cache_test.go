// ABOUTME: Unit tests for feed response caching functionality.
// ABOUTME: Tests TTL expiry, the memory/disk tiers, and concurrent access.

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "https://pypi.org/pypi/jinja2/2.4.1/json"

func TestMemoryCache(t *testing.T) {
	logger := logrus.New()
	cache := NewMemoryCache(time.Minute, logger)
	defer cache.Close()

	testResponse := []byte("HTTP/1.1 200 OK\r\n\r\n{}")

	t.Run("cache miss", func(t *testing.T) {
		result, ok := cache.Get("nonexistent")
		if ok || result != nil {
			t.Error("Expected cache miss, but got result")
		}
	})

	t.Run("cache hit", func(t *testing.T) {
		cache.Set(testKey, testResponse)

		result, ok := cache.Get(testKey)
		if !ok {
			t.Fatal("Expected cache hit, but got miss")
		}

		if string(result) != string(testResponse) {
			t.Errorf("Data mismatch: got %q, want %q", result, testResponse)
		}
	})

	t.Run("cache stats", func(t *testing.T) {
		total, expired := cache.Stats()
		if total < 1 {
			t.Errorf("Expected at least 1 cache entry, got %d", total)
		}

		if expired > total {
			t.Errorf("Expired count (%d) cannot be greater than total (%d)", expired, total)
		}
	})

	t.Run("delete", func(t *testing.T) {
		cache.Delete(testKey)
		_, ok := cache.Get(testKey)
		assert.False(t, ok)
	})
}

func TestCacheExpiration(t *testing.T) {
	logger := logrus.New()
	cache := &MemoryCache{
		cache:  make(map[string]*CacheEntry),
		ttl:    100 * time.Millisecond, // Very short TTL for testing
		logger: logger,
		stop:   make(chan struct{}),
	}

	cache.Set(testKey, []byte("response"))

	// Should be available immediately
	if _, ok := cache.Get(testKey); !ok {
		t.Error("Expected cache hit immediately after set")
	}

	// Wait for expiration
	time.Sleep(150 * time.Millisecond)

	if _, ok := cache.Get(testKey); ok {
		t.Error("Expected cache miss after expiration")
	}

	total, expired := cache.Stats()
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, expired)

	cache.cleanup()
	total, _ = cache.Stats()
	assert.Equal(t, 0, total)
}

func TestNewMemoryCacheDefaultTTL(t *testing.T) {
	cache := NewMemoryCache(0, logrus.New())
	defer cache.Close()

	assert.Equal(t, DefaultTTL, cache.ttl)

	// closing twice is safe
	cache.Close()
}

func TestTieredCachePersistsAcrossInstances(t *testing.T) {
	logger := logrus.New()
	dir := t.TempDir()

	first := NewTieredCache(dir, time.Minute, logger)
	first.Set(testKey, []byte("cached response"))
	first.Close()

	second := NewTieredCache(dir, time.Minute, logger)
	defer second.Close()

	data, ok := second.Get(testKey)
	require.True(t, ok, "expected the on-disk tier to serve the entry")
	assert.Equal(t, "cached response", string(data))

	// the persistent hit back-fills memory
	data, ok = second.memory.Get(testKey)
	require.True(t, ok)
	assert.Equal(t, "cached response", string(data))

	second.Delete(testKey)
	_, ok = second.Get(testKey)
	assert.False(t, ok)
}

func TestTieredCacheMemoryOnly(t *testing.T) {
	cache := NewTieredCache("", time.Minute, logrus.New())
	defer cache.Close()

	_, ok := cache.Get(testKey)
	assert.False(t, ok)

	cache.Set(testKey, []byte("x"))
	data, ok := cache.Get(testKey)
	assert.True(t, ok)
	assert.Equal(t, "x", string(data))

	total, _ := cache.Stats()
	assert.Equal(t, 1, total)
}

func TestTieredCacheConcurrentAccess(t *testing.T) {
	cache := NewTieredCache(t.TempDir(), time.Minute, logrus.New())
	defer cache.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("%s-%d", testKey, i%5)
			cache.Set(key, []byte(key))
			data, ok := cache.Get(key)
			assert.True(t, ok)
			assert.Equal(t, key, string(data))
		}(i)
	}
	wg.Wait()
}
