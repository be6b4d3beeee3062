package cache

import (
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Cache memoizes expensive block-pinned computations by deterministic key.
// Concurrent callers for the same key share a single in-flight producer;
// entries expire ttl after completion. Construct one instance at startup and
// inject it everywhere; tests build their own isolated instance.
type Cache struct {
	store  *ristretto.Cache
	group  singleflight.Group
	logger *zap.Logger
}

// New builds a Cache. A nil logger falls back to a no-op logger.
func New(logger *zap.Logger) (*Cache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1 << 16,
		MaxCost:     1 << 14,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create cache store: %w", err)
	}

	return &Cache{store: store, logger: logger}, nil
}

// Key joins the deterministic inputs of a computation into a cache key.
// Every parameter that affects the result must be part of the key.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// Wrap returns the cached value for key, or runs producer and caches its
// result for ttl. At most one producer runs per key at a time; all waiters
// receive the result of that single invocation. Producer errors are never
// cached. The producer's completion does not depend on any individual
// waiter's lifecycle.
func (c *Cache) Wrap(key string, ttl time.Duration, producer func() (interface{}, error)) (interface{}, error) {
	if value, ok := c.store.Get(key); ok {
		return value, nil
	}

	value, err, shared := c.group.Do(key, func() (interface{}, error) {
		if value, ok := c.store.Get(key); ok {
			return value, nil
		}

		value, err := producer()
		if err != nil {
			return nil, err
		}

		c.store.SetWithTTL(key, value, 1, ttl)
		c.store.Wait()
		return value, nil
	})
	if err != nil {
		return nil, err
	}

	if shared {
		c.logger.Debug("cache in-flight hit", zap.String("key", key))
	}
	return value, nil
}

// Close releases the underlying store.
func (c *Cache) Close() {
	c.store.Close()
}
