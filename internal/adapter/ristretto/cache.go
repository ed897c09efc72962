// Package ristretto caches Crowdin project details in process.
package ristretto

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// minCounters keeps admission sane for small budgets.
const minCounters = 1000

// Cache implements cache.Cache on a ristretto cache. Values are costed by
// their length in bytes.
type Cache struct {
	c *ristretto.Cache[string, []byte]
}

// New creates a Cache holding at most maxCostBytes of values.
func New(maxCostBytes int64) (*Cache, error) {
	if maxCostBytes <= 0 {
		return nil, fmt.Errorf("ristretto: max cost must be positive, got %d", maxCostBytes)
	}
	counters := maxCostBytes / 100
	if counters < minCounters {
		counters = minCounters
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: counters,
		MaxCost:     maxCostBytes,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("ristretto: %w", err)
	}
	return &Cache{c: c}, nil
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, found := c.c.Get(key)
	if !found {
		return nil, false, nil
	}
	return val, true, nil
}

// Set stores a copy of value. Writes are applied asynchronously and may be
// rejected by the admission policy.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	v := append([]byte(nil), value...)
	c.c.SetWithTTL(key, v, int64(len(v)), ttl)
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.c.Del(key)
	return nil
}

func (c *Cache) Clear(_ context.Context) error {
	c.c.Clear()
	return nil
}

// Wait blocks until buffered writes are applied.
func (c *Cache) Wait() {
	c.c.Wait()
}

// HitRatio returns the share of Get calls that found a value.
func (c *Cache) HitRatio() float64 {
	return c.c.Metrics.Ratio()
}

// Close stops the cache's background goroutines.
func (c *Cache) Close() {
	c.c.Close()
}
