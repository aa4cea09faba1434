// Package cache stores serialized ranked query results keyed by index, index
// build and normalized query terms.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gcbaptista/go-vsr-engine/internal/logger"
)

const keyPrefix = "vsr:rank:"

// Cache is a read-through cache of ranked results.
type Cache interface {
	// GetOrCompute returns the cached value for key, or calls compute, stores its
	// result and returns it. Concurrent misses for the same key share one compute.
	// The bool reports a cache hit.
	GetOrCompute(ctx context.Context, key string, compute func() ([]byte, error)) ([]byte, bool, error)
	// InvalidateIndex drops every entry of an index.
	InvalidateIndex(ctx context.Context, index string) error
	Stats() (hits, misses int64)
	Close() error
}

// Key builds the cache key of a ranked query. Term order does not change a cosine
// ranking, so terms are sorted; duplicates are kept because they change query weights.
// The generation makes entries of a previous build unreachable. Generations restart
// with every process, so the build time tells apart replicas sharing one Redis.
func Key(index string, generation uint64, builtAt time.Time, terms []string, page, pageSize int) string {
	sorted := make([]string, len(terms))
	copy(sorted, terms)
	sort.Strings(sorted)

	raw := fmt.Sprintf("%s|page=%d|size=%d", strings.Join(sorted, ","), page, pageSize)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%s:%d.%d:%x", keyPrefix, index, generation, builtAt.UnixNano(), hash[:16])
}

func indexPattern(index string) string {
	return keyPrefix + index + ":"
}

type counters struct {
	hits   atomic.Int64
	misses atomic.Int64
}

func (c *counters) Stats() (int64, int64) {
	return c.hits.Load(), c.misses.Load()
}

// MemoryCache keeps entries in process memory. It is used when Redis is not
// configured and by tests.
type MemoryCache struct {
	counters
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	group   singleflight.Group
	logger  *slog.Logger
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// NewMemoryCache creates an in-process cache. A ttl of 0 keeps entries until invalidated.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		logger:  logger.WithComponent("cache"),
	}
}

func (c *MemoryCache) get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || (!entry.expires.IsZero() && time.Now().After(entry.expires)) {
		return nil, false
	}
	return entry.value, true
}

func (c *MemoryCache) set(key string, value []byte) {
	entry := memoryEntry{value: value}
	if c.ttl > 0 {
		entry.expires = time.Now().Add(c.ttl)
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
}

func (c *MemoryCache) GetOrCompute(ctx context.Context, key string, compute func() ([]byte, error)) ([]byte, bool, error) {
	if value, ok := c.get(key); ok {
		c.hits.Add(1)
		return value, true, nil
	}
	c.misses.Add(1)

	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if value, ok := c.get(key); ok {
			return value, nil
		}
		value, err := compute()
		if err != nil {
			return nil, err
		}
		c.set(key, value)
		return value, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]byte), false, nil
}

func (c *MemoryCache) InvalidateIndex(ctx context.Context, index string) error {
	prefix := indexPattern(index)

	c.mu.Lock()
	defer c.mu.Unlock()

	deleted := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			deleted++
		}
	}
	c.logger.Debug("cache invalidate", "index", index, "keys_deleted", deleted)
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *MemoryCache) Close() error {
	return nil
}
