// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embedcache memoizes embedding vectors per (normalized text,
// model id). Concurrent lookups of one key share a single provider call,
// and a computed vector is reused for the lifetime of the cache. An
// optional Store persists vectors across processes.
//
// See docs/ARCHITECTURE § EmbeddingCache.
package embedcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pdiddy/paperscout/internal/embedding"
	"github.com/pdiddy/paperscout/internal/metrics"
)

// ErrModelMismatch means the model id passed to GetOrCompute does not
// match the provider's own id.
var ErrModelMismatch = errors.New("model id does not match provider")

// Stats counts cache activity since construction or the last Clear.
type Stats struct {
	Entries      int   `json:"entries"`
	Hits         int64 `json:"hits"`
	StoreHits    int64 `json:"store_hits"`
	Misses       int64 `json:"misses"`
	Computations int64 `json:"computations"`
	Failures     int64 `json:"failures"`
}

// Cache is safe for concurrent use. The zero value is not usable; call New.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key][]float64

	group   singleflight.Group
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics

	hits, storeHits, misses, computations, failures atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithStore enables read-through and write-through persistence.
func WithStore(s Store) Option {
	return func(c *Cache) { c.store = s }
}

// WithLogger sets the logger for persistence warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithMetrics mirrors lookups and provider calls into prometheus.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// New returns an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{entries: make(map[Key][]float64)}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// GetOrCompute returns the vector for text under modelID, calling
// provider at most once per key for the lifetime of the cache. The
// returned slice is a copy the caller may modify.
//
// A caller whose ctx ends while waiting gets ctx.Err(); the shared
// computation keeps running under the provider's own timeout and its
// result is still stored. Provider errors are returned and not cached.
func (c *Cache) GetOrCompute(ctx context.Context, text, modelID string, provider embedding.Provider) ([]float64, error) {
	if provider == nil {
		return nil, errors.New("nil embedding provider")
	}
	if modelID != provider.ModelID() {
		return nil, fmt.Errorf("%w: %q vs %q", ErrModelMismatch, modelID, provider.ModelID())
	}

	key := NewKey(text, modelID)
	if vec, ok := c.lookup(key); ok {
		c.hits.Add(1)
		c.metrics.IncCacheLookup(metrics.CacheHit)
		return clone(vec), nil
	}

	ch := c.group.DoChan(c.flightKey(key), func() (any, error) {
		// Re-check: a flight for this key may have finished between the
		// lookup above and this call.
		if vec, ok := c.lookup(key); ok {
			c.hits.Add(1)
			c.metrics.IncCacheLookup(metrics.CacheHit)
			return vec, nil
		}
		return c.compute(context.WithoutCancel(ctx), key, text, provider)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return clone(res.Val.([]float64)), nil
	}
}

// compute loads key from the store or calls the provider, and records the
// result. It runs once per in-flight key.
func (c *Cache) compute(ctx context.Context, key Key, text string, provider embedding.Provider) ([]float64, error) {
	if c.store != nil {
		vec, ok, err := c.store.Load(ctx, key)
		if err != nil {
			c.logger.Warn("embedding store read failed", "model", key.Model, "error", err)
		}
		if ok && len(vec) == provider.Dimensions() {
			c.storeHits.Add(1)
			c.metrics.IncCacheLookup(metrics.CacheStoreHit)
			c.put(key, vec)
			return vec, nil
		}
	}

	c.misses.Add(1)
	c.metrics.IncCacheLookup(metrics.CacheMiss)

	start := time.Now()
	vec, err := provider.Embed(ctx, text)
	c.metrics.ObserveEmbedding(key.Model, err, time.Since(start).Seconds())
	if err != nil {
		c.failures.Add(1)
		return nil, err
	}
	c.computations.Add(1)

	vec = clone(vec)
	c.put(key, vec)
	if c.store != nil {
		if err := c.store.Save(ctx, key, vec); err != nil {
			c.logger.Warn("embedding store write failed", "model", key.Model, "error", err)
		}
	}
	return vec, nil
}

// Stats returns a snapshot of the counters and the in-memory entry count.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	return Stats{
		Entries:      n,
		Hits:         c.hits.Load(),
		StoreHits:    c.storeHits.Load(),
		Misses:       c.misses.Load(),
		Computations: c.computations.Load(),
		Failures:     c.failures.Load(),
	}
}

// Len returns the number of vectors held in memory.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops every in-memory vector, resets the counters and empties
// the store.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.entries = make(map[Key][]float64)
	c.mu.Unlock()

	c.hits.Store(0)
	c.storeHits.Store(0)
	c.misses.Store(0)
	c.computations.Store(0)
	c.failures.Store(0)

	if c.store != nil {
		if err := c.store.Clear(ctx); err != nil {
			return fmt.Errorf("clearing embedding store: %w", err)
		}
	}
	return nil
}

// Store returns the configured persistence backend, or nil.
func (c *Cache) Store() Store { return c.store }

// Close releases the store.
func (c *Cache) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

func (c *Cache) lookup(key Key) ([]float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vec, ok := c.entries[key]
	return vec, ok
}

func (c *Cache) put(key Key, vec []float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = vec
}

// flightKey is unambiguous because model ids never contain a NUL byte.
func (c *Cache) flightKey(key Key) string {
	return key.Model + "\x00" + key.Text
}

func clone(vec []float64) []float64 {
	out := make([]float64, len(vec))
	copy(out, vec)
	return out
}
