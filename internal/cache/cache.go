// Package cache memoizes analysis records by key so repeated requests do not
// call the model again.
package cache

import (
	"context"
	"fmt"
	"sync/atomic"

	"resumelens/internal/config"
	"resumelens/internal/errors"
	"resumelens/internal/types"

	"golang.org/x/sync/singleflight"
)

// Store persists records by key. Implementations must be safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (types.AnalysisRecord, bool, error)
	Set(ctx context.Context, key string, record types.AnalysisRecord) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Len(ctx context.Context) (int, error)
	Backend() string
	Close() error
}

// Recorder receives lookup outcomes, typically for metrics
type Recorder interface {
	RecordCacheLookup(ctx context.Context, backend string, hit bool)
}

// ComputeFunc produces the record for a missing key
type ComputeFunc func(ctx context.Context) (types.AnalysisRecord, error)

// Stats is a snapshot of cache activity
type Stats struct {
	Backend string `json:"backend"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
	Stores  int64  `json:"stores"`
	Entries int    `json:"entries"`
}

// AnalysisCache coordinates lookups so that each key is computed at most once
// at a time. Callers always receive their own copy of the record.
type AnalysisCache struct {
	store       Store
	group       singleflight.Group
	cacheErrors bool
	recorder    Recorder
	logger      *errors.Logger

	hits   atomic.Int64
	misses atomic.Int64
	stores atomic.Int64
}

// New wraps store. With cacheErrors false, records carrying an error field are
// returned but not stored.
func New(store Store, cacheErrors bool, logger *errors.Logger) *AnalysisCache {
	return &AnalysisCache{
		store:       store,
		cacheErrors: cacheErrors,
		logger:      logger,
	}
}

// NewFromConfig builds the cache for the configured backend. It returns nil
// when caching is disabled; a nil cache computes every request.
func NewFromConfig(cfg config.CacheConfig, logger *errors.Logger) (*AnalysisCache, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	var store Store
	switch cfg.Backend {
	case config.CacheBackendMemory, "":
		store = NewMemoryStore()
	case config.CacheBackendRedis:
		redisStore, err := NewRedisStore(cfg, logger)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("unknown cache backend: %s", cfg.Backend), nil)
	}

	logger.Info("Analysis cache initialized",
		"backend", store.Backend(),
		"cache_errors", cfg.CacheErrors)

	return New(store, cfg.CacheErrors, logger), nil
}

// SetRecorder installs a lookup recorder
func (c *AnalysisCache) SetRecorder(r Recorder) {
	if c != nil {
		c.recorder = r
	}
}

// GetOrCompute returns the record stored under key, or runs fn and stores its
// result. An empty key or a nil cache always runs fn. Errors from fn are
// returned and never stored.
func (c *AnalysisCache) GetOrCompute(ctx context.Context, key string, fn ComputeFunc) (types.AnalysisRecord, error) {
	if c == nil || key == "" {
		return fn(ctx)
	}

	if record, ok := c.lookup(ctx, key); ok {
		c.hits.Add(1)
		c.record(ctx, true)
		return record.Clone(), nil
	}

	// fn runs detached from the caller that started it; each caller stops
	// waiting on its own ctx. The gateway timeout bounds fn.
	ch := c.group.DoChan(key, func() (any, error) {
		computeCtx := context.WithoutCancel(ctx)

		// Another caller may have stored the key while we waited
		if record, ok := c.lookup(computeCtx, key); ok {
			c.hits.Add(1)
			c.record(computeCtx, true)
			return record, nil
		}

		c.misses.Add(1)
		c.record(computeCtx, false)

		record, err := fn(computeCtx)
		if err != nil {
			return nil, err
		}

		if record.HasError() && !c.cacheErrors {
			c.debug("Not caching failed analysis", "key", key)
			return record, nil
		}

		if err := c.store.Set(computeCtx, key, record.Clone()); err != nil {
			c.warn("Failed to store analysis in cache", key, err)
		} else {
			c.stores.Add(1)
		}
		return record, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(types.AnalysisRecord).Clone(), nil
	}
}

// Delete removes key from the cache
func (c *AnalysisCache) Delete(ctx context.Context, key string) error {
	if c == nil {
		return nil
	}
	return c.store.Delete(ctx, key)
}

// Clear removes every entry
func (c *AnalysisCache) Clear(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.store.Clear(ctx)
}

// Stats returns counters and the current number of entries
func (c *AnalysisCache) Stats(ctx context.Context) Stats {
	if c == nil {
		return Stats{Backend: "disabled"}
	}

	entries, err := c.store.Len(ctx)
	if err != nil {
		c.warn("Failed to count cache entries", "", err)
		entries = -1
	}

	return Stats{
		Backend: c.store.Backend(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Stores:  c.stores.Load(),
		Entries: entries,
	}
}

// Close releases the underlying store
func (c *AnalysisCache) Close() error {
	if c == nil {
		return nil
	}
	return c.store.Close()
}

// lookup treats store errors as misses
func (c *AnalysisCache) lookup(ctx context.Context, key string) (types.AnalysisRecord, bool) {
	record, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.warn("Cache lookup failed, treating as miss", key, err)
		return nil, false
	}
	return record, ok
}

func (c *AnalysisCache) record(ctx context.Context, hit bool) {
	if c.recorder != nil {
		c.recorder.RecordCacheLookup(ctx, c.store.Backend(), hit)
	}
}

func (c *AnalysisCache) warn(message, key string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Warn(message,
		"backend", c.store.Backend(),
		"key", key,
		"error_code", errors.ErrCodeCacheUnavailable,
		"error", err.Error())
}

func (c *AnalysisCache) debug(message string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(message, args...)
	}
}
