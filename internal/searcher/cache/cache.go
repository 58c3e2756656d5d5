// Package cache stores search results in Redis. Keys cover the normalised
// query, the ranking options and the index generation, so a rebuild makes
// every older entry unreachable without an explicit flush.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/fusion"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "search:"

// Store is the subset of *pkgredis.Client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

var _ Store = (*pkgredis.Client)(nil)

// Key identifies one cacheable search.
type Key struct {
	Query      string
	Options    fusion.Options
	Generation uint64
}

func (k Key) String() string {
	raw := fmt.Sprintf("%s|n=%d|wl=%g|ws=%g|gen=%d",
		normalizeQuery(k.Query), k.Options.MaxResults,
		k.Options.LexicalWeight, k.Options.SimilarityWeight, k.Generation)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(store Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Get returns a cached result. Store and decoding failures count as misses.
func (c *QueryCache) Get(ctx context.Context, key Key) (*executor.SearchResult, bool) {
	k := key.String()
	data, err := c.store.Get(ctx, k)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", k, "error", err)
		}
		c.miss()
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", k, "error", err)
		c.miss()
		return nil, false
	}
	c.hit()
	c.logger.Debug("cache hit", "query", key.Query, "key", k)
	return &result, true
}

// Set stores result. Degraded results are not cached so the next request
// retries the hybrid pipeline, and neither is a result scored against a
// different index generation than the key names.
func (c *QueryCache) Set(ctx context.Context, key Key, result *executor.SearchResult) {
	if result == nil || result.Mode == executor.ModeFallback {
		return
	}
	if result.Generation != key.Generation {
		c.logger.Debug("index rebuilt during search, not caching",
			"query", key.Query, "key_generation", key.Generation, "result_generation", result.Generation)
		return
	}
	k := key.String()
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", k, "error", err)
		return
	}
	if err := c.store.Set(ctx, k, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", k, "error", err)
	}
}

// GetOrCompute returns the cached result for key or runs computeFn once per
// key across concurrent callers. cached reports whether the result came from
// the store.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	key Key,
	computeFn func() (*executor.SearchResult, error),
) (result *executor.SearchResult, cached bool, err error) {
	if result, ok := c.Get(ctx, key); ok {
		return result, true, nil
	}
	val, err, _ := c.group.Do(key.String(), func() (interface{}, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.SearchResult), false, nil
}

// Invalidate removes every cached search.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// normalizeQuery lower-cases and collapses whitespace. Word order is kept:
// the field scorer's exact match depends on it.
func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}
