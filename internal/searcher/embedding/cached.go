package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/metrics"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of vectors kept when no size is given.
const DefaultCacheSize = 4096

// CachedProvider memoises another Provider in an LRU keyed by the text and
// the provider name. Document texts repeat on every search, so after the
// first query most document vectors come from the cache.
type CachedProvider struct {
	inner   Provider
	cache   *lru.Cache[string, Vector]
	metrics *metrics.Metrics
}

// NewCachedProvider wraps inner with an LRU of cacheSize entries. m may be nil.
func NewCachedProvider(inner Provider, cacheSize int, m *metrics.Metrics) *CachedProvider {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, _ := lru.New[string, Vector](cacheSize)
	return &CachedProvider{
		inner:   inner,
		cache:   cache,
		metrics: m,
	}
}

func (c *CachedProvider) cacheKey(text string) string {
	hash := sha256.Sum256([]byte(text + "\x00" + c.inner.Name()))
	return hex.EncodeToString(hash[:])
}

func (c *CachedProvider) Encode(ctx context.Context, text string) (Vector, error) {
	key := c.cacheKey(text)
	if vec, ok := c.cache.Get(key); ok {
		c.observe("hit")
		return vec, nil
	}
	c.observe("miss")
	vec, err := c.inner.Encode(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, vec)
	return vec, nil
}

func (c *CachedProvider) Name() string {
	return c.inner.Name()
}

// Len returns the number of cached vectors.
func (c *CachedProvider) Len() int {
	return c.cache.Len()
}

// Purge drops every cached vector.
func (c *CachedProvider) Purge() {
	c.cache.Purge()
}

func (c *CachedProvider) observe(result string) {
	if c.metrics != nil {
		c.metrics.EmbeddingCacheTotal.WithLabelValues(result).Inc()
	}
}
