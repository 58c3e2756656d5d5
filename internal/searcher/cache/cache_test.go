package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/content"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/fusion"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/redis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-process Store.
type memStore struct {
	mu     sync.Mutex
	data   map[string]string
	getErr error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (s *memStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", s.getErr
	}
	v, ok := s.data[key]
	if !ok {
		return "", pkgredis.ErrMiss
	}
	return v, nil
}

func (s *memStore) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = string(value.([]byte))
	return nil
}

func (s *memStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

func result(mode executor.Mode, ids ...string) *executor.SearchResult {
	res := &executor.SearchResult{Mode: mode, Results: []fusion.RankedResult{}}
	for _, id := range ids {
		res.Results = append(res.Results, fusion.RankedResult{Document: content.Document{ID: id}})
	}
	return res
}

func TestKey_NormalisesCaseAndWhitespace(t *testing.T) {
	opts := fusion.DefaultOptions()
	a := Key{Query: "  Arsenal   Chelsea ", Options: opts, Generation: 3}
	b := Key{Query: "arsenal chelsea", Options: opts, Generation: 3}

	assert.Equal(t, a.String(), b.String())
	assert.True(t, strings.HasPrefix(a.String(), keyPrefix))
}

func TestKey_DistinguishesOrderOptionsAndGeneration(t *testing.T) {
	base := Key{Query: "arsenal chelsea", Options: fusion.DefaultOptions(), Generation: 3}

	reordered := base
	reordered.Query = "chelsea arsenal"
	reweighted := base
	reweighted.Options.SimilarityWeight = 0
	limited := base
	limited.Options.MaxResults = 5
	rebuilt := base
	rebuilt.Generation = 4

	seen := map[string]bool{base.String(): true}
	for _, k := range []Key{reordered, reweighted, limited, rebuilt} {
		assert.False(t, seen[k.String()], "key %+v collides", k)
		seen[k.String()] = true
	}
}

func TestGetOrCompute_CachesHybridResults(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	c := New(newMemStore(), time.Minute, m)
	key := Key{Query: "arsenal", Options: fusion.DefaultOptions(), Generation: 1}
	var computed atomic.Int32
	compute := func() (*executor.SearchResult, error) {
		computed.Add(1)
		res := result(executor.ModeHybrid, "1", "3")
		res.Generation = 1
		return res, nil
	}

	first, cached, err := c.GetOrCompute(context.Background(), key, compute)
	require.NoError(t, err)
	assert.False(t, cached)

	second, cached, err := c.GetOrCompute(context.Background(), key, compute)
	require.NoError(t, err)
	assert.True(t, cached)

	assert.Equal(t, int32(1), computed.Load())
	assert.Equal(t, first.Results[1].Document.ID, second.Results[1].Document.ID)
	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))
}

func TestGetOrCompute_DoesNotCacheFallbackOrErrors(t *testing.T) {
	store := newMemStore()
	c := New(store, time.Minute, nil)
	key := Key{Query: "arsenal", Options: fusion.DefaultOptions()}

	_, _, err := c.GetOrCompute(context.Background(), key, func() (*executor.SearchResult, error) {
		return nil, errors.New("cancelled")
	})
	require.Error(t, err)

	_, _, err = c.GetOrCompute(context.Background(), key, func() (*executor.SearchResult, error) {
		return result(executor.ModeFallback, "1"), nil
	})
	require.NoError(t, err)

	assert.Empty(t, store.data)
}

func TestGetOrCompute_SkipsResultFromNewerGeneration(t *testing.T) {
	// Given: a key taken at generation 1 and a rebuild landing before the search pins its index
	store := newMemStore()
	c := New(store, time.Minute, nil)
	key := Key{Query: "arsenal", Options: fusion.DefaultOptions(), Generation: 1}

	// When: the computed result was scored against generation 2
	res, cached, err := c.GetOrCompute(context.Background(), key, func() (*executor.SearchResult, error) {
		r := result(executor.ModeHybrid, "1")
		r.Generation = 2
		return r, nil
	})

	// Then: the caller gets it, but it is not stored under the generation 1 key
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, uint64(2), res.Generation)
	assert.Empty(t, store.data)
}

func TestGet_StoreErrorIsAMiss(t *testing.T) {
	store := newMemStore()
	store.getErr = errors.New("connection refused")
	c := New(store, time.Minute, nil)

	_, ok := c.Get(context.Background(), Key{Query: "arsenal"})

	assert.False(t, ok)
	_, misses := c.Stats()
	assert.Equal(t, int64(1), misses)
}

func TestInvalidate(t *testing.T) {
	store := newMemStore()
	store.data["unrelated"] = "x"
	c := New(store, time.Minute, nil)
	c.Set(context.Background(), Key{Query: "arsenal"}, result(executor.ModeHybrid, "1"))
	c.Set(context.Background(), Key{Query: "chelsea"}, result(executor.ModeHybrid, "1"))

	deleted, err := c.Invalidate(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.Contains(t, store.data, "unrelated")
}
