// Package indexer owns the live SearchIndex. It fetches the corpus, builds a
// fresh index, and atomically swaps it in so searches always score against
// one complete snapshot.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/content"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// Status describes the outcome of the most recent rebuild attempt.
type Status struct {
	Generation  uint64                 `json:"generation"`
	BuiltAt     time.Time              `json:"built_at"`
	Stats       index.CorpusStatistics `json:"stats"`
	LastAttempt time.Time              `json:"last_attempt"`
	LastError   string                 `json:"last_error,omitempty"`
	Ready       bool                   `json:"ready"`
}

// RebuildHook observes every rebuild attempt. idx is nil when err is set.
type RebuildHook func(idx *index.SearchIndex, duration time.Duration, err error)

type Engine struct {
	fetcher    content.Fetcher
	hooks      []RebuildHook
	cfg        config.IndexerConfig
	metrics    *metrics.Metrics
	logger     *slog.Logger
	current    atomic.Pointer[index.SearchIndex]
	generation atomic.Uint64
	group      singleflight.Group

	statusMu    sync.RWMutex
	lastAttempt time.Time
	lastErr     error
	ready       bool
}

// NewEngine creates an Engine serving an empty index until the first
// successful Rebuild. m may be nil.
func NewEngine(fetcher content.Fetcher, cfg config.IndexerConfig, m *metrics.Metrics) *Engine {
	e := &Engine{
		fetcher: fetcher,
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "indexer"),
	}
	e.current.Store(index.Empty())
	return e
}

// OnRebuild registers h. It must be called before the first Rebuild.
func (e *Engine) OnRebuild(h RebuildHook) {
	e.hooks = append(e.hooks, h)
}

// Current returns the index searches should use. It is never nil.
func (e *Engine) Current() *index.SearchIndex {
	return e.current.Load()
}

// Rebuild fetches the corpus and swaps in a freshly built index. Concurrent
// calls share one rebuild. When the fetch fails the previous index stays in
// place and is returned together with the error.
func (e *Engine) Rebuild(ctx context.Context) (*index.SearchIndex, error) {
	// A caller going away must not abort a rebuild other callers share.
	ctx = context.WithoutCancel(ctx)
	v, err, shared := e.group.Do("rebuild", func() (any, error) {
		return e.rebuild(ctx)
	})
	if shared {
		e.logger.Debug("rebuild request coalesced")
	}
	if err != nil {
		return e.Current(), err
	}
	return v.(*index.SearchIndex), nil
}

func (e *Engine) rebuild(ctx context.Context) (*index.SearchIndex, error) {
	start := time.Now()
	if e.cfg.RebuildTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.RebuildTimeout)
		defer cancel()
	}

	docs, err := e.fetcher.FetchCorpus(ctx)
	e.recordAttempt(start, err)
	if err != nil {
		prev := e.Current()
		e.logger.Error("corpus fetch failed, keeping previous index",
			"error", err,
			"generation", prev.Generation(),
			"documents", prev.Len(),
		)
		if e.metrics != nil {
			e.metrics.IndexRebuildsTotal.WithLabelValues("failed").Inc()
		}
		err = fmt.Errorf("rebuilding index: %w", err)
		e.notify(nil, time.Since(start), err)
		return nil, err
	}

	gen := e.generation.Add(1)
	idx := index.Build(docs, index.WithGeneration(gen), index.WithLogger(e.logger))
	e.current.Store(idx)

	stats := idx.Stats()
	duration := time.Since(start)
	if e.metrics != nil {
		e.metrics.IndexRebuildsTotal.WithLabelValues("success").Inc()
		e.metrics.IndexRebuildDuration.Observe(duration.Seconds())
		e.metrics.IndexDocuments.Set(float64(stats.DocCount))
		e.metrics.IndexTerms.Set(float64(stats.TermCount))
		e.metrics.IndexGeneration.Set(float64(gen))
	}
	e.logger.Info("index rebuilt",
		"generation", gen,
		"documents", stats.DocCount,
		"terms", stats.TermCount,
		"avg_doc_length", stats.AvgDocLength,
		"duration_ms", duration.Milliseconds(),
	)
	e.notify(idx, duration, nil)
	return idx, nil
}

func (e *Engine) notify(idx *index.SearchIndex, d time.Duration, err error) {
	for _, h := range e.hooks {
		h(idx, d, err)
	}
}

func (e *Engine) recordAttempt(at time.Time, err error) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	e.lastAttempt = at
	e.lastErr = err
	if err == nil {
		e.ready = true
	}
}

// Status reports the current index and the last rebuild attempt.
func (e *Engine) Status() Status {
	idx := e.Current()
	e.statusMu.RLock()
	defer e.statusMu.RUnlock()
	s := Status{
		Generation:  idx.Generation(),
		BuiltAt:     idx.BuiltAt(),
		Stats:       idx.Stats(),
		LastAttempt: e.lastAttempt,
		Ready:       e.ready,
	}
	if e.lastErr != nil {
		s.LastError = e.lastErr.Error()
	}
	return s
}

// StartRefreshLoop rebuilds the index every RefreshInterval until ctx is
// cancelled. A non-positive interval disables the loop.
func (e *Engine) StartRefreshLoop(ctx context.Context) {
	if e.cfg.RefreshInterval <= 0 {
		e.logger.Info("periodic refresh disabled")
		return
	}
	ticker := time.NewTicker(e.cfg.RefreshInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				e.logger.Info("refresh loop stopping")
				return
			case <-ticker.C:
				if _, err := e.Rebuild(ctx); err != nil {
					e.logger.Warn("periodic refresh failed", "error", err)
				}
			}
		}
	}()
}
