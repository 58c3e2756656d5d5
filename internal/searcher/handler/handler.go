// Package handler exposes search, suggestions, index status and cache
// control over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/fusion"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/suggest"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/middleware"
)

const topTermsShown = 20

type SearchExecutor interface {
	Execute(ctx context.Context, plan *parser.QueryPlan, opts fusion.Options) (*executor.SearchResult, error)
}

// IndexEngine is satisfied by *indexer.Engine.
type IndexEngine interface {
	Current() *index.SearchIndex
	Rebuild(ctx context.Context) (*index.SearchIndex, error)
	Status() indexer.Status
}

// Tracker is satisfied by *analytics.Collector.
type Tracker interface {
	Track(event any)
}

type Handler struct {
	executor SearchExecutor
	engine   IndexEngine
	vocab    suggest.Vocabulary
	cache    *cache.QueryCache
	tracker  Tracker
	cfg      config.SearchConfig
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New builds a Handler. queryCache, tracker and m may be nil.
func New(
	exec SearchExecutor,
	engine IndexEngine,
	vocab suggest.Vocabulary,
	queryCache *cache.QueryCache,
	tracker Tracker,
	cfg config.SearchConfig,
	m *metrics.Metrics,
) *Handler {
	return &Handler{
		executor: exec,
		engine:   engine,
		vocab:    vocab,
		cache:    queryCache,
		tracker:  tracker,
		cfg:      cfg,
		metrics:  m,
		logger:   slog.Default().With("component", "search-handler"),
	}
}

// Register mounts every route on mux. The mutating admin routes are wrapped
// in protect, which may be nil.
func (h *Handler) Register(mux *http.ServeMux, protect func(http.Handler) http.Handler) {
	if protect == nil {
		protect = func(next http.Handler) http.Handler { return next }
	}
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/suggest", h.Suggest)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.Handle("POST /api/v1/index/rebuild", protect(http.HandlerFunc(h.Rebuild)))
	mux.Handle("POST /api/v1/cache/invalidate", protect(http.HandlerFunc(h.CacheInvalidate)))
}

// Search answers GET /api/v1/search?q=&limit=&lexical_weight=&similarity_weight=.
// A blank q returns an empty result.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	opts, err := h.parseOptions(r)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	query := r.URL.Query().Get("q")
	plan := parser.Parse(query)
	if plan.IsEmpty() {
		result, _ := h.executor.Execute(ctx, plan, opts)
		h.writeJSON(w, http.StatusOK, result)
		return
	}

	cacheStatus := "disabled"
	var result *executor.SearchResult
	if h.cache != nil {
		key := cache.Key{Query: plan.Text, Options: opts, Generation: h.engine.Current().Generation()}
		var cached bool
		result, cached, err = h.cache.GetOrCompute(ctx, key, func() (*executor.SearchResult, error) {
			return h.executor.Execute(ctx, plan, opts)
		})
		cacheStatus = "miss"
		if cached {
			cacheStatus = "hit"
		}
	} else {
		result, err = h.executor.Execute(ctx, plan, opts)
	}
	if err != nil {
		log.Warn("search aborted", "query", query, "error", err)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			err = apperrors.New(apperrors.ErrTimeout, http.StatusServiceUnavailable, "search cancelled")
		}
		h.writeAppError(w, err)
		return
	}

	latency := time.Since(start)
	if h.metrics != nil {
		h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
	}
	log.Info("search completed",
		"query", query,
		"mode", result.Mode,
		"returned", len(result.Results),
		"cache", cacheStatus,
		"generation", result.Generation,
		"latency_ms", latency.Milliseconds(),
	)
	if h.tracker != nil {
		h.tracker.Track(analytics.NewSearchEvent(result, cacheStatus == "hit", latency, middleware.GetRequestID(ctx)))
	}

	w.Header().Set("X-Cache", cacheStatus)
	h.writeJSON(w, http.StatusOK, result)
}

// parseOptions applies the configured defaults and validates overrides.
func (h *Handler) parseOptions(r *http.Request) (fusion.Options, error) {
	opts := fusion.Options{
		LexicalWeight:    h.cfg.LexicalWeight,
		SimilarityWeight: h.cfg.SimilarityWeight,
		MaxResults:       h.cfg.DefaultLimit,
	}
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return opts, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer")
		}
		if h.cfg.MaxResults > 0 && n > h.cfg.MaxResults {
			n = h.cfg.MaxResults
		}
		opts.MaxResults = n
	}
	for name, dst := range map[string]*float64{
		"lexical_weight":    &opts.LexicalWeight,
		"similarity_weight": &opts.SimilarityWeight,
	} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || math.IsInf(f, 0) || math.IsNaN(f) {
			return opts, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "%s must be a non-negative number", name)
		}
		*dst = f
	}
	return opts, nil
}

// Suggest answers GET /api/v1/suggest?q= with category and subcategory
// filters close to q.
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.vocab.Suggest(r.URL.Query().Get("q")))
}

type indexStats struct {
	indexer.Status
	TopTerms []index.TermStat `json:"top_terms"`
}

func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, indexStats{
		Status:   h.engine.Status(),
		TopTerms: h.engine.Current().TopTerms(topTermsShown),
	})
}

// Rebuild answers POST /api/v1/index/rebuild. A failed fetch leaves the
// previous index serving and answers 503.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	if _, err := h.engine.Rebuild(r.Context()); err != nil {
		logger.FromContext(r.Context()).Error("manual rebuild failed", "error", err)
		h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]any{
			"error":  "index rebuild failed",
			"status": h.engine.Status(),
		})
		return
	}
	h.writeJSON(w, http.StatusOK, h.engine.Status())
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	h.writeError(w, apperrors.HTTPStatusCode(err), apperrors.PublicMessage(err))
}
