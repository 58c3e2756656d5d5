// Package executor runs one search end to end: hybrid ranking under a time
// budget, the field scorer when hybrid ranking fails, and filter suggestions
// when nothing matches.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/embedding"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/fallback"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/fusion"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/suggest"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/tracing"
)

// Mode records which scorer produced a result.
type Mode string

const (
	ModeHybrid   Mode = "hybrid"
	ModeFallback Mode = "fallback"
	ModeEmpty    Mode = "empty"
)

type SearchResult struct {
	Query          string                `json:"query"`
	Terms          []string              `json:"terms"`
	TotalHits      int                   `json:"total_hits"`
	Results        []fusion.RankedResult `json:"results"`
	Mode           Mode                  `json:"mode"`
	FallbackReason string                `json:"fallback_reason,omitempty"`
	Suggestions    *suggest.Suggestions  `json:"suggestions,omitempty"`
	Generation     uint64                `json:"index_generation"`
	LatencyMs      float64               `json:"latency_ms"`
}

// IndexSource hands out the index a search should pin. *indexer.Engine
// implements it.
type IndexSource interface {
	Current() *index.SearchIndex
}

type staticSource struct {
	idx *index.SearchIndex
}

func (s staticSource) Current() *index.SearchIndex { return s.idx }

// StaticSource serves a fixed index.
func StaticSource(idx *index.SearchIndex) IndexSource {
	if idx == nil {
		idx = index.Empty()
	}
	return staticSource{idx: idx}
}

// Ranker produces hybrid results. *fusion.Ranker implements it.
type Ranker interface {
	Rank(ctx context.Context, terms []string, queryText string, idx *index.SearchIndex, opts fusion.Options) ([]fusion.RankedResult, error)
}

type Executor struct {
	source   IndexSource
	hybrid   Ranker
	fallback *fallback.Scorer
	vocab    suggest.Vocabulary
	timeout  time.Duration
	slow     time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type Option func(*Executor)

// WithFallback replaces the default field scorer.
func WithFallback(s *fallback.Scorer) Option {
	return func(e *Executor) { e.fallback = s }
}

// WithVocabulary sets the suggestion vocabulary.
func WithVocabulary(v suggest.Vocabulary) Option {
	return func(e *Executor) { e.vocab = v }
}

// WithPipelineTimeout bounds the hybrid pass; exceeding it falls back to
// the field scorer. Zero disables the bound.
func WithPipelineTimeout(d time.Duration) Option {
	return func(e *Executor) { e.timeout = d }
}

// WithSlowQueryLog logs the span tree of every search that takes at least
// d. Zero disables it.
func WithSlowQueryLog(d time.Duration) Option {
	return func(e *Executor) { e.slow = d }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

func New(source IndexSource, hybrid Ranker, opts ...Option) *Executor {
	e := &Executor{
		source:   source,
		hybrid:   hybrid,
		fallback: fallback.NewScorer(nil),
		vocab:    suggest.DefaultVocabulary(),
		logger:   slog.Default().With("component", "query-executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute searches the current index. A blank query returns an empty result
// without scoring anything. Hybrid failures, panics and timeouts are answered
// by the field scorer; the only error returned is the caller's own context
// being cancelled.
func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan, opts fusion.Options) (*SearchResult, error) {
	if plan.IsEmpty() {
		raw := ""
		if plan != nil {
			raw = plan.RawQuery
		}
		return &SearchResult{
			Query:   raw,
			Terms:   []string{},
			Results: []fusion.RankedResult{},
			Mode:    ModeEmpty,
		}, nil
	}

	log := logger.FromContext(ctx).With("component", "query-executor")
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "search", logger.RequestID(ctx))
	span.SetAttr("query", plan.Text)
	defer func() {
		span.End()
		if e.slow > 0 && span.Duration() >= e.slow {
			log.Warn("slow search", "query", plan.Text, "duration_ms", span.Duration().Milliseconds())
			span.Log(log)
		}
	}()
	idx := e.source.Current()
	if idx == nil {
		idx = index.Empty()
	}

	result := &SearchResult{
		Query:      plan.RawQuery,
		Terms:      plan.Terms,
		Mode:       ModeHybrid,
		Generation: idx.Generation(),
	}

	// hybrid may still be written by an abandoned stage after a timeout, so
	// it is read only when WithTimeout reports success.
	var hybrid []fusion.RankedResult
	err := resilience.WithTimeout(ctx, e.timeout, "hybrid-search", func(ctx context.Context) error {
		_, hs := tracing.StartChildSpan(ctx, "hybrid")
		defer hs.End()
		r, err := e.hybrid.Rank(ctx, plan.Terms, plan.Text, idx, opts)
		if err != nil {
			return err
		}
		hybrid = r
		return nil
	})

	var results []fusion.RankedResult
	if err == nil {
		results = hybrid
	} else {
		if ctx.Err() != nil {
			e.countQuery(ModeHybrid, "error")
			return nil, fmt.Errorf("search cancelled: %w", ctx.Err())
		}
		reason := fallbackReason(err)
		log.Warn("hybrid search failed, using field scorer",
			"query", plan.Text,
			"reason", reason,
			"error", err,
		)
		if e.metrics != nil {
			e.metrics.FallbacksTotal.WithLabelValues(reason).Inc()
		}
		results, err = e.runFallback(ctx, plan, idx, opts)
		if err != nil {
			if ctx.Err() != nil {
				e.countQuery(ModeFallback, "error")
				return nil, fmt.Errorf("search cancelled: %w", ctx.Err())
			}
			log.Error("field scorer failed, returning no results", "query", plan.Text, "error", err)
			results = []fusion.RankedResult{}
		}
		result.Mode = ModeFallback
		result.FallbackReason = reason
	}

	result.Results = results
	result.TotalHits = len(results)
	if len(results) == 0 {
		_, ss := tracing.StartChildSpan(ctx, "suggest")
		s := e.vocab.Suggest(plan.Text)
		ss.End()
		result.Suggestions = &s
		if e.metrics != nil {
			e.metrics.SuggestionsTotal.WithLabelValues("category").Add(float64(len(s.Categories)))
			e.metrics.SuggestionsTotal.WithLabelValues("subcategory").Add(float64(len(s.Subcategories)))
		}
	}
	result.LatencyMs = float64(time.Since(start).Microseconds()) / 1000

	outcome := "results"
	if len(results) == 0 {
		outcome = "no_results"
	}
	e.countQuery(result.Mode, outcome)
	if e.metrics != nil {
		e.metrics.SearchResultsCount.Observe(float64(len(results)))
	}
	log.Debug("query executed",
		"query", plan.Text,
		"terms", plan.Terms,
		"mode", result.Mode,
		"results", len(results),
		"generation", result.Generation,
	)
	return result, nil
}

func (e *Executor) runFallback(ctx context.Context, plan *parser.QueryPlan, idx *index.SearchIndex, opts fusion.Options) ([]fusion.RankedResult, error) {
	_, span := tracing.StartChildSpan(ctx, "fallback")
	defer span.End()
	var results []fusion.RankedResult
	err := resilience.Recover("field-scorer", func() error {
		r, err := e.fallback.Score(ctx, plan.Text, idx, opts.MaxResults)
		if err != nil {
			return err
		}
		results = r
		return nil
	})
	return results, err
}

func (e *Executor) countQuery(mode Mode, outcome string) {
	if e.metrics != nil {
		e.metrics.SearchQueriesTotal.WithLabelValues(string(mode), outcome).Inc()
	}
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, resilience.ErrPanic):
		return "panic"
	default:
		return "error"
	}
}

// Search is the library entry point: it ranks query against idx with the
// bag-of-words provider and default fallback and vocabulary. nil opts means
// DefaultOptions. A blank query returns no results without searching.
func Search(ctx context.Context, query string, idx *index.SearchIndex, opts *fusion.Options) ([]fusion.RankedResult, error) {
	o := fusion.DefaultOptions()
	if opts != nil {
		o = *opts
	}
	exec := New(StaticSource(idx), fusion.NewRanker(embedding.NewBagOfWords()))
	res, err := exec.Execute(ctx, parser.Parse(query), o)
	if err != nil {
		return nil, err
	}
	return res.Results, nil
}
