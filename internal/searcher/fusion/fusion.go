// Package fusion combines BM25 and vector similarity into one ranking. Base
// relevance is sorted first; contextual boosts are applied afterwards and the
// list is re-sorted stably, so boosts reorder documents without discarding
// the relevance order among equals.
package fusion

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/content"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/embedding"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/resilience"
)

const (
	DefaultLexicalWeight    = 0.6
	DefaultSimilarityWeight = 0.4
	DefaultMaxResults       = 10
)

// Options are taken literally: a zero weight switches that signal off. Only a
// non-positive MaxResults falls back to DefaultMaxResults.
type Options struct {
	LexicalWeight    float64 `json:"lexical_weight"`
	SimilarityWeight float64 `json:"similarity_weight"`
	MaxResults       int     `json:"max_results"`
}

func DefaultOptions() Options {
	return Options{
		LexicalWeight:    DefaultLexicalWeight,
		SimilarityWeight: DefaultSimilarityWeight,
		MaxResults:       DefaultMaxResults,
	}
}

// RankedResult is one scored document in a response.
type RankedResult struct {
	Document        content.Document `json:"document"`
	LexicalScore    float64          `json:"lexical_score"`
	SimilarityScore float64          `json:"similarity_score"`
	FusedScore      float64          `json:"fused_score"`
	Boost           float64          `json:"boost"`
	Score           float64          `json:"score"`
}

// Ranker runs the hybrid scoring pass. It is safe for concurrent use when its
// Provider is.
type Ranker struct {
	provider embedding.Provider
	now      func() time.Time
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Ranker)

// WithClock overrides the clock used for recency boosts.
func WithClock(now func() time.Time) Option {
	return func(r *Ranker) { r.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Ranker) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Ranker) { r.metrics = m }
}

func NewRanker(provider embedding.Provider, opts ...Option) *Ranker {
	r := &Ranker{
		provider: provider,
		now:      time.Now,
		logger:   slog.Default().With("component", "fusion-ranker"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank scores every document in idx against the query and returns at most
// opts.MaxResults results with a positive fused score. terms are the
// tokenized query and queryText the trimmed query the vector layer encodes.
// A failing vector layer zeroes similarity for all documents instead of
// failing the search; only context cancellation is returned as an error.
func (r *Ranker) Rank(ctx context.Context, terms []string, queryText string, idx *index.SearchIndex, opts Options) ([]RankedResult, error) {
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	docs := idx.Documents()

	var sims []float64
	if opts.SimilarityWeight != 0 {
		var err error
		sims, err = r.similarities(ctx, queryText, docs)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			r.logger.Warn("vector similarity failed, using lexical scores only",
				"provider", r.provider.Name(),
				"error", err,
			)
			if r.metrics != nil {
				r.metrics.EmbeddingFailuresTotal.Inc()
			}
			sims = nil
		}
	}

	results := make([]RankedResult, 0)
	for i, doc := range docs {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		lex := ranker.Score(terms, doc, idx)
		var sim float64
		if sims != nil {
			sim = sims[i]
		}
		fused := opts.LexicalWeight*lex + opts.SimilarityWeight*sim
		if fused <= 0 {
			continue
		}
		results = append(results, RankedResult{
			Document:        doc.Document,
			LexicalScore:    lex,
			SimilarityScore: sim,
			FusedScore:      fused,
		})
	}

	results = Finalize(results, r.now(), opts.MaxResults)
	r.logger.Debug("hybrid rank complete",
		"terms", terms,
		"documents", len(docs),
		"returned", len(results),
		"vector_ok", sims != nil || opts.SimilarityWeight == 0,
	)
	return results, nil
}

// Finalize orders results in two phases and truncates to maxResults. Phase
// one sorts by FusedScore (ties by ascending ID); phase two sets Boost and
// Score and re-sorts stably by Score, so equal final scores keep their base
// relevance order. maxResults <= 0 means no limit.
func Finalize(results []RankedResult, now time.Time, maxResults int) []RankedResult {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].FusedScore != results[j].FusedScore {
			return results[i].FusedScore > results[j].FusedScore
		}
		return results[i].Document.ID < results[j].Document.ID
	})

	for i := range results {
		results[i].Boost = Boost(results[i].Document, now)
		results[i].Score = results[i].FusedScore * results[i].Boost
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}

// similarities encodes the query once and every document, returning one
// cosine score per document in corpus order. Any error or panic aborts the
// whole vector pass.
func (r *Ranker) similarities(ctx context.Context, queryText string, docs []*index.IndexedDocument) ([]float64, error) {
	sims := make([]float64, len(docs))
	err := resilience.Recover("vector-similarity", func() error {
		qv, err := r.provider.Encode(ctx, queryText)
		if err != nil {
			return fmt.Errorf("encoding query: %w", err)
		}
		if embedding.Magnitude(qv) == 0 {
			return nil
		}
		for i, doc := range docs {
			dv, err := r.provider.Encode(ctx, doc.SearchableText())
			if err != nil {
				return fmt.Errorf("encoding document %s: %w", doc.ID, err)
			}
			sims[i] = embedding.Cosine(qv, dv)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sims, nil
}
