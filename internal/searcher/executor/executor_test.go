package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/content"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/embedding"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/fusion"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/suggest"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Ranker = (*fusion.Ranker)(nil)

var arsenalCorpus = []content.Document{
	{ID: "1", Title: "Arsenal vs Chelsea preview", Category: "Football"},
	{ID: "2", Title: "Lakers vs Warriors recap", Category: "Basketball"},
	{ID: "3", Title: "Arsenal injury update", Category: "Football"},
}

// mockRanker lets each test decide how the hybrid pass behaves.
type mockRanker struct {
	rankFunc func(ctx context.Context) ([]fusion.RankedResult, error)
}

func (m *mockRanker) Rank(ctx context.Context, _ []string, _ string, _ *index.SearchIndex, _ fusion.Options) ([]fusion.RankedResult, error) {
	return m.rankFunc(ctx)
}

func resultIDs(results []fusion.RankedResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Document.ID
	}
	return out
}

func newExecutor(r Ranker, opts ...Option) (*Executor, *metrics.Metrics) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	opts = append([]Option{WithMetrics(m)}, opts...)
	return New(StaticSource(index.Build(arsenalCorpus)), r, opts...), m
}

func TestSearch_ArsenalEndToEnd(t *testing.T) {
	// Given: three articles, two about Arsenal
	idx := index.Build(arsenalCorpus)

	// When: searching with default options
	results, err := Search(context.Background(), "Arsenal", idx, nil)

	// Then: only the Arsenal articles come back, both with lexical and vector evidence
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "3"}, resultIDs(results))
	for _, r := range results {
		assert.Greater(t, r.LexicalScore, 0.0)
		assert.Greater(t, r.SimilarityScore, 0.0)
	}
}

func TestSearch_BlankQueryReturnsNothing(t *testing.T) {
	results, err := Search(context.Background(), "   ", index.Build(arsenalCorpus), nil)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestExecute_EmptyPlanSkipsRanking(t *testing.T) {
	called := false
	exec, _ := newExecutor(&mockRanker{rankFunc: func(context.Context) ([]fusion.RankedResult, error) {
		called = true
		return nil, nil
	}})

	res, err := exec.Execute(context.Background(), parser.Parse(""), fusion.DefaultOptions())

	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, ModeEmpty, res.Mode)
	assert.Empty(t, res.Results)
	assert.Nil(t, res.Suggestions)
}

func TestExecute_HybridResults(t *testing.T) {
	exec, m := newExecutor(fusion.NewRanker(embedding.NewBagOfWords()))

	res, err := exec.Execute(context.Background(), parser.Parse("arsenal injury"), fusion.DefaultOptions())

	require.NoError(t, err)
	assert.Equal(t, ModeHybrid, res.Mode)
	require.NotEmpty(t, res.Results)
	assert.Equal(t, "3", res.Results[0].Document.ID)
	assert.Equal(t, len(res.Results), res.TotalHits)
	assert.Nil(t, res.Suggestions)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("hybrid", "results")))
}

func TestExecute_TimeoutFallsBackToFieldScorer(t *testing.T) {
	// Given: a hybrid pass that never finishes within the budget
	slow := &mockRanker{rankFunc: func(ctx context.Context) ([]fusion.RankedResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	exec, m := newExecutor(slow, WithPipelineTimeout(20*time.Millisecond))

	// When: searching
	res, err := exec.Execute(context.Background(), parser.Parse("Arsenal"), fusion.DefaultOptions())

	// Then: the field scorer answers and the fallback is recorded
	require.NoError(t, err)
	assert.Equal(t, ModeFallback, res.Mode)
	assert.Equal(t, "timeout", res.FallbackReason)
	assert.ElementsMatch(t, []string{"1", "3"}, resultIDs(res.Results))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("timeout")))
}

func TestExecute_LateHybridSuccessIsIgnored(t *testing.T) {
	// Given: a hybrid pass that ignores its context and succeeds just after the deadline
	late := &mockRanker{rankFunc: func(context.Context) ([]fusion.RankedResult, error) {
		time.Sleep(20 * time.Millisecond)
		return []fusion.RankedResult{{Document: arsenalCorpus[1]}}, nil
	}}
	exec, _ := newExecutor(late, WithPipelineTimeout(20*time.Millisecond))

	// When: searching repeatedly, so the late write overlaps the fallback (run with -race)
	for i := 0; i < 20; i++ {
		res, err := exec.Execute(context.Background(), parser.Parse("Arsenal"), fusion.DefaultOptions())

		// Then: whichever side wins the race, results come from one path only
		require.NoError(t, err)
		if res.Mode == ModeFallback {
			assert.ElementsMatch(t, []string{"1", "3"}, resultIDs(res.Results))
		} else {
			assert.Equal(t, []string{"2"}, resultIDs(res.Results))
		}
	}
	time.Sleep(30 * time.Millisecond)
}

func TestExecute_PanicFallsBackToFieldScorer(t *testing.T) {
	exec, m := newExecutor(&mockRanker{rankFunc: func(context.Context) ([]fusion.RankedResult, error) {
		panic("index corrupted")
	}})

	res, err := exec.Execute(context.Background(), parser.Parse("Chelsea"), fusion.DefaultOptions())

	require.NoError(t, err)
	assert.Equal(t, ModeFallback, res.Mode)
	assert.Equal(t, "panic", res.FallbackReason)
	assert.Equal(t, []string{"1"}, resultIDs(res.Results))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("panic")))
}

func TestExecute_ErrorFallsBackToFieldScorer(t *testing.T) {
	exec, _ := newExecutor(&mockRanker{rankFunc: func(context.Context) ([]fusion.RankedResult, error) {
		return nil, errors.New("scoring failed")
	}})

	res, err := exec.Execute(context.Background(), parser.Parse("Lakers"), fusion.DefaultOptions())

	require.NoError(t, err)
	assert.Equal(t, ModeFallback, res.Mode)
	assert.Equal(t, "error", res.FallbackReason)
	assert.Equal(t, []string{"2"}, resultIDs(res.Results))
}

func TestExecute_NoResultsProducesSuggestions(t *testing.T) {
	// Given: a misspelt sport that matches no article
	exec, m := newExecutor(fusion.NewRanker(embedding.NewBagOfWords()))

	// When: searching
	res, err := exec.Execute(context.Background(), parser.Parse("footbal"), fusion.DefaultOptions())

	// Then: the result is empty and the closest category is suggested
	require.NoError(t, err)
	assert.Empty(t, res.Results)
	require.NotNil(t, res.Suggestions)
	assert.Contains(t, res.Suggestions.Categories, "Football")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("hybrid", "no_results")))
}

func TestExecute_StopwordOnlyQuerySearchesAndSuggests(t *testing.T) {
	exec, _ := newExecutor(fusion.NewRanker(embedding.NewBagOfWords()))

	res, err := exec.Execute(context.Background(), parser.Parse("the"), fusion.DefaultOptions())

	require.NoError(t, err)
	assert.Equal(t, ModeHybrid, res.Mode)
	assert.Empty(t, res.Results)
	assert.NotNil(t, res.Suggestions)
}

func TestExecute_CustomVocabulary(t *testing.T) {
	exec, _ := newExecutor(
		fusion.NewRanker(embedding.NewBagOfWords()),
		WithVocabulary(suggest.NewVocabulary([]string{"Hurling"}, []string{"All-Ireland"})),
	)

	res, err := exec.Execute(context.Background(), parser.Parse("hurlin"), fusion.DefaultOptions())

	require.NoError(t, err)
	require.NotNil(t, res.Suggestions)
	assert.Equal(t, []string{"Hurling"}, res.Suggestions.Categories)
}

func TestExecute_CancelledCallerIsAnError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	exec, _ := newExecutor(&mockRanker{rankFunc: func(ctx context.Context) ([]fusion.RankedResult, error) {
		return nil, ctx.Err()
	}}, WithPipelineTimeout(time.Second))

	res, err := exec.Execute(ctx, parser.Parse("Arsenal"), fusion.DefaultOptions())

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestExecute_CorpusFailureServesEmptyIndex(t *testing.T) {
	// Given: an engine whose first rebuild could not reach the corpus
	fetcher := content.FetcherFunc(func(context.Context) ([]content.Document, error) {
		return nil, errors.New("connection refused")
	})
	engine := indexer.NewEngine(fetcher, config.IndexerConfig{}, nil)
	_, rebuildErr := engine.Rebuild(context.Background())
	require.Error(t, rebuildErr)
	exec := New(engine, fusion.NewRanker(embedding.NewBagOfWords()))

	// When: a user searches
	res, err := exec.Execute(context.Background(), parser.Parse("Arsenal"), fusion.DefaultOptions())

	// Then: the search completes with no results rather than failing
	require.NoError(t, err)
	assert.Empty(t, res.Results)
	assert.Equal(t, uint64(0), res.Generation)
	assert.NotNil(t, res.Suggestions)
}

func TestExecute_PinsGeneration(t *testing.T) {
	engine := indexer.NewEngine(content.NewStaticFetcher(arsenalCorpus), config.IndexerConfig{}, nil)
	_, err := engine.Rebuild(context.Background())
	require.NoError(t, err)
	exec := New(engine, fusion.NewRanker(embedding.NewBagOfWords()))

	res, err := exec.Execute(context.Background(), parser.Parse("Arsenal"), fusion.DefaultOptions())

	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Generation)
}

func TestExecute_SlowQueryLogDoesNotAlterResult(t *testing.T) {
	exec, _ := newExecutor(fusion.NewRanker(embedding.NewBagOfWords()), WithSlowQueryLog(time.Nanosecond))

	res, err := exec.Execute(context.Background(), parser.Parse("Arsenal"), fusion.DefaultOptions())

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "3"}, resultIDs(res.Results))
	assert.Positive(t, res.LatencyMs)
}
