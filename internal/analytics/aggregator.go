package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/kafka"
)

// maxLatencySamples bounds the latency window percentiles are computed over.
const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalSearches        int64            `json:"total_searches"`
	CacheHits            int64            `json:"cache_hits"`
	CacheMisses          int64            `json:"cache_misses"`
	ZeroResultCount      int64            `json:"zero_result_count"`
	FallbackCount        int64            `json:"fallback_count"`
	FallbackReasons      map[string]int64 `json:"fallback_reasons"`
	SuggestionsOffered   int64            `json:"suggestions_offered"`
	AvgLatencyMs         float64          `json:"avg_latency_ms"`
	P50LatencyMs         float64          `json:"p50_latency_ms"`
	P95LatencyMs         float64          `json:"p95_latency_ms"`
	P99LatencyMs         float64          `json:"p99_latency_ms"`
	TopQueries           []QueryCount     `json:"top_queries"`
	ZeroResultQueries    []QueryCount     `json:"zero_result_queries"`
	QueriesPerMinute     float64          `json:"queries_per_minute"`
	IndexRebuilds        int64            `json:"index_rebuilds"`
	IndexRebuildFailures int64            `json:"index_rebuild_failures"`
	IndexGeneration      uint64           `json:"index_generation"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator folds search and rebuild events into running statistics. It is
// fed either by a Kafka consumer on the analytics topic or directly by a
// Collector when Kafka is disabled.
type Aggregator struct {
	totalSearches   atomic.Int64
	cacheHits       atomic.Int64
	cacheMisses     atomic.Int64
	zeroResults     atomic.Int64
	fallbacks       atomic.Int64
	suggestions     atomic.Int64
	rebuilds        atomic.Int64
	rebuildFailures atomic.Int64
	generation      atomic.Uint64

	mu                sync.RWMutex
	latencies         []float64
	nextLatency       int
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	fallbackReasons   map[string]int64
	startTime         time.Time

	logger *slog.Logger
}

// NewAggregator creates an empty Aggregator. Events arrive either through
// Consume or in process through PublishBatch and Record.
func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         make([]float64, 0, 1024),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		fallbackReasons:   make(map[string]int64),
		startTime:         time.Now(),
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// Consume feeds the aggregator from an analytics topic consumer until ctx is
// cancelled. The consumer's handler must be HandleEvent(a).
func (a *Aggregator) Consume(ctx context.Context, consumer *kafka.Consumer) error {
	a.logger.Info("analytics aggregator consuming")
	return consumer.Start(ctx)
}

// HandleEvent returns a MessageHandler that records analytics messages.
// Undecodable messages are logged and skipped.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		head, err := kafka.DecodeJSON[struct {
			Type EventType `json:"type"`
		}](value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		switch head.Type {
		case EventIndexRebuild:
			event, err := kafka.DecodeJSON[RebuildEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode rebuild event", "error", err)
				return nil
			}
			agg.Record(event)
		case EventSearch, EventZeroResult, EventFallback:
			event, err := kafka.DecodeJSON[SearchEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode search event", "error", err)
				return nil
			}
			agg.Record(event)
		default:
			agg.logger.Warn("unknown analytics event type", "type", head.Type, "key", string(key))
		}
		return nil
	}
}

// PublishBatch records events in process, letting an Aggregator stand in
// for the Kafka producer.
func (a *Aggregator) PublishBatch(_ context.Context, events []kafka.Event) error {
	for _, e := range events {
		a.Record(e.Value)
	}
	return nil
}

// Record folds one SearchEvent or RebuildEvent into the statistics. Other
// values are ignored.
func (a *Aggregator) Record(event any) {
	switch e := event.(type) {
	case SearchEvent:
		a.recordSearch(e)
	case *SearchEvent:
		a.recordSearch(*e)
	case RebuildEvent:
		a.recordRebuild(e)
	case *RebuildEvent:
		a.recordRebuild(*e)
	default:
		a.logger.Warn("ignoring unknown analytics value", "type", fmt.Sprintf("%T", event))
	}
}

func (a *Aggregator) recordSearch(e SearchEvent) {
	a.totalSearches.Add(1)
	if e.CacheHit {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
	}
	if e.Returned == 0 {
		a.zeroResults.Add(1)
	}
	if e.Type == EventFallback {
		a.fallbacks.Add(1)
	}
	a.suggestions.Add(int64(e.Suggestions))

	query := strings.ToLower(strings.TrimSpace(e.Query))
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, e.LatencyMs)
	} else {
		a.latencies[a.nextLatency] = e.LatencyMs
		a.nextLatency = (a.nextLatency + 1) % maxLatencySamples
	}
	a.queryCounts[query]++
	if e.Returned == 0 {
		a.zeroResultQueries[query]++
	}
	if e.Type == EventFallback {
		a.fallbackReasons[e.FallbackReason]++
	}
}

func (a *Aggregator) recordRebuild(e RebuildEvent) {
	if e.Error != "" {
		a.rebuildFailures.Add(1)
		return
	}
	a.rebuilds.Add(1)
	for {
		cur := a.generation.Load()
		if e.Generation <= cur || a.generation.CompareAndSwap(cur, e.Generation) {
			return
		}
	}
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:        a.totalSearches.Load(),
		CacheHits:            a.cacheHits.Load(),
		CacheMisses:          a.cacheMisses.Load(),
		ZeroResultCount:      a.zeroResults.Load(),
		FallbackCount:        a.fallbacks.Load(),
		FallbackReasons:      make(map[string]int64, len(a.fallbackReasons)),
		SuggestionsOffered:   a.suggestions.Load(),
		IndexRebuilds:        a.rebuilds.Load(),
		IndexRebuildFailures: a.rebuildFailures.Load(),
		IndexGeneration:      a.generation.Load(),
	}
	for reason, n := range a.fallbackReasons {
		stats.FallbackReasons[reason] = n
	}
	if len(a.latencies) > 0 {
		sorted := make([]float64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Float64s(sorted)

		var sum float64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = sum / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, 10)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, 10)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

func percentile(sorted []float64, pct int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count, then query, so equal counts list deterministically.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
