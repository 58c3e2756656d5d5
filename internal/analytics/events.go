package analytics

import (
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/executor"
	"github.com/google/uuid"
)

type EventType string

const (
	EventSearch       EventType = "search"
	EventZeroResult   EventType = "zero_result"
	EventFallback     EventType = "fallback"
	EventIndexRebuild EventType = "index_rebuild"
)

// SearchEvent describes one answered search.
type SearchEvent struct {
	ID              string    `json:"id"`
	Type            EventType `json:"type"`
	Query           string    `json:"query"`
	Terms           []string  `json:"terms"`
	Mode            string    `json:"mode"`
	FallbackReason  string    `json:"fallback_reason,omitempty"`
	Returned        int       `json:"returned"`
	TopResultID     string    `json:"top_result_id,omitempty"`
	Suggestions     int       `json:"suggestions"`
	LatencyMs       float64   `json:"latency_ms"`
	CacheHit        bool      `json:"cache_hit"`
	IndexGeneration uint64    `json:"index_generation"`
	Timestamp       time.Time `json:"timestamp"`
	RequestID       string    `json:"request_id,omitempty"`
}

// RebuildEvent describes one index rebuild attempt.
type RebuildEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Generation uint64    `json:"generation"`
	Documents  int       `json:"documents"`
	Terms      int       `json:"terms"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewSearchEvent summarises res. Fallback answers are typed as such even
// when they are empty.
func NewSearchEvent(res *executor.SearchResult, cacheHit bool, latency time.Duration, requestID string) SearchEvent {
	e := SearchEvent{
		ID:              uuid.NewString(),
		Type:            EventSearch,
		Query:           res.Query,
		Terms:           res.Terms,
		Mode:            string(res.Mode),
		FallbackReason:  res.FallbackReason,
		Returned:        len(res.Results),
		LatencyMs:       float64(latency.Microseconds()) / 1000,
		CacheHit:        cacheHit,
		IndexGeneration: res.Generation,
		Timestamp:       time.Now().UTC(),
		RequestID:       requestID,
	}
	if len(res.Results) > 0 {
		e.TopResultID = res.Results[0].Document.ID
	}
	if res.Suggestions != nil {
		e.Suggestions = len(res.Suggestions.Categories) + len(res.Suggestions.Subcategories)
	}
	switch {
	case res.Mode == executor.ModeFallback:
		e.Type = EventFallback
	case e.Returned == 0:
		e.Type = EventZeroResult
	}
	return e
}

// NewRebuildEvent matches indexer.RebuildHook's arguments.
func NewRebuildEvent(idx *index.SearchIndex, d time.Duration, err error) RebuildEvent {
	e := RebuildEvent{
		ID:         uuid.NewString(),
		Type:       EventIndexRebuild,
		DurationMs: d.Milliseconds(),
		Timestamp:  time.Now().UTC(),
	}
	if err != nil {
		e.Error = err.Error()
		return e
	}
	stats := idx.Stats()
	e.Generation = idx.Generation()
	e.Documents = stats.DocCount
	e.Terms = stats.TermCount
	return e
}

// partitionKey keeps every event for one query on one partition.
func partitionKey(event any) string {
	switch e := event.(type) {
	case SearchEvent:
		return strings.ToLower(strings.TrimSpace(e.Query))
	case RebuildEvent:
		return "index"
	default:
		return "analytics"
	}
}
