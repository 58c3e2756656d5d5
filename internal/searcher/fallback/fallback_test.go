package fallback

import (
	"context"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/content"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/fusion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func TestScore_ExactBeatsWordBeatsSubstring(t *testing.T) {
	// Given: the query matches each document's title in a different way
	idx := index.Build([]content.Document{
		{ID: "substring", Title: "Arsenalfans weekly"},
		{ID: "word", Title: "Arsenal injury update"},
		{ID: "exact", Title: "Arsenal"},
	})
	s := NewScorer(clock)

	// When
	results, err := s.Score(context.Background(), "arsenal", idx, 10)

	// Then
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "exact", results[0].Document.ID)
	assert.Equal(t, "word", results[1].Document.ID)
	assert.Equal(t, "substring", results[2].Document.ID)
	assert.Equal(t, 30.0, results[0].FusedScore)
	assert.Equal(t, 20.0, results[1].FusedScore)
	assert.Equal(t, 10.0, results[2].FusedScore)
	assert.Equal(t, 0.0, results[0].SimilarityScore)
}

func TestScore_FieldWeightsAndMultipleWords(t *testing.T) {
	idx := index.Build([]content.Document{
		{ID: "body", Body: "a word about chelsea"},
		{ID: "category", Category: "Football", Title: "Chelsea notes"},
	})
	s := NewScorer(clock)

	results, err := s.Score(context.Background(), "Chelsea football", idx, 10)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "category", results[0].Document.ID)
	// title word match (2*10) + category word match (2*5)
	assert.Equal(t, 30.0, results[0].FusedScore)
	assert.Equal(t, 2.0, results[1].FusedScore)
}

func TestScore_AppliesBoosts(t *testing.T) {
	idx := index.Build([]content.Document{
		{ID: "a", Title: "Derby report"},
		{ID: "b", Title: "Derby report", Status: "live"},
	})

	results, err := NewScorer(clock).Score(context.Background(), "derby", idx, 10)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].Document.ID)
	assert.Equal(t, fusion.LiveBoost, results[0].Boost)
}

func TestScore_RegexMetacharactersAreLiteral(t *testing.T) {
	idx := index.Build([]content.Document{{ID: "1", Title: "Score: 2-1 (a.e.t.)"}})

	results, err := NewScorer(clock).Score(context.Background(), "(a.e.t.)", idx, 10)

	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestScore_BlankAndNoMatch(t *testing.T) {
	idx := index.Build([]content.Document{{ID: "1", Title: "Arsenal"}})
	s := NewScorer(nil)

	blank, err := s.Score(context.Background(), "   ", idx, 10)
	require.NoError(t, err)
	assert.Empty(t, blank)

	none, err := s.Score(context.Background(), "cricket", idx, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestScore_CustomFieldsAndLimit(t *testing.T) {
	venueOnly := Field{Name: "venue", Weight: 1, Value: func(d content.Document) string { return d.Venue }}
	idx := index.Build([]content.Document{
		{ID: "1", Title: "Wembley", Venue: "Old Trafford"},
		{ID: "2", Venue: "Wembley Stadium"},
		{ID: "3", Venue: "Wembley"},
	})

	results, err := NewScorer(clock, venueOnly).Score(context.Background(), "wembley", idx, 1)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "3", results[0].Document.ID)
}
