// Package fallback is the simple field scorer used when the hybrid pipeline
// fails. It matches the raw query against individual document fields with
// fixed weights and applies the same contextual boosts as hybrid ranking.
package fallback

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/content"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/fusion"
)

// Match-kind multipliers applied to a field's weight.
const (
	ExactMultiplier     = 3.0
	WordMultiplier      = 2.0
	SubstringMultiplier = 1.0
)

// Field is one scored document field.
type Field struct {
	Name   string
	Weight float64
	Value  func(content.Document) string
}

// DefaultFields weights headline fields above free text.
var DefaultFields = []Field{
	{Name: "title", Weight: 10, Value: func(d content.Document) string { return d.Title }},
	{Name: "home_team", Weight: 8, Value: func(d content.Document) string { return d.HomeTeam }},
	{Name: "away_team", Weight: 8, Value: func(d content.Document) string { return d.AwayTeam }},
	{Name: "category", Weight: 5, Value: func(d content.Document) string { return d.Category }},
	{Name: "subcategory", Weight: 5, Value: func(d content.Document) string { return d.Subcategory }},
	{Name: "excerpt", Weight: 3, Value: func(d content.Document) string { return d.Excerpt }},
	{Name: "venue", Weight: 2, Value: func(d content.Document) string { return d.Venue }},
	{Name: "author", Weight: 2, Value: func(d content.Document) string { return d.Author }},
	{Name: "body", Weight: 1, Value: func(d content.Document) string { return d.Body }},
}

// Scorer ranks documents by field matches.
type Scorer struct {
	fields []Field
	now    func() time.Time
}

// NewScorer returns a Scorer over fields, or DefaultFields when none are
// given. now may be nil.
func NewScorer(now func() time.Time, fields ...Field) *Scorer {
	if len(fields) == 0 {
		fields = DefaultFields
	}
	if now == nil {
		now = time.Now
	}
	return &Scorer{fields: fields, now: now}
}

type queryMatcher struct {
	whole string
	words []string
	exprs []*regexp.Regexp
}

func newQueryMatcher(query string) *queryMatcher {
	whole := strings.ToLower(strings.TrimSpace(query))
	m := &queryMatcher{whole: whole}
	for _, w := range strings.Fields(whole) {
		m.words = append(m.words, w)
		m.exprs = append(m.exprs, regexp.MustCompile(`\b`+regexp.QuoteMeta(w)+`\b`))
	}
	return m
}

// fieldScore scores one lower-cased field value. An exact whole-field match
// wins outright; otherwise each query word earns a word-boundary or a
// substring score.
func (m *queryMatcher) fieldScore(value string, weight float64) float64 {
	if value == "" {
		return 0
	}
	if value == m.whole {
		return ExactMultiplier * weight
	}
	var score float64
	for i, w := range m.words {
		switch {
		case m.exprs[i].MatchString(value):
			score += WordMultiplier * weight
		case strings.Contains(value, w):
			score += SubstringMultiplier * weight
		}
	}
	return score
}

// Score ranks every document in idx against query and returns at most
// maxResults matches. The field score is reported as both LexicalScore and
// FusedScore; SimilarityScore is always 0.
func (s *Scorer) Score(ctx context.Context, query string, idx *index.SearchIndex, maxResults int) ([]fusion.RankedResult, error) {
	m := newQueryMatcher(query)
	if m.whole == "" {
		return []fusion.RankedResult{}, nil
	}
	results := make([]fusion.RankedResult, 0)
	for i, doc := range idx.Documents() {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		var score float64
		for _, f := range s.fields {
			score += m.fieldScore(strings.ToLower(f.Value(doc.Document)), f.Weight)
		}
		if score <= 0 {
			continue
		}
		results = append(results, fusion.RankedResult{
			Document:     doc.Document,
			LexicalScore: score,
			FusedScore:   score,
		})
	}
	if maxResults <= 0 {
		maxResults = fusion.DefaultMaxResults
	}
	return fusion.Finalize(results, s.now(), maxResults), nil
}
