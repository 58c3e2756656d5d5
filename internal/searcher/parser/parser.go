// Package parser turns raw query text into the QueryPlan the search pipeline
// consumes. Queries are free text; there is no operator syntax.
package parser

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/indexer/tokenizer"
)

type QueryPlan struct {
	RawQuery string   `json:"raw_query"`
	Text     string   `json:"text"`
	Terms    []string `json:"terms"`
}

// Parse trims the query and tokenizes it with the same pipeline the index
// uses, so query terms line up with index terms.
func Parse(query string) *QueryPlan {
	text := strings.TrimSpace(query)
	plan := &QueryPlan{
		RawQuery: query,
		Text:     text,
		Terms:    make([]string, 0),
	}
	if text == "" {
		return plan
	}
	plan.Terms = tokenizer.Tokenize(text)
	return plan
}

// IsEmpty reports whether the query is blank. A blank query is never searched.
func (p *QueryPlan) IsEmpty() bool {
	return p == nil || p.Text == ""
}
