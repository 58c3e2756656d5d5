// Package suggest proposes category and subcategory filters when a query has
// no results, by fuzzy-matching the query against closed vocabularies.
package suggest

import (
	"strings"
	"unicode/utf8"

	"github.com/xrash/smetrics"
)

// Suggestion thresholds: an entry is offered when it contains the query or
// its similarity exceeds the threshold for its vocabulary.
const (
	CategoryThreshold    = 0.6
	SubcategoryThreshold = 0.5
)

var defaultCategories = []string{
	"Football", "Basketball", "Tennis", "Cricket", "Rugby",
	"Formula 1", "Golf", "Boxing", "Athletics", "Cycling",
}

var defaultSubcategories = []string{
	"Premier League", "La Liga", "Serie A", "Bundesliga", "Champions League",
	"NBA", "EuroLeague", "Wimbledon", "US Open", "IPL", "Test Cricket",
	"Six Nations", "Grand Prix", "PGA Tour",
}

// Suggestions are returned in vocabulary order with no cap; callers limit
// what they display.
type Suggestions struct {
	Categories    []string `json:"categories"`
	Subcategories []string `json:"subcategories"`
}

// Empty reports whether nothing was suggested.
func (s Suggestions) Empty() bool {
	return len(s.Categories) == 0 && len(s.Subcategories) == 0
}

// Vocabulary is the closed set of filter names suggestions are drawn from.
type Vocabulary struct {
	Categories    []string
	Subcategories []string
}

// DefaultVocabulary returns the built-in sports vocabulary.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Categories:    append([]string(nil), defaultCategories...),
		Subcategories: append([]string(nil), defaultSubcategories...),
	}
}

// NewVocabulary uses the given lists, substituting the defaults for an empty
// list.
func NewVocabulary(categories, subcategories []string) Vocabulary {
	v := DefaultVocabulary()
	if len(categories) > 0 {
		v.Categories = categories
	}
	if len(subcategories) > 0 {
		v.Subcategories = subcategories
	}
	return v
}

// Suggest matches query against the vocabulary. A blank query suggests
// nothing.
func (v Vocabulary) Suggest(query string) Suggestions {
	out := Suggestions{Categories: []string{}, Subcategories: []string{}}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return out
	}
	out.Categories = match(q, v.Categories, CategoryThreshold)
	out.Subcategories = match(q, v.Subcategories, SubcategoryThreshold)
	return out
}

// Suggest matches query against DefaultVocabulary.
func Suggest(query string) Suggestions {
	return DefaultVocabulary().Suggest(query)
}

func match(q string, entries []string, threshold float64) []string {
	out := make([]string, 0)
	for _, entry := range entries {
		e := strings.ToLower(entry)
		if strings.Contains(e, q) || Similarity(q, e) > threshold {
			out = append(out, entry)
		}
	}
	return out
}

// Similarity is the case-insensitive normalised Levenshtein similarity
// (maxLen - distance) / maxLen, in [0, 1], counted in characters. Two empty
// strings are identical.
func Similarity(a, b string) float64 {
	a, b = byteAlphabet(strings.ToLower(a), strings.ToLower(b))
	maxLen := max(len(a), len(b))
	if maxLen == 0 {
		return 1
	}
	dist := smetrics.WagnerFischer(a, b, 1, 1, 1)
	return float64(maxLen-dist) / float64(maxLen)
}

// byteAlphabet rewrites a and b so each distinct rune is one byte, since
// WagnerFischer compares bytes. ASCII input is returned unchanged. Pairs with
// more than 256 distinct runes are compared as raw bytes.
func byteAlphabet(a, b string) (string, string) {
	if isASCII(a) && isASCII(b) {
		return a, b
	}
	codes := make(map[rune]byte)
	encode := func(s string) ([]byte, bool) {
		out := make([]byte, 0, len(s))
		for _, r := range s {
			c, ok := codes[r]
			if !ok {
				if len(codes) == 256 {
					return nil, false
				}
				c = byte(len(codes))
				codes[r] = c
			}
			out = append(out, c)
		}
		return out, true
	}
	ea, ok := encode(a)
	if !ok {
		return a, b
	}
	eb, ok := encode(b)
	if !ok {
		return a, b
	}
	return string(ea), string(eb)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
