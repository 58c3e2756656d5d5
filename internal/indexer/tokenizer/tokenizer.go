// Package tokenizer turns text into the normalised token stream shared by the
// index, the BM25 scorer and the vector layer. It lower-cases input, keeps
// ASCII word characters plus '@', '.' and '-', drops short tokens and
// stop-words, and applies a single-pass suffix stemmer.
package tokenizer

import (
	"strings"
)

var stopWords = map[string]struct{}{
	// articles
	"a": {}, "an": {}, "the": {},
	// conjunctions and prepositions
	"and": {}, "or": {}, "but": {}, "nor": {}, "so": {}, "yet": {},
	"if": {}, "as": {}, "at": {}, "by": {}, "for": {}, "from": {},
	"in": {}, "into": {}, "of": {}, "on": {}, "to": {}, "with": {},
	"than": {}, "then": {},
	// auxiliary verbs
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"being": {}, "am": {}, "has": {}, "have": {}, "had": {}, "do": {},
	"does": {}, "did": {}, "will": {}, "would": {}, "shall": {},
	"should": {}, "can": {}, "could": {}, "may": {}, "might": {},
	"must": {},
	// pronouns and determiners
	"i": {}, "me": {}, "my": {}, "we": {}, "us": {}, "our": {},
	"you": {}, "your": {}, "he": {}, "him": {}, "his": {}, "she": {},
	"her": {}, "it": {}, "its": {}, "they": {}, "them": {}, "their": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "who": {},
	"whom": {}, "which": {}, "what": {},
}

// suffixRules is tested in order; only the first matching rule is applied.
var suffixRules = []struct {
	suffix      string
	replacement string
}{
	{"ies", "y"},
	{"es", ""},
	{"s", ""},
	{"ing", ""},
	{"ed", ""},
	{"er", ""},
	{"est", ""},
}

// Tokenize returns the ordered, normalised tokens of text. It is a pure
// function of its input.
func Tokenize(text string) []string {
	words := strings.Fields(clean(text))
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if len(word) <= 1 {
			continue
		}
		if IsStopWord(word) {
			continue
		}
		stemmed := Stem(word)
		if stemmed == "" {
			continue
		}
		tokens = append(tokens, stemmed)
	}
	return tokens
}

// Stem rewrites word with the first suffix rule it matches. No rule is
// applied twice and later rules are not consulted.
func Stem(word string) string {
	for _, rule := range suffixRules {
		if strings.HasSuffix(word, rule.suffix) {
			return word[:len(word)-len(rule.suffix)] + rule.replacement
		}
	}
	return word
}

// IsStopWord reports whether the lower-cased word is ignored by Tokenize.
func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}

// clean lower-cases text and blanks every rune that is not an ASCII word
// character, whitespace, '@', '.' or '-'.
func clean(text string) string {
	lower := strings.ToLower(text)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_',
			r == '@', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return b.String()
}
