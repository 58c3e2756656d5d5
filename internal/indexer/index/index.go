// Package index builds the immutable inverted index the search pipeline
// scores against. A SearchIndex is built once from a full corpus snapshot and
// never mutated; a corpus change produces a new SearchIndex.
package index

import (
	"log/slog"
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/content"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/indexer/tokenizer"
)

// BM25 tuning constants.
const (
	K1 = 1.5
	B  = 0.75
)

// IndexedDocument is a document together with its tokens.
type IndexedDocument struct {
	content.Document
	Tokens []string
	Length int
}

// CorpusStatistics are recomputed in full on every build.
type CorpusStatistics struct {
	DocCount     int     `json:"doc_count"`
	TotalTokens  int     `json:"total_tokens"`
	AvgDocLength float64 `json:"avg_doc_length"`
	TermCount    int     `json:"term_count"`
}

// SearchIndex owns the terms, documents and statistics of one build.
type SearchIndex struct {
	terms      map[string]*Term
	docs       []*IndexedDocument
	byID       map[string]*IndexedDocument
	stats      CorpusStatistics
	generation uint64
	builtAt    time.Time
}

type buildOptions struct {
	generation uint64
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures Build.
type Option func(*buildOptions)

// WithGeneration stamps the index with a generation number.
func WithGeneration(gen uint64) Option {
	return func(o *buildOptions) { o.generation = gen }
}

// WithClock overrides the clock used for BuiltAt.
func WithClock(now func() time.Time) Option {
	return func(o *buildOptions) { o.now = now }
}

// WithLogger sets the logger used for build warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(o *buildOptions) { o.logger = logger }
}

// Build indexes corpus from scratch. Documents are kept in corpus order; a
// document whose ID was already seen is skipped so nothing is indexed twice.
func Build(corpus []content.Document, opts ...Option) *SearchIndex {
	o := buildOptions{
		now:    time.Now,
		logger: slog.Default().With("component", "index-builder"),
	}
	for _, opt := range opts {
		opt(&o)
	}

	idx := &SearchIndex{
		terms:      make(map[string]*Term),
		docs:       make([]*IndexedDocument, 0, len(corpus)),
		byID:       make(map[string]*IndexedDocument, len(corpus)),
		generation: o.generation,
		builtAt:    o.now(),
	}

	totalTokens := 0
	for _, doc := range corpus {
		if _, dup := idx.byID[doc.ID]; dup {
			o.logger.Warn("duplicate document id skipped", "doc_id", doc.ID)
			continue
		}
		tokens := tokenizer.Tokenize(doc.SearchableText())
		indexed := &IndexedDocument{
			Document: doc,
			Tokens:   tokens,
			Length:   len(tokens),
		}
		idx.docs = append(idx.docs, indexed)
		idx.byID[doc.ID] = indexed
		totalTokens += len(tokens)

		for _, tok := range tokens {
			term, ok := idx.terms[tok]
			if !ok {
				term = &Term{Text: tok, Postings: make(map[string]int)}
				idx.terms[tok] = term
			}
			if term.Postings[doc.ID] == 0 {
				term.DocFreq++
			}
			term.Postings[doc.ID]++
		}
	}

	idx.stats = CorpusStatistics{
		DocCount:    len(idx.docs),
		TotalTokens: totalTokens,
		TermCount:   len(idx.terms),
	}
	if len(idx.docs) > 0 {
		idx.stats.AvgDocLength = float64(totalTokens) / float64(len(idx.docs))
	}
	return idx
}

// Empty returns an index with no documents.
func Empty() *SearchIndex {
	return Build(nil)
}

// Term returns the term entry for a normalised token.
func (idx *SearchIndex) Term(text string) (*Term, bool) {
	t, ok := idx.terms[text]
	return t, ok
}

// Documents returns the indexed documents in corpus order. Callers must not
// modify the returned slice.
func (idx *SearchIndex) Documents() []*IndexedDocument {
	return idx.docs
}

// Document looks up an indexed document by ID.
func (idx *SearchIndex) Document(id string) (*IndexedDocument, bool) {
	d, ok := idx.byID[id]
	return d, ok
}

func (idx *SearchIndex) Stats() CorpusStatistics {
	return idx.stats
}

func (idx *SearchIndex) Len() int {
	return len(idx.docs)
}

func (idx *SearchIndex) Generation() uint64 {
	return idx.generation
}

func (idx *SearchIndex) BuiltAt() time.Time {
	return idx.builtAt
}

// TopTerms returns up to n terms with the highest document frequency, ties
// broken alphabetically.
func (idx *SearchIndex) TopTerms(n int) []TermStat {
	out := make([]TermStat, 0, len(idx.terms))
	for _, t := range idx.terms {
		out = append(out, TermStat{Term: t.Text, DocFreq: t.DocFreq})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DocFreq != out[j].DocFreq {
			return out[i].DocFreq > out[j].DocFreq
		}
		return out[i].Term < out[j].Term
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
