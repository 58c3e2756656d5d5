// Package ranker implements BM25 lexical scoring over a SearchIndex.
package ranker

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/indexer/index"
)

type ScoredDoc struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

// Score returns the BM25 score of doc for the query terms. Terms the document
// does not contain are skipped; a repeated query term counts once per
// occurrence. The result is 0 when nothing matches or the corpus has no
// tokens.
func Score(terms []string, doc *index.IndexedDocument, idx *index.SearchIndex) float64 {
	stats := idx.Stats()
	if stats.AvgDocLength == 0 || doc == nil {
		return 0
	}
	var score float64
	for _, t := range terms {
		term, ok := idx.Term(t)
		if !ok {
			continue
		}
		tf := term.Frequency(doc.ID)
		if tf == 0 {
			continue
		}
		idf := computeIDF(stats.DocCount, term.DocFreq)
		score += idf * computeTFNorm(float64(tf), float64(doc.Length), stats.AvgDocLength)
	}
	return score
}

// Rank scores every document and returns those with a positive score, best
// first, ties broken by ascending ID. limit <= 0 means no limit.
func Rank(terms []string, idx *index.SearchIndex, limit int) []ScoredDoc {
	result := make([]ScoredDoc, 0)
	for _, doc := range idx.Documents() {
		s := Score(terms, doc, idx)
		if s <= 0 {
			continue
		}
		result = append(result, ScoredDoc{DocID: doc.ID, Score: s})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].DocID < result[j].DocID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// computeIDF is ln(1 + (N - df + 0.5) / (df + 0.5)), always positive.
func computeIDF(totalDocs int, docFreq int) float64 {
	numerator := float64(totalDocs) - float64(docFreq) + 0.5
	denominator := float64(docFreq) + 0.5
	return math.Log(1 + numerator/denominator)
}

func computeTFNorm(termFreq float64, docLength float64, avgDocLength float64) float64 {
	if avgDocLength == 0 {
		return 0
	}
	lengthRatio := docLength / avgDocLength
	denominator := termFreq + index.K1*(1-index.B+index.B*lengthRatio)
	return (termFreq * (index.K1 + 1)) / denominator
}
