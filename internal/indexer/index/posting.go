package index

// Term is one normalised token with its posting list. DocFreq always equals
// len(Postings).
type Term struct {
	Text     string
	DocFreq  int
	Postings map[string]int // document ID -> term frequency
}

// Frequency returns how often the term occurs in the document, or 0.
func (t *Term) Frequency(docID string) int {
	if t == nil {
		return 0
	}
	return t.Postings[docID]
}

// TermStat is a read-only summary of a term used by stats endpoints.
type TermStat struct {
	Term    string `json:"term"`
	DocFreq int    `json:"doc_freq"`
}
