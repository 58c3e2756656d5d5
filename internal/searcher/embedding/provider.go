package embedding

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/indexer/tokenizer"
)

// Provider encodes text into a vector. BagOfWords is the only built-in
// implementation; a trained model can be plugged in behind the same
// interface.
type Provider interface {
	Encode(ctx context.Context, text string) (Vector, error)
	Name() string
}

// BagOfWords encodes text as its L2-normalised term-frequency vector over
// the search tokenizer's output. It stands in for a trained embedding: two
// texts are similar only when they share tokens, with no synonym or
// paraphrase matching.
type BagOfWords struct{}

func NewBagOfWords() *BagOfWords {
	return &BagOfWords{}
}

func (*BagOfWords) Encode(ctx context.Context, text string) (Vector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tf := make(Vector)
	for _, tok := range tokenizer.Tokenize(text) {
		tf[tok]++
	}
	return Normalize(tf), nil
}

func (*BagOfWords) Name() string {
	return "bag-of-words"
}
