package tokenizer

import (
	"strings"
	"testing"
)

var benchText = strings.Repeat("Arsenal edged Chelsea in a thrilling London derby as the injuries piled up for the visitors. ", 20)

func BenchmarkTokenize(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		Tokenize(benchText)
	}
}

func BenchmarkStem(b *testing.B) {
	words := []string{"injuries", "matches", "goals", "running", "scored", "player", "fastest", "preview"}
	for b.Loop() {
		for _, w := range words {
			Stem(w)
		}
	}
}
