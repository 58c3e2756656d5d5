package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/suggest"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResult(w io.Writer, res *executor.SearchResult) {
	if res == nil {
		fmt.Fprintln(w, "no results")
		return
	}
	if res.Mode == executor.ModeEmpty {
		fmt.Fprintln(w, "(empty query)")
		return
	}
	header := fmt.Sprintf("%d result(s) for %q [%s", res.TotalHits, res.Query, res.Mode)
	if res.FallbackReason != "" {
		header += ": " + res.FallbackReason
	}
	fmt.Fprintf(w, "%s, %.1fms]\n", header, res.LatencyMs)
	for i, r := range res.Results {
		d := r.Document
		live := ""
		if d.IsLive() {
			live = " LIVE"
		}
		fmt.Fprintf(w, "%2d. %s%s\n", i+1, d.Title, live)
		fmt.Fprintf(w, "    id=%s  %s / %s  score=%.4f (lexical %.3f, similarity %.3f, boost %.2f)\n",
			d.ID, d.Category, d.Subcategory, r.Score, r.LexicalScore, r.SimilarityScore, r.Boost)
	}
	if res.Suggestions != nil {
		printSuggestions(w, *res.Suggestions)
	}
}

func printSuggestions(w io.Writer, s suggest.Suggestions) {
	if s.Empty() {
		fmt.Fprintln(w, "no suggestions")
		return
	}
	if len(s.Categories) > 0 {
		fmt.Fprintf(w, "did you mean category: %s\n", strings.Join(s.Categories, ", "))
	}
	if len(s.Subcategories) > 0 {
		fmt.Fprintf(w, "did you mean subcategory: %s\n", strings.Join(s.Subcategories, ", "))
	}
}
