// Package validator checks documents before they are written to the content
// store and returns per-field error details.
package validator

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/content"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/ingestion"
)

const (
	maxIDLength    = 255
	maxTitleLength = 1024
	maxFieldLength = 1024
	maxBodyLength  = 1048576
	MaxBatchSize   = 500
)

// ValidationError holds per-field validation failure messages keyed by
// "documents[i].field".
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return strings.Join(parts, "; ")
}

// ValidateIngestRequest checks the batch size, rejects duplicate IDs within
// the batch and validates every document.
func ValidateIngestRequest(req *ingestion.IngestRequest) error {
	errs := make(map[string]string)
	switch {
	case len(req.Documents) == 0:
		errs["documents"] = "at least one document is required"
	case len(req.Documents) > MaxBatchSize:
		errs["documents"] = fmt.Sprintf("at most %d documents per request", MaxBatchSize)
	}

	seen := make(map[string]int, len(req.Documents))
	for i := range req.Documents {
		doc := &req.Documents[i]
		prefix := fmt.Sprintf("documents[%d].", i)
		validateDocument(doc, prefix, errs)
		id := strings.TrimSpace(doc.ID)
		if id == "" {
			continue
		}
		if first, dup := seen[id]; dup {
			errs[prefix+"id"] = fmt.Sprintf("duplicates documents[%d].id", first)
			continue
		}
		seen[id] = i
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func validateDocument(doc *content.Document, prefix string, errs map[string]string) {
	id := strings.TrimSpace(doc.ID)
	switch {
	case id == "":
		errs[prefix+"id"] = "id is required"
	case len(id) > maxIDLength:
		errs[prefix+"id"] = fmt.Sprintf("id must be at most %d bytes", maxIDLength)
	}

	title := strings.TrimSpace(doc.Title)
	switch {
	case title == "":
		errs[prefix+"title"] = "title is required"
	case utf8.RuneCountInString(title) > maxTitleLength:
		errs[prefix+"title"] = fmt.Sprintf("title must be at most %d characters", maxTitleLength)
	}

	if strings.TrimSpace(doc.Category) == "" {
		errs[prefix+"category"] = "category is required"
	}
	for name, v := range map[string]string{
		"category":    doc.Category,
		"subcategory": doc.Subcategory,
		"home_team":   doc.HomeTeam,
		"away_team":   doc.AwayTeam,
		"venue":       doc.Venue,
		"author":      doc.Author,
	} {
		if utf8.RuneCountInString(v) > maxFieldLength {
			errs[prefix+name] = fmt.Sprintf("%s must be at most %d characters", name, maxFieldLength)
		}
	}
	if len(doc.Excerpt) > maxBodyLength {
		errs[prefix+"excerpt"] = fmt.Sprintf("excerpt must be at most %d bytes", maxBodyLength)
	}
	if len(doc.Body) > maxBodyLength {
		errs[prefix+"body"] = fmt.Sprintf("body must be at most %d bytes", maxBodyLength)
	}

	switch strings.ToLower(strings.TrimSpace(doc.Status)) {
	case "", content.StatusUpcoming, content.StatusLive, content.StatusFinished:
	default:
		errs[prefix+"status"] = fmt.Sprintf("status must be one of %s, %s, %s",
			content.StatusUpcoming, content.StatusLive, content.StatusFinished)
	}
}
