// Package content defines the sports content document the search engine
// indexes and the collaborators that supply a corpus snapshot: PostgreSQL and
// SQLite stores, static fixtures, and a retrying wrapper.
package content

import (
	"strings"
	"time"
)

// Lifecycle status values. Status comparisons are case-insensitive.
const (
	StatusLive     = "live"
	StatusUpcoming = "upcoming"
	StatusFinished = "finished"
)

// Document is one piece of sports content: an article, fixture or report.
// Text fields are plain strings so a missing field is always "".
type Document struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Category    string    `json:"category" yaml:"category"`
	Subcategory string    `json:"subcategory" yaml:"subcategory"`
	HomeTeam    string    `json:"home_team,omitempty" yaml:"home_team,omitempty"`
	AwayTeam    string    `json:"away_team,omitempty" yaml:"away_team,omitempty"`
	Excerpt     string    `json:"excerpt,omitempty" yaml:"excerpt,omitempty"`
	Body        string    `json:"body,omitempty" yaml:"body,omitempty"`
	Venue       string    `json:"venue,omitempty" yaml:"venue,omitempty"`
	Author      string    `json:"author,omitempty" yaml:"author,omitempty"`
	PublishedAt time.Time `json:"published_at" yaml:"published_at"`
	Status      string    `json:"status,omitempty" yaml:"status,omitempty"`
}

// IsLive reports whether the document is currently live.
func (d Document) IsLive() bool {
	return strings.EqualFold(strings.TrimSpace(d.Status), StatusLive)
}

// Participants returns "home away", or whichever of the two is set.
func (d Document) Participants() string {
	return joinNonEmpty(d.HomeTeam, d.AwayTeam)
}

// SearchableText concatenates the fields the index and the vector layer read:
// title, category, subcategory, participants, excerpt, venue, author, body.
func (d Document) SearchableText() string {
	return joinNonEmpty(
		d.Title,
		d.Category,
		d.Subcategory,
		d.HomeTeam,
		d.AwayTeam,
		d.Excerpt,
		d.Venue,
		d.Author,
		d.Body,
	)
}

func joinNonEmpty(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p)
	}
	return b.String()
}
