package fusion

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/content"
)

// Contextual boost multipliers.
const (
	LiveBoost = 1.3
	DayBoost  = 1.2 // published less than 24h ago
	WeekBoost = 1.1 // published less than 7 days ago
)

// Boost returns the product of the contextual multipliers for doc at now.
// Live and recency boosts are independent; the two recency boosts are
// exclusive. A zero PublishedAt gets no recency boost, and a timestamp in the
// future counts as published within the last day.
func Boost(doc content.Document, now time.Time) float64 {
	boost := 1.0
	if doc.IsLive() {
		boost *= LiveBoost
	}
	if doc.PublishedAt.IsZero() {
		return boost
	}
	age := now.Sub(doc.PublishedAt)
	switch {
	case age < 24*time.Hour:
		boost *= DayBoost
	case age < 7*24*time.Hour:
		boost *= WeekBoost
	}
	return boost
}
