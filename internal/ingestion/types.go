// Package ingestion defines the request/response types of the content write
// API. Accepted documents are stored and announced as content changes so the
// search index rebuilds.
package ingestion

import "github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/content"

// IngestRequest is the JSON body accepted by POST /api/v1/content.
type IngestRequest struct {
	Documents []content.Document `json:"documents"`
}

// IngestResponse is returned once documents are stored.
type IngestResponse struct {
	Accepted int      `json:"accepted"`
	IDs      []string `json:"ids"`
	Status   string   `json:"status"`
}

// Response statuses. StatusPending means the write succeeded but the change
// notification did not, so the index catches up on its next refresh.
const (
	StatusAccepted = "accepted"
	StatusPending  = "pending_refresh"
)
