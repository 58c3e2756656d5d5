package content

import "time"

// Change actions published on the content-changes topic.
const (
	ActionUpserted = "upserted"
	ActionDeleted  = "deleted"
)

// ChangeEvent is published once per content write, listing every document
// the write touched. The search service treats any event as "the corpus
// changed" and rebuilds in full.
type ChangeEvent struct {
	DocumentIDs []string  `json:"document_ids"`
	Action      string    `json:"action"`
	ChangedAt   time.Time `json:"changed_at"`
}
