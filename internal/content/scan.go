package content

import (
	"database/sql"
	"fmt"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/errors"
)

// documentColumns is the column order both stores select and scan.
const documentColumns = `id, title, category, subcategory, home_team, away_team,
	excerpt, body, venue, author, published_at, status`

// nullableDocument receives one row whose text columns may be NULL. A NULL
// becomes "" on the Document.
type nullableDocument struct {
	id, title, category, subcategory sql.NullString
	home, away, excerpt, body        sql.NullString
	venue, author, status            sql.NullString
}

func (n *nullableDocument) dest(publishedAt any) []any {
	return []any{
		&n.id, &n.title, &n.category, &n.subcategory, &n.home, &n.away,
		&n.excerpt, &n.body, &n.venue, &n.author, publishedAt, &n.status,
	}
}

func (n *nullableDocument) document() Document {
	return Document{
		ID:          n.id.String,
		Title:       n.title.String,
		Category:    n.category.String,
		Subcategory: n.subcategory.String,
		HomeTeam:    n.home.String,
		AwayTeam:    n.away.String,
		Excerpt:     n.excerpt.String,
		Body:        n.body.String,
		Venue:       n.venue.String,
		Author:      n.author.String,
		Status:      n.status.String,
	}
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// deleted reports ErrDocumentNotFound when a delete matched no rows.
func deleted(res sql.Result, ids []string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("counting deleted documents: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrDocumentNotFound, strings.Join(ids, ", "))
	}
	return nil
}
