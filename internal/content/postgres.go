package content

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/postgres"
	"github.com/lib/pq"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS content_documents (
	id           TEXT PRIMARY KEY,
	title        TEXT,
	category     TEXT,
	subcategory  TEXT,
	home_team    TEXT,
	away_team    TEXT,
	excerpt      TEXT,
	body         TEXT,
	venue        TEXT,
	author       TEXT,
	published_at TIMESTAMPTZ,
	status       TEXT
)`

// PostgresStore reads and writes the corpus in the content_documents table.
type PostgresStore struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewPostgresStore(db *postgres.Client) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: slog.Default().With("component", "postgres-content-store"),
	}
}

// Migrate creates the content table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("creating content_documents: %w", err)
	}
	return nil
}

func (s *PostgresStore) FetchCorpus(ctx context.Context) ([]Document, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM content_documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying content documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var n nullableDocument
		var publishedAt sql.NullTime
		if err := rows.Scan(n.dest(&publishedAt)...); err != nil {
			return nil, fmt.Errorf("scanning content document: %w", err)
		}
		doc := n.document()
		if publishedAt.Valid {
			doc.PublishedAt = publishedAt.Time
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating content documents: %w", err)
	}
	s.logger.Debug("corpus fetched", "documents", len(docs))
	return docs, nil
}

// Put writes docs in one transaction, replacing rows with the same ID.
func (s *PostgresStore) Put(ctx context.Context, docs []Document) error {
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO content_documents (`+documentColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			 ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title,
				category = EXCLUDED.category,
				subcategory = EXCLUDED.subcategory,
				home_team = EXCLUDED.home_team,
				away_team = EXCLUDED.away_team,
				excerpt = EXCLUDED.excerpt,
				body = EXCLUDED.body,
				venue = EXCLUDED.venue,
				author = EXCLUDED.author,
				published_at = EXCLUDED.published_at,
				status = EXCLUDED.status`)
		if err != nil {
			return fmt.Errorf("preparing upsert: %w", err)
		}
		defer stmt.Close()
		for _, d := range docs {
			publishedAt := sql.NullTime{Time: d.PublishedAt, Valid: !d.PublishedAt.IsZero()}
			if _, err := stmt.ExecContext(ctx,
				d.ID, d.Title, d.Category, d.Subcategory,
				nullableString(d.HomeTeam), nullableString(d.AwayTeam),
				d.Excerpt, d.Body, d.Venue, d.Author, publishedAt, d.Status,
			); err != nil {
				return fmt.Errorf("upserting document %s: %w", d.ID, err)
			}
		}
		return nil
	})
}

// Delete removes the documents with the given IDs. Missing IDs are ignored.
func (s *PostgresStore) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	res, err := s.db.DB.ExecContext(ctx,
		`DELETE FROM content_documents WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("deleting content documents: %w", err)
	}
	return deleted(res, ids)
}
