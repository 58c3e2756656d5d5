package content

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
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
	published_at INTEGER,
	status       TEXT
)`

// SQLiteStore is a file-backed content store for local development and the
// CLI. published_at is stored as Unix seconds.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
// Use ":memory:" for a throwaway store.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	// One connection: a ":memory:" database exists per connection, and a
	// single writer avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating content_documents: %w", err)
	}
	return &SQLiteStore{
		db:     db,
		path:   path,
		logger: slog.Default().With("component", "sqlite-content-store", "path", path),
	}, nil
}

func (s *SQLiteStore) FetchCorpus(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM content_documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying content documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var n nullableDocument
		var publishedAt sql.NullInt64
		if err := rows.Scan(n.dest(&publishedAt)...); err != nil {
			return nil, fmt.Errorf("scanning content document: %w", err)
		}
		doc := n.document()
		if publishedAt.Valid && publishedAt.Int64 != 0 {
			doc.PublishedAt = time.Unix(publishedAt.Int64, 0).UTC()
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating content documents: %w", err)
	}
	s.logger.Debug("corpus fetched", "documents", len(docs))
	return docs, nil
}

// Put inserts or replaces docs in one transaction.
func (s *SQLiteStore) Put(ctx context.Context, docs []Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO content_documents (`+documentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range docs {
		var publishedAt sql.NullInt64
		if !d.PublishedAt.IsZero() {
			publishedAt = sql.NullInt64{Int64: d.PublishedAt.Unix(), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			d.ID, d.Title, d.Category, d.Subcategory,
			nullableString(d.HomeTeam), nullableString(d.AwayTeam),
			d.Excerpt, d.Body, d.Venue, d.Author, publishedAt, d.Status,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("inserting document %s: %w", d.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Delete removes the documents with the given IDs.
func (s *SQLiteStore) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	res, err := s.db.ExecContext(ctx, `DELETE FROM content_documents WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("deleting content documents: %w", err)
	}
	return deleted(res, ids)
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
