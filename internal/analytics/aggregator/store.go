// Package aggregator persists periodic snapshots of the search analytics
// statistics to PostgreSQL, so history survives restarts.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/postgres"
)

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS search_analytics_snapshots (
	id               BIGSERIAL PRIMARY KEY,
	index_generation BIGINT NOT NULL DEFAULT 0,
	total_searches   BIGINT NOT NULL DEFAULT 0,
	data             JSONB NOT NULL,
	captured_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_search_analytics_snapshots_captured_at
	ON search_analytics_snapshots (captured_at DESC)`

// Store persists aggregated analytics snapshots.
type Store struct {
	db     *postgres.Client
	now    func() time.Time
	logger *slog.Logger
}

var _ analytics.SnapshotLister = (*Store)(nil)

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		now:    time.Now,
		logger: slog.Default().With("component", "analytics-store"),
	}
}

// Migrate creates the snapshot table and its index if missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, snapshotSchema); err != nil {
		return fmt.Errorf("creating search_analytics_snapshots: %w", err)
	}
	return nil
}

// SaveSnapshot records stats. The generation and search count are also kept
// as columns so history can be filtered without decoding JSON.
func (s *Store) SaveSnapshot(ctx context.Context, stats analytics.AggregatedStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encoding stats: %w", err)
	}
	_, err = s.db.DB.ExecContext(ctx,
		`INSERT INTO search_analytics_snapshots (index_generation, total_searches, data, captured_at)
		 VALUES ($1, $2, $3, $4)`,
		int64(stats.IndexGeneration), stats.TotalSearches, data, s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}
	s.logger.Debug("analytics snapshot saved",
		"total_searches", stats.TotalSearches,
		"fallbacks", stats.FallbackCount,
		"index_generation", stats.IndexGeneration,
	)
	return nil
}

// Prune deletes snapshots captured before now minus retention.
func (s *Store) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	res, err := s.db.DB.ExecContext(ctx,
		`DELETE FROM search_analytics_snapshots WHERE captured_at < $1`,
		s.now().Add(-retention).UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning analytics snapshots: %w", err)
	}
	return res.RowsAffected()
}

// ListSnapshots returns the last limit snapshots, newest first. Corrupt rows
// are skipped.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]analytics.AggregatedStats, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT data FROM search_analytics_snapshots ORDER BY captured_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]analytics.AggregatedStats, 0, limit)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		var stats analytics.AggregatedStats
		if err := json.Unmarshal(data, &stats); err != nil {
			s.logger.Warn("skipping corrupt snapshot", "error", err)
			continue
		}
		snapshots = append(snapshots, stats)
	}
	return snapshots, rows.Err()
}

// StartPeriodicSave snapshots agg every interval and once more on shutdown.
// With a positive retention, older snapshots are pruned after each save.
func (s *Store) StartPeriodicSave(ctx context.Context, agg *analytics.Aggregator, interval, retention time.Duration) {
	save := func(ctx context.Context) {
		if err := s.SaveSnapshot(ctx, agg.Stats()); err != nil {
			s.logger.Error("analytics snapshot failed", "error", err)
			return
		}
		if retention <= 0 {
			return
		}
		if n, err := s.Prune(ctx, retention); err != nil {
			s.logger.Warn("snapshot pruning failed", "error", err)
		} else if n > 0 {
			s.logger.Info("pruned old analytics snapshots", "deleted", n)
		}
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				save(ctx)
			case <-ctx.Done():
				finalCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				save(finalCtx)
				cancel()
				return
			}
		}
	}()
	s.logger.Info("periodic snapshot started", "interval", interval, "retention", retention)
}
