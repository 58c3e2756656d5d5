package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/content"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/resilience"
)

// corpusSource is the configured document store. writer, pinger and
// postgres are nil for the read-only file source.
type corpusSource struct {
	fetcher  content.Fetcher
	writer   content.Writer
	pinger   health.Pinger
	postgres *postgres.Client
	closer   func() error
}

func (c *corpusSource) Close() {
	if c.closer == nil {
		return
	}
	if err := c.closer(); err != nil {
		slog.Warn("closing corpus source", "error", err)
	}
}

func openCorpus(ctx context.Context, cfg *config.Config) (*corpusSource, error) {
	switch cfg.Indexer.Source {
	case config.SourcePostgres:
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		store := content.NewPostgresStore(db)
		if err := store.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		slog.Info("content store connected", "source", "postgres", "host", cfg.Postgres.Host)
		return &corpusSource{fetcher: store, writer: store, pinger: db, postgres: db, closer: db.Close}, nil
	case config.SourceSQLite:
		store, err := content.OpenSQLite(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		slog.Info("content store opened", "source", "sqlite", "path", cfg.SQLite.Path)
		return &corpusSource{fetcher: store, writer: store, pinger: store, closer: store.Close}, nil
	case config.SourceFile:
		slog.Info("content loaded from file", "path", cfg.Indexer.CorpusFile)
		return &corpusSource{fetcher: content.NewFileFetcher(cfg.Indexer.CorpusFile)}, nil
	default:
		return nil, fmt.Errorf("unknown corpus source %q", cfg.Indexer.Source)
	}
}

func breakerGauge(m *metrics.Metrics) func(name string, to resilience.State) {
	return func(name string, to resilience.State) {
		m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
	}
}

// indexCheck reports degraded until the first successful build; the service
// still answers searches from the empty index meanwhile.
func indexCheck(engine *indexer.Engine) health.Check {
	return func(ctx context.Context) health.ComponentHealth {
		st := engine.Status()
		if !st.Ready {
			msg := "no index built yet"
			if st.LastError != "" {
				msg = st.LastError
			}
			return health.ComponentHealth{Status: health.StatusDegraded, Message: msg}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("generation %d, %d documents", st.Generation, st.Stats.DocCount),
		}
	}
}

func groupID(base, suffix string) string {
	return base + "-" + suffix
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return fmt.Sprintf("pid%d", os.Getpid())
	}
	return h
}
