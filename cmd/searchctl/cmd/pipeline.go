package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/content"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/embedding"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/fusion"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/suggest"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/postgres"
)

// pipeline is an in-process search stack built from one corpus load.
type pipeline struct {
	cfg      *config.Config
	engine   *indexer.Engine
	executor *executor.Executor
	vocab    suggest.Vocabulary
	close    func()
}

func (p *pipeline) defaultOptions() fusion.Options {
	return fusion.Options{
		LexicalWeight:    p.cfg.Search.LexicalWeight,
		SimilarityWeight: p.cfg.Search.SimilarityWeight,
		MaxResults:       p.cfg.Search.DefaultLimit,
	}
}

func loadConfig(opts *globalOptions) (*config.Config, error) {
	if opts.corpus == "" {
		return config.Load(opts.configPath)
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	cfg.Indexer.Source = config.SourceFile
	cfg.Indexer.CorpusFile = opts.corpus
	return cfg, nil
}

func openFetcher(ctx context.Context, cfg *config.Config) (content.Fetcher, func(), error) {
	switch cfg.Indexer.Source {
	case config.SourceFile:
		return content.NewFileFetcher(cfg.Indexer.CorpusFile), func() {}, nil
	case config.SourceSQLite:
		store, err := content.OpenSQLite(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case config.SourcePostgres:
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return content.NewPostgresStore(db), func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown corpus source %q", cfg.Indexer.Source)
	}
}

// buildPipeline loads the corpus once and wires the executor over it. A
// failed load is returned rather than served as an empty index.
func buildPipeline(ctx context.Context, opts *globalOptions) (*pipeline, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	fetcher, closeFetcher, err := openFetcher(ctx, cfg)
	if err != nil {
		return nil, err
	}
	engine := indexer.NewEngine(fetcher, cfg.Indexer, nil)
	idx, err := engine.Rebuild(ctx)
	if err != nil {
		closeFetcher()
		return nil, fmt.Errorf("building index: %w", err)
	}
	slog.Info("index ready", "documents", idx.Len(), "generation", idx.Generation())

	vocab := suggest.NewVocabulary(cfg.Suggest.Categories, cfg.Suggest.Subcategories)
	provider := embedding.NewCachedProvider(embedding.NewBagOfWords(), cfg.Search.EmbeddingCacheSize, nil)
	exec := executor.New(engine, fusion.NewRanker(provider),
		executor.WithPipelineTimeout(cfg.Search.PipelineTimeout),
		executor.WithVocabulary(vocab),
	)
	return &pipeline{
		cfg:      cfg,
		engine:   engine,
		executor: exec,
		vocab:    vocab,
		close:    closeFetcher,
	}, nil
}
