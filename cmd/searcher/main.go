package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/auth/apikey"
	authmw "github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/auth/middleware"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/auth/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/content"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/indexer/index"
	ingesthandler "github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/embedding"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/fusion"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/suggest"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"source", cfg.Indexer.Source,
		"kafka", cfg.Kafka.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	checker := health.NewChecker()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, m, map[string]http.HandlerFunc{
			"GET /health/live":  checker.LiveHandler(),
			"GET /health/ready": checker.ReadyHandler(),
		})
		defer shutdownMetrics(context.Background())
	}

	corpus, err := openCorpus(ctx, cfg)
	if err != nil {
		slog.Error("failed to open corpus source", "error", err)
		os.Exit(1)
	}
	defer corpus.Close()
	if corpus.pinger != nil {
		checker.Register(cfg.Indexer.Source, health.PingCheck(corpus.pinger, false))
	}

	fetchBreaker := resilience.NewCircuitBreaker("corpus", resilience.CircuitBreakerConfig{
		OnStateChange: breakerGauge(m),
	})
	fetcher := content.NewRetryingFetcher(corpus.fetcher, resilience.RetryConfig{
		MaxAttempts: cfg.Indexer.FetchAttempts,
	}, fetchBreaker)
	engine := indexer.NewEngine(fetcher, cfg.Indexer, m)
	checker.Register("corpus-breaker", health.BreakerCheck(fetchBreaker))

	// Analytics: Kafka round-trip when enabled, in-process otherwise.
	agg := analytics.NewAggregator()
	var sink analytics.Publisher = agg
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		sink = producer

		analyticsConsumer := kafka.NewGroupConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents,
			groupID(cfg.Kafka.ConsumerGroup, hostname()+"-analytics"), analytics.HandleEvent(agg))
		go func() {
			if err := agg.Consume(ctx, analyticsConsumer); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("analytics aggregator error", "error", err)
			}
		}()
	}
	collector := analytics.NewCollector(sink,
		cfg.Analytics.BufferSize, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval)
	collector.Start(ctx)
	defer collector.Close()

	engine.OnRebuild(func(idx *index.SearchIndex, d time.Duration, err error) {
		collector.Track(analytics.NewRebuildEvent(idx, d, err))
	})

	if _, err := engine.Rebuild(ctx); err != nil {
		slog.Warn("initial index build failed, serving an empty index", "error", err)
	}
	engine.StartRefreshLoop(ctx)
	checker.Register("index", indexCheck(engine))

	if cfg.Kafka.Enabled {
		changes := consumer.New(kafka.NewGroupConsumer(cfg.Kafka, cfg.Kafka.Topics.ContentChanges,
			groupID(cfg.Kafka.ConsumerGroup, hostname()), consumer.HandleChange(engine)))
		go func() {
			if err := changes.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("change consumer error", "error", err)
			}
		}()
	}

	embedBreaker := resilience.NewCircuitBreaker("embedding", resilience.CircuitBreakerConfig{
		OnStateChange: breakerGauge(m),
	})
	checker.Register("embedding-breaker", health.BreakerCheck(embedBreaker))
	provider := embedding.NewCachedProvider(
		embedding.NewBreakerProvider(embedding.NewBagOfWords(), embedBreaker),
		cfg.Search.EmbeddingCacheSize, m,
	)
	ranker := fusion.NewRanker(provider, fusion.WithMetrics(m))
	vocab := suggest.NewVocabulary(cfg.Suggest.Categories, cfg.Suggest.Subcategories)
	exec := executor.New(engine, ranker,
		executor.WithPipelineTimeout(cfg.Search.PipelineTimeout),
		executor.WithVocabulary(vocab),
		executor.WithSlowQueryLog(cfg.Search.SlowQuery),
		executor.WithMetrics(m),
	)

	var queryCache *cache.QueryCache
	redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, search caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
		checker.Register("redis", health.PingCheck(redisClient, true))
		slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	var snapshots analytics.SnapshotLister
	if corpus.postgres != nil && cfg.Analytics.SnapshotInterval > 0 {
		store := aggregator.NewStore(corpus.postgres)
		if err := store.Migrate(ctx); err != nil {
			slog.Warn("analytics snapshot store unavailable", "error", err)
		} else {
			store.StartPeriodicSave(ctx, agg, cfg.Analytics.SnapshotInterval, cfg.Analytics.SnapshotRetention)
			snapshots = store
		}
	}

	limiter := ratelimit.New(cfg.Server.RateWindow)
	defer limiter.Close()
	keys := apikey.NewValidator(cfg.Auth.APIKeys)
	if keys.Len() == 0 {
		slog.Warn("no admin api keys configured, admin routes will reject every request")
	}
	protect := func(next http.Handler) http.Handler {
		return authmw.Auth(keys)(authmw.RateLimit(limiter, cfg.Server.RateLimit)(next))
	}

	h := handler.New(exec, engine, vocab, queryCache, collector, cfg.Search, m)
	analyticsH := analytics.NewHandler(agg, snapshots)

	mux := http.NewServeMux()
	h.Register(mux, protect)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /api/v1/analytics/snapshots", analyticsH.Snapshots)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	if corpus.writer != nil {
		var notifier publisher.Notifier = publisher.NewRebuildNotifier(engine)
		if cfg.Kafka.Enabled {
			changeProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.ContentChanges)
			defer changeProducer.Close()
			notifier = publisher.NewKafkaNotifier(changeProducer)
		}
		ingesthandler.New(publisher.New(corpus.writer, notifier)).Register(mux, protect)
		slog.Info("content write api enabled", "source", cfg.Indexer.Source)
	}

	var chain http.Handler = mux
	chain = authmw.RateLimit(limiter, cfg.Server.RateLimit)(chain)
	chain = middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins))(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
