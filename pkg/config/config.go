// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Auth, Postgres, SQLite, Kafka, Redis, Indexer, Search,
// Suggest, Analytics, Logging, Metrics).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Corpus sources understood by IndexerConfig.Source.
const (
	SourcePostgres = "postgres"
	SourceSQLite   = "sqlite"
	SourceFile     = "file"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	SQLite    SQLiteConfig    `yaml:"sqlite"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Indexer   IndexerConfig   `yaml:"indexer"`
	Search    SearchConfig    `yaml:"search"`
	Suggest   SuggestConfig   `yaml:"suggest"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
	// RateLimit is the per-client request budget per RateWindow on the
	// public API. Zero disables limiting.
	RateLimit  int           `yaml:"rateLimit"`
	RateWindow time.Duration `yaml:"rateWindow"`
}

// AuthConfig lists the API keys allowed to call the admin routes (index
// rebuild, cache invalidation, content writes). With no keys configured
// every admin request is rejected.
type AuthConfig struct {
	APIKeys []APIKeyConfig `yaml:"apiKeys"`
}

// APIKeyConfig is one admin key. Key is either the raw key or
// "sha256:<hex digest>" so config files need not hold raw secrets.
type APIKeyConfig struct {
	Name      string `yaml:"name"`
	Key       string `yaml:"key"`
	RateLimit int    `yaml:"rateLimit"`
}

// PostgresConfig holds PostgreSQL connection parameters for the content store.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// SQLiteConfig points at a local content database used for development.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	ContentChanges  string `yaml:"contentChanges"`
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// IndexerConfig controls where the corpus comes from and how often the
// in-memory index is rebuilt from it.
type IndexerConfig struct {
	Source          string        `yaml:"source"`
	CorpusFile      string        `yaml:"corpusFile"`
	RefreshInterval time.Duration `yaml:"refreshInterval"`
	RebuildTimeout  time.Duration `yaml:"rebuildTimeout"`
	FetchAttempts   int           `yaml:"fetchAttempts"`
}

// SearchConfig controls ranking weights, result limits and pipeline timing.
type SearchConfig struct {
	DefaultLimit       int           `yaml:"defaultLimit"`
	MaxResults         int           `yaml:"maxResults"`
	LexicalWeight      float64       `yaml:"lexicalWeight"`
	SimilarityWeight   float64       `yaml:"similarityWeight"`
	Debounce           time.Duration `yaml:"debounce"`
	PipelineTimeout    time.Duration `yaml:"pipelineTimeout"`
	SlowQuery          time.Duration `yaml:"slowQuery"`
	EmbeddingCacheSize int           `yaml:"embeddingCacheSize"`
}

// SuggestConfig holds the closed vocabularies offered as filter shortcuts
// when a query has no results. Empty lists fall back to built-in defaults.
type SuggestConfig struct {
	Categories    []string `yaml:"categories"`
	Subcategories []string `yaml:"subcategories"`
}

// AnalyticsConfig controls search-event collection. Events go to Kafka when
// it is enabled and straight to the in-process aggregator otherwise. A zero
// SnapshotInterval disables Postgres snapshots; a zero SnapshotRetention
// keeps them forever.
type AnalyticsConfig struct {
	BufferSize        int           `yaml:"bufferSize"`
	BatchSize         int           `yaml:"batchSize"`
	FlushInterval     time.Duration `yaml:"flushInterval"`
	SnapshotInterval  time.Duration `yaml:"snapshotInterval"`
	SnapshotRetention time.Duration `yaml:"snapshotRetention"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the search pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Indexer.Source {
	case SourcePostgres, SourceSQLite, SourceFile:
	default:
		return fmt.Errorf("indexer.source must be one of %s, %s, %s (got %q)",
			SourcePostgres, SourceSQLite, SourceFile, c.Indexer.Source)
	}
	if c.Indexer.Source == SourceFile && c.Indexer.CorpusFile == "" {
		return fmt.Errorf("indexer.corpusFile is required when source is %s", SourceFile)
	}
	if c.Search.LexicalWeight < 0 || c.Search.SimilarityWeight < 0 {
		return fmt.Errorf("search weights must be non-negative")
	}
	for i, k := range c.Auth.APIKeys {
		if strings.TrimSpace(k.Key) == "" {
			return fmt.Errorf("auth.apiKeys[%d].key must not be empty", i)
		}
	}
	if c.Server.RateLimit > 0 && c.Server.RateWindow <= 0 {
		return fmt.Errorf("server.rateWindow must be positive when server.rateLimit is set")
	}
	if c.Search.DefaultLimit < 1 || c.Search.MaxResults < c.Search.DefaultLimit {
		return fmt.Errorf("search.defaultLimit must be >= 1 and <= search.maxResults")
	}
	return nil
}

// defaultConfig returns a Config with defaults for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimit:       600,
			RateWindow:      time.Minute,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "sportscontent",
			User:            "sportscontent",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		SQLite: SQLiteConfig{
			Path: "data/content.db",
		},
		Kafka: KafkaConfig{
			Enabled:       false,
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "sports-search",
			Topics: KafkaTopics{
				ContentChanges:  "content-changes",
				AnalyticsEvents: "search-analytics",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 30 * time.Second,
		},
		Indexer: IndexerConfig{
			Source:          SourcePostgres,
			RefreshInterval: 5 * time.Minute,
			RebuildTimeout:  30 * time.Second,
			FetchAttempts:   3,
		},
		Search: SearchConfig{
			DefaultLimit:       10,
			MaxResults:         50,
			LexicalWeight:      0.6,
			SimilarityWeight:   0.4,
			Debounce:           300 * time.Millisecond,
			PipelineTimeout:    2 * time.Second,
			SlowQuery:          500 * time.Millisecond,
			EmbeddingCacheSize: 4096,
		},
		Analytics: AnalyticsConfig{
			BufferSize:        10000,
			BatchSize:         100,
			FlushInterval:     5 * time.Second,
			SnapshotRetention: 7 * 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads SP_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SP_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SP_ADMIN_API_KEY"); v != "" {
		cfg.Auth.APIKeys = append(cfg.Auth.APIKeys, APIKeyConfig{Name: "env", Key: v})
	}
	if v := os.Getenv("SP_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("SP_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("SP_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("SP_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("SP_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("SP_SQLITE_PATH"); v != "" {
		cfg.SQLite.Path = v
	}
	if v := os.Getenv("SP_KAFKA_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = enabled
		}
	}
	if v := os.Getenv("SP_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SP_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SP_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SP_INDEXER_SOURCE"); v != "" {
		cfg.Indexer.Source = v
	}
	if v := os.Getenv("SP_INDEXER_CORPUS_FILE"); v != "" {
		cfg.Indexer.CorpusFile = v
	}
	if v := os.Getenv("SP_SEARCH_LEXICAL_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.LexicalWeight = w
		}
	}
	if v := os.Getenv("SP_SEARCH_SIMILARITY_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.SimilarityWeight = w
		}
	}
	if v := os.Getenv("SP_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SP_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
