// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Reviews, Kafka, Redis, Catalog, Metadata, Gateway, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Reviews   ReviewsConfig   `yaml:"reviews"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Recommend RecommendConfig `yaml:"recommend"`
	Metadata  MetadataConfig  `yaml:"metadata"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	RPCPort         int           `yaml:"rpcPort"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters.
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

// ReviewsConfig selects the review storage backend. Driver is "postgres"
// (uses the Postgres section) or "sqlite" (uses SQLitePath).
type ReviewsConfig struct {
	Driver     string `yaml:"driver"`
	SQLitePath string `yaml:"sqlitePath"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	AnalyticsEvents string `yaml:"analyticsEvents"`
	ReviewEvents    string `yaml:"reviewEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// CatalogConfig points at the precomputed artifacts loaded once at startup.
type CatalogConfig struct {
	CatalogPath string `yaml:"catalogPath"`
	MatrixPath  string `yaml:"matrixPath"`
}

// RecommendConfig controls default and maximum neighbour counts and the
// fan-out used when enriching results with metadata.
type RecommendConfig struct {
	DefaultK          int           `yaml:"defaultK"`
	MaxK              int           `yaml:"maxK"`
	EnrichConcurrency int           `yaml:"enrichConcurrency"`
	MaxSearchResults  int           `yaml:"maxSearchResults"`
	LookupTimeout     time.Duration `yaml:"lookupTimeout"`
}

// MetadataConfig configures the external movie-metadata API client.
type MetadataConfig struct {
	BaseURL          string        `yaml:"baseUrl"`
	APIKey           string        `yaml:"apiKey"`
	Language         string        `yaml:"language"`
	ImageBaseURL     string        `yaml:"imageBaseUrl"`
	PlaceholderImage string        `yaml:"placeholderImage"`
	Timeout          time.Duration `yaml:"timeout"`
	MaxAttempts      int           `yaml:"maxAttempts"`
}

// AnalyticsConfig controls event buffering and snapshot persistence.
type AnalyticsConfig struct {
	Port             int           `yaml:"port"`
	BufferSize       int           `yaml:"bufferSize"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls request tracing.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// GatewayConfig holds the API gateway port and upstream service URLs.
type GatewayConfig struct {
	Port           int           `yaml:"port"`
	RecommenderURL string        `yaml:"recommenderUrl"`
	AnalyticsURL   string        `yaml:"analyticsUrl"`
	RateWindow     time.Duration `yaml:"rateWindow"`
	AnonymousLimit int           `yaml:"anonymousLimit"`
	MetricsPort    int           `yaml:"metricsPort"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
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

// Validate rejects settings the services cannot start with.
func (c *Config) Validate() error {
	switch c.Reviews.Driver {
	case "postgres":
	case "sqlite":
		if c.Reviews.SQLitePath == "" {
			return fmt.Errorf("reviews.sqlitePath is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown reviews.driver %q", c.Reviews.Driver)
	}
	if c.Recommend.DefaultK <= 0 {
		return fmt.Errorf("recommend.defaultK must be positive, got %d", c.Recommend.DefaultK)
	}
	if c.Recommend.MaxK < c.Recommend.DefaultK {
		return fmt.Errorf("recommend.maxK (%d) must be >= recommend.defaultK (%d)", c.Recommend.MaxK, c.Recommend.DefaultK)
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			RPCPort:         9100,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "mynextmovies",
			User:            "mynextmovies",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Reviews: ReviewsConfig{
			Driver:     "sqlite",
			SQLitePath: "movies.db",
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "mynextmovies-group",
			Topics: KafkaTopics{
				AnalyticsEvents: "recommend-analytics",
				ReviewEvents:    "review-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 24 * time.Hour,
		},
		Catalog: CatalogConfig{
			CatalogPath: "data/movies.csv",
			MatrixPath:  "data/cosine_sim.simx",
		},
		Recommend: RecommendConfig{
			DefaultK:          10,
			MaxK:              50,
			EnrichConcurrency: 5,
			MaxSearchResults:  100,
			LookupTimeout:     8 * time.Second,
		},
		Metadata: MetadataConfig{
			BaseURL:          "https://api.themoviedb.org/3",
			Language:         "ko-KR",
			ImageBaseURL:     "https://image.tmdb.org/t/p/w500",
			PlaceholderImage: "no_image.jpg",
			Timeout:          5 * time.Second,
			MaxAttempts:      3,
		},
		Analytics: AnalyticsConfig{
			Port:             8081,
			BufferSize:       10000,
			SnapshotInterval: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
		Gateway: GatewayConfig{
			Port:           8082,
			RecommenderURL: "http://localhost:8080",
			AnalyticsURL:   "http://localhost:8081",
			RateWindow:     time.Minute,
			AnonymousLimit: 120,
			MetricsPort:    9091,
		},
	}
}

// applyEnvOverrides reads MNM_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setInt("MNM_SERVER_PORT", &cfg.Server.Port)
	setInt("MNM_SERVER_RPC_PORT", &cfg.Server.RPCPort)
	setString("MNM_POSTGRES_HOST", &cfg.Postgres.Host)
	setInt("MNM_POSTGRES_PORT", &cfg.Postgres.Port)
	setString("MNM_POSTGRES_DATABASE", &cfg.Postgres.Database)
	setString("MNM_POSTGRES_USER", &cfg.Postgres.User)
	setString("MNM_POSTGRES_PASSWORD", &cfg.Postgres.Password)
	setString("MNM_POSTGRES_SSLMODE", &cfg.Postgres.SSLMode)
	setString("MNM_REVIEWS_DRIVER", &cfg.Reviews.Driver)
	setString("MNM_REVIEWS_SQLITE_PATH", &cfg.Reviews.SQLitePath)
	if v := os.Getenv("MNM_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	setString("MNM_REDIS_ADDR", &cfg.Redis.Addr)
	setString("MNM_REDIS_PASSWORD", &cfg.Redis.Password)
	setString("MNM_CATALOG_PATH", &cfg.Catalog.CatalogPath)
	setString("MNM_MATRIX_PATH", &cfg.Catalog.MatrixPath)
	setInt("MNM_RECOMMEND_DEFAULT_K", &cfg.Recommend.DefaultK)
	setInt("MNM_RECOMMEND_MAX_K", &cfg.Recommend.MaxK)
	setString("MNM_METADATA_BASE_URL", &cfg.Metadata.BaseURL)
	setString("MNM_METADATA_API_KEY", &cfg.Metadata.APIKey)
	setString("MNM_METADATA_LANGUAGE", &cfg.Metadata.Language)
	setInt("MNM_ANALYTICS_PORT", &cfg.Analytics.Port)
	setInt("MNM_METRICS_PORT", &cfg.Metrics.Port)
	setString("MNM_LOGGING_LEVEL", &cfg.Logging.Level)
	setString("MNM_LOGGING_FORMAT", &cfg.Logging.Format)
	setInt("MNM_GATEWAY_PORT", &cfg.Gateway.Port)
	setString("MNM_GATEWAY_RECOMMENDER_URL", &cfg.Gateway.RecommenderURL)
	setString("MNM_GATEWAY_ANALYTICS_URL", &cfg.Gateway.AnalyticsURL)
}
