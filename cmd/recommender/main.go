// Command recommender serves title search, similarity recommendations
// enriched with movie metadata, and the review store.
//
// It loads the catalog and similarity matrix once at startup and exits if
// they disagree. Metadata lookups go through a circuit breaker and, when
// Redis is reachable, a cache. Catalog and ranking operations are also
// exposed over RPC for simctl and other services.
//
// Usage:
//
//	go run ./cmd/recommender [-config configs/development.yaml]
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

	"github.com/joho/godotenv"
	"github.com/sony/gobreaker/v2"

	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/catalog/artifact"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/metadata"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/recommender/handler"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/recommender/service"
	reviewhandler "github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/review/handler"
	reviewstore "github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/review/store"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/database"
	apperrors "github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/rpc"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting recommender service", "port", cfg.Server.Port, "rpc_port", cfg.Server.RPCPort)

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	snap, err := artifact.LoadFiles(cfg.Catalog.CatalogPath, cfg.Catalog.MatrixPath)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrArtifactMismatch) {
			slog.Error("catalog and similarity matrix do not match", "error", err)
		} else {
			slog.Error("failed to load artifacts", "error", err)
		}
		os.Exit(1)
	}
	slog.Info("catalog loaded",
		"items", snap.Len(),
		"catalog", cfg.Catalog.CatalogPath,
		"matrix", cfg.Catalog.MatrixPath,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checker := health.NewChecker()
	checker.Register("catalog", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d items", snap.Len())}
	})

	// Metadata: TMDB client behind a breaker, behind the Redis cache.
	var (
		fetcher   metadata.Fetcher
		metaCache handler.MetadataCache
	)
	if cfg.Metadata.APIKey == "" {
		slog.Warn("metadata api key not set, recommendations will use catalog titles only")
	} else {
		breaker := metadata.NewBreaker("tmdb", metadata.NewTMDBClient(cfg.Metadata, m), metadata.BreakerConfig{}, m)
		fetcher = breaker
		checker.RegisterOptional("metadata", func(ctx context.Context) health.ComponentHealth {
			state := breaker.State()
			if state == gobreaker.StateOpen {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: "circuit open"}
			}
			return health.ComponentHealth{Status: health.StatusUp, Message: "circuit " + state.String()}
		})

		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, metadata caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			cache := metadata.NewCache(redisClient, breaker, cfg.Redis.CacheTTL, cfg.Metadata.Language, m)
			fetcher = cache
			metaCache = cache
			checker.RegisterOptional("redis", health.PingCheck(redisClient.Ping))
			slog.Info("metadata cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	db, err := database.Open(cfg.Reviews.Driver, cfg.Postgres, cfg.Reviews.SQLitePath)
	if err != nil {
		slog.Error("failed to open review database", "driver", cfg.Reviews.Driver, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	checker.Register("reviews_db", health.PingCheck(db.Ping))

	reviewEvents := kafka.NewPublisher(cfg.Kafka, cfg.Kafka.Topics.ReviewEvents)
	defer reviewEvents.Close()
	reviews := reviewstore.New(db, reviewEvents, m)
	if err := reviews.Migrate(ctx); err != nil {
		slog.Error("failed to migrate review schema", "error", err)
		os.Exit(1)
	}

	analyticsEvents := kafka.NewPublisher(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
	defer analyticsEvents.Close()
	collector := analytics.NewCollector(analyticsEvents, cfg.Analytics.BufferSize, m)
	collector.Start(ctx)
	defer collector.Close()

	svc := service.New(snap, fetcher, collector, m, service.Config{
		DefaultK:          cfg.Recommend.DefaultK,
		MaxK:              cfg.Recommend.MaxK,
		EnrichConcurrency: cfg.Recommend.EnrichConcurrency,
		MaxSearchResults:  cfg.Recommend.MaxSearchResults,
		LookupTimeout:     cfg.Recommend.LookupTimeout,
		ImageBaseURL:      cfg.Metadata.ImageBaseURL,
		PlaceholderImage:  cfg.Metadata.PlaceholderImage,
		Tracing:           cfg.Tracing.Enabled,
	})

	rpcServer := rpc.NewServer()
	handler.RegisterRPC(rpcServer, svc)
	slog.Info("rpc server starting", "port", cfg.Server.RPCPort, "methods", rpcServer.MethodCount())
	go func() {
		if err := rpcServer.Serve(fmt.Sprintf(":%d", cfg.Server.RPCPort)); err != nil {
			slog.Error("rpc server error", "error", err)
		}
	}()
	defer rpcServer.Stop()

	mux := http.NewServeMux()
	handler.New(svc, metaCache).Register(mux)
	reviewhandler.New(reviews).Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	chain := middleware.Chain(mux,
		middleware.RequestID,
		middleware.AccessLog,
		middleware.Metrics(m),
		middleware.Timeout(cfg.Server.WriteTimeout),
	)

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

	slog.Info("recommender service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("recommender service stopped")
}
