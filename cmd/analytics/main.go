// Command analytics starts the standalone analytics aggregation service.
//
// It consumes recommendation events and review events from Kafka,
// aggregates them in memory (request totals, latency percentiles, unknown
// titles, top titles, review activity) and exposes them at
// GET /api/v1/analytics/stats. Snapshots are persisted periodically and the
// latest one is restored on startup.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
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
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/analytics/snapshot"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/database"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/middleware"
)

// main restores the last snapshot, starts one consumer per topic feeding a
// shared aggregator, and serves the HTTP API. Graceful shutdown is
// triggered by SIGINT/SIGTERM and writes a final snapshot.
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
	slog.Info("starting analytics service", "port", cfg.Analytics.Port)

	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aggregator := analytics.NewAggregator()
	checker := health.NewChecker()

	db, err := database.Open(cfg.Reviews.Driver, cfg.Postgres, cfg.Reviews.SQLitePath)
	if err != nil {
		slog.Error("failed to open snapshot database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	checker.Register("snapshot_db", health.PingCheck(db.Ping))

	snapshots := snapshot.NewStore(db)
	if err := snapshots.Migrate(ctx); err != nil {
		slog.Error("failed to migrate snapshot schema", "error", err)
		os.Exit(1)
	}
	latest, err := snapshots.LatestSnapshot(ctx)
	if err != nil {
		slog.Warn("could not load latest snapshot, starting empty", "error", err)
	} else if latest != nil {
		aggregator.Restore(*latest)
		slog.Info("analytics restored from snapshot",
			"total_recommendations", latest.TotalRecommendations,
			"reviews_created", latest.ReviewsCreated,
		)
	}
	saved := snapshots.StartPeriodicSave(ctx, aggregator, cfg.Analytics.SnapshotInterval)

	var consumers errgroup.Group
	if len(cfg.Kafka.Brokers) == 0 {
		slog.Warn("kafka brokers not configured, no events will be consumed")
	} else {
		for _, topic := range []string{cfg.Kafka.Topics.AnalyticsEvents, cfg.Kafka.Topics.ReviewEvents} {
			consumer := kafka.NewConsumer(cfg.Kafka, topic, analytics.HandleEvent(aggregator))
			consumers.Go(func() error {
				if err := consumer.Start(ctx); err != nil {
					return fmt.Errorf("consumer %s: %w", topic, err)
				}
				return nil
			})
			slog.Info("analytics consumer started", "topic", topic)
		}
	}

	mux := http.NewServeMux()
	analytics.NewHandler(aggregator, snapshots).Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	chain := middleware.Chain(mux,
		middleware.RequestID,
		middleware.AccessLog,
		middleware.Metrics(m),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Analytics.Port),
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

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	if err := consumers.Wait(); err != nil {
		slog.Error("consumer error", "error", err)
	}
	<-saved
	slog.Info("analytics service stopped")
}
