// Command gateway starts the API gateway service.
//
// The gateway is the single entry point for external clients. It serves
// reads anonymously under a per-IP limit, authenticates writes and admin
// calls via API keys (SHA-256 hashes in the review database), applies
// per-key rate limiting, and proxies to the recommender and analytics
// services. It also exposes admin endpoints for API key management.
//
// Usage:
//
//	go run ./cmd/gateway [-config configs/development.yaml]
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

	"github.com/joho/godotenv"

	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/auth/ratelimit"
	gwhandler "github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/gateway/handler"
	gwmw "github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/gateway/middleware"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/gateway/router"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/database"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/metrics"
)

// main opens the key database, builds the validator, rate limiter, gateway
// handler and router middleware chain, and starts the HTTP server.
// Graceful shutdown is triggered by SIGINT/SIGTERM.
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
	slog.Info("starting gateway service",
		"port", cfg.Gateway.Port,
		"recommender_url", cfg.Gateway.RecommenderURL,
		"analytics_url", cfg.Gateway.AnalyticsURL,
	)

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Gateway.MetricsPort)
		defer shutdownMetrics(context.Background())
	}

	db, err := database.Open(cfg.Reviews.Driver, cfg.Postgres, cfg.Reviews.SQLitePath)
	if err != nil {
		slog.Error("failed to open key database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	validator := apikey.NewValidator(db)
	if err := validator.Migrate(context.Background()); err != nil {
		slog.Error("failed to migrate api key schema", "error", err)
		os.Exit(1)
	}
	limiter := ratelimit.New(cfg.Gateway.RateWindow)
	defer limiter.Close()

	h, err := gwhandler.New(gwhandler.Config{
		RecommenderURL: cfg.Gateway.RecommenderURL,
		AnalyticsURL:   cfg.Gateway.AnalyticsURL,
	}, validator)
	if err != nil {
		slog.Error("invalid upstream configuration", "error", err)
		os.Exit(1)
	}

	checker := health.NewChecker()
	checker.Register("key_db", health.PingCheck(db.Ping))
	checker.RegisterOptional("recommender", upstreamCheck(cfg.Gateway.RecommenderURL))
	checker.RegisterOptional("analytics", upstreamCheck(cfg.Gateway.AnalyticsURL))

	chain := router.New(h, router.Options{
		Validator:      validator,
		Limiter:        limiter,
		Health:         checker,
		Metrics:        m,
		AnonymousLimit: cfg.Gateway.AnonymousLimit,
		RateWindow:     cfg.Gateway.RateWindow,
		CORS:           gwmw.DefaultCORSConfig(),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Gateway.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("gateway service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("gateway service stopped")
}

// upstreamCheck probes a service's liveness endpoint.
func upstreamCheck(baseURL string) health.Check {
	client := &http.Client{Timeout: 2 * time.Second}
	return health.PingCheck(func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health/live", nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		return nil
	})
}
