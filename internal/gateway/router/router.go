// Package router wires up all API gateway routes and applies the middleware
// chain (RequestID, AccessLog, Metrics, CORS, Auth, RateLimit).
package router

import (
	"net/http"
	"time"

	gwhandler "github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/gateway/handler"
	gwmw "github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/gateway/middleware"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/metrics"
	pkgmw "github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/middleware"
)

type Options struct {
	Validator      gwmw.Validator
	Limiter        gwmw.Limiter
	Health         *health.Checker
	Metrics        *metrics.Metrics
	AnonymousLimit int
	RateWindow     time.Duration
	CORS           gwmw.CORSConfig
}

// New builds the full gateway HTTP handler with all routes and middleware.
//
// Route table:
//
//	GET    /api/v1/titles                     → recommender
//	GET    /api/v1/titles/resolve             → recommender
//	GET    /api/v1/recommendations            → recommender
//	GET    /api/v1/items/{position}/similar   → recommender
//	GET    /api/v1/movies/search              → recommender
//	GET    /api/v1/movies/{id}                → recommender
//	GET    /api/v1/movies/{id}/reviews        → recommender
//	POST   /api/v1/movies/{id}/reviews        → recommender (key)
//	GET    /api/v1/reviews/{id}               → recommender
//	DELETE /api/v1/reviews/{id}               → recommender (key)
//	GET    /api/v1/cache/stats                → recommender
//	POST   /api/v1/cache/invalidate           → recommender (admin)
//	GET    /api/v1/analytics/...              → analytics
//	POST   /api/v1/admin/keys                 → create API key (admin)
//	GET    /api/v1/admin/keys                 → list API keys (admin)
//	DELETE /api/v1/admin/keys/{id}            → revoke API key (admin)
//	GET    /health/live, /health/ready        → gateway health
func New(h *gwhandler.Handler, opts Options) http.Handler {
	mux := http.NewServeMux()

	if opts.Health != nil {
		mux.HandleFunc("GET /health/live", opts.Health.LiveHandler())
		mux.HandleFunc("GET /health/ready", opts.Health.ReadyHandler())
	}

	mux.HandleFunc("GET /api/v1/titles", h.ProxyRecommender)
	mux.HandleFunc("GET /api/v1/titles/resolve", h.ProxyRecommender)
	mux.HandleFunc("GET /api/v1/recommendations", h.ProxyRecommender)
	mux.HandleFunc("GET /api/v1/items/{position}/similar", h.ProxyRecommender)
	mux.HandleFunc("GET /api/v1/movies/search", h.ProxyRecommender)
	mux.HandleFunc("GET /api/v1/movies/{id}", h.ProxyRecommender)
	mux.HandleFunc("GET /api/v1/movies/{id}/reviews", h.ProxyRecommender)
	mux.HandleFunc("POST /api/v1/movies/{id}/reviews", h.ProxyRecommender)
	mux.HandleFunc("GET /api/v1/reviews/{id}", h.ProxyRecommender)
	mux.HandleFunc("DELETE /api/v1/reviews/{id}", h.ProxyRecommender)
	mux.HandleFunc("GET /api/v1/cache/stats", h.ProxyRecommender)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.ProxyRecommender)

	mux.HandleFunc("GET /api/v1/analytics/", h.ProxyAnalytics)

	mux.HandleFunc("POST /api/v1/admin/keys", h.CreateAPIKey)
	mux.HandleFunc("GET /api/v1/admin/keys", h.ListAPIKeys)
	mux.HandleFunc("DELETE /api/v1/admin/keys/{id}", h.RevokeAPIKey)

	return pkgmw.Chain(mux,
		pkgmw.RequestID,
		pkgmw.AccessLog,
		pkgmw.Metrics(opts.Metrics),
		gwmw.CORS(opts.CORS),
		gwmw.Auth(opts.Validator, gwmw.DefaultPolicy()),
		gwmw.RateLimit(opts.Limiter, opts.AnonymousLimit, opts.RateWindow),
	)
}
