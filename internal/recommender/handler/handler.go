// Package handler serves the recommender's HTTP endpoints and registers
// its RPC methods.
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/recommender/ranker"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/recommender/service"
	apperrors "github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/logger"
)

// Recommender is the service surface the handler drives.
type Recommender interface {
	RecommendByTitle(ctx context.Context, title string, k int) (*service.LastResult, error)
	Similar(position, k int) ([]ranker.Recommendation, error)
	EffectiveK(k int) int
	Resolve(title string) (catalog.Item, error)
	Item(position int) (catalog.Item, error)
	Search(query string, limit int) []string
	Details(ctx context.Context, externalID int64) (*service.DetailView, error)
	SearchMovies(ctx context.Context, query string) ([]service.MovieHit, error)
}

// MetadataCache is the optional metadata cache behind the recommender.
type MetadataCache interface {
	Stats() (hits, misses int64)
	Invalidate(ctx context.Context) (int64, error)
}

type Handler struct {
	svc    Recommender
	cache  MetadataCache
	logger *slog.Logger
}

// New builds a Handler. cache may be nil when caching is disabled.
func New(svc Recommender, cache MetadataCache) *Handler {
	return &Handler{
		svc:    svc,
		cache:  cache,
		logger: slog.Default().With("component", "recommend-handler"),
	}
}

// Register mounts the recommender routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/titles", h.SearchTitles)
	mux.HandleFunc("GET /api/v1/titles/resolve", h.ResolveTitle)
	mux.HandleFunc("GET /api/v1/recommendations", h.Recommend)
	mux.HandleFunc("GET /api/v1/items/{position}/similar", h.Similar)
	mux.HandleFunc("GET /api/v1/movies/search", h.SearchMovies)
	mux.HandleFunc("GET /api/v1/movies/{id}", h.MovieDetails)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

type titlesResponse struct {
	Query  string   `json:"query"`
	Count  int      `json:"count"`
	Titles []string `json:"titles"`
}

func (h *Handler) SearchTitles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit, ok := h.intParam(w, r, "limit")
	if !ok {
		return
	}
	titles := h.svc.Search(query, limit)
	h.writeJSON(w, http.StatusOK, titlesResponse{Query: query, Count: len(titles), Titles: titles})
}

func (h *Handler) ResolveTitle(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if title == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'title' is required")
		return
	}
	item, err := h.svc.Resolve(title)
	if err != nil {
		h.fail(w, r, "resolve failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, item)
}

type charts struct {
	Scores []service.ChartPoint `json:"scores"`
	Shares []service.ChartPoint `json:"shares"`
}

type recommendResponse struct {
	*service.LastResult
	Charts charts `json:"charts"`
}

func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if title == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'title' is required")
		return
	}
	k, ok := h.intParam(w, r, "k")
	if !ok {
		return
	}
	res, err := h.svc.RecommendByTitle(r.Context(), title, k)
	if err != nil {
		h.fail(w, r, "recommendation failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, recommendResponse{
		LastResult: res,
		Charts:     charts{Scores: res.Scores(), Shares: res.Shares()},
	})
}

type similarResponse struct {
	Position int                     `json:"position"`
	K        int                     `json:"k"`
	Results  []ranker.Recommendation `json:"results"`
}

func (h *Handler) Similar(w http.ResponseWriter, r *http.Request) {
	position, err := strconv.Atoi(r.PathValue("position"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "position must be an integer")
		return
	}
	k, ok := h.intParam(w, r, "k")
	if !ok {
		return
	}
	recs, err := h.svc.Similar(position, k)
	if err != nil {
		h.fail(w, r, "similar lookup failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, similarResponse{Position: position, K: h.svc.EffectiveK(k), Results: recs})
}

func (h *Handler) MovieDetails(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}
	d, err := h.svc.Details(r.Context(), id)
	if err != nil {
		h.fail(w, r, "metadata lookup failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, d)
}

type movieSearchResponse struct {
	Query   string             `json:"query"`
	Count   int                `json:"count"`
	Results []service.MovieHit `json:"results"`
}

func (h *Handler) SearchMovies(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if strings.TrimSpace(query) == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'query' is required")
		return
	}
	hits, err := h.svc.SearchMovies(r.Context(), query)
	if err != nil {
		h.fail(w, r, "movie search failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, movieSearchResponse{Query: query, Count: len(hits), Results: hits})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	removed, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "removed": removed})
}

// intParam reads an optional integer query parameter. Absent means 0.
func (h *Handler) intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, name+" must be an integer")
		return 0, false
	}
	return v, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := apperrors.HTTPStatusCode(err)
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error(msg, "error", err, "status_code", status)
		h.writeError(w, status, msg)
		return
	}
	log.Debug(msg, "error", err, "status_code", status)
	h.writeError(w, status, err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
