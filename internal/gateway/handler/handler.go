// Package handler implements the API gateway's HTTP endpoints. It proxies
// catalog, recommendation and review traffic to the recommender, stats to
// the analytics service, and serves API key management itself.
package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/auth/apikey"
	apperrors "github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/middleware"
)

// Config holds the URLs of backend services that the gateway proxies to.
type Config struct {
	RecommenderURL string
	AnalyticsURL   string
}

// KeyStore is the API key lifecycle the admin routes drive.
type KeyStore interface {
	CreateKey(ctx context.Context, name, role string, rateLimit int, expiresAt *time.Time) (string, *apikey.KeyInfo, error)
	ListKeys(ctx context.Context) ([]apikey.KeyInfo, error)
	RevokeKey(ctx context.Context, id string) error
}

type Handler struct {
	recommenderProxy *httputil.ReverseProxy
	analyticsProxy   *httputil.ReverseProxy
	keys             KeyStore
	logger           *slog.Logger
}

// New creates a gateway Handler that proxies to the given backend URLs.
func New(cfg Config, keys KeyStore) (*Handler, error) {
	h := &Handler{
		keys:   keys,
		logger: slog.Default().With("component", "gateway-handler"),
	}
	var err error
	if h.recommenderProxy, err = h.newProxy("recommender", cfg.RecommenderURL); err != nil {
		return nil, err
	}
	if h.analyticsProxy, err = h.newProxy("analytics", cfg.AnalyticsURL); err != nil {
		return nil, err
	}
	return h, nil
}

// newProxy forwards to target, strips credentials and carries the request
// id downstream.
func (h *Handler) newProxy(name, target string) (*httputil.ReverseProxy, error) {
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid %s url %q", name, target)
	}
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(u)
			pr.SetXForwarded()
			pr.Out.Header.Del("Authorization")
			pr.Out.Header.Del("X-API-Key")
			q := pr.Out.URL.Query()
			if q.Has("api_key") {
				q.Del("api_key")
				pr.Out.URL.RawQuery = q.Encode()
			}
			if id := middleware.GetRequestID(pr.In.Context()); id != "" {
				pr.Out.Header.Set(middleware.RequestIDHeader, id)
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.FromContext(r.Context()).Error("upstream request failed",
				"upstream", name, "path", r.URL.Path, "error", err)
			h.writeError(w, http.StatusBadGateway, name+" unavailable")
		},
	}, nil
}

// ProxyRecommender forwards catalog, recommendation, metadata, review and
// cache requests.
func (h *Handler) ProxyRecommender(w http.ResponseWriter, r *http.Request) {
	h.recommenderProxy.ServeHTTP(w, r)
}

// ProxyAnalytics forwards analytics requests.
func (h *Handler) ProxyAnalytics(w http.ResponseWriter, r *http.Request) {
	h.analyticsProxy.ServeHTTP(w, r)
}

type createKeyRequest struct {
	Name      string `json:"name"`
	Role      string `json:"role,omitempty"`
	RateLimit int    `json:"rate_limit"`
	ExpiresIn string `json:"expires_in,omitempty"` // Go duration, e.g. "720h"
}

// CreateAPIKey creates a new API key and returns the raw key (shown once).
func (h *Handler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req createKeyRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 16<<10)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.RateLimit <= 0 {
		req.RateLimit = 100
	}

	var expiresAt *time.Time
	if req.ExpiresIn != "" {
		d, err := time.ParseDuration(req.ExpiresIn)
		if err != nil || d <= 0 {
			h.writeError(w, http.StatusBadRequest, "invalid expires_in duration")
			return
		}
		t := time.Now().Add(d)
		expiresAt = &t
	}

	key, info, err := h.keys.CreateKey(r.Context(), req.Name, req.Role, req.RateLimit, expiresAt)
	if err != nil {
		h.fail(w, r, "failed to create api key", err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{
		"api_key": key,
		"key":     info,
		"message": "store this key securely; it cannot be retrieved again",
	})
}

// ListAPIKeys returns all active API keys (without hashes).
func (h *Handler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.keys.ListKeys(r.Context())
	if err != nil {
		h.fail(w, r, "failed to list api keys", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"keys":  keys,
		"count": len(keys),
	})
}

// RevokeAPIKey deactivates the key named in the path.
func (h *Handler) RevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "key id is required")
		return
	}
	if err := h.keys.RevokeKey(r.Context(), id); err != nil {
		h.fail(w, r, "failed to revoke api key", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error(msg, "error", err)
		h.writeError(w, status, msg)
		return
	}
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
