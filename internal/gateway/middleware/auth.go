// Package middleware provides HTTP middleware for the API gateway including
// authentication, CORS, and rate limiting.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/logger"
)

type contextKey string

const apiKeyInfoKey contextKey = "api_key_info"

// Validator resolves a raw key to its metadata.
type Validator interface {
	Validate(ctx context.Context, rawKey string) (*apikey.KeyInfo, error)
}

// Policy decides which requests need a key.
type Policy struct {
	// AdminPrefixes need an admin key.
	AdminPrefixes []string
	// AdminPaths need an admin key on exact match.
	AdminPaths []string
}

// DefaultPolicy protects key management and cache invalidation.
func DefaultPolicy() Policy {
	return Policy{
		AdminPrefixes: []string{"/api/v1/admin/"},
		AdminPaths:    []string{"/api/v1/admin/keys", "/api/v1/cache/invalidate"},
	}
}

func (p Policy) isAdmin(path string) bool {
	for _, ap := range p.AdminPaths {
		if path == ap {
			return true
		}
	}
	for _, pre := range p.AdminPrefixes {
		if strings.HasPrefix(path, pre) {
			return true
		}
	}
	return false
}

func isRead(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

// Auth returns middleware that validates API keys from the request.
// Keys can be provided via Authorization: Bearer <key>, X-API-Key header,
// or the api_key query parameter. Health endpoints are exempt. Reads
// outside admin paths may go without a key; a key that is presented must
// still be valid.
func Auth(validator Validator, policy Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/health") {
				next.ServeHTTP(w, r)
				return
			}

			admin := policy.isAdmin(r.URL.Path)
			key := extractAPIKey(r)
			if key == "" {
				if isRead(r.Method) && !admin {
					next.ServeHTTP(w, r)
					return
				}
				writeError(w, http.StatusUnauthorized, "missing api key")
				return
			}

			info, err := validator.Validate(r.Context(), key)
			if err != nil {
				switch {
				case errors.Is(err, apikey.ErrExpiredKey):
					writeError(w, http.StatusUnauthorized, "expired api key")
				case errors.Is(err, apikey.ErrInvalidKey):
					writeError(w, http.StatusUnauthorized, "invalid api key")
				default:
					logger.FromContext(r.Context()).Error("api key validation failed", "error", err)
					writeError(w, http.StatusInternalServerError, "authentication error")
				}
				return
			}
			if admin && !info.IsAdmin() {
				writeError(w, http.StatusForbidden, "admin key required")
				return
			}

			ctx := context.WithValue(r.Context(), apiKeyInfoKey, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetKeyInfo retrieves the validated KeyInfo from the request context.
func GetKeyInfo(ctx context.Context) *apikey.KeyInfo {
	info, _ := ctx.Value(apiKeyInfoKey).(*apikey.KeyInfo)
	return info
}

// extractAPIKey reads the API key from the request in priority order:
// Authorization: Bearer header, X-API-Key header, api_key query parameter.
func extractAPIKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	return r.URL.Query().Get("api_key")
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
