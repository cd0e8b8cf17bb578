package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Limiter is the per-key token bucket used by RateLimit.
type Limiter interface {
	Allow(key string, limit int) bool
	Remaining(key string, limit int) int
}

// RateLimit returns middleware that enforces per-key rate limits. Keyed
// requests use the key's configured rate_limit. Anonymous reads share
// anonymousLimit per client IP.
func RateLimit(limiter Limiter, anonymousLimit int, window time.Duration) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(max(int(window.Seconds()), 1))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/health") || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			key, limit := "ip:"+clientIP(r), anonymousLimit
			if info := GetKeyInfo(r.Context()); info != nil {
				key, limit = "key:"+info.ID, info.RateLimit
			}

			allowed := limiter.Allow(key, limit)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(key, limit)))
			if !allowed {
				w.Header().Set("Retry-After", retryAfter)
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop, then RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
