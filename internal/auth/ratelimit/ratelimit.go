// Package ratelimit keeps one token bucket per caller key. Each key may
// spend limit tokens per window; buckets refill continuously.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	limit    int
	lastSeen time.Time
}

// Limiter is an in-memory, per-key token-bucket rate limiter.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	window  time.Duration
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// New creates a rate limiter with the given refill window and starts the
// background sweep of idle keys. Call Close to stop it.
func New(window time.Duration) *Limiter {
	if window <= 0 {
		window = time.Minute
	}
	l := &Limiter{
		entries: make(map[string]*entry),
		window:  window,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go l.cleanup(5 * time.Minute)
	return l
}

// Allow consumes one token for key and reports whether one was available.
func (l *Limiter) Allow(key string, limit int) bool {
	if limit <= 0 {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.every(limit), limit), limit: limit}
		l.entries[key] = e
	} else if e.limit != limit {
		e.limiter.SetLimitAt(now, l.every(limit))
		e.limiter.SetBurstAt(now, limit)
		e.limit = limit
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Remaining reports the whole tokens left for key, or limit when the key
// has not been seen.
func (l *Limiter) Remaining(key string, limit int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		return limit
	}
	return max(int(e.limiter.TokensAt(l.now())), 0)
}

// Reset clears the rate-limit state for a specific key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

// Close stops the background sweep.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

func (l *Limiter) every(limit int) rate.Limit {
	return rate.Limit(float64(limit) / l.window.Seconds())
}

func (l *Limiter) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// sweep drops keys idle for more than two windows.
func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-2 * l.window)
	for key, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, key)
		}
	}
}
