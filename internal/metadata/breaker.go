package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	apperrors "github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/metrics"
)

// BreakerConfig tunes when the breaker opens and how long it stays open.
type BreakerConfig struct {
	MaxFailures  uint32
	OpenTimeout  time.Duration
	HalfOpenMax  uint32
	CountsWindow time.Duration
}

func defaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures:  5,
		OpenTimeout:  30 * time.Second,
		HalfOpenMax:  1,
		CountsWindow: time.Minute,
	}
}

// Breaker is a Fetcher decorator that stops calling the upstream after
// repeated failures. Not-found answers count as successes. Detail lookups
// and title searches share one breaker since they hit the same upstream.
type Breaker struct {
	next   Fetcher
	search Searcher
	cb     *gobreaker.CircuitBreaker[any]
	name   string
	logger *slog.Logger
}

func NewBreaker(name string, next Fetcher, cfg BreakerConfig, m *metrics.Metrics) *Breaker {
	defaults := defaultBreakerConfig()
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = defaults.MaxFailures
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = defaults.OpenTimeout
	}
	if cfg.HalfOpenMax == 0 {
		cfg.HalfOpenMax = defaults.HalfOpenMax
	}
	if cfg.CountsWindow <= 0 {
		cfg.CountsWindow = defaults.CountsWindow
	}

	logger := slog.Default().With("component", "metadata-breaker", "breaker", name)
	if m != nil {
		m.CircuitBreakerState.WithLabelValues(name).Set(0)
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenMax,
		Interval:    cfg.CountsWindow,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, apperrors.ErrNotFound) ||
				errors.Is(err, apperrors.ErrInvalidInput) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "from", from.String(), "to", to.String())
			if m != nil {
				m.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			}
		},
	})

	search, _ := next.(Searcher)
	return &Breaker{next: next, search: search, cb: cb, name: name, logger: logger}
}

func (b *Breaker) FetchDetails(ctx context.Context, id int64) (*Details, error) {
	v, err := b.execute(func() (any, error) {
		return b.next.FetchDetails(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	details, _ := v.(*Details)
	return details, nil
}

// SearchMovies forwards a title search when the wrapped client supports it.
func (b *Breaker) SearchMovies(ctx context.Context, query string) ([]SearchHit, error) {
	if b.search == nil {
		return nil, fmt.Errorf("%s: title search not supported: %w", b.name, apperrors.ErrUpstream)
	}
	v, err := b.execute(func() (any, error) {
		return b.search.SearchMovies(ctx, query)
	})
	if err != nil {
		return nil, err
	}
	hits, _ := v.([]SearchHit)
	return hits, nil
}

func (b *Breaker) execute(fn func() (any, error)) (any, error) {
	v, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s: %w: %v", b.name, apperrors.ErrUpstream, err)
	}
	return v, err
}

// State reports the current breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}
