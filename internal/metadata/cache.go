package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/redis"
)

const keyPrefix = "movie:"

// KV is the subset of the Redis client the cache needs.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type prefixDeleter interface {
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

// Cache is a read-through Fetcher decorator. Concurrent misses for the same
// id share one upstream call, and errors are never cached.
type Cache struct {
	kv      KV
	next    Fetcher
	ttl     time.Duration
	scope   string
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewCache wraps next. scope is folded into every key so that details
// fetched in different languages do not collide.
func NewCache(kv KV, next Fetcher, ttl time.Duration, scope string, m *metrics.Metrics) *Cache {
	return &Cache{
		kv:      kv,
		next:    next,
		ttl:     ttl,
		scope:   scope,
		metrics: m,
		logger:  slog.Default().With("component", "metadata-cache"),
	}
}

func (c *Cache) FetchDetails(ctx context.Context, id int64) (*Details, error) {
	key := c.buildKey(id)
	if details, ok := c.get(ctx, key); ok {
		return details, nil
	}

	val, err, shared := c.group.Do(key, func() (interface{}, error) {
		if details, err := c.lookup(ctx, key); err == nil {
			return details, nil
		}
		details, err := c.next.FetchDetails(ctx, id)
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, details)
		return details, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("shared upstream fetch", "movie_id", id)
	}
	return val.(*Details), nil
}

// SearchMovies passes title searches straight through; search pages change
// too often to cache by query.
func (c *Cache) SearchMovies(ctx context.Context, query string) ([]SearchHit, error) {
	sr, ok := c.next.(Searcher)
	if !ok {
		return nil, fmt.Errorf("metadata source %T cannot search: %w", c.next, apperrors.ErrUpstream)
	}
	return sr.SearchMovies(ctx, query)
}

// Invalidate drops every cached entry in this cache's scope when the
// backing store supports prefix deletion.
func (c *Cache) Invalidate(ctx context.Context) (int64, error) {
	pd, ok := c.kv.(prefixDeleter)
	if !ok {
		return 0, fmt.Errorf("cache store %T cannot delete by prefix", c.kv)
	}
	prefix := keyPrefix
	if c.scope != "" {
		prefix += c.scope + ":"
	}
	n, err := pd.DeletePrefix(ctx, prefix)
	if err != nil {
		return n, fmt.Errorf("invalidating metadata cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", n)
	return n, nil
}

// Stats returns cumulative hit and miss counts.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cache) get(ctx context.Context, key string) (*Details, bool) {
	details, err := c.lookup(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		if c.metrics != nil {
			c.metrics.CacheMissesTotal.Inc()
		}
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	return details, true
}

func (c *Cache) lookup(ctx context.Context, key string) (*Details, error) {
	data, err := c.kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var details Details
	if err := json.Unmarshal([]byte(data), &details); err != nil {
		return nil, fmt.Errorf("decoding cached %s: %w", key, err)
	}
	return &details, nil
}

func (c *Cache) set(ctx context.Context, key string, details *Details) {
	data, err := json.Marshal(details)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.kv.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

func (c *Cache) buildKey(id int64) string {
	if c.scope == "" {
		return keyPrefix + strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("%s%s:%d", keyPrefix, c.scope, id)
}
