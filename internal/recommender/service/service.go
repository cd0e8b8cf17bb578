// Package service composes the catalog, the ranker and the metadata
// collaborator into the operations exposed over HTTP and RPC.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/metadata"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/recommender/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/tracing"
)

// Tracker receives analytics events; *analytics.Collector implements it.
type Tracker interface {
	Track(key string, event any)
}

type Config struct {
	DefaultK          int
	MaxK              int
	EnrichConcurrency int
	MaxSearchResults  int
	// LookupTimeout bounds each card's metadata lookup, retries included.
	// Zero means no per-lookup deadline.
	LookupTimeout     time.Duration
	ImageBaseURL      string
	PlaceholderImage  string
	Tracing           bool
}

type Service struct {
	snap     *catalog.Snapshot
	ranker   *ranker.Ranker
	fetcher  metadata.Fetcher
	searcher metadata.Searcher
	tracker  Tracker
	metrics  *metrics.Metrics
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

// New builds a Service over snap. fetcher, tracker and m may be nil. Title
// searches are available when fetcher also implements metadata.Searcher.
func New(snap *catalog.Snapshot, fetcher metadata.Fetcher, tracker Tracker, m *metrics.Metrics, cfg Config) *Service {
	if cfg.DefaultK <= 0 {
		cfg.DefaultK = ranker.DefaultK
	}
	if cfg.MaxK < cfg.DefaultK {
		cfg.MaxK = cfg.DefaultK
	}
	if cfg.EnrichConcurrency <= 0 {
		cfg.EnrichConcurrency = 5
	}
	if cfg.MaxSearchResults <= 0 {
		cfg.MaxSearchResults = 100
	}
	if m != nil {
		m.CatalogItems.Set(float64(snap.Len()))
	}
	searcher, _ := fetcher.(metadata.Searcher)
	return &Service{
		snap:     snap,
		ranker:   ranker.New(snap),
		fetcher:  fetcher,
		searcher: searcher,
		tracker:  tracker,
		metrics:  m,
		cfg:      cfg,
		logger:   slog.Default().With("component", "recommender"),
		now:      time.Now,
	}
}

// Snapshot exposes the loaded catalog for read-only callers.
func (s *Service) Snapshot() *catalog.Snapshot {
	return s.snap
}

// EffectiveK is the k a request for k neighbours is served with: the
// default when k <= 0, capped at MaxK.
func (s *Service) EffectiveK(k int) int {
	if k <= 0 {
		return s.cfg.DefaultK
	}
	return min(k, s.cfg.MaxK)
}

// Resolve maps an exact title to its catalog item.
func (s *Service) Resolve(title string) (catalog.Item, error) {
	pos, err := s.snap.Store.Resolve(title)
	if err != nil {
		return catalog.Item{}, err
	}
	return s.snap.Store.Item(pos)
}

// Item returns the catalog entry at position.
func (s *Service) Item(position int) (catalog.Item, error) {
	return s.snap.Store.Item(position)
}

// Search returns titles containing query (case-insensitive), in catalog
// order, truncated to limit.
func (s *Service) Search(query string, limit int) []string {
	if limit <= 0 || limit > s.cfg.MaxSearchResults {
		limit = s.cfg.MaxSearchResults
	}
	if s.metrics != nil {
		s.metrics.TitleSearchesTotal.Inc()
	}
	titles := s.snap.Store.ItemsMatching(query)
	if len(titles) > limit {
		titles = titles[:limit]
	}
	return titles
}

// Similar ranks neighbours of a catalog position without metadata.
func (s *Service) Similar(position, k int) ([]ranker.Recommendation, error) {
	k = s.EffectiveK(k)
	start := time.Now()
	recs, err := s.ranker.Recommend(position, k)
	s.observeRank(start, recs, err)
	return recs, err
}

// RecommendByTitle resolves title, ranks its neighbours and enriches each
// with metadata. Metadata failures degrade a card to catalog data; they
// never fail the request.
func (s *Service) RecommendByTitle(ctx context.Context, title string, k int) (*LastResult, error) {
	if strings.TrimSpace(title) == "" {
		s.outcome("invalid")
		return nil, apperrors.New(apperrors.ErrInvalidInput, 400, "title is required")
	}
	k = s.EffectiveK(k)
	start := time.Now()
	log := logger.FromContext(ctx)

	ctx, root := tracing.StartSpan(ctx, "recommend", logger.RequestID(ctx))
	root.SetAttr("title", title)
	root.SetAttr("k", k)
	defer func() {
		root.End()
		if s.cfg.Tracing {
			root.Log(log)
		}
	}()

	seed, err := s.Resolve(title)
	if err != nil {
		s.outcome("not_found")
		s.track(ctx, analytics.RecommendEvent{Title: title, K: k, LatencyUs: time.Since(start).Microseconds()})
		return nil, err
	}

	_, rankSpan := tracing.StartChildSpan(ctx, "rank")
	rankStart := time.Now()
	recs, err := s.ranker.Recommend(seed.Position, k)
	s.observeRank(rankStart, recs, err)
	rankSpan.SetAttr("returned", len(recs))
	rankSpan.End()
	if err != nil {
		s.outcome("error")
		return nil, err
	}

	enrichCtx, enrichSpan := tracing.StartChildSpan(ctx, "enrich")
	cards, failures := s.enrich(enrichCtx, recs)
	enrichSpan.SetAttr("failures", failures)
	enrichSpan.End()

	result := &LastResult{
		Query:       title,
		Seed:        seed,
		K:           k,
		Cards:       cards,
		GeneratedAt: s.now().UTC(),
	}
	applyShares(result)

	s.outcome("ok")
	s.track(ctx, analytics.RecommendEvent{
		Title:            title,
		Resolved:         true,
		K:                k,
		Returned:         len(cards),
		MetadataFailures: failures,
		LatencyUs:        time.Since(start).Microseconds(),
	})
	log.Info("recommendation served",
		"title", title,
		"k", k,
		"returned", len(cards),
		"metadata_failures", failures,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// enrich fetches metadata for every recommendation with bounded
// concurrency. Results keep the ranking order.
func (s *Service) enrich(ctx context.Context, recs []ranker.Recommendation) ([]Card, int) {
	cards := make([]Card, len(recs))
	for i, rec := range recs {
		cards[i] = Card{
			Position:     rec.Item.Position,
			CatalogTitle: rec.Item.Title,
			ExternalID:   rec.Item.ExternalID,
			Title:        rec.Item.Title,
			PosterURL:    s.cfg.PlaceholderImage,
			Score:        rec.Score,
		}
	}
	if s.fetcher == nil {
		return cards, 0
	}

	var failures atomic.Int32
	var g errgroup.Group
	g.SetLimit(s.cfg.EnrichConcurrency)
	for i := range cards {
		card := &cards[i]
		if card.ExternalID <= 0 {
			continue
		}
		g.Go(func() error {
			var details *metadata.Details
			err := resilience.WithTimeout(ctx, s.cfg.LookupTimeout, "metadata lookup", func(ctx context.Context) error {
				d, err := s.fetcher.FetchDetails(ctx, card.ExternalID)
				details = d
				return err
			})
			if err != nil {
				if !apperrors.Is(err, apperrors.ErrNotFound) {
					failures.Add(1)
				}
				logger.FromContext(ctx).Debug("metadata lookup failed",
					"external_id", card.ExternalID, "error", err)
				return nil
			}
			card.Details = details
			card.Enriched = true
			if details.Title != "" {
				card.Title = details.Title
			}
			card.PosterURL = metadata.PosterURL(s.cfg.ImageBaseURL, s.cfg.PlaceholderImage, details.PosterPath)
			return nil
		})
	}
	// Lookups never return an error; failures only degrade their card.
	_ = g.Wait()
	return cards, int(failures.Load())
}

// applyShares fills TotalScore and each card's SharePercent. Shares are
// zero when the total is not positive.
func applyShares(r *LastResult) {
	var total float64
	for _, c := range r.Cards {
		total += c.Score
	}
	r.TotalScore = total
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return
	}
	for i := range r.Cards {
		r.Cards[i].SharePercent = r.Cards[i].Score / total * 100
	}
}

// Details looks up one movie's metadata.
func (s *Service) Details(ctx context.Context, externalID int64) (*DetailView, error) {
	if externalID <= 0 {
		return nil, fmt.Errorf("movie id %d: %w", externalID, apperrors.ErrInvalidInput)
	}
	if s.fetcher == nil {
		return nil, fmt.Errorf("metadata lookups are disabled: %w", apperrors.ErrUpstream)
	}
	d, err := s.fetcher.FetchDetails(ctx, externalID)
	if err != nil {
		return nil, err
	}
	return &DetailView{
		Details:   d,
		PosterURL: metadata.PosterURL(s.cfg.ImageBaseURL, s.cfg.PlaceholderImage, d.PosterPath),
	}, nil
}

// SearchMovies runs a free-text search against the metadata service and
// resolves each hit's poster URL. Results are capped at MaxSearchResults.
func (s *Service) SearchMovies(ctx context.Context, query string) ([]MovieHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.New(apperrors.ErrInvalidInput, 400, "query is required")
	}
	if s.searcher == nil {
		return nil, fmt.Errorf("metadata search is disabled: %w", apperrors.ErrUpstream)
	}
	hits, err := s.searcher.SearchMovies(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(hits) > s.cfg.MaxSearchResults {
		hits = hits[:s.cfg.MaxSearchResults]
	}
	out := make([]MovieHit, len(hits))
	for i, h := range hits {
		out[i] = MovieHit{
			SearchHit: h,
			PosterURL: metadata.PosterURL(s.cfg.ImageBaseURL, s.cfg.PlaceholderImage, h.PosterPath),
		}
	}
	return out, nil
}

func (s *Service) track(ctx context.Context, ev analytics.RecommendEvent) {
	if s.tracker == nil {
		return
	}
	ev.Type = analytics.EventRecommend
	ev.Timestamp = s.now().UTC()
	ev.RequestID = logger.RequestID(ctx)
	s.tracker.Track(ev.Title, ev)
}

func (s *Service) outcome(o string) {
	if s.metrics != nil {
		s.metrics.RecommendationsTotal.WithLabelValues(o).Inc()
	}
}

func (s *Service) observeRank(start time.Time, recs []ranker.Recommendation, err error) {
	if s.metrics == nil || err != nil {
		return
	}
	s.metrics.RecommendLatency.Observe(time.Since(start).Seconds())
	s.metrics.RecommendResultSize.Observe(float64(len(recs)))
}
