package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/kafka"
)

// latencyWindow bounds the samples kept for percentile calculation.
const latencyWindow = 10000

type AggregatedStats struct {
	TotalRecommendations     int64        `json:"total_recommendations"`
	UnknownTitleCount        int64        `json:"unknown_title_count"`
	MetadataFailures         int64        `json:"metadata_failures"`
	AvgLatencyMs             float64      `json:"avg_latency_ms"`
	P50LatencyMs             float64      `json:"p50_latency_ms"`
	P95LatencyMs             float64      `json:"p95_latency_ms"`
	P99LatencyMs             float64      `json:"p99_latency_ms"`
	TopTitles                []TitleCount `json:"top_titles"`
	UnknownTitles            []TitleCount `json:"unknown_titles"`
	RecommendationsPerMinute float64      `json:"recommendations_per_minute"`
	ReviewsCreated           int64        `json:"reviews_created"`
	ReviewsDeleted           int64        `json:"reviews_deleted"`
	AvgSubmittedRating       float64      `json:"avg_submitted_rating"`
}

type TitleCount struct {
	Title string `json:"title"`
	Count int64  `json:"count"`
}

// Aggregator keeps running totals. Safe for concurrent use.
type Aggregator struct {
	mu             sync.RWMutex
	total          int64
	unknown        int64
	metaFailures   int64
	latencies      []int64
	next           int
	titleCounts    map[string]int64
	unknownTitles  map[string]int64
	reviewsCreated int64
	reviewsDeleted int64
	ratingSum      int64
	startTime      time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:     make([]int64, 0, 1024),
		titleCounts:   make(map[string]int64),
		unknownTitles: make(map[string]int64),
		startTime:     time.Now(),
		logger:        slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent decodes recommendation and review events for a Kafka
// consumer. Undecodable or unknown events are logged and skipped so the
// consumer commits past them.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		env, err := kafka.DecodeJSON[envelope](value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		switch env.Type {
		case EventRecommend:
			ev, err := kafka.DecodeJSON[RecommendEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode recommend event", "error", err)
				return nil
			}
			agg.RecordRecommend(ev)
		case EventReviewCreated, EventReviewDeleted:
			ev, err := kafka.DecodeJSON[ReviewEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode review event", "error", err)
				return nil
			}
			agg.RecordReview(ev)
		default:
			agg.logger.Debug("ignoring event", "type", env.Type)
		}
		return nil
	}
}

func (a *Aggregator) RecordRecommend(ev RecommendEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	a.metaFailures += int64(ev.MetadataFailures)
	if !ev.Resolved {
		a.unknown++
		a.unknownTitles[ev.Title]++
		return
	}
	a.titleCounts[ev.Title]++
	if len(a.latencies) < latencyWindow {
		a.latencies = append(a.latencies, ev.LatencyUs)
	} else {
		a.latencies[a.next] = ev.LatencyUs
		a.next = (a.next + 1) % latencyWindow
	}
}

func (a *Aggregator) RecordReview(ev ReviewEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch ev.Type {
	case EventReviewCreated:
		a.reviewsCreated++
		a.ratingSum += int64(ev.Rating)
	case EventReviewDeleted:
		a.reviewsDeleted++
	}
}

// Restore seeds the counters from a saved snapshot so totals survive a
// restart. Latency samples are not restored.
func (a *Aggregator) Restore(s AggregatedStats) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total = s.TotalRecommendations
	a.unknown = s.UnknownTitleCount
	a.metaFailures = s.MetadataFailures
	a.reviewsCreated = s.ReviewsCreated
	a.reviewsDeleted = s.ReviewsDeleted
	a.ratingSum = int64(s.AvgSubmittedRating*float64(s.ReviewsCreated) + 0.5)
	for _, tc := range s.TopTitles {
		a.titleCounts[tc.Title] = tc.Count
	}
	for _, tc := range s.UnknownTitles {
		a.unknownTitles[tc.Title] = tc.Count
	}
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalRecommendations: a.total,
		UnknownTitleCount:    a.unknown,
		MetadataFailures:     a.metaFailures,
		ReviewsCreated:       a.reviewsCreated,
		ReviewsDeleted:       a.reviewsDeleted,
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted)) / 1000
		stats.P50LatencyMs = float64(percentile(sorted, 50)) / 1000
		stats.P95LatencyMs = float64(percentile(sorted, 95)) / 1000
		stats.P99LatencyMs = float64(percentile(sorted, 99)) / 1000
	}
	if a.reviewsCreated > 0 {
		stats.AvgSubmittedRating = float64(a.ratingSum) / float64(a.reviewsCreated)
	}
	stats.TopTitles = topN(a.titleCounts, 10)
	stats.UnknownTitles = topN(a.unknownTitles, 10)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.RecommendationsPerMinute = float64(a.total) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count descending, then title ascending.
func topN(counts map[string]int64, n int) []TitleCount {
	result := make([]TitleCount, 0, len(counts))
	for title, count := range counts {
		result = append(result, TitleCount{Title: title, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Title < result[j].Title
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
