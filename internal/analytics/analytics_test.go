package analytics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/kafka"
)

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator()
	for i, title := range []string{"Avatar", "Up", "Avatar", "Avatar", "Up", "Heat"} {
		agg.RecordRecommend(RecommendEvent{
			Type: EventRecommend, Title: title, Resolved: true, K: 10, Returned: 10,
			LatencyUs: int64((i + 1) * 1000),
		})
	}
	agg.RecordRecommend(RecommendEvent{Type: EventRecommend, Title: "Nope", Resolved: false})
	agg.RecordRecommend(RecommendEvent{Type: EventRecommend, Title: "Nope", Resolved: false, MetadataFailures: 2})
	agg.RecordReview(ReviewEvent{Type: EventReviewCreated, Rating: 8})
	agg.RecordReview(ReviewEvent{Type: EventReviewCreated, Rating: 5})
	agg.RecordReview(ReviewEvent{Type: EventReviewDeleted, Rating: 8})

	s := agg.Stats()
	if s.TotalRecommendations != 8 || s.UnknownTitleCount != 2 || s.MetadataFailures != 2 {
		t.Errorf("counts = %+v", s)
	}
	if s.AvgLatencyMs != 3.5 {
		t.Errorf("avg latency = %v, want 3.5", s.AvgLatencyMs)
	}
	if s.P50LatencyMs != 4 || s.P99LatencyMs != 6 {
		t.Errorf("p50=%v p99=%v", s.P50LatencyMs, s.P99LatencyMs)
	}
	want := []TitleCount{{"Avatar", 3}, {"Up", 2}, {"Heat", 1}}
	if len(s.TopTitles) != 3 {
		t.Fatalf("top titles = %v", s.TopTitles)
	}
	for i := range want {
		if s.TopTitles[i] != want[i] {
			t.Errorf("top[%d] = %v, want %v", i, s.TopTitles[i], want[i])
		}
	}
	if len(s.UnknownTitles) != 1 || s.UnknownTitles[0] != (TitleCount{"Nope", 2}) {
		t.Errorf("unknown titles = %v", s.UnknownTitles)
	}
	if s.ReviewsCreated != 2 || s.ReviewsDeleted != 1 || s.AvgSubmittedRating != 6.5 {
		t.Errorf("reviews = %d/%d avg %v", s.ReviewsCreated, s.ReviewsDeleted, s.AvgSubmittedRating)
	}
}

func TestAggregatorLatencyWindow(t *testing.T) {
	agg := NewAggregator()
	for i := 0; i < latencyWindow+50; i++ {
		agg.RecordRecommend(RecommendEvent{Title: "A", Resolved: true, LatencyUs: 1000})
	}
	if len(agg.latencies) != latencyWindow {
		t.Errorf("samples = %d, want %d", len(agg.latencies), latencyWindow)
	}
}

func TestAggregatorRestore(t *testing.T) {
	agg := NewAggregator()
	agg.Restore(AggregatedStats{
		TotalRecommendations: 100,
		ReviewsCreated:       4,
		AvgSubmittedRating:   7.5,
		TopTitles:            []TitleCount{{"Avatar", 40}},
	})
	agg.RecordRecommend(RecommendEvent{Title: "Avatar", Resolved: true})
	agg.RecordReview(ReviewEvent{Type: EventReviewCreated, Rating: 10})

	s := agg.Stats()
	if s.TotalRecommendations != 101 || s.TopTitles[0].Count != 41 {
		t.Errorf("restored stats = %+v", s)
	}
	if s.AvgSubmittedRating != 8 {
		t.Errorf("avg rating = %v, want 8", s.AvgSubmittedRating)
	}
}

func TestHandleEventDispatch(t *testing.T) {
	agg := NewAggregator()
	h := HandleEvent(agg)
	ctx := context.Background()

	msgs := []any{
		RecommendEvent{Type: EventRecommend, Title: "Avatar", Resolved: true, LatencyUs: 500},
		ReviewEvent{Type: EventReviewCreated, MovieID: 19995, Rating: 9},
		map[string]string{"type": "something.else"},
	}
	for _, m := range msgs {
		b, _ := json.Marshal(m)
		if err := h(ctx, nil, b); err != nil {
			t.Fatalf("handler: %v", err)
		}
	}
	if err := h(ctx, nil, []byte("not json")); err != nil {
		t.Errorf("malformed message should be skipped, got %v", err)
	}

	s := agg.Stats()
	if s.TotalRecommendations != 1 || s.ReviewsCreated != 1 {
		t.Errorf("stats = %+v", s)
	}
}

type memPublisher struct {
	mu     sync.Mutex
	events []kafka.Event
	calls  int
}

func (p *memPublisher) Publish(ctx context.Context, e kafka.Event) error {
	return p.PublishBatch(ctx, []kafka.Event{e})
}

func (p *memPublisher) PublishBatch(_ context.Context, es []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.events = append(p.events, es...)
	return nil
}

func (p *memPublisher) Close() error { return nil }

func TestCollectorPublishesOnClose(t *testing.T) {
	pub := &memPublisher{}
	c := NewCollector(pub, 16, nil)
	c.Start(context.Background())
	for i := 0; i < 5; i++ {
		c.Track("Avatar", RecommendEvent{Type: EventRecommend, Title: "Avatar"})
	}
	c.Close()
	c.Close()
	c.Track("late", RecommendEvent{})

	if len(pub.events) != 5 {
		t.Errorf("published %d events, want 5", len(pub.events))
	}
	if pub.events[0].Key != "Avatar" {
		t.Errorf("key = %q", pub.events[0].Key)
	}
}

func TestCollectorDropsWhenFull(t *testing.T) {
	pub := &memPublisher{}
	c := NewCollector(pub, 2, nil)
	// Not started: the buffer fills and further events are dropped.
	for i := 0; i < 5; i++ {
		c.Track("k", i)
	}
	if len(c.eventCh) != 2 {
		t.Errorf("buffered = %d, want 2", len(c.eventCh))
	}
}

func TestStatsHandler(t *testing.T) {
	agg := NewAggregator()
	agg.RecordRecommend(RecommendEvent{Title: "Up", Resolved: true})
	h := NewHandler(agg, nil)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))
	var s AggregatedStats
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK || s.TotalRecommendations != 1 {
		t.Errorf("status %d stats %+v", rec.Code, s)
	}

	rec = httptest.NewRecorder()
	h.Snapshots(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/snapshots", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("snapshots without store = %d", rec.Code)
	}
}
