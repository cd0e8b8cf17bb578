package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/review"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/database"
	apperrors "github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/metrics"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) PublishBatch(ctx context.Context, es []kafka.Event) error {
	for _, e := range es {
		p.Publish(ctx, e)
	}
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func newTestStore(t *testing.T) (*Store, *recordingPublisher, *metrics.Metrics) {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	pub := &recordingPublisher{}
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	s := New(db, pub, m)
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return s, pub, m
}

func TestCreateAndList(t *testing.T) {
	s, pub, m := newTestStore(t)
	ctx := context.Background()

	first, err := s.Create(ctx, review.CreateRequest{MovieID: 19995, User: "kim", Rating: 9, Text: "압도적인 영상미"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := s.Create(ctx, review.CreateRequest{MovieID: 19995, Rating: 4})
	if err != nil {
		t.Fatalf("Create anonymous: %v", err)
	}
	if _, err := s.Create(ctx, review.CreateRequest{MovieID: 285, User: "lee", Rating: 7}); err != nil {
		t.Fatalf("Create other movie: %v", err)
	}

	if second.User != review.AnonymousUser {
		t.Errorf("anonymous user = %q", second.User)
	}
	if first.ID >= second.ID {
		t.Errorf("ids not increasing: %d then %d", first.ID, second.ID)
	}

	list, err := s.List(ctx, 19995)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != first.ID || list[1].ID != second.ID {
		t.Fatalf("list = %+v", list)
	}
	if list[0].Text != "압도적인 영상미" || list[0].Rating != 9 || !list[0].CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("round trip mismatch: %+v vs %+v", list[0], first)
	}

	if len(pub.events) != 3 {
		t.Fatalf("published %d events, want 3", len(pub.events))
	}
	ev := pub.events[0].Value.(review.Event)
	if ev.Type != review.EventCreated || ev.ReviewID != first.ID || pub.events[0].Key != "19995" {
		t.Errorf("event = %+v key %q", ev, pub.events[0].Key)
	}
	if got := testutil.ToFloat64(m.ReviewsTotal.WithLabelValues("create")); got != 3 {
		t.Errorf("reviews_total{op=create} = %v", got)
	}
}

func TestListEmpty(t *testing.T) {
	s, _, _ := newTestStore(t)
	list, err := s.List(context.Background(), 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("list = %#v, want empty non-nil", list)
	}
}

func TestCreateRejectsInvalid(t *testing.T) {
	s, pub, _ := newTestStore(t)
	_, err := s.Create(context.Background(), review.CreateRequest{MovieID: 1, Rating: 0})
	if !apperrors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
	if len(pub.events) != 0 {
		t.Errorf("events published for invalid review")
	}
}

func TestDelete(t *testing.T) {
	s, pub, _ := newTestStore(t)
	ctx := context.Background()
	rv, err := s.Create(ctx, review.CreateRequest{MovieID: 42, User: "park", Rating: 6})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Delete(ctx, rv.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, rv.ID); !apperrors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, rv.ID); !apperrors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, 0); !apperrors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("Delete(0) = %v, want ErrInvalidInput", err)
	}

	last := pub.events[len(pub.events)-1].Value.(review.Event)
	if last.Type != review.EventDeleted || last.MovieID != 42 || last.Rating != 6 {
		t.Errorf("delete event = %+v", last)
	}
}
