package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/database"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	s := NewStore(db)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return s
}

func TestSaveAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	latest, err := s.LatestSnapshot(ctx)
	if err != nil || latest != nil {
		t.Fatalf("empty store: %v, %v", latest, err)
	}

	for i := int64(1); i <= 3; i++ {
		stats := analytics.AggregatedStats{
			TotalRecommendations: i * 10,
			TopTitles:            []analytics.TitleCount{{Title: "Avatar", Count: i}},
		}
		if err := s.SaveSnapshot(ctx, stats); err != nil {
			t.Fatalf("SaveSnapshot: %v", err)
		}
	}

	latest, err = s.LatestSnapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if latest.TotalRecommendations != 30 || latest.TopTitles[0].Count != 3 {
		t.Errorf("latest = %+v", latest)
	}

	list, err := s.ListSnapshots(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].TotalRecommendations != 30 || list[1].TotalRecommendations != 20 {
		t.Errorf("list = %+v", list)
	}
}

func TestPeriodicSaveWritesFinalSnapshot(t *testing.T) {
	s := newTestStore(t)
	agg := analytics.NewAggregator()
	agg.RecordRecommend(analytics.RecommendEvent{Type: analytics.EventRecommend, Title: "Up", Resolved: true})

	ctx, cancel := context.WithCancel(context.Background())
	done := s.StartPeriodicSave(ctx, agg, time.Hour)
	cancel()
	<-done

	latest, err := s.LatestSnapshot(context.Background())
	if err != nil || latest == nil {
		t.Fatalf("latest = %v, %v", latest, err)
	}
	if latest.TotalRecommendations != 1 {
		t.Errorf("total = %d, want 1", latest.TotalRecommendations)
	}
}
