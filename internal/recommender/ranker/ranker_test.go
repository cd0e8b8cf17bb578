package ranker

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"reflect"
	"sync"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/catalog"
	apperrors "github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/errors"
)

func newSnapshot(t testing.TB, titles []string, data []float32) *catalog.Snapshot {
	t.Helper()
	items := make([]catalog.Item, len(titles))
	for i, title := range titles {
		items[i] = catalog.Item{Title: title, ExternalID: int64(1000 + i)}
	}
	m, err := catalog.NewMatrix(len(titles), data)
	if err != nil {
		t.Fatalf("NewMatrix: %v", err)
	}
	snap, err := catalog.NewSnapshot(catalog.NewStore(items), m)
	if err != nil {
		t.Fatalf("NewSnapshot: %v", err)
	}
	return snap
}

// randomSnapshot builds a symmetric matrix with coarse scores so ties are common.
func randomSnapshot(t testing.TB, n int, seed int64) *catalog.Snapshot {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	data := make([]float32, n*n)
	for i := 0; i < n; i++ {
		data[i*n+i] = 1
		for j := i + 1; j < n; j++ {
			v := float32(rng.Intn(10)) / 10
			data[i*n+j] = v
			data[j*n+i] = v
		}
	}
	titles := make([]string, n)
	for i := range titles {
		titles[i] = fmt.Sprintf("movie-%03d", i)
	}
	return newSnapshot(t, titles, data)
}

func TestRecommendScenarioABCD(t *testing.T) {
	snap := newSnapshot(t, []string{"A", "B", "C", "D"}, []float32{
		1.0, 0.9, 0.2, 0.5,
		0.9, 1.0, 0.3, 0.1,
		0.2, 0.3, 1.0, 0.4,
		0.5, 0.1, 0.4, 1.0,
	})
	pos, err := snap.Store.Resolve("A")
	if err != nil {
		t.Fatal(err)
	}
	got, err := New(snap).Recommend(pos, 2)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	want := []struct {
		title string
		score float64
	}{{"B", 0.9}, {"D", 0.5}}
	if len(got) != len(want) {
		t.Fatalf("got %d results, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Item.Title != w.title || got[i].Score != w.score {
			t.Errorf("result[%d] = (%s, %v), want (%s, %v)", i, got[i].Item.Title, got[i].Score, w.title, w.score)
		}
	}
}

func TestRecommendKExceedsAvailable(t *testing.T) {
	snap := newSnapshot(t, []string{"X", "Y", "Z"}, []float32{
		1, 0.2, 0.7,
		0.2, 1, 0.1,
		0.7, 0.1, 1,
	})
	got, err := New(snap).Recommend(0, 10)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].Item.Title != "Z" || got[1].Item.Title != "Y" {
		t.Errorf("order = [%s %s], want [Z Y]", got[0].Item.Title, got[1].Item.Title)
	}
}

func TestRecommendBoundary(t *testing.T) {
	snap := randomSnapshot(t, 5, 1)
	r := New(snap)
	for _, pos := range []int{-1, snap.Len(), snap.Len() + 10} {
		res, err := r.Recommend(pos, 3)
		if !errors.Is(err, apperrors.ErrInvalidIndex) {
			t.Errorf("Recommend(%d) error = %v, want ErrInvalidIndex", pos, err)
		}
		if res != nil {
			t.Errorf("Recommend(%d) returned partial result %v", pos, res)
		}
	}
}

func TestRecommendProperties(t *testing.T) {
	snap := randomSnapshot(t, 40, 42)
	r := New(snap)
	n := snap.Len()
	for p := 0; p < n; p++ {
		for _, k := range []int{1, 5, 10, 39, 40, 100} {
			first, err := r.Recommend(p, k)
			if err != nil {
				t.Fatalf("Recommend(%d,%d): %v", p, k, err)
			}
			second, _ := r.Recommend(p, k)
			if !reflect.DeepEqual(first, second) {
				t.Fatalf("Recommend(%d,%d) is not deterministic", p, k)
			}
			if want := min(k, n-1); len(first) != want {
				t.Fatalf("Recommend(%d,%d) returned %d results, want %d", p, k, len(first), want)
			}
			for i, rec := range first {
				if rec.Item.Position == p {
					t.Fatalf("Recommend(%d,%d) contains the query item", p, k)
				}
				if i == 0 {
					continue
				}
				prev := first[i-1]
				if prev.Score < rec.Score {
					t.Fatalf("Recommend(%d,%d) not descending at %d: %v then %v", p, k, i, prev.Score, rec.Score)
				}
				if prev.Score == rec.Score && prev.Item.Position >= rec.Item.Position {
					t.Fatalf("Recommend(%d,%d) tie at %d not ordered by position: %d then %d",
						p, k, i, prev.Item.Position, rec.Item.Position)
				}
			}
		}
	}
}

func TestRecommendDefaultK(t *testing.T) {
	snap := randomSnapshot(t, 30, 7)
	got, err := New(snap).Recommend(3, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != DefaultK {
		t.Errorf("k=0 returned %d results, want %d", len(got), DefaultK)
	}
}

func TestRecommendSingleItemCatalog(t *testing.T) {
	snap := newSnapshot(t, []string{"Solo"}, []float32{1})
	got, err := New(snap).Recommend(0, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}

func TestRankSelfExcludedEvenWhenTied(t *testing.T) {
	// Item 0 scores as high as the self entry of row 2; filtering by
	// position must still drop 2 and keep 0.
	got := Rank([]float32{1, 0.3, 1, 0.8}, 2, 3)
	want := []Neighbor{{0, 1}, {3, 0.8}, {1, 0.3}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Rank() = %v, want %v", got, want)
	}
}

func TestRankNaNSortsLast(t *testing.T) {
	nan := float32(math.NaN())
	got := Rank([]float32{1, nan, 0.1, nan, 0.5}, 0, 4)
	positions := make([]int, len(got))
	for i, nb := range got {
		positions[i] = nb.Position
	}
	if !reflect.DeepEqual(positions, []int{4, 2, 1, 3}) {
		t.Errorf("positions = %v, want [4 2 1 3]", positions)
	}
}

func TestRecommendConcurrentReaders(t *testing.T) {
	snap := randomSnapshot(t, 60, 99)
	r := New(snap)
	want := make([][]Recommendation, snap.Len())
	for p := range want {
		want[p], _ = r.Recommend(p, 10)
	}
	var wg sync.WaitGroup
	errs := make(chan string, 8)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for i := 0; i < snap.Len(); i++ {
				p := (i + offset) % snap.Len()
				got, err := r.Recommend(p, 10)
				if err != nil || !reflect.DeepEqual(got, want[p]) {
					errs <- fmt.Sprintf("position %d diverged under concurrency", p)
					return
				}
			}
		}(g * 7)
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}
}

func TestWiden(t *testing.T) {
	if widen(0.9) != 0.9 {
		t.Errorf("widen(0.9) = %v", widen(0.9))
	}
	if widen(1) != 1 {
		t.Errorf("widen(1) = %v", widen(1))
	}
}

func BenchmarkRecommend(b *testing.B) {
	for _, n := range []int{500, 2000} {
		snap := randomSnapshot(b, n, 3)
		r := New(snap)
		b.Run(fmt.Sprintf("items_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := r.Recommend(i%n, DefaultK); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
