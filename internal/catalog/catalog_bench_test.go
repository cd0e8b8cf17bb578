package catalog

import (
	"fmt"
	"testing"
)

func benchStore(n int) *Store {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{Title: fmt.Sprintf("Movie Number %d: The Sequel", i), ExternalID: int64(i + 1)}
	}
	return NewStore(items)
}

// BenchmarkItemsMatching measures substring search across catalog sizes.
func BenchmarkItemsMatching(b *testing.B) {
	queries := []struct {
		name  string
		query string
	}{
		{"common", "sequel"},
		{"rare", "number 4999:"},
		{"miss", "zzz"},
	}
	for _, n := range []int{1000, 5000} {
		s := benchStore(n)
		for _, q := range queries {
			b.Run(fmt.Sprintf("items_%d/%s", n, q.name), func(b *testing.B) {
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					_ = s.ItemsMatching(q.query)
				}
			})
		}
	}
}

func BenchmarkResolve(b *testing.B) {
	s := benchStore(5000)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := s.Resolve(fmt.Sprintf("Movie Number %d: The Sequel", i%5000)); err != nil {
			b.Fatal(err)
		}
	}
}
