package ranker

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/catalog"
	apperrors "github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/errors"
)

// DefaultK is the neighbour count used when the caller passes k <= 0.
const DefaultK = 10

// Neighbor is a candidate position with its similarity to the query.
type Neighbor struct {
	Position int
	Score    float32
}

// Recommendation is one entry of a ranked result.
type Recommendation struct {
	Item  catalog.Item `json:"item"`
	Score float64      `json:"score"`
}

// Ranker answers neighbour queries over one immutable snapshot. It holds no
// mutable state and is safe for concurrent use.
type Ranker struct {
	snap *catalog.Snapshot
}

// New returns a Ranker over snap.
func New(snap *catalog.Snapshot) *Ranker {
	return &Ranker{snap: snap}
}

// Recommend returns the min(k, N-1) items most similar to position, by
// descending score with ties broken by ascending position. The query item is
// never part of the result.
func (r *Ranker) Recommend(position, k int) ([]Recommendation, error) {
	n := r.snap.Len()
	if position < 0 || position >= n {
		return nil, fmt.Errorf("recommend for position %d of %d: %w", position, n, apperrors.ErrInvalidIndex)
	}
	row, err := r.snap.Matrix.Row(position)
	if err != nil {
		return nil, err
	}
	neighbors := Rank(row, position, k)
	result := make([]Recommendation, 0, len(neighbors))
	for _, nb := range neighbors {
		item, err := r.snap.Store.Item(nb.Position)
		if err != nil {
			return nil, err
		}
		result = append(result, Recommendation{
			Item:  item,
			Score: widen(nb.Score),
		})
	}
	return result, nil
}

// Rank orders the entries of row other than self and keeps the first k.
// NaN scores rank below every number.
func Rank(row []float32, self int, k int) []Neighbor {
	if k <= 0 {
		k = DefaultK
	}
	candidates := make([]Neighbor, 0, len(row))
	for pos, score := range row {
		if pos == self {
			continue
		}
		candidates = append(candidates, Neighbor{Position: pos, Score: score})
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		aNaN, bNaN := isNaN(a.Score), isNaN(b.Score)
		if aNaN != bNaN {
			return bNaN
		}
		if !aNaN && a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Position < b.Position
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}

func isNaN(v float32) bool {
	return v != v
}

// widen converts a stored float32 score to the shortest float64 that prints
// the same, so 0.9 stays 0.9 in JSON instead of 0.8999999761581421.
func widen(v float32) float64 {
	if isNaN(v) || math.IsInf(float64(v), 0) {
		return float64(v)
	}
	f, _ := strconv.ParseFloat(strconv.FormatFloat(float64(v), 'g', -1, 32), 64)
	return f
}
