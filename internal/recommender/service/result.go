package service

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/metadata"
)

// Card is one enriched recommendation. Title falls back to the catalog
// title and PosterURL to the placeholder when metadata is unavailable.
type Card struct {
	Position     int               `json:"position"`
	CatalogTitle string            `json:"catalog_title"`
	ExternalID   int64             `json:"external_id"`
	Title        string            `json:"title"`
	PosterURL    string            `json:"poster_url"`
	Score        float64           `json:"score"`
	SharePercent float64           `json:"share_percent"`
	Enriched     bool              `json:"enriched"`
	Details      *metadata.Details `json:"details,omitempty"`
}

// LastResult is the caller-owned outcome of one recommendation request.
// Chart views derive from Cards (score and share per title).
type LastResult struct {
	Query       string       `json:"query"`
	Seed        catalog.Item `json:"seed"`
	K           int          `json:"k"`
	Cards       []Card       `json:"cards"`
	TotalScore  float64      `json:"total_score"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// ChartPoint is a (title, value) pair for bar or pie charts.
type ChartPoint struct {
	Title string  `json:"title"`
	Value float64 `json:"value"`
}

// Scores returns the per-card similarity in result order.
func (r *LastResult) Scores() []ChartPoint {
	out := make([]ChartPoint, len(r.Cards))
	for i, c := range r.Cards {
		out[i] = ChartPoint{Title: c.Title, Value: c.Score}
	}
	return out
}

// Shares returns each card's percentage of the summed similarity.
func (r *LastResult) Shares() []ChartPoint {
	out := make([]ChartPoint, len(r.Cards))
	for i, c := range r.Cards {
		out[i] = ChartPoint{Title: c.Title, Value: c.SharePercent}
	}
	return out
}

// DetailView is movie metadata plus the resolved poster URL.
type DetailView struct {
	*metadata.Details
	PosterURL string `json:"poster_url"`
}

// MovieHit is one metadata search hit with its poster URL resolved.
type MovieHit struct {
	metadata.SearchHit
	PosterURL string `json:"poster_url"`
}
