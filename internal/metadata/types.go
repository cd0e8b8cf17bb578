// Package metadata fetches movie details (title, poster, genres, ratings)
// from an external movie database. The recommender consumes it through the
// Fetcher interface; decorators add circuit breaking and a Redis cache.
package metadata

import (
	"context"
	"strings"
)

// Details is the metadata shown on a recommendation card or detail page.
type Details struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	ReleaseDate string   `json:"release_date"`
	PosterPath  string   `json:"poster_path"`
	Genres      []string `json:"genres"`
	VoteAverage float64  `json:"vote_average"`
	VoteCount   int      `json:"vote_count"`
	Overview    string   `json:"overview"`
}

// Fetcher looks up details by external id. Implementations return an error
// wrapping errors.ErrNotFound when the id is unknown upstream.
type Fetcher interface {
	FetchDetails(ctx context.Context, id int64) (*Details, error)
}

// Searcher runs a free-text title search against the movie database.
type Searcher interface {
	SearchMovies(ctx context.Context, query string) ([]SearchHit, error)
}

// SearchHit is one row of a title search against the movie database.
type SearchHit struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	ReleaseDate string  `json:"release_date"`
	PosterPath  string  `json:"poster_path"`
	VoteAverage float64 `json:"vote_average"`
}

// PosterURL joins an image base URL with a poster path, or returns
// placeholder when the path is empty.
func PosterURL(imageBase, placeholder, posterPath string) string {
	if posterPath == "" {
		return placeholder
	}
	return strings.TrimRight(imageBase, "/") + "/" + strings.TrimLeft(posterPath, "/")
}
