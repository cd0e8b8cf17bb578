package metadata

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/resilience"
)

const maxBodyBytes = 1 << 20

// TMDBClient talks to the TMDB v3 REST API. Every request carries the
// api_key and language query parameters.
type TMDBClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	language   string
	retry      resilience.RetryConfig
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewTMDBClient(cfg config.MetadataConfig, m *metrics.Metrics) *TMDBClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &TMDBClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		language:   cfg.Language,
		retry: resilience.RetryConfig{
			MaxAttempts:  cfg.MaxAttempts,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
		},
		metrics: m,
		logger:  slog.Default().With("component", "tmdb-client"),
	}
}

type tmdbMovie struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	ReleaseDate string  `json:"release_date"`
	PosterPath  string  `json:"poster_path"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
	Overview    string  `json:"overview"`
	Genres      []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"genres"`
}

type tmdbSearchPage struct {
	Results []SearchHit `json:"results"`
}

// FetchDetails implements Fetcher against GET /movie/{id}.
func (c *TMDBClient) FetchDetails(ctx context.Context, id int64) (*Details, error) {
	if id <= 0 {
		return nil, fmt.Errorf("movie id %d: %w", id, apperrors.ErrInvalidInput)
	}
	start := time.Now()
	var movie tmdbMovie
	err := c.get(ctx, "/movie/"+strconv.FormatInt(id, 10), nil, &movie)
	c.observe(start, err)
	if err != nil {
		return nil, fmt.Errorf("fetching movie %d: %w", id, err)
	}

	details := &Details{
		ID:          movie.ID,
		Title:       movie.Title,
		ReleaseDate: movie.ReleaseDate,
		PosterPath:  movie.PosterPath,
		VoteAverage: movie.VoteAverage,
		VoteCount:   movie.VoteCount,
		Overview:    movie.Overview,
		Genres:      make([]string, 0, len(movie.Genres)),
	}
	for _, g := range movie.Genres {
		details.Genres = append(details.Genres, g.Name)
	}
	return details, nil
}

// SearchMovies runs a title search and returns the first page of hits.
func (c *TMDBClient) SearchMovies(ctx context.Context, title string) ([]SearchHit, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return []SearchHit{}, nil
	}
	var page tmdbSearchPage
	if err := c.get(ctx, "/search/movie", url.Values{"query": {title}}, &page); err != nil {
		return nil, fmt.Errorf("searching %q: %w", title, err)
	}
	if page.Results == nil {
		page.Results = []SearchHit{}
	}
	return page.Results, nil
}

func (c *TMDBClient) get(ctx context.Context, path string, params url.Values, out any) error {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("api_key", c.apiKey)
	if c.language != "" {
		q.Set("language", c.language)
	}
	endpoint := c.baseURL + path + "?" + q.Encode()

	return resilience.Retry(ctx, "tmdb "+path, c.retry, func() error {
		return c.do(ctx, endpoint, out)
	})
}

func (c *TMDBClient) do(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return resilience.Permanent(fmt.Errorf("building request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return resilience.Permanent(ctx.Err())
		}
		return fmt.Errorf("%w: %v", apperrors.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: reading body: %v", apperrors.ErrUpstream, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return resilience.Permanent(apperrors.ErrNotFound)
	case resp.StatusCode >= 500, resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", apperrors.ErrUpstream, resp.StatusCode)
	case resp.StatusCode >= 400:
		return resilience.Permanent(fmt.Errorf("%w: status %d", apperrors.ErrUpstream, resp.StatusCode))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return resilience.Permanent(fmt.Errorf("%w: decoding response: %v", apperrors.ErrUpstream, err))
	}
	return nil
}

func (c *TMDBClient) observe(start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	c.metrics.MetadataLatency.Observe(time.Since(start).Seconds())
	result := "ok"
	switch {
	case apperrors.Is(err, apperrors.ErrNotFound):
		result = "not_found"
	case err != nil:
		result = "error"
	}
	c.metrics.MetadataLookupsTotal.WithLabelValues(result).Inc()
}
