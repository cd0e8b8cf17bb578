// Command loadtest drives the recommender (directly or through the
// gateway) with a mix of recommendation and title-search requests.
//
// Usage:
//
//	go run ./cmd/loadtest -url http://localhost:8082 -catalog data/movies.csv -rps 200
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/catalog/artifact"
)

type Config struct {
	BaseURL     string
	APIKey      string
	Concurrency int
	Duration    time.Duration
	RPS         float64
	K           int
	SearchRatio float64
	Titles      []string
}

var defaultTitles = []string{
	"Avatar",
	"The Dark Knight",
	"Inception",
	"Interstellar",
	"Parasite",
	"Spirited Away",
	"The Matrix",
	"Toy Story",
	"Oldboy",
	"Memories of Murder",
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the recommender or gateway")
	apiKey := flag.String("api-key", "", "API key sent as X-API-Key (optional)")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	rps := flag.Float64("rps", 0, "overall request rate cap, 0 for unlimited")
	k := flag.Int("k", 10, "recommendations per request")
	searchRatio := flag.Float64("search-ratio", 0.2, "fraction of requests that are title searches")
	catalogPath := flag.String("catalog", "", "catalog CSV to sample titles from (optional)")
	flag.Parse()

	titles := defaultTitles
	if *catalogPath != "" {
		loaded, err := loadTitles(*catalogPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "loading catalog: %v\n", err)
			os.Exit(1)
		}
		titles = loaded
	}

	cfg := Config{
		BaseURL:     strings.TrimRight(*baseURL, "/"),
		APIKey:      *apiKey,
		Concurrency: *concurrency,
		Duration:    *duration,
		RPS:         *rps,
		K:           *k,
		SearchRatio: *searchRatio,
		Titles:      titles,
	}

	fmt.Println("=== Recommender Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Rate cap:    %.0f req/s\n", cfg.RPS)
	fmt.Printf("Titles:      %d unique\n", len(cfg.Titles))
	fmt.Println()

	stats := runLoadTest(cfg)
	if total := stats.Report(os.Stdout, cfg.Duration); total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
}

func loadTitles(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	items, err := artifact.ReadCatalog(f)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("catalog %s is empty", path)
	}
	titles := make([]string, len(items))
	for i, it := range items {
		titles[i] = it.Title
	}
	return titles, nil
}

// nextRequest picks a recommendation or a title search for the given title.
func nextRequest(cfg Config, rng *rand.Rand) (endpoint, target string) {
	title := cfg.Titles[rng.IntN(len(cfg.Titles))]
	if rng.Float64() < cfg.SearchRatio {
		q := title
		if r := []rune(title); len(r) > 3 {
			q = string(r[:3])
		}
		return "titles", fmt.Sprintf("%s/api/v1/titles?q=%s&limit=20", cfg.BaseURL, url.QueryEscape(q))
	}
	return "recommendations", fmt.Sprintf("%s/api/v1/recommendations?title=%s&k=%d",
		cfg.BaseURL, url.QueryEscape(title), cfg.K)
}

func runLoadTest(cfg Config) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), max(int(cfg.RPS/10), 1))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	fmt.Print("Running")
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	var g errgroup.Group
	for w := 0; w < cfg.Concurrency; w++ {
		rng := rand.New(rand.NewPCG(uint64(w), uint64(time.Now().UnixNano())))
		g.Go(func() error {
			for {
				if err := limiter.Wait(ctx); err != nil {
					return nil
				}
				endpoint, target := nextRequest(cfg, rng)
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
				if err != nil {
					return fmt.Errorf("creating request: %w", err)
				}
				if cfg.APIKey != "" {
					req.Header.Set("X-API-Key", cfg.APIKey)
				}

				start := time.Now()
				resp, err := client.Do(req)
				elapsed := time.Since(start)
				if ctx.Err() != nil {
					return nil
				}
				if err != nil {
					stats.RecordRequest(endpoint, elapsed, 0, err)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.RecordRequest(endpoint, elapsed, resp.StatusCode, nil)
			}
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "\nworker error: %v\n", err)
	}

	fmt.Println(" done!")
	fmt.Println()
	return stats
}
