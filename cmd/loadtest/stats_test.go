package main

import (
	"bytes"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
	"time"
)

func TestPercentile(t *testing.T) {
	sorted := make([]time.Duration, 100)
	for i := range sorted {
		sorted[i] = time.Duration(i+1) * time.Millisecond
	}
	tests := []struct {
		p    float64
		want time.Duration
	}{
		{50, 50 * time.Millisecond},
		{90, 90 * time.Millisecond},
		{99, 99 * time.Millisecond},
		{0, time.Millisecond},
		{100, 100 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := percentile(sorted, tt.p); got != tt.want {
			t.Errorf("percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
	if percentile(nil, 50) != 0 {
		t.Error("empty input should yield 0")
	}
}

func TestStatsReport(t *testing.T) {
	s := NewStats()
	s.RecordRequest("recommendations", 10*time.Millisecond, 200, nil)
	s.RecordRequest("recommendations", 30*time.Millisecond, 404, nil)
	s.RecordRequest("titles", 5*time.Millisecond, 200, nil)
	s.RecordRequest("titles", time.Second, 0, errors.New("timeout"))

	var buf bytes.Buffer
	if total := s.Report(&buf, time.Second); total != 4 {
		t.Fatalf("total = %d, want 4", total)
	}
	out := buf.String()
	for _, want := range []string{"Successful:      2", "Errors:          2", "=== Latency: recommendations (2) ===", "  404: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if l := summarize(s.latencies["recommendations"]); l.Avg != 20*time.Millisecond || l.StdDev != 10*time.Millisecond {
		t.Errorf("summary = %+v", l)
	}
}

func TestNextRequestMix(t *testing.T) {
	cfg := Config{BaseURL: "http://x", K: 3, SearchRatio: 1, Titles: []string{"기생충"}}
	rng := rand.New(rand.NewPCG(1, 2))
	ep, target := nextRequest(cfg, rng)
	if ep != "titles" || !strings.Contains(target, "/api/v1/titles?q=") {
		t.Errorf("search request = %s %s", ep, target)
	}

	cfg.SearchRatio = 0
	ep, target = nextRequest(cfg, rng)
	if ep != "recommendations" || !strings.HasSuffix(target, "&k=3") {
		t.Errorf("recommend request = %s %s", ep, target)
	}
}
