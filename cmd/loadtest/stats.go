package main

import (
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Stats accumulates results per endpoint across workers.
type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64

	mu          sync.Mutex
	latencies   map[string][]time.Duration
	statusCodes map[int]int64
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make(map[string][]time.Duration),
		statusCodes: make(map[int]int64),
	}
}

func (s *Stats) RecordRequest(endpoint string, duration time.Duration, statusCode int, err error) {
	s.totalRequests.Add(1)
	if err != nil {
		s.errorCount.Add(1)
		return
	}
	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
	} else {
		s.errorCount.Add(1)
	}

	s.mu.Lock()
	s.latencies[endpoint] = append(s.latencies[endpoint], duration)
	s.statusCodes[statusCode]++
	s.mu.Unlock()
}

// LatencySummary is the distribution for one endpoint.
type LatencySummary struct {
	Count         int
	Min, Avg, Max time.Duration
	P50, P90, P99 time.Duration
	StdDev        time.Duration
}

func summarize(latencies []time.Duration) LatencySummary {
	if len(latencies) == 0 {
		return LatencySummary{}
	}
	sorted := append([]time.Duration(nil), latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, l := range sorted {
		sum += l
	}
	avg := sum / time.Duration(len(sorted))

	var sumSquared float64
	for _, l := range sorted {
		diff := float64(l) - float64(avg)
		sumSquared += diff * diff
	}
	return LatencySummary{
		Count:  len(sorted),
		Min:    sorted[0],
		Avg:    avg,
		Max:    sorted[len(sorted)-1],
		P50:    percentile(sorted, 50),
		P90:    percentile(sorted, 90),
		P99:    percentile(sorted, 99),
		StdDev: time.Duration(math.Sqrt(sumSquared / float64(len(sorted)))),
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Report writes the summary and returns the number of completed requests.
func (s *Stats) Report(w io.Writer, duration time.Duration) int64 {
	total := s.totalRequests.Load()
	success := s.successCount.Load()
	errors := s.errorCount.Load()

	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", total)
	fmt.Fprintf(w, "Successful:      %d\n", success)
	fmt.Fprintf(w, "Errors:          %d\n", errors)
	if total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(errors)/float64(total)*100)
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	endpoints := make([]string, 0, len(s.latencies))
	for ep := range s.latencies {
		endpoints = append(endpoints, ep)
	}
	sort.Strings(endpoints)
	for _, ep := range endpoints {
		l := summarize(s.latencies[ep])
		fmt.Fprintln(w)
		fmt.Fprintf(w, "=== Latency: %s (%d) ===\n", ep, l.Count)
		fmt.Fprintf(w, "Min %s  Avg %s  P50 %s  P90 %s  P99 %s  Max %s  StdDev %s\n",
			l.Min, l.Avg, l.P50, l.P90, l.P99, l.Max, l.StdDev)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Status Codes ===")
	codes := make([]int, 0, len(s.statusCodes))
	for code := range s.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, s.statusCodes[code])
	}
	return total
}
