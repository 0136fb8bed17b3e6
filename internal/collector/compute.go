package collector

import (
	"sort"
	"time"

	"georeporter/internal/core"
)

// maxErrorKinds bounds how many distinct error messages a summary keeps.
const maxErrorKinds = 10

// Summary is the outcome of a run.
type Summary struct {
	RunDuration time.Duration
	Evaluations int
	Decisions   map[string]int
	Reports     int
	Succeeded   int
	Failed      int
	SuccessRate float64 // percent of reports, 0 when none were sent
	Latency     DurationMetrics
	Errors      []ErrorCount // most frequent first
	Dropped     int64
}

// DurationMetrics contains report latency statistics.
type DurationMetrics struct {
	Min time.Duration
	Max time.Duration
	Avg time.Duration
	P50 time.Duration
	P90 time.Duration
	P95 time.Duration
	P99 time.Duration
}

// ErrorCount is one distinct failure message and how often it occurred.
type ErrorCount struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// FailureRate returns the percent of reports that failed.
func (s *Summary) FailureRate() float64 {
	if s.Reports == 0 {
		return 0
	}
	return 100 - s.SuccessRate
}

// Summarize computes a summary from events. Pure function, no side effects.
func Summarize(events []core.Event, runDuration time.Duration) *Summary {
	s := &Summary{
		RunDuration: runDuration,
		Decisions:   make(map[string]int),
	}

	durations := make([]time.Duration, 0, len(events))
	errCounts := make(map[string]int)

	for _, e := range events {
		switch e.Step {
		case core.StepEvaluate:
			s.Evaluations++
			s.Decisions[e.Decision]++
		case core.StepReport:
			s.Reports++
			durations = append(durations, e.Duration)
			if e.Success {
				s.Succeeded++
			} else {
				s.Failed++
				errCounts[e.Error]++
			}
		}
	}

	if s.Reports > 0 {
		s.SuccessRate = float64(s.Succeeded) / float64(s.Reports) * 100
	}
	s.Latency = ComputeDurationMetrics(durations)
	s.Errors = topErrors(errCounts, maxErrorKinds)
	return s
}

func topErrors(counts map[string]int, limit int) []ErrorCount {
	out := make([]ErrorCount, 0, len(counts))
	for msg, n := range counts {
		out = append(out, ErrorCount{Message: msg, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Message < out[j].Message
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ComputePercentile returns the nearest-rank percentile p (0..1) of a sorted slice.
func ComputePercentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	index := int(float64(len(sorted)-1) * p)
	return sorted[index]
}

// ComputeDurationMetrics calculates all latency statistics from durations.
func ComputeDurationMetrics(durations []time.Duration) DurationMetrics {
	if len(durations) == 0 {
		return DurationMetrics{}
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, d := range sorted {
		total += d
	}

	return DurationMetrics{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: total / time.Duration(len(sorted)),
		P50: ComputePercentile(sorted, 0.50),
		P90: ComputePercentile(sorted, 0.90),
		P95: ComputePercentile(sorted, 0.95),
		P99: ComputePercentile(sorted, 0.99),
	}
}
