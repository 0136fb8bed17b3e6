package collector

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"
)

// FormatText writes a summary in human-readable form.
func FormatText(w io.Writer, s *Summary, thresholds *ThresholdResults) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "georeporter - Run Summary")
	fmt.Fprintln(w, "=========================")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Duration:     %v\n", s.RunDuration.Round(time.Millisecond))
	fmt.Fprintf(w, "Evaluations:  %s\n", formatNumber(s.Evaluations))

	if len(s.Decisions) > 0 {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Decisions:")
		for _, name := range sortedKeys(s.Decisions) {
			fmt.Fprintf(w, "  %-12s %s\n", name, formatNumber(s.Decisions[name]))
		}
	}

	fmt.Fprintln(w, "")
	if s.Reports == 0 {
		fmt.Fprintln(w, "No reports sent")
	} else {
		fmt.Fprintf(w, "Reports:      %s (%s ok, %s failed, %.1f%% success)\n",
			formatNumber(s.Reports), formatNumber(s.Succeeded), formatNumber(s.Failed), s.SuccessRate)
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Report Latency:")
		fmt.Fprintf(w, "  Min:    %s\n", FormatDuration(s.Latency.Min))
		fmt.Fprintf(w, "  Avg:    %s\n", FormatDuration(s.Latency.Avg))
		fmt.Fprintf(w, "  P50:    %s\n", FormatDuration(s.Latency.P50))
		fmt.Fprintf(w, "  P95:    %s\n", FormatDuration(s.Latency.P95))
		fmt.Fprintf(w, "  Max:    %s\n", FormatDuration(s.Latency.Max))
	}

	if len(s.Errors) > 0 {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Errors:")
		for _, e := range s.Errors {
			fmt.Fprintf(w, "  %4d  %s\n", e.Count, e.Message)
		}
	}

	if s.Dropped > 0 {
		fmt.Fprintln(w, "")
		fmt.Fprintf(w, "Warning: %d events dropped\n", s.Dropped)
	}

	if thresholds != nil && len(thresholds.Results) > 0 {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Thresholds:")
		for _, r := range thresholds.Results {
			symbol := "✓"
			if !r.Passed {
				symbol = "✗"
			}
			fmt.Fprintf(w, "  %s %s < %s (actual: %s)\n", symbol, r.Name, r.Threshold, r.Actual)
		}
	}
}

// FormatJSON writes a summary as indented JSON.
func FormatJSON(w io.Writer, s *Summary, thresholds *ThresholdResults) {
	output := struct {
		Duration    string              `json:"duration"`
		Evaluations int                 `json:"evaluations"`
		Decisions   map[string]int      `json:"decisions"`
		Reports     int                 `json:"reports"`
		Succeeded   int                 `json:"succeeded"`
		Failed      int                 `json:"failed"`
		SuccessRate float64             `json:"successRate"`
		Latency     jsonDurationMetrics `json:"latency"`
		Errors      []ErrorCount        `json:"errors,omitempty"`
		Dropped     int64               `json:"dropped,omitempty"`
		Thresholds  *ThresholdResults   `json:"thresholds,omitempty"`
	}{
		Duration:    s.RunDuration.Round(time.Millisecond).String(),
		Evaluations: s.Evaluations,
		Decisions:   s.Decisions,
		Reports:     s.Reports,
		Succeeded:   s.Succeeded,
		Failed:      s.Failed,
		SuccessRate: s.SuccessRate,
		Latency:     toJSONDurationMetrics(s.Latency),
		Errors:      s.Errors,
		Dropped:     s.Dropped,
		Thresholds:  thresholds,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(output) // stdout errors are unrecoverable
}

type jsonDurationMetrics struct {
	Min string `json:"min"`
	Max string `json:"max"`
	Avg string `json:"avg"`
	P50 string `json:"p50"`
	P90 string `json:"p90"`
	P95 string `json:"p95"`
	P99 string `json:"p99"`
}

func toJSONDurationMetrics(d DurationMetrics) jsonDurationMetrics {
	return jsonDurationMetrics{
		Min: FormatDuration(d.Min),
		Max: FormatDuration(d.Max),
		Avg: FormatDuration(d.Avg),
		P50: FormatDuration(d.P50),
		P90: FormatDuration(d.P90),
		P95: FormatDuration(d.P95),
		P99: FormatDuration(d.P99),
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%d,%03d", n/1000, n%1000)
}
