package collector

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Thresholds defines pass/fail criteria for a run.
type Thresholds struct {
	ReportDuration *DurationThresholds `yaml:"report_duration"`
	ReportFailed   *FailureThresholds  `yaml:"report_failed"`
}

// DurationThresholds defines report latency limits.
type DurationThresholds struct {
	Avg time.Duration `yaml:"avg"`
	P50 time.Duration `yaml:"p50"`
	P90 time.Duration `yaml:"p90"`
	P95 time.Duration `yaml:"p95"`
	P99 time.Duration `yaml:"p99"`
}

// FailureThresholds defines the report failure rate limit, e.g. "5%".
type FailureThresholds struct {
	Rate string `yaml:"rate"`
}

// ThresholdResult is the outcome of a single check.
type ThresholdResult struct {
	Name      string `json:"name"`
	Passed    bool   `json:"passed"`
	Threshold string `json:"threshold"`
	Actual    string `json:"actual"`
}

// ThresholdResults contains all check results.
type ThresholdResults struct {
	Passed  bool              `json:"passed"`
	Results []ThresholdResult `json:"results"`
}

// Validate reports malformed threshold values.
func (t *Thresholds) Validate() error {
	if t == nil || t.ReportFailed == nil || t.ReportFailed.Rate == "" {
		return nil
	}
	if _, err := parsePercentage(t.ReportFailed.Rate); err != nil {
		return fmt.Errorf("report_failed.rate: %w", err)
	}
	return nil
}

// Check evaluates all thresholds against a summary. A nil receiver passes.
func (t *Thresholds) Check(s *Summary) *ThresholdResults {
	results := &ThresholdResults{Passed: true}
	if t == nil {
		return results
	}

	if t.ReportDuration != nil {
		results.checkDurations(t.ReportDuration, &s.Latency)
	}
	if t.ReportFailed != nil && t.ReportFailed.Rate != "" {
		results.checkFailureRate(t.ReportFailed, s)
	}
	return results
}

func (r *ThresholdResults) checkDurations(limits *DurationThresholds, actual *DurationMetrics) {
	checks := []struct {
		name   string
		limit  time.Duration
		actual time.Duration
	}{
		{"report_duration.avg", limits.Avg, actual.Avg},
		{"report_duration.p50", limits.P50, actual.P50},
		{"report_duration.p90", limits.P90, actual.P90},
		{"report_duration.p95", limits.P95, actual.P95},
		{"report_duration.p99", limits.P99, actual.P99},
	}

	for _, c := range checks {
		if c.limit == 0 {
			continue
		}
		r.add(ThresholdResult{
			Name:      c.name,
			Passed:    c.actual < c.limit,
			Threshold: FormatDuration(c.limit),
			Actual:    FormatDuration(c.actual),
		})
	}
}

func (r *ThresholdResults) checkFailureRate(limit *FailureThresholds, s *Summary) {
	rate, err := parsePercentage(limit.Rate)
	if err != nil {
		return
	}
	actual := s.FailureRate()
	r.add(ThresholdResult{
		Name:      "report_failed.rate",
		Passed:    actual < rate,
		Threshold: limit.Rate,
		Actual:    fmt.Sprintf("%.2f%%", actual),
	})
}

func (r *ThresholdResults) add(res ThresholdResult) {
	if !res.Passed {
		r.Passed = false
	}
	r.Results = append(r.Results, res)
}

// Violations returns only the failed results.
func (r *ThresholdResults) Violations() []ThresholdResult {
	violations := make([]ThresholdResult, 0)
	for _, res := range r.Results {
		if !res.Passed {
			violations = append(violations, res)
		}
	}
	return violations
}

func parsePercentage(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if !strings.HasSuffix(s, "%") {
		return 0, fmt.Errorf("invalid percentage format: %q", s)
	}
	return strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
}

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Round(time.Second).String()
}
