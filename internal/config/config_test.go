package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_Full(t *testing.T) {
	content := `
remote:
  base_url: "https://project.example.com"
  function: "record-location"
  api_key: "anon"
  headers:
    X-Client: "georeporter"
  timeout: 5s
  max_rps: 0.5
session:
  access_token: "eyJ.token"
reporter:
  enabled: false
location:
  file: "/data/readings.csv"
  mode: random
  interval: 1m
log:
  level: debug
  format: json
  output: stdout
`
	cfg := loadConfigFromString(t, content)

	if cfg.Remote.BaseURL != "https://project.example.com" {
		t.Errorf("expected base_url, got %q", cfg.Remote.BaseURL)
	}
	if cfg.Remote.APIKey != "anon" {
		t.Errorf("expected api_key 'anon', got %q", cfg.Remote.APIKey)
	}
	if cfg.Remote.Headers["X-Client"] != "georeporter" {
		t.Errorf("expected X-Client header, got %v", cfg.Remote.Headers)
	}
	if cfg.Remote.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", cfg.Remote.Timeout)
	}
	if cfg.Remote.MaxRPS != 0.5 {
		t.Errorf("expected max_rps 0.5, got %v", cfg.Remote.MaxRPS)
	}
	if cfg.Session.AccessToken != "eyJ.token" {
		t.Errorf("expected access token, got %q", cfg.Session.AccessToken)
	}
	if cfg.Reporter.IsEnabled() {
		t.Error("expected reporter to be disabled")
	}
	if cfg.Location.File != "/data/readings.csv" {
		t.Errorf("expected absolute location file kept, got %q", cfg.Location.File)
	}
	if cfg.Location.Mode != "random" {
		t.Errorf("expected mode random, got %q", cfg.Location.Mode)
	}
	if cfg.Location.Interval != time.Minute {
		t.Errorf("expected interval 1m, got %v", cfg.Location.Interval)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" || cfg.Log.Output != "stdout" {
		t.Errorf("unexpected log config: %+v", cfg.Log)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := loadConfigFromString(t, `
remote:
  base_url: "http://localhost:8080"
`)

	if cfg.Remote.Function != DefaultFunction {
		t.Errorf("expected function %q, got %q", DefaultFunction, cfg.Remote.Function)
	}
	if cfg.Remote.Timeout != DefaultTimeout {
		t.Errorf("expected timeout %v, got %v", DefaultTimeout, cfg.Remote.Timeout)
	}
	if cfg.Remote.MaxRPS != 0 {
		t.Errorf("expected unlimited rps, got %v", cfg.Remote.MaxRPS)
	}
	if !cfg.Reporter.IsEnabled() {
		t.Error("expected reporter enabled by default")
	}
	if cfg.Location.Mode != DefaultMode {
		t.Errorf("expected mode %q, got %q", DefaultMode, cfg.Location.Mode)
	}
	if cfg.Location.Interval != DefaultInterval {
		t.Errorf("expected interval %v, got %v", DefaultInterval, cfg.Location.Interval)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "console" || cfg.Log.Output != "stderr" {
		t.Errorf("unexpected log defaults: %+v", cfg.Log)
	}
}

func TestLoadConfig_RelativeLocationFile(t *testing.T) {
	tmpFile := createTempFile(t, `
remote:
  base_url: "http://localhost:8080"
location:
  file: "readings.json"
`)

	cfg, err := LoadConfig(tmpFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := filepath.Join(filepath.Dir(tmpFile), "readings.json")
	if cfg.Location.File != want {
		t.Errorf("expected %q, got %q", want, cfg.Location.File)
	}
}

func TestLoadConfig_EnvExpansion(t *testing.T) {
	t.Setenv("GEOREPORTER_TEST_TOKEN", "tok-123")
	t.Setenv("GEOREPORTER_TEST_KEY", "key-456")

	cfg := loadConfigFromString(t, `
remote:
  base_url: "${env:GEOREPORTER_TEST_URL:-http://localhost:8080}"
  api_key: "${env:GEOREPORTER_TEST_KEY}"
  headers:
    X-Key: "${env:GEOREPORTER_TEST_KEY}"
session:
  access_token: "${env:GEOREPORTER_TEST_TOKEN}"
`)

	if cfg.Remote.BaseURL != "http://localhost:8080" {
		t.Errorf("expected default base_url, got %q", cfg.Remote.BaseURL)
	}
	if cfg.Remote.APIKey != "key-456" {
		t.Errorf("expected api key from env, got %q", cfg.Remote.APIKey)
	}
	if cfg.Remote.Headers["X-Key"] != "key-456" {
		t.Errorf("expected header from env, got %v", cfg.Remote.Headers)
	}
	if cfg.Session.AccessToken != "tok-123" {
		t.Errorf("expected token from env, got %q", cfg.Session.AccessToken)
	}
}

func TestParse_MissingEnvNamesEveryField(t *testing.T) {
	lookup := func(string) (string, bool) { return "", false }
	_, err := Parse([]byte(`
remote:
  base_url: "http://localhost:8080"
  api_key: "${env:MISSING_KEY}"
session:
  access_token: "${env:MISSING_TOKEN}"
`), lookup)
	if err == nil {
		t.Fatal("expected error for missing env vars")
	}
	for _, want := range []string{"remote.api_key", "MISSING_KEY", "session.access_token", "MISSING_TOKEN"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in error, got %v", want, err)
		}
	}
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"missing base_url", `remote: {}`, "remote.base_url is required"},
		{"relative base_url", `remote: {base_url: "localhost:8080"}`, "absolute http(s) URL"},
		{"ftp base_url", `remote: {base_url: "ftp://host"}`, "absolute http(s) URL"},
		{"negative rps", `remote: {base_url: "http://h", max_rps: -1}`, "remote.max_rps"},
		{"negative timeout", `remote: {base_url: "http://h", timeout: -1s}`, "remote.timeout"},
		{"bad mode", "remote: {base_url: \"http://h\"}\nlocation: {mode: shuffle}", "location.mode"},
		{"bad interval", "remote: {base_url: \"http://h\"}\nlocation: {interval: -5s}", "location.interval"},
		{"bad format", "remote: {base_url: \"http://h\"}\nlog: {format: xml}", "log.format"},
		{"bad failure rate", "remote: {base_url: \"http://h\"}\nthresholds: {report_failed: {rate: ten}}", "thresholds.report_failed.rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content), os.LookupEnv)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q in error, got %v", tt.want, err)
			}
		})
	}
}

func TestParse_Thresholds(t *testing.T) {
	content := `
remote:
  base_url: "http://localhost:8080"
thresholds:
  report_duration:
    p95: 500ms
  report_failed:
    rate: "5%"
`
	cfg, err := Parse([]byte(content), os.LookupEnv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Thresholds == nil || cfg.Thresholds.ReportDuration == nil {
		t.Fatal("expected thresholds to be parsed")
	}
	if cfg.Thresholds.ReportDuration.P95 != 500*time.Millisecond {
		t.Errorf("expected p95 500ms, got %v", cfg.Thresholds.ReportDuration.P95)
	}
	if cfg.Thresholds.ReportFailed.Rate != "5%" {
		t.Errorf("expected rate 5%%, got %q", cfg.Thresholds.ReportFailed.Rate)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	content := `
remote:
  base_url: "Invalid
  headers: [[[invalid
`
	tmpFile := createTempFile(t, content)

	_, err := LoadConfig(tmpFile)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadConfig_EmptyFile(t *testing.T) {
	tmpFile := createTempFile(t, "")

	_, err := LoadConfig(tmpFile)
	if err == nil {
		t.Fatal("expected error for empty config (base_url is required)")
	}
}

// Helper functions

func loadConfigFromString(t *testing.T, content string) *Config {
	t.Helper()
	tmpFile := createTempFile(t, content)

	cfg, err := LoadConfig(tmpFile)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func createTempFile(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	return tmpFile
}
