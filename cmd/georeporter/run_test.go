package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"georeporter/testserver"
)

func writeRunConfig(t *testing.T, baseURL, token, extra string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readings.csv"), []byte("lat,lng\n1,2\n3,4\n"), 0644))

	cfg := fmt.Sprintf(`
remote:
  base_url: %q
session:
  access_token: %q
location:
  file: readings.csv
  interval: 20ms
log:
  level: error
%s`, baseURL, token, extra)
	path := filepath.Join(dir, "georeporter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0644))
	return path
}

func TestRunReporter_ReportsOnceWithinCooldown(t *testing.T) {
	server := testserver.NewServer("cli-secret")
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()
	token, err := server.IssueToken("user-1", time.Hour)
	require.NoError(t, err)

	var stdout, stderr bytes.Buffer
	opts := &runOptions{
		configPath: writeRunConfig(t, ts.URL, token, ""),
		quiet:      true,
		output:     "json",
		duration:   200 * time.Millisecond,
	}
	require.NoError(t, runReporter(context.Background(), opts, &stdout, &stderr))

	var summary map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))
	assert.Equal(t, float64(1), summary["reports"])
	assert.Equal(t, float64(1), summary["succeeded"])

	reports := server.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, 1.0, reports[0].Latitude)
	assert.Equal(t, 2.0, reports[0].Longitude)
}

func TestRunReporter_Disabled(t *testing.T) {
	server := testserver.NewServer("cli-secret")
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()
	token, _ := server.IssueToken("user-1", time.Hour)

	var stdout bytes.Buffer
	opts := &runOptions{
		configPath: writeRunConfig(t, ts.URL, token, ""),
		disabled:   true,
		quiet:      true,
		output:     "text",
		duration:   100 * time.Millisecond,
	}
	require.NoError(t, runReporter(context.Background(), opts, &stdout, &bytes.Buffer{}))

	assert.Contains(t, stdout.String(), "No reports sent")
	assert.Empty(t, server.Reports())
}

func TestRunReporter_ThresholdFailure(t *testing.T) {
	server := testserver.NewServer("cli-secret")
	server.SetFailRate(100)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()
	token, _ := server.IssueToken("user-1", time.Hour)

	extra := "thresholds:\n  report_failed:\n    rate: \"50%\"\n"
	opts := &runOptions{
		configPath: writeRunConfig(t, ts.URL, token, extra),
		quiet:      true,
		output:     "text",
		duration:   100 * time.Millisecond,
	}
	err := runReporter(context.Background(), opts, &bytes.Buffer{}, &bytes.Buffer{})
	assert.ErrorIs(t, err, errThresholdFailed)
}

func TestRunReporter_BadOutput(t *testing.T) {
	err := runReporter(context.Background(), &runOptions{output: "xml"}, &bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--output")
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "georeporter dev\n", out.String())
}
