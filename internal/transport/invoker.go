// Package transport sends location reports to the remote record-location
// function over HTTP.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"georeporter/internal/core"
	"georeporter/internal/ratelimit"
	"georeporter/internal/template"
)

const (
	// maxResponseBodySize limits how much of a response is read for error messages.
	maxResponseBodySize = 64 * 1024

	defaultFunction = "record-location"
	defaultTimeout  = 10 * time.Second
)

// errorPaths are tried in order to pull a message out of an error body.
var errorPaths = []string{"$.error.message", "$.error", "$.message", "$.msg"}

// Options configures a FunctionInvoker.
type Options struct {
	BaseURL  string // e.g. https://project.example.com
	Function string // defaults to record-location
	APIKey   string // sent as the apikey header when set
	Headers  map[string]string
	Tokens   core.TokenSource
	Client   *http.Client
	Limiter  *ratelimit.Limiter
	Debug    *DebugLogger
}

// FunctionInvoker implements core.Transport by POSTing the payload as JSON
// to {BaseURL}/functions/v1/{Function}.
type FunctionInvoker struct {
	endpoint string
	function string
	apiKey   string
	headers  map[string]string
	tokens   core.TokenSource
	client   *http.Client
	limiter  *ratelimit.Limiter
	debug    *DebugLogger
}

// NewFunctionInvoker validates opts and builds an invoker.
func NewFunctionInvoker(opts Options) (*FunctionInvoker, error) {
	if opts.Tokens == nil {
		return nil, errors.New("transport: token source is required")
	}
	if opts.Function == "" {
		opts.Function = defaultFunction
	}
	endpoint, err := url.JoinPath(opts.BaseURL, "functions", "v1", opts.Function)
	if err != nil {
		return nil, fmt.Errorf("building function URL: %w", err)
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: defaultTimeout}
	}

	return &FunctionInvoker{
		endpoint: endpoint,
		function: opts.Function,
		apiKey:   opts.APIKey,
		headers:  opts.Headers,
		tokens:   opts.Tokens,
		client:   opts.Client,
		limiter:  opts.Limiter,
		debug:    opts.Debug,
	}, nil
}

// Endpoint returns the resolved function URL.
func (f *FunctionInvoker) Endpoint() string {
	return f.endpoint
}

// Report sends one payload. It returns nil on a 2xx response, a
// *FunctionError for any other status, and a wrapped error when the call
// could not be made at all.
func (f *FunctionInvoker) Report(ctx context.Context, p core.Payload) error {
	token, ok := f.tokens.AccessToken()
	if !ok {
		return ErrNoSession
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	requestID := uuid.NewString()
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-Id", requestID)
	if f.apiKey != "" {
		req.Header.Set("apikey", f.apiKey)
	}

	f.debug.LogRequest(requestID, req, body)
	start := time.Now()
	resp, err := f.client.Do(req)
	duration := time.Since(start)
	if err != nil {
		f.debug.LogError(requestID, err, duration)
		return fmt.Errorf("invoking %s: %w", f.function, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	_, _ = io.Copy(io.Discard, resp.Body) // drain errors are ignorable
	f.debug.LogResponse(requestID, resp, respBody, duration)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg, _ := template.Lookup(respBody, errorPaths...)
	return &FunctionError{
		Function: f.function,
		Status:   resp.StatusCode,
		Message:  msg,
	}
}
