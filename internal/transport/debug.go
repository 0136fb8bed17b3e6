package transport

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const maxBodyLogSize = 1024

// DebugLogger writes request and response summaries at debug level.
// A nil *DebugLogger logs nothing.
type DebugLogger struct {
	log zerolog.Logger
}

func NewDebugLogger(log zerolog.Logger) *DebugLogger {
	return &DebugLogger{log: log}
}

func (d *DebugLogger) LogRequest(requestID string, req *http.Request, body []byte) {
	if d == nil {
		return
	}
	d.log.Debug().
		Str("request_id", requestID).
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("body", truncateBody(body)).
		Msg(">>> request")
}

func (d *DebugLogger) LogResponse(requestID string, resp *http.Response, body []byte, duration time.Duration) {
	if d == nil {
		return
	}
	d.log.Debug().
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("duration", duration.Round(time.Millisecond)).
		Str("body", truncateBody(body)).
		Msg("<<< response")
}

func (d *DebugLogger) LogError(requestID string, err error, duration time.Duration) {
	if d == nil {
		return
	}
	d.log.Debug().
		Str("request_id", requestID).
		Err(err).
		Dur("duration", duration.Round(time.Millisecond)).
		Msg("!!! error")
}

func truncateBody(body []byte) string {
	if len(body) <= maxBodyLogSize {
		return string(body)
	}
	return string(body[:maxBodyLogSize]) + fmt.Sprintf("... (truncated, %d bytes total)", len(body))
}
