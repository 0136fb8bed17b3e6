// Package core defines the shared types and collaborator interfaces for georeporter.
package core

import (
	"context"
	"time"
)

// Sample is a single geolocation reading. A nil *Sample means no fix yet.
type Sample struct {
	Lat       float64
	Lng       float64
	Accuracy  float64   // metres, 0 when unknown
	Timestamp time.Time // when the reading was taken, zero when unknown
}

// Payload is the body sent to the remote record-location function.
type Payload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PayloadFrom builds the outbound payload from a reading.
func PayloadFrom(s Sample) Payload {
	return Payload{Latitude: s.Lat, Longitude: s.Lng}
}

// Identity marks an authenticated session. A nil *Identity means no session.
type Identity struct {
	UserID      string
	AccessToken string
	ExpiresAt   time.Time // zero when the token carries no expiry
}

// Same reports whether two identities describe the same session.
func (id *Identity) Same(other *Identity) bool {
	if id == nil || other == nil {
		return id == nil && other == nil
	}
	return id.UserID == other.UserID && id.AccessToken == other.AccessToken
}

// Transport performs the remote report call. A nil error means the remote
// side confirmed the report.
type Transport interface {
	Report(ctx context.Context, p Payload) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, p Payload) error

func (f TransportFunc) Report(ctx context.Context, p Payload) error {
	return f(ctx, p)
}

// TokenSource supplies the bearer token for the current session.
type TokenSource interface {
	AccessToken() (string, bool)
}

// Event kinds recorded by the reporter.
const (
	StepEvaluate = "evaluate"
	StepReport   = "report"
)

// Event is a single observation from the reporter: either the decision of
// one evaluation or the outcome of one report call.
type Event struct {
	Timestamp time.Time
	Step      string // StepEvaluate or StepReport
	Decision  string // set for StepEvaluate
	Success   bool   // set for StepReport
	Error     string
	Duration  time.Duration
}

// Recorder receives reporter events.
type Recorder interface {
	Record(Event)
}

// NullRecorder discards all events.
var NullRecorder Recorder = nullRecorder{}

type nullRecorder struct{}

func (nullRecorder) Record(Event) {}
