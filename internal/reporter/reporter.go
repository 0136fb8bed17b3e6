// Package reporter forwards location readings to the remote service at most
// once per cooldown while a session is active.
package reporter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"georeporter/internal/core"
)

// Cooldown is the minimum time between two successful reports.
const Cooldown = 5 * time.Minute

const component = "LocationRecording"

// Decision names the outcome of one evaluation.
type Decision int

const (
	DecisionDispatched Decision = iota
	DecisionDisabled
	DecisionNoSession
	DecisionNoLocation
	DecisionInFlight
	DecisionCooldown
	DecisionClosed
	DecisionUnchanged
)

func (d Decision) String() string {
	switch d {
	case DecisionDispatched:
		return "dispatched"
	case DecisionDisabled:
		return "disabled"
	case DecisionNoSession:
		return "no_session"
	case DecisionNoLocation:
		return "no_location"
	case DecisionInFlight:
		return "in_flight"
	case DecisionCooldown:
		return "cooldown"
	case DecisionClosed:
		return "closed"
	case DecisionUnchanged:
		return "unchanged"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Inputs is the full set of values the reporter observes.
type Inputs struct {
	Location *core.Sample
	Enabled  bool
	Session  *core.Identity
}

// PanicError wraps a value recovered from a panicking transport.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("transport panicked: %v", e.Value)
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithClock overrides the clock used for cooldown decisions.
func WithClock(c core.Clock) Option {
	return func(r *Reporter) { r.clock = c }
}

// WithLogger sets the logger failures are written to.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Reporter) { r.log = l }
}

// WithRecorder sets the sink for decision and outcome events.
func WithRecorder(rec core.Recorder) Option {
	return func(r *Reporter) { r.recorder = rec }
}

// Reporter is the gate between location updates and the remote transport.
// All methods are safe for concurrent use.
type Reporter struct {
	transport core.Transport
	clock     core.Clock
	log       zerolog.Logger
	recorder  core.Recorder

	mu             sync.Mutex
	inputs         Inputs
	lastRecordedAt int64 // epoch ms of the last successful report, 0 = never
	inFlight       bool
	closed         bool
	wg             sync.WaitGroup
}

// New creates a Reporter. It starts disabled, with no session and no location.
func New(transport core.Transport, opts ...Option) *Reporter {
	r := &Reporter{
		transport: transport,
		clock:     core.RealClock{},
		log:       zerolog.Nop(),
		recorder:  core.NullRecorder,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With().Str("component", component).Logger()
	return r
}

// Observe replaces all inputs and evaluates once.
func (r *Reporter) Observe(in Inputs) Decision {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs = in
	return r.evaluateLocked()
}

// SetLocation records a new reading and evaluates. Every reading counts as
// a change, even when the coordinates repeat.
func (r *Reporter) SetLocation(s *core.Sample) Decision {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs.Location = s
	return r.evaluateLocked()
}

// SetEnabled evaluates only when the flag actually changes.
func (r *Reporter) SetEnabled(enabled bool) Decision {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inputs.Enabled == enabled {
		return DecisionUnchanged
	}
	r.inputs.Enabled = enabled
	return r.evaluateLocked()
}

// SetSession evaluates only when the session identity actually changes.
func (r *Reporter) SetSession(id *core.Identity) Decision {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inputs.Session.Same(id) {
		return DecisionUnchanged
	}
	r.inputs.Session = id
	return r.evaluateLocked()
}

// LastRecordedAt returns the epoch millisecond of the last successful report, or 0.
func (r *Reporter) LastRecordedAt() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRecordedAt
}

// InFlight reports whether a report call is outstanding.
func (r *Reporter) InFlight() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inFlight
}

// Close stops all further evaluation and waits for an outstanding call until
// ctx is done. The call is never cancelled; a result arriving after Close is
// logged and otherwise ignored.
func (r *Reporter) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight report: %w", ctx.Err())
	}
}

// evaluateLocked applies the gate. r.mu must be held.
func (r *Reporter) evaluateLocked() Decision {
	now := core.NowMillis(r.clock)
	d := r.decideLocked(now)

	r.recorder.Record(core.Event{
		Timestamp: r.clock.Now(),
		Step:      core.StepEvaluate,
		Decision:  d.String(),
	})
	if d != DecisionDispatched {
		return d
	}

	r.inFlight = true
	r.wg.Add(1)
	payload := core.PayloadFrom(*r.inputs.Location)
	r.log.Debug().
		Float64("latitude", payload.Latitude).
		Float64("longitude", payload.Longitude).
		Msg("reporting location")
	go r.report(payload, now)
	return d
}

func (r *Reporter) decideLocked(now int64) Decision {
	switch {
	case r.closed:
		return DecisionClosed
	case !r.inputs.Enabled:
		return DecisionDisabled
	case r.inputs.Session == nil:
		return DecisionNoSession
	case r.inputs.Location == nil:
		return DecisionNoLocation
	case r.inFlight:
		return DecisionInFlight
	case r.lastRecordedAt != 0 && now-r.lastRecordedAt < Cooldown.Milliseconds():
		return DecisionCooldown
	}
	return DecisionDispatched
}

// report runs one transport call. decidedAt is the time the gate passed;
// it becomes lastRecordedAt on success.
func (r *Reporter) report(p core.Payload, decidedAt int64) {
	defer r.wg.Done()

	start := r.clock.Now()
	err := r.invoke(p)
	elapsed := r.clock.Since(start)

	r.mu.Lock()
	defer r.mu.Unlock()
	defer func() { r.inFlight = false }()

	ev := core.Event{
		Timestamp: r.clock.Now(),
		Step:      core.StepReport,
		Success:   err == nil,
		Duration:  elapsed,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	r.recorder.Record(ev)

	var pe *PanicError
	switch {
	case errors.As(err, &pe):
		r.log.Error().Err(err).Msg("report call raised")
	case err != nil:
		r.log.Error().Err(err).Msg("report failed")
	case r.closed:
		r.log.Debug().Msg("report completed after close, result ignored")
	default:
		r.lastRecordedAt = decidedAt
	}
}

func (r *Reporter) invoke(p core.Payload) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v}
		}
	}()
	return r.transport.Report(context.Background(), p)
}
