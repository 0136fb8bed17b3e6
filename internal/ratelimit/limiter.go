// Package ratelimit bounds how often outbound report calls may leave the client.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter wraps a token bucket. A nil *Limiter never blocks.
type Limiter struct {
	limiter *rate.Limiter
	mu      sync.RWMutex
}

// NewLimiter allows rps calls per second with a burst of max(1, rps).
// Returns nil when rps is 0 or negative (no limiting).
func NewLimiter(rps float64) *Limiter {
	if rps <= 0 {
		return nil
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burstFor(rps)),
	}
}

// Wait blocks until a call is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	l.mu.RLock()
	limiter := l.limiter
	l.mu.RUnlock()
	return limiter.Wait(ctx)
}

// Allow reports whether a call may happen now, consuming a token if so.
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.limiter.Allow()
}

// SetRate changes the rate. A rate of 0 or less removes the limit.
func (l *Limiter) SetRate(rps float64) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if rps <= 0 {
		l.limiter.SetLimit(rate.Inf)
		return
	}
	l.limiter.SetLimit(rate.Limit(rps))
	l.limiter.SetBurst(burstFor(rps))
}

func burstFor(rps float64) int {
	if rps < 1 {
		return 1
	}
	return int(rps)
}
