package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewLimiter(t *testing.T) {
	if l := NewLimiter(100); l == nil {
		t.Error("expected non-nil limiter")
	}
}

func TestNewLimiter_ZeroRPS(t *testing.T) {
	l := NewLimiter(0)
	if l != nil {
		t.Fatalf("expected nil limiter for zero RPS, got %v", l)
	}

	// nil limiter must not block
	start := time.Now()
	if err := l.Wait(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Millisecond {
		t.Errorf("nil limiter should not block, took %v", elapsed)
	}
	if !l.Allow() {
		t.Error("nil limiter should always allow")
	}
	l.SetRate(5) // should not panic
}

func TestLimiter_Wait(t *testing.T) {
	l := NewLimiter(1000)

	start := time.Now()
	if err := l.Wait(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("wait took too long: %v", elapsed)
	}
}

func TestLimiter_ContextCancelled(t *testing.T) {
	l := NewLimiter(0.1) // one call every 10s

	// exhaust the burst
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	if err == nil {
		t.Fatal("expected error when context times out")
	}
	if errors.Is(err, context.Canceled) {
		t.Errorf("expected deadline error, got %v", err)
	}
}

func TestLimiter_Allow(t *testing.T) {
	l := NewLimiter(0.5) // burst of 1

	if !l.Allow() {
		t.Fatal("expected first call to be allowed")
	}
	if l.Allow() {
		t.Error("expected second immediate call to be refused")
	}
}

func TestLimiter_SetRateUnlimited(t *testing.T) {
	l := NewLimiter(0.1)
	_ = l.Allow()

	l.SetRate(0)
	for i := 0; i < 100; i++ {
		if !l.Allow() {
			t.Fatalf("call %d refused after removing the limit", i)
		}
	}
}

func TestBurstFor(t *testing.T) {
	tests := []struct {
		rps  float64
		want int
	}{
		{0.1, 1},
		{1, 1},
		{2.5, 2},
		{100, 100},
	}
	for _, tt := range tests {
		if got := burstFor(tt.rps); got != tt.want {
			t.Errorf("burstFor(%v) = %d, want %d", tt.rps, got, tt.want)
		}
	}
}
