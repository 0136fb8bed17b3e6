package location

import (
	"context"
	"fmt"
	"time"

	"georeporter/internal/core"
)

// Replay feeds readings from src to sink, one immediately and then one per
// interval, until ctx is done. Each emitted reading is stamped with the
// clock's current time.
func Replay(ctx context.Context, src *Source, interval time.Duration, clock core.Clock, sink func(*core.Sample)) error {
	if interval <= 0 {
		return fmt.Errorf("replay interval must be positive, got %v", interval)
	}
	if clock == nil {
		clock = core.RealClock{}
	}

	emit := func() {
		s := src.Next()
		if s == nil {
			return
		}
		s.Timestamp = clock.Now()
		sink(s)
	}

	emit()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			emit()
		}
	}
}
