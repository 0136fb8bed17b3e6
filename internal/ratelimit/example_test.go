package ratelimit_test

import (
	"context"
	"fmt"
	"time"

	"georeporter/internal/ratelimit"
)

func ExampleNewLimiter() {
	limiter := ratelimit.NewLimiter(100)

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := limiter.Wait(ctx); err != nil {
			fmt.Println("Context cancelled")
			return
		}
	}
	elapsed := time.Since(start)

	fmt.Printf("5 calls completed in under 100ms: %v\n", elapsed < 100*time.Millisecond)
	// Output: 5 calls completed in under 100ms: true
}

func ExampleLimiter_Allow() {
	limiter := ratelimit.NewLimiter(1)

	fmt.Println(limiter.Allow(), limiter.Allow())
	// Output: true false
}
