package ratelimit

import (
	"context"
	"time"
)

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Limiter provides fixed-window rate limit checks.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error)
}

// windowStart returns the start of the fixed window containing now and the time it resets.
func windowStart(now time.Time, window time.Duration) (int64, time.Time) {
	size := int64(window / time.Second)
	if size <= 0 {
		size = 1
	}
	start := now.Unix() / size * size
	return start, time.Unix(start+size, 0).UTC()
}
