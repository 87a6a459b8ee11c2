package ports

import (
	"context"
	"time"
)

// RefreshSequencer hands out strictly increasing refresh sequence numbers
type RefreshSequencer interface {
	Next(ctx context.Context) (uint64, error)
}

// RateLimiter defines the counters used to throttle refresh requests
type RateLimiter interface {
	CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Increment(ctx context.Context, key string, window time.Duration) error
	Block(ctx context.Context, key string, duration time.Duration, reason string) error
	IsBlocked(ctx context.Context, key string) (bool, error)
	GetAttempts(ctx context.Context, key string) (int, error)
}
