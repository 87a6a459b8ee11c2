package sequence

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/go-redis/redis/v8"

	"github.com/fixora/analytics/internal/ports"
)

// DefaultKey is the Redis counter shared by every dashboard instance
const DefaultKey = "analytics:dashboard:refresh_seq"

// RedisSequencer issues sequence numbers with INCR so that replicas sharing
// a Redis agree on refresh order.
type RedisSequencer struct {
	client *redis.Client
	key    string
}

// NewRedisSequencer creates a Redis-backed sequencer
func NewRedisSequencer(client *redis.Client, key string) *RedisSequencer {
	if key == "" {
		key = DefaultKey
	}
	return &RedisSequencer{client: client, key: key}
}

// Next returns the next sequence number
func (s *RedisSequencer) Next(ctx context.Context) (uint64, error) {
	n, err := s.client.Incr(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment refresh sequence: %w", err)
	}
	return uint64(n), nil
}

// MemorySequencer issues sequence numbers from a process-local counter
type MemorySequencer struct {
	n atomic.Uint64
}

// NewMemorySequencer creates a sequencer whose first number is 1
func NewMemorySequencer() *MemorySequencer {
	return &MemorySequencer{}
}

// Next returns the next sequence number
func (s *MemorySequencer) Next(ctx context.Context) (uint64, error) {
	return s.n.Add(1), nil
}

// New picks the Redis sequencer when a client is available
func New(client *redis.Client) ports.RefreshSequencer {
	if client == nil {
		return NewMemorySequencer()
	}
	return NewRedisSequencer(client, DefaultKey)
}
