package ports

import (
	"context"
	"time"

	"github.com/fixora/analytics/internal/domain"
)

// SnapshotProvider produces a fresh, independent metrics snapshot for a
// reporting window. Implementations have no side effects and keep no cache.
type SnapshotProvider interface {
	GenerateSnapshot(ctx context.Context, spec domain.WindowSpec) (*domain.MetricsSnapshot, error)
	Name() string
}

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock
var SystemClock Clock = ClockFunc(time.Now)

// ValueSource supplies integers for synthetic data
type ValueSource interface {
	// IntRange returns an integer in the half-open range [lo, hi)
	IntRange(lo, hi int) int
}
