package usecase

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/fixora/analytics/internal/domain"
	"github.com/fixora/analytics/internal/infra/logger"
	"github.com/fixora/analytics/internal/infra/metrics"
	"github.com/fixora/analytics/internal/ports"
)

// ErrStaleRefresh is returned to a refresh that a newer refresh superseded
var ErrStaleRefresh = errors.New("refresh superseded by a newer request")

// publishTimeout bounds event delivery after a refresh is applied
const publishTimeout = 5 * time.Second

// RefreshCoordinator owns the dashboard currently being served. Every
// refresh takes a sequence number; only the result of the highest number
// issued is applied and a superseded refresh is cancelled.
type RefreshCoordinator struct {
	builder     DashboardBuilder
	sequencer   ports.RefreshSequencer
	publisher   ports.EventPublisher
	broadcaster ports.Broadcaster
	defaultSpec domain.WindowSpec
	logger      logger.Logger
	metrics     *metrics.Metrics

	mu           sync.Mutex
	current      *domain.Dashboard
	applied      uint64
	latest       uint64
	cancelLatest context.CancelFunc
	// settled is closed when the latest refresh finishes or is superseded
	settled chan struct{}
}

// NewRefreshCoordinator creates a coordinator. publisher and broadcaster may
// be nil.
func NewRefreshCoordinator(
	builder DashboardBuilder,
	sequencer ports.RefreshSequencer,
	publisher ports.EventPublisher,
	broadcaster ports.Broadcaster,
	defaultSpec domain.WindowSpec,
	log logger.Logger,
	m *metrics.Metrics,
) *RefreshCoordinator {
	return &RefreshCoordinator{
		builder:     builder,
		sequencer:   sequencer,
		publisher:   publisher,
		broadcaster: broadcaster,
		defaultSpec: defaultSpec,
		logger:      log.WithFields(map[string]interface{}{"component": "refresh"}),
		metrics:     m,
	}
}

// Snapshot builds a dashboard without touching the served one
func (c *RefreshCoordinator) Snapshot(ctx context.Context, spec domain.WindowSpec) (*domain.Dashboard, error) {
	return c.builder.Build(ctx, spec)
}

// Current returns the served dashboard, loading the default window first
// when nothing has been applied yet.
func (c *RefreshCoordinator) Current(ctx context.Context) (*domain.Dashboard, error) {
	for {
		c.mu.Lock()
		if c.current != nil {
			d := c.current.Clone()
			c.mu.Unlock()
			return d, nil
		}
		wait := c.settled
		c.mu.Unlock()

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if wait == nil {
			d, err := c.Refresh(ctx, c.defaultSpec)
			if errors.Is(err, ErrStaleRefresh) {
				continue
			}
			return d, err
		}

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Refresh regenerates the served dashboard for the window. It returns
// ErrStaleRefresh when a newer refresh was issued before this one finished.
func (c *RefreshCoordinator) Refresh(ctx context.Context, spec domain.WindowSpec) (*domain.Dashboard, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	seq, err := c.sequencer.Next(ctx)
	if err != nil {
		c.metrics.Refresh(metrics.RefreshFailed)
		return nil, domain.DataUnavailable(err)
	}

	refreshCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !c.begin(ctx, seq, cancel) {
		c.discard(ctx, seq, spec)
		return nil, ErrStaleRefresh
	}

	start := time.Now()
	dashboard, err := c.builder.Build(refreshCtx, spec)

	c.mu.Lock()
	if seq != c.latest {
		c.mu.Unlock()
		c.discard(ctx, seq, spec)
		return nil, ErrStaleRefresh
	}
	c.settle()
	if err != nil {
		c.mu.Unlock()
		c.metrics.Refresh(metrics.RefreshFailed)
		c.logger.Error(ctx, "Dashboard refresh failed", err, map[string]interface{}{
			"sequence": seq,
			"range":    spec.String(),
		})
		return nil, err
	}
	dashboard.Sequence = seq
	c.current = dashboard
	c.applied = seq
	out := dashboard.Clone()
	c.mu.Unlock()

	c.metrics.Refresh(metrics.RefreshApplied)
	c.metrics.DashboardApplied(seq, dashboard.Snapshot.KPIs.SLACompliance)
	logger.LogRefreshEvent(ctx, c.logger, seq, true, map[string]interface{}{
		"range":       spec.String(),
		"source":      dashboard.Source,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	c.announce(ctx, out)
	return out, nil
}

// AppliedSequence returns the sequence number of the served dashboard
func (c *RefreshCoordinator) AppliedSequence() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applied
}

// begin registers seq as the latest refresh, cancelling the one it
// supersedes. It reports false when seq is not above the refresh still in
// flight. With nothing in flight a lower seq means the sequencer restarted,
// and the coordinator rebases onto it.
func (c *RefreshCoordinator) begin(ctx context.Context, seq uint64, cancel context.CancelFunc) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seq <= c.latest {
		if c.settled != nil {
			return false
		}
		c.logger.Warn(ctx, "Refresh sequence went backwards, rebasing", map[string]interface{}{
			"sequence": seq,
			"latest":   c.latest,
		})
	}
	if c.cancelLatest != nil {
		c.cancelLatest()
	}
	c.settle()
	c.latest = seq
	c.cancelLatest = cancel
	c.settled = make(chan struct{})
	return true
}

// settle wakes waiters on the latest refresh; callers hold mu
func (c *RefreshCoordinator) settle() {
	if c.settled != nil {
		close(c.settled)
		c.settled = nil
	}
	c.cancelLatest = nil
}

func (c *RefreshCoordinator) discard(ctx context.Context, seq uint64, spec domain.WindowSpec) {
	c.metrics.Refresh(metrics.RefreshDiscarded)
	logger.LogRefreshEvent(ctx, c.logger, seq, false, map[string]interface{}{
		"range":  spec.String(),
		"reason": "superseded",
	})
}

// announce pushes the applied dashboard to live clients and the event bus.
// Delivery failures are logged, never returned. Publishing outlives the
// request context but not publishTimeout.
func (c *RefreshCoordinator) announce(ctx context.Context, d *domain.Dashboard) {
	if c.broadcaster != nil {
		if err := c.broadcaster.Broadcast(ports.BroadcastDashboardRefreshed, strconv.FormatUint(d.Sequence, 10), d); err != nil {
			c.logger.Warn(ctx, "Failed to broadcast dashboard", map[string]interface{}{
				"sequence": d.Sequence,
				"error":    err.Error(),
			})
		}
	}

	if c.publisher != nil {
		event := ports.NewEvent(ports.EventTypeDashboardRefreshed, "dashboard", "current", map[string]interface{}{
			"sequence":        d.Sequence,
			"range":           d.Range,
			"source":          d.Source,
			"generated_at":    d.Snapshot.GeneratedAt,
			"sla_compliance":  d.Snapshot.KPIs.SLACompliance,
			"total_incidents": d.Snapshot.KPIs.TotalIncidents,
		}, int(d.Sequence))
		publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()
		if err := c.publisher.Publish(publishCtx, *event); err != nil {
			c.logger.Error(ctx, "Failed to publish refresh event", err, map[string]interface{}{
				"sequence": d.Sequence,
			})
		}
	}
}
