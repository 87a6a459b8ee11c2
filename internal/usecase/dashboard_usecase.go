package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/fixora/analytics/internal/domain"
	"github.com/fixora/analytics/internal/infra/logger"
	"github.com/fixora/analytics/internal/infra/metrics"
	"github.com/fixora/analytics/internal/ports"
)

// DashboardBuilder turns a window request into a derived dashboard
type DashboardBuilder interface {
	Build(ctx context.Context, spec domain.WindowSpec) (*domain.Dashboard, error)
}

// DashboardUseCase generates a snapshot from the configured provider and
// enriches it with derived metrics
type DashboardUseCase struct {
	provider  ports.SnapshotProvider
	slaTarget float64
	timeout   time.Duration
	logger    logger.Logger
	metrics   *metrics.Metrics
}

// NewDashboardUseCase creates a new dashboard use case
func NewDashboardUseCase(
	provider ports.SnapshotProvider,
	slaTarget float64,
	log logger.Logger,
	m *metrics.Metrics,
) *DashboardUseCase {
	if slaTarget <= 0 {
		slaTarget = domain.DefaultSLATarget
	}
	return &DashboardUseCase{
		provider:  provider,
		slaTarget: slaTarget,
		logger:    log.WithFields(map[string]interface{}{"component": "dashboard"}),
		metrics:   m,
	}
}

// WithTimeout bounds every generation by d; zero means no bound
func (uc *DashboardUseCase) WithTimeout(d time.Duration) *DashboardUseCase {
	uc.timeout = d
	return uc
}

// Build validates the window, generates a snapshot and derives its metrics.
// An invalid window is rejected before the provider is called.
func (uc *DashboardUseCase) Build(ctx context.Context, spec domain.WindowSpec) (*domain.Dashboard, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	if uc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.timeout)
		defer cancel()
	}

	source := uc.provider.Name()
	start := time.Now()
	snapshot, err := uc.provider.GenerateSnapshot(ctx, spec)
	duration := time.Since(start)
	uc.metrics.SnapshotGenerated(source, duration, err)

	fields := map[string]interface{}{
		"source": source,
		"range":  spec.String(),
	}
	if err != nil {
		err = classify(err)
		uc.logger.Error(ctx, "Snapshot generation failed", err, fields)
		return nil, err
	}

	dashboard, err := domain.NewDashboard(snapshot, spec, source, uc.slaTarget)
	if err != nil {
		uc.logger.Error(ctx, "Snapshot failed validation", err, fields)
		return nil, err
	}

	fields["months"] = snapshot.Window.Months
	logger.LogPerformance(ctx, uc.logger, "generate_snapshot", duration, fields)
	return dashboard, nil
}

// classify keeps domain and cancellation errors as they are and reports
// anything else from a provider as unavailable data
func classify(err error) error {
	if _, ok := domain.KindOf(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return domain.DataUnavailable(err)
}
