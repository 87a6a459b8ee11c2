package usecase

import (
	"context"
	"math"

	"github.com/fixora/analytics/internal/domain"
	"github.com/fixora/analytics/internal/ports"
)

// RecordsProvider computes snapshots from stored incident and change
// request records
type RecordsProvider struct {
	repo  ports.MetricsRepository
	clock ports.Clock
}

// NewRecordsProvider creates a records-backed snapshot provider
func NewRecordsProvider(repo ports.MetricsRepository, clock ports.Clock) *RecordsProvider {
	if clock == nil {
		clock = ports.SystemClock
	}
	return &RecordsProvider{repo: repo, clock: clock}
}

// Name identifies the data source on dashboards
func (p *RecordsProvider) Name() string {
	return "postgres"
}

// GenerateSnapshot aggregates the records inside the window. Any repository
// failure is reported as unavailable data.
func (p *RecordsProvider) GenerateSnapshot(ctx context.Context, spec domain.WindowSpec) (*domain.MetricsSnapshot, error) {
	now := p.clock.Now()
	window, err := spec.Resolve(now)
	if err != nil {
		return nil, err
	}

	incidents, err := p.repo.IncidentTotals(ctx, window)
	if err != nil {
		return nil, unavailable(ctx, err)
	}
	changes, err := p.repo.ChangeTotals(ctx, window)
	if err != nil {
		return nil, unavailable(ctx, err)
	}
	activity, err := p.repo.MonthlyActivity(ctx, window)
	if err != nil {
		return nil, unavailable(ctx, err)
	}
	priorities, err := p.repo.PriorityCounts(ctx, window)
	if err != nil {
		return nil, unavailable(ctx, err)
	}
	statuses, err := p.repo.StatusCounts(ctx, window)
	if err != nil {
		return nil, unavailable(ctx, err)
	}
	hours, err := p.repo.ResolutionHoursByPriority(ctx, window)
	if err != nil {
		return nil, unavailable(ctx, err)
	}

	for priority, h := range hours {
		hours[priority] = round1(h)
	}

	return &domain.MetricsSnapshot{
		KPIs: domain.KPIs{
			TotalIncidents:    incidents.Total,
			OpenIncidents:     incidents.Open,
			ResolvedIncidents: incidents.Resolved,
			AvgResolutionTime: round1(incidents.AvgResolutionHours),
			SLACompliance:     compliance(incidents.WithinTarget, incidents.Measured),
			UserSatisfaction:  round1(incidents.AvgSatisfaction),
			ChangeRequests:    changes.Total,
			PendingChanges:    changes.Pending,
		},
		MonthlyTrends:        monthlySeries(window, activity),
		PriorityDistribution: domain.PriorityDistributionFrom(priorities),
		StatusDistribution:   domain.StatusDistributionFrom(statuses),
		ResolutionTimes:      domain.ResolutionTimesFrom(hours),
		Window:               window,
		GeneratedAt:          now,
	}, nil
}

// monthlySeries lays the repository activity onto every month of the
// window; months the repository did not report are empty.
func monthlySeries(window domain.Window, activity []ports.MonthActivity) []domain.MonthlyPoint {
	points := make([]domain.MonthlyPoint, 0, window.Months)
	for _, start := range window.MonthStarts() {
		point := domain.MonthlyPoint{
			Month:         domain.MonthLabel(start),
			MonthStart:    start,
			SLACompliance: domain.MaxPercentage,
		}
		for _, a := range activity {
			if a.MonthStart.Year() == start.Year() && a.MonthStart.Month() == start.Month() {
				point.Incidents = a.Opened
				point.Resolved = a.Resolved
				point.ChangeRequests = a.ChangeRequests
				point.SLACompliance = compliance(a.WithinTarget, a.Measured)
				break
			}
		}
		points = append(points, point)
	}
	return points
}

// compliance is the percentage of measured incidents that met their target.
// With nothing measured there were no breaches.
func compliance(within, measured int) float64 {
	if measured <= 0 {
		return domain.MaxPercentage
	}
	return round1(float64(within) / float64(measured) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func unavailable(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return domain.DataUnavailable(err)
}
