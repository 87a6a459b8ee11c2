package synthetic

import (
	"context"

	"github.com/fixora/analytics/internal/domain"
	"github.com/fixora/analytics/internal/ports"
)

// Sampling ranges for the generated monthly series, half-open.
const (
	incidentsMin, incidentsMax       = 150, 350
	resolvedMin, resolvedMax         = 120, 300
	changeRequestsMin, changeReqsMax = 30, 80
	slaMin, slaMax                   = 75, 95
)

var baselineKPIs = domain.KPIs{
	TotalIncidents:    1847,
	OpenIncidents:     234,
	ResolvedIncidents: 1613,
	AvgResolutionTime: 2.3,
	SLACompliance:     89.2,
	UserSatisfaction:  4.2,
	ChangeRequests:    342,
	PendingChanges:    45,
}

var (
	baselinePriorities = map[domain.IncidentPriority]int{
		domain.PriorityCritical: 15,
		domain.PriorityHigh:     45,
		domain.PriorityMedium:   120,
		domain.PriorityLow:      54,
	}
	baselineStatuses = map[domain.IncidentStatus]int{
		domain.StatusOpen:       89,
		domain.StatusInProgress: 145,
		domain.StatusResolved:   567,
		domain.StatusClosed:     1046,
	}
	baselineResolutionHours = map[domain.IncidentPriority]float64{
		domain.PriorityCritical: 0.5,
		domain.PriorityHigh:     2.1,
		domain.PriorityMedium:   6.8,
		domain.PriorityLow:      12.3,
	}
)

// Provider generates demonstration snapshots: a fixed KPI baseline and
// static distributions, plus a randomly sampled monthly series covering the
// requested window.
type Provider struct {
	values ports.ValueSource
	clock  ports.Clock
}

// NewProvider creates a synthetic snapshot provider
func NewProvider(values ports.ValueSource, clock ports.Clock) *Provider {
	if clock == nil {
		clock = ports.SystemClock
	}
	if values == nil {
		values = NewRandomSource()
	}
	return &Provider{values: values, clock: clock}
}

// Name identifies the data source on dashboards
func (p *Provider) Name() string {
	return "synthetic"
}

// GenerateSnapshot fails only when the window is invalid
func (p *Provider) GenerateSnapshot(ctx context.Context, spec domain.WindowSpec) (*domain.MetricsSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := p.clock.Now()
	window, err := spec.Resolve(now)
	if err != nil {
		return nil, err
	}

	trends := make([]domain.MonthlyPoint, 0, window.Months)
	for _, start := range window.MonthStarts() {
		trends = append(trends, domain.MonthlyPoint{
			Month:          domain.MonthLabel(start),
			MonthStart:     start,
			Incidents:      p.values.IntRange(incidentsMin, incidentsMax),
			Resolved:       p.values.IntRange(resolvedMin, resolvedMax),
			ChangeRequests: p.values.IntRange(changeRequestsMin, changeReqsMax),
			SLACompliance:  float64(p.values.IntRange(slaMin, slaMax)),
		})
	}

	return &domain.MetricsSnapshot{
		KPIs:                 baselineKPIs,
		MonthlyTrends:        trends,
		PriorityDistribution: domain.PriorityDistributionFrom(baselinePriorities),
		StatusDistribution:   domain.StatusDistributionFrom(baselineStatuses),
		ResolutionTimes:      domain.ResolutionTimesFrom(baselineResolutionHours),
		Window:               window,
		GeneratedAt:          now,
	}, nil
}
