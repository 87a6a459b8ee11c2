package ports

import (
	"context"
	"time"

	"github.com/fixora/analytics/internal/domain"
)

// IncidentTotals summarizes the incidents opened inside a window
type IncidentTotals struct {
	Total              int
	Open               int
	Resolved           int
	AvgResolutionHours float64
	// Measured counts resolved incidents; WithinTarget those that met their
	// priority's resolution target.
	Measured        int
	WithinTarget    int
	AvgSatisfaction float64
}

// ChangeTotals summarizes the change requests created inside a window
type ChangeTotals struct {
	Total   int
	Pending int
}

// MonthActivity is the raw activity of one calendar month
type MonthActivity struct {
	MonthStart     time.Time
	Opened         int
	Resolved       int
	ChangeRequests int
	Measured       int
	WithinTarget   int
}

// MetricsRepository defines the read and write access to incident and
// change-request records used by the records-backed snapshot source.
type MetricsRepository interface {
	// IncidentTotals aggregates incidents opened in the window
	IncidentTotals(ctx context.Context, window domain.Window) (IncidentTotals, error)

	// ChangeTotals aggregates change requests created in the window
	ChangeTotals(ctx context.Context, window domain.Window) (ChangeTotals, error)

	// MonthlyActivity returns per-month activity, oldest first. Callers treat
	// a missing month as a month without activity.
	MonthlyActivity(ctx context.Context, window domain.Window) ([]MonthActivity, error)

	// PriorityCounts counts incidents opened in the window per priority
	PriorityCounts(ctx context.Context, window domain.Window) (map[domain.IncidentPriority]int, error)

	// StatusCounts counts incidents opened in the window per current status
	StatusCounts(ctx context.Context, window domain.Window) (map[domain.IncidentStatus]int, error)

	// ResolutionHoursByPriority averages resolution hours per priority
	ResolutionHoursByPriority(ctx context.Context, window domain.Window) (map[domain.IncidentPriority]float64, error)

	// SaveIncident inserts or updates an incident
	SaveIncident(ctx context.Context, incident *domain.Incident) error

	// SaveChangeRequest inserts or updates a change request
	SaveChangeRequest(ctx context.Context, cr *domain.ChangeRequest) error

	// Ping checks that the backing store is reachable
	Ping(ctx context.Context) error
}
