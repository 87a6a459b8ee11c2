package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/fixora/analytics/internal/domain"
	"github.com/fixora/analytics/internal/infra/logger"
	"github.com/fixora/analytics/internal/ports"
)

// SeedSummary counts the records written by a seeding run
type SeedSummary struct {
	Incidents      int
	Resolved       int
	ChangeRequests int
}

// RecordSeeder fills the metrics store with plausible incident and change
// request history so the records-backed dashboard has data to show.
type RecordSeeder struct {
	repo   ports.MetricsRepository
	values ports.ValueSource
	clock  ports.Clock
	logger logger.Logger
}

// NewRecordSeeder creates a seeder drawing from values
func NewRecordSeeder(repo ports.MetricsRepository, values ports.ValueSource, clock ports.Clock, log logger.Logger) *RecordSeeder {
	if clock == nil {
		clock = ports.SystemClock
	}
	return &RecordSeeder{repo: repo, values: values, clock: clock, logger: log}
}

// Seed writes history for the trailing months ending at the current month
func (s *RecordSeeder) Seed(ctx context.Context, months int) (SeedSummary, error) {
	var summary SeedSummary
	if months < 1 || months > domain.MaxWindowMonths {
		return summary, domain.InvalidWindow("seed span must be 1-%d months, got %d", domain.MaxWindowMonths, months)
	}

	now := s.clock.Now()
	window := domain.Window{
		Start:  time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -(months - 1), 0),
		Months: months,
	}

	for _, start := range window.MonthStarts() {
		end := start.AddDate(0, 1, 0)
		if end.After(now) {
			end = now
		}
		span := int(end.Sub(start).Hours())
		if span < 1 {
			continue
		}

		for i, n := 0, s.values.IntRange(20, 60); i < n; i++ {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			incident, err := s.incident(start, span, now)
			if err != nil {
				return summary, err
			}
			if err := s.repo.SaveIncident(ctx, incident); err != nil {
				return summary, fmt.Errorf("failed to save incident: %w", err)
			}
			summary.Incidents++
			if incident.ResolvedAt != nil {
				summary.Resolved++
			}
		}

		for i, n := 0, s.values.IntRange(5, 15); i < n; i++ {
			cr := domain.NewChangeRequest(
				fmt.Sprintf("Change %s #%d", start.Format(domain.MonthLayout), i+1),
				start.Add(time.Duration(s.values.IntRange(0, span))*time.Hour),
			)
			cr.Status = s.changeStatus()
			if err := s.repo.SaveChangeRequest(ctx, cr); err != nil {
				return summary, fmt.Errorf("failed to save change request: %w", err)
			}
			summary.ChangeRequests++
		}

		s.logger.Debug(ctx, "Seeded month", map[string]interface{}{
			"month": start.Format(domain.MonthLayout),
		})
	}

	s.logger.Info(ctx, "Seeding completed", map[string]interface{}{
		"months":          months,
		"incidents":       summary.Incidents,
		"resolved":        summary.Resolved,
		"change_requests": summary.ChangeRequests,
	})
	return summary, nil
}

func (s *RecordSeeder) incident(monthStart time.Time, spanHours int, now time.Time) (*domain.Incident, error) {
	priority := s.priority()
	openedAt := monthStart.Add(time.Duration(s.values.IntRange(0, spanHours)) * time.Hour)
	incident := domain.NewIncident(fmt.Sprintf("%s incident", priority), priority, openedAt)

	// four in five incidents get resolved
	if s.values.IntRange(0, 5) == 0 {
		if s.values.IntRange(0, 2) == 0 {
			incident.Status = domain.StatusInProgress
		}
		return incident, nil
	}

	def, _ := domain.PriorityDefinition(priority)
	// between a fifth and one and a half times the target
	minutes := int(def.TargetHours * 60)
	resolvedAt := openedAt.Add(time.Duration(s.values.IntRange(minutes/5, minutes*3/2+1)) * time.Minute)
	if resolvedAt.After(now) {
		return incident, nil
	}
	if err := incident.Resolve(resolvedAt); err != nil {
		return nil, err
	}
	if err := incident.Rate(float64(s.values.IntRange(30, 51)) / 10); err != nil {
		return nil, err
	}
	if s.values.IntRange(0, 2) == 0 {
		if err := incident.Close(); err != nil {
			return nil, err
		}
	}
	return incident, nil
}

func (s *RecordSeeder) priority() domain.IncidentPriority {
	switch roll := s.values.IntRange(0, 100); {
	case roll < 8:
		return domain.PriorityCritical
	case roll < 28:
		return domain.PriorityHigh
	case roll < 78:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

func (s *RecordSeeder) changeStatus() domain.ChangeRequestStatus {
	switch s.values.IntRange(0, 4) {
	case 0:
		return domain.ChangeStatusPending
	case 1:
		return domain.ChangeStatusApproved
	case 2:
		return domain.ChangeStatusImplemented
	default:
		return domain.ChangeStatusRejected
	}
}
