package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsSnapshot_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *MetricsSnapshot)
	}{
		{"negative total", func(s *MetricsSnapshot) { s.KPIs.TotalIncidents = -1 }},
		{"open exceeds total", func(s *MetricsSnapshot) { s.KPIs.OpenIncidents = s.KPIs.TotalIncidents + 1 }},
		{"pending exceeds changes", func(s *MetricsSnapshot) { s.KPIs.PendingChanges = s.KPIs.ChangeRequests + 1 }},
		{"sla above 100", func(s *MetricsSnapshot) { s.KPIs.SLACompliance = 100.1 }},
		{"satisfaction above 5", func(s *MetricsSnapshot) { s.KPIs.UserSatisfaction = 5.1 }},
		{"resolution time NaN", func(s *MetricsSnapshot) { s.KPIs.AvgResolutionTime = math.NaN() }},
		{"trend count mismatch", func(s *MetricsSnapshot) { s.MonthlyTrends = s.MonthlyTrends[:1] }},
		{"trend not ascending", func(s *MetricsSnapshot) {
			s.MonthlyTrends[0], s.MonthlyTrends[1] = s.MonthlyTrends[1], s.MonthlyTrends[0]
		}},
		{"monthly sla negative", func(s *MetricsSnapshot) { s.MonthlyTrends[0].SLACompliance = -1 }},
		{"priority category missing", func(s *MetricsSnapshot) { s.PriorityDistribution = s.PriorityDistribution[:3] }},
		{"priority order changed", func(s *MetricsSnapshot) {
			s.PriorityDistribution[0], s.PriorityDistribution[1] = s.PriorityDistribution[1], s.PriorityDistribution[0]
		}},
		{"status value negative", func(s *MetricsSnapshot) { s.StatusDistribution[2].Value = -4 }},
		{"resolution category wrong", func(s *MetricsSnapshot) { s.ResolutionTimes[3].Category = "P9" }},
		{"resolution time negative", func(s *MetricsSnapshot) { s.ResolutionTimes[1].AvgTime = -0.1 }},
	}

	require.NoError(t, validSnapshot().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSnapshot()
			tt.mutate(s)

			err := s.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvariantViolation))

			kind, ok := KindOf(err)
			assert.True(t, ok)
			assert.Equal(t, KindInvariantViolation, kind)
		})
	}
}

func TestMetricsSnapshot_CloneIsIndependent(t *testing.T) {
	original := validSnapshot()
	clone := original.Clone()
	require.Equal(t, original, clone)

	clone.MonthlyTrends[0].Incidents = 1
	clone.PriorityDistribution[0].Value = 1
	clone.StatusDistribution[0].Value = 1
	clone.ResolutionTimes[0].AvgTime = 99
	clone.KPIs.TotalIncidents = 1

	assert.Equal(t, 200, original.MonthlyTrends[0].Incidents)
	assert.Equal(t, 15, original.PriorityDistribution[0].Value)
	assert.Equal(t, 89, original.StatusDistribution[0].Value)
	assert.Equal(t, 0.5, original.ResolutionTimes[0].AvgTime)
	assert.Equal(t, 1847, original.KPIs.TotalIncidents)
}

func TestDistributionsFollowCatalog(t *testing.T) {
	dist := PriorityDistributionFrom(map[IncidentPriority]int{PriorityHigh: 3})
	require.Len(t, dist, 4)
	assert.Equal(t, "P1 - Critical", dist[0].Name)
	assert.Equal(t, "#ef4444", dist[0].Color)
	assert.Equal(t, 0, dist[0].Value)
	assert.Equal(t, 3, dist[1].Value)

	status := StatusDistributionFrom(nil)
	require.Len(t, status, 4)
	assert.Equal(t, "In Progress", status[1].Name)

	rts := ResolutionTimesFrom(nil)
	require.Len(t, rts, 4)
	assert.Equal(t, ResolutionComparison{Category: "P4", AvgTime: 0, TargetTime: 24}, rts[3])
}

func TestDomainError(t *testing.T) {
	cause := errors.New("connection refused")
	err := DataUnavailable(cause)

	assert.ErrorIs(t, err, ErrDataUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrInvalidWindow)
	assert.Equal(t, "metrics data unavailable: connection refused", err.Error())
}
