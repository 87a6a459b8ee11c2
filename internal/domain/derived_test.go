package domain

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSnapshot() *MetricsSnapshot {
	start := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)
	return &MetricsSnapshot{
		KPIs: KPIs{
			TotalIncidents:    1847,
			OpenIncidents:     234,
			ResolvedIncidents: 1613,
			AvgResolutionTime: 2.3,
			SLACompliance:     89.2,
			UserSatisfaction:  4.2,
			ChangeRequests:    342,
			PendingChanges:    45,
		},
		MonthlyTrends: []MonthlyPoint{
			{Month: MonthLabel(start), MonthStart: start, Incidents: 200, Resolved: 180, ChangeRequests: 40, SLACompliance: 80},
			{Month: MonthLabel(start.AddDate(0, 1, 0)), MonthStart: start.AddDate(0, 1, 0), Incidents: 250, Resolved: 150, ChangeRequests: 40, SLACompliance: 90},
		},
		PriorityDistribution: PriorityDistributionFrom(map[IncidentPriority]int{
			PriorityCritical: 15, PriorityHigh: 45, PriorityMedium: 120, PriorityLow: 54,
		}),
		StatusDistribution: StatusDistributionFrom(map[IncidentStatus]int{
			StatusOpen: 89, StatusInProgress: 145, StatusResolved: 567, StatusClosed: 1046,
		}),
		ResolutionTimes: ResolutionTimesFrom(map[IncidentPriority]float64{
			PriorityCritical: 0.5, PriorityHigh: 2.1, PriorityMedium: 6.8, PriorityLow: 12.3,
		}),
		Window:      Window{Start: start, Months: 2},
		GeneratedAt: start.AddDate(0, 1, 10),
	}
}

func percents(shares []CategoryShare) []float64 {
	out := make([]float64, len(shares))
	for i, s := range shares {
		out[i] = s.Percent
	}
	return out
}

func sumTenths(shares []CategoryShare) int {
	total := 0
	for _, s := range shares {
		total += int(math.Round(s.Percent * 10))
	}
	return total
}

func TestPercentageShare(t *testing.T) {
	tests := []struct {
		name     string
		values   []int
		expected []float64
	}{
		{
			name:     "priority distribution",
			values:   []int{15, 45, 120, 54},
			expected: []float64{6.4, 19.2, 51.3, 23.1},
		},
		{
			name:     "status distribution",
			values:   []int{89, 145, 567, 1046},
			expected: []float64{4.8, 7.9, 30.7, 56.6},
		},
		{
			name:     "all zero",
			values:   []int{0, 0, 0, 0},
			expected: []float64{0, 0, 0, 0},
		},
		{
			name:     "thirds",
			values:   []int{1, 1, 1},
			expected: []float64{33.4, 33.3, 33.3},
		},
		{
			name:     "single bucket",
			values:   []int{0, 7, 0, 0},
			expected: []float64{0, 100, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dist := make([]Category, len(tt.values))
			for i, v := range tt.values {
				dist[i] = Category{Key: string(rune('A' + i)), Name: string(rune('A' + i)), Value: v}
			}

			shares, err := PercentageShare(dist)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, percents(shares))
			for i, s := range shares {
				assert.Equal(t, dist[i].Key, s.Key)
				assert.Equal(t, dist[i].Value, s.Value)
			}
		})
	}
}

func TestPercentageShare_SumsToHundred(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		dist := make([]Category, 1+rng.Intn(6))
		nonZero := false
		for j := range dist {
			dist[j] = Category{Value: rng.Intn(5000)}
			nonZero = nonZero || dist[j].Value > 0
		}
		if !nonZero {
			continue
		}

		shares, err := PercentageShare(dist)
		require.NoError(t, err)
		assert.Equal(t, 1000, sumTenths(shares), "distribution %v", dist)
		for _, s := range shares {
			assert.GreaterOrEqual(t, s.Percent, 0.0)
			assert.LessOrEqual(t, s.Percent, MaxPercentage)
		}
	}
}

func TestPercentageShare_NegativeValue(t *testing.T) {
	_, err := PercentageShare([]Category{{Name: "P1", Value: 3}, {Name: "P2", Value: -1}})
	assert.ErrorIs(t, err, ErrInvariantViolation)
}

func TestTrendIndicator(t *testing.T) {
	tests := []struct {
		name     string
		current  float64
		previous float64
		expected Trend
	}{
		{"increase", 120, 100, Trend{Direction: TrendUp, MagnitudePercent: 20}},
		{"decrease", 80, 100, Trend{Direction: TrendDown, MagnitudePercent: 20}},
		{"unchanged", 100, 100, Trend{Direction: TrendUp, MagnitudePercent: 0}},
		{"previous zero", 50, 0, Trend{Direction: TrendUp, MagnitudePercent: 0}},
		{"both zero", 0, 0, Trend{Direction: TrendUp, MagnitudePercent: 0}},
		{"rounded to one decimal", 250, 200.5, Trend{Direction: TrendUp, MagnitudePercent: 24.7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trend, err := TrendIndicator(tt.current, tt.previous)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, trend)
		})
	}
}

func TestTrendIndicator_InvalidInput(t *testing.T) {
	for _, in := range [][2]float64{{-1, 10}, {10, -1}, {math.NaN(), 10}, {10, math.Inf(1)}} {
		_, err := TrendIndicator(in[0], in[1])
		assert.ErrorIs(t, err, ErrInvariantViolation, "inputs %v", in)
	}
}

func TestComplianceGap(t *testing.T) {
	tests := []struct {
		name      string
		actual    float64
		target    float64
		polarity  GapPolarity
		delta     float64
		status    GapStatus
		favorable bool
	}{
		{"P1 resolution under target", 0.5, 1, LowerIsBetter, -0.5, UnderTarget, true},
		{"resolution over target", 6, 4, LowerIsBetter, 2, OverTarget, false},
		{"sla above target", 89.2, 85, HigherIsBetter, 4.2, OverTarget, true},
		{"sla below target", 80, 85, HigherIsBetter, -5, UnderTarget, false},
		{"on target", 85, 85, HigherIsBetter, 0, OnTarget, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gap, err := ComplianceGap("metric", tt.actual, tt.target, tt.polarity)
			require.NoError(t, err)
			assert.Equal(t, tt.delta, gap.Delta)
			assert.Equal(t, tt.status, gap.Status)
			assert.Equal(t, tt.favorable, gap.Favorable)
			assert.Equal(t, tt.polarity, gap.Polarity)
		})
	}
}

func TestComplianceGap_InvalidInput(t *testing.T) {
	_, err := ComplianceGap("metric", 1, 1, GapPolarity("sideways"))
	assert.ErrorIs(t, err, ErrInvariantViolation)

	_, err = ComplianceGap("metric", math.NaN(), 1, LowerIsBetter)
	assert.ErrorIs(t, err, ErrInvariantViolation)
}

func TestDerive(t *testing.T) {
	s := validSnapshot()

	d, err := Derive(s, DefaultSLATarget)
	require.NoError(t, err)

	assert.Equal(t, []float64{6.4, 19.2, 51.3, 23.1}, percents(d.PriorityShares))
	assert.Equal(t, 1000, sumTenths(d.StatusShares))

	assert.Equal(t, Trend{Direction: TrendUp, MagnitudePercent: 25}, d.Trends.Incidents)
	assert.Equal(t, Trend{Direction: TrendDown, MagnitudePercent: 16.7}, d.Trends.Resolved)
	assert.Equal(t, Trend{Direction: TrendUp, MagnitudePercent: 0}, d.Trends.ChangeRequests)
	assert.Equal(t, Trend{Direction: TrendUp, MagnitudePercent: 12.5}, d.Trends.SLACompliance)

	assert.Equal(t, 4.2, d.SLAGap.Delta)
	assert.True(t, d.SLAGap.Favorable)

	require.Len(t, d.MonthlySLAGaps, 2)
	assert.Equal(t, "slaCompliance:Sep 26", d.MonthlySLAGaps[0].Metric)
	assert.False(t, d.MonthlySLAGaps[0].Favorable)
	assert.True(t, d.MonthlySLAGaps[1].Favorable)

	require.Len(t, d.ResolutionGaps, 4)
	p1 := d.ResolutionGaps[0]
	assert.Equal(t, "resolutionTime:P1", p1.Metric)
	assert.Equal(t, -0.5, p1.Delta)
	assert.Equal(t, UnderTarget, p1.Status)
	assert.True(t, p1.Favorable)
}

func TestDerive_SinglePoint(t *testing.T) {
	s := validSnapshot()
	s.MonthlyTrends = s.MonthlyTrends[1:]
	s.Window = Window{Start: s.MonthlyTrends[0].MonthStart, Months: 1}

	d, err := Derive(s, DefaultSLATarget)
	require.NoError(t, err)
	assert.Equal(t, Trend{Direction: TrendUp, MagnitudePercent: 0}, d.Trends.Incidents)
}

func TestDerive_RejectsInvalidSnapshot(t *testing.T) {
	s := validSnapshot()
	s.KPIs.OpenIncidents = s.KPIs.TotalIncidents

	_, err := Derive(s, DefaultSLATarget)
	assert.ErrorIs(t, err, ErrInvariantViolation)
}
