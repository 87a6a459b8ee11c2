package domain

import (
	"math"
	"sort"
)

// TrendDirection is the arrow shown next to a KPI
type TrendDirection string

const (
	TrendUp   TrendDirection = "up"
	TrendDown TrendDirection = "down"
)

// Trend is the month-over-month movement of a value
type Trend struct {
	Direction        TrendDirection `json:"direction"`
	MagnitudePercent float64        `json:"magnitudePercent"`
}

// CategoryShare is a category together with its share of the distribution
type CategoryShare struct {
	Key     string  `json:"key"`
	Name    string  `json:"name"`
	Value   int     `json:"value"`
	Percent float64 `json:"percent"`
	Color   string  `json:"color"`
}

// GapPolarity says which side of the target is good for a metric
type GapPolarity string

const (
	LowerIsBetter  GapPolarity = "lower_is_better"
	HigherIsBetter GapPolarity = "higher_is_better"
)

// GapStatus labels where the actual value sits relative to its target
type GapStatus string

const (
	OverTarget  GapStatus = "over_target"
	UnderTarget GapStatus = "under_target"
	OnTarget    GapStatus = "on_target"
)

// Gap is the signed distance between an actual value and its target.
// Delta > 0 means the actual value is above target; whether that is good is
// given by Polarity and Favorable, never by the sign alone.
type Gap struct {
	Metric    string      `json:"metric"`
	Actual    float64     `json:"actual"`
	Target    float64     `json:"target"`
	Delta     float64     `json:"delta"`
	Polarity  GapPolarity `json:"polarity"`
	Status    GapStatus   `json:"status"`
	Favorable bool        `json:"favorable"`
}

// KPITrends holds the month-over-month trend of each charted KPI
type KPITrends struct {
	Incidents      Trend `json:"incidents"`
	Resolved       Trend `json:"resolved"`
	ChangeRequests Trend `json:"changeRequests"`
	SLACompliance  Trend `json:"slaCompliance"`
}

// DerivedMetrics are the values computed from a snapshot rather than stored
// in it.
type DerivedMetrics struct {
	PriorityShares []CategoryShare `json:"priorityShares"`
	StatusShares   []CategoryShare `json:"statusShares"`
	Trends         KPITrends       `json:"trends"`
	SLAGap         Gap             `json:"slaGap"`
	MonthlySLAGaps []Gap           `json:"monthlySlaGaps"`
	ResolutionGaps []Gap           `json:"resolutionGaps"`
}

// PercentageShare computes each category's share of the distribution total,
// rounded to one decimal place. Rounding uses the largest-remainder method
// so that the shares of a non-empty distribution add up to exactly 100.0.
// When every value is zero, every share is zero.
func PercentageShare(dist []Category) ([]CategoryShare, error) {
	total := 0
	for _, c := range dist {
		if c.Value < 0 {
			return nil, InvariantViolation("category %q has negative value %d", c.Name, c.Value)
		}
		total += c.Value
	}

	shares := make([]CategoryShare, len(dist))
	for i, c := range dist {
		shares[i] = CategoryShare{Key: c.Key, Name: c.Name, Value: c.Value, Color: c.Color}
	}
	if total == 0 {
		return shares, nil
	}

	// Work in tenths of a percent: 1000 units make up the whole.
	const whole = 1000
	tenths := make([]int, len(dist))
	remainders := make([]int, len(dist))
	assigned := 0
	for i, c := range dist {
		tenths[i] = c.Value * whole / total
		remainders[i] = c.Value * whole % total
		assigned += tenths[i]
	}

	order := make([]int, len(dist))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]] > remainders[order[b]]
	})
	for k := 0; k < whole-assigned; k++ {
		tenths[order[k]]++
	}

	for i := range shares {
		shares[i].Percent = float64(tenths[i]) / 10
	}
	return shares, nil
}

// TrendIndicator compares a value with its previous value. A zero previous
// value has no meaningful ratio and is reported as up by 0%.
func TrendIndicator(current, previous float64) (Trend, error) {
	if !finite(current) || !finite(previous) || current < 0 || previous < 0 {
		return Trend{}, InvariantViolation("trend inputs must be non-negative numbers (current=%v, previous=%v)", current, previous)
	}
	if previous == 0 {
		return Trend{Direction: TrendUp, MagnitudePercent: 0}, nil
	}

	direction := TrendUp
	if current < previous {
		direction = TrendDown
	}
	return Trend{
		Direction:        direction,
		MagnitudePercent: roundTo(math.Abs(current-previous)/previous*100, 1),
	}, nil
}

// ComplianceGap measures actual against target for the named metric.
func ComplianceGap(metric string, actual, target float64, polarity GapPolarity) (Gap, error) {
	if polarity != LowerIsBetter && polarity != HigherIsBetter {
		return Gap{}, InvariantViolation("unknown gap polarity %q for %s", polarity, metric)
	}
	if !finite(actual) || !finite(target) || actual < 0 || target < 0 {
		return Gap{}, InvariantViolation("%s gap inputs must be non-negative numbers (actual=%v, target=%v)", metric, actual, target)
	}

	delta := roundTo(actual-target, 2)
	gap := Gap{
		Metric:   metric,
		Actual:   actual,
		Target:   target,
		Delta:    delta,
		Polarity: polarity,
	}
	switch {
	case delta > 0:
		gap.Status = OverTarget
	case delta < 0:
		gap.Status = UnderTarget
	default:
		gap.Status = OnTarget
	}
	if polarity == LowerIsBetter {
		gap.Favorable = delta <= 0
	} else {
		gap.Favorable = delta >= 0
	}
	return gap, nil
}

// Derive computes every derived metric of a snapshot against the given SLA
// compliance target.
func Derive(s *MetricsSnapshot, slaTarget float64) (DerivedMetrics, error) {
	if err := s.Validate(); err != nil {
		return DerivedMetrics{}, err
	}

	var d DerivedMetrics
	var err error
	if d.PriorityShares, err = PercentageShare(s.PriorityDistribution); err != nil {
		return DerivedMetrics{}, err
	}
	if d.StatusShares, err = PercentageShare(s.StatusDistribution); err != nil {
		return DerivedMetrics{}, err
	}
	if d.Trends, err = monthOverMonth(s.MonthlyTrends); err != nil {
		return DerivedMetrics{}, err
	}
	if d.SLAGap, err = ComplianceGap("slaCompliance", s.KPIs.SLACompliance, slaTarget, HigherIsBetter); err != nil {
		return DerivedMetrics{}, err
	}

	d.MonthlySLAGaps = make([]Gap, 0, len(s.MonthlyTrends))
	for _, p := range s.MonthlyTrends {
		gap, err := ComplianceGap("slaCompliance:"+p.Month, p.SLACompliance, slaTarget, HigherIsBetter)
		if err != nil {
			return DerivedMetrics{}, err
		}
		d.MonthlySLAGaps = append(d.MonthlySLAGaps, gap)
	}

	d.ResolutionGaps = make([]Gap, 0, len(s.ResolutionTimes))
	for _, rt := range s.ResolutionTimes {
		gap, err := ComplianceGap("resolutionTime:"+rt.Category, rt.AvgTime, rt.TargetTime, LowerIsBetter)
		if err != nil {
			return DerivedMetrics{}, err
		}
		d.ResolutionGaps = append(d.ResolutionGaps, gap)
	}
	return d, nil
}

// monthOverMonth compares the last two points of the series. With fewer
// than two points the previous value is taken as zero.
func monthOverMonth(points []MonthlyPoint) (KPITrends, error) {
	var cur, prev MonthlyPoint
	if n := len(points); n > 0 {
		cur = points[n-1]
		if n > 1 {
			prev = points[n-2]
		}
	}

	var t KPITrends
	var err error
	if t.Incidents, err = TrendIndicator(float64(cur.Incidents), float64(prev.Incidents)); err != nil {
		return KPITrends{}, err
	}
	if t.Resolved, err = TrendIndicator(float64(cur.Resolved), float64(prev.Resolved)); err != nil {
		return KPITrends{}, err
	}
	if t.ChangeRequests, err = TrendIndicator(float64(cur.ChangeRequests), float64(prev.ChangeRequests)); err != nil {
		return KPITrends{}, err
	}
	if t.SLACompliance, err = TrendIndicator(cur.SLACompliance, prev.SLACompliance); err != nil {
		return KPITrends{}, err
	}
	return t, nil
}

func roundTo(v float64, places int) float64 {
	factor := math.Pow10(places)
	return math.Round(v*factor) / factor
}
