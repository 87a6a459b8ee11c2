package domain

import (
	"math"
	"time"
)

// KPIs is the scalar summary block of a snapshot
type KPIs struct {
	TotalIncidents    int     `json:"totalIncidents"`
	OpenIncidents     int     `json:"openIncidents"`
	ResolvedIncidents int     `json:"resolvedIncidents"`
	AvgResolutionTime float64 `json:"avgResolutionTime"`
	SLACompliance     float64 `json:"slaCompliance"`
	UserSatisfaction  float64 `json:"userSatisfaction"`
	ChangeRequests    int     `json:"changeRequests"`
	PendingChanges    int     `json:"pendingChanges"`
}

// MonthlyPoint is one month of the trend series
type MonthlyPoint struct {
	Month          string    `json:"month"`
	MonthStart     time.Time `json:"monthStart"`
	Incidents      int       `json:"incidents"`
	Resolved       int       `json:"resolved"`
	ChangeRequests int       `json:"changeRequests"`
	SLACompliance  float64   `json:"slaCompliance"`
}

// Category is one bucket of a closed distribution. Key is the stored
// enumeration value; Name is the display label.
type Category struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Value int    `json:"value"`
	Color string `json:"color"`
}

// ResolutionComparison pairs the actual and target resolution time of a
// severity bucket, both in hours.
type ResolutionComparison struct {
	Category   string  `json:"category"`
	AvgTime    float64 `json:"avgTime"`
	TargetTime float64 `json:"target"`
}

// MetricsSnapshot is one complete, self-contained set of dashboard metrics.
// Snapshots are never merged: a refresh replaces the previous one.
type MetricsSnapshot struct {
	KPIs                 KPIs                   `json:"kpis"`
	MonthlyTrends        []MonthlyPoint         `json:"monthlyTrends"`
	PriorityDistribution []Category             `json:"priorityDistribution"`
	StatusDistribution   []Category             `json:"statusDistribution"`
	ResolutionTimes      []ResolutionComparison `json:"resolutionTimes"`
	Window               Window                 `json:"window"`
	GeneratedAt          time.Time              `json:"generatedAt"`
}

// Clone returns a deep copy sharing no mutable state with s
func (s *MetricsSnapshot) Clone() *MetricsSnapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.MonthlyTrends = append([]MonthlyPoint(nil), s.MonthlyTrends...)
	out.PriorityDistribution = append([]Category(nil), s.PriorityDistribution...)
	out.StatusDistribution = append([]Category(nil), s.StatusDistribution...)
	out.ResolutionTimes = append([]ResolutionComparison(nil), s.ResolutionTimes...)
	return &out
}

// Validate checks every snapshot invariant and returns an
// InvariantViolation describing the first one broken.
func (s *MetricsSnapshot) Validate() error {
	if s == nil {
		return InvariantViolation("snapshot is nil")
	}
	if err := s.KPIs.Validate(); err != nil {
		return err
	}
	if err := validateTrends(s.MonthlyTrends, s.Window); err != nil {
		return err
	}
	if err := validatePriorityDistribution(s.PriorityDistribution); err != nil {
		return err
	}
	if err := validateStatusDistribution(s.StatusDistribution); err != nil {
		return err
	}
	return validateResolutionTimes(s.ResolutionTimes)
}

// Validate checks the KPI block. Open and resolved incidents together may
// not exceed the total.
func (k KPIs) Validate() error {
	counts := []struct {
		name  string
		value int
	}{
		{"totalIncidents", k.TotalIncidents},
		{"openIncidents", k.OpenIncidents},
		{"resolvedIncidents", k.ResolvedIncidents},
		{"changeRequests", k.ChangeRequests},
		{"pendingChanges", k.PendingChanges},
	}
	for _, c := range counts {
		if c.value < 0 {
			return InvariantViolation("kpis.%s is negative (%d)", c.name, c.value)
		}
	}
	if k.OpenIncidents+k.ResolvedIncidents > k.TotalIncidents {
		return InvariantViolation("open (%d) + resolved (%d) incidents exceed total (%d)",
			k.OpenIncidents, k.ResolvedIncidents, k.TotalIncidents)
	}
	if k.PendingChanges > k.ChangeRequests {
		return InvariantViolation("pending changes (%d) exceed change requests (%d)", k.PendingChanges, k.ChangeRequests)
	}
	if !finite(k.AvgResolutionTime) || k.AvgResolutionTime < 0 {
		return InvariantViolation("kpis.avgResolutionTime %v is not a non-negative number", k.AvgResolutionTime)
	}
	if !inRange(k.SLACompliance, 0, MaxPercentage) {
		return InvariantViolation("kpis.slaCompliance %v outside [0, 100]", k.SLACompliance)
	}
	if !inRange(k.UserSatisfaction, 0, MaxSatisfaction) {
		return InvariantViolation("kpis.userSatisfaction %v outside [0, 5]", k.UserSatisfaction)
	}
	return nil
}

func validateTrends(points []MonthlyPoint, w Window) error {
	if w.Months > 0 && len(points) != w.Months {
		return InvariantViolation("monthlyTrends has %d points, window has %d months", len(points), w.Months)
	}
	for i, p := range points {
		if p.Incidents < 0 || p.Resolved < 0 || p.ChangeRequests < 0 {
			return InvariantViolation("monthlyTrends[%d] (%s) has a negative count", i, p.Month)
		}
		if !inRange(p.SLACompliance, 0, MaxPercentage) {
			return InvariantViolation("monthlyTrends[%d] (%s) slaCompliance %v outside [0, 100]", i, p.Month, p.SLACompliance)
		}
		if i > 0 && !p.MonthStart.After(points[i-1].MonthStart) {
			return InvariantViolation("monthlyTrends not ascending at %s", p.Month)
		}
	}
	return nil
}

func validatePriorityDistribution(dist []Category) error {
	if len(dist) != len(priorityCatalog) {
		return InvariantViolation("priorityDistribution has %d categories, want %d", len(dist), len(priorityCatalog))
	}
	for i, def := range priorityCatalog {
		if dist[i].Key != string(def.Priority) {
			return InvariantViolation("priorityDistribution[%d] is %q, want %q", i, dist[i].Key, def.Priority)
		}
	}
	return validateCounts("priorityDistribution", dist)
}

func validateStatusDistribution(dist []Category) error {
	if len(dist) != len(statusCatalog) {
		return InvariantViolation("statusDistribution has %d categories, want %d", len(dist), len(statusCatalog))
	}
	for i, def := range statusCatalog {
		if dist[i].Key != string(def.Status) {
			return InvariantViolation("statusDistribution[%d] is %q, want %q", i, dist[i].Key, def.Status)
		}
	}
	return validateCounts("statusDistribution", dist)
}

func validateCounts(name string, dist []Category) error {
	for _, c := range dist {
		if c.Value < 0 {
			return InvariantViolation("%s %q has negative value %d", name, c.Name, c.Value)
		}
	}
	return nil
}

func validateResolutionTimes(rts []ResolutionComparison) error {
	if len(rts) != len(priorityCatalog) {
		return InvariantViolation("resolutionTimes has %d entries, want %d", len(rts), len(priorityCatalog))
	}
	for i, def := range priorityCatalog {
		rt := rts[i]
		if rt.Category != def.Code {
			return InvariantViolation("resolutionTimes[%d] is %q, want %q", i, rt.Category, def.Code)
		}
		if !finite(rt.AvgTime) || rt.AvgTime < 0 || !finite(rt.TargetTime) || rt.TargetTime < 0 {
			return InvariantViolation("resolutionTimes %s has a negative or non-finite time", rt.Category)
		}
	}
	return nil
}

// PriorityDistributionFrom builds the closed priority distribution from
// per-priority counts; missing priorities count as zero.
func PriorityDistributionFrom(counts map[IncidentPriority]int) []Category {
	dist := make([]Category, 0, len(priorityCatalog))
	for _, def := range priorityCatalog {
		dist = append(dist, Category{
			Key:   string(def.Priority),
			Name:  def.Label,
			Value: counts[def.Priority],
			Color: def.Color,
		})
	}
	return dist
}

// StatusDistributionFrom builds the closed status distribution from
// per-status counts; missing statuses count as zero.
func StatusDistributionFrom(counts map[IncidentStatus]int) []Category {
	dist := make([]Category, 0, len(statusCatalog))
	for _, def := range statusCatalog {
		dist = append(dist, Category{
			Key:   string(def.Status),
			Name:  def.Label,
			Value: counts[def.Status],
			Color: def.Color,
		})
	}
	return dist
}

// ResolutionTimesFrom pairs per-priority average hours with the catalog
// targets; missing priorities report zero hours.
func ResolutionTimesFrom(avgHours map[IncidentPriority]float64) []ResolutionComparison {
	rts := make([]ResolutionComparison, 0, len(priorityCatalog))
	for _, def := range priorityCatalog {
		rts = append(rts, ResolutionComparison{
			Category:   def.Code,
			AvgTime:    avgHours[def.Priority],
			TargetTime: def.TargetHours,
		})
	}
	return rts
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func inRange(v, lo, hi float64) bool {
	return finite(v) && v >= lo && v <= hi
}
