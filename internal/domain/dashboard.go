package domain

// Dashboard is a snapshot enriched with its derived metrics, the structure
// handed to presentation.
type Dashboard struct {
	Snapshot  *MetricsSnapshot `json:"snapshot"`
	Derived   DerivedMetrics   `json:"derived"`
	Selection *Selection       `json:"selection,omitempty"`
	Range     string           `json:"range"`
	Source    string           `json:"source"`
	Sequence  uint64           `json:"sequence,omitempty"`
}

// Selection carries the shares of the categories picked by the priority and
// status filters.
type Selection struct {
	Priority *CategoryShare `json:"priority,omitempty"`
	Status   *CategoryShare `json:"status,omitempty"`
}

// NewDashboard validates and enriches a snapshot
func NewDashboard(s *MetricsSnapshot, spec WindowSpec, source string, slaTarget float64) (*Dashboard, error) {
	derived, err := Derive(s, slaTarget)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		Snapshot: s,
		Derived:  derived,
		Range:    spec.String(),
		Source:   source,
	}, nil
}

// Clone returns a deep copy of the dashboard
func (d *Dashboard) Clone() *Dashboard {
	if d == nil {
		return nil
	}
	out := *d
	out.Snapshot = d.Snapshot.Clone()
	out.Derived.PriorityShares = append([]CategoryShare(nil), d.Derived.PriorityShares...)
	out.Derived.StatusShares = append([]CategoryShare(nil), d.Derived.StatusShares...)
	out.Derived.MonthlySLAGaps = append([]Gap(nil), d.Derived.MonthlySLAGaps...)
	out.Derived.ResolutionGaps = append([]Gap(nil), d.Derived.ResolutionGaps...)
	if d.Selection != nil {
		sel := *d.Selection
		out.Selection = &sel
	}
	return &out
}

// Select returns a copy of the dashboard with the selection set to the
// given priority and status. Empty or "all" leaves that filter unset.
func (d *Dashboard) Select(priority, status string) (*Dashboard, error) {
	out := d.Clone()
	out.Selection = nil

	sel := &Selection{}
	if priority != "" && priority != "all" {
		p, ok := ParsePriority(priority)
		if !ok {
			return nil, NewDomainError(KindInvalidFilter, "unknown priority filter "+priority)
		}
		sel.Priority = findShare(out.Derived.PriorityShares, string(p))
	}
	if status != "" && status != "all" {
		s, ok := ParseStatus(status)
		if !ok {
			return nil, NewDomainError(KindInvalidFilter, "unknown status filter "+status)
		}
		sel.Status = findShare(out.Derived.StatusShares, string(s))
	}
	if sel.Priority != nil || sel.Status != nil {
		out.Selection = sel
	}
	return out, nil
}

func findShare(shares []CategoryShare, key string) *CategoryShare {
	for i := range shares {
		if shares[i].Key == key {
			share := shares[i]
			return &share
		}
	}
	return nil
}
