package domain

// Bounds shared by snapshot validation and the calculators.
const (
	MaxPercentage   = 100.0
	MaxSatisfaction = 5.0

	// DefaultSLATarget is the compliance target drawn as the reference line
	// on the SLA trend chart.
	DefaultSLATarget = 85.0
)

// PriorityDef describes one severity bucket of the closed priority catalog.
// Color is a display token only.
type PriorityDef struct {
	Priority    IncidentPriority
	Code        string
	Label       string
	Color       string
	TargetHours float64
}

// StatusDef describes one lifecycle bucket of the closed status catalog.
type StatusDef struct {
	Status IncidentStatus
	Label  string
	Color  string
}

var priorityCatalog = [...]PriorityDef{
	{Priority: PriorityCritical, Code: "P1", Label: "P1 - Critical", Color: "#ef4444", TargetHours: 1},
	{Priority: PriorityHigh, Code: "P2", Label: "P2 - High", Color: "#f97316", TargetHours: 4},
	{Priority: PriorityMedium, Code: "P3", Label: "P3 - Medium", Color: "#eab308", TargetHours: 8},
	{Priority: PriorityLow, Code: "P4", Label: "P4 - Low", Color: "#22c55e", TargetHours: 24},
}

var statusCatalog = [...]StatusDef{
	{Status: StatusOpen, Label: "Open", Color: "#3b82f6"},
	{Status: StatusInProgress, Label: "In Progress", Color: "#8b5cf6"},
	{Status: StatusResolved, Label: "Resolved", Color: "#22c55e"},
	{Status: StatusClosed, Label: "Closed", Color: "#6b7280"},
}

// PriorityCatalog returns the four severity buckets, most severe first.
func PriorityCatalog() []PriorityDef {
	out := make([]PriorityDef, len(priorityCatalog))
	copy(out, priorityCatalog[:])
	return out
}

// PriorityDefinition looks up a priority in the catalog
func PriorityDefinition(p IncidentPriority) (PriorityDef, bool) {
	for _, def := range priorityCatalog {
		if def.Priority == p {
			return def, true
		}
	}
	return PriorityDef{}, false
}

// ParsePriority accepts either the stored value ("CRITICAL") or the short
// code ("P1"), case-sensitively.
func ParsePriority(s string) (IncidentPriority, bool) {
	for _, def := range priorityCatalog {
		if string(def.Priority) == s || def.Code == s {
			return def.Priority, true
		}
	}
	return "", false
}

// ParseStatus accepts a stored status value ("IN_PROGRESS")
func ParseStatus(s string) (IncidentStatus, bool) {
	for _, def := range statusCatalog {
		if string(def.Status) == s {
			return def.Status, true
		}
	}
	return "", false
}
