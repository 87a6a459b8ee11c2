package domain

import (
	"strings"
	"time"
)

// RangeToken names a trailing reporting window ending at the current month.
type RangeToken string

const (
	Range1M  RangeToken = "1m"
	Range3M  RangeToken = "3m"
	Range6M  RangeToken = "6m"
	Range12M RangeToken = "12m"

	DefaultRange = Range12M
)

const (
	// MaxWindowMonths is the longest window a snapshot can cover.
	MaxWindowMonths = 12

	// MonthLayout is the wire format of explicit window bounds.
	MonthLayout = "2006-01"

	monthLabelLayout = "Jan 06"
)

var rangeMonths = map[RangeToken]int{
	Range1M:  1,
	Range3M:  3,
	Range6M:  6,
	Range12M: 12,
}

// WindowSpec is a requested reporting window: either a trailing range token
// or an explicit inclusive month range. It is anchor-independent; Resolve
// turns it into concrete months.
type WindowSpec struct {
	Range RangeToken `json:"range,omitempty"`
	From  time.Time  `json:"from,omitempty"`
	To    time.Time  `json:"to,omitempty"`
}

// Window is a resolved span of whole calendar months.
type Window struct {
	Start  time.Time `json:"start"`
	Months int       `json:"months"`
}

// DefaultWindowSpec returns the 12 month trailing window
func DefaultWindowSpec() WindowSpec {
	return WindowSpec{Range: DefaultRange}
}

// ParseWindowSpec builds a spec from raw request parameters. An empty
// request yields the default range.
func ParseWindowSpec(rangeToken, from, to string) (WindowSpec, error) {
	rangeToken = strings.TrimSpace(strings.ToLower(rangeToken))
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)

	if from == "" && to == "" {
		if rangeToken == "" {
			return DefaultWindowSpec(), nil
		}
		spec := WindowSpec{Range: RangeToken(rangeToken)}
		return spec, spec.Validate()
	}

	if rangeToken != "" {
		return WindowSpec{}, InvalidWindow("range %q cannot be combined with from/to", rangeToken)
	}
	if from == "" || to == "" {
		return WindowSpec{}, InvalidWindow("both from and to are required")
	}

	fromMonth, err := time.Parse(MonthLayout, from)
	if err != nil {
		return WindowSpec{}, InvalidWindow("from %q is not a YYYY-MM month", from)
	}
	toMonth, err := time.Parse(MonthLayout, to)
	if err != nil {
		return WindowSpec{}, InvalidWindow("to %q is not a YYYY-MM month", to)
	}

	spec := WindowSpec{From: fromMonth, To: toMonth}
	return spec, spec.Validate()
}

// IsExplicit reports whether the spec names explicit month bounds
func (s WindowSpec) IsExplicit() bool {
	return !s.From.IsZero() || !s.To.IsZero()
}

// Validate checks the spec without resolving it against a clock
func (s WindowSpec) Validate() error {
	if !s.IsExplicit() {
		if _, ok := rangeMonths[s.Range]; !ok {
			return InvalidWindow("unknown range %q (want 1m, 3m, 6m or 12m)", s.Range)
		}
		return nil
	}

	if s.Range != "" {
		return InvalidWindow("range %q cannot be combined with from/to", s.Range)
	}
	if s.From.IsZero() || s.To.IsZero() {
		return InvalidWindow("both from and to are required")
	}
	months := monthsBetween(s.From, s.To)
	if months < 1 {
		return InvalidWindow("window is empty: %s is after %s", s.From.Format(MonthLayout), s.To.Format(MonthLayout))
	}
	if months > MaxWindowMonths {
		return InvalidWindow("window spans %d months, at most %d allowed", months, MaxWindowMonths)
	}
	return nil
}

// Resolve anchors the spec to the month containing now.
func (s WindowSpec) Resolve(now time.Time) (Window, error) {
	if err := s.Validate(); err != nil {
		return Window{}, err
	}

	anchor := startOfMonth(now)
	if !s.IsExplicit() {
		months := rangeMonths[s.Range]
		return Window{
			Start:  anchor.AddDate(0, -(months - 1), 0),
			Months: months,
		}, nil
	}

	loc := now.Location()
	from := time.Date(s.From.Year(), s.From.Month(), 1, 0, 0, 0, 0, loc)
	to := time.Date(s.To.Year(), s.To.Month(), 1, 0, 0, 0, 0, loc)
	if to.After(anchor) {
		return Window{}, InvalidWindow("window ends in %s, after the current month %s", to.Format(MonthLayout), anchor.Format(MonthLayout))
	}
	return Window{Start: from, Months: monthsBetween(from, to)}, nil
}

// String renders the spec the way it would be requested
func (s WindowSpec) String() string {
	if s.IsExplicit() {
		return s.From.Format(MonthLayout) + ".." + s.To.Format(MonthLayout)
	}
	return string(s.Range)
}

// MonthStarts returns the first instant of every month in the window,
// oldest first.
func (w Window) MonthStarts() []time.Time {
	starts := make([]time.Time, w.Months)
	for i := range starts {
		starts[i] = w.Start.AddDate(0, i, 0)
	}
	return starts
}

// End returns the exclusive upper bound of the window
func (w Window) End() time.Time {
	return w.Start.AddDate(0, w.Months, 0)
}

// MonthLabel formats a month the way the trend charts label their x axis
func MonthLabel(t time.Time) string {
	return t.Format(monthLabelLayout)
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func monthsBetween(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month()) + 1
}
