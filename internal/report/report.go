// Package report renders dashboards for terminals and scripts.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/fixora/analytics/internal/domain"
)

// Output formats
const (
	TableOut = "table"
	JSONOut  = "json"
)

// Options controls rendering
type Options struct {
	Format    string
	UseColors bool
}

// Write outputs the dashboard, dispatching on the configured format
func Write(w io.Writer, d *domain.Dashboard, opts Options) error {
	switch opts.Format {
	case JSONOut:
		if err := writeJSON(w, d); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
		return nil
	case TableOut, "":
		return writeTables(w, d, opts.UseColors)
	default:
		return fmt.Errorf("unknown output format %q (want %s or %s)", opts.Format, TableOut, JSONOut)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type palette struct {
	good, bad, neutral func(...any) string
}

func newPalette(useColors bool) palette {
	if !useColors {
		return palette{good: fmt.Sprint, bad: fmt.Sprint, neutral: fmt.Sprint}
	}
	return palette{
		good:    color.New(color.FgGreen).SprintFunc(),
		bad:     color.New(color.FgRed).SprintFunc(),
		neutral: color.New(color.FgYellow).SprintFunc(),
	}
}

func writeTables(w io.Writer, d *domain.Dashboard, useColors bool) error {
	p := newPalette(useColors)
	s := d.Snapshot

	if _, err := fmt.Fprintf(w, "Dashboard (%s, source %s) generated %s\n\n",
		d.Range, d.Source, s.GeneratedAt.Format("2006-01-02 15:04:05 MST")); err != nil {
		return err
	}

	kpis := [][]string{
		{"Total incidents", strconv.Itoa(s.KPIs.TotalIncidents), trendCell(p, d.Derived.Trends.Incidents, false)},
		{"Open incidents", strconv.Itoa(s.KPIs.OpenIncidents), ""},
		{"Resolved incidents", strconv.Itoa(s.KPIs.ResolvedIncidents), trendCell(p, d.Derived.Trends.Resolved, true)},
		{"Avg resolution (h)", formatFloat(s.KPIs.AvgResolutionTime), ""},
		{"SLA compliance (%)", formatFloat(s.KPIs.SLACompliance), trendCell(p, d.Derived.Trends.SLACompliance, true)},
		{"User satisfaction", formatFloat(s.KPIs.UserSatisfaction), ""},
		{"Change requests", strconv.Itoa(s.KPIs.ChangeRequests), trendCell(p, d.Derived.Trends.ChangeRequests, false)},
		{"Pending changes", strconv.Itoa(s.KPIs.PendingChanges), ""},
		{"SLA target gap", gapCell(p, d.Derived.SLAGap), ""},
	}
	if err := renderTable(w, []string{"KPI", "Value", "Trend"}, kpis); err != nil {
		return err
	}

	months := make([][]string, 0, len(s.MonthlyTrends))
	for i, pt := range s.MonthlyTrends {
		gap := ""
		if i < len(d.Derived.MonthlySLAGaps) {
			gap = gapCell(p, d.Derived.MonthlySLAGaps[i])
		}
		months = append(months, []string{
			pt.Month,
			strconv.Itoa(pt.Incidents),
			strconv.Itoa(pt.Resolved),
			strconv.Itoa(pt.ChangeRequests),
			formatFloat(pt.SLACompliance),
			gap,
		})
	}
	if err := renderTable(w, []string{"Month", "Incidents", "Resolved", "Changes", "SLA %", "vs Target"}, months); err != nil {
		return err
	}

	if err := renderTable(w, []string{"Priority", "Count", "Share %"}, shareRows(d.Derived.PriorityShares)); err != nil {
		return err
	}
	if err := renderTable(w, []string{"Status", "Count", "Share %"}, shareRows(d.Derived.StatusShares)); err != nil {
		return err
	}

	resolution := make([][]string, 0, len(s.ResolutionTimes))
	for i, rt := range s.ResolutionTimes {
		gap := ""
		if i < len(d.Derived.ResolutionGaps) {
			gap = gapCell(p, d.Derived.ResolutionGaps[i])
		}
		resolution = append(resolution, []string{
			rt.Category,
			formatFloat(rt.AvgTime),
			formatFloat(rt.TargetTime),
			gap,
		})
	}
	return renderTable(w, []string{"Category", "Avg (h)", "Target (h)", "Gap"}, resolution)
}

func renderTable(w io.Writer, headers []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}

func shareRows(shares []domain.CategoryShare) [][]string {
	rows := make([][]string, 0, len(shares))
	for _, s := range shares {
		rows = append(rows, []string{s.Name, strconv.Itoa(s.Value), formatFloat(s.Percent)})
	}
	return rows
}

// trendCell shows the arrow and magnitude. upIsGood says which direction
// is an improvement for the KPI.
func trendCell(p palette, t domain.Trend, upIsGood bool) string {
	arrow := "▲"
	if t.Direction == domain.TrendDown {
		arrow = "▼"
	}
	text := fmt.Sprintf("%s %s%%", arrow, formatFloat(t.MagnitudePercent))
	switch {
	case t.MagnitudePercent == 0:
		return p.neutral(text)
	case (t.Direction == domain.TrendUp) == upIsGood:
		return p.good(text)
	default:
		return p.bad(text)
	}
}

func gapCell(p palette, g domain.Gap) string {
	text := formatFloat(g.Delta)
	if g.Delta > 0 {
		text = "+" + text
	}
	switch {
	case g.Status == domain.OnTarget:
		return p.neutral(text)
	case g.Favorable:
		return p.good(text)
	default:
		return p.bad(text)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
