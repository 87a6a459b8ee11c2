package persistence

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"github.com/fixora/analytics/internal/domain"
	"github.com/fixora/analytics/internal/ports"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies the embedded schema files in name order. Every statement
// is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	files, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}

	for _, name := range files {
		schema, err := migrationsFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(schema)); err != nil {
			return fmt.Errorf("failed to apply %s: %w", name, err)
		}
	}
	return nil
}

// PostgresMetricsRepository implements MetricsRepository using PostgreSQL
type PostgresMetricsRepository struct {
	db *sql.DB
}

// NewPostgresMetricsRepository creates a new PostgreSQL metrics repository
func NewPostgresMetricsRepository(db *sql.DB) ports.MetricsRepository {
	return &PostgresMetricsRepository{db: db}
}

// resolutionHours is the resolution time of a row in hours
const resolutionHours = `(EXTRACT(EPOCH FROM (resolved_at - opened_at)) / 3600.0)::float8`

// targetHours maps a row's priority to its resolution target
var targetHours = func() string {
	var b strings.Builder
	b.WriteString("(CASE priority")
	for _, def := range domain.PriorityCatalog() {
		fmt.Fprintf(&b, " WHEN '%s' THEN %g", def.Priority, def.TargetHours)
	}
	b.WriteString(" END)")
	return b.String()
}()

// IncidentTotals aggregates incidents opened in the window
func (r *PostgresMetricsRepository) IncidentTotals(ctx context.Context, window domain.Window) (ports.IncidentTotals, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status IN ('OPEN', 'IN_PROGRESS')),
			COUNT(*) FILTER (WHERE status IN ('RESOLVED', 'CLOSED')),
			COALESCE(AVG(` + resolutionHours + `) FILTER (WHERE resolved_at IS NOT NULL), 0)::float8,
			COUNT(*) FILTER (WHERE resolved_at IS NOT NULL),
			COUNT(*) FILTER (WHERE resolved_at IS NOT NULL AND ` + resolutionHours + ` <= ` + targetHours + `),
			COALESCE(AVG(satisfaction), 0)::float8
		FROM incidents
		WHERE opened_at >= $1 AND opened_at < $2
	`

	var t ports.IncidentTotals
	err := r.db.QueryRowContext(ctx, query, window.Start, window.End()).Scan(
		&t.Total,
		&t.Open,
		&t.Resolved,
		&t.AvgResolutionHours,
		&t.Measured,
		&t.WithinTarget,
		&t.AvgSatisfaction,
	)
	if err != nil {
		return ports.IncidentTotals{}, fmt.Errorf("failed to aggregate incidents: %w", err)
	}
	return t, nil
}

// ChangeTotals aggregates change requests created in the window
func (r *PostgresMetricsRepository) ChangeTotals(ctx context.Context, window domain.Window) (ports.ChangeTotals, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'PENDING')
		FROM change_requests
		WHERE created_at >= $1 AND created_at < $2
	`

	var t ports.ChangeTotals
	if err := r.db.QueryRowContext(ctx, query, window.Start, window.End()).Scan(&t.Total, &t.Pending); err != nil {
		return ports.ChangeTotals{}, fmt.Errorf("failed to aggregate change requests: %w", err)
	}
	return t, nil
}

// MonthlyActivity queries each month of the window separately so that month
// boundaries follow the window's time zone rather than the session's.
func (r *PostgresMetricsRepository) MonthlyActivity(ctx context.Context, window domain.Window) ([]ports.MonthActivity, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM incidents WHERE opened_at >= $1 AND opened_at < $2),
			(SELECT COUNT(*) FROM incidents WHERE resolved_at >= $1 AND resolved_at < $2),
			(SELECT COUNT(*) FROM change_requests WHERE created_at >= $1 AND created_at < $2),
			(SELECT COUNT(*) FROM incidents WHERE resolved_at >= $1 AND resolved_at < $2
				AND ` + resolutionHours + ` <= ` + targetHours + `)
	`

	activity := make([]ports.MonthActivity, 0, window.Months)
	for _, start := range window.MonthStarts() {
		m := ports.MonthActivity{MonthStart: start}
		err := r.db.QueryRowContext(ctx, query, start, start.AddDate(0, 1, 0)).Scan(
			&m.Opened,
			&m.Resolved,
			&m.ChangeRequests,
			&m.WithinTarget,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to query activity for %s: %w", start.Format(domain.MonthLayout), err)
		}
		m.Measured = m.Resolved
		activity = append(activity, m)
	}
	return activity, nil
}

// PriorityCounts counts incidents opened in the window per priority
func (r *PostgresMetricsRepository) PriorityCounts(ctx context.Context, window domain.Window) (map[domain.IncidentPriority]int, error) {
	query := `
		SELECT priority, COUNT(*)
		FROM incidents
		WHERE opened_at >= $1 AND opened_at < $2
		GROUP BY priority
	`

	rows, err := r.db.QueryContext(ctx, query, window.Start, window.End())
	if err != nil {
		return nil, fmt.Errorf("failed to count incidents by priority: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.IncidentPriority]int)
	for rows.Next() {
		var priority string
		var count int
		if err := rows.Scan(&priority, &count); err != nil {
			return nil, fmt.Errorf("failed to scan priority count: %w", err)
		}
		counts[domain.IncidentPriority(priority)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate priority counts: %w", err)
	}
	return counts, nil
}

// StatusCounts counts incidents opened in the window per current status
func (r *PostgresMetricsRepository) StatusCounts(ctx context.Context, window domain.Window) (map[domain.IncidentStatus]int, error) {
	query := `
		SELECT status, COUNT(*)
		FROM incidents
		WHERE opened_at >= $1 AND opened_at < $2
		GROUP BY status
	`

	rows, err := r.db.QueryContext(ctx, query, window.Start, window.End())
	if err != nil {
		return nil, fmt.Errorf("failed to count incidents by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.IncidentStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[domain.IncidentStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status counts: %w", err)
	}
	return counts, nil
}

// ResolutionHoursByPriority averages resolution hours per priority for
// incidents opened in the window that have been resolved
func (r *PostgresMetricsRepository) ResolutionHoursByPriority(ctx context.Context, window domain.Window) (map[domain.IncidentPriority]float64, error) {
	query := `
		SELECT priority, AVG(` + resolutionHours + `)::float8
		FROM incidents
		WHERE opened_at >= $1 AND opened_at < $2 AND resolved_at IS NOT NULL
		GROUP BY priority
	`

	rows, err := r.db.QueryContext(ctx, query, window.Start, window.End())
	if err != nil {
		return nil, fmt.Errorf("failed to average resolution hours: %w", err)
	}
	defer rows.Close()

	hours := make(map[domain.IncidentPriority]float64)
	for rows.Next() {
		var priority string
		var avg float64
		if err := rows.Scan(&priority, &avg); err != nil {
			return nil, fmt.Errorf("failed to scan resolution hours: %w", err)
		}
		hours[domain.IncidentPriority(priority)] = avg
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate resolution hours: %w", err)
	}
	return hours, nil
}

// SaveIncident inserts or updates an incident
func (r *PostgresMetricsRepository) SaveIncident(ctx context.Context, incident *domain.Incident) error {
	query := `
		INSERT INTO incidents (id, title, priority, status, opened_at, resolved_at, satisfaction)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			priority = EXCLUDED.priority,
			status = EXCLUDED.status,
			opened_at = EXCLUDED.opened_at,
			resolved_at = EXCLUDED.resolved_at,
			satisfaction = EXCLUDED.satisfaction
	`

	_, err := r.db.ExecContext(ctx, query,
		incident.ID,
		incident.Title,
		string(incident.Priority),
		string(incident.Status),
		incident.OpenedAt,
		incident.ResolvedAt,
		incident.Satisfaction,
	)
	if err != nil {
		return fmt.Errorf("failed to save incident: %w", err)
	}
	return nil
}

// SaveChangeRequest inserts or updates a change request
func (r *PostgresMetricsRepository) SaveChangeRequest(ctx context.Context, cr *domain.ChangeRequest) error {
	query := `
		INSERT INTO change_requests (id, title, status, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			status = EXCLUDED.status,
			created_at = EXCLUDED.created_at
	`

	_, err := r.db.ExecContext(ctx, query, cr.ID, cr.Title, string(cr.Status), cr.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save change request: %w", err)
	}
	return nil
}

// Ping checks that the database is reachable
func (r *PostgresMetricsRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
