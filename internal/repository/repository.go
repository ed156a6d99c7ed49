package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/septivank/greenhouse-telemetry-worker/internal/config"
	"github.com/septivank/greenhouse-telemetry-worker/internal/db"
)

// ErrMisconfigured indicates the analytical schema/table settings are
// missing. This is a deployment fault, not a transient backend error;
// retrying the same delivery cannot succeed.
var ErrMisconfigured = errors.New("analytical store not configured")

// Repository handles analytical store operations
type Repository struct {
	pool       *pgxpool.Pool
	schema     string
	table      string
	timezone   string
	windowDays int
}

// NewRepository creates a new repository targeting the configured
// schema/table pair
func NewRepository(pool *pgxpool.Pool, cfg *config.Config) *Repository {
	return &Repository{
		pool:       pool,
		schema:     cfg.Telemetry.Schema,
		table:      cfg.Telemetry.Table,
		timezone:   cfg.Report.Timezone,
		windowDays: cfg.Report.WindowDays,
	}
}

// tableIdent returns the quoted schema-qualified table name, or
// ErrMisconfigured when either setting is absent.
func (r *Repository) tableIdent() (string, error) {
	if r.schema == "" || r.table == "" {
		return "", fmt.Errorf("%w: TELEMETRY_SCHEMA and TELEMETRY_TABLE must be set", ErrMisconfigured)
	}
	return pgx.Identifier{r.schema, r.table}.Sanitize(), nil
}

// AppendTelemetry appends one immutable row for an accepted event.
// There is no update or delete path for this table.
func (r *Repository) AppendTelemetry(ctx context.Context, row *db.TelemetryRow) error {
	ident, err := r.tableIdent()
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (device_id, humidity, pump_active, light_active, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`, ident)

	_, err = r.pool.Exec(ctx, query,
		row.DeviceID,
		row.Humidity,
		row.PumpActive,
		row.LightActive,
		row.RecordedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to append telemetry row: %w", err)
	}

	return nil
}

// HourlyHumidityReport aggregates the trailing window into hour buckets,
// truncated in the configured timezone, ordered ascending by bucket start.
func (r *Repository) HourlyHumidityReport(ctx context.Context) ([]db.ReportRow, error) {
	ident, err := r.tableIdent()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT
			date_trunc('hour', recorded_at, $1) AS date_hour,
			avg(humidity) AS avg_hum,
			min(humidity) AS min_hum,
			max(humidity) AS max_hum,
			count(*) AS data_points
		FROM %s
		WHERE recorded_at BETWEEN now() - make_interval(days => $2) AND now()
		GROUP BY date_hour
		ORDER BY date_hour
	`, ident)

	rows, err := r.pool.Query(ctx, query, r.timezone, r.windowDays)
	if err != nil {
		return nil, fmt.Errorf("failed to query humidity report: %w", err)
	}
	defer rows.Close()

	var report []db.ReportRow
	for rows.Next() {
		var row db.ReportRow
		if err := rows.Scan(&row.DateHour, &row.AvgHum, &row.MinHum, &row.MaxHum, &row.DataPoints); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		report = append(report, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return report, nil
}
