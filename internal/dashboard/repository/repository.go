package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new dashboard repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

const dailyMetricsQuery = `
	SELECT metric_date, status, total_count, avg_completion_seconds, validation_ratio, last_refreshed_at
	FROM analytics.intervention_daily_metrics
	WHERE metric_date = $1`

// dailyMetricsTechnicianQuery recomputes the rollup shape from raw rows for a
// single technician. The effective day is the planned day, falling back to
// start or creation for never-planned jobs. The refreshed-at column reports
// the latest lifecycle event touching the slice, not the query time.
const dailyMetricsTechnicianQuery = `
	WITH base AS (
		SELECT
			status,
			CASE
				WHEN completed_at IS NOT NULL AND started_at IS NOT NULL
					THEN EXTRACT(EPOCH FROM completed_at - started_at)
				ELSE NULL
			END AS completion_seconds,
			GREATEST(
				COALESCE(validated_at, 'epoch'::timestamptz),
				COALESCE(completed_at, 'epoch'::timestamptz),
				COALESCE(updated_at, 'epoch'::timestamptz),
				COALESCE(started_at, 'epoch'::timestamptz),
				created_at
			) AS event_instant
		FROM interventions
		WHERE technician_id = $1
			AND CAST(COALESCE(planned_at, started_at, created_at) AS DATE) = $2
	),
	aggregated AS (
		SELECT
			status,
			COUNT(*) AS total_count,
			AVG(completion_seconds) AS avg_completion_seconds,
			MAX(event_instant) AS last_event_instant
		FROM base
		GROUP BY status
	),
	daily_completed AS (
		SELECT
			SUM(CASE WHEN status IN ('COMPLETED','VALIDATED') THEN total_count ELSE 0 END) AS completed_total,
			SUM(CASE WHEN status = 'VALIDATED' THEN total_count ELSE 0 END) AS validated_total,
			MAX(last_event_instant) AS last_event_instant
		FROM aggregated
	)
	SELECT
		$2::date AS metric_date,
		a.status,
		a.total_count,
		a.avg_completion_seconds,
		CASE
			WHEN a.status = 'VALIDATED' AND dc.completed_total > 0
				THEN (dc.validated_total::numeric / dc.completed_total::numeric) * 100
			ELSE NULL
		END AS validation_ratio,
		dc.last_event_instant AS last_refreshed_at
	FROM aggregated a
	CROSS JOIN daily_completed dc`

// FetchDailyMetrics returns the daily rollup for one date keyed by status.
func (r *Repo) FetchDailyMetrics(ctx context.Context, date time.Time, technicianID *uuid.UUID) (map[string]DailyMetric, error) {
	var rows pgx.Rows
	var err error
	if technicianID == nil {
		rows, err = r.pool.Query(ctx, dailyMetricsQuery, date)
	} else {
		rows, err = r.pool.Query(ctx, dailyMetricsTechnicianQuery, *technicianID, date)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch daily metrics: %w", err)
	}
	defer rows.Close()

	byStatus := make(map[string]DailyMetric)
	for rows.Next() {
		var m DailyMetric
		if err := rows.Scan(
			&m.MetricDate, &m.Status, &m.TotalCount,
			&m.AvgCompletionSeconds, &m.ValidationRatio, &m.LastRefreshedAt,
		); err != nil {
			return nil, fmt.Errorf("scan daily metric: %w", err)
		}
		byStatus[m.Status] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily metrics: %w", err)
	}

	return byStatus, nil
}

const statusTrendsQuery = `
	SELECT metric_date, status, total_count
	FROM analytics.intervention_daily_metrics
	WHERE metric_date BETWEEN $1 AND $2
	ORDER BY metric_date ASC, status ASC`

const statusTrendsTechnicianQuery = `
	SELECT
		CAST(COALESCE(planned_at, started_at, created_at) AS DATE) AS metric_date,
		status,
		COUNT(*) AS total_count
	FROM interventions
	WHERE technician_id = $1
		AND CAST(COALESCE(planned_at, started_at, created_at) AS DATE) BETWEEN $2 AND $3
	GROUP BY metric_date, status
	ORDER BY metric_date ASC, status ASC`

// FetchStatusTrends returns per-day status counts over an inclusive range.
func (r *Repo) FetchStatusTrends(ctx context.Context, from, to time.Time, technicianID *uuid.UUID) ([]StatusTrendPoint, error) {
	var rows pgx.Rows
	var err error
	if technicianID == nil {
		rows, err = r.pool.Query(ctx, statusTrendsQuery, from, to)
	} else {
		rows, err = r.pool.Query(ctx, statusTrendsTechnicianQuery, *technicianID, from, to)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch status trends: %w", err)
	}
	defer rows.Close()

	var points []StatusTrendPoint
	for rows.Next() {
		var p StatusTrendPoint
		if err := rows.Scan(&p.MetricDate, &p.Status, &p.TotalCount); err != nil {
			return nil, fmt.Errorf("scan status trend: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status trends: %w", err)
	}

	return points, nil
}

const technicianLoadQueryBase = `
	SELECT t.technician_id,
		u.full_name,
		u.email,
		t.open_count,
		t.completed_today,
		t.avg_completion_seconds,
		t.last_refreshed_at
	FROM analytics.intervention_technician_load t
	JOIN users u ON u.id = t.technician_id`

const technicianLoadOrder = ` ORDER BY t.open_count DESC, u.full_name ASC`

// FetchTechnicianLoads returns the load snapshot for every technician,
// busiest first.
func (r *Repo) FetchTechnicianLoads(ctx context.Context) ([]TechnicianLoad, error) {
	return r.queryTechnicianLoads(ctx, technicianLoadQueryBase+technicianLoadOrder)
}

// FetchTechnicianLoad returns the load snapshot for one technician. The
// result is empty when no snapshot row exists yet.
func (r *Repo) FetchTechnicianLoad(ctx context.Context, technicianID uuid.UUID) ([]TechnicianLoad, error) {
	query := technicianLoadQueryBase + ` WHERE t.technician_id = $1` + technicianLoadOrder
	return r.queryTechnicianLoads(ctx, query, technicianID)
}

func (r *Repo) queryTechnicianLoads(ctx context.Context, query string, args ...interface{}) ([]TechnicianLoad, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch technician loads: %w", err)
	}
	defer rows.Close()

	var loads []TechnicianLoad
	for rows.Next() {
		var l TechnicianLoad
		if err := rows.Scan(
			&l.TechnicianID, &l.FullName, &l.Email,
			&l.OpenCount, &l.CompletedToday, &l.AvgCompletionSeconds, &l.LastRefreshedAt,
		); err != nil {
			return nil, fmt.Errorf("scan technician load: %w", err)
		}
		loads = append(loads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate technician loads: %w", err)
	}

	return loads, nil
}

const dailyTotalsQuery = `
	SELECT metric_date, SUM(total_count) AS total_count
	FROM analytics.intervention_daily_metrics
	WHERE metric_date BETWEEN $1 AND $2
	GROUP BY metric_date
	ORDER BY metric_date ASC`

const dailyTotalsTechnicianQuery = `
	SELECT
		CAST(COALESCE(planned_at, started_at, created_at) AS DATE) AS metric_date,
		COUNT(*) AS total_count
	FROM interventions
	WHERE technician_id = $1
		AND CAST(COALESCE(planned_at, started_at, created_at) AS DATE) BETWEEN $2 AND $3
	GROUP BY metric_date
	ORDER BY metric_date ASC`

// FetchDailyTotals returns total intervention counts per day keyed by
// ISO date (2006-01-02). Days with no activity are absent from the map.
func (r *Repo) FetchDailyTotals(ctx context.Context, from, to time.Time, technicianID *uuid.UUID) (map[string]int64, error) {
	var rows pgx.Rows
	var err error
	if technicianID == nil {
		rows, err = r.pool.Query(ctx, dailyTotalsQuery, from, to)
	} else {
		rows, err = r.pool.Query(ctx, dailyTotalsTechnicianQuery, *technicianID, from, to)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch daily totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]int64)
	for rows.Next() {
		var day time.Time
		var count int64
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("scan daily total: %w", err)
		}
		totals[day.Format("2006-01-02")] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily totals: %w", err)
	}

	return totals, nil
}

const mapQueryBase = `
	SELECT intervention_id, latitude, longitude, status, technician_id, planned_at, updated_at
	FROM analytics.intervention_geo_view`

// FetchMapMarkers returns geo-tagged interventions from the map snapshot,
// most recently touched first.
func (r *Repo) FetchMapMarkers(ctx context.Context, filter MapFilter) ([]MapMarker, error) {
	var conditions []string
	var args []interface{}

	if len(filter.Statuses) > 0 {
		args = append(args, filter.Statuses)
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.TechnicianID != nil {
		args = append(args, *filter.TechnicianID)
		conditions = append(conditions, fmt.Sprintf("technician_id = $%d", len(args)))
	}

	query := mapQueryBase
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, filter.Limit)
	query += fmt.Sprintf(" ORDER BY updated_at DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch map markers: %w", err)
	}
	defer rows.Close()

	var markers []MapMarker
	for rows.Next() {
		var m MapMarker
		if err := rows.Scan(
			&m.InterventionID, &m.Latitude, &m.Longitude, &m.Status,
			&m.TechnicianID, &m.PlannedAt, &m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan map marker: %w", err)
		}
		markers = append(markers, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate map markers: %w", err)
	}

	return markers, nil
}

// TechnicianOpenCounts returns open-assignment counts from the load snapshot
// keyed by technician. Technicians without a row are simply absent.
func (r *Repo) TechnicianOpenCounts(ctx context.Context) (map[uuid.UUID]int64, error) {
	query := `SELECT technician_id, open_count FROM analytics.intervention_technician_load`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("fetch open counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int64)
	for rows.Next() {
		var id uuid.UUID
		var count int64
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("scan open count: %w", err)
		}
		counts[id] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate open counts: %w", err)
	}

	return counts, nil
}

// ReplaceRollups rebuilds all three rollup tables atomically. Either every
// table reflects the new window or none does.
func (r *Repo) ReplaceRollups(ctx context.Context, from, to time.Time, refreshedAt time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin rollup refresh: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := r.ReplaceDailyMetrics(ctx, tx, from, to, refreshedAt); err != nil {
		return err
	}
	if err := r.ReplaceTechnicianLoad(ctx, tx, refreshedAt); err != nil {
		return err
	}
	if err := r.ReplaceGeoSnapshot(ctx, tx, refreshedAt); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit rollup refresh: %w", err)
	}

	return nil
}

const insertDailyMetricsQuery = `
	WITH base AS (
		SELECT
			(planned_at AT TIME ZONE 'UTC')::date AS metric_date,
			status,
			CASE
				WHEN completed_at IS NOT NULL AND started_at IS NOT NULL
					THEN EXTRACT(EPOCH FROM completed_at - started_at)
				ELSE NULL
			END AS completion_seconds
		FROM interventions
		WHERE planned_at >= $1 AND planned_at < $2
	),
	aggregated AS (
		SELECT
			metric_date,
			status,
			COUNT(*) AS total_count,
			AVG(completion_seconds) AS avg_completion_seconds
		FROM base
		GROUP BY metric_date, status
	),
	daily_completed AS (
		SELECT
			metric_date,
			SUM(CASE WHEN status IN ('COMPLETED','VALIDATED') THEN total_count ELSE 0 END) AS completed_total,
			SUM(CASE WHEN status = 'VALIDATED' THEN total_count ELSE 0 END) AS validated_total
		FROM aggregated
		GROUP BY metric_date
	)
	INSERT INTO analytics.intervention_daily_metrics
		(metric_date, status, total_count, avg_completion_seconds, validation_ratio, last_refreshed_at)
	SELECT
		a.metric_date,
		a.status,
		a.total_count,
		a.avg_completion_seconds,
		CASE
			WHEN a.status = 'VALIDATED' AND dc.completed_total > 0
				THEN (dc.validated_total::numeric / dc.completed_total::numeric) * 100
			ELSE NULL
		END,
		$3
	FROM aggregated a
	JOIN daily_completed dc ON dc.metric_date = a.metric_date`

// ReplaceDailyMetrics rewrites the per-day rollup for the inclusive date
// window. Validation ratio lands on the VALIDATED row only, as a percentage
// of completed work that day.
func (r *Repo) ReplaceDailyMetrics(ctx context.Context, tx pgx.Tx, from, to time.Time, refreshedAt time.Time) error {
	deleteQuery := `
		DELETE FROM analytics.intervention_daily_metrics
		WHERE metric_date BETWEEN $1 AND $2`

	if _, err := tx.Exec(ctx, deleteQuery, from, to); err != nil {
		return fmt.Errorf("clear daily metrics: %w", err)
	}

	fromInstant := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toInstant := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)

	if _, err := tx.Exec(ctx, insertDailyMetricsQuery, fromInstant, toInstant, refreshedAt); err != nil {
		return fmt.Errorf("rebuild daily metrics: %w", err)
	}

	return nil
}

const insertTechnicianLoadQuery = `
	INSERT INTO analytics.intervention_technician_load
		(technician_id, open_count, completed_today, avg_completion_seconds, last_refreshed_at)
	SELECT
		technician_id,
		COUNT(*) FILTER (WHERE status IN ('SCHEDULED','IN_PROGRESS')) AS open_count,
		COUNT(*) FILTER (
			WHERE status IN ('COMPLETED','VALIDATED')
				AND completed_at >= $1 AND completed_at < $2
		) AS completed_today,
		AVG(EXTRACT(EPOCH FROM completed_at - started_at)) FILTER (
			WHERE completed_at IS NOT NULL AND started_at IS NOT NULL
		) AS avg_completion_seconds,
		$3
	FROM interventions
	WHERE technician_id IS NOT NULL
	GROUP BY technician_id`

// ReplaceTechnicianLoad rewrites the full per-technician load snapshot.
// "Today" is the UTC day containing refreshedAt.
func (r *Repo) ReplaceTechnicianLoad(ctx context.Context, tx pgx.Tx, refreshedAt time.Time) error {
	if _, err := tx.Exec(ctx, `DELETE FROM analytics.intervention_technician_load`); err != nil {
		return fmt.Errorf("clear technician load: %w", err)
	}

	day := refreshedAt.UTC().Truncate(24 * time.Hour)
	dayEnd := day.AddDate(0, 0, 1)

	if _, err := tx.Exec(ctx, insertTechnicianLoadQuery, day, dayEnd, refreshedAt); err != nil {
		return fmt.Errorf("rebuild technician load: %w", err)
	}

	return nil
}

const insertGeoSnapshotQuery = `
	INSERT INTO analytics.intervention_geo_view
		(intervention_id, latitude, longitude, status, technician_id, planned_at, updated_at)
	SELECT id, latitude, longitude, status, technician_id, planned_at, COALESCE(updated_at, $1)
	FROM interventions
	WHERE latitude IS NOT NULL AND longitude IS NOT NULL`

// ReplaceGeoSnapshot rewrites the map snapshot with every geo-tagged
// intervention.
func (r *Repo) ReplaceGeoSnapshot(ctx context.Context, tx pgx.Tx, refreshedAt time.Time) error {
	if _, err := tx.Exec(ctx, `DELETE FROM analytics.intervention_geo_view`); err != nil {
		return fmt.Errorf("clear geo snapshot: %w", err)
	}

	if _, err := tx.Exec(ctx, insertGeoSnapshotQuery, refreshedAt); err != nil {
		return fmt.Errorf("rebuild geo snapshot: %w", err)
	}

	return nil
}
