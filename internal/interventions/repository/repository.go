package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"fieldops_backend/internal/interventions/domain"
	"fieldops_backend/platform/apperr"
)

const interventionNotFoundMessage = "intervention not found"

const selectColumns = `
	i.id, i.reference, i.title, i.description, i.status, i.assignment_mode,
	i.technician_id, u.full_name, u.email,
	i.planned_at, i.started_at, i.completed_at, i.validated_at,
	i.latitude, i.longitude, i.created_at, i.updated_at`

const fromClause = `
	FROM interventions i
	LEFT JOIN users u ON u.id = i.technician_id`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new interventions repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// GetByID retrieves an intervention with its technician joined in.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Intervention, error) {
	query := `SELECT` + selectColumns + fromClause + ` WHERE i.id = $1`

	iv, err := scanIntervention(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Intervention{}, apperr.NotFound(interventionNotFoundMessage)
		}
		return Intervention{}, fmt.Errorf("get intervention by id: %w", err)
	}

	return iv, nil
}

// buildListQuery composes the WHERE clause for List from the filter struct.
// Every predicate uses the $n::type IS NULL pattern so the same statement
// serves all filter combinations.
func buildListQuery(filter Filter) (string, string, []interface{}) {
	var queryParam interface{}
	if strings.TrimSpace(filter.Query) != "" {
		queryParam = "%" + strings.ToLower(strings.TrimSpace(filter.Query)) + "%"
	}
	var statusParam interface{}
	if filter.Status != nil {
		statusParam = string(*filter.Status)
	}
	var modeParam interface{}
	if filter.AssignmentMode != nil {
		modeParam = string(*filter.AssignmentMode)
	}
	var technicianParam interface{}
	if filter.TechnicianID != nil {
		technicianParam = *filter.TechnicianID
	}
	var fromParam interface{}
	if filter.PlannedFrom != nil {
		fromParam = *filter.PlannedFrom
	}
	var toParam interface{}
	if filter.PlannedTo != nil {
		toParam = *filter.PlannedTo
	}

	where := `
	WHERE ($1::text IS NULL OR lower(i.reference) LIKE $1 OR lower(i.title) LIKE $1)
		AND ($2::text IS NULL OR i.status = $2)
		AND ($3::text IS NULL OR i.assignment_mode = $3)
		AND ($4::uuid IS NULL OR i.technician_id = $4)
		AND ($5::timestamptz IS NULL OR i.planned_at >= $5)
		AND ($6::timestamptz IS NULL OR i.planned_at <= $6)`

	countQuery := `SELECT COUNT(*)` + fromClause + where

	listQuery := `SELECT` + selectColumns + fromClause + where + `
	ORDER BY i.planned_at DESC, i.created_at DESC
	LIMIT $7 OFFSET $8`

	args := []interface{}{queryParam, statusParam, modeParam, technicianParam, fromParam, toParam}
	return countQuery, listQuery, args
}

// List retrieves interventions matching the filter, newest planned first.
func (r *Repo) List(ctx context.Context, filter Filter) ([]Intervention, int, error) {
	countQuery, listQuery, args := buildListQuery(filter)

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count interventions: %w", err)
	}

	rows, err := r.pool.Query(ctx, listQuery, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list interventions: %w", err)
	}
	defer rows.Close()

	items, err := scanInterventions(rows)
	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// ExistsByReference checks for a reference, case-insensitively.
func (r *Repo) ExistsByReference(ctx context.Context, reference string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM interventions WHERE lower(reference) = lower($1))`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, reference).Scan(&exists); err != nil {
		return false, fmt.Errorf("check intervention reference: %w", err)
	}

	return exists, nil
}

// CountOpenByTechnician counts SCHEDULED and IN_PROGRESS jobs for one
// technician.
func (r *Repo) CountOpenByTechnician(ctx context.Context, technicianID uuid.UUID) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM interventions
		WHERE technician_id = $1 AND status = ANY($2)`

	var count int64
	if err := r.pool.QueryRow(ctx, query, technicianID, statusStrings(domain.OpenStatuses)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count open interventions: %w", err)
	}

	return count, nil
}

// LatestCoordinate returns the technician's most recent geo-tagged job
// location, or nil when no job carries coordinates.
func (r *Repo) LatestCoordinate(ctx context.Context, technicianID uuid.UUID) (*Coordinate, error) {
	query := `
		SELECT latitude, longitude
		FROM interventions
		WHERE technician_id = $1 AND latitude IS NOT NULL AND longitude IS NOT NULL
		ORDER BY updated_at DESC
		LIMIT 1`

	var coord Coordinate
	err := r.pool.QueryRow(ctx, query, technicianID).Scan(&coord.Latitude, &coord.Longitude)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest coordinate: %w", err)
	}

	return &coord, nil
}

// RecentHistory returns the technician's most recent jobs in the given
// statuses, newest update first, capped at limit.
func (r *Repo) RecentHistory(ctx context.Context, technicianID uuid.UUID, statuses []domain.Status, limit int) ([]HistoryItem, error) {
	query := `
		SELECT title, description
		FROM interventions
		WHERE technician_id = $1 AND status = ANY($2)
		ORDER BY updated_at DESC
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, technicianID, statusStrings(statuses), limit)
	if err != nil {
		return nil, fmt.Errorf("recent history: %w", err)
	}
	defer rows.Close()

	var items []HistoryItem
	for rows.Next() {
		var item HistoryItem
		if err := rows.Scan(&item.Title, &item.Description); err != nil {
			return nil, fmt.Errorf("scan history item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	return items, nil
}

// Create inserts a new intervention. Duplicate references map to a conflict
// error.
func (r *Repo) Create(ctx context.Context, params CreateParams) (Intervention, error) {
	query := `
		WITH inserted AS (
			INSERT INTO interventions
				(reference, title, description, status, assignment_mode, technician_id, planned_at, latitude, longitude)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING *
		)
		SELECT` + selectColumns + `
		FROM inserted i
		LEFT JOIN users u ON u.id = i.technician_id`

	iv, err := scanIntervention(r.pool.QueryRow(ctx, query,
		params.Reference, params.Title, params.Description, string(params.Status),
		string(params.AssignmentMode), params.TechnicianID, params.PlannedAt,
		params.Latitude, params.Longitude,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return Intervention{}, apperr.Conflict("intervention reference already exists")
		}
		return Intervention{}, fmt.Errorf("create intervention: %w", err)
	}

	return iv, nil
}

// Update rewrites the mutable intervention fields.
func (r *Repo) Update(ctx context.Context, params UpdateParams) (Intervention, error) {
	query := `
		WITH updated AS (
			UPDATE interventions SET
				title = $2,
				description = $3,
				assignment_mode = $4,
				technician_id = $5,
				planned_at = $6,
				latitude = $7,
				longitude = $8,
				updated_at = now()
			WHERE id = $1
			RETURNING *
		)
		SELECT` + selectColumns + `
		FROM updated i
		LEFT JOIN users u ON u.id = i.technician_id`

	iv, err := scanIntervention(r.pool.QueryRow(ctx, query,
		params.ID, params.Title, params.Description, string(params.AssignmentMode),
		params.TechnicianID, params.PlannedAt, params.Latitude, params.Longitude,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Intervention{}, apperr.NotFound(interventionNotFoundMessage)
		}
		return Intervention{}, fmt.Errorf("update intervention: %w", err)
	}

	return iv, nil
}

// UpdateStatus advances the lifecycle state. Stage timestamps are written
// through COALESCE so a timestamp set once is never overwritten.
func (r *Repo) UpdateStatus(ctx context.Context, params StatusParams) (Intervention, error) {
	query := `
		WITH updated AS (
			UPDATE interventions SET
				status = $2,
				started_at = COALESCE(started_at, $3),
				completed_at = COALESCE(completed_at, $4),
				validated_at = COALESCE(validated_at, $5),
				updated_at = now()
			WHERE id = $1
			RETURNING *
		)
		SELECT` + selectColumns + `
		FROM updated i
		LEFT JOIN users u ON u.id = i.technician_id`

	iv, err := scanIntervention(r.pool.QueryRow(ctx, query,
		params.ID, string(params.Status), params.StartedAt, params.CompletedAt, params.ValidatedAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Intervention{}, apperr.NotFound(interventionNotFoundMessage)
		}
		return Intervention{}, fmt.Errorf("update intervention status: %w", err)
	}

	return iv, nil
}

func statusStrings(statuses []domain.Status) []string {
	values := make([]string, len(statuses))
	for i, status := range statuses {
		values[i] = string(status)
	}
	return values
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func scanIntervention(row pgx.Row) (Intervention, error) {
	var iv Intervention
	var status, mode string

	err := row.Scan(
		&iv.ID, &iv.Reference, &iv.Title, &iv.Description, &status, &mode,
		&iv.TechnicianID, &iv.TechnicianName, &iv.TechnicianEmail,
		&iv.PlannedAt, &iv.StartedAt, &iv.CompletedAt, &iv.ValidatedAt,
		&iv.Latitude, &iv.Longitude, &iv.CreatedAt, &iv.UpdatedAt,
	)
	if err != nil {
		return Intervention{}, err
	}

	iv.Status = domain.Status(status)
	iv.AssignmentMode = domain.AssignmentMode(mode)

	return iv, nil
}

func scanInterventions(rows pgx.Rows) ([]Intervention, error) {
	var results []Intervention

	for rows.Next() {
		iv, err := scanIntervention(rows)
		if err != nil {
			return nil, fmt.Errorf("scan intervention: %w", err)
		}
		results = append(results, iv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interventions: %w", err)
	}

	return results, nil
}
