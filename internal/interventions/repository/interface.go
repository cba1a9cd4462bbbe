package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fieldops_backend/internal/interventions/domain"
)

// Intervention is a field-service job. Technician name/email are joined in
// for read paths; they are not stored on the row.
type Intervention struct {
	ID              uuid.UUID
	Reference       string
	Title           string
	Description     *string
	Status          domain.Status
	AssignmentMode  domain.AssignmentMode
	TechnicianID    *uuid.UUID
	TechnicianName  *string
	TechnicianEmail *string
	PlannedAt       time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
	ValidatedAt     *time.Time
	Latitude        *float64
	Longitude       *float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CreateParams contains parameters for creating an intervention.
type CreateParams struct {
	Reference      string
	Title          string
	Description    *string
	Status         domain.Status
	AssignmentMode domain.AssignmentMode
	TechnicianID   *uuid.UUID
	PlannedAt      time.Time
	Latitude       *float64
	Longitude      *float64
}

// UpdateParams contains parameters for updating an intervention.
type UpdateParams struct {
	ID             uuid.UUID
	Title          string
	Description    *string
	AssignmentMode domain.AssignmentMode
	TechnicianID   *uuid.UUID
	PlannedAt      time.Time
	Latitude       *float64
	Longitude      *float64
}

// StatusParams contains the new status plus the stage timestamp to set.
// Stage timestamps use COALESCE so an already-set timestamp is never
// overwritten.
type StatusParams struct {
	ID          uuid.UUID
	Status      domain.Status
	StartedAt   *time.Time
	CompletedAt *time.Time
	ValidatedAt *time.Time
}

// Filter narrows the intervention list. Nil fields are ignored.
type Filter struct {
	Query          string
	Status         *domain.Status
	AssignmentMode *domain.AssignmentMode
	TechnicianID   *uuid.UUID
	PlannedFrom    *time.Time
	PlannedTo      *time.Time
	Limit          int
	Offset         int
}

// Coordinate is a latitude/longitude pair.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// HistoryItem is the textual footprint of a past job, used for skill matching.
type HistoryItem struct {
	Title       string
	Description *string
}

// InterventionReader provides read operations for interventions.
type InterventionReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Intervention, error)
	List(ctx context.Context, filter Filter) ([]Intervention, int, error)
	ExistsByReference(ctx context.Context, reference string) (bool, error)
	CountOpenByTechnician(ctx context.Context, technicianID uuid.UUID) (int64, error)
	LatestCoordinate(ctx context.Context, technicianID uuid.UUID) (*Coordinate, error)
	RecentHistory(ctx context.Context, technicianID uuid.UUID, statuses []domain.Status, limit int) ([]HistoryItem, error)
}

// InterventionWriter provides write operations for interventions.
type InterventionWriter interface {
	Create(ctx context.Context, params CreateParams) (Intervention, error)
	Update(ctx context.Context, params UpdateParams) (Intervention, error)
	UpdateStatus(ctx context.Context, params StatusParams) (Intervention, error)
}

// Repository combines all intervention repository operations.
type Repository interface {
	InterventionReader
	InterventionWriter
}
