// Package events defines the domain events modules exchange over the bus.
// The bus itself lives in platform/events.
package events

import (
	"time"

	"fieldops_backend/platform/events"

	"github.com/google/uuid"
)

// Bus plumbing re-exported so modules need a single events import.
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Intervention Domain Events
// =============================================================================

// InterventionCreated is published when a new intervention is registered.
type InterventionCreated struct {
	BaseEvent
	InterventionID uuid.UUID  `json:"interventionId"`
	Reference      string     `json:"reference"`
	Title          string     `json:"title"`
	TechnicianID   *uuid.UUID `json:"technicianId,omitempty"`
	PlannedAt      *time.Time `json:"plannedAt,omitempty"`
	CreatedByID    uuid.UUID  `json:"createdById"`
}

func (e InterventionCreated) EventName() string { return "interventions.created" }

// InterventionAssigned is published when an intervention is assigned to a
// technician, whether by a dispatcher or by the automatic assignment path.
type InterventionAssigned struct {
	BaseEvent
	InterventionID  uuid.UUID  `json:"interventionId"`
	Reference       string     `json:"reference"`
	Title           string     `json:"title"`
	TechnicianID    uuid.UUID  `json:"technicianId"`
	TechnicianEmail string     `json:"technicianEmail"`
	TechnicianName  string     `json:"technicianName"`
	PlannedAt       *time.Time `json:"plannedAt,omitempty"`
	AssignmentMode  string     `json:"assignmentMode"`
	AssignedByID    uuid.UUID  `json:"assignedById"`
}

func (e InterventionAssigned) EventName() string { return "interventions.assigned" }

// InterventionStatusChanged is published when an intervention moves along
// its lifecycle.
type InterventionStatusChanged struct {
	BaseEvent
	InterventionID uuid.UUID  `json:"interventionId"`
	Reference      string     `json:"reference"`
	TechnicianID   *uuid.UUID `json:"technicianId,omitempty"`
	OldStatus      string     `json:"oldStatus"`
	NewStatus      string     `json:"newStatus"`
	ChangedByID    uuid.UUID  `json:"changedById"`
}

func (e InterventionStatusChanged) EventName() string { return "interventions.status.changed" }

// =============================================================================
// User Domain Events
// =============================================================================

// UserCreated is published when an administrator provisions a new account.
type UserCreated struct {
	BaseEvent
	UserID    uuid.UUID `json:"userId"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	Role      string    `json:"role"`
	CreatedBy uuid.UUID `json:"createdBy"`
}

func (e UserCreated) EventName() string { return "users.created" }
