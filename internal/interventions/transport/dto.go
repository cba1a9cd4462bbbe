package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateInterventionRequest contains data for registering a new intervention.
type CreateInterventionRequest struct {
	Reference      string     `json:"reference" validate:"required,min=1,max=60"`
	Title          string     `json:"title" validate:"required,min=1,max=200"`
	Description    *string    `json:"description,omitempty" validate:"omitempty,max=2000"`
	PlannedAt      time.Time  `json:"plannedAt" validate:"required"`
	AssignmentMode string     `json:"assignmentMode" validate:"required"`
	TechnicianID   *uuid.UUID `json:"technicianId,omitempty"`
	Latitude       *float64   `json:"latitude,omitempty"`
	Longitude      *float64   `json:"longitude,omitempty"`
}

// UpdateInterventionRequest contains data for rewriting an intervention.
type UpdateInterventionRequest struct {
	Title          string     `json:"title" validate:"required,min=1,max=200"`
	Description    *string    `json:"description,omitempty" validate:"omitempty,max=2000"`
	PlannedAt      time.Time  `json:"plannedAt" validate:"required"`
	AssignmentMode string     `json:"assignmentMode" validate:"required"`
	TechnicianID   *uuid.UUID `json:"technicianId,omitempty"`
	Latitude       *float64   `json:"latitude,omitempty"`
	Longitude      *float64   `json:"longitude,omitempty"`
}

// UpdateStatusRequest carries the requested lifecycle state.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// ListInterventionsRequest contains filters for the intervention list.
type ListInterventionsRequest struct {
	Query          string     `form:"query"`
	Status         *string    `form:"status"`
	AssignmentMode *string    `form:"assignmentMode"`
	TechnicianID   *uuid.UUID `form:"technicianId"`
	PlannedFrom    *time.Time `form:"plannedFrom" time_format:"2006-01-02T15:04:05Z07:00"`
	PlannedTo      *time.Time `form:"plannedTo" time_format:"2006-01-02T15:04:05Z07:00"`
	Page           int        `form:"page"`
	PageSize       int        `form:"pageSize"`
}

// InterventionResponse represents an intervention in API responses.
type InterventionResponse struct {
	ID              uuid.UUID  `json:"id"`
	Reference       string     `json:"reference"`
	Title           string     `json:"title"`
	Description     *string    `json:"description,omitempty"`
	Status          string     `json:"status"`
	AssignmentMode  string     `json:"assignmentMode"`
	TechnicianID    *uuid.UUID `json:"technicianId,omitempty"`
	TechnicianName  *string    `json:"technicianName,omitempty"`
	TechnicianEmail *string    `json:"technicianEmail,omitempty"`
	PlannedAt       time.Time  `json:"plannedAt"`
	StartedAt       *time.Time `json:"startedAt,omitempty"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	ValidatedAt     *time.Time `json:"validatedAt,omitempty"`
	Latitude        *float64   `json:"latitude,omitempty"`
	Longitude       *float64   `json:"longitude,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// InterventionListResponse wraps a paginated list of interventions.
type InterventionListResponse struct {
	Items []InterventionResponse `json:"items"`
	Total int                    `json:"total"`
	Page  int                    `json:"page"`
}

// RecommendRequest contains the new-job description to score candidates for.
type RecommendRequest struct {
	Title       string   `json:"title" validate:"required,min=1,max=200"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=2000"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}

// CandidateResponse is one scored technician candidate.
type CandidateResponse struct {
	TechnicianID    uuid.UUID `json:"technicianId"`
	FullName        string    `json:"fullName"`
	Email           string    `json:"email"`
	OverallScore    float64   `json:"overallScore"`
	WorkloadScore   float64   `json:"workloadScore"`
	DistanceScore   float64   `json:"distanceScore"`
	SkillScore      float64   `json:"skillScore"`
	DistanceKm      *float64  `json:"distanceKm,omitempty"`
	OpenAssignments int64     `json:"openAssignments"`
	MatchingHistory int64     `json:"matchingHistory"`
}

// RecommendationResponse is the scoring engine's answer.
type RecommendationResponse struct {
	Recommended  CandidateResponse   `json:"recommended"`
	Alternatives []CandidateResponse `json:"alternatives"`
	Rationale    string              `json:"rationale"`
	GeneratedAt  time.Time           `json:"generatedAt"`
}
