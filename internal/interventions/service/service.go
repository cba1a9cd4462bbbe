package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"fieldops_backend/internal/events"
	"fieldops_backend/internal/interventions/domain"
	"fieldops_backend/internal/interventions/repository"
	"fieldops_backend/internal/interventions/transport"
	"fieldops_backend/platform/apperr"
	"fieldops_backend/platform/logger"
)

// Technician is the slice of a user account the interventions context needs.
type Technician struct {
	ID       uuid.UUID
	FullName string
	Email    string
}

// TechnicianDirectory resolves technician accounts without coupling this
// context to the users module.
type TechnicianDirectory interface {
	// GetTechnician returns a not-found error when the ID is unknown or the
	// account does not hold the TECH role.
	GetTechnician(ctx context.Context, id uuid.UUID) (Technician, error)
	// ListTechnicians returns active technicians ordered by creation time.
	ListTechnicians(ctx context.Context) ([]Technician, error)
}

// Service provides business logic for interventions.
type Service struct {
	repo        repository.Repository
	technicians TechnicianDirectory
	bus         events.Bus
	log         *logger.Logger
}

// New creates a new interventions service.
func New(repo repository.Repository, technicians TechnicianDirectory, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, technicians: technicians, bus: bus, log: log}
}

// Create registers a new intervention in SCHEDULED state. AUTO assignment
// picks the least-loaded technician; MANUAL keeps the requested technician
// or none.
func (s *Service) Create(ctx context.Context, actorID uuid.UUID, req transport.CreateInterventionRequest) (transport.InterventionResponse, error) {
	mode, err := parseAssignmentMode(req.AssignmentMode)
	if err != nil {
		return transport.InterventionResponse{}, err
	}

	reference := strings.TrimSpace(req.Reference)
	exists, err := s.repo.ExistsByReference(ctx, reference)
	if err != nil {
		return transport.InterventionResponse{}, err
	}
	if exists {
		return transport.InterventionResponse{}, apperr.Conflict("intervention reference already exists")
	}

	technicianID, err := s.resolveAssignment(ctx, mode, req.TechnicianID)
	if err != nil {
		return transport.InterventionResponse{}, err
	}

	created, err := s.repo.Create(ctx, repository.CreateParams{
		Reference:      reference,
		Title:          strings.TrimSpace(req.Title),
		Description:    normalizeDescription(req.Description),
		Status:         domain.StatusScheduled,
		AssignmentMode: mode,
		TechnicianID:   technicianID,
		PlannedAt:      req.PlannedAt,
		Latitude:       normalizeCoordinate(req.Latitude),
		Longitude:      normalizeCoordinate(req.Longitude),
	})
	if err != nil {
		return transport.InterventionResponse{}, err
	}

	s.log.Info("intervention created", "id", created.ID, "reference", created.Reference, "mode", created.AssignmentMode)
	s.publishCreated(ctx, created, actorID)
	s.publishAssigned(ctx, created, actorID)

	return toResponse(created), nil
}

// GetByID retrieves one intervention. A technician scope restricts access
// to the technician's own jobs.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID, scopeTechnicianID *uuid.UUID) (transport.InterventionResponse, error) {
	iv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.InterventionResponse{}, err
	}

	if scopeTechnicianID != nil {
		if iv.TechnicianID == nil || *iv.TechnicianID != *scopeTechnicianID {
			return transport.InterventionResponse{}, apperr.Forbidden("intervention is assigned to another technician")
		}
	}

	return toResponse(iv), nil
}

// List retrieves interventions matching the filters. A technician scope
// overrides any requested technician filter.
func (s *Service) List(ctx context.Context, req transport.ListInterventionsRequest, scopeTechnicianID *uuid.UUID) (transport.InterventionListResponse, error) {
	page := req.Page
	pageSize := req.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	filter := repository.Filter{
		Query:        req.Query,
		TechnicianID: req.TechnicianID,
		PlannedFrom:  req.PlannedFrom,
		PlannedTo:    req.PlannedTo,
		Limit:        pageSize,
		Offset:       (page - 1) * pageSize,
	}

	if req.Status != nil {
		if !domain.ValidStatus(*req.Status) {
			return transport.InterventionListResponse{}, apperr.Validation("invalid status filter")
		}
		status := domain.Status(*req.Status)
		filter.Status = &status
	}

	if req.AssignmentMode != nil {
		if !domain.ValidAssignmentMode(*req.AssignmentMode) {
			return transport.InterventionListResponse{}, apperr.Validation("invalid assignment mode filter")
		}
		mode := domain.AssignmentMode(*req.AssignmentMode)
		filter.AssignmentMode = &mode
	}

	if scopeTechnicianID != nil {
		filter.TechnicianID = scopeTechnicianID
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return transport.InterventionListResponse{}, err
	}

	responses := make([]transport.InterventionResponse, len(items))
	for i, iv := range items {
		responses[i] = toResponse(iv)
	}

	return transport.InterventionListResponse{Items: responses, Total: total, Page: page}, nil
}

// Update rewrites the mutable fields and re-applies assignment.
func (s *Service) Update(ctx context.Context, actorID uuid.UUID, id uuid.UUID, req transport.UpdateInterventionRequest) (transport.InterventionResponse, error) {
	mode, err := parseAssignmentMode(req.AssignmentMode)
	if err != nil {
		return transport.InterventionResponse{}, err
	}

	before, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.InterventionResponse{}, err
	}

	technicianID, err := s.resolveAssignment(ctx, mode, req.TechnicianID)
	if err != nil {
		return transport.InterventionResponse{}, err
	}

	updated, err := s.repo.Update(ctx, repository.UpdateParams{
		ID:             id,
		Title:          strings.TrimSpace(req.Title),
		Description:    normalizeDescription(req.Description),
		AssignmentMode: mode,
		TechnicianID:   technicianID,
		PlannedAt:      req.PlannedAt,
		Latitude:       normalizeCoordinate(req.Latitude),
		Longitude:      normalizeCoordinate(req.Longitude),
	})
	if err != nil {
		return transport.InterventionResponse{}, err
	}

	s.log.Info("intervention updated", "id", updated.ID)
	if reassigned(before.TechnicianID, updated.TechnicianID) {
		s.publishAssigned(ctx, updated, actorID)
	}

	return toResponse(updated), nil
}

// UpdateStatus advances the lifecycle. Same-status requests are no-ops;
// everything else must follow the forward-only chain. Moving to IN_PROGRESS
// requires an assigned technician.
func (s *Service) UpdateStatus(ctx context.Context, actorID uuid.UUID, id uuid.UUID, req transport.UpdateStatusRequest, scopeTechnicianID *uuid.UUID) (transport.InterventionResponse, error) {
	if !domain.ValidStatus(req.Status) {
		return transport.InterventionResponse{}, apperr.Validation("invalid status")
	}
	next := domain.Status(req.Status)

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.InterventionResponse{}, err
	}

	if scopeTechnicianID != nil {
		if current.TechnicianID == nil || *current.TechnicianID != *scopeTechnicianID {
			return transport.InterventionResponse{}, apperr.Forbidden("intervention is assigned to another technician")
		}
	}

	if current.Status == next {
		return toResponse(current), nil
	}

	if !domain.CanTransition(current.Status, next) {
		return transport.InterventionResponse{}, apperr.Validation(
			"invalid status transition from " + string(current.Status) + " to " + string(next))
	}

	if next == domain.StatusInProgress && current.TechnicianID == nil {
		return transport.InterventionResponse{}, apperr.Validation("a technician must be assigned before starting")
	}

	now := time.Now().UTC()
	params := repository.StatusParams{ID: id, Status: next}
	switch next {
	case domain.StatusInProgress:
		params.StartedAt = &now
	case domain.StatusCompleted:
		params.CompletedAt = &now
	case domain.StatusValidated:
		params.ValidatedAt = &now
	}

	updated, err := s.repo.UpdateStatus(ctx, params)
	if err != nil {
		return transport.InterventionResponse{}, err
	}

	s.log.Info("intervention status changed", "id", updated.ID, "from", current.Status, "to", updated.Status)
	s.bus.Publish(ctx, events.InterventionStatusChanged{
		BaseEvent:      events.NewBaseEvent(),
		InterventionID: updated.ID,
		Reference:      updated.Reference,
		TechnicianID:   updated.TechnicianID,
		OldStatus:      string(current.Status),
		NewStatus:      string(updated.Status),
		ChangedByID:    actorID,
	})

	return toResponse(updated), nil
}

// resolveAssignment returns the technician to attach for the given mode.
// AUTO selects the TECH with the fewest open jobs, ties broken by earliest
// creation; MANUAL validates the requested technician or leaves the job
// unassigned.
func (s *Service) resolveAssignment(ctx context.Context, mode domain.AssignmentMode, requested *uuid.UUID) (*uuid.UUID, error) {
	if mode == domain.AssignmentAuto {
		technician, err := s.selectLeastLoadedTechnician(ctx)
		if err != nil {
			return nil, err
		}
		return &technician.ID, nil
	}

	if requested == nil {
		return nil, nil
	}

	technician, err := s.technicians.GetTechnician(ctx, *requested)
	if err != nil {
		return nil, err
	}
	id := technician.ID
	return &id, nil
}

func (s *Service) selectLeastLoadedTechnician(ctx context.Context) (Technician, error) {
	technicians, err := s.technicians.ListTechnicians(ctx)
	if err != nil {
		return Technician{}, err
	}
	if len(technicians) == 0 {
		return Technician{}, apperr.Conflict("no technicians available for assignment")
	}

	best := technicians[0]
	bestOpen, err := s.repo.CountOpenByTechnician(ctx, best.ID)
	if err != nil {
		return Technician{}, err
	}

	// The directory lists technicians oldest first, so a strict comparison
	// makes creation order the tie-breaker.
	for _, candidate := range technicians[1:] {
		open, err := s.repo.CountOpenByTechnician(ctx, candidate.ID)
		if err != nil {
			return Technician{}, err
		}
		if open < bestOpen {
			best = candidate
			bestOpen = open
		}
	}

	return best, nil
}

func (s *Service) publishCreated(ctx context.Context, iv repository.Intervention, actorID uuid.UUID) {
	planned := iv.PlannedAt
	s.bus.Publish(ctx, events.InterventionCreated{
		BaseEvent:      events.NewBaseEvent(),
		InterventionID: iv.ID,
		Reference:      iv.Reference,
		Title:          iv.Title,
		TechnicianID:   iv.TechnicianID,
		PlannedAt:      &planned,
		CreatedByID:    actorID,
	})
}

func (s *Service) publishAssigned(ctx context.Context, iv repository.Intervention, actorID uuid.UUID) {
	if iv.TechnicianID == nil {
		return
	}

	var name, email string
	if iv.TechnicianName != nil {
		name = *iv.TechnicianName
	}
	if iv.TechnicianEmail != nil {
		email = *iv.TechnicianEmail
	}

	planned := iv.PlannedAt
	s.bus.Publish(ctx, events.InterventionAssigned{
		BaseEvent:       events.NewBaseEvent(),
		InterventionID:  iv.ID,
		Reference:       iv.Reference,
		Title:           iv.Title,
		TechnicianID:    *iv.TechnicianID,
		TechnicianEmail: email,
		TechnicianName:  name,
		PlannedAt:       &planned,
		AssignmentMode:  string(iv.AssignmentMode),
		AssignedByID:    actorID,
	})
}

func reassigned(before, after *uuid.UUID) bool {
	if after == nil {
		return false
	}
	return before == nil || *before != *after
}

func parseAssignmentMode(value string) (domain.AssignmentMode, error) {
	upper := strings.ToUpper(strings.TrimSpace(value))
	if !domain.ValidAssignmentMode(upper) {
		return "", apperr.Validation("invalid assignment mode")
	}
	return domain.AssignmentMode(upper), nil
}

func normalizeDescription(description *string) *string {
	if description == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*description)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// normalizeCoordinate maps NaN and infinities to null rather than storing
// garbage coordinates.
func normalizeCoordinate(value *float64) *float64 {
	if value == nil {
		return nil
	}
	if math.IsNaN(*value) || math.IsInf(*value, 0) {
		return nil
	}
	return value
}

func toResponse(iv repository.Intervention) transport.InterventionResponse {
	return transport.InterventionResponse{
		ID:              iv.ID,
		Reference:       iv.Reference,
		Title:           iv.Title,
		Description:     iv.Description,
		Status:          string(iv.Status),
		AssignmentMode:  string(iv.AssignmentMode),
		TechnicianID:    iv.TechnicianID,
		TechnicianName:  iv.TechnicianName,
		TechnicianEmail: iv.TechnicianEmail,
		PlannedAt:       iv.PlannedAt,
		StartedAt:       iv.StartedAt,
		CompletedAt:     iv.CompletedAt,
		ValidatedAt:     iv.ValidatedAt,
		Latitude:        iv.Latitude,
		Longitude:       iv.Longitude,
		CreatedAt:       iv.CreatedAt,
		UpdatedAt:       iv.UpdatedAt,
	}
}
