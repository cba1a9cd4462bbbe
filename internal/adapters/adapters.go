// Package adapters wires bounded contexts together without letting them
// import each other's internals. Each adapter narrows one context's
// repository to the port another context's service expects.
package adapters

import (
	"context"

	"github.com/google/uuid"

	dashboardrepo "fieldops_backend/internal/dashboard/repository"
	interventiondomain "fieldops_backend/internal/interventions/domain"
	interventionsrepo "fieldops_backend/internal/interventions/repository"
	"fieldops_backend/internal/interventions/scoring"
	interventionsvc "fieldops_backend/internal/interventions/service"
	userdomain "fieldops_backend/internal/users/domain"
	usersrepo "fieldops_backend/internal/users/repository"
	"fieldops_backend/platform/apperr"
)

const technicianNotFoundMessage = "technician not found"

// TechnicianDirectory adapts the users repository to the interventions
// service's technician port.
type TechnicianDirectory struct {
	users usersrepo.UserReader
}

// NewTechnicianDirectory creates a technician directory over the users repository.
func NewTechnicianDirectory(users usersrepo.UserReader) *TechnicianDirectory {
	return &TechnicianDirectory{users: users}
}

var _ interventionsvc.TechnicianDirectory = (*TechnicianDirectory)(nil)

// GetTechnician resolves an active technician account. Unknown IDs, inactive
// accounts, and non-technician roles all read as not found.
func (d *TechnicianDirectory) GetTechnician(ctx context.Context, id uuid.UUID) (interventionsvc.Technician, error) {
	user, err := d.users.GetByID(ctx, id)
	if err != nil {
		if apperr.GetKind(err) == apperr.KindNotFound {
			return interventionsvc.Technician{}, apperr.NotFound(technicianNotFoundMessage)
		}
		return interventionsvc.Technician{}, err
	}
	if user.Role != userdomain.RoleTech || !user.IsActive {
		return interventionsvc.Technician{}, apperr.NotFound(technicianNotFoundMessage)
	}

	return interventionsvc.Technician{
		ID:       user.ID,
		FullName: user.FullName,
		Email:    user.Email,
	}, nil
}

// ListTechnicians returns all active technicians, oldest account first.
func (d *TechnicianDirectory) ListTechnicians(ctx context.Context) ([]interventionsvc.Technician, error) {
	users, err := d.users.ListTechnicians(ctx)
	if err != nil {
		return nil, err
	}

	technicians := make([]interventionsvc.Technician, 0, len(users))
	for _, user := range users {
		technicians = append(technicians, interventionsvc.Technician{
			ID:       user.ID,
			FullName: user.FullName,
			Email:    user.Email,
		})
	}
	return technicians, nil
}

// ScoringTechnicians adapts the users repository to the scoring engine's
// candidate pool port.
type ScoringTechnicians struct {
	users usersrepo.UserReader
}

// NewScoringTechnicians creates a candidate pool over the users repository.
func NewScoringTechnicians(users usersrepo.UserReader) *ScoringTechnicians {
	return &ScoringTechnicians{users: users}
}

var _ scoring.TechnicianLister = (*ScoringTechnicians)(nil)

// ListTechnicians returns the scoring candidate pool.
func (s *ScoringTechnicians) ListTechnicians(ctx context.Context) ([]scoring.Technician, error) {
	users, err := s.users.ListTechnicians(ctx)
	if err != nil {
		return nil, err
	}

	technicians := make([]scoring.Technician, 0, len(users))
	for _, user := range users {
		technicians = append(technicians, scoring.Technician{
			ID:       user.ID,
			FullName: user.FullName,
			Email:    user.Email,
		})
	}
	return technicians, nil
}

// ScoringHistory adapts the interventions repository to the scoring engine's
// geo and history port.
type ScoringHistory struct {
	interventions interventionsrepo.InterventionReader
}

// NewScoringHistory creates a history reader over the interventions repository.
func NewScoringHistory(interventions interventionsrepo.InterventionReader) *ScoringHistory {
	return &ScoringHistory{interventions: interventions}
}

var _ scoring.HistoryReader = (*ScoringHistory)(nil)

// LatestCoordinate returns the technician's most recent geo-tagged job
// position, or nils when they have none.
func (s *ScoringHistory) LatestCoordinate(ctx context.Context, technicianID uuid.UUID) (*float64, *float64, error) {
	coord, err := s.interventions.LatestCoordinate(ctx, technicianID)
	if err != nil {
		return nil, nil, err
	}
	if coord == nil {
		return nil, nil, nil
	}
	return &coord.Latitude, &coord.Longitude, nil
}

// RecentHistory returns the technician's latest jobs in the given statuses.
func (s *ScoringHistory) RecentHistory(ctx context.Context, technicianID uuid.UUID, statuses []interventiondomain.Status, limit int) ([]scoring.HistoryItem, error) {
	items, err := s.interventions.RecentHistory(ctx, technicianID, statuses, limit)
	if err != nil {
		return nil, err
	}

	history := make([]scoring.HistoryItem, 0, len(items))
	for _, item := range items {
		history = append(history, scoring.HistoryItem{
			Title:       item.Title,
			Description: item.Description,
		})
	}
	return history, nil
}

// ScoringLoads adapts the dashboard rollup repository to the scoring engine's
// workload port.
type ScoringLoads struct {
	dashboard dashboardrepo.Reader
}

// NewScoringLoads creates a load reader over the dashboard repository.
func NewScoringLoads(dashboard dashboardrepo.Reader) *ScoringLoads {
	return &ScoringLoads{dashboard: dashboard}
}

var _ scoring.LoadReader = (*ScoringLoads)(nil)

// TechnicianOpenCounts returns open-assignment counts from the load snapshot.
func (s *ScoringLoads) TechnicianOpenCounts(ctx context.Context) (map[uuid.UUID]int64, error) {
	return s.dashboard.TechnicianOpenCounts(ctx)
}
