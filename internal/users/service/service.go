package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"fieldops_backend/internal/events"
	"fieldops_backend/internal/users/domain"
	"fieldops_backend/internal/users/repository"
	"fieldops_backend/internal/users/transport"
	"fieldops_backend/platform/apperr"
	"fieldops_backend/platform/config"
	"fieldops_backend/platform/logger"
	"fieldops_backend/platform/phone"
)

// Service provides business logic for user accounts.
type Service struct {
	repo repository.Repository
	bus  events.Bus
	cfg  config.PhoneConfig
	log  *logger.Logger
}

// New creates a new users service.
func New(repo repository.Repository, bus events.Bus, cfg config.PhoneConfig, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, cfg: cfg, log: log}
}

// Create provisions a new account with a bcrypt-hashed password.
func (s *Service) Create(ctx context.Context, actorID uuid.UUID, req transport.CreateUserRequest) (transport.UserResponse, error) {
	role := strings.ToUpper(req.Role)
	if !domain.ValidRole(role) {
		return transport.UserResponse{}, apperr.Validation("invalid role")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return transport.UserResponse{}, apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
	}

	var phoneNumber *string
	if req.Phone != nil && strings.TrimSpace(*req.Phone) != "" {
		normalized := phone.NormalizeE164(*req.Phone, s.cfg.GetPhoneDefaultRegion())
		phoneNumber = &normalized
	}

	user, err := s.repo.Create(ctx, repository.CreateParams{
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
		Phone:        phoneNumber,
		Role:         role,
	})
	if err != nil {
		return transport.UserResponse{}, err
	}

	s.log.Info("user created", "id", user.ID, "role", user.Role)
	s.bus.Publish(ctx, events.UserCreated{
		BaseEvent: events.NewBaseEvent(),
		UserID:    user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Role:      user.Role,
		CreatedBy: actorID,
	})

	return toResponse(user), nil
}

// GetByID retrieves a user by ID.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.UserResponse{}, err
	}
	return toResponse(user), nil
}

// List retrieves users with filters and pagination.
func (s *Service) List(ctx context.Context, req transport.ListUsersRequest) (transport.UserListResponse, error) {
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

	if req.Role != nil {
		role := strings.ToUpper(*req.Role)
		if !domain.ValidRole(role) {
			return transport.UserListResponse{}, apperr.Validation("invalid role filter")
		}
	}

	users, total, err := s.repo.List(ctx, repository.ListParams{
		Role:   req.Role,
		Search: req.Search,
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	})
	if err != nil {
		return transport.UserListResponse{}, err
	}

	items := make([]transport.UserResponse, len(users))
	for i, user := range users {
		items[i] = toResponse(user)
	}

	return transport.UserListResponse{Items: items, Total: total, Page: page}, nil
}

// ListTechnicians retrieves all active technician accounts.
func (s *Service) ListTechnicians(ctx context.Context) ([]transport.UserResponse, error) {
	users, err := s.repo.ListTechnicians(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]transport.UserResponse, len(users))
	for i, user := range users {
		items[i] = toResponse(user)
	}
	return items, nil
}

// Update modifies mutable user fields.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateUserRequest) (transport.UserResponse, error) {
	var role *string
	if req.Role != nil {
		upper := strings.ToUpper(*req.Role)
		if !domain.ValidRole(upper) {
			return transport.UserResponse{}, apperr.Validation("invalid role")
		}
		role = &upper
	}

	var phoneNumber *string
	if req.Phone != nil && strings.TrimSpace(*req.Phone) != "" {
		normalized := phone.NormalizeE164(*req.Phone, s.cfg.GetPhoneDefaultRegion())
		phoneNumber = &normalized
	}

	user, err := s.repo.Update(ctx, repository.UpdateParams{
		ID:       id,
		FullName: req.FullName,
		Phone:    phoneNumber,
		Role:     role,
	})
	if err != nil {
		return transport.UserResponse{}, err
	}

	s.log.Info("user updated", "id", user.ID)
	return toResponse(user), nil
}

// Deactivate disables an account without deleting it. History stays intact
// for analytics.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.log.Info("user deactivated", "id", id)
	return nil
}

// Activate re-enables a previously deactivated account.
func (s *Service) Activate(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SetActive(ctx, id, true); err != nil {
		return err
	}
	s.log.Info("user activated", "id", id)
	return nil
}

func toResponse(u repository.User) transport.UserResponse {
	return transport.UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Phone:     u.Phone,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
