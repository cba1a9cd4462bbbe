package service

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"fieldops_backend/internal/auth/token"
	"fieldops_backend/internal/auth/transport"
	"fieldops_backend/internal/users/repository"
	"fieldops_backend/platform/apperr"
	"fieldops_backend/platform/config"
	"fieldops_backend/platform/logger"
)

const invalidCredentialsMessage = "invalid credentials"

// Service provides authentication business logic.
type Service struct {
	users repository.UserReader
	cfg   config.AuthServiceConfig
	log   *logger.Logger
}

// New creates a new auth service.
func New(users repository.UserReader, cfg config.AuthServiceConfig, log *logger.Logger) *Service {
	return &Service{users: users, cfg: cfg, log: log}
}

// Login verifies credentials and issues an access token. Disabled accounts
// and unknown emails both return the same unauthorized error.
func (s *Service) Login(ctx context.Context, req transport.LoginRequest) (transport.LoginResponse, error) {
	email := strings.TrimSpace(req.Email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		s.log.AuthEvent("login", email, false, "unknown email")
		return transport.LoginResponse{}, apperr.Unauthorized(invalidCredentialsMessage)
	}

	if !user.IsActive {
		s.log.AuthEvent("login", email, false, "account disabled")
		return transport.LoginResponse{}, apperr.Unauthorized(invalidCredentialsMessage)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.log.AuthEvent("login", email, false, "wrong password")
		return transport.LoginResponse{}, apperr.Unauthorized(invalidCredentialsMessage)
	}

	ttl := s.cfg.GetAccessTokenTTL()
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	accessToken, err := token.IssueAccessToken(s.cfg.GetJWTAccessSecret(), user.ID, []string{user.Role}, ttl)
	if err != nil {
		return transport.LoginResponse{}, apperr.Wrap(apperr.KindInternal, "failed to sign token", err)
	}

	s.log.AuthEvent("login", email, true, "")

	return transport.LoginResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(ttl.Seconds()),
		User: transport.UserSummary{
			ID:       user.ID,
			Email:    user.Email,
			FullName: user.FullName,
			Role:     user.Role,
		},
	}, nil
}
