// Package auth provides the authentication bounded context module.
package auth

import (
	"fieldops_backend/internal/auth/handler"
	"fieldops_backend/internal/auth/service"
	apphttp "fieldops_backend/internal/http"
	usersrepo "fieldops_backend/internal/users/repository"
	"fieldops_backend/platform/config"
	"fieldops_backend/platform/logger"
	"fieldops_backend/platform/validator"
)

// Module is the auth bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the auth module. Credentials are read
// through the users repository; auth does not own account storage.
func NewModule(users usersrepo.UserReader, cfg config.AuthServiceConfig, log *logger.Logger, val *validator.Validator) *Module {
	svc := service.New(users, cfg, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "auth"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts auth routes with the stricter auth rate limiter.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	authGroup := ctx.V1.Group("/auth")
	authGroup.Use(ctx.AuthRateLimiter.RateLimit())
	authGroup.POST("/login", m.handler.Login)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
