// Package users provides the user accounts bounded context module.
// It manages administrator, dispatcher, and technician accounts.
package users

import (
	"fieldops_backend/internal/events"
	apphttp "fieldops_backend/internal/http"
	"fieldops_backend/internal/users/handler"
	"fieldops_backend/internal/users/repository"
	"fieldops_backend/internal/users/service"
	"fieldops_backend/platform/config"
	"fieldops_backend/platform/logger"
	"fieldops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the users bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the users module with all its dependencies.
func NewModule(pool *pgxpool.Pool, bus events.Bus, cfg config.PhoneConfig, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, cfg, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "users"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts user routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/users/me", m.handler.Me)
	ctx.Protected.GET("/technicians", m.handler.ListTechnicians)

	adminGroup := ctx.Admin.Group("/users")
	adminGroup.GET("", m.handler.List)
	adminGroup.POST("", m.handler.Create)
	adminGroup.GET("/:id", m.handler.GetByID)
	adminGroup.PUT("/:id", m.handler.Update)
	adminGroup.PATCH("/:id/deactivate", m.handler.Deactivate)
	adminGroup.PATCH("/:id/activate", m.handler.Activate)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
