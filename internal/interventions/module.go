// Package interventions provides the interventions bounded context module:
// job CRUD, the lifecycle state machine, and the assignment recommendation
// engine.
package interventions

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"fieldops_backend/internal/events"
	apphttp "fieldops_backend/internal/http"
	"fieldops_backend/internal/interventions/handler"
	"fieldops_backend/internal/interventions/repository"
	"fieldops_backend/internal/interventions/scoring"
	"fieldops_backend/internal/interventions/service"
	userdomain "fieldops_backend/internal/users/domain"
	"fieldops_backend/platform/httpkit"
	"fieldops_backend/platform/logger"
	"fieldops_backend/platform/metrics"
	"fieldops_backend/platform/validator"
)

// Module is the interventions bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the interventions module. The technician
// directory, candidate pool, and load reader come from other contexts and are
// injected by the composition root; the history reader is built over this
// module's own repository.
func NewModule(
	pool *pgxpool.Pool,
	bus events.Bus,
	directory service.TechnicianDirectory,
	candidates scoring.TechnicianLister,
	loads scoring.LoadReader,
	history func(repository.InterventionReader) scoring.HistoryReader,
	val *validator.Validator,
	log *logger.Logger,
	m *metrics.Metrics,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, directory, bus, log)
	scoringSvc := scoring.New(candidates, loads, history(repo), log, m)
	h := handler.New(svc, scoringSvc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "interventions"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts intervention routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	dispatch := httpkit.RequireAnyRole(userdomain.RoleAdmin, userdomain.RoleDispatcher)

	group := ctx.Protected.Group("/interventions")
	group.GET("", m.handler.List)
	group.POST("", dispatch, m.handler.Create)
	group.GET("/:id", m.handler.GetByID)
	group.PUT("/:id", dispatch, m.handler.Update)
	group.PATCH("/:id/status", m.handler.UpdateStatus)
	group.POST("/assignment/recommend", dispatch, m.handler.Recommend)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
