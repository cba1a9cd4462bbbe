// Package dashboard provides the analytics bounded context module: rollup
// aggregation, cached dashboard reads, and the volume forecast.
package dashboard

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"fieldops_backend/internal/dashboard/aggregation"
	"fieldops_backend/internal/dashboard/forecast"
	"fieldops_backend/internal/dashboard/handler"
	"fieldops_backend/internal/dashboard/repository"
	"fieldops_backend/internal/dashboard/service"
	apphttp "fieldops_backend/internal/http"
	"fieldops_backend/platform/cache"
	"fieldops_backend/platform/config"
	"fieldops_backend/platform/logger"
	"fieldops_backend/platform/metrics"
)

// Module is the dashboard bounded context module implementing http.Module.
type Module struct {
	handler     *handler.Handler
	repo        repository.Repository
	aggregation *aggregation.Service
}

// NewModule creates and initializes the dashboard module with all its
// dependencies. The queue is optional; without it, manual refreshes run
// inline instead of on the worker.
func NewModule(pool *pgxpool.Pool, c *cache.Cache, cfg config.AnalyticsConfig, queue handler.RefreshEnqueuer, log *logger.Logger, m *metrics.Metrics) *Module {
	repo := repository.New(pool)
	aggregationSvc := aggregation.New(repo, c, cfg, log, m)
	forecastSvc := forecast.New(repo, log)
	svc := service.New(repo, c, log, m)
	h := handler.New(svc, forecastSvc, aggregationSvc, queue, log)

	return &Module{
		handler:     h,
		repo:        repo,
		aggregation: aggregationSvc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "dashboard"
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// Aggregation returns the aggregation service for scheduler wiring.
func (m *Module) Aggregation() *aggregation.Service {
	return m.aggregation
}

// RegisterRoutes mounts dashboard routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/dashboard")
	group.GET("/summary", m.handler.Summary)
	group.GET("/status-trends", m.handler.StatusTrends)
	group.GET("/technician-load", m.handler.TechnicianLoad)
	group.GET("/map", m.handler.Map)
	group.GET("/forecast", m.handler.Forecast)
	group.GET("/insights", m.handler.Insights)

	ctx.Admin.POST("/dashboard/refresh", m.handler.Refresh)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
