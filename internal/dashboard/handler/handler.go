// Package handler exposes the dashboard HTTP endpoints.
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"fieldops_backend/internal/dashboard/aggregation"
	"fieldops_backend/internal/dashboard/forecast"
	"fieldops_backend/internal/dashboard/service"
	"fieldops_backend/internal/dashboard/transport"
	userdomain "fieldops_backend/internal/users/domain"
	"fieldops_backend/platform/httpkit"
	"fieldops_backend/platform/logger"
)

const msgInvalidRequest = "invalid request"

// RefreshEnqueuer hands a refresh off to the background worker.
type RefreshEnqueuer interface {
	EnqueueAnalyticsRefresh(ctx context.Context) error
}

// Handler handles HTTP requests for dashboard reads and the manual refresh.
type Handler struct {
	svc         *service.Service
	forecast    *forecast.Service
	aggregation *aggregation.Service
	queue       RefreshEnqueuer
	log         *logger.Logger
}

// New creates a new dashboard handler. The queue may be nil, in which case
// manual refreshes run inline.
func New(svc *service.Service, forecastSvc *forecast.Service, aggregationSvc *aggregation.Service, queue RefreshEnqueuer, log *logger.Logger) *Handler {
	return &Handler{svc: svc, forecast: forecastSvc, aggregation: aggregationSvc, queue: queue, log: log}
}

// Summary returns the daily counts for one date.
// GET /api/v1/dashboard/summary
func (h *Handler) Summary(c *gin.Context) {
	var req transport.SummaryQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	scope := userdomain.ScopedTechnicianID(identity.UserID(), identity.Roles())
	result, err := h.svc.GetSummary(c.Request.Context(), req.Date, scope)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// StatusTrends returns per-day status counts over a date range.
// GET /api/v1/dashboard/status-trends
func (h *Handler) StatusTrends(c *gin.Context) {
	var req transport.TrendsQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	scope := userdomain.ScopedTechnicianID(identity.UserID(), identity.Roles())
	result, err := h.svc.GetStatusTrends(c.Request.Context(), req.From, req.To, scope)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// TechnicianLoad returns workload snapshots, busiest first.
// GET /api/v1/dashboard/technician-load
func (h *Handler) TechnicianLoad(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	scope := userdomain.ScopedTechnicianID(identity.UserID(), identity.Roles())
	result, err := h.svc.GetTechnicianLoad(c.Request.Context(), scope)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Map returns geo-tagged interventions. Admins see precise coordinates.
// GET /api/v1/dashboard/map
func (h *Handler) Map(c *gin.Context) {
	var req transport.MapQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	precise := identity.HasRole(userdomain.RoleAdmin)
	scope := userdomain.ScopedTechnicianID(identity.UserID(), identity.Roles())
	result, err := h.svc.GetMapMarkers(c.Request.Context(), req, precise, scope)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Forecast returns the 7-day volume projection.
// GET /api/v1/dashboard/forecast
func (h *Handler) Forecast(c *gin.Context) {
	var req transport.ForecastQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	scope := userdomain.ScopedTechnicianID(identity.UserID(), identity.Roles())
	result, err := h.forecast.Forecast(c.Request.Context(), req.Date, scope)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Insights returns the day-over-day activity read-out.
// GET /api/v1/dashboard/insights
func (h *Handler) Insights(c *gin.Context) {
	var req transport.ForecastQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	scope := userdomain.ScopedTechnicianID(identity.UserID(), identity.Roles())
	result, err := h.forecast.Insights(c.Request.Context(), req.Date, scope)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Refresh rebuilds the analytics rollups: queued to the worker when a task
// queue is configured, inline otherwise.
// POST /api/v1/admin/dashboard/refresh
func (h *Handler) Refresh(c *gin.Context) {
	if h.queue != nil {
		err := h.queue.EnqueueAnalyticsRefresh(c.Request.Context())
		if err == nil {
			c.Status(http.StatusAccepted)
			return
		}
		h.log.Warn("refresh enqueue failed, running inline", "error", err)
	}

	if err := h.aggregation.Refresh(c.Request.Context()); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusAccepted)
}
