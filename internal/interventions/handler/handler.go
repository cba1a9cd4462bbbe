package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fieldops_backend/internal/interventions/scoring"
	"fieldops_backend/internal/interventions/service"
	"fieldops_backend/internal/interventions/transport"
	userdomain "fieldops_backend/internal/users/domain"
	"fieldops_backend/platform/httpkit"
	"fieldops_backend/platform/validator"
)

// Handler handles HTTP requests for interventions.
type Handler struct {
	svc     *service.Service
	scoring *scoring.Service
	val     *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid intervention ID"
)

// New creates a new interventions handler.
func New(svc *service.Service, scoringSvc *scoring.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, scoring: scoringSvc, val: val}
}

// List retrieves interventions matching the query filters.
// GET /api/v1/interventions
func (h *Handler) List(c *gin.Context) {
	var req transport.ListInterventionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	scope := userdomain.ScopedTechnicianID(identity.UserID(), identity.Roles())
	result, err := h.svc.List(c.Request.Context(), req, scope)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetByID retrieves a single intervention.
// GET /api/v1/interventions/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	scope := userdomain.ScopedTechnicianID(identity.UserID(), identity.Roles())
	result, err := h.svc.GetByID(c.Request.Context(), id, scope)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Create registers a new intervention.
// POST /api/v1/interventions
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateInterventionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Create(c.Request.Context(), identity.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// Update rewrites an intervention.
// PUT /api/v1/interventions/:id
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.UpdateInterventionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Update(c.Request.Context(), identity.UserID(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// UpdateStatus advances the intervention lifecycle.
// PATCH /api/v1/interventions/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	scope := userdomain.ScopedTechnicianID(identity.UserID(), identity.Roles())
	result, err := h.svc.UpdateStatus(c.Request.Context(), identity.UserID(), id, req, scope)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Recommend scores technicians for a new job description.
// POST /api/v1/interventions/assignment/recommend
func (h *Handler) Recommend(c *gin.Context) {
	var req transport.RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.scoring.RecommendTechnician(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
