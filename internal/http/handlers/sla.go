package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"github.com/fieldops/backend/internal/service"
)

// @Summary Pending SLA actions
// @Tags sla
// @Produce json
// @Param limit query int false "Max rows"
// @Success 200 {object} map[string]any
// @Router /api/sla/actions [get]
func (h *Handler) SLAOverview(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	items, err := h.Store.ListPendingSLAActions(c.Request.Context(), limit)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list SLA actions", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type MitigateRequest struct {
	Action       string  `json:"action" validate:"omitempty,oneof=reassign notify escalate ignored"`
	TechnicianID *string `json:"technician_id"`
	Reason       string  `json:"reason"`
}

// @Summary Apply a pending SLA action
// @Tags sla
// @Accept json
// @Produce json
// @Param id path string true "SLA action ID"
// @Param request body MitigateRequest false "Mitigation options"
// @Success 200 {object} service.MitigateResult
// @Failure 409 {object} map[string]any
// @Router /api/sla/actions/{id}/mitigate [post]
func (h *Handler) MitigateSLA(c *gin.Context) {
	var req MitigateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
			return
		}
		if err := h.Validator.Struct(req); err != nil {
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
			return
		}
	}

	result, err := h.Dispatcher.MitigateSLA(c.Request.Context(), c.Param("id"), service.MitigateInput{
		Action:       req.Action,
		TechnicianID: req.TechnicianID,
		Reason:       req.Reason,
		AppliedBy:    requestActor(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			writeError(c, http.StatusNotFound, "NOT_FOUND", "SLA action not found", nil)
		case errors.Is(err, service.ErrActionNotPending):
			writeError(c, http.StatusConflict, "NOT_PENDING", "SLA action was already applied or ignored", nil)
		case errors.Is(err, service.ErrNoReassignTarget):
			writeError(c, http.StatusUnprocessableEntity, "NO_TARGET", "No technician to reassign to", nil)
		case errors.Is(err, service.ErrOverrideReasonShort):
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "reason is required for reassignment", nil)
		case errors.Is(err, service.ErrTechnicianNotEligible):
			writeError(c, http.StatusUnprocessableEntity, "TECH_NOT_ELIGIBLE", "Technician is not in the candidate pool", nil)
		default:
			writeError(c, http.StatusInternalServerError, "MITIGATION_ERROR", "Mitigation failed", err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

// @Summary Trigger an SLA risk sweep
// @Tags sla
// @Produce json
// @Success 200 {object} sla.SweepResult
// @Router /api/sla/sweep [post]
func (h *Handler) SLASweep(c *gin.Context) {
	result, err := h.SLA.Sweep(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "SWEEP_ERROR", "SLA sweep failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}
