package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"github.com/fieldops/backend/internal/db"
	"github.com/fieldops/backend/internal/service"
)

// @Summary Rank candidates for a job
// @Tags dispatch
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} map[string]any
// @Router /api/jobs/{id}/candidates [get]
func (h *Handler) Candidates(c *gin.Context) {
	job, candidates, err := h.Dispatcher.Candidates(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Job not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to score candidates", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"job_id": job.ID, "candidates": candidates})
}

type AssignRequest struct {
	TechnicianID   *string `json:"technician_id"`
	Force          bool    `json:"force"`
	OverrideReason string  `json:"override_reason"`
	AllowReassign  bool    `json:"allow_reassign"`
}

// @Summary Assign a job
// @Description Automatically selects the best technician, or a specific one
// when technician_id is set. Fatigue warnings block unless force is set with
// an override reason.
// @Tags dispatch
// @Accept json
// @Produce json
// @Param id path string true "Job ID"
// @Param request body AssignRequest false "Assignment options"
// @Success 200 {object} map[string]any
// @Failure 409 {object} map[string]any
// @Router /api/jobs/{id}/assign [post]
func (h *Handler) Assign(c *gin.Context) {
	var req AssignRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
			return
		}
	}

	result, err := h.Dispatcher.AutoAssign(c.Request.Context(), c.Param("id"), service.AssignInput{
		TechnicianID:   req.TechnicianID,
		Force:          req.Force,
		OverrideReason: req.OverrideReason,
	}, req.AllowReassign, requestActor(c))
	if err != nil {
		h.writeAssignError(c, err, result)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job":         result.Job,
		"chosen":      result.Decision.Chosen,
		"candidates":  result.Decision.Selection.Candidates,
		"explanation": result.Decision.Explanation,
		"overridden":  result.Decision.Overridden,
	})
}

func (h *Handler) writeAssignError(c *gin.Context, err error, result service.AssignResult) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Job not found", nil)
	case errors.Is(err, db.ErrAlreadyAssigned):
		writeError(c, http.StatusConflict, "ALREADY_ASSIGNED", "Job already has a technician", nil)
	case errors.Is(err, service.ErrNoCandidate):
		writeError(c, http.StatusUnprocessableEntity, "NO_CANDIDATES", "No eligible technician", nil)
	case errors.Is(err, service.ErrUnsafeSelection):
		writeError(c, http.StatusConflict, "OVERRIDE_REQUIRED", "Top candidate has a fatigue warning; retry with force and a reason", gin.H{
			"warnings":   result.Decision.Selection.WarningReasons,
			"candidates": result.Decision.Selection.Candidates,
		})
	case errors.Is(err, service.ErrOverrideReasonShort):
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "override_reason is required", nil)
	case errors.Is(err, service.ErrTechnicianNotEligible):
		writeError(c, http.StatusUnprocessableEntity, "TECH_NOT_ELIGIBLE", "Technician is not in the candidate pool", nil)
	default:
		writeError(c, http.StatusInternalServerError, "ASSIGN_ERROR", "Assignment failed", err.Error())
	}
}

// @Summary Technician itinerary
// @Tags routing
// @Produce json
// @Param id path string true "Technician ID"
// @Param optimize query bool false "Also return an optimized stop order"
// @Success 200 {object} service.ItineraryResult
// @Router /api/technicians/{id}/itinerary [get]
func (h *Handler) Itinerary(c *gin.Context) {
	optimize := c.Query("optimize")
	result, err := h.Dispatcher.Itinerary(c.Request.Context(), c.Param("id"),
		optimize == "1" || strings.EqualFold(optimize, "true"), time.Now().UTC())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Technician not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to build itinerary", err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

func requestActor(c *gin.Context) string {
	if actor := strings.TrimSpace(c.GetHeader("X-Actor")); actor != "" {
		return actor
	}
	return "api"
}
