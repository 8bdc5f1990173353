package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/fieldops/backend/internal/db"
	"github.com/fieldops/backend/internal/models"
	"github.com/fieldops/backend/internal/service"
	"github.com/fieldops/backend/internal/sla"
)

type Handler struct {
	Store      *db.Store
	Dispatcher *service.Dispatcher
	SLA        *sla.Engine
	Validator  *validator.Validate
	Logger     zerolog.Logger
	AdminKey   string
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type CreateJobRequest struct {
	CustomerName             string     `json:"customer_name"`
	Address                  string     `json:"address"`
	Lat                      *float64   `json:"lat" validate:"omitempty,gte=-90,lte=90"`
	Lon                      *float64   `json:"lon" validate:"omitempty,gte=-180,lte=180"`
	WindowStart              *time.Time `json:"requested_window_start"`
	WindowEnd                *time.Time `json:"requested_window_end"`
	RequiredSkills           []string   `json:"required_skills"`
	EstimatedDurationMinutes int        `json:"estimated_duration_minutes" validate:"gte=0"`
	Notes                    string     `json:"notes"`
}

// @Summary Create job
// @Tags jobs
// @Accept json
// @Produce json
// @Param job body CreateJobRequest true "Job"
// @Success 201 {object} models.Job
// @Failure 400 {object} map[string]any
// @Router /api/jobs [post]
func (h *Handler) CreateJob(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	if req.WindowStart != nil && req.WindowEnd != nil && req.WindowEnd.Before(*req.WindowStart) {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "window end before window start", nil)
		return
	}

	job, err := h.Dispatcher.CreateJob(c.Request.Context(), models.Job{
		CustomerName:             req.CustomerName,
		Address:                  req.Address,
		Lat:                      req.Lat,
		Lon:                      req.Lon,
		WindowStart:              req.WindowStart,
		WindowEnd:                req.WindowEnd,
		RequiredSkills:           req.RequiredSkills,
		EstimatedDurationMinutes: req.EstimatedDurationMinutes,
		Notes:                    req.Notes,
	})
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to create job", err.Error())
		return
	}
	c.JSON(http.StatusCreated, job)
}

func (h *Handler) JobsList(c *gin.Context) {
	status := strings.TrimSpace(c.Query("status"))
	q := c.Query("q")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, err := h.Store.ListJobs(c.Request.Context(), status, q, limit, offset)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list jobs", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "limit": limit, "offset": offset})
}

func (h *Handler) JobDetails(c *gin.Context) {
	id := c.Param("id")
	job, err := h.Store.GetJob(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Job not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to get job", err.Error())
		return
	}

	history, err := h.Store.ListAssignments(c.Request.Context(), id)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load assignment history", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": job, "assignments": history})
}

type UpdateJobStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=new assigned in_progress done cancelled"`
}

func (h *Handler) UpdateJobStatus(c *gin.Context) {
	var req UpdateJobStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	if err := h.Store.UpdateJobStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Job not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to update status", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type CreateTechnicianRequest struct {
	Name    string   `json:"name" validate:"required"`
	Skills  []string `json:"skills"`
	Status  string   `json:"status" validate:"omitempty,oneof=available busy offshift"`
	LastLat *float64 `json:"last_lat" validate:"omitempty,gte=-90,lte=90"`
	LastLon *float64 `json:"last_lon" validate:"omitempty,gte=-180,lte=180"`
}

func (h *Handler) CreateTechnician(c *gin.Context) {
	var req CreateTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	tech, err := h.Store.CreateTechnician(c.Request.Context(), models.Technician{
		Name:    req.Name,
		Skills:  req.Skills,
		Status:  req.Status,
		LastLat: req.LastLat,
		LastLon: req.LastLon,
	})
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to create technician", err.Error())
		return
	}
	c.JSON(http.StatusCreated, tech)
}

func (h *Handler) TechniciansList(c *gin.Context) {
	items, err := h.Store.ListTechnicians(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list technicians", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type PositionRequest struct {
	Lat    float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon    float64 `json:"lon" validate:"required,gte=-180,lte=180"`
	Status string  `json:"status" validate:"omitempty,oneof=available busy offshift"`
}

// @Summary Update technician position
// @Tags technicians
// @Accept json
// @Produce json
// @Param id path string true "Technician ID"
// @Param position body PositionRequest true "Position"
// @Success 200 {object} models.Technician
// @Router /api/technicians/{id}/position [post]
func (h *Handler) UpdatePosition(c *gin.Context) {
	var req PositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	tech, err := h.Store.UpdateTechnicianPosition(c.Request.Context(), c.Param("id"), req.Lat, req.Lon, req.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Technician not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to update position", err.Error())
		return
	}
	c.JSON(http.StatusOK, tech)
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
