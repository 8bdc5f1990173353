package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

type PredictRequest struct {
	JobID string `json:"job_id" validate:"required"`
}

// @Summary Predict job duration
// @Tags predict
// @Accept json
// @Produce json
// @Param request body PredictRequest true "Job reference"
// @Success 200 {object} predict.DurationResult
// @Router /api/predict/duration [post]
func (h *Handler) PredictDuration(c *gin.Context) {
	jobID, ok := h.bindPredictRequest(c)
	if !ok {
		return
	}
	result, err := h.Dispatcher.PredictJobDuration(c.Request.Context(), jobID)
	if err != nil {
		h.writePredictError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// @Summary Predict job no-show
// @Tags predict
// @Accept json
// @Produce json
// @Param request body PredictRequest true "Job reference"
// @Success 200 {object} predict.NoShowResult
// @Router /api/predict/noshow [post]
func (h *Handler) PredictNoShow(c *gin.Context) {
	jobID, ok := h.bindPredictRequest(c)
	if !ok {
		return
	}
	result, err := h.Dispatcher.PredictJobNoShow(c.Request.Context(), jobID)
	if err != nil {
		h.writePredictError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) bindPredictRequest(c *gin.Context) (string, bool) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return "", false
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "job_id is required", err.Error())
		return "", false
	}
	return req.JobID, true
}

func (h *Handler) writePredictError(c *gin.Context, err error) {
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Job not found", nil)
		return
	}
	writeError(c, http.StatusBadGateway, "PREDICTION_ERROR", "Prediction failed", err.Error())
}
