package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

func testHandler() *Handler {
	return &Handler{Validator: validator.New(), Logger: zerolog.Nop()}
}

func performJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if body != "" {
		req.ContentLength = int64(len(body))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateJobRejectsInvalidPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := testHandler()
	r := gin.New()
	r.POST("/api/jobs", h.CreateJob)

	w := performJSON(r, http.MethodPost, "/api/jobs", `{"estimated_duration_minutes": "ninety"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}

	w = performJSON(r, http.MethodPost, "/api/jobs", `{"estimated_duration_minutes": -5}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative duration, got %d", w.Code)
	}
}

func TestCreateJobRejectsOutOfRangeCoordinates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := testHandler()
	r := gin.New()
	r.POST("/api/jobs", h.CreateJob)

	w := performJSON(r, http.MethodPost, "/api/jobs", `{"lat": 999.0, "lon": 0.0}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for latitude out of range, got %d: %s", w.Code, w.Body.String())
	}

	w = performJSON(r, http.MethodPost, "/api/jobs", `{"lat": 0.0, "lon": -200.0}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for longitude out of range, got %d", w.Code)
	}
}

func TestCreateJobRejectsInvertedWindow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := testHandler()
	r := gin.New()
	r.POST("/api/jobs", h.CreateJob)

	body := `{"requested_window_start":"2026-08-26T12:00:00Z","requested_window_end":"2026-08-26T09:00:00Z"}`
	w := performJSON(r, http.MethodPost, "/api/jobs", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for inverted window, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "VALIDATION_ERROR") {
		t.Fatalf("expected VALIDATION_ERROR envelope, got %s", w.Body.String())
	}
}

func TestUpdateJobStatusRejectsUnknownStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := testHandler()
	r := gin.New()
	r.PATCH("/api/jobs/:id/status", h.UpdateJobStatus)

	w := performJSON(r, http.MethodPatch, "/api/jobs/j1/status", `{"status":"teleported"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUpdatePositionRejectsOutOfRange(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := testHandler()
	r := gin.New()
	r.POST("/api/technicians/:id/position", h.UpdatePosition)

	w := performJSON(r, http.MethodPost, "/api/technicians/t1/position", `{"lat": 123.0, "lon": 10.0}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for latitude out of range, got %d", w.Code)
	}
}

func TestPredictRequiresJobID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := testHandler()
	r := gin.New()
	r.POST("/api/predict/duration", h.PredictDuration)

	w := performJSON(r, http.MethodPost, "/api/predict/duration", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAssignRejectsMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := testHandler()
	r := gin.New()
	r.POST("/api/jobs/:id/assign", h.Assign)

	w := performJSON(r, http.MethodPost, "/api/jobs/j1/assign", `{"force": "yes"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestMitigateRejectsUnknownAction(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := testHandler()
	r := gin.New()
	r.POST("/api/sla/actions/:id/mitigate", h.MitigateSLA)

	w := performJSON(r, http.MethodPost, "/api/sla/actions/a1/mitigate", `{"action":"yeet"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}
