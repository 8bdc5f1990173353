package predict

import (
	"context"
	"time"

	"github.com/fieldops/backend/internal/models"
)

// Features is the flat payload sent to the prediction service. Missing
// values stay nil so the model side can impute them.
type Features struct {
	AssignedTechnicianID     *string  `json:"assigned_technician_id"`
	DistanceKm               *float64 `json:"distance_km"`
	EstimatedDurationMinutes *int     `json:"estimated_duration_minutes"`
	IsPeakHour               int      `json:"is_peak_hour"`
	NumRequiredSkills        *int     `json:"num_required_skills"`
	TechSkillMatchCount      *int     `json:"tech_skill_match_count"`
	TimeOfDay                *string  `json:"time_of_day"`
	Weekday                  *string  `json:"weekday"`
}

type DurationResult struct {
	PredictedMinutes float64 `json:"predicted_minutes"`
	ModelVersion     string  `json:"model_version,omitempty"`
	Fallback         bool    `json:"fallback"`
	UsedML           bool    `json:"used_ml"`
}

type NoShowResult struct {
	Predicted    int     `json:"predicted"`
	Probability  float64 `json:"probability"`
	ModelVersion string  `json:"model_version,omitempty"`
	Fallback     bool    `json:"fallback"`
	UsedML       bool    `json:"used_ml"`
}

// Service is a raw prediction backend, remote or mocked. Rollout, caching
// and fallback live in Client, not here.
type Service interface {
	PredictDuration(ctx context.Context, f Features) (DurationResult, error)
	PredictNoShow(ctx context.Context, f Features) (NoShowResult, error)
}

// JobFeatures derives a feature payload and a stable rollout key ("job:<id>")
// from a job record.
func JobFeatures(job models.Job, distanceKm *float64) (Features, string) {
	f := Features{
		AssignedTechnicianID: job.AssignedTechnicianID,
		DistanceKm:           distanceKm,
	}
	if job.EstimatedDurationMinutes > 0 {
		d := job.EstimatedDurationMinutes
		f.EstimatedDurationMinutes = &d
	}
	if n := len(job.RequiredSkills); n > 0 {
		f.NumRequiredSkills = &n
	}
	if job.WindowStart != nil {
		ws := job.WindowStart.UTC()
		wd := ws.Weekday().String()
		f.Weekday = &wd
		tod := timeOfDay(ws)
		f.TimeOfDay = &tod
		if h := ws.Hour(); (h >= 8 && h < 11) || (h >= 17 && h < 20) {
			f.IsPeakHour = 1
		}
	}
	return f, "job:" + job.ID
}

func timeOfDay(t time.Time) string {
	switch h := t.Hour(); {
	case h < 6:
		return "night"
	case h < 12:
		return "morning"
	case h < 18:
		return "afternoon"
	default:
		return "evening"
	}
}
