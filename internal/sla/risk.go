// Package sla predicts arrival-vs-deadline risk for assigned jobs and raises
// mitigation actions for a dispatcher to act on.
package sla

import (
	"time"

	"github.com/fieldops/backend/internal/geo"
	"github.com/fieldops/backend/internal/models"
)

const (
	DefaultSpeedKmh = 40.0

	// delta > HighRiskMinutes => high; delta >= -MediumRiskMinutes => medium.
	// A predicted arrival exactly on the deadline (delta == 0) is medium.
	HighRiskMinutes   = 0.0
	MediumRiskMinutes = 15.0

	// Delta is clamped to ±ClampMinutes before normalizing to [0,1].
	ClampMinutes = 120.0
)

// Assessment is the risk verdict for one job.
type Assessment struct {
	PredictedArrival time.Time `json:"predicted_arrival"`
	Deadline         time.Time `json:"deadline"`
	DeltaMinutes     float64   `json:"delta_minutes"`
	RiskScore        float64   `json:"risk_score"`
	Level            string    `json:"risk_level"`
	TravelMinutes    *float64  `json:"travel_minutes"`
	QueueMinutes     float64   `json:"queue_minutes"`
}

// Deadline is the job's requested window end, or window start plus estimated
// duration when no explicit end exists. ok is false when neither is known.
func Deadline(job models.Job) (time.Time, bool) {
	if job.WindowEnd != nil {
		return *job.WindowEnd, true
	}
	if job.WindowStart != nil {
		return job.WindowStart.Add(time.Duration(job.EstimatedDurationMinutes) * time.Minute), true
	}
	return time.Time{}, false
}

// QueueMinutes estimates how long the technician's other active jobs delay
// this one. A job counts toward the queue when its window start is at or
// before this job's, or when the comparison is impossible — a conservative
// over-estimate is preferred over an under-estimate.
func QueueMinutes(job models.Job, others []models.Job) float64 {
	total := 0.0
	for _, other := range others {
		if other.ID == job.ID {
			continue
		}
		runsBefore := true
		if other.WindowStart != nil && job.WindowStart != nil {
			runsBefore = !other.WindowStart.After(*job.WindowStart)
		}
		if runsBefore {
			svc := other.EstimatedDurationMinutes
			if svc < 0 {
				svc = 0
			}
			total += float64(svc)
		}
	}
	return total
}

// Assess predicts the arrival time for an assigned job and classifies the
// SLA risk. ok is false when the job carries no usable deadline.
func Assess(job models.Job, tech models.Technician, otherActive []models.Job, now time.Time, speedKmh float64) (Assessment, bool) {
	deadline, ok := Deadline(job)
	if !ok {
		return Assessment{}, false
	}
	if speedKmh <= 0 {
		speedKmh = DefaultSpeedKmh
	}

	queue := QueueMinutes(job, otherActive)
	travel := geo.TravelMinutes(geo.DistanceKm(job.Lat, job.Lon, tech.LastLat, tech.LastLon), speedKmh)

	delayMinutes := queue
	if travel != nil {
		delayMinutes += *travel
	}
	predicted := now.Add(time.Duration(delayMinutes * float64(time.Minute)))

	delta := predicted.Sub(deadline).Minutes()
	clamped := delta
	if clamped > ClampMinutes {
		clamped = ClampMinutes
	}
	if clamped < -ClampMinutes {
		clamped = -ClampMinutes
	}
	score := (clamped + ClampMinutes) / (2 * ClampMinutes)

	level := models.RiskLow
	switch {
	case delta > HighRiskMinutes:
		level = models.RiskHigh
	case delta >= -MediumRiskMinutes:
		level = models.RiskMedium
	}

	return Assessment{
		PredictedArrival: predicted,
		Deadline:         deadline,
		DeltaMinutes:     delta,
		RiskScore:        score,
		Level:            level,
		TravelMinutes:    travel,
		QueueMinutes:     queue,
	}, true
}
