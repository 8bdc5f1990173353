package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldops/backend/internal/db"
	"github.com/fieldops/backend/internal/dispatch"
	"github.com/fieldops/backend/internal/geo"
	"github.com/fieldops/backend/internal/geocode"
	"github.com/fieldops/backend/internal/models"
	"github.com/fieldops/backend/internal/predict"
	"github.com/fieldops/backend/internal/route"
)

// Dispatcher wires storage, scoring, routing and prediction into the
// operations the API exposes.
type Dispatcher struct {
	Store    *db.Store
	Predict  *predict.Client
	Geocoder geocode.Geocoder
	Orderer  *route.Orderer
	Weights  dispatch.Weights
	SpeedKmh float64
	Logger   zerolog.Logger
}

func (d *Dispatcher) speed() float64 {
	if d.SpeedKmh > 0 {
		return d.SpeedKmh
	}
	return route.DefaultSpeedKmh
}

// CreateJob persists a new job, resolving coordinates from the address when
// they are missing. Geocoding is best effort: a lookup failure never blocks
// the create.
func (d *Dispatcher) CreateJob(ctx context.Context, j models.Job) (models.Job, error) {
	if d.Geocoder != nil && geocode.ShouldGeocode(j, false) {
		if q := geocode.BuildJobQuery("", j.Address); q != "" {
			lat, lon, _, _, err := d.Geocoder.Geocode(ctx, q)
			if err != nil {
				d.Logger.Warn().Err(err).Str("address", j.Address).Msg("geocode failed")
			} else {
				j.Lat, j.Lon = &lat, &lon
			}
		}
	}
	return d.Store.CreateJob(ctx, j)
}

// Candidates scores every technician against the job and returns the ranked
// list.
func (d *Dispatcher) Candidates(ctx context.Context, jobID string) (models.Job, []dispatch.CandidateResult, error) {
	job, err := d.Store.GetJob(ctx, jobID)
	if err != nil {
		return models.Job{}, nil, err
	}
	pool, counts, err := d.scoringInputs(ctx)
	if err != nil {
		return models.Job{}, nil, err
	}
	return job, dispatch.ScoreCandidates(job, pool, counts, d.Weights), nil
}

type AssignResult struct {
	Job      models.Job
	Decision Decision
}

// AutoAssign chooses a technician for the job and commits the assignment
// with an audit record. allowReassign permits overwriting an existing
// assignment; otherwise a concurrent or prior assignment surfaces as
// db.ErrAlreadyAssigned.
func (d *Dispatcher) AutoAssign(ctx context.Context, jobID string, in AssignInput, allowReassign bool, createdBy string) (AssignResult, error) {
	job, err := d.Store.GetJob(ctx, jobID)
	if err != nil {
		return AssignResult{}, err
	}
	if job.AssignedTechnicianID != nil && !allowReassign {
		return AssignResult{}, db.ErrAlreadyAssigned
	}

	pool, counts, err := d.scoringInputs(ctx)
	if err != nil {
		return AssignResult{}, err
	}

	decision, err := DecideAssignment(job, pool, counts, d.Weights, in)
	if err != nil {
		return AssignResult{Decision: decision}, err
	}

	breakdown, _ := json.Marshal(struct {
		Breakdown   dispatch.Breakdown   `json:"breakdown"`
		Explanation dispatch.Explanation `json:"explanation"`
	}{decision.Chosen.Breakdown, decision.Explanation})

	reason := "auto"
	if decision.Overridden {
		reason = "override: " + in.OverrideReason
	}

	techID := decision.Chosen.TechnicianID
	updated, err := d.Store.AssignJob(ctx, jobID, &techID, breakdown, reason, createdBy, allowReassign)
	if err != nil {
		return AssignResult{Decision: decision}, err
	}

	d.Logger.Info().
		Str("job_id", jobID).
		Str("technician_id", techID).
		Float64("score", decision.Chosen.Score).
		Bool("overridden", decision.Overridden).
		Msg("job assigned")

	return AssignResult{Job: updated, Decision: decision}, nil
}

// PredictJobDuration runs the duration model for a job, using the distance
// to its assigned technician as a feature when both positions are known.
func (d *Dispatcher) PredictJobDuration(ctx context.Context, jobID string) (predict.DurationResult, error) {
	f, key, err := d.jobFeatures(ctx, jobID)
	if err != nil {
		return predict.DurationResult{}, err
	}
	return d.Predict.Duration(ctx, key, f)
}

func (d *Dispatcher) PredictJobNoShow(ctx context.Context, jobID string) (predict.NoShowResult, error) {
	f, key, err := d.jobFeatures(ctx, jobID)
	if err != nil {
		return predict.NoShowResult{}, err
	}
	return d.Predict.NoShow(ctx, key, f)
}

func (d *Dispatcher) jobFeatures(ctx context.Context, jobID string) (predict.Features, string, error) {
	job, err := d.Store.GetJob(ctx, jobID)
	if err != nil {
		return predict.Features{}, "", err
	}
	var distKm *float64
	if job.AssignedTechnicianID != nil {
		tech, err := d.Store.GetTechnician(ctx, *job.AssignedTechnicianID)
		if err == nil {
			distKm = geo.DistanceKm(tech.LastLat, tech.LastLon, job.Lat, job.Lon)
		}
	}
	f, key := predict.JobFeatures(job, distKm)
	return f, key, nil
}

func (d *Dispatcher) scoringInputs(ctx context.Context) ([]models.Technician, map[string]dispatch.WorkloadCounts, error) {
	pool, err := d.Store.ListTechnicians(ctx)
	if err != nil {
		return nil, nil, err
	}
	counts, err := d.Store.WorkloadCounts(ctx, time.Now().UTC().Add(-dispatch.RecentAssignmentWindow))
	if err != nil {
		return nil, nil, err
	}
	return pool, counts, nil
}
