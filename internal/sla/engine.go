package sla

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldops/backend/internal/dispatch"
	"github.com/fieldops/backend/internal/models"
)

// Store is what the risk engine needs from persistence.
type Store interface {
	ListAssignedJobs(ctx context.Context, limit int) ([]models.Job, error)
	ListTechnicians(ctx context.Context) ([]models.Technician, error)
	GetTechnician(ctx context.Context, id string) (models.Technician, error)
	ListActiveJobsByTechnician(ctx context.Context, techID string) ([]models.Job, error)
	WorkloadCounts(ctx context.Context, since time.Time) (map[string]dispatch.WorkloadCounts, error)
	PendingSLAAction(ctx context.Context, jobID string) (*models.SLAAction, error)
	CreateSLAAction(ctx context.Context, action models.SLAAction) (models.SLAAction, error)
	EscalateSLAAction(ctx context.Context, id string, riskScore float64, level, recommendedAction string, suggested *string, meta []byte) error
}

// Engine runs the periodic risk sweep over assigned jobs. Per-job failures
// are logged and skipped; a broken job never aborts the batch.
type Engine struct {
	Store      Store
	Weights    dispatch.Weights
	SpeedKmh   float64
	BatchLimit int
	Logger     zerolog.Logger

	// Now overrides the sweep clock; nil means time.Now.
	Now func() time.Time
}

type SweepResult struct {
	Scanned   int `json:"scanned"`
	Created   int `json:"created"`
	Escalated int `json:"escalated"`
	Failed    int `json:"failed"`
}

type actionMeta struct {
	Diag       Assessment                 `json:"diag"`
	Candidates []dispatch.CandidateResult `json:"candidates,omitempty"`
}

// Sweep assesses a bounded slice of assigned jobs and creates or escalates
// pending SLAActions for medium/high risk. Pending actions are never
// downgraded: a lower re-assessment leaves them untouched.
func (e *Engine) Sweep(ctx context.Context) (SweepResult, error) {
	now := time.Now().UTC()
	if e.Now != nil {
		now = e.Now().UTC()
	}
	limit := e.BatchLimit
	if limit <= 0 {
		limit = 200
	}

	jobs, err := e.Store.ListAssignedJobs(ctx, limit)
	if err != nil {
		return SweepResult{}, err
	}
	pool, err := e.Store.ListTechnicians(ctx)
	if err != nil {
		return SweepResult{}, err
	}
	counts, err := e.Store.WorkloadCounts(ctx, now.Add(-dispatch.RecentAssignmentWindow))
	if err != nil {
		return SweepResult{}, err
	}

	res := SweepResult{Scanned: len(jobs)}
	for _, job := range jobs {
		if err := e.assessJob(ctx, job, pool, counts, now, &res); err != nil {
			res.Failed++
			e.Logger.Error().Err(err).Str("job_id", job.ID).Msg("sla assessment failed")
		}
	}
	e.Logger.Info().
		Int("scanned", res.Scanned).
		Int("created", res.Created).
		Int("escalated", res.Escalated).
		Int("failed", res.Failed).
		Msg("sla sweep complete")
	return res, nil
}

func (e *Engine) assessJob(ctx context.Context, job models.Job, pool []models.Technician, counts map[string]dispatch.WorkloadCounts, now time.Time, res *SweepResult) error {
	if job.AssignedTechnicianID == nil {
		return nil
	}
	tech, err := e.Store.GetTechnician(ctx, *job.AssignedTechnicianID)
	if err != nil {
		return err
	}
	others, err := e.Store.ListActiveJobsByTechnician(ctx, tech.ID)
	if err != nil {
		return err
	}

	assessment, ok := Assess(job, tech, others, now, e.SpeedKmh)
	if !ok || assessment.Level == models.RiskLow {
		return nil
	}

	action, suggested, candidates := e.recommend(job, tech.ID, pool, counts)
	meta, _ := json.Marshal(actionMeta{Diag: assessment, Candidates: candidates})

	existing, err := e.Store.PendingSLAAction(ctx, job.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		if assessment.RiskScore <= existing.RiskScore {
			return nil
		}
		if err := e.Store.EscalateSLAAction(ctx, existing.ID, assessment.RiskScore, assessment.Level, action, suggested, meta); err != nil {
			return err
		}
		res.Escalated++
		return nil
	}

	_, err = e.Store.CreateSLAAction(ctx, models.SLAAction{
		JobID:                 job.ID,
		RecommendedAction:     action,
		Reason:                fmt.Sprintf("SLA risk detected (level=%s, delta_min=%.1f)", assessment.Level, assessment.DeltaMinutes),
		SuggestedTechnicianID: suggested,
		RiskScore:             assessment.RiskScore,
		RiskLevel:             assessment.Level,
		Status:                models.SLAStatusPending,
		Meta:                  meta,
	})
	if err != nil {
		return err
	}
	res.Created++
	return nil
}

// recommend scores reassignment candidates excluding the currently assigned
// technician. A non-empty candidate list yields a reassign recommendation
// with the top candidate suggested; otherwise the customer is notified.
func (e *Engine) recommend(job models.Job, assignedID string, pool []models.Technician, counts map[string]dispatch.WorkloadCounts) (string, *string, []dispatch.CandidateResult) {
	others := make([]models.Technician, 0, len(pool))
	for _, t := range pool {
		if t.ID != assignedID {
			others = append(others, t)
		}
	}
	if len(others) == 0 {
		return models.SLAActionNotify, nil, nil
	}

	candidates := dispatch.ScoreCandidates(job, others, counts, e.Weights)
	if len(candidates) == 0 {
		return models.SLAActionNotify, nil, nil
	}
	if len(candidates) > 3 {
		candidates = candidates[:3]
	}
	top := candidates[0].TechnicianID
	return models.SLAActionReassign, &top, candidates
}
