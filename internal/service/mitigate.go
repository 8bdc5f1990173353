package service

import (
	"context"
	"errors"

	"github.com/fieldops/backend/internal/models"
)

var (
	ErrActionNotPending = errors.New("sla action is not pending")
	ErrNoReassignTarget = errors.New("no technician to reassign to")
)

type MitigateInput struct {
	// Action overrides the recommended action. Empty applies the
	// recommendation as stored.
	Action       string
	TechnicianID *string
	Reason       string
	AppliedBy    string
}

type MitigateResult struct {
	Action models.SLAAction `json:"action"`
	Job    *models.Job      `json:"job,omitempty"`
}

// MitigateSLA applies a pending SLA action. Reassignment moves the job to
// the suggested (or explicitly given) technician with an audit record;
// notify and escalate just close out the action. Ignoring marks it ignored
// without touching the job.
func (d *Dispatcher) MitigateSLA(ctx context.Context, actionID string, in MitigateInput) (MitigateResult, error) {
	action, err := d.Store.GetSLAAction(ctx, actionID)
	if err != nil {
		return MitigateResult{}, err
	}
	if action.Status != models.SLAStatusPending {
		return MitigateResult{}, ErrActionNotPending
	}

	applied := in.Action
	if applied == "" {
		applied = action.RecommendedAction
	}

	switch applied {
	case models.SLAActionReassign:
		return d.mitigateReassign(ctx, action, in)
	case models.SLAActionNotify, models.SLAActionEscalate:
		if err := d.Store.MarkSLAActionApplied(ctx, action.ID, models.SLAStatusApplied); err != nil {
			return MitigateResult{}, err
		}
		action.Status = models.SLAStatusApplied
		d.Logger.Info().Str("sla_action_id", action.ID).Str("applied", applied).Msg("sla action applied")
		return MitigateResult{Action: action}, nil
	case models.SLAStatusIgnored:
		if err := d.Store.MarkSLAActionApplied(ctx, action.ID, models.SLAStatusIgnored); err != nil {
			return MitigateResult{}, err
		}
		action.Status = models.SLAStatusIgnored
		return MitigateResult{Action: action}, nil
	default:
		return MitigateResult{}, errors.New("unknown mitigation action: " + applied)
	}
}

func (d *Dispatcher) mitigateReassign(ctx context.Context, action models.SLAAction, in MitigateInput) (MitigateResult, error) {
	if !validOverrideReason(in.Reason) {
		return MitigateResult{}, ErrOverrideReasonShort
	}

	target := in.TechnicianID
	if target == nil {
		target = action.SuggestedTechnicianID
	}
	if target == nil {
		return MitigateResult{}, ErrNoReassignTarget
	}

	result, err := d.AutoAssign(ctx, action.JobID, AssignInput{
		TechnicianID:   target,
		OverrideReason: in.Reason,
	}, true, in.AppliedBy)
	if err != nil {
		return MitigateResult{}, err
	}

	if err := d.Store.MarkSLAActionApplied(ctx, action.ID, models.SLAStatusApplied); err != nil {
		return MitigateResult{}, err
	}
	action.Status = models.SLAStatusApplied

	d.Logger.Info().
		Str("sla_action_id", action.ID).
		Str("job_id", action.JobID).
		Str("technician_id", *target).
		Msg("sla reassignment applied")

	return MitigateResult{Action: action, Job: &result.Job}, nil
}
