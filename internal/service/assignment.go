package service

import (
	"errors"
	"strings"

	"github.com/fieldops/backend/internal/dispatch"
	"github.com/fieldops/backend/internal/models"
)

var (
	ErrNoCandidate           = errors.New("no eligible candidate")
	ErrUnsafeSelection       = errors.New("selection blocked, override required")
	ErrTechnicianNotEligible = errors.New("technician not in candidate pool")
	ErrOverrideReasonShort   = errors.New("override reason too short")
)

const minOverrideReasonLen = 3

// AssignInput controls how a candidate is chosen. A nil TechnicianID means
// automatic selection; setting it forces a specific technician and needs an
// override reason, as does Force when the automatic pick carries a fatigue
// warning.
type AssignInput struct {
	TechnicianID   *string
	Force          bool
	OverrideReason string
}

type Decision struct {
	Chosen      dispatch.CandidateResult
	Selection   dispatch.Selection
	Explanation dispatch.Explanation
	Overridden  bool
}

// DecideAssignment runs scoring and selection policy over the pool and
// returns the chosen candidate, without touching storage.
func DecideAssignment(job models.Job, pool []models.Technician, counts map[string]dispatch.WorkloadCounts, w dispatch.Weights, in AssignInput) (Decision, error) {
	candidates := dispatch.ScoreCandidates(job, pool, counts, w)

	if in.TechnicianID != nil {
		return decideManual(candidates, *in.TechnicianID, in.OverrideReason)
	}

	sel := dispatch.ChooseBest(candidates, 3)
	if sel.Chosen == nil {
		return Decision{}, ErrNoCandidate
	}
	if sel.Warning {
		if !in.Force {
			return Decision{Selection: sel}, ErrUnsafeSelection
		}
		if !validOverrideReason(in.OverrideReason) {
			return Decision{Selection: sel}, ErrOverrideReasonShort
		}
	}

	return Decision{
		Chosen:      *sel.Chosen,
		Selection:   sel,
		Explanation: dispatch.BuildExplanation(sel),
		Overridden:  sel.Warning,
	}, nil
}

func decideManual(candidates []dispatch.CandidateResult, techID, reason string) (Decision, error) {
	if !validOverrideReason(reason) {
		return Decision{}, ErrOverrideReasonShort
	}
	for i := range candidates {
		if candidates[i].TechnicianID == techID {
			sel := dispatch.Selection{
				Chosen:        &candidates[i],
				Candidates:    topN(candidates, 3),
				AllCandidates: len(candidates),
				Reason:        "manual_override",
			}
			return Decision{
				Chosen:      candidates[i],
				Selection:   sel,
				Explanation: dispatch.BuildExplanation(sel),
				Overridden:  true,
			}, nil
		}
	}
	return Decision{}, ErrTechnicianNotEligible
}

func topN(candidates []dispatch.CandidateResult, n int) []dispatch.CandidateResult {
	if len(candidates) > n {
		return candidates[:n]
	}
	return candidates
}

func validOverrideReason(reason string) bool {
	return len(strings.TrimSpace(reason)) >= minOverrideReasonLen
}
