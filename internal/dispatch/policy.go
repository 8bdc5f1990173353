package dispatch

import "sort"

const (
	// Scores closer than this are treated as a tie and broken by fatigue.
	tieEpsilon = 1e-3

	// FatigueWarningThreshold marks a selection unsafe for auto-commit.
	FatigueWarningThreshold = 0.8

	// Candidates kept for confidence estimation and alternatives.
	topK = 3
)

// Selection outcome reasons.
const (
	ReasonNoCandidates = "no_candidates"
	ReasonHighFatigue  = "high_fatigue"
)

// Selection is the policy verdict over a scored candidate list. Chosen is nil
// only for the no-candidate case; a high-fatigue pick is still returned but
// flagged with Warning so callers refuse to auto-commit without an override.
type Selection struct {
	Chosen         *CandidateResult  `json:"chosen"`
	Candidates     []CandidateResult `json:"candidates"`
	AllCandidates  int               `json:"all_candidates_count"`
	Warning        bool              `json:"warning"`
	WarningReasons []string          `json:"warning_reasons,omitempty"`
	Reason         string            `json:"reason,omitempty"`
}

// ChooseBest picks exactly one candidate. Highest composite score wins; when
// the top two are within tieEpsilon, the lowest fatigue among the top three
// wins instead, so floating-point noise cannot flap between equals.
func ChooseBest(candidates []CandidateResult, topN int) Selection {
	if len(candidates) == 0 {
		return Selection{Reason: ReasonNoCandidates}
	}
	if topN <= 0 {
		topN = 5
	}

	ordered := make([]CandidateResult, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Score != ordered[j].Score {
			return ordered[i].Score > ordered[j].Score
		}
		return ordered[i].Breakdown.FatigueScore < ordered[j].Breakdown.FatigueScore
	})

	chosen := ordered[0]
	if len(ordered) >= 2 {
		diff := ordered[0].Score - ordered[1].Score
		if diff < tieEpsilon && diff > -tieEpsilon {
			top := ordered
			if len(top) > topK {
				top = top[:topK]
			}
			best := top[0]
			for _, c := range top[1:] {
				if c.Breakdown.FatigueScore < best.Breakdown.FatigueScore {
					best = c
				}
			}
			chosen = best
		}
	}

	sel := Selection{
		Chosen:        &chosen,
		AllCandidates: len(ordered),
	}
	if topN < len(ordered) {
		sel.Candidates = ordered[:topN]
	} else {
		sel.Candidates = ordered
	}

	if chosen.Breakdown.FatigueScore >= FatigueWarningThreshold {
		sel.Warning = true
		sel.WarningReasons = append(sel.WarningReasons, ReasonHighFatigue)
	}
	return sel
}
