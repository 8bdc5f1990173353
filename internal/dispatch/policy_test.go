package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func cand(id string, score, fatigue float64) CandidateResult {
	return CandidateResult{
		TechnicianID: id,
		Name:         id,
		Score:        score,
		Breakdown:    Breakdown{FatigueScore: fatigue, Score: score},
	}
}

func TestChooseBestHighestScoreWins(t *testing.T) {
	sel := ChooseBest([]CandidateResult{
		cand("t1", 12.0, 0.2),
		cand("t2", 9.0, 0.0),
	}, 5)
	require.NotNil(t, sel.Chosen)
	require.Equal(t, "t1", sel.Chosen.TechnicianID)
	require.False(t, sel.Warning)
}

func TestChooseBestTieBrokenByLowerFatigue(t *testing.T) {
	sel := ChooseBest([]CandidateResult{
		cand("t1", 10.0005, 0.6),
		cand("t2", 10.0, 0.1),
	}, 5)
	require.NotNil(t, sel.Chosen)
	require.Equal(t, "t2", sel.Chosen.TechnicianID)
	require.False(t, sel.Warning, "tie resolution alone must not set a warning")
}

func TestChooseBestTieConsidersTopThree(t *testing.T) {
	sel := ChooseBest([]CandidateResult{
		cand("t1", 10.0004, 0.6),
		cand("t2", 10.0002, 0.5),
		cand("t3", 10.0, 0.05),
		cand("t4", 2.0, 0.0),
	}, 5)
	require.Equal(t, "t3", sel.Chosen.TechnicianID)
}

func TestChooseBestWarnsOnHighFatigue(t *testing.T) {
	sel := ChooseBest([]CandidateResult{
		cand("t1", 15.0, 0.9),
		cand("t2", 3.0, 0.0),
	}, 5)
	require.Equal(t, "t1", sel.Chosen.TechnicianID)
	require.True(t, sel.Warning)
	require.Contains(t, sel.WarningReasons, ReasonHighFatigue)
}

func TestChooseBestTieWinnerWarnsOnlyOnOwnFatigue(t *testing.T) {
	sel := ChooseBest([]CandidateResult{
		cand("t1", 10.0002, 0.85),
		cand("t2", 10.0, 0.3),
	}, 5)
	require.Equal(t, "t2", sel.Chosen.TechnicianID)
	require.False(t, sel.Warning)

	sel = ChooseBest([]CandidateResult{
		cand("t1", 10.0002, 0.9),
		cand("t2", 10.0, 0.85),
	}, 5)
	require.Equal(t, "t2", sel.Chosen.TechnicianID)
	require.True(t, sel.Warning)
}

func TestChooseBestNoCandidates(t *testing.T) {
	sel := ChooseBest(nil, 5)
	require.Nil(t, sel.Chosen)
	require.Equal(t, ReasonNoCandidates, sel.Reason)
}

func TestChooseBestDeterministicOnExactTie(t *testing.T) {
	in := []CandidateResult{
		cand("t1", 10.0, 0.2),
		cand("t2", 10.0, 0.2),
	}
	first := ChooseBest(in, 5)
	for i := 0; i < 10; i++ {
		again := ChooseBest(in, 5)
		require.Equal(t, first.Chosen.TechnicianID, again.Chosen.TechnicianID)
	}
}
