package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfidenceSingleCandidateIsCapped(t *testing.T) {
	c := cand("t1", 12.0, 0.1)
	conf := Confidence([]CandidateResult{c}, &c)
	require.Equal(t, 0.999, conf)
}

func TestConfidenceBounds(t *testing.T) {
	pools := [][]CandidateResult{
		{cand("t1", 10, 0), cand("t2", 9.9, 0), cand("t3", 9.8, 0)},
		{cand("t1", 100, 0), cand("t2", -100, 0)},
		{cand("t1", 0, 0), cand("t2", 0, 0), cand("t3", 0, 0)},
	}
	for _, pool := range pools {
		conf := Confidence(pool, &pool[0])
		require.GreaterOrEqual(t, conf, 0.05)
		require.LessOrEqual(t, conf, 0.999)
	}
}

func TestConfidenceAppendsMissingChosen(t *testing.T) {
	pool := []CandidateResult{cand("t1", 10, 0), cand("t2", 9, 0), cand("t3", 8, 0)}
	outside := cand("t9", 11, 0)
	conf := Confidence(pool, &outside)
	require.Greater(t, conf, 0.25, "chosen score must be represented in the softmax")
	require.LessOrEqual(t, conf, 0.999)
}

func TestConfidenceLogisticFallbackWithoutCandidates(t *testing.T) {
	chosen := cand("t1", 0, 0)
	conf := Confidence(nil, &chosen)
	require.InDelta(t, 0.5, conf, 1e-9)

	low := cand("t1", -100, 0)
	require.Equal(t, 0.05, Confidence(nil, &low))
}

func TestBuildExplanationBulletsAndSummary(t *testing.T) {
	dist := 2.0
	chosen := CandidateResult{
		TechnicianID: "t1",
		Name:         "Alice",
		Score:        16.3,
		Breakdown: Breakdown{
			SkillMatchCount:   1,
			DistanceKm:        &dist,
			DistanceScore:     1.333,
			Availability:      1,
			AvailabilityScore: 5,
			FatigueScore:      0.1,
			Score:             16.3,
		},
	}
	alt := cand("t2", 7.0, 0.0)
	sel := Selection{Chosen: &chosen, Candidates: []CandidateResult{chosen, alt}, AllCandidates: 2}

	expl := BuildExplanation(sel)
	require.Contains(t, expl.Bullets, "Has 1 required skill(s).")
	require.Contains(t, expl.Bullets, "Approx distance: 2.000 km.")
	require.Contains(t, expl.Bullets, "Currently marked available.")
	require.Contains(t, expl.Bullets, "Low recent workload.")
	require.Contains(t, expl.Text, "Alice")
	require.Contains(t, expl.Text, "strong skill match")
	require.Len(t, expl.Alternatives, 1)
	require.Equal(t, "t2", expl.Alternatives[0].TechnicianID)
	require.Greater(t, expl.Confidence, 0.0)
}

func TestBuildExplanationDefaultSummary(t *testing.T) {
	chosen := cand("t1", -0.5, 0.5)
	sel := Selection{Chosen: &chosen, Candidates: []CandidateResult{chosen}}
	expl := BuildExplanation(sel)
	require.Contains(t, expl.Text, "Best composite score among candidates")
}

func TestBuildExplanationNoChosen(t *testing.T) {
	expl := BuildExplanation(Selection{Reason: ReasonNoCandidates})
	require.Equal(t, 0.0, expl.Confidence)
	require.Contains(t, expl.Text, "No suitable candidate")
}
