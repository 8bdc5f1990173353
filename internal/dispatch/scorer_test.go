package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fieldops/backend/internal/models"
)

func fptr(v float64) *float64 { return &v }

func TestScoreCandidatesSortedAndDeterministic(t *testing.T) {
	job := models.Job{
		ID:             "j1",
		Lat:            fptr(51.0),
		Lon:            fptr(71.0),
		RequiredSkills: []string{"electrical"},
	}
	pool := []models.Technician{
		{ID: "t1", Name: "A", Status: "available", Skills: []string{"plumbing"}, LastLat: fptr(51.0), LastLon: fptr(71.1)},
		{ID: "t2", Name: "B", Status: "available", Skills: []string{"electrical"}, LastLat: fptr(51.5), LastLon: fptr(71.5)},
		{ID: "t3", Name: "C", Status: "busy", Skills: []string{"electrical"}, LastLat: fptr(51.0), LastLon: fptr(71.0)},
	}
	counts := map[string]WorkloadCounts{"t1": {AssignedCount: 1}}

	first := ScoreCandidates(job, pool, counts, DefaultWeights())
	require.Len(t, first, 3)
	for i := 1; i < len(first); i++ {
		require.GreaterOrEqual(t, first[i-1].Score, first[i].Score, "results must be sorted non-increasing")
	}

	second := ScoreCandidates(job, pool, counts, DefaultWeights())
	require.Equal(t, first, second, "identical inputs must yield identical output")
}

func TestScoreCandidatesUnknownDistanceIsNeutral(t *testing.T) {
	job := models.Job{ID: "j1"} // no coordinates
	pool := []models.Technician{
		{ID: "t1", Status: "available", LastLat: fptr(51.0), LastLon: fptr(71.0)},
	}

	res := ScoreCandidates(job, pool, nil, DefaultWeights())
	require.Len(t, res, 1)
	require.Nil(t, res[0].Breakdown.DistanceKm)
	require.Equal(t, 0.0, res[0].Breakdown.DistanceScore)
	// availability only
	require.InDelta(t, 5.0, res[0].Score, 1e-9)
}

func TestScoreCandidatesAvailabilityCaseInsensitive(t *testing.T) {
	job := models.Job{ID: "j1"}
	pool := []models.Technician{
		{ID: "t1", Status: "Available"},
		{ID: "t2", Status: "OFFSHIFT"},
	}

	res := ScoreCandidates(job, pool, nil, DefaultWeights())
	byID := map[string]CandidateResult{}
	for _, r := range res {
		byID[r.TechnicianID] = r
	}
	require.Equal(t, 1, byID["t1"].Breakdown.Availability)
	require.Equal(t, 0, byID["t2"].Breakdown.Availability)
}

func TestScoreCandidatesEmptyPool(t *testing.T) {
	res := ScoreCandidates(models.Job{ID: "j1"}, nil, nil, DefaultWeights())
	require.Empty(t, res)
}

func TestSkillMatchCountIgnoresCaseAndDuplicates(t *testing.T) {
	require.Equal(t, 2, skillMatchCount(
		[]string{"HVAC", "hvac", "Electrical"},
		[]string{"hvac", "ELECTRICAL", "plumbing"},
	))
	require.Equal(t, 0, skillMatchCount(nil, []string{"hvac"}))
}

func TestSkillBonusDominatesDistanceEdge(t *testing.T) {
	// T1 matches the skill at 2km; T2 is closer at 1km but has no match.
	job := models.Job{
		ID:             "j1",
		Lat:            fptr(50.0),
		Lon:            fptr(10.0),
		RequiredSkills: []string{"A"},
	}
	pool := []models.Technician{
		{ID: "t1", Name: "T1", Status: "available", Skills: []string{"A"}, LastLat: fptr(50.018), LastLon: fptr(10.0)},
		{ID: "t2", Name: "T2", Status: "available", Skills: []string{"B"}, LastLat: fptr(50.009), LastLon: fptr(10.0)},
	}
	counts := map[string]WorkloadCounts{
		"t1": {AssignedCount: 1},
	}

	res := ScoreCandidates(job, pool, counts, DefaultWeights())
	require.Equal(t, "t1", res[0].TechnicianID)

	sel := ChooseBest(res, 5)
	require.NotNil(t, sel.Chosen)
	require.Equal(t, "t1", sel.Chosen.TechnicianID)

	expl := BuildExplanation(sel)
	require.Contains(t, expl.Bullets, "Has 1 required skill(s).")
}
