package dispatch

import (
	"math"
	"sort"
	"strings"

	"github.com/fieldops/backend/internal/geo"
	"github.com/fieldops/backend/internal/models"
)

// Weights tune the composite score. Skill match dominates by design: one
// matched skill outweighs any distance advantage.
type Weights struct {
	Skill        float64 `json:"w_skill"`
	Distance     float64 `json:"w_dist"`
	Availability float64 `json:"w_avail"`
	Fatigue      float64 `json:"w_fatigue"`
}

func DefaultWeights() Weights {
	return Weights{Skill: 10.0, Distance: 4.0, Availability: 5.0, Fatigue: 3.0}
}

// Breakdown carries every component needed to reconstruct a candidate's
// composite score. It is the audit contract: selection policy, explanation
// synthesis, and the persisted Assignment record all consume it.
type Breakdown struct {
	SkillMatchCount      int      `json:"skill_match_count"`
	DistanceKm           *float64 `json:"distance_km"`
	DistanceScore        float64  `json:"distance_score"`
	Availability         int      `json:"availability"`
	AvailabilityScore    float64  `json:"availability_score"`
	FatigueRaw           float64  `json:"fatigue_raw"`
	FatigueScore         float64  `json:"fatigue_score"`
	AssignedCount        int      `json:"assigned_count"`
	RecentCompletedCount int      `json:"recent_completed_count"`
	Score                float64  `json:"score"`
}

// CandidateResult is one technician's evaluation for one job. Ephemeral:
// computed per scoring call, never persisted directly.
type CandidateResult struct {
	TechnicianID string    `json:"technician_id"`
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	Skills       []string  `json:"skills"`
	Score        float64   `json:"score"`
	Breakdown    Breakdown `json:"score_breakdown"`
}

// ScoreCandidates computes an explainable composite score for every
// technician in the pool against one job and returns results sorted by score
// descending. The sort is stable, so identical inputs produce an identical
// ordering. An empty pool returns an empty slice; callers distinguish that
// from a pool of zero-score candidates.
//
// Composite = w_skill*matches + w_dist*(1/(1+km)) + w_avail*avail - w_fatigue*fatigue.
// Unknown distance contributes 0: absence of information is neutral.
func ScoreCandidates(job models.Job, pool []models.Technician, counts map[string]WorkloadCounts, w Weights) []CandidateResult {
	fatigue := ComputeFatigue(pool, counts)

	results := make([]CandidateResult, 0, len(pool))
	for _, tech := range pool {
		matches := skillMatchCount(job.RequiredSkills, tech.Skills)

		distKm := geo.DistanceKm(job.Lat, job.Lon, tech.LastLat, tech.LastLon)
		distScore := 0.0
		if distKm != nil {
			rounded := round3(*distKm)
			distKm = &rounded
			distScore = w.Distance * (1.0 / (1.0 + *distKm))
		}

		availability := 0
		if strings.EqualFold(strings.TrimSpace(tech.Status), models.TechStatusAvailable) {
			availability = 1
		}

		f := fatigue[tech.ID]

		b := Breakdown{
			SkillMatchCount:      matches,
			DistanceKm:           distKm,
			DistanceScore:        round3(distScore),
			Availability:         availability,
			AvailabilityScore:    round3(w.Availability * float64(availability)),
			FatigueRaw:           round3(f.Raw),
			FatigueScore:         round3(f.Score),
			AssignedCount:        f.AssignedCount,
			RecentCompletedCount: f.RecentCompletedCount,
		}
		total := w.Skill*float64(matches) + distScore + w.Availability*float64(availability) - w.Fatigue*f.Score
		b.Score = round3(total)

		results = append(results, CandidateResult{
			TechnicianID: tech.ID,
			Name:         tech.Name,
			Status:       tech.Status,
			Skills:       tech.Skills,
			Score:        b.Score,
			Breakdown:    b,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

func skillMatchCount(required, have []string) int {
	if len(required) == 0 || len(have) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(have))
	for _, s := range have {
		set[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	n := 0
	seen := make(map[string]struct{}, len(required))
	for _, s := range required {
		key := strings.ToLower(strings.TrimSpace(s))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, ok := set[key]; ok {
			n++
		}
	}
	return n
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
