package dispatch

import (
	"time"

	"github.com/fieldops/backend/internal/models"
)

// RecentAssignmentWindow is the trailing window over which assignment records
// count toward fatigue. The scorer uses this 7-day window everywhere; the
// short 24h variant that existed in earlier revisions was dropped.
const RecentAssignmentWindow = 7 * 24 * time.Hour

// Raw fatigue weights.
const (
	fatigueWeightAssigned = 1.0
	fatigueWeightRecent   = 0.4
)

// WorkloadCounts are the per-technician aggregates the persistence layer
// supplies: currently active jobs (assigned/in_progress) and assignment
// records created within RecentAssignmentWindow.
type WorkloadCounts struct {
	AssignedCount         int
	RecentAssignmentCount int
}

// FatigueMetrics is the fatigue breakdown for one technician within one
// scoring call. Score is min-max normalized across the candidate pool, so it
// is relative to the pool, not an absolute measure.
type FatigueMetrics struct {
	AssignedCount        int
	RecentCompletedCount int
	Raw                  float64
	Score                float64
}

// ComputeFatigue builds fatigue metrics for every technician in the pool.
// Technicians absent from the counts map default to zero workload. When all
// raw values are equal the normalized score is 0 for everyone.
func ComputeFatigue(pool []models.Technician, counts map[string]WorkloadCounts) map[string]FatigueMetrics {
	metrics := make(map[string]FatigueMetrics, len(pool))
	if len(pool) == 0 {
		return metrics
	}

	minRaw := 0.0
	maxRaw := 0.0
	first := true
	for _, tech := range pool {
		c := counts[tech.ID]
		raw := fatigueWeightAssigned*float64(c.AssignedCount) + fatigueWeightRecent*float64(c.RecentAssignmentCount)
		metrics[tech.ID] = FatigueMetrics{
			AssignedCount:        c.AssignedCount,
			RecentCompletedCount: c.RecentAssignmentCount,
			Raw:                  raw,
		}
		if first || raw < minRaw {
			minRaw = raw
		}
		if first || raw > maxRaw {
			maxRaw = raw
		}
		first = false
	}

	denom := maxRaw - minRaw
	if denom <= 0 {
		denom = 1.0
	}
	for id, m := range metrics {
		s := (m.Raw - minRaw) / denom
		if s < 0 {
			s = 0
		}
		if s > 1 {
			s = 1
		}
		m.Score = s
		metrics[id] = m
	}
	return metrics
}
