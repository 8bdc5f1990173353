package route

import (
	"sort"

	"github.com/fieldops/backend/internal/geo"
	"github.com/fieldops/backend/internal/models"
)

// NearestNeighborOrder greedily visits the closest unvisited job first.
// Jobs without coordinates are excluded from the greedy walk and appended at
// the end in their original order. When the start position is unknown the
// greedy walk is skipped entirely and jobs are ordered by requested window
// start instead, windowless jobs last.
func NearestNeighborOrder(startLat, startLon *float64, jobs []models.Job) []models.Job {
	if startLat == nil || startLon == nil {
		return orderByWindowStart(jobs)
	}

	var withCoords, withoutCoords []models.Job
	for _, j := range jobs {
		if j.Lat != nil && j.Lon != nil {
			withCoords = append(withCoords, j)
		} else {
			withoutCoords = append(withoutCoords, j)
		}
	}

	order := make([]models.Job, 0, len(jobs))
	curLat, curLon := startLat, startLon
	remaining := withCoords
	for len(remaining) > 0 {
		nearestIdx := -1
		var nearestDist float64
		for i, j := range remaining {
			d := geo.DistanceKm(curLat, curLon, j.Lat, j.Lon)
			if d == nil {
				continue
			}
			if nearestIdx == -1 || *d < nearestDist {
				nearestIdx = i
				nearestDist = *d
			}
		}
		if nearestIdx == -1 {
			// No computable distance to anything left (coordinates present
			// but outside valid ranges). Treat them like coordless jobs so
			// no job disappears from the order.
			order = append(order, remaining...)
			break
		}
		next := remaining[nearestIdx]
		order = append(order, next)
		remaining = append(remaining[:nearestIdx:nearestIdx], remaining[nearestIdx+1:]...)
		curLat, curLon = next.Lat, next.Lon
	}

	return append(order, withoutCoords...)
}

func orderByWindowStart(jobs []models.Job) []models.Job {
	out := make([]models.Job, len(jobs))
	copy(out, jobs)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].WindowStart, out[j].WindowStart
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return out
}
