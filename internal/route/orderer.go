package route

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldops/backend/internal/models"
)

// Fallback notes surfaced to the itinerary consumer.
const (
	NoteSolverUnavailable = "route solver unavailable; used nearest-neighbor order"
	NoteMissingCoords     = "job(s) or start position missing coordinates; used nearest-neighbor order"
	NoteSolverFailed      = "route solver found no feasible order within budget; used nearest-neighbor order"
)

// Orderer produces a visit order with a fallback chain: the injected Solver
// when requested and usable, nearest-neighbor otherwise. It never fails; a
// degraded result carries a note instead.
type Orderer struct {
	Solver  Solver // nil means the capability is not deployed
	Timeout time.Duration
	Logger  zerolog.Logger
}

// Order returns the visit order and an empty note, or a fallback order and a
// note explaining why the solver result was not used.
func (o Orderer) Order(ctx context.Context, startLat, startLon *float64, jobs []models.Job, now time.Time, speedKmh float64, useSolver bool) ([]models.Job, string) {
	if !useSolver {
		return NearestNeighborOrder(startLat, startLon, jobs), ""
	}
	if o.Solver == nil {
		return NearestNeighborOrder(startLat, startLon, jobs), NoteSolverUnavailable
	}
	if startLat == nil || startLon == nil || anyMissingCoords(jobs) {
		return NearestNeighborOrder(startLat, startLon, jobs), NoteMissingCoords
	}

	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	solverCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ordered, err := o.Solver.SolveOrder(solverCtx, *startLat, *startLon, jobs, now, speedKmh)
	if err != nil {
		o.Logger.Warn().Err(err).Int("jobs", len(jobs)).Msg("route solver fallback")
		return NearestNeighborOrder(startLat, startLon, jobs), NoteSolverFailed
	}
	return ordered, ""
}

func anyMissingCoords(jobs []models.Job) bool {
	for _, j := range jobs {
		if j.Lat == nil || j.Lon == nil {
			return true
		}
	}
	return false
}
