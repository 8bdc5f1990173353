package route

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/fieldops/backend/internal/geo"
	"github.com/fieldops/backend/internal/models"
)

var (
	ErrMissingCoordinates = errors.New("route solver requires coordinates for every job")
	ErrInfeasible         = errors.New("route solver found no feasible order")
)

// Solver is the optional constrained-ordering capability. Implementations are
// best-effort: the Orderer treats every error as a signal to fall back to
// nearest-neighbor, never as a hard failure.
type Solver interface {
	SolveOrder(ctx context.Context, startLat, startLon float64, jobs []models.Job, now time.Time, speedKmh float64) ([]models.Job, error)
}

// Very wide sentinel window (minutes relative to now) for jobs without a
// requested window: one year either side.
const unconstrainedWindowMinutes = 365 * 24 * 60

// TimeWindowSolver orders jobs under time-window constraints: cheapest-arc
// construction followed by 2-opt local search, both bounded by the context
// deadline. Service time is charged on arrival at each node.
type TimeWindowSolver struct{}

type twProblem struct {
	travel  [][]float64 // minutes, node 0 = depot
	service []float64   // minutes, indexed like travel
	wStart  []float64   // window start, minutes from now
	wEnd    []float64   // window end, minutes from now
}

func (TimeWindowSolver) SolveOrder(ctx context.Context, startLat, startLon float64, jobs []models.Job, now time.Time, speedKmh float64) ([]models.Job, error) {
	if len(jobs) <= 1 {
		return jobs, nil
	}
	if speedKmh <= 0 {
		speedKmh = DefaultSpeedKmh
	}
	for _, j := range jobs {
		if j.Lat == nil || j.Lon == nil {
			return nil, ErrMissingCoordinates
		}
	}

	p, err := buildProblem(startLat, startLon, jobs, now, speedKmh)
	if err != nil {
		return nil, err
	}

	order, ok := constructCheapestArc(ctx, p)
	if !ok {
		// Greedy construction dead-ended on a window; retry by earliest
		// window end, then the input order.
		for _, alt := range [][]int{orderByDueDate(p), identityOrder(len(jobs))} {
			if _, feasible := evaluate(p, alt); feasible {
				order, ok = alt, true
				break
			}
		}
		if !ok {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, ErrInfeasible
		}
	}

	order = improveTwoOpt(ctx, p, order)

	out := make([]models.Job, len(order))
	for i, idx := range order {
		out[i] = jobs[idx]
	}
	return out, nil
}

func buildProblem(startLat, startLon float64, jobs []models.Job, now time.Time, speedKmh float64) (*twProblem, error) {
	n := len(jobs) + 1
	coordsLat := make([]float64, n)
	coordsLon := make([]float64, n)
	coordsLat[0], coordsLon[0] = startLat, startLon
	for i, j := range jobs {
		coordsLat[i+1], coordsLon[i+1] = *j.Lat, *j.Lon
	}

	travel := make([][]float64, n)
	for i := 0; i < n; i++ {
		travel[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			d := geo.DistanceKm(&coordsLat[i], &coordsLon[i], &coordsLat[j], &coordsLon[j])
			m := geo.TravelMinutes(d, speedKmh)
			if m == nil {
				return nil, ErrMissingCoordinates
			}
			travel[i][j] = *m
		}
	}

	service := make([]float64, n)
	wStart := make([]float64, n)
	wEnd := make([]float64, n)
	wStart[0], wEnd[0] = -unconstrainedWindowMinutes, unconstrainedWindowMinutes
	for i, j := range jobs {
		svc := j.EstimatedDurationMinutes
		if svc <= 0 {
			svc = DefaultServiceMinutes
		}
		service[i+1] = float64(svc)
		wStart[i+1] = -unconstrainedWindowMinutes
		wEnd[i+1] = unconstrainedWindowMinutes
		if j.WindowStart != nil {
			wStart[i+1] = j.WindowStart.Sub(now).Minutes()
		}
		if j.WindowEnd != nil {
			wEnd[i+1] = j.WindowEnd.Sub(now).Minutes()
		}
	}
	return &twProblem{travel: travel, service: service, wStart: wStart, wEnd: wEnd}, nil
}

// constructCheapestArc greedily extends the route with the cheapest feasible
// arc from the current node. Returns false when no feasible extension exists.
func constructCheapestArc(ctx context.Context, p *twProblem) ([]int, bool) {
	n := len(p.travel) - 1
	visited := make([]bool, n)
	order := make([]int, 0, n)
	cur := 0
	clock := 0.0

	for len(order) < n {
		if ctx.Err() != nil {
			return nil, false
		}
		best := -1
		var bestCost float64
		var bestClock float64
		for j := 0; j < n; j++ {
			if visited[j] {
				continue
			}
			node := j + 1
			arrival := clock + p.travel[cur][node]
			if arrival < p.wStart[node] {
				arrival = p.wStart[node]
			}
			if arrival > p.wEnd[node] {
				continue
			}
			if best == -1 || p.travel[cur][node] < bestCost {
				best = j
				bestCost = p.travel[cur][node]
				bestClock = arrival + p.service[node]
			}
		}
		if best == -1 {
			return nil, false
		}
		visited[best] = true
		order = append(order, best)
		cur = best + 1
		clock = bestClock
	}
	return order, true
}

// evaluate simulates the order, returning total travel minutes and whether
// every window-end constraint holds. Early arrivals wait for the window.
func evaluate(p *twProblem, order []int) (float64, bool) {
	cur := 0
	clock := 0.0
	total := 0.0
	for _, j := range order {
		node := j + 1
		leg := p.travel[cur][node]
		total += leg
		arrival := clock + leg
		if arrival < p.wStart[node] {
			arrival = p.wStart[node]
		}
		if arrival > p.wEnd[node] {
			return total, false
		}
		clock = arrival + p.service[node]
		cur = node
	}
	return total, true
}

// improveTwoOpt applies segment-reversal moves while they shorten total
// travel and stay feasible, until no improvement is found or the context
// deadline expires. The best feasible order seen so far is always returned.
func improveTwoOpt(ctx context.Context, p *twProblem, order []int) []int {
	best := make([]int, len(order))
	copy(best, order)
	bestCost, _ := evaluate(p, best)

	improved := true
	for improved {
		improved = false
		for i := 0; i < len(best)-1; i++ {
			for k := i + 1; k < len(best); k++ {
				if ctx.Err() != nil {
					return best
				}
				trial := make([]int, len(best))
				copy(trial, best)
				reverse(trial[i : k+1])
				cost, feasible := evaluate(p, trial)
				if feasible && cost < bestCost {
					best = trial
					bestCost = cost
					improved = true
				}
			}
		}
	}
	return best
}

func orderByDueDate(p *twProblem) []int {
	order := identityOrder(len(p.travel) - 1)
	sort.SliceStable(order, func(a, b int) bool {
		return p.wEnd[order[a]+1] < p.wEnd[order[b]+1]
	})
	return order
}

func identityOrder(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func reverse(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
