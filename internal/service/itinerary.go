package service

import (
	"context"
	"time"

	"github.com/fieldops/backend/internal/models"
	"github.com/fieldops/backend/internal/route"
)

type ItineraryComparison struct {
	DistanceSavedKm  float64 `json:"distance_saved_km"`
	MinutesSaved     float64 `json:"minutes_saved"`
	CurrentStops     int     `json:"current_stops"`
	OptimizedStops   int     `json:"optimized_stops"`
	OrderingChanged  bool    `json:"ordering_changed"`
}

type ItineraryResult struct {
	TechnicianID string               `json:"technician_id"`
	Current      route.Itinerary      `json:"current"`
	Optimized    *route.Itinerary     `json:"optimized,omitempty"`
	Comparison   *ItineraryComparison `json:"comparison,omitempty"`
	Note         string               `json:"note,omitempty"`
}

// Itinerary builds the technician's day plan from their active jobs in
// window order. With optimize set it also reorders the stops and reports
// the savings against the current plan.
func (d *Dispatcher) Itinerary(ctx context.Context, techID string, optimize bool, now time.Time) (ItineraryResult, error) {
	tech, err := d.Store.GetTechnician(ctx, techID)
	if err != nil {
		return ItineraryResult{}, err
	}
	jobs, err := d.Store.ListActiveJobsByTechnician(ctx, techID)
	if err != nil {
		return ItineraryResult{}, err
	}

	speed := d.speed()
	current := route.BuildItinerary(tech.LastLat, tech.LastLon, jobs, now, speed)
	out := ItineraryResult{TechnicianID: techID, Current: current}
	if !optimize || len(jobs) < 2 {
		return out, nil
	}

	ordered, note := d.Orderer.Order(ctx, tech.LastLat, tech.LastLon, jobs, now, speed, true)
	optimized := route.BuildItinerary(tech.LastLat, tech.LastLon, ordered, now, speed)
	out.Optimized = &optimized
	out.Note = note
	out.Comparison = compareItineraries(current, optimized, jobs, ordered)
	return out, nil
}

func compareItineraries(current, optimized route.Itinerary, before, after []models.Job) *ItineraryComparison {
	changed := len(before) != len(after)
	if !changed {
		for i := range before {
			if before[i].ID != after[i].ID {
				changed = true
				break
			}
		}
	}
	return &ItineraryComparison{
		DistanceSavedKm: current.TotalKm - optimized.TotalKm,
		MinutesSaved:    current.TotalTravelMinutes - optimized.TotalTravelMinutes,
		CurrentStops:    len(current.Stops),
		OptimizedStops:  len(optimized.Stops),
		OrderingChanged: changed,
	}
}
