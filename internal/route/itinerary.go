// Package route builds timed itineraries and orders job visits, either with
// the always-available nearest-neighbor heuristic or an optional time-window
// solver capability with a nearest-neighbor fallback.
package route

import (
	"time"

	"github.com/fieldops/backend/internal/geo"
	"github.com/fieldops/backend/internal/models"
)

const (
	DefaultSpeedKmh       = 40.0
	DefaultServiceMinutes = 60
)

// Stop is one timed visit in an itinerary.
type Stop struct {
	JobID                 string     `json:"job_id"`
	CustomerName          string     `json:"customer_name"`
	Address               string     `json:"address"`
	Lat                   *float64   `json:"lat"`
	Lon                   *float64   `json:"lon"`
	DistanceFromPrevKm    *float64   `json:"distance_from_prev_km"`
	TravelMinutesFromPrev *float64   `json:"travel_minutes_from_prev"`
	Arrival               time.Time  `json:"arrival"`
	WindowStart           *time.Time `json:"window_start"`
	WindowEnd             *time.Time `json:"window_end"`
	Departure             time.Time  `json:"departure"`
	ServiceMinutes        int        `json:"service_minutes"`
}

type Itinerary struct {
	Stops              []Stop  `json:"stops"`
	TotalKm            float64 `json:"total_travel_km"`
	TotalTravelMinutes float64 `json:"total_travel_minutes"`
}

// BuildItinerary folds an ordered job list into timed stops. No reordering
// happens here. Arrivals earlier than a requested window start are clamped up
// to the window start (wait, never serve early). A job without coordinates
// leaves the rolling position unchanged so later legs are skipped, not reset.
// Totals accumulate only over legs where the distance was computable.
func BuildItinerary(startLat, startLon *float64, jobs []models.Job, now time.Time, speedKmh float64) Itinerary {
	if speedKmh <= 0 {
		speedKmh = DefaultSpeedKmh
	}

	curLat, curLon := startLat, startLon
	curTime := now

	it := Itinerary{Stops: make([]Stop, 0, len(jobs))}
	for _, job := range jobs {
		serviceMinutes := job.EstimatedDurationMinutes
		if serviceMinutes <= 0 {
			serviceMinutes = DefaultServiceMinutes
		}

		dist := geo.DistanceKm(curLat, curLon, job.Lat, job.Lon)
		travel := geo.TravelMinutes(dist, speedKmh)

		arrival := curTime
		if travel != nil {
			arrival = curTime.Add(time.Duration(*travel * float64(time.Minute)))
		}
		if job.WindowStart != nil && arrival.Before(*job.WindowStart) {
			arrival = *job.WindowStart
		}
		departure := arrival.Add(time.Duration(serviceMinutes) * time.Minute)

		it.Stops = append(it.Stops, Stop{
			JobID:                 job.ID,
			CustomerName:          job.CustomerName,
			Address:               job.Address,
			Lat:                   job.Lat,
			Lon:                   job.Lon,
			DistanceFromPrevKm:    dist,
			TravelMinutesFromPrev: travel,
			Arrival:               arrival,
			WindowStart:           job.WindowStart,
			WindowEnd:             job.WindowEnd,
			Departure:             departure,
			ServiceMinutes:        serviceMinutes,
		})

		if dist != nil {
			it.TotalKm += *dist
			it.TotalTravelMinutes += *travel
		}
		if job.Lat != nil && job.Lon != nil {
			curLat, curLon = job.Lat, job.Lon
		}
		curTime = departure
	}
	return it
}
