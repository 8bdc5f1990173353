package route

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fieldops/backend/internal/models"
)

func fptr(v float64) *float64 { return &v }

func tptr(t time.Time) *time.Time { return &t }

func TestBuildItineraryWaitsForWindowStart(t *testing.T) {
	now := time.Date(2026, 8, 26, 8, 0, 0, 0, time.UTC)
	windowStart := now.Add(2 * time.Hour)

	jobs := []models.Job{{
		ID:          "j1",
		Lat:         fptr(50.009), // ~1 km north => ~1.5 min at 40 km/h
		Lon:         fptr(10.0),
		WindowStart: tptr(windowStart),
	}}

	it := BuildItinerary(fptr(50.0), fptr(10.0), jobs, now, 40)
	require.Len(t, it.Stops, 1)
	require.True(t, it.Stops[0].Arrival.Equal(windowStart), "arrival must be clamped to the window start exactly")
	require.Equal(t, 60, it.Stops[0].ServiceMinutes)
	require.True(t, it.Stops[0].Departure.Equal(windowStart.Add(60*time.Minute)))
}

func TestBuildItineraryAdvancesTimeAndPosition(t *testing.T) {
	now := time.Date(2026, 8, 26, 8, 0, 0, 0, time.UTC)
	jobs := []models.Job{
		{ID: "j1", Lat: fptr(0), Lon: fptr(1), EstimatedDurationMinutes: 30},
		{ID: "j2", Lat: fptr(0), Lon: fptr(2), EstimatedDurationMinutes: 45},
	}

	it := BuildItinerary(fptr(0), fptr(0), jobs, now, 40)
	require.Len(t, it.Stops, 2)

	first, second := it.Stops[0], it.Stops[1]
	require.NotNil(t, first.DistanceFromPrevKm)
	require.NotNil(t, second.DistanceFromPrevKm)
	// both legs are one degree of longitude on the equator
	require.InDelta(t, *first.DistanceFromPrevKm, *second.DistanceFromPrevKm, 1e-6)
	require.True(t, second.Arrival.After(first.Departure) || second.Arrival.Equal(first.Departure))
	require.InDelta(t, *first.DistanceFromPrevKm*2, it.TotalKm, 1e-6)
}

func TestBuildItineraryMissingCoordsSkipsLegNotResets(t *testing.T) {
	now := time.Date(2026, 8, 26, 8, 0, 0, 0, time.UTC)
	jobs := []models.Job{
		{ID: "j1", Lat: fptr(0), Lon: fptr(1)},
		{ID: "j2"}, // no coordinates
		{ID: "j3", Lat: fptr(0), Lon: fptr(2)},
	}

	it := BuildItinerary(fptr(0), fptr(0), jobs, now, 40)
	require.Nil(t, it.Stops[1].DistanceFromPrevKm)
	// leg to j3 is measured from j1, not reset to the start
	require.NotNil(t, it.Stops[2].DistanceFromPrevKm)
	require.InDelta(t, *it.Stops[0].DistanceFromPrevKm, *it.Stops[2].DistanceFromPrevKm, 1e-6)
}

func TestBuildItineraryEmpty(t *testing.T) {
	it := BuildItinerary(nil, nil, nil, time.Now(), 40)
	require.Empty(t, it.Stops)
	require.Equal(t, 0.0, it.TotalKm)
}
