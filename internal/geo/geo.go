// Package geo holds the great-circle math used by scoring, routing, and SLA
// prediction. Helpers never return errors: missing or out-of-range inputs
// yield nil, and callers treat nil as "distance unknown" rather than zero.
package geo

import "math"

const earthRadiusKm = 6371.0

// DistanceKm returns the haversine distance between two points, or nil when
// any coordinate is missing or invalid.
func DistanceKm(lat1, lon1, lat2, lon2 *float64) *float64 {
	if !validCoord(lat1, lon1) || !validCoord(lat2, lon2) {
		return nil
	}

	dLat := degreesToRadians(*lat2 - *lat1)
	dLon := degreesToRadians(*lon2 - *lon1)

	lat1R := degreesToRadians(*lat1)
	lat2R := degreesToRadians(*lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1R)*math.Cos(lat2R)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	d := earthRadiusKm * c
	return &d
}

// TravelMinutes converts a distance to travel time at the given speed.
// A nil distance propagates as nil.
func TravelMinutes(distKm *float64, speedKmh float64) *float64 {
	if distKm == nil {
		return nil
	}
	if speedKmh < 1e-6 {
		speedKmh = 1e-6
	}
	m := (*distKm / speedKmh) * 60.0
	return &m
}

func validCoord(lat, lon *float64) bool {
	if lat == nil || lon == nil {
		return false
	}
	if math.IsNaN(*lat) || math.IsNaN(*lon) {
		return false
	}
	return *lat >= -90 && *lat <= 90 && *lon >= -180 && *lon <= 180
}

func degreesToRadians(d float64) float64 {
	return d * math.Pi / 180
}
