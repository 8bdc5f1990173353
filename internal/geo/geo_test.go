package geo

import (
	"math"
	"testing"
)

func ptr(v float64) *float64 { return &v }

func TestDistanceKmKnownPair(t *testing.T) {
	// Astana -> Almaty is roughly 970 km great-circle.
	d := DistanceKm(ptr(51.1605), ptr(71.4704), ptr(43.2220), ptr(76.8512))
	if d == nil {
		t.Fatal("expected distance, got nil")
	}
	if *d < 930 || *d > 1010 {
		t.Fatalf("unexpected distance: %f", *d)
	}
}

func TestDistanceKmZeroForSamePoint(t *testing.T) {
	d := DistanceKm(ptr(10), ptr(20), ptr(10), ptr(20))
	if d == nil || *d != 0 {
		t.Fatalf("expected 0, got %v", d)
	}
}

func TestDistanceKmNilOnMissingInput(t *testing.T) {
	if d := DistanceKm(nil, ptr(20), ptr(10), ptr(20)); d != nil {
		t.Fatalf("expected nil for missing lat, got %f", *d)
	}
	if d := DistanceKm(ptr(91), ptr(20), ptr(10), ptr(20)); d != nil {
		t.Fatalf("expected nil for out-of-range lat, got %f", *d)
	}
	nan := math.NaN()
	if d := DistanceKm(&nan, ptr(20), ptr(10), ptr(20)); d != nil {
		t.Fatalf("expected nil for NaN lat, got %f", *d)
	}
}

func TestTravelMinutes(t *testing.T) {
	m := TravelMinutes(ptr(20), 40)
	if m == nil || math.Abs(*m-30) > 1e-9 {
		t.Fatalf("expected 30 minutes, got %v", m)
	}
	if m := TravelMinutes(nil, 40); m != nil {
		t.Fatalf("expected nil to propagate, got %f", *m)
	}
}
