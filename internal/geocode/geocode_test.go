package geocode

import (
	"testing"

	"github.com/fieldops/backend/internal/models"
)

func TestBuildJobQuery(t *testing.T) {
	cases := []struct {
		city, address, want string
	}{
		{"Astana", "12 Mangilik El Ave", "12 Mangilik El Ave, Astana"},
		{"", "12 Mangilik El Ave", "12 Mangilik El Ave"},
		{"  Almaty  ", "", "Almaty"},
		{"", "", ""},
	}
	for _, c := range cases {
		if got := BuildJobQuery(c.city, c.address); got != c.want {
			t.Fatalf("BuildJobQuery(%q, %q) = %q, want %q", c.city, c.address, got, c.want)
		}
	}
}

func TestShouldGeocode(t *testing.T) {
	lat, lon := 51.1605, 71.4704
	located := models.Job{Lat: &lat, Lon: &lon}
	unlocated := models.Job{Lat: &lat}

	if ShouldGeocode(located, false) {
		t.Fatal("job with coordinates should not be geocoded")
	}
	if !ShouldGeocode(unlocated, false) {
		t.Fatal("job missing a coordinate should be geocoded")
	}
	if !ShouldGeocode(located, true) {
		t.Fatal("force should always geocode")
	}
}
