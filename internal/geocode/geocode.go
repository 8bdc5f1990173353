package geocode

import (
	"context"
	"errors"
	"strings"

	"github.com/fieldops/backend/internal/models"
)

var ErrNotFound = errors.New("geocode not found")

type Geocoder interface {
	Geocode(ctx context.Context, query string) (lat float64, lon float64, displayName string, confidence float64, err error)
}

// BuildJobQuery assembles the free-text query for a job location. Empty
// parts are dropped.
func BuildJobQuery(city string, address string) string {
	city = strings.TrimSpace(city)
	address = strings.TrimSpace(address)
	parts := []string{}
	if address != "" {
		parts = append(parts, address)
	}
	if city != "" {
		parts = append(parts, city)
	}
	return strings.Join(parts, ", ")
}

// ShouldGeocode reports whether a job needs coordinate resolution. Jobs that
// already carry both coordinates are skipped unless forced.
func ShouldGeocode(job models.Job, force bool) bool {
	if force {
		return true
	}
	return job.Lat == nil || job.Lon == nil
}
