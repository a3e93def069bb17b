// Package source fetches raster time series from registered dataset
// providers.
package source

import (
	"context"
	"strings"
	"time"

	"github.com/forest-guardian/geocomposite/internal/raster"
	"github.com/forest-guardian/geocomposite/internal/region"
)

// DateRange is the half-open interval [Start, End).
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (d DateRange) Contains(t time.Time) bool {
	return !t.Before(d.Start) && t.Before(d.End)
}

// Years covers January 1 of first to January 1 after last, in UTC.
func Years(first, last int) DateRange {
	return DateRange{
		Start: time.Date(first, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(last+1, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Scene is one acquisition found by a provider search. Metadata carries
// numeric scene properties such as CLOUD_COVER.
type Scene struct {
	ID       string
	Time     time.Time
	Metadata map[string]float64
	// Ref is provider specific, such as a file path or a request payload.
	Ref string
}

// Provider is the boundary to a raster store. Search must not transfer
// pixels; Load returns the scene clipped to the region's bounding box.
type Provider interface {
	Search(ctx context.Context, area region.Region, dates DateRange) ([]Scene, error)
	Load(ctx context.Context, scene Scene, area region.Region) (*raster.Raster, error)
}

// MetadataFilter selects scenes before any pixel is loaded.
type MetadataFilter func(Scene) bool

// CloudCoverBelow keeps scenes whose key property is below max. Scenes
// without the property are kept.
func CloudCoverBelow(key string, max float64) MetadataFilter {
	return func(s Scene) bool {
		v, ok := s.Metadata[key]
		return !ok || v < max
	}
}

// AllOf keeps scenes every filter keeps.
func AllOf(filters ...MetadataFilter) MetadataFilter {
	return func(s Scene) bool {
		for _, f := range filters {
			if f != nil && !f(s) {
				return false
			}
		}
		return true
	}
}

// IDPrefix keeps scenes whose ID starts with prefix, such as a sensor or
// tile code.
func IDPrefix(prefix string) MetadataFilter {
	return func(s Scene) bool { return strings.HasPrefix(s.ID, prefix) }
}
