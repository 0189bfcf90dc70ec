package geofence

import (
	"github.com/stanthony/volunteer-hours/pkg/core/model"
)

// Result is the outcome of gating a coordinate against a venue
type Result struct {
	Resolved       bool    // false when no coordinate was available
	Within         bool    // true only when Resolved and DistanceMeters <= radius
	DistanceMeters float64 // zero when not resolved
	RadiusMeters   float64
}

// IsWithinVenue reports whether c lies inside the venue radius (boundary inclusive).
// A nil coordinate never passes.
func IsWithinVenue(c *model.Coordinate, venue model.Venue) bool {
	return Check(c, venue).Within
}

// Check computes the distance from c to the venue center and gates it against the radius
func Check(c *model.Coordinate, venue model.Venue) Result {
	if c == nil {
		return Result{RadiusMeters: venue.RadiusMeters}
	}

	distance := Distance(*c, venue.Center)
	return Result{
		Resolved:       true,
		Within:         distance <= venue.RadiusMeters,
		DistanceMeters: distance,
		RadiusMeters:   venue.RadiusMeters,
	}
}
