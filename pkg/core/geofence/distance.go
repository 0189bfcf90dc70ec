package geofence

import (
	"github.com/tidwall/geodesic"

	"github.com/stanthony/volunteer-hours/pkg/core/model"
)

// Distance returns the geodesic distance in meters between a and b on the WGS84 ellipsoid.
// The inverse solution converges everywhere, antipodal points included.
func Distance(a, b model.Coordinate) float64 {
	if a == b {
		return 0
	}

	// Order the endpoints so the result does not depend on argument order
	if a.Latitude > b.Latitude || (a.Latitude == b.Latitude && a.Longitude > b.Longitude) {
		a, b = b, a
	}

	var meters float64
	geodesic.WGS84.Inverse(a.Latitude, a.Longitude, b.Latitude, b.Longitude, &meters, nil, nil)
	return meters
}
