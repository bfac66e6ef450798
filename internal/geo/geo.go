// Package geo provides the great-circle distance and coordinate validation
// used by candidate filtering and scoring (spec C1).
//
// Distance uses orb's haversine implementation, the same library the
// aurel42-phileasgo example uses for its POI distance scoring. orb works on
// a sphere of radius orb.EarthRadius (6378.137 km); its result is rescaled
// to a sphere of R=6371 km.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Result is a haversine distance in kilometers, or the "unknown" sentinel
// when either coordinate is missing. Never a bare zero value standing in
// for "no data" — spec.md §4.1 is explicit about this.
type Result struct {
	KM    float64
	Known bool
}

// Unknown is the sentinel returned when a coordinate is missing.
var Unknown = Result{Known: false}

// Distance computes the great-circle distance between two WGS84 points.
// lat/lon of zero for BOTH components of a point is treated as "missing"
// (the ocean-off-Africa null island is never a real technician or customer
// location in this domain).
func Distance(lat1, lon1, lat2, lon2 float64) Result {
	if !Valid(lat1, lon1) || !Valid(lat2, lon2) {
		return Unknown
	}
	p1 := orb.Point{lon1, lat1}
	p2 := orb.Point{lon2, lat2}
	meters := geo.Distance(p1, p2)
	// Great-circle distance is linear in the radius, so dividing by orb's
	// radius gives the central angle, which is then scaled to R=6371 km.
	return Result{KM: meters / orb.EarthRadius * earthRadiusKM, Known: true}
}

// earthRadiusKM is the sphere radius distances are reported on.
const earthRadiusKM = 6371.0

// Valid reports whether (lat, lon) is a plausible, non-null coordinate.
func Valid(lat, lon float64) bool {
	if lat == 0 && lon == 0 {
		return false
	}
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
