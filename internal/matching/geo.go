// internal/matching/geo.go
// Great-circle distance between profile coordinates.

package matching

import (
	"errors"
	"math"
)

// ErrMissingLocation is returned when either side lacks coordinates
var ErrMissingLocation = errors.New("missing location")

const earthRadiusKm = 6371.0

// Distance computes the great-circle distance in whole kilometers between
// two coordinate pairs given in decimal degrees, using the spherical law of
// cosines. Nil coordinates fail with ErrMissingLocation so callers can skip
// the candidate instead of crashing.
func Distance(lat1, lon1, lat2, lon2 *float64) (int, error) {
	if lat1 == nil || lon1 == nil || lat2 == nil || lon2 == nil {
		return 0, ErrMissingLocation
	}
	return distanceKm(*lat1, *lon1, *lat2, *lon2), nil
}

func distanceKm(lat1, lon1, lat2, lon2 float64) int {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	deltaLambda := (lon2 - lon1) * math.Pi / 180

	cosine := math.Sin(phi1)*math.Sin(phi2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Cos(deltaLambda)

	// Floating point can push the argument slightly outside [-1, 1] for
	// identical or antipodal points, which would make Acos return NaN
	cosine = math.Min(1, math.Max(-1, cosine))

	return int(math.Round(earthRadiusKm * math.Acos(cosine)))
}
