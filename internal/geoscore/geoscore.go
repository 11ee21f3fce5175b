// internal/geoscore/geoscore.go
//
// Distance and scoring math for a single guess.
//   - DistanceMeters: Haversine great-circle distance.
//   - Score: bounded exponential decay from distance to points.
//
// Both functions are pure; callers must only pass photos that carry coordinates.
package geoscore

import (
	"fmt"
	"math"
)

// EarthRadiusMeters is the sphere radius used by the Haversine formula.
const EarthRadiusMeters = 6371000.0

// Scoring tunables. Game balance is adjusted here and nowhere else.
const (
	// MaxScore is awarded for any guess inside PerfectRadiusMeters.
	MaxScore = 5000
	// PerfectRadiusMeters is the tolerance radius for a perfect guess.
	PerfectRadiusMeters = 30.0
	// MaxScoringDistanceMeters is the radius beyond which no points are awarded.
	MaxScoringDistanceMeters = 1000.0
	// DecayPerMeter is the exponential falloff constant.
	DecayPerMeter = 0.004
)

// DistanceMeters returns the Haversine distance in meters between two
// lat/lng points given in degrees.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	if lat1 == lat2 && lng1 == lng2 {
		return 0
	}
	φ1 := lat1 * math.Pi / 180.0
	φ2 := lat2 * math.Pi / 180.0
	dφ := (lat2 - lat1) * math.Pi / 180.0
	dλ := (lng2 - lng1) * math.Pi / 180.0

	sinDφ := math.Sin(dφ / 2)
	sinDλ := math.Sin(dλ / 2)

	a := sinDφ*sinDφ + math.Cos(φ1)*math.Cos(φ2)*sinDλ*sinDλ
	// Rounding can push a a hair outside [0,1] for antipodal points.
	a = math.Min(1, math.Max(0, a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

// Score converts a distance in meters into points in [0, MaxScore].
//
// Rounding uses math.Round (half away from zero), so the value at 500m is
// round(5000*e^-2) = 677 and at 100m round(5000*e^-0.4) = 3352.
func Score(distanceMeters float64) int {
	if math.IsNaN(distanceMeters) {
		return 0
	}
	if distanceMeters <= PerfectRadiusMeters {
		return MaxScore
	}
	if distanceMeters >= MaxScoringDistanceMeters {
		return 0
	}
	raw := float64(MaxScore) * math.Exp(-DecayPerMeter*distanceMeters)
	score := int(math.Round(raw))
	if score < 0 {
		return 0
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// FormatDistance renders a distance for humans, e.g. "87m" or "1.20km".
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%.0fm", meters)
	}
	return fmt.Sprintf("%.2fkm", meters/1000.0)
}
