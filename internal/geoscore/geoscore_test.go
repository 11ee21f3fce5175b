package geoscore

import (
	"math"
	"testing"

	"pgregory.net/rapid"
)

func TestDistanceMetersZero(t *testing.T) {
	if d := DistanceMeters(43.4723, -80.5417, 43.4723, -80.5417); d != 0 {
		t.Fatalf("distance to self = %v, want 0", d)
	}
}

func TestDistanceMetersKnown(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		want                   float64
		tol                    float64
	}{
		{
			name: "one degree of latitude",
			lat1: 0, lng1: 0, lat2: 1, lng2: 0,
			want: EarthRadiusMeters * math.Pi / 180,
			tol:  1e-6,
		},
		{
			name: "campus: ~1km east",
			lat1: 43.4723, lng1: -80.5417, lat2: 43.4723, lng2: -80.5417 + 0.0138,
			want: 1113.6,
			tol:  5,
		},
		{
			name: "antipodal points",
			lat1: 0, lng1: 0, lat2: 0, lng2: 180,
			want: EarthRadiusMeters * math.Pi,
			tol:  1e-3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceMeters(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("DistanceMeters() = %v, want %v ± %v", got, tt.want, tt.tol)
			}
		})
	}
}

func TestDistanceMetersProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lat1 := rapid.Float64Range(-90, 90).Draw(t, "lat1")
		lng1 := rapid.Float64Range(-180, 180).Draw(t, "lng1")
		lat2 := rapid.Float64Range(-90, 90).Draw(t, "lat2")
		lng2 := rapid.Float64Range(-180, 180).Draw(t, "lng2")

		ab := DistanceMeters(lat1, lng1, lat2, lng2)
		ba := DistanceMeters(lat2, lng2, lat1, lng1)
		if ab != ba {
			t.Fatalf("asymmetric: %v vs %v", ab, ba)
		}
		if ab < 0 || math.IsNaN(ab) {
			t.Fatalf("invalid distance %v", ab)
		}
		if self := DistanceMeters(lat1, lng1, lat1, lng1); self != 0 {
			t.Fatalf("distance to self = %v", self)
		}
	})
}

func TestScoreBoundaries(t *testing.T) {
	tests := []struct {
		distance float64
		want     int
	}{
		{0, 5000},
		{29.999, 5000},
		{30, 5000},
		{100, 3352},
		{500, 677},
		{999.999, 92},
		{1000, 0},
		{1000.001, 0},
		{25000, 0},
		{math.Log(2) / DecayPerMeter, 2500},
		{math.Log(5) / DecayPerMeter, 1000},
	}

	for _, tt := range tests {
		if got := Score(tt.distance); got != tt.want {
			t.Errorf("Score(%v) = %d, want %d", tt.distance, got, tt.want)
		}
	}
}

func TestScoreJustOutsidePerfectRadius(t *testing.T) {
	// round(5000 * e^-0.12004) = 4434: the curve drops sharply past the tolerance.
	if got := Score(30.01); got != 4434 {
		t.Fatalf("Score(30.01) = %d, want 4434", got)
	}
}

func TestScoreMonotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		d1 := rapid.Float64Range(0, 2000).Draw(t, "d1")
		d2 := rapid.Float64Range(0, 2000).Draw(t, "d2")
		if d1 > d2 {
			d1, d2 = d2, d1
		}
		s1, s2 := Score(d1), Score(d2)
		if s1 < s2 {
			t.Fatalf("Score(%v)=%d < Score(%v)=%d", d1, s1, d2, s2)
		}
		if s1 < 0 || s1 > MaxScore {
			t.Fatalf("score out of range: %d", s1)
		}
	})
}

func TestFormatDistance(t *testing.T) {
	if got := FormatDistance(87.4); got != "87m" {
		t.Errorf("FormatDistance(87.4) = %q", got)
	}
	if got := FormatDistance(1200); got != "1.20km" {
		t.Errorf("FormatDistance(1200) = %q", got)
	}
}
