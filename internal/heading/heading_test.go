package heading

import (
	"math"
	"testing"
)

func TestFromXYCardinalPoints(t *testing.T) {
	tests := []struct {
		name string
		x, y float64
		want float64
	}{
		{"north", 1, 0, 0},
		{"east", 0, 1, 90},
		{"south", -1, 0, 180},
		{"west", 0, -1, 270},
		{"northeast", 1, 1, 45},
		{"southwest", -1, -1, 225},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromXY(tt.x, tt.y, 0)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("FromXY(%g, %g, 0) = %g, want %g", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestFromXYDeclination(t *testing.T) {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }

	// Positive declination shifts east.
	if got := FromXY(1, 0, rad(10)); math.Abs(got-10) > 1e-9 {
		t.Errorf("heading with +10° declination = %g, want 10", got)
	}

	// Negative declination wraps below zero back into range.
	if got := FromXY(1, 0, rad(-10)); math.Abs(got-350) > 1e-9 {
		t.Errorf("heading with -10° declination = %g, want 350", got)
	}

	// Sum past a full turn wraps once.
	if got := FromXY(0, -1, rad(135)); math.Abs(got-45) > 1e-9 {
		t.Errorf("west + 135° declination = %g, want 45", got)
	}
}

func TestFromXYRange(t *testing.T) {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	for angle := 0.0; angle < 360; angle += 7.3 {
		for _, dec := range []float64{-179, -45, 0, 45, 179} {
			x := math.Cos(rad(angle))
			y := math.Sin(rad(angle))
			got := FromXY(x, y, rad(dec))
			if got < 0 || got >= 360 {
				t.Fatalf("FromXY(%g, %g, %g°) = %g, out of [0,360)", x, y, dec, got)
			}
		}
	}
}

func TestDirection(t *testing.T) {
	tests := []struct {
		deg  float64
		want string
	}{
		{0, "N"},
		{10, "N"},
		{22.5, "NE"}, // sector midpoint resolves clockwise
		{45, "NE"},
		{90, "E"},
		{135, "SE"},
		{180, "S"},
		{225, "SW"},
		{270, "W"},
		{315, "NW"},
		{337.4, "NW"},
		{337.5, "N"},
		{359.9, "N"},
		{360, "N"},
	}
	for _, tt := range tests {
		if got := Direction(tt.deg); got != tt.want {
			t.Errorf("Direction(%g) = %q, want %q", tt.deg, got, tt.want)
		}
	}
}

func TestTiltCompensatedFallsBack(t *testing.T) {
	// Until pitch/roll inputs are wired in, tilt compensation must match
	// the plain heading.
	for _, y := range []float64{-1, 0.3, 1} {
		if got, want := TiltCompensated(0.7, y, 0.1), FromXY(0.7, y, 0.1); got != want {
			t.Errorf("TiltCompensated = %g, want %g", got, want)
		}
	}
}
