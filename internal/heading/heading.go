// Package heading converts a corrected horizontal field vector into a
// compass bearing and an eight-point direction label.
package heading

import "math"

// Compass point labels, clockwise from north. The ninth entry closes the
// circle; Direction's modulo keeps any in-range heading inside the table.
var directions = [...]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW", "N"}

// FromXY returns the compass heading in degrees [0,360) for a corrected
// (x,y) field pair. declinationRad is added so the bearing references true
// north instead of magnetic north.
//
// The wrap correction applies at most one 2π adjustment each way. That is
// sufficient here: atan2 yields (-π,π] and the declination is bounded well
// inside one turn, so the sum can leave [0,2π) by at most one period.
func FromXY(x, y, declinationRad float64) float64 {
	theta := math.Atan2(y, x) + declinationRad

	// Correct for when signs are reversed.
	if theta < 0 {
		theta += 2 * math.Pi
	}

	// Wrap due to the declination addition.
	if theta >= 2*math.Pi {
		theta -= 2 * math.Pi
	}

	return theta * 180 / math.Pi
}

// TiltCompensated returns the heading adjusted for sensor tilt. Proper
// compensation needs pitch and roll from a companion accelerometer; until
// one is wired in, this returns the uncompensated heading.
func TiltCompensated(x, y, declinationRad float64) float64 {
	return FromXY(x, y, declinationRad)
}

// Direction maps a heading in degrees to one of the eight compass points
// via round(deg/45) mod 8. math.Round rounds halves away from zero, so an
// exact sector midpoint resolves to the clockwise-next label: 22.5 is NE,
// 67.5 is E, and so on.
func Direction(deg float64) string {
	return directions[int(math.Round(deg/45))%8]
}
