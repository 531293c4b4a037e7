package gps

// Fix is a single GPS ground-track fix, published so consoles can compare
// the compass heading against course over ground while moving.
type Fix struct {
	Time         string  `json:"time"`           // e.g. "12:34:56"
	Date         string  `json:"date"`           // e.g. "2026-08-24"
	Latitude     float64 `json:"lat"`            // decimal degrees
	Longitude    float64 `json:"lon"`            // decimal degrees
	SpeedKnots   float64 `json:"speed_knots"`    // speed over ground
	CourseDeg    float64 `json:"course_deg"`     // true course over ground
	CourseMagDeg float64 `json:"course_mag_deg"` // magnetic course from VTG, when present
	Validity     string  `json:"validity"`       // "A" (valid) / "V" (void), etc.
}
