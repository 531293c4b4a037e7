package mag

// Model holds the correction parameters for one sensor: a hard-iron offset
// vector in counts and a soft-iron 3x3 transform. Correction is
//
//	corrected[i] = sum_j Matrix[i][j] * (raw[j] - Offset[j])
//
// A simple per-axis offset+scale calibration is just the diagonal special
// case, so there is no separate "which calibration style" branch anywhere.
type Model struct {
	Offset [3]int32      `json:"offset"`
	Matrix [3][3]float64 `json:"matrix"`
}

// Identity returns the no-op model: zero offsets, identity matrix.
func Identity() Model {
	return Model{
		Matrix: [3][3]float64{
			{1, 0, 0},
			{0, 1, 0},
			{0, 0, 1},
		},
	}
}

// DiagonalModel builds a model from per-axis offsets and scale factors,
// with no cross-axis coupling.
func DiagonalModel(offset [3]int32, scale [3]float64) Model {
	m := Model{Offset: offset}
	for i := 0; i < 3; i++ {
		m.Matrix[i][i] = scale[i]
	}
	return m
}

// Apply corrects a raw sample. Pure function: no I/O, no hidden state.
// A corrected value of exactly zero is an ordinary reading; "no sample"
// is always an error at the read site, never a numeric sentinel.
func (m Model) Apply(s Sample) [3]float64 {
	shifted := [3]float64{
		float64(int32(s.X) - m.Offset[0]),
		float64(int32(s.Y) - m.Offset[1]),
		float64(int32(s.Z) - m.Offset[2]),
	}
	var out [3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i] += m.Matrix[i][j] * shifted[j]
		}
	}
	return out
}
