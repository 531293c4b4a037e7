// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package mag

import (
	"math"
	"time"
)

type mockReader struct {
	start time.Time
}

// NewMockReader returns a SampleReader that simulates a sensor turning
// slowly in the horizontal plane, with unequal axis gains and a fixed
// hard-iron bias so calibration has something to find.
func NewMockReader() SampleReader {
	return &mockReader{start: time.Now()}
}

func (m *mockReader) ReadRaw() (Sample, error) {
	elapsed := time.Since(m.start).Seconds()
	theta := elapsed * 0.8

	return Sample{
		X: int16(1800*math.Cos(theta)) + 162,
		Y: int16(1500*math.Sin(theta)) - 211,
		Z: int16(400 * math.Sin(theta*0.3)),
	}, nil
}
