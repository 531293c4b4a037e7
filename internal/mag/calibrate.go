// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package mag

import (
	"fmt"
	"math"
	"time"
)

// State of a calibrator.
type State int

const (
	StateIdle State = iota
	StateCollecting
	StateComputed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCollecting:
		return "collecting"
	case StateComputed:
		return "computed"
	default:
		return "unknown"
	}
}

// Result of a completed calibration run.
//
// Offset is the ellipsoid center (hard iron), Scale the per-axis
// normalization factors (soft iron, diagonal approximation). Degenerate
// marks axes whose min/max range collapsed to zero; those keep scale 1.
// Coverage and Sphericity are quality heuristics in [0,1]: balanced
// excitation across axes, and norm stability after correction.
type Result struct {
	Offset     [3]int32   `json:"offset"`
	Scale      [3]float64 `json:"scale"`
	Degenerate [3]bool    `json:"degenerate"`
	Samples    int        `json:"samples"`
	Coverage   float64    `json:"coverage"`
	Sphericity float64    `json:"sphericity"`
	Confidence float64    `json:"confidence"`
	Model      Model      `json:"model"`
}

// Calibrator derives a correction model from a rotation sweep using the
// min/max method: offsets from the center of the per-axis envelope, scales
// from normalizing each half-range to the average radius. It is a
// practical approximation, robust and easy, though not as accurate as a
// full 3x3 ellipsoid fit.
type Calibrator struct {
	reader SampleReader
	clock  Clock
	state  State
}

func NewCalibrator(r SampleReader) *Calibrator {
	return &Calibrator{reader: r, clock: realClock{}}
}

// SetClock replaces the sampling clock. Intended for tests.
func (c *Calibrator) SetClock(clk Clock) { c.clock = clk }

func (c *Calibrator) State() State { return c.state }

// Run collects sampleCount raw reads spaced by delay and computes the
// correction parameters. No samples are discarded: every read contributes
// to the min/max envelope. progress, if non-nil, receives the completion
// percentage as collection advances.
//
// A transport error aborts the run, returns the calibrator to idle and
// yields no partial result; the caller's current model stays untouched.
func (c *Calibrator) Run(sampleCount int, delay time.Duration, progress func(pct float64)) (Result, error) {
	if sampleCount <= 0 {
		return Result{}, fmt.Errorf("calibration: sample count must be positive, got %d", sampleCount)
	}
	c.state = StateCollecting

	samples := make([]Sample, 0, sampleCount)
	for i := 0; i < sampleCount; i++ {
		s, err := c.reader.ReadRaw()
		if err != nil {
			c.state = StateIdle
			return Result{}, fmt.Errorf("calibration aborted at sample %d/%d: %w", i, sampleCount, err)
		}
		samples = append(samples, s)

		if progress != nil && i%100 == 0 {
			progress(float64(i) / float64(sampleCount) * 100)
		}
		c.clock.Sleep(delay)
	}
	if progress != nil {
		progress(100)
	}

	res := compute(samples)
	c.state = StateComputed
	return res, nil
}

// compute derives offsets and scales from the collected sweep. Offsets use
// truncating integer division, matching the sensor's two's-complement
// count domain.
func compute(samples []Sample) Result {
	minV := [3]int32{valueHalf, valueHalf, valueHalf}
	maxV := [3]int32{-valueHalf - 1, -valueHalf - 1, -valueHalf - 1}
	for _, s := range samples {
		for axis, v := range [3]int32{int32(s.X), int32(s.Y), int32(s.Z)} {
			if v < minV[axis] {
				minV[axis] = v
			}
			if v > maxV[axis] {
				maxV[axis] = v
			}
		}
	}

	var res Result
	var radius [3]float64
	for i := 0; i < 3; i++ {
		res.Offset[i] = (minV[i] + maxV[i]) / 2
		radius[i] = float64(maxV[i]-minV[i]) / 2
	}
	avgRadius := (radius[0] + radius[1] + radius[2]) / 3

	for i := 0; i < 3; i++ {
		if radius[i] > 0 {
			res.Scale[i] = avgRadius / radius[i]
		} else {
			// Zero-range axis: the sweep never excited it. Leave the
			// axis unscaled rather than dividing by zero.
			res.Scale[i] = 1
			res.Degenerate[i] = true
		}
	}

	res.Samples = len(samples)
	res.Model = DiagonalModel(res.Offset, res.Scale)
	res.Coverage = coverage(radius)
	res.Sphericity = sphericity(samples, res.Model)
	res.Confidence = clamp01(0.55*res.Coverage + 0.45*res.Sphericity)
	return res
}

// coverage rewards balanced excitation across the three axes.
func coverage(radius [3]float64) float64 {
	m := (radius[0] + radius[1] + radius[2]) / 3
	if m <= 0 {
		return 0
	}
	cv := std3(radius[0], radius[1], radius[2]) / m
	return clamp01(1.0 - cv/0.7)
}

// sphericity checks norm stability after correction: if the sweep covered
// all orientations, corrected norms should be near-constant.
func sphericity(samples []Sample, model Model) float64 {
	if len(samples) < 50 {
		return 0
	}
	norms := make([]float64, 0, len(samples))
	for _, s := range samples {
		v := model.Apply(s)
		norms = append(norms, math.Sqrt(v[0]*v[0]+v[1]*v[1]+v[2]*v[2]))
	}
	mean, sd := meanStd(norms)
	if mean <= 0 {
		return 0
	}
	cv := sd / mean
	return clamp01(1.0 - cv/0.5)
}

func meanStd(xs []float64) (mean, sd float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, v := range xs {
		mean += v
	}
	mean /= float64(len(xs))
	var s float64
	for _, v := range xs {
		d := v - mean
		s += d * d
	}
	return mean, math.Sqrt(s / float64(len(xs)))
}

func std3(a, b, c float64) float64 {
	m := (a + b + c) / 3
	return math.Sqrt(((a-m)*(a-m) + (b-m)*(b-m) + (c-m)*(c-m)) / 3)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
