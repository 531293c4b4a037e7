package mag

import (
	"errors"
	"math"
	"testing"
	"time"
)

// scriptReader replays a fixed sample sequence, cycling when exhausted.
// failAt >= 0 makes the read with that index fail.
type scriptReader struct {
	samples []Sample
	failAt  int
	reads   int
}

var errBus = errors.New("i2c: remote I/O error")

func newScriptReader(samples []Sample) *scriptReader {
	return &scriptReader{samples: samples, failAt: -1}
}

func (r *scriptReader) ReadRaw() (Sample, error) {
	if r.failAt >= 0 && r.reads == r.failAt {
		return Sample{}, errBus
	}
	s := r.samples[r.reads%len(r.samples)]
	r.reads++
	return s, nil
}

// fakeClock records sleeps without waiting.
type fakeClock struct {
	sleeps []time.Duration
}

func (c *fakeClock) Sleep(d time.Duration) { c.sleeps = append(c.sleeps, d) }

func runCalibration(t *testing.T, reader SampleReader, count int) Result {
	t.Helper()
	cal := NewCalibrator(reader)
	cal.SetClock(&fakeClock{})
	res, err := cal.Run(count, 10*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if cal.State() != StateComputed {
		t.Fatalf("state after Run = %v, want %v", cal.State(), StateComputed)
	}
	return res
}

func TestCalibratorOffsetsAndScales(t *testing.T) {
	// Envelope per axis: X [-300,100], Y [-200,400], Z constant zero.
	samples := []Sample{
		{X: 100, Y: -200, Z: 0},
		{X: -300, Y: 400, Z: 0},
		{X: 50, Y: 0, Z: 0},
	}
	res := runCalibration(t, newScriptReader(samples), 6)

	if want := [3]int32{-100, 100, 0}; res.Offset != want {
		t.Errorf("Offset = %v, want %v", res.Offset, want)
	}

	// radii: 200, 300, 0; average 500/3
	avg := 500.0 / 3
	wantScale := [3]float64{avg / 200, avg / 300, 1}
	for i := 0; i < 3; i++ {
		if math.Abs(res.Scale[i]-wantScale[i]) > 1e-9 {
			t.Errorf("Scale[%d] = %g, want %g", i, res.Scale[i], wantScale[i])
		}
	}

	if res.Degenerate != ([3]bool{false, false, true}) {
		t.Errorf("Degenerate = %v, want only Z", res.Degenerate)
	}
	if res.Samples != 6 {
		t.Errorf("Samples = %d, want 6", res.Samples)
	}
}

func TestCalibratorOffsetTruncation(t *testing.T) {
	// Offsets use truncating integer division, toward zero on both signs:
	// (-5+4)/2 = 0, (-5-4)/2 = -4, (0+4)/2 = 2.
	samples := []Sample{
		{X: -5, Y: -5, Z: 0},
		{X: 4, Y: -4, Z: 4},
	}
	res := runCalibration(t, newScriptReader(samples), 4)

	if want := [3]int32{0, -4, 2}; res.Offset != want {
		t.Errorf("Offset = %v, want %v", res.Offset, want)
	}
}

func TestCalibratorAbortOnReadError(t *testing.T) {
	reader := newScriptReader([]Sample{{X: 1, Y: 2, Z: 3}})
	reader.failAt = 7

	cal := NewCalibrator(reader)
	cal.SetClock(&fakeClock{})

	res, err := cal.Run(20, time.Millisecond, nil)
	if err == nil {
		t.Fatal("Run should fail when a read fails")
	}
	if !errors.Is(err, errBus) {
		t.Errorf("error %v should wrap the transport error", err)
	}
	if cal.State() != StateIdle {
		t.Errorf("state after abort = %v, want %v", cal.State(), StateIdle)
	}
	if res != (Result{}) {
		t.Errorf("aborted run must not return a partial result, got %+v", res)
	}
}

func TestCalibratorRejectsNonPositiveCount(t *testing.T) {
	cal := NewCalibrator(newScriptReader([]Sample{{}}))
	cal.SetClock(&fakeClock{})
	if _, err := cal.Run(0, time.Millisecond, nil); err == nil {
		t.Error("Run(0) should fail")
	}
	if cal.State() != StateIdle {
		t.Errorf("state = %v, want %v", cal.State(), StateIdle)
	}
}

func TestCalibratorProgressAndPacing(t *testing.T) {
	clock := &fakeClock{}
	cal := NewCalibrator(newScriptReader([]Sample{{X: 1}, {X: -1}}))
	cal.SetClock(clock)

	var pcts []float64
	_, err := cal.Run(250, 10*time.Millisecond, func(pct float64) {
		pcts = append(pcts, pct)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []float64{0, 40, 80, 100}
	if len(pcts) != len(want) {
		t.Fatalf("progress calls = %v, want %v", pcts, want)
	}
	for i := range want {
		if math.Abs(pcts[i]-want[i]) > 1e-9 {
			t.Errorf("progress[%d] = %g, want %g", i, pcts[i], want[i])
		}
	}

	if len(clock.sleeps) != 250 {
		t.Errorf("sleep count = %d, want 250", len(clock.sleeps))
	}
	for _, d := range clock.sleeps {
		if d != 10*time.Millisecond {
			t.Fatalf("sleep = %v, want 10ms", d)
		}
	}
}

func TestCalibratorSphereSweep(t *testing.T) {
	// A full-coverage sweep on a sphere centered off-origin: the computed
	// model must recover the center, leave the scales near 1 and score a
	// high confidence.
	center := [3]float64{162, -211, 30}
	const radius = 1800.0
	const n = 400

	samples := make([]Sample, n)
	for i := 0; i < n; i++ {
		// golden-spiral point distribution over the sphere
		z := 1 - 2*(float64(i)+0.5)/n
		r := math.Sqrt(1 - z*z)
		phi := float64(i) * math.Pi * (3 - math.Sqrt(5))
		samples[i] = Sample{
			X: int16(math.Round(center[0] + radius*r*math.Cos(phi))),
			Y: int16(math.Round(center[1] + radius*r*math.Sin(phi))),
			Z: int16(math.Round(center[2] + radius*z)),
		}
	}

	res := runCalibration(t, newScriptReader(samples), n)

	for i := 0; i < 3; i++ {
		if math.Abs(float64(res.Offset[i])-center[i]) > 25 {
			t.Errorf("Offset[%d] = %d, want near %g", i, res.Offset[i], center[i])
		}
		if math.Abs(res.Scale[i]-1) > 0.05 {
			t.Errorf("Scale[%d] = %g, want near 1", i, res.Scale[i])
		}
		if res.Degenerate[i] {
			t.Errorf("axis %d flagged degenerate on a full sweep", i)
		}
	}
	if res.Confidence < 0.7 {
		t.Errorf("Confidence = %g, want >= 0.7 for a full sweep", res.Confidence)
	}
}
