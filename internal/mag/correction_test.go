package mag

import (
	"math"
	"testing"
)

func TestIdentityIsNoOp(t *testing.T) {
	m := Identity()
	samples := []Sample{
		{X: 0, Y: 0, Z: 0},
		{X: 100, Y: -200, Z: 300},
		{X: 32767, Y: -32768, Z: -1},
	}
	for _, s := range samples {
		got := m.Apply(s)
		want := [3]float64{float64(s.X), float64(s.Y), float64(s.Z)}
		if got != want {
			t.Errorf("Identity().Apply(%+v) = %v, want %v", s, got, want)
		}
	}
}

func TestDiagonalModelApply(t *testing.T) {
	m := DiagonalModel([3]int32{10, -20, 0}, [3]float64{2, 0.5, 1})
	got := m.Apply(Sample{X: 110, Y: 80, Z: -30})
	want := [3]float64{200, 50, -30}
	if got != want {
		t.Errorf("Apply = %v, want %v", got, want)
	}
}

func TestApplyOffsetOnly(t *testing.T) {
	// Pure hard-iron correction: a sample sitting exactly at the offset
	// maps to the origin, and zero output is an ordinary value.
	m := DiagonalModel([3]int32{162, -211, 5}, [3]float64{1, 1, 1})
	got := m.Apply(Sample{X: 162, Y: -211, Z: 5})
	if got != ([3]float64{0, 0, 0}) {
		t.Errorf("Apply at offset = %v, want origin", got)
	}
}

func TestApplyFullMatrix(t *testing.T) {
	m := Model{
		Offset: [3]int32{1, 1, 1},
		Matrix: [3][3]float64{
			{0, 1, 0},
			{1, 0, 0},
			{0, 0, 2},
		},
	}
	got := m.Apply(Sample{X: 3, Y: 5, Z: 7})
	want := [3]float64{4, 2, 12}
	if got != want {
		t.Errorf("Apply = %v, want %v", got, want)
	}
}

func TestApplyLinearity(t *testing.T) {
	// Apply(a) - Apply(b) must equal Matrix * (a - b): the offset cancels.
	m := DiagonalModel([3]int32{37, -91, 12}, [3]float64{1.5, 0.8, 2.0})
	a := Sample{X: 500, Y: -300, Z: 100}
	b := Sample{X: -250, Y: 40, Z: -900}

	va := m.Apply(a)
	vb := m.Apply(b)
	for i := 0; i < 3; i++ {
		diff := va[i] - vb[i]
		var want float64
		switch i {
		case 0:
			want = 1.5 * float64(a.X-b.X)
		case 1:
			want = 0.8 * float64(a.Y-b.Y)
		case 2:
			want = 2.0 * float64(a.Z-b.Z)
		}
		if math.Abs(diff-want) > 1e-9 {
			t.Errorf("axis %d: Apply(a)-Apply(b) = %g, want %g", i, diff, want)
		}
	}
}
