package numdiff

import (
	"math"
	"testing"
)

func objV2(x, y []float64) {
	y[0] = x[0] * math.Sin(x[1])
	y[1] = x[1] * math.Cos(x[0])
	y[2] = math.Pow(x[0], 3) * math.Pow(x[1], -0.5)
}

func jacV2(x []float64) []float64 {
	return []float64{
		math.Sin(x[1]), x[0] * math.Cos(x[1]),
		-x[1] * math.Sin(x[0]), math.Cos(x[0]),
		3 * math.Pow(x[0], 2) * math.Pow(x[1], -0.5), -0.5 * math.Pow(x[0], 3) * math.Pow(x[1], -1.5),
	}
}

func relativeEqual(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i, v := range a {
		if v == b[i] {
			continue
		}
		delta := math.Abs(v - b[i])
		if delta/math.Max(math.Abs(v), math.Abs(b[i])) > tol {
			return false
		}
	}
	return true
}

func TestScalar(t *testing.T) {

	x0 := []float64{1.0}
	obj := func(x, y []float64) {
		y[0] = math.Sinh(x[0])
	}

	want := []float64{math.Cosh(x0[0])}
	got := []float64{0}

	j := Jacobian{N: 1, M: 1, Method: Forward, Func: obj}
	if err := j.Approx(x0, got); err != nil {
		t.Fatal("approx scalar failed", err)
	}
	if !relativeEqual(got, want, 1e-6) {
		t.Fatal("unexpected forward result")
	}

	j = Jacobian{N: 1, M: 1, Method: Central, Func: obj}
	if err := j.Approx(x0, got); err != nil {
		t.Fatal("approx scalar failed", err)
	}
	if !relativeEqual(got, want, 1e-9) {
		t.Fatal("unexpected central result")
	}

	j = Jacobian{N: 1, M: 1, Method: Forward, Func: obj, Step: 1.49e-8}
	if err := j.Approx(x0, got); err != nil {
		t.Fatal("approx scalar failed", err)
	}
	if !relativeEqual(got, want, 1e-6) {
		t.Fatal("unexpected fixed-step result")
	}

}

func TestVector(t *testing.T) {

	x0 := []float64{-100.0, 0.2}
	want := jacV2(x0)
	got := make([]float64, 6)

	j := Jacobian{N: 3, M: 2, Method: Forward, Func: objV2}
	if err := j.Approx(x0, got); err != nil {
		t.Fatal("approx vector failed", err)
	}
	if !relativeEqual(got, want, 1e-5) {
		t.Fatal("unexpected forward result")
	}

	j = Jacobian{N: 3, M: 2, Method: Central, Func: objV2}
	if err := j.Approx(x0, got); err != nil {
		t.Fatal("approx vector failed", err)
	}
	if !relativeEqual(got, want, 1e-6) {
		t.Fatal("unexpected central result")
	}

}

func TestStepSign(t *testing.T) {

	obj := func(x, y []float64) {
		y[0] = -math.Abs(x[0]+1) + math.Abs(x[1]+1)
	}

	x0 := []float64{-1, -1}
	grad := []float64{0, 0}

	j := Jacobian{N: 1, M: 2, Method: Forward, Func: obj, Step: 1e-8}
	if err := j.Approx(x0, grad); err != nil {
		t.Fatal("step sign failed", err)
	}
	if !relativeEqual(grad, []float64{-1, 1}, 1e-7) {
		t.Fatal("unexpected step sign")
	}

	// an upper bound at x0 flips the step to the feasible side
	j = Jacobian{N: 1, M: 2, Method: Forward, Func: obj, Step: 1e-8,
		Upper: []float64{-1, -1}}
	if err := j.Approx(x0, grad); err != nil {
		t.Fatal("step sign failed", err)
	}
	if !relativeEqual(grad, []float64{1, -1}, 1e-7) {
		t.Fatal("unexpected bounded step sign")
	}

}

func TestBadSpec(t *testing.T) {

	tests := []Jacobian{
		{N: 0, M: 1, Func: objV2},
		{N: 3, M: 2},
		{N: 3, M: 2, Func: objV2, Method: Method(7)},
		{N: 3, M: 2, Func: objV2, Lower: []float64{0}},
		{N: 3, M: 2, Func: objV2, Upper: []float64{0}},
	}

	df := make([]float64, 6)
	for k := range tests {
		if err := tests[k].Approx([]float64{1, 2}, df); err == nil {
			t.Fatal("unexpected spec check at", k)
		}
	}

	j := Jacobian{N: 3, M: 2, Func: objV2}
	if err := j.Approx([]float64{1}, df); err == nil {
		t.Fatal("unexpected p dimension check")
	}
	if err := j.Approx([]float64{1, 2}, df[:2]); err == nil {
		t.Fatal("unexpected df dimension check")
	}

}
