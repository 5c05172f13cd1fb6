package numdiff

import (
	"errors"
	"math"
)

var sqrtEps = math.Sqrt(math.Nextafter(1, 2) - 1)
var cubeEps = math.Pow(math.Nextafter(1, 2)-1, float64(1)/3)

type Method int

const (
	// Forward use the first order accuracy forward difference.
	Forward Method = iota
	// Central use the second order accuracy central difference.
	Central
)

// Jacobian approximates the n×m matrix of partial derivatives of a
// vector-valued function by finite differences.
//
// # Reference:
//
//   - https://en.wikipedia.org/wiki/Finite_difference
//   - https://github.com/scipy/scipy/blob/main/scipy/optimize/_numdiff.py
type Jacobian struct {
	// N is the number of function outputs, M the number of variables.
	N, M int
	// Function of which to estimate the derivatives.
	// The argument p passed to this function is an m-vector.
	// The result is stored in an n-vector y.
	Func func(p, y []float64)
	// Finite difference method to use.
	Method Method
	// Absolute step size for every variable.
	// When zero, a per-variable step h = sign(pᵢ)·ε·max(1,|pᵢ|) is selected
	// with ε = √εₘ for Forward and ∛εₘ for Central.
	Step float64
	// Optional bounds on the variables. A step leaving the feasible box is
	// reflected to the other side; when both sides are infeasible it is
	// shrunk to the wider one. Nil slices mean unbounded.
	Lower, Upper []float64

	diffCtx
}

type diffCtx struct {
	y0, y1 []float64
	step   []float64
}

func (j *Jacobian) check(p, df []float64) (err error) {
	switch {
	case j.N <= 0 || j.M <= 0:
		err = errors.New("negative dimensions")
	case j.Method != Forward && j.Method != Central:
		err = errors.New("unknown method")
	case j.Func == nil:
		err = errors.New("object function is required")
	case j.M != len(p):
		err = errors.New("invalid p dimensions")
	case j.N*j.M != len(df):
		err = errors.New("invalid df dimensions")
	case j.Lower != nil && len(j.Lower) != j.M:
		err = errors.New("invalid lower bound dimensions")
	case j.Upper != nil && len(j.Upper) != j.M:
		err = errors.New("invalid upper bound dimensions")
	}
	if err != nil {
		return
	}
	if len(j.y0) != j.N {
		j.y0 = make([]float64, j.N)
		j.y1 = make([]float64, j.N)
	}
	if len(j.step) != j.M {
		j.step = make([]float64, j.M)
	}
	return
}

// Approx estimates the Jacobian of Func at p and stores it into df,
// row-major with one row per function output.
func (j *Jacobian) Approx(p, df []float64) error {

	if err := j.check(p, df); err != nil {
		return err
	}

	j.absoluteStep(p)
	j.adjustToBounds(p)

	if j.Method == Central {
		j.approxCentral(p, df)
	} else {
		j.approxForward(p, df)
	}

	return nil
}

func (j *Jacobian) absoluteStep(p []float64) {
	eps := sqrtEps
	if j.Method == Central {
		eps = cubeEps
	}
	for i, v := range p {
		s := j.Step
		if s == 0 {
			s = math.Copysign(eps, v) * math.Max(1, math.Abs(v))
		}
		// guard against steps vanishing in the rounding of v+s
		if d := (v + s) - v; d == 0 {
			s = math.Copysign(eps, v) * math.Max(1, math.Abs(v))
		}
		j.step[i] = s
	}
}

func (j *Jacobian) adjustToBounds(p []float64) {
	if j.Lower == nil && j.Upper == nil {
		return
	}
	lo := func(i int) float64 {
		if j.Lower == nil || math.IsNaN(j.Lower[i]) {
			return math.Inf(-1)
		}
		return j.Lower[i]
	}
	up := func(i int) float64 {
		if j.Upper == nil || math.IsNaN(j.Upper[i]) {
			return math.Inf(1)
		}
		return j.Upper[i]
	}
	for i, v := range p {
		lb, ub := lo(i), up(i)
		h := j.step[i]
		ld, ud := v-lb, ub-v
		switch {
		case v+h >= lb && v+h <= ub:
			// feasible as is
		case v-h >= lb && v-h <= ub:
			j.step[i] = -h
		case ud >= ld:
			j.step[i] = ud
		default:
			j.step[i] = -ld
		}
	}
}

func (j *Jacobian) approxForward(p, df []float64) {
	y0, y1, h, m := j.y0, j.y1, j.step, j.M
	j.Func(p, y0)
	for i, s := range h {
		t := p[i]
		p[i] = t + s
		j.Func(p, y1)
		d := 1 / s
		for r := range y0 {
			df[r*m+i] = (y1[r] - y0[r]) * d
		}
		p[i] = t
	}
}

func (j *Jacobian) approxCentral(p, df []float64) {
	y0, y1, h, m := j.y0, j.y1, j.step, j.M
	for i, s := range h {
		t := p[i]
		d := 1 / (2 * s)
		p[i] = t - s
		j.Func(p, y0)
		p[i] = t + s
		j.Func(p, y1)
		for r := range y0 {
			df[r*m+i] = (y1[r] - y0[r]) * d
		}
		p[i] = t
	}
}
