// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package curve fits fixed-arity curve models y = 𝒇(𝐩, x) to sample pairs
// by nonlinear least squares.
//
// A model is written once against the dual-number arithmetic of
// gonum.org/v1/gonum/num/dual and serves two purposes: evaluated with bare
// values it predicts, evaluated with a unit derivative tag on one parameter
// it yields that parameter's Jacobian column exactly. Callers therefore get
// analytic-quality derivatives without writing a Jacobian; an explicit
// gradient can still be supplied to skip the dual-number passes.
package curve

import (
	"errors"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/dual"

	"github.com/curioloop/levmar"
)

// Point is one (independent, dependent) measurement pair.
type Point struct {
	X, Y float64
}

// Func evaluates a curve model at x with the parameters p. The arithmetic
// must flow through the dual package so derivatives can be propagated; the
// independent variable always carries a zero derivative.
type Func func(p []dual.Number, x dual.Number) dual.Number

// JacRow writes the model gradient ∂𝒇/∂pᵢ at x into row.
type JacRow func(p []float64, x float64, row []float64)

// Problem specifies one fixed-arity curve fit.
type Problem struct {
	// Arity is the parameter count the model is written for.
	Arity int
	// Func is the curve model; required.
	Func Func
	// Jac optionally supplies analytic gradients. When nil the Jacobian is
	// synthesized from Func by dual-number differentiation.
	Jac JacRow
	// Data holds the sample pairs to fit against.
	Data []Point
	// Init is the initial guess; its length must equal Arity.
	Init []float64
	// MaxIterations caps the iteration count; required.
	MaxIterations int
	// Options tunes the iteration. Nil selects levmar.DefaultOptions.
	Options *levmar.Options
	// Lower and Upper optionally bound the parameters.
	Lower, Upper []float64
	// Constraints optionally pins the parameters to 𝐀𝐩 = 𝐛.
	Constraints *levmar.LinearConstraints
	// Weights optionally weights the samples, with the same box+linear
	// restriction as levmar.Problem.
	Weights []float64
	// Solver overrides the numerical back end.
	Solver levmar.Solver
}

// Solve runs the fit and blocks until the back end terminates.
func (c *Problem) Solve() (*levmar.Result, error) {

	switch {
	case c.Func == nil:
		return nil, errors.New("curve function is required")
	case c.Arity <= 0:
		return nil, errors.New("curve arity must greater than 0")
	case len(c.Data) == 0:
		return nil, errors.New("sample pairs are required")
	}
	if len(c.Init) != c.Arity {
		panic("initial parameter arity not match spec")
	}

	n, m := len(c.Data), c.Arity
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, pt := range c.Data {
		xs[i] = pt.X
		ys[i] = pt.Y
	}

	model := func(p []float64) []float64 {
		d := constants(p, m)
		out := make([]float64, n)
		for i, x := range xs {
			out[i] = c.Func(d, dual.Number{Real: x}).Real
		}
		return out
	}

	jac := func(p []float64) *mat.Dense {
		d := mat.NewDense(n, m, nil)
		row := make([]float64, m)
		for i, x := range xs {
			if c.Jac != nil {
				if len(p) != m {
					panic("parameter arity not match spec")
				}
				c.Jac(p, x, row)
			} else {
				gradient(c.Func, p, m, x, row)
			}
			d.SetRow(i, row)
		}
		return d
	}

	lp := levmar.Problem{
		Model:         model,
		Jacobian:      jac,
		Params:        c.Init,
		Samples:       ys,
		MaxIterations: c.MaxIterations,
		Options:       c.Options,
		Lower:         c.Lower,
		Upper:         c.Upper,
		Constraints:   c.Constraints,
		Weights:       c.Weights,
		Solver:        c.Solver,
	}
	return lp.Solve()
}
