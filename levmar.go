// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package levmar provides a typed interface to nonlinear least-squares
// curve fitting by the Levenberg-Marquardt method.
//
// A fit minimizes ‖𝐱 - 𝒉(𝐩)‖² over the m parameters 𝐩 against n ≥ m
// measurements 𝐱, optionally subject to box constraints 𝐥 ≤ 𝐩 ≤ 𝐮 and
// linear equality constraints 𝐀𝐩 = 𝐛. The caller states the problem with
// structured values; the package stages flat buffers for the numerical back
// end, picks the one back-end entry point matching the optional inputs, and
// decodes the diagnostic and covariance buffers into typed results.
//
// Degenerate terminations (a singular normal matrix, a non-finite sum of
// squares) are completed fits, not errors: they come back as a Result whose
// Info.Reason carries the caveat. Dimension mismatches between parameters,
// samples and Jacobian values are caller bugs and panic. Everything else
// fatal surfaces as a typed Error value.
package levmar

import (
	"errors"

	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/levmar/lm"
)

// Model predicts the n measurement values for the parameters p.
// It must be pure and always return exactly n values.
type Model func(p []float64) []float64

// Jacobian evaluates the n×m matrix of partial derivatives of the model,
// one row per measurement and one column per parameter.
// It must be pure and always return exactly n×m values.
type Jacobian func(p []float64) *mat.Dense

// LinearConstraints states k ≤ m linear equality constraints 𝐀𝐩 = 𝐛
// on the parameters. A must be of full row rank.
type LinearConstraints struct {
	A   *mat.Dense // k×m constraint matrix
	RHS []float64  // k right-hand-side values
}

// Problem specifies one curve-fitting problem.
type Problem struct {
	// Model predicts the measurements; required.
	Model Model
	// Jacobian is optional. When nil the back end approximates the
	// derivatives by forward differences with step Options.DiffDelta.
	Jacobian Jacobian
	// Params is the initial guess. Its length m fixes the parameter count.
	Params []float64
	// Samples holds the n observed measurements, n ≥ m.
	Samples []float64
	// MaxIterations caps the iteration count; required.
	MaxIterations int
	// Options tunes the iteration. Nil selects DefaultOptions.
	Options *Options
	// Lower and Upper optionally bound the parameters. NaN entries leave
	// single parameters unbounded on that side.
	Lower, Upper []float64
	// Constraints optionally pins the parameters to 𝐀𝐩 = 𝐛.
	Constraints *LinearConstraints
	// Weights optionally weights the n measurements. It only takes effect
	// when box and linear constraints are both present; the other solving
	// strategies do not accept weights.
	Weights []float64
	// Solver overrides the numerical back end. Nil selects Native.
	Solver Solver
}

// Solve runs the fit and blocks until the back end terminates.
// One Problem value must not be solved from concurrent goroutines unless
// its Solver is safe for that.
func (p *Problem) Solve() (*Result, error) {

	m, n := len(p.Params), len(p.Samples)

	switch {
	case p.Model == nil:
		return nil, errors.New("model function is required")
	case m == 0:
		return nil, errors.New("initial parameters are required")
	case n == 0:
		return nil, errors.New("measurements are required")
	case p.MaxIterations <= 0:
		return nil, errors.New("max iterations must greater than 0")
	}

	if p.Lower != nil && len(p.Lower) != m {
		panic("lower bound dimension not match spec")
	}
	if p.Upper != nil && len(p.Upper) != m {
		panic("upper bound dimension not match spec")
	}
	if p.Weights != nil && len(p.Weights) != n {
		panic("weight dimension not match spec")
	}
	if c := p.Constraints; c != nil {
		if c.A == nil || c.RHS == nil {
			panic("constraint dimension not match spec")
		}
		if r, cols := c.A.Dims(); r != len(c.RHS) || cols != m {
			panic("constraint dimension not match spec")
		}
	}

	st := newStage(p)

	f := lm.Func(func(q, hx []float64) {
		out := p.Model(q)
		if len(out) != n {
			panic("model output dimension not match spec")
		}
		copy(hx, out)
	})

	var jf lm.Jac
	if p.Jacobian != nil {
		jf = func(q, jac []float64) {
			d := p.Jacobian(q)
			if r, c := d.Dims(); r != n || c != m {
				panic("jacobian dimension not match spec")
			}
			copy(jac, flatten(d))
		}
	}

	s := p.Solver
	if s == nil {
		s = Native()
	}

	hasJac := jf != nil
	boxC := st.lb != nil || st.ub != nil
	linC := st.cRHS != nil

	var ret int
	switch {
	case hasJac && boxC && linC:
		ret = s.BoxLinDer(f, jf, st.p, st.x, st.lb, st.ub, st.cMat, st.cRHS, st.wghts, p.MaxIterations, st.opts, st.info, st.covar)
	case !hasJac && boxC && linC:
		ret = s.BoxLinDif(f, st.p, st.x, st.lb, st.ub, st.cMat, st.cRHS, st.wghts, p.MaxIterations, st.opts, st.info, st.covar)
	case hasJac && boxC:
		ret = s.BoxDer(f, jf, st.p, st.x, st.lb, st.ub, p.MaxIterations, st.opts, st.info, st.covar)
	case !hasJac && boxC:
		ret = s.BoxDif(f, st.p, st.x, st.lb, st.ub, p.MaxIterations, st.opts, st.info, st.covar)
	case hasJac && linC:
		ret = s.LinDer(f, jf, st.p, st.x, st.cMat, st.cRHS, p.MaxIterations, st.opts, st.info, st.covar)
	case !hasJac && linC:
		ret = s.LinDif(f, st.p, st.x, st.cMat, st.cRHS, p.MaxIterations, st.opts, st.info, st.covar)
	case hasJac:
		ret = s.Der(f, jf, st.p, st.x, p.MaxIterations, st.opts, st.info, st.covar)
	default:
		ret = s.Dif(f, st.p, st.x, p.MaxIterations, st.opts, st.info, st.covar)
	}

	if ret < 0 && ret != lm.StatusSingularMatrix && ret != lm.StatusNotFinite {
		return nil, mapStatus(ret)
	}

	fitted := make([]float64, m)
	fromBuffer(fitted, st.p)

	return &Result{
		Params: fitted,
		Info:   decodeInfo(st.info),
		Covar:  decodeCovar(st.covar, m),
	}, nil
}
