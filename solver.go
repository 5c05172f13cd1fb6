// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package levmar

import "github.com/curioloop/levmar/lm"

// Solver is the numerical back end behind Problem.Solve. Its eight entry
// points are keyed by constraint support and Jacobian source and follow the
// flat-buffer contract of package lm: parameters in/out, measurements in,
// a 5-element tuning buffer, a 10-element diagnostic buffer, an m² output
// covariance buffer, and a signed status result.
//
// The back end may rely on call-local state only: one Solver value must be
// safe for concurrent Solve calls, or access to it has to be serialized by
// the caller.
type Solver interface {
	Der(f lm.Func, j lm.Jac, p, x []float64, itMax int, opts, info, covar []float64) int
	Dif(f lm.Func, p, x []float64, itMax int, opts, info, covar []float64) int
	BoxDer(f lm.Func, j lm.Jac, p, x, lb, ub []float64, itMax int, opts, info, covar []float64) int
	BoxDif(f lm.Func, p, x, lb, ub []float64, itMax int, opts, info, covar []float64) int
	LinDer(f lm.Func, j lm.Jac, p, x, cMat, cRHS []float64, itMax int, opts, info, covar []float64) int
	LinDif(f lm.Func, p, x, cMat, cRHS []float64, itMax int, opts, info, covar []float64) int
	BoxLinDer(f lm.Func, j lm.Jac, p, x, lb, ub, cMat, cRHS, wghts []float64, itMax int, opts, info, covar []float64) int
	BoxLinDif(f lm.Func, p, x, lb, ub, cMat, cRHS, wghts []float64, itMax int, opts, info, covar []float64) int
}

// Native returns the pure-Go back end of package lm.
func Native() Solver { return native{} }

type native struct{}

func (native) Der(f lm.Func, j lm.Jac, p, x []float64, itMax int, opts, info, covar []float64) int {
	return lm.Der(f, j, p, x, itMax, opts, info, covar)
}

func (native) Dif(f lm.Func, p, x []float64, itMax int, opts, info, covar []float64) int {
	return lm.Dif(f, p, x, itMax, opts, info, covar)
}

func (native) BoxDer(f lm.Func, j lm.Jac, p, x, lb, ub []float64, itMax int, opts, info, covar []float64) int {
	return lm.BoxDer(f, j, p, x, lb, ub, itMax, opts, info, covar)
}

func (native) BoxDif(f lm.Func, p, x, lb, ub []float64, itMax int, opts, info, covar []float64) int {
	return lm.BoxDif(f, p, x, lb, ub, itMax, opts, info, covar)
}

func (native) LinDer(f lm.Func, j lm.Jac, p, x, cMat, cRHS []float64, itMax int, opts, info, covar []float64) int {
	return lm.LinDer(f, j, p, x, cMat, cRHS, itMax, opts, info, covar)
}

func (native) LinDif(f lm.Func, p, x, cMat, cRHS []float64, itMax int, opts, info, covar []float64) int {
	return lm.LinDif(f, p, x, cMat, cRHS, itMax, opts, info, covar)
}

func (native) BoxLinDer(f lm.Func, j lm.Jac, p, x, lb, ub, cMat, cRHS, wghts []float64, itMax int, opts, info, covar []float64) int {
	return lm.BoxLinDer(f, j, p, x, lb, ub, cMat, cRHS, wghts, itMax, opts, info, covar)
}

func (native) BoxLinDif(f lm.Func, p, x, lb, ub, cMat, cRHS, wghts []float64, itMax int, opts, info, covar []float64) int {
	return lm.BoxLinDif(f, p, x, lb, ub, cMat, cRHS, wghts, itMax, opts, info, covar)
}
