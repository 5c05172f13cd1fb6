// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lm implements the Levenberg-Marquardt iteration for nonlinear
// least-squares problems ‖𝐱 - 𝒉(𝐩)‖² with optional box constraints,
// linear equality constraints and per-measurement weights.
//
// The package exposes eight entry points keyed by constraint support and
// Jacobian source:
//
//	             analytic    finite-difference
//	plain        Der         Dif
//	box          BoxDer      BoxDif
//	linear       LinDer      LinDif
//	box+linear   BoxLinDer   BoxLinDif
//
// All entry points operate on flat float64 buffers and return a signed
// status: non-negative values report the number of iterations performed,
// negative values one of the Status* codes. The diagnostic buffer and the
// covariance buffer are always written on termination, error or not, as far
// as the iteration progressed.
//
// # Reference:
//
//   - M.I.A. Lourakis, 'levmar: Levenberg-Marquardt nonlinear least squares
//     algorithms in C/C++', 2004.
//   - K. Madsen, H.B. Nielsen, O. Tingleff, 'Methods for Non-Linear Least
//     Squares Problems', 2004. Chapters 3.
package lm

import "math"

const (
	zero = 0.0
	one  = 1.0
	two  = 2.0
	eps  = float64(7)/3 - float64(4)/3 - 1.
)

// Func evaluates the model at p and stores the n predictions into hx.
type Func func(p, hx []float64)

// Jac evaluates the n×m Jacobian ∂𝒉/∂𝐩 at p and stores it into j,
// row-major with one row per measurement.
type Jac func(p, j []float64)

// Tuning buffer layout. Every entry point accepts a 5-element buffer,
// or nil for the defaults of DefaultOpts.
const (
	// OptMu scales the initial damping factor μ₀ = 𝜏·max(diag 𝐉ᵀ𝐉).
	OptMu = iota
	// OptEps1 stops the iteration when ‖𝐉ᵀ𝐞‖∞ ≤ ε₁.
	OptEps1
	// OptEps2 stops the iteration when ‖δ𝐩‖ ≤ ε₂(‖𝐩‖ + ε₂).
	OptEps2
	// OptEps3 stops the iteration when ‖𝐞‖² ≤ ε₃.
	OptEps3
	// OptDelta is the forward-difference step of the Dif entry points.
	OptDelta
	// OptsLen is the required tuning buffer length.
	OptsLen
)

// Default tuning values, shared with the typed front end.
const (
	InitMu     = 1e-3
	StopThresh = 1e-17
	DiffDelta  = 1e-6
)

// DefaultOpts returns a fresh tuning buffer holding the default values.
func DefaultOpts() []float64 {
	return []float64{InitMu, StopThresh, StopThresh, StopThresh, DiffDelta}
}

// Diagnostic buffer layout. Every entry point accepts a 10-element buffer,
// or nil when the diagnostics are of no interest. All slots are written as
// float64, the counters included.
const (
	// InfoInitE2 is ‖𝐞‖² at the initial p.
	InfoInitE2 = iota
	// InfoFinalE2 is ‖𝐞‖² at the final p.
	InfoFinalE2
	// InfoGradInf is ‖𝐉ᵀ𝐞‖∞ at the final p.
	InfoGradInf
	// InfoStepL2 is ‖δ𝐩‖² of the last accepted step.
	InfoStepL2
	// InfoMuRatio is μ/max(diag 𝐉ᵀ𝐉) at termination.
	InfoMuRatio
	// InfoNumIter is the number of iterations performed.
	InfoNumIter
	// InfoStop is the 1-based termination reason (Stop* codes).
	InfoStop
	// InfoNumFunc is the number of model evaluations.
	InfoNumFunc
	// InfoNumJac is the number of Jacobian evaluations.
	InfoNumJac
	// InfoNumSys is the number of linear systems solved.
	InfoNumSys
	// InfoLen is the required diagnostic buffer length.
	InfoLen
)

// Termination reasons written to the InfoStop slot. 1-based.
const (
	// StopSmallGradient ‖𝐉ᵀ𝐞‖∞ dropped below ε₁.
	StopSmallGradient = 1 + iota
	// StopSmallStep ‖δ𝐩‖ dropped below ε₂(‖𝐩‖ + ε₂).
	StopSmallStep
	// StopMaxIter the iteration limit was reached.
	StopMaxIter
	// StopSingular the normal equations turned singular.
	// Restarting from the current p with a larger μ₀ may help.
	StopSingular
	// StopSmallestError no further error reduction is possible.
	// Restarting from the current p with a larger μ₀ may help.
	StopSmallestError
	// StopSmallE2 ‖𝐞‖² dropped below ε₃.
	StopSmallE2
	// StopInvalid the model produced NaN or Inf predictions.
	StopInvalid
)

// Status codes returned by the entry points.
// StatusSingularMatrix and StatusNotFinite report degenerate but completed
// runs: the diagnostic buffer carries the full termination state and the
// solution buffer holds the best p found.
const (
	// StatusError generic failure.
	StatusError = -1 - iota
	// StatusLinAlgFailed a dense factorization broke down.
	StatusLinAlgFailed
	// StatusBoxCheckFailed some lower bound exceeds its upper bound.
	StatusBoxCheckFailed
	// StatusAllocFailed a work buffer could not be obtained.
	StatusAllocFailed
	// StatusConsRowsGtCols the constraint matrix has more rows than columns.
	StatusConsRowsGtCols
	// StatusConsRankDefect the constraint matrix is not of full row rank.
	StatusConsRankDefect
	// StatusFewMeasurements fewer measurements than free parameters.
	StatusFewMeasurements
	// StatusSingularMatrix the run stopped with StopSingular.
	StatusSingularMatrix
	// StatusNotFinite the run stopped with StopInvalid.
	StatusNotFinite
	// StatusNoJacobian an analytic Jacobian is required but missing.
	StatusNoJacobian
	// StatusNoBoxConstraints a box entry point received no bounds at all.
	StatusNoBoxConstraints
)

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if !isFinite(x) {
			return false
		}
	}
	return true
}

// clamp v into [lb,ub] where either side may be nil or NaN (unbounded).
func clamp(v float64, lb, ub []float64, i int) float64 {
	if lb != nil && !math.IsNaN(lb[i]) && v < lb[i] {
		v = lb[i]
	}
	if ub != nil && !math.IsNaN(ub[i]) && v > ub[i] {
		v = ub[i]
	}
	return v
}
