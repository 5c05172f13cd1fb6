// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package levmar

import "github.com/curioloop/levmar/lm"

// Options holds the tuning scalars of the minimization.
// The zero value of a field selects the corresponding default.
type Options struct {
	// InitMu scales the initial damping factor μ₀ = InitMu·max(diag 𝐉ᵀ𝐉).
	InitMu float64
	// StopGrad stops the iteration when ‖𝐉ᵀ𝐞‖∞ ≤ StopGrad.
	StopGrad float64
	// StopStep stops the iteration when ‖δ𝐩‖ ≤ StopStep·(‖𝐩‖ + StopStep).
	StopStep float64
	// StopError stops the iteration when ‖𝐞‖² ≤ StopError.
	StopError float64
	// DiffDelta is the forward-difference step used when no analytic
	// Jacobian is supplied.
	DiffDelta float64
}

// DefaultOptions returns the back end's own defaults.
func DefaultOptions() *Options {
	return &Options{
		InitMu:    lm.InitMu,
		StopGrad:  lm.StopThresh,
		StopStep:  lm.StopThresh,
		StopError: lm.StopThresh,
		DiffDelta: lm.DiffDelta,
	}
}

// buffer packs the options into the back end's tuning layout.
func (o *Options) buffer() []float64 {
	buf := lm.DefaultOpts()
	if o == nil {
		return buf
	}
	if o.InitMu > 0 {
		buf[lm.OptMu] = o.InitMu
	}
	if o.StopGrad > 0 {
		buf[lm.OptEps1] = o.StopGrad
	}
	if o.StopStep > 0 {
		buf[lm.OptEps2] = o.StopStep
	}
	if o.StopError > 0 {
		buf[lm.OptEps3] = o.StopError
	}
	if o.DiffDelta > 0 {
		buf[lm.OptDelta] = o.DiffDelta
	}
	return buf
}
