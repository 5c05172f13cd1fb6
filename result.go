// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package levmar

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/levmar/lm"
)

// StopReason is the terminating condition of one completed fit.
type StopReason int

const (
	// SmallGradient ‖𝐉ᵀ𝐞‖∞ dropped below the gradient threshold.
	SmallGradient StopReason = iota
	// SmallStep ‖δ𝐩‖ dropped below the step threshold.
	SmallStep
	// MaxIterations the iteration limit was reached.
	MaxIterations
	// SingularMatrix the normal equations turned singular.
	// Retrying with a larger Options.InitMu may help.
	SingularMatrix
	// SmallestError no further error reduction was possible.
	// Retrying with a larger Options.InitMu may help.
	SmallestError
	// SmallResidual ‖𝐞‖² dropped below the residual threshold.
	SmallResidual
	// InvalidValues the model produced NaN or Inf predictions.
	InvalidValues
)

func (r StopReason) String() string {
	switch r {
	case SmallGradient:
		return "small gradient"
	case SmallStep:
		return "small step"
	case MaxIterations:
		return "max iterations reached"
	case SingularMatrix:
		return "singular matrix"
	case SmallestError:
		return "no further error reduction possible"
	case SmallResidual:
		return "small residual norm"
	case InvalidValues:
		return "invalid model values"
	}
	return fmt.Sprintf("StopReason(%d)", int(r))
}

// Info summarizes one completed fit.
type Info struct {
	InitNormE  float64    // ‖𝐞‖² at the initial parameters
	FinalNormE float64    // ‖𝐞‖² at the fitted parameters
	GradNorm   float64    // ‖𝐉ᵀ𝐞‖∞ at the fitted parameters
	StepNorm   float64    // ‖δ𝐩‖² of the last accepted step
	MuRatio    float64    // μ/max(diag 𝐉ᵀ𝐉) at termination
	Iterations int        // number of iterations performed
	Reason     StopReason // terminating condition
	FuncEvals  int        // number of model evaluations
	JacEvals   int        // number of Jacobian evaluations
	SysSolved  int        // number of linear systems solved
}

// Result carries the outcome of a successful fit.
type Result struct {
	// Params is the fitted parameter estimate.
	Params []float64
	// Info describes how the iteration terminated. A Result with a
	// SingularMatrix, SmallestError or InvalidValues reason is still a
	// completed fit, just not necessarily a good one.
	Info Info
	// Covar is the m×m covariance of the least-squares solution.
	Covar *mat.Dense
}

// decodeInfo interprets the back end's diagnostic buffer. The counters and
// the stop code arrive float64-encoded and truncate toward zero; the raw
// stop code is 1-based.
func decodeInfo(buf []float64) Info {
	if len(buf) != lm.InfoLen {
		panic("diagnostic buffer dimension not match spec")
	}
	reason := StopReason(int(buf[lm.InfoStop]) - 1)
	if reason < SmallGradient || reason > InvalidValues {
		panic(fmt.Sprintf("levmar: unknown stop code %v", buf[lm.InfoStop]))
	}
	return Info{
		InitNormE:  buf[lm.InfoInitE2],
		FinalNormE: buf[lm.InfoFinalE2],
		GradNorm:   buf[lm.InfoGradInf],
		StepNorm:   buf[lm.InfoStepL2],
		MuRatio:    buf[lm.InfoMuRatio],
		Iterations: int(buf[lm.InfoNumIter]),
		Reason:     reason,
		FuncEvals:  int(buf[lm.InfoNumFunc]),
		JacEvals:   int(buf[lm.InfoNumJac]),
		SysSolved:  int(buf[lm.InfoNumSys]),
	}
}

// decodeCovar interprets a flat m² buffer as an m×m row-major matrix.
func decodeCovar(buf []float64, m int) *mat.Dense {
	if len(buf) != m*m {
		panic("covariance buffer dimension not match spec")
	}
	data := make([]float64, m*m)
	copy(data, buf)
	return mat.NewDense(m, m, data)
}
