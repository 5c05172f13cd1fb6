// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lm

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// core drives one damped least-squares iteration in a working space of
// dimension mq against ne target values. The working space equals the
// caller's parameter space for the unconstrained and box variants and the
// reduced null-space coordinates for the linearly constrained ones.
type core struct {
	ne, mq int
	x      []float64 // target vector, ne
	f      func(q, hx []float64)
	jf     func(q, j []float64) // ne×mq row-major ∂𝒉/∂𝐪
	// project a trial point back into the feasible box, or nil.
	project func(q []float64)

	itMax            int
	tau              float64
	eps1, eps2, eps3 float64
}

// outcome carries the termination state of one core run.
// The raw values are packed into a diagnostic buffer by the entry points.
type outcome struct {
	initE2, e2  float64
	gradInf     float64
	stepL2      float64
	mu, maxDiag float64
	iter, stop  int
	sysSolved   int
}

func (o *outcome) fill(info []float64, nfev, njev int) {
	if info == nil {
		return
	}
	ratio := zero
	if o.maxDiag > zero {
		ratio = o.mu / o.maxDiag
	}
	info[InfoInitE2] = o.initE2
	info[InfoFinalE2] = o.e2
	info[InfoGradInf] = o.gradInf
	info[InfoStepL2] = o.stepL2
	info[InfoMuRatio] = ratio
	info[InfoNumIter] = float64(o.iter)
	info[InfoStop] = float64(o.stop)
	info[InfoNumFunc] = float64(nfev)
	info[InfoNumJac] = float64(njev)
	info[InfoNumSys] = float64(o.sysSolved)
}

// run iterates from q until one of the Stop* conditions holds.
// q is updated in place with the best point found.
func (c *core) run(q []float64) (o outcome) {

	ne, mq := c.ne, c.mq

	hx := make([]float64, ne)
	e := make([]float64, ne)
	eNew := make([]float64, ne)
	jac := make([]float64, ne*mq)
	g := make([]float64, mq)
	dq := make([]float64, mq)
	qNew := make([]float64, mq)

	jtj := mat.NewSymDense(max(mq, 1), nil)
	damped := mat.NewSymDense(max(mq, 1), nil)
	dqVec := mat.NewVecDense(max(mq, 1), nil)

	c.f(q, hx)
	floats.SubTo(e, c.x, hx)
	o.e2 = floats.Dot(e, e)
	o.initE2 = o.e2

	if !isFinite(o.e2) {
		o.stop = StopInvalid
		return
	}

	// a fully determined working space leaves nothing to iterate on
	if mq == 0 {
		o.stop = StopSmallGradient
		return
	}

	mu, nu := zero, 2

	for ; o.iter < c.itMax; o.iter++ {

		if o.e2 <= c.eps3 {
			o.stop = StopSmallE2
			return
		}

		c.jf(q, jac)

		// 𝐀 = 𝐉ᵀ𝐉 and 𝐠 = 𝐉ᵀ𝐞
		for i := 0; i < mq; i++ {
			for j := i; j < mq; j++ {
				sum := zero
				for r := 0; r < ne; r++ {
					sum += jac[r*mq+i] * jac[r*mq+j]
				}
				jtj.SetSym(i, j, sum)
			}
			gi := zero
			for r := 0; r < ne; r++ {
				gi += jac[r*mq+i] * e[r]
			}
			g[i] = gi
		}

		o.maxDiag = jtj.At(0, 0)
		for i := 1; i < mq; i++ {
			o.maxDiag = math.Max(o.maxDiag, jtj.At(i, i))
		}

		o.gradInf = floats.Norm(g, math.Inf(1))
		if o.gradInf <= c.eps1 {
			o.stop = StopSmallGradient
			return
		}

		qL2 := floats.Dot(q, q)
		if o.iter == 0 {
			mu = c.tau * o.maxDiag
			if mu <= zero {
				mu = c.tau
			}
		}

		for {
			// solve (𝐀 + μ𝐈)δ𝐪 = 𝐠
			damped.CopySym(jtj)
			for i := 0; i < mq; i++ {
				damped.SetSym(i, i, jtj.At(i, i)+mu)
			}

			o.sysSolved++
			var chol mat.Cholesky
			solved := chol.Factorize(damped)
			if solved {
				solved = chol.SolveVecTo(dqVec, mat.NewVecDense(mq, g)) == nil
			}

			if solved {
				copy(dq, dqVec.RawVector().Data)
				floats.AddTo(qNew, q, dq)
				if c.project != nil {
					c.project(qNew)
					floats.SubTo(dq, qNew, q)
				}

				o.stepL2 = floats.Dot(dq, dq)
				if math.Sqrt(o.stepL2) <= c.eps2*(math.Sqrt(qL2)+c.eps2) {
					o.stop = StopSmallStep
					return
				}
				if o.stepL2 >= (qL2+c.eps2)/(eps*eps) {
					o.stop = StopSingular
					return
				}

				c.f(qNew, hx)
				floats.SubTo(eNew, c.x, hx)
				e2New := floats.Dot(eNew, eNew)
				if !isFinite(e2New) {
					o.stop = StopInvalid
					return
				}

				// gain ratio denominator δ𝐪ᵀ(μδ𝐪 + 𝐠)
				dL := zero
				for i, d := range dq {
					dL += d * (mu*d + g[i])
				}
				dF := o.e2 - e2New

				if dL > zero && dF > zero {
					t := two*dF/dL - one
					mu *= math.Max(one/3, one-t*t*t)
					nu = 2
					copy(q, qNew)
					copy(e, eNew)
					o.e2 = e2New
					o.mu = mu
					break
				}
			}

			// step rejected: raise the damping and retry
			mu *= float64(nu)
			nu2 := nu << 1
			if nu2 <= nu || !isFinite(mu) {
				o.stop = StopSmallestError
				o.mu = mu
				return
			}
			nu = nu2
		}
	}

	o.stop = StopMaxIter
	o.mu = mu
	return
}
