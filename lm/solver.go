// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lm

import (
	"math"

	"github.com/curioloop/levmar/numdiff"
)

// penaltyW weights the quadratic box penalty terms of the BoxLin variants.
const penaltyW = 1e3

// Der fits p to the measurements x using the analytic Jacobian jf.
// On return p holds the solution found. The signed result reports the
// iteration count, or a negative Status* code.
func Der(f Func, jf Jac, p, x []float64, itMax int, opts, info, covar []float64) int {
	if jf == nil {
		return StatusNoJacobian
	}
	return solve(f, jf, p, x, nil, nil, nil, nil, nil, itMax, opts, info, covar)
}

// Dif fits p to the measurements x, approximating the Jacobian by forward
// differences with step opts[OptDelta].
func Dif(f Func, p, x []float64, itMax int, opts, info, covar []float64) int {
	return solve(f, nil, p, x, nil, nil, nil, nil, nil, itMax, opts, info, covar)
}

// BoxDer fits p subject to lb ≤ p ≤ ub using the analytic Jacobian jf.
// Either bound slice may be nil, and NaN entries leave single variables
// unbounded on that side.
func BoxDer(f Func, jf Jac, p, x, lb, ub []float64, itMax int, opts, info, covar []float64) int {
	if jf == nil {
		return StatusNoJacobian
	}
	if lb == nil && ub == nil {
		return StatusNoBoxConstraints
	}
	return solve(f, jf, p, x, lb, ub, nil, nil, nil, itMax, opts, info, covar)
}

// BoxDif fits p subject to lb ≤ p ≤ ub with a forward-difference Jacobian.
func BoxDif(f Func, p, x, lb, ub []float64, itMax int, opts, info, covar []float64) int {
	if lb == nil && ub == nil {
		return StatusNoBoxConstraints
	}
	return solve(f, nil, p, x, lb, ub, nil, nil, nil, itMax, opts, info, covar)
}

// LinDer fits p subject to the linear equality constraints 𝐀𝐩 = 𝐛 using
// the analytic Jacobian jf. cMat holds the k×m matrix 𝐀 row-major and
// cRHS the k right-hand-side values.
func LinDer(f Func, jf Jac, p, x, cMat, cRHS []float64, itMax int, opts, info, covar []float64) int {
	if jf == nil {
		return StatusNoJacobian
	}
	return solve(f, jf, p, x, nil, nil, cMat, cRHS, nil, itMax, opts, info, covar)
}

// LinDif fits p subject to 𝐀𝐩 = 𝐛 with a forward-difference Jacobian.
func LinDif(f Func, p, x, cMat, cRHS []float64, itMax int, opts, info, covar []float64) int {
	return solve(f, nil, p, x, nil, nil, cMat, cRHS, nil, itMax, opts, info, covar)
}

// BoxLinDer fits p subject to both lb ≤ p ≤ ub and 𝐀𝐩 = 𝐛 using the
// analytic Jacobian jf. wghts optionally weights the n measurements;
// nil applies unit weights.
func BoxLinDer(f Func, jf Jac, p, x, lb, ub, cMat, cRHS, wghts []float64, itMax int, opts, info, covar []float64) int {
	if jf == nil {
		return StatusNoJacobian
	}
	return solve(f, jf, p, x, lb, ub, cMat, cRHS, wghts, itMax, opts, info, covar)
}

// BoxLinDif fits p subject to both lb ≤ p ≤ ub and 𝐀𝐩 = 𝐛 with a
// forward-difference Jacobian and optional measurement weights.
func BoxLinDif(f Func, p, x, lb, ub, cMat, cRHS, wghts []float64, itMax int, opts, info, covar []float64) int {
	return solve(f, nil, p, x, lb, ub, cMat, cRHS, wghts, itMax, opts, info, covar)
}

func solve(f Func, jf Jac, p, x, lb, ub, cMat, cRHS, wghts []float64, itMax int, opts, info, covar []float64) int {

	n, m := len(x), len(p)

	switch {
	case f == nil || m == 0 || itMax <= 0:
		return StatusError
	case lb != nil && len(lb) != m:
		return StatusError
	case ub != nil && len(ub) != m:
		return StatusError
	case wghts != nil && len(wghts) != n:
		return StatusError
	}

	if opts == nil {
		opts = DefaultOpts()
	}
	if len(opts) < OptsLen {
		return StatusError
	}
	if info != nil && len(info) < InfoLen {
		return StatusError
	}
	if covar != nil && len(covar) < m*m {
		return StatusError
	}

	if lb != nil && ub != nil {
		for i := 0; i < m; i++ {
			l, u := lb[i], ub[i]
			if !math.IsNaN(l) && !math.IsNaN(u) && l > u {
				return StatusBoxCheckFailed
			}
		}
	}

	box := lb != nil || ub != nil
	if box {
		// move an infeasible start onto the box
		for i := 0; i < m; i++ {
			p[i] = clamp(p[i], lb, ub, i)
		}
	}

	var rd *reduction
	if cRHS != nil {
		k := len(cRHS)
		if k > m {
			return StatusConsRowsGtCols
		}
		if len(cMat) != k*m {
			return StatusError
		}
		var st int
		if rd, st = newReduction(cMat, cRHS, m); st < 0 {
			return st
		}
	}

	mq := m
	if rd != nil {
		mq = m - rd.k
	}
	if n < mq {
		return StatusFewMeasurements
	}

	delta := opts[OptDelta]
	if delta <= zero {
		delta = DiffDelta
	}

	nfev, njev := 0, 0
	evalP := func(q, hx []float64) {
		nfev++
		f(q, hx)
	}

	c := &core{
		itMax: itMax,
		tau:   opts[OptMu],
		eps1:  opts[OptEps1],
		eps2:  opts[OptEps2],
		eps3:  opts[OptEps3],
	}

	var q []float64
	switch {
	case rd == nil:
		// plain and box variants iterate directly over p
		q = p
		c.ne, c.mq, c.x = n, m, x
		c.f = evalP
		if jf != nil {
			c.jf = func(q, j []float64) {
				njev++
				jf(q, j)
			}
		} else {
			nd := &numdiff.Jacobian{N: n, M: m, Func: evalP, Step: delta, Lower: lb, Upper: ub}
			c.jf = func(q, j []float64) {
				if err := nd.Approx(q, j); err != nil {
					panic("finite difference dimension not match spec")
				}
			}
		}
		if box {
			c.project = func(q []float64) {
				for i := range q {
					q[i] = clamp(q[i], lb, ub, i)
				}
			}
		}

	default:
		// constrained variants iterate over the reduced coordinates
		q = make([]float64, mq)
		rd.encode(p, q)

		sw := make([]float64, n)
		for i := range sw {
			sw[i] = one
			if wghts != nil {
				sw[i] = math.Sqrt(wghts[i])
			}
		}

		ne := n
		if box {
			ne = n + m // one quadratic penalty row per bounded parameter
		}

		target := make([]float64, ne)
		for i := 0; i < n; i++ {
			target[i] = sw[i] * x[i]
		}

		pFull := make([]float64, m)
		hxModel := make([]float64, n)
		eval := func(q, hx []float64) {
			rd.decode(q, pFull)
			evalP(pFull, hxModel)
			for i := 0; i < n; i++ {
				hx[i] = sw[i] * hxModel[i]
			}
			for i := n; i < ne; i++ {
				j := i - n
				hx[i] = penaltyW * (pFull[j] - clamp(pFull[j], lb, ub, j))
			}
		}

		c.ne, c.mq, c.x = ne, mq, target
		c.f = eval
		if jf != nil {
			jp := make([]float64, n*m)
			c.jf = func(q, j []float64) {
				njev++
				rd.decode(q, pFull)
				jf(pFull, jp)
				for r := 0; r < n; r++ {
					for i := 0; i < m; i++ {
						jp[r*m+i] *= sw[r]
					}
				}
				rd.reduceJac(jp, j[:n*mq], n)
				for i := n; i < ne; i++ {
					r := i - n
					viol := pFull[r] != clamp(pFull[r], lb, ub, r)
					for col := 0; col < mq; col++ {
						j[i*mq+col] = zero
						if viol {
							j[i*mq+col] = penaltyW * rd.z.At(r, col)
						}
					}
				}
			}
		} else {
			nd := &numdiff.Jacobian{N: ne, M: mq, Func: eval, Step: delta}
			c.jf = func(q, j []float64) {
				if err := nd.Approx(q, j); err != nil {
					panic("finite difference dimension not match spec")
				}
			}
		}
	}

	out := c.run(q)

	if rd != nil {
		rd.decode(q, p)
	}

	out.fill(info, nfev, njev)

	if covar != nil && out.stop != StopInvalid {
		jp := make([]float64, n*m)
		if jf != nil {
			jf(p, jp)
		} else {
			nd := &numdiff.Jacobian{N: n, M: m, Func: f, Step: delta, Lower: lb, Upper: ub}
			if nd.Approx(p, jp) != nil {
				jp = nil
			}
		}
		if jp != nil && jacFinite(jp) {
			covariance(jp, n, m, mq, out.e2, covar)
		}
	}

	switch out.stop {
	case StopSingular:
		return StatusSingularMatrix
	case StopInvalid:
		return StatusNotFinite
	}
	return out.iter
}
