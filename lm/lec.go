// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lm

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// reduction eliminates k linear equality constraints 𝐀𝐩 = 𝐛 by
// parameterizing the feasible set as 𝐩 = 𝐩₀ + 𝐙𝐪 where 𝐀𝐩₀ = 𝐛 and
// the columns of 𝐙 span the null space of 𝐀. The iteration then runs
// unconstrained over the m-k reduced coordinates 𝐪.
type reduction struct {
	k, m int
	p0   []float64  // particular solution, m
	z    *mat.Dense // orthonormal null-space basis, m×(m-k)
}

// newReduction factors 𝐀ᵀ = 𝐐𝐑 and splits 𝐐 into a range and a null-space
// part. A zero diagonal in 𝐑 reveals a rank-deficient constraint matrix.
// cA is k×m row-major.
func newReduction(cA, cRHS []float64, m int) (*reduction, int) {

	k := len(cRHS)

	at := mat.NewDense(m, k, nil)
	for i := 0; i < k; i++ {
		for j := 0; j < m; j++ {
			at.Set(j, i, cA[i*m+j])
		}
	}

	var qr mat.QR
	qr.Factorize(at)

	var qf, rf mat.Dense
	qr.QTo(&qf) // m×m
	qr.RTo(&rf) // m×k

	maxDiag := zero
	for i := 0; i < k; i++ {
		maxDiag = math.Max(maxDiag, math.Abs(rf.At(i, i)))
	}
	tol := float64(m) * eps * maxDiag
	for i := 0; i < k; i++ {
		if math.Abs(rf.At(i, i)) <= tol {
			return nil, StatusConsRankDefect
		}
	}

	// 𝐀 = 𝐑ᵀ𝐐ᵀ, so 𝐩₀ = 𝐐₁𝐲 with the lower-triangular system 𝐑ᵀ𝐲 = 𝐛
	y := make([]float64, k)
	for i := 0; i < k; i++ {
		s := cRHS[i]
		for j := 0; j < i; j++ {
			s -= rf.At(j, i) * y[j]
		}
		y[i] = s / rf.At(i, i)
	}
	if !allFinite(y) {
		return nil, StatusLinAlgFailed
	}

	p0 := make([]float64, m)
	for i := 0; i < m; i++ {
		s := zero
		for j := 0; j < k; j++ {
			s += qf.At(i, j) * y[j]
		}
		p0[i] = s
	}

	// k = m pins the parameters down completely and leaves no null space
	var z *mat.Dense
	if k < m {
		z = mat.NewDense(m, m-k, nil)
		for i := 0; i < m; i++ {
			for j := 0; j < m-k; j++ {
				z.Set(i, j, qf.At(i, k+j))
			}
		}
	}

	return &reduction{k: k, m: m, p0: p0, z: z}, 0
}

// encode maps a full-space point onto the reduced coordinates 𝐪 = 𝐙ᵀ(𝐩 - 𝐩₀).
func (rd *reduction) encode(p, q []float64) {
	for j := 0; j < rd.m-rd.k; j++ {
		s := zero
		for i := 0; i < rd.m; i++ {
			s += rd.z.At(i, j) * (p[i] - rd.p0[i])
		}
		q[j] = s
	}
}

// decode reconstructs the full-space point 𝐩 = 𝐩₀ + 𝐙𝐪.
func (rd *reduction) decode(q, p []float64) {
	for i := 0; i < rd.m; i++ {
		s := rd.p0[i]
		for j := 0; j < rd.m-rd.k; j++ {
			s += rd.z.At(i, j) * q[j]
		}
		p[i] = s
	}
}

// reduceJac folds a full-space Jacobian into the reduced space: 𝐉𝐪 = 𝐉𝐙.
// jp is ne×m row-major, jq ne×(m-k) row-major.
func (rd *reduction) reduceJac(jp, jq []float64, ne int) {
	mq := rd.m - rd.k
	for r := 0; r < ne; r++ {
		for j := 0; j < mq; j++ {
			s := zero
			for i := 0; i < rd.m; i++ {
				s += jp[r*rd.m+i] * rd.z.At(i, j)
			}
			jq[r*mq+j] = s
		}
	}
}
