// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lm

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// covariance estimates the covariance of the least-squares solution as
// σ²(𝐉ᵀ𝐉)⁺ with σ² = ‖𝐞‖²/(n - mq), writing it row-major into covar.
// jac is the n×m model Jacobian at the final p. The pseudo-inverse falls
// back to an SVD when 𝐉ᵀ𝐉 is not positive definite.
func covariance(jac []float64, n, m, mq int, e2 float64, covar []float64) {

	jtj := mat.NewSymDense(m, nil)
	for i := 0; i < m; i++ {
		for j := i; j < m; j++ {
			sum := zero
			for r := 0; r < n; r++ {
				sum += jac[r*m+i] * jac[r*m+j]
			}
			jtj.SetSym(i, j, sum)
		}
	}

	dof := n - mq
	if dof < 1 {
		dof = 1
	}
	sigma2 := e2 / float64(dof)

	var inv mat.SymDense
	var chol mat.Cholesky
	if chol.Factorize(jtj) && chol.InverseTo(&inv) == nil {
		for i := 0; i < m; i++ {
			for j := 0; j < m; j++ {
				covar[i*m+j] = sigma2 * inv.At(i, j)
			}
		}
		return
	}

	pseudoInverse(jtj, sigma2, m, covar)
}

// pseudoInverse writes σ²·𝐕·diag(1/sᵢ)·𝐔ᵀ of a singular 𝐉ᵀ𝐉 into covar,
// zeroing the directions with negligible singular values.
func pseudoInverse(a *mat.SymDense, sigma2 float64, m int, covar []float64) {

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		for i := range covar {
			covar[i] = zero
		}
		return
	}

	s := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	tol := float64(m) * eps * s[0]
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			sum := zero
			for r := 0; r < m; r++ {
				if s[r] > tol && s[r] > zero {
					sum += v.At(i, r) * u.At(j, r) / s[r]
				}
			}
			covar[i*m+j] = sigma2 * sum
		}
	}
}

// jacFinite reports whether every Jacobian entry is a usable number.
func jacFinite(jac []float64) bool {
	for _, v := range jac {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
