// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package curve

import "gonum.org/v1/gonum/num/dual"

// constants lifts plain parameters into duals with a zero derivative
// channel. The arity is guaranteed by construction, so a mismatch here is
// an internal consistency violation.
func constants(p []float64, arity int) []dual.Number {
	if len(p) != arity {
		panic("parameter arity not match spec")
	}
	d := make([]dual.Number, len(p))
	for i, v := range p {
		d[i] = dual.Number{Real: v}
	}
	return d
}

// gradient fills row with ∂𝒇/∂pᵢ at x by seeding a unit derivative on one
// parameter at a time: the Emag of the result is exactly the partial
// derivative carried through the model's dual arithmetic.
func gradient(f Func, p []float64, arity int, x float64, row []float64) {
	d := constants(p, arity)
	at := dual.Number{Real: x}
	for i := range d {
		d[i].Emag = 1
		row[i] = f(d, at).Emag
		d[i].Emag = 0
	}
}
