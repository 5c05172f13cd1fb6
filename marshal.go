// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package levmar

import (
	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/levmar/lm"
)

// float constrains the real widths the marshalling layer converts between.
// The back end always computes in float64.
type float interface {
	~float32 | ~float64
}

// toBuffer casts a sequence into a fresh solver-width buffer.
func toBuffer[F float](src []F) []float64 {
	if src == nil {
		return nil
	}
	dst := make([]float64, len(src))
	for i, v := range src {
		dst[i] = float64(v)
	}
	return dst
}

// fromBuffer casts a solver-width buffer back into dst.
func fromBuffer[F float](dst []F, src []float64) {
	if len(dst) != len(src) {
		panic("buffer dimension not match spec")
	}
	for i, v := range src {
		dst[i] = F(v)
	}
}

// flatten stages a matrix as a row-major buffer.
func flatten(a mat.Matrix) []float64 {
	r, c := a.Dims()
	buf := make([]float64, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			buf[i*c+j] = a.At(i, j)
		}
	}
	return buf
}

// stage owns every buffer handed to the back end for the duration of one
// Solve call. Nothing in it is retained once the call returns: the fitted
// parameters are copied out and the decoded Info and covariance are fresh
// values, so the buffers die with the stage.
type stage struct {
	p, x       []float64
	opts       []float64
	info       []float64
	covar      []float64
	lb, ub     []float64
	cMat, cRHS []float64
	wghts      []float64
}

func newStage(p *Problem) *stage {
	m := len(p.Params)
	st := &stage{
		p:     toBuffer(p.Params),
		x:     toBuffer(p.Samples),
		opts:  p.Options.buffer(),
		info:  make([]float64, lm.InfoLen),
		covar: make([]float64, m*m),
		lb:    toBuffer(p.Lower),
		ub:    toBuffer(p.Upper),
		wghts: toBuffer(p.Weights),
	}
	if p.Constraints != nil {
		st.cMat = flatten(p.Constraints.A)
		st.cRHS = toBuffer(p.Constraints.RHS)
	}
	return st
}
