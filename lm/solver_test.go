// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lm

import (
	"math"
	"testing"
)

func almostEqual(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i, v := range a {
		if math.Abs(v-b[i]) > tol {
			return false
		}
	}
	return true
}

// x = 5·exp(-0.1t) sampled at t = 0..39
func expSeries() (t, x []float64) {
	t = make([]float64, 40)
	x = make([]float64, 40)
	for i := range t {
		t[i] = float64(i)
		x[i] = 5 * math.Exp(-0.1*t[i])
	}
	return
}

func expModel(t []float64) (Func, Jac) {
	f := func(p, hx []float64) {
		for i := range hx {
			hx[i] = p[0] * math.Exp(-p[1]*t[i])
		}
	}
	j := func(p, jac []float64) {
		for i := range t {
			ex := math.Exp(-p[1] * t[i])
			jac[i*2] = ex
			jac[i*2+1] = -p[0] * t[i] * ex
		}
	}
	return f, j
}

func TestDerExpFit(t *testing.T) {

	ts, xs := expSeries()
	f, j := expModel(ts)

	p := []float64{1, 0}
	info := make([]float64, InfoLen)
	covar := make([]float64, 4)

	ret := Der(f, j, p, xs, 1000, nil, info, covar)

	switch {
	case ret < 0:
		t.Fatal("TestDerExpFit: Unexpected Status", ret)
	case !almostEqual(p, []float64{5, 0.1}, 1e-6):
		t.Fatal("TestDerExpFit: Bad Solution", p)
	case info[InfoFinalE2] > info[InfoInitE2]:
		t.Fatal("TestDerExpFit: No Error Reduction")
	case int(info[InfoNumIter]) != ret:
		t.Fatal("TestDerExpFit: Iteration Mismatch")
	case info[InfoStop] < 1 || info[InfoStop] > 7:
		t.Fatal("TestDerExpFit: Bad Stop Reason")
	case covar[0] < 0 || covar[3] < 0:
		t.Fatal("TestDerExpFit: Bad Covariance")
	case math.Abs(covar[1]-covar[2]) > 1e-12:
		t.Fatal("TestDerExpFit: Covariance Not Symmetric")
	}

}

func TestDifExpFit(t *testing.T) {

	ts, xs := expSeries()
	f, _ := expModel(ts)

	p := []float64{1, 0}
	info := make([]float64, InfoLen)

	ret := Dif(f, p, xs, 1000, nil, info, nil)

	switch {
	case ret < 0:
		t.Fatal("TestDifExpFit: Unexpected Status", ret)
	case !almostEqual(p, []float64{5, 0.1}, 1e-5):
		t.Fatal("TestDifExpFit: Bad Solution", p)
	case info[InfoNumJac] != 0:
		t.Fatal("TestDifExpFit: Unexpected Jacobian Evaluations")
	case info[InfoNumFunc] < info[InfoNumIter]:
		t.Fatal("TestDifExpFit: Missing Difference Evaluations")
	}

}

// linear data 2+3t fitted with the slope capped at 1:
// the constrained optimum is p0 = 11, p1 = 1
func TestBoxDer(t *testing.T) {

	n := 10
	ts := make([]float64, n)
	xs := make([]float64, n)
	for i := range ts {
		ts[i] = float64(i)
		xs[i] = 2 + 3*ts[i]
	}

	f := func(p, hx []float64) {
		for i := range hx {
			hx[i] = p[0] + p[1]*ts[i]
		}
	}
	j := func(p, jac []float64) {
		for i := range ts {
			jac[i*2] = 1
			jac[i*2+1] = ts[i]
		}
	}

	lb := []float64{-100, 0}
	ub := []float64{100, 1}

	p := []float64{0, 0}
	ret := BoxDer(f, j, p, xs, lb, ub, 200, nil, nil, nil)

	switch {
	case ret < 0:
		t.Fatal("TestBoxDer: Unexpected Status", ret)
	case !almostEqual(p, []float64{11, 1}, 1e-4):
		t.Fatal("TestBoxDer: Bad Solution", p)
	case p[1] < lb[1] || p[1] > ub[1]:
		t.Fatal("TestBoxDer: Bound Violation")
	}

	p = []float64{0, 0}
	ret = BoxDif(f, p, xs, lb, ub, 200, nil, nil, nil)

	switch {
	case ret < 0:
		t.Fatal("TestBoxDif: Unexpected Status", ret)
	case !almostEqual(p, []float64{11, 1}, 1e-3):
		t.Fatal("TestBoxDif: Bad Solution", p)
	}

}

// quadratic 1+2t+3t² with the redundant but consistent
// constraint p0+p1+p2 = 6 recovers the exact coefficients
func polySeries() (ts, xs, cMat, cRHS []float64) {
	n := 7
	ts = make([]float64, n)
	xs = make([]float64, n)
	for i := range ts {
		ts[i] = float64(i-3) / 2
		xs[i] = 1 + 2*ts[i] + 3*ts[i]*ts[i]
	}
	cMat = []float64{1, 1, 1}
	cRHS = []float64{6}
	return
}

func polyModel(ts []float64) (Func, Jac) {
	f := func(p, hx []float64) {
		for i := range hx {
			hx[i] = p[0] + p[1]*ts[i] + p[2]*ts[i]*ts[i]
		}
	}
	j := func(p, jac []float64) {
		for i := range ts {
			jac[i*3] = 1
			jac[i*3+1] = ts[i]
			jac[i*3+2] = ts[i] * ts[i]
		}
	}
	return f, j
}

func TestLinDer(t *testing.T) {

	ts, xs, cMat, cRHS := polySeries()
	f, j := polyModel(ts)

	p := []float64{0, 0, 0}
	info := make([]float64, InfoLen)

	ret := LinDer(f, j, p, xs, cMat, cRHS, 200, nil, info, nil)

	sum := p[0] + p[1] + p[2]
	switch {
	case ret < 0:
		t.Fatal("TestLinDer: Unexpected Status", ret)
	case !almostEqual(p, []float64{1, 2, 3}, 1e-6):
		t.Fatal("TestLinDer: Bad Solution", p)
	case math.Abs(sum-6) > 1e-10:
		t.Fatal("TestLinDer: Constraint Violation", sum)
	}

	p = []float64{0, 0, 0}
	ret = LinDif(f, p, xs, cMat, cRHS, 200, nil, info, nil)

	sum = p[0] + p[1] + p[2]
	switch {
	case ret < 0:
		t.Fatal("TestLinDif: Unexpected Status", ret)
	case !almostEqual(p, []float64{1, 2, 3}, 1e-4):
		t.Fatal("TestLinDif: Bad Solution", p)
	case math.Abs(sum-6) > 1e-8:
		t.Fatal("TestLinDif: Constraint Violation", sum)
	}

}

func TestBoxLinDer(t *testing.T) {

	ts, xs, cMat, cRHS := polySeries()
	f, j := polyModel(ts)

	lb := []float64{0, 0, 0}
	ub := []float64{10, 10, 10}
	w := []float64{1, 2, 1, 2, 1, 2, 1}

	p := []float64{5, 5, 5}
	ret := BoxLinDer(f, j, p, xs, lb, ub, cMat, cRHS, w, 200, nil, nil, nil)

	sum := p[0] + p[1] + p[2]
	switch {
	case ret < 0:
		t.Fatal("TestBoxLinDer: Unexpected Status", ret)
	case !almostEqual(p, []float64{1, 2, 3}, 1e-5):
		t.Fatal("TestBoxLinDer: Bad Solution", p)
	case math.Abs(sum-6) > 1e-9:
		t.Fatal("TestBoxLinDer: Constraint Violation", sum)
	}

	p = []float64{5, 5, 5}
	ret = BoxLinDif(f, p, xs, lb, ub, cMat, cRHS, nil, 200, nil, nil, nil)

	sum = p[0] + p[1] + p[2]
	switch {
	case ret < 0:
		t.Fatal("TestBoxLinDif: Unexpected Status", ret)
	case !almostEqual(p, []float64{1, 2, 3}, 1e-4):
		t.Fatal("TestBoxLinDif: Bad Solution", p)
	case math.Abs(sum-6) > 1e-8:
		t.Fatal("TestBoxLinDif: Constraint Violation", sum)
	}

}

func TestBadInputs(t *testing.T) {

	f := func(p, hx []float64) {
		for i := range hx {
			hx[i] = p[0]
		}
	}
	j := func(p, jac []float64) {
		for i := range jac {
			jac[i] = 1
		}
	}

	x := []float64{0, 0, 0, 0}

	// infeasible box
	if ret := BoxDer(f, j, []float64{0, 0}, x, []float64{0, 0}, []float64{-1, 5}, 100, nil, nil, nil); ret != StatusBoxCheckFailed {
		t.Fatal("TestBadInputs: Expect Box Check Failure", ret)
	}

	// fewer measurements than parameters
	if ret := Dif(f, []float64{1, 1, 1}, x[:2], 100, nil, nil, nil); ret != StatusFewMeasurements {
		t.Fatal("TestBadInputs: Expect Few Measurements", ret)
	}

	// more constraints than parameters
	cMat := []float64{1, 0, 0, 1, 1, 1}
	cRHS := []float64{1, 1, 1}
	if ret := LinDer(f, j, []float64{0, 0}, x, cMat, cRHS, 100, nil, nil, nil); ret != StatusConsRowsGtCols {
		t.Fatal("TestBadInputs: Expect Rows > Cols", ret)
	}

	// linearly dependent constraint rows
	cMat = []float64{1, 1, 1, 2, 2, 2}
	cRHS = []float64{6, 12}
	if ret := LinDer(f, j, []float64{0, 0, 0}, x, cMat, cRHS, 100, nil, nil, nil); ret != StatusConsRankDefect {
		t.Fatal("TestBadInputs: Expect Rank Defect", ret)
	}

	// missing callbacks and bounds
	if ret := Der(f, nil, []float64{0}, x, 100, nil, nil, nil); ret != StatusNoJacobian {
		t.Fatal("TestBadInputs: Expect No Jacobian", ret)
	}
	if ret := BoxDer(f, j, []float64{0}, x, nil, nil, 100, nil, nil, nil); ret != StatusNoBoxConstraints {
		t.Fatal("TestBadInputs: Expect No Box", ret)
	}
	if ret := Der(nil, j, []float64{0}, x, 100, nil, nil, nil); ret != StatusError {
		t.Fatal("TestBadInputs: Expect Generic Error", ret)
	}

}

func TestNotFinite(t *testing.T) {

	f := func(p, hx []float64) {
		for i := range hx {
			hx[i] = math.NaN()
		}
	}

	p := []float64{1, 1}
	x := []float64{0, 0, 0}
	info := make([]float64, InfoLen)

	ret := Dif(f, p, x, 100, nil, info, nil)

	switch {
	case ret != StatusNotFinite:
		t.Fatal("TestNotFinite: Unexpected Status", ret)
	case int(info[InfoStop]) != StopInvalid:
		t.Fatal("TestNotFinite: Unexpected Stop Reason", info[InfoStop])
	}

}

func TestMaxIter(t *testing.T) {

	// noisy series that never reaches the tolerances in two iterations
	ts, xs := expSeries()
	for i := range xs {
		xs[i] += math.Sin(ts[i]) / 3
	}
	f, j := expModel(ts)

	p := []float64{1, 0}
	info := make([]float64, InfoLen)

	ret := Der(f, j, p, xs, 2, nil, info, nil)

	switch {
	case ret != 2:
		t.Fatal("TestMaxIter: Unexpected Status", ret)
	case int(info[InfoStop]) != StopMaxIter:
		t.Fatal("TestMaxIter: Unexpected Stop Reason", info[InfoStop])
	}

}
