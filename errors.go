// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package levmar

import (
	"fmt"

	"github.com/curioloop/levmar/lm"
)

// Error is a fatal solver failure reported to the caller as a value.
type Error int

const (
	// ErrGeneric unspecific solver failure.
	ErrGeneric Error = iota
	// ErrLinearSolver a dense factorization inside the solver broke down.
	ErrLinearSolver
	// ErrFailedBoxCheck some lower bound exceeds its upper bound.
	ErrFailedBoxCheck
	// ErrAllocation the solver could not obtain a work buffer.
	ErrAllocation
	// ErrConstraintRows the constraint matrix has more rows than columns.
	ErrConstraintRows
	// ErrConstraintRank the constraint matrix is not of full row rank.
	ErrConstraintRank
	// ErrTooFewMeasurements fewer measurements than free parameters.
	ErrTooFewMeasurements
)

func (e Error) Error() string {
	switch e {
	case ErrGeneric:
		return "levmar: solver failed"
	case ErrLinearSolver:
		return "levmar: linear solver failed"
	case ErrFailedBoxCheck:
		return "levmar: box constraint check failed"
	case ErrAllocation:
		return "levmar: work buffer allocation failed"
	case ErrConstraintRows:
		return "levmar: constraint matrix has more rows than columns"
	case ErrConstraintRank:
		return "levmar: constraint matrix not of full row rank"
	case ErrTooFewMeasurements:
		return "levmar: too few measurements"
	}
	return fmt.Sprintf("levmar: error %d", int(e))
}

// statusTable maps the back end's failure codes onto typed errors.
// lm.StatusSingularMatrix and lm.StatusNotFinite are deliberately absent:
// they are completed fits and the dispatcher never routes them here.
// lm.StatusNoJacobian and lm.StatusNoBoxConstraints are absent as well,
// since this package's call sites cannot trigger them.
var statusTable = map[int]Error{
	lm.StatusError:           ErrGeneric,
	lm.StatusLinAlgFailed:    ErrLinearSolver,
	lm.StatusBoxCheckFailed:  ErrFailedBoxCheck,
	lm.StatusAllocFailed:     ErrAllocation,
	lm.StatusConsRowsGtCols:  ErrConstraintRows,
	lm.StatusConsRankDefect:  ErrConstraintRank,
	lm.StatusFewMeasurements: ErrTooFewMeasurements,
}

// mapStatus translates a failure code from the back end. A code outside the
// table means the engine and the back end disagree about their contract,
// which must surface immediately instead of degrading into ErrGeneric.
func mapStatus(code int) Error {
	e, ok := statusTable[code]
	if !ok {
		panic(fmt.Sprintf("levmar: unknown solver status %d", code))
	}
	return e
}
