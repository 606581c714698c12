package gosam

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Sentinel errors returned by graph construction, linearization and the
// optimizers. Contract violations (a malformed graph) and numerical failures
// both surface through these; none of them is retried internally.
var (
	// ErrKeyNotFound reports a factor key with no entry in the Values.
	ErrKeyNotFound = errors.New("gosam: key not found in values")
	// ErrWrongType reports a typed access whose concrete manifold type does
	// not match the stored variable.
	ErrWrongType = errors.New("gosam: variable has wrong concrete type")
	// ErrDimensionMismatch reports disagreeing dimensions, e.g. between a
	// noise model and its residual.
	ErrDimensionMismatch = errors.New("gosam: dimensions must agree")
	// ErrNotPositiveDefinite reports a Cholesky factorization failure,
	// usually from an under-constrained graph.
	ErrNotPositiveDefinite = errors.New("gosam: matrix is not positive definite")
	// ErrSingular reports a singular system in the LU solver.
	ErrSingular = errors.New("gosam: matrix is singular")
	// ErrInvalidSystem reports a least-squares system with fewer rows than
	// columns.
	ErrInvalidSystem = errors.New("gosam: system has fewer rows than columns")
	// ErrMaxIterations reports that the optimizer exhausted its iteration
	// budget. The last iterate is still returned alongside this error.
	ErrMaxIterations = errors.New("gosam: maximum iterations exceeded")
	// ErrFailedToStep reports that Levenberg-Marquardt could not find a
	// cost-decreasing step before lambda exceeded its maximum.
	ErrFailedToStep = errors.New("gosam: failed to step, lambda exceeded maximum")
)

// DimensionAgreement defines how two matrices' dimensions should agree.
type DimensionAgreement uint8

const (
	rows2cols DimensionAgreement = iota + 1
	cols2rows
	cols2cols
	rows2rows
	rowsAndcols
)

// checkMatDims checks the matrix dimensions match provided a DimensionAgreement. Returns an error if not.
func checkMatDims(m1, m2 mat.Matrix, name1, name2 string, method DimensionAgreement) error {
	r1, c1 := m1.Dims()
	r2, c2 := m2.Dims()
	switch method {
	case rows2cols:
		if r1 != c2 {
			return fmt.Errorf("%w: %s(%dx...) %s(...x%d)", ErrDimensionMismatch, name1, r1, name2, c2)
		}
	case cols2rows:
		if c1 != r2 {
			return fmt.Errorf("%w: %s(...x%d) %s(%dx...)", ErrDimensionMismatch, name1, c1, name2, r2)
		}
	case cols2cols:
		if c1 != c2 {
			return fmt.Errorf("%w: %s(...x%d) %s(...x%d)", ErrDimensionMismatch, name1, c1, name2, c2)
		}
	case rows2rows:
		if r1 != r2 {
			return fmt.Errorf("%w: %s(%dx...) %s(%dx...)", ErrDimensionMismatch, name1, r1, name2, r2)
		}
	case rowsAndcols:
		if c1 != c2 || r1 != r2 {
			return fmt.Errorf("%w: %s(%dx%d) %s(%dx%d)", ErrDimensionMismatch, name1, r1, c1, name2, r2, c2)
		}
	}
	return nil
}
