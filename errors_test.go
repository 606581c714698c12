package gosam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestCheckMatDims(t *testing.T) {
	m32 := mat.NewDense(3, 2, nil)
	m23 := mat.NewDense(2, 3, nil)
	m33 := mat.NewDense(3, 3, nil)

	assert.NoError(t, checkMatDims(m32, m23, "a", "b", rows2cols))
	assert.NoError(t, checkMatDims(m32, m23, "a", "b", cols2rows))
	assert.NoError(t, checkMatDims(m23, m33, "a", "b", cols2cols))
	assert.NoError(t, checkMatDims(m32, m33, "a", "b", rows2rows))
	assert.NoError(t, checkMatDims(m33, m33, "a", "b", rowsAndcols))

	for _, method := range []DimensionAgreement{rows2cols, cols2rows, cols2cols, rows2rows, rowsAndcols} {
		err := checkMatDims(m32, mat.NewDense(4, 5, nil), "a", "b", method)
		assert.ErrorIs(t, err, ErrDimensionMismatch, "method %d", method)
	}
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrKeyNotFound, ErrWrongType, ErrDimensionMismatch,
		ErrNotPositiveDefinite, ErrSingular, ErrInvalidSystem,
		ErrMaxIterations, ErrFailedToStep,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				assert.NotErrorIs(t, a, b)
			}
		}
	}
}
