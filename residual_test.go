package gosam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestPriorResidualZeroAtPrior(t *testing.T) {
	prior := NewSE2(0.3, 1, -2)
	v := NewValues()
	require.NoError(t, v.Insert(X(0), prior))

	r, err := NewPriorResidual(prior).Residual(v, []Key{X(0)})
	require.NoError(t, err)
	assert.InDelta(t, 0, mat.Norm(r, 2), 1e-12)
}

func TestBetweenResidualZeroWhenConsistent(t *testing.T) {
	delta := NewSE2(0.2, 2, 0)
	v1 := NewSE2(0.5, 1, 1)
	v2 := v1.Compose(delta).(SE2)

	v := NewValues()
	require.NoError(t, v.Insert(X(0), v1))
	require.NoError(t, v.Insert(X(1), v2))

	r, err := NewBetweenResidual(delta).Residual(v, []Key{X(0), X(1)})
	require.NoError(t, err)
	assert.InDelta(t, 0, mat.Norm(r, 2), 1e-9)
}

func TestResidualWrongType(t *testing.T) {
	v := NewValues()
	require.NoError(t, v.Insert(X(0), NewVectorVar(1, 2, 3)))

	_, err := NewPriorResidual(NewSE2(0, 0, 0)).Residual(v, []Key{X(0)})
	assert.ErrorIs(t, err, ErrWrongType)

	_, _, err = NewPriorResidual(NewSE2(0, 0, 0)).ResidualJacobian(v, []Key{X(0)})
	assert.ErrorIs(t, err, ErrWrongType)
}

// Forward-mode Jacobians must agree with central differences on the same
// residual, under both conventions.
func TestPriorJacobianMatchesNumerical(t *testing.T) {
	prior := NewSE2(0.3, 1, -2)
	at := NewSE2(-0.4, 2, 1)

	for _, conv := range []Convention{ConventionRight, ConventionLeft} {
		res := &PriorResidual{Prior: prior, Conv: conv}
		v := NewValues()
		require.NoError(t, v.Insert(X(0), at))

		_, j, err := res.ResidualJacobian(v, []Key{X(0)})
		require.NoError(t, err)

		num := NumericalDiff{Conv: conv}.Jacobian1(func(p Variable) *mat.VecDense {
			return Ominus(prior, p, conv)
		}, at)

		assertMatEqual(t, num.Diff, j, 1e-5)
	}
}

func TestBetweenJacobianMatchesNumerical(t *testing.T) {
	delta := NewSE2(0.2, 2, 0)
	a := NewSE2(0.5, 1, 1)
	b := NewSE2(0.9, 3, 0.5)

	for _, conv := range []Convention{ConventionRight, ConventionLeft} {
		res := &BetweenResidual{Delta: delta, Conv: conv}
		v := NewValues()
		require.NoError(t, v.Insert(X(0), a))
		require.NoError(t, v.Insert(X(1), b))

		val, j, err := res.ResidualJacobian(v, []Key{X(0), X(1)})
		require.NoError(t, err)

		direct, err := res.Residual(v, []Key{X(0), X(1)})
		require.NoError(t, err)
		assertVecEqual(t, direct, val, 1e-12)

		num := NumericalDiff{Conv: conv}.Jacobian2(func(p, q Variable) *mat.VecDense {
			return Ominus(p.Compose(delta), q, conv)
		}, a, b)

		assertMatEqual(t, num.Diff, j, 1e-5)
	}
}

func assertMatEqual(t *testing.T, want, got mat.Matrix, tol float64) {
	t.Helper()
	wr, wc := want.Dims()
	gr, gc := got.Dims()
	require.Equal(t, wr, gr)
	require.Equal(t, wc, gc)
	for i := 0; i < wr; i++ {
		for j := 0; j < wc; j++ {
			assert.InDelta(t, want.At(i, j), got.At(i, j), tol, "(%d,%d)", i, j)
		}
	}
}

func assertVecEqual(t *testing.T, want, got mat.Vector, tol float64) {
	t.Helper()
	require.Equal(t, want.Len(), got.Len())
	for i := 0; i < want.Len(); i++ {
		assert.InDelta(t, want.AtVec(i), got.AtVec(i), tol, "coord %d", i)
	}
}
