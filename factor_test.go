package gosam

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestFactorBuilderValidation(t *testing.T) {
	res := NewPriorResidual(NewSE2(0, 0, 0))

	// Wrong arity.
	_, err := NewFactor(res, X(0), X(1)).Build()
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	// Noise dimension must match the residual.
	bad, err := NewGaussianNoiseSigma(2, 0.1)
	require.NoError(t, err)
	_, err = NewFactor(res, X(0)).Noise(bad).Build()
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	// Defaults: unit noise, L2 kernel.
	f, err := NewFactor(res, X(0)).Build()
	require.NoError(t, err)
	assert.Equal(t, []Key{X(0)}, f.Keys())
	assert.Equal(t, 3, f.DimOut())
}

func TestFactorError(t *testing.T) {
	noise, err := NewGaussianNoiseSigma(3, 0.5)
	require.NoError(t, err)
	f := NewFactor(NewPriorResidual(NewSE2(0, 0, 0)), X(0)).Noise(noise).MustBuild()

	v := NewValues()
	require.NoError(t, v.Insert(X(0), NewSE2(0, 0.1, 0)))

	// Residual is (0, -0.1, 0) whitened by 1/0.5, so error = (0.2)²/2.
	e, err := f.Error(v)
	require.NoError(t, err)
	assert.InDelta(t, 0.02, e, 1e-9)
}

// Linearize must produce a system whose minimum matches the factor's error
// gradient: for a prior at the identity, one Gauss-Newton step lands exactly
// on the prior.
func TestFactorLinearizeSolvesPrior(t *testing.T) {
	prior := NewSE2(0.3, 1, -2)
	f := NewFactor(NewPriorResidual(prior), X(0)).MustBuild()

	v := NewValues()
	require.NoError(t, v.Insert(X(0), NewSE2(0.25, 1.2, -1.9)))

	lf, err := f.Linearize(v)
	require.NoError(t, err)

	var dx mat.VecDense
	require.NoError(t, dx.SolveVec(lf.A, lf.B))

	cur, err := v.SE2At(X(0))
	require.NoError(t, err)
	moved := Oplus(cur, &dx, ConventionRight).(SE2)

	// One step of a near-linear problem lands very close to the prior.
	assert.InDelta(t, prior.Theta(), moved.Theta(), 1e-2)
}

func TestFactorLinearizeRobustWeight(t *testing.T) {
	f := NewFactor(NewPriorResidual(NewSE2(0, 0, 0)), X(0)).
		Robust(NewHuber(1)).
		MustBuild()

	// Far from the prior the Huber weight shrinks the whole block.
	v := NewValues()
	require.NoError(t, v.Insert(X(0), NewSE2(0, 10, 0)))

	plain := NewFactor(NewPriorResidual(NewSE2(0, 0, 0)), X(0)).MustBuild()
	lfPlain, err := plain.Linearize(v)
	require.NoError(t, err)
	lfRobust, err := f.Linearize(v)
	require.NoError(t, err)

	norm2, err := plain.residual.Residual(v, []Key{X(0)})
	require.NoError(t, err)
	weight := math.Sqrt(NewHuber(1).Weight(mat.Dot(norm2, norm2)))
	require.Less(t, weight, 1.0)

	assert.InDelta(t, weight*mat.Norm(lfPlain.B, 2), mat.Norm(lfRobust.B, 2), 1e-9)
}

func TestLinearFactorBlocksAndError(t *testing.T) {
	a := mat.NewDense(2, 5, []float64{
		1, 0, 0, 2, 0,
		0, 1, 0, 0, 2,
	})
	b := mat.NewVecDense(2, []float64{1, 1})
	lf, err := NewLinearFactor([]Key{X(0), X(1)}, a, []int{0, 3}, b)
	require.NoError(t, err)

	blk := lf.Block(1)
	r, c := blk.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 2.0, blk.At(0, 0))

	v := NewValues()
	require.NoError(t, v.Insert(X(0), NewSE2(0, 0, 0)))
	require.NoError(t, v.Insert(X(1), NewVectorVar(0, 0)))
	order := NewGraphOrder(v)

	// At dx = 0 the model cost is ‖b‖²/2.
	zero := NewLinearValues(order)
	e, err := lf.Error(zero)
	require.NoError(t, err)
	assert.InDelta(t, 1, e, 1e-12)

	// Mismatched dimensions are rejected at construction.
	_, err = NewLinearFactor([]Key{X(0)}, a, []int{0, 3}, b)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
