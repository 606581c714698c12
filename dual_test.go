package gosam

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDualConstHasNoEpsilon(t *testing.T) {
	c := Const(3.5)
	assert.Equal(t, 3.5, c.Re)
	assert.Nil(t, c.Eps)

	// Arithmetic between constants stays allocation-free.
	assert.Nil(t, c.Add(Const(1)).Eps)
	assert.Nil(t, c.Mul(Const(2)).Eps)
}

func TestDualVarSeedsDirection(t *testing.T) {
	v := Var(2, 1, 3)
	require.Len(t, v.Eps, 3)
	assert.Equal(t, []float64{0, 1, 0}, v.Eps)
}

// Checks d/dx of x²·sin(x) at x = 0.8 against the analytic derivative.
func TestDualChainRule(t *testing.T) {
	x := Var(0.8, 0, 1)
	y := x.Mul(x).Mul(x.Sin())

	want := 2*0.8*math.Sin(0.8) + 0.8*0.8*math.Cos(0.8)
	assert.InDelta(t, 0.8*0.8*math.Sin(0.8), y.Re, 1e-12)
	assert.InDelta(t, want, y.Eps[0], 1e-12)
}

func TestDualDivSqrt(t *testing.T) {
	x := Var(2, 0, 1)

	// d/dx (1/x) = -1/x²
	inv := Const(1).Div(x)
	assert.InDelta(t, -0.25, inv.Eps[0], 1e-12)

	// d/dx √x = 1/(2√x)
	root := x.Sqrt()
	assert.InDelta(t, 1/(2*math.Sqrt2), root.Eps[0], 1e-12)

	// Sqrt stays finite on its positive domain, however small the input.
	tiny := Var(1e-300, 0, 1).Sqrt()
	assert.False(t, math.IsInf(tiny.Eps[0], 0))
	assert.False(t, math.IsNaN(tiny.Eps[0]))
	assert.InDelta(t, 1e-150, tiny.Re, 1e-160)
}

func TestDualAtan2(t *testing.T) {
	// atan2(sin θ, cos θ) recovers θ with unit derivative.
	theta := Var(0.6, 0, 1)
	angle := Atan2(theta.Sin(), theta.Cos())
	assert.InDelta(t, 0.6, angle.Re, 1e-12)
	assert.InDelta(t, 1, angle.Eps[0], 1e-12)
}

func TestDualMixedEpsilon(t *testing.T) {
	// A constant operand contributes no derivative but must not clobber the
	// variable's.
	x := Var(3, 0, 2)
	y := x.Mul(Const(4)).Sub(Const(1))
	assert.InDelta(t, 11, y.Re, 1e-12)
	assert.Equal(t, []float64{4, 0}, y.Eps)
}
