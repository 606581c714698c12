package gosam

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func assertSE2Equal(t *testing.T, want, got SE2, tol float64) {
	t.Helper()
	wx, wy := want.XY()
	gx, gy := got.XY()
	assert.InDelta(t, want.Theta(), got.Theta(), tol)
	assert.InDelta(t, wx, gx, tol)
	assert.InDelta(t, wy, gy, tol)
}

func TestSO2Compose(t *testing.T) {
	a := NewSO2(0.3)
	b := NewSO2(0.5)
	assert.InDelta(t, 0.8, a.Compose(b).(SO2).Theta(), 1e-12)

	// Inverse undoes composition.
	id := a.Compose(a.Inverse()).(SO2)
	assert.InDelta(t, 0, id.Theta(), 1e-12)
}

func TestSO2ExpLogRoundtrip(t *testing.T) {
	for _, theta := range []float64{0, 1e-8, 0.5, -2.9} {
		r := SO2{}.Exp(mat.NewVecDense(1, []float64{theta}))
		assert.InDelta(t, theta, r.Log().AtVec(0), 1e-9, "theta=%v", theta)
	}
}

func TestSE2GroupAxioms(t *testing.T) {
	p := NewSE2(0.4, 1, -2)
	q := NewSE2(-0.9, 3, 0.5)
	r := NewSE2(1.7, -1, 1)

	// Identity.
	assertSE2Equal(t, p, p.Compose(p.Identity()).(SE2), 1e-12)
	assertSE2Equal(t, p, p.Identity().Compose(p).(SE2), 1e-12)

	// Inverse.
	assertSE2Equal(t, NewSE2(0, 0, 0), p.Compose(p.Inverse()).(SE2), 1e-12)

	// Associativity.
	left := p.Compose(q).Compose(r).(SE2)
	right := p.Compose(q.Compose(r)).(SE2)
	assertSE2Equal(t, left, right, 1e-12)
}

func TestSE2ExpLogRoundtrip(t *testing.T) {
	cases := [][]float64{
		{0.7, 1.2, -0.5},
		{-2.1, 0.3, 4},
		{0, 1, 1},
		{1e-7, -2, 3}, // small-angle branch
	}
	for _, xi := range cases {
		p := SE2{}.Exp(mat.NewVecDense(3, xi))
		back := p.Log()
		for i := range xi {
			assert.InDelta(t, xi[i], back.AtVec(i), 1e-6, "xi=%v coord %d", xi, i)
		}
	}
}

func TestSE2SmallAngleCoeffs(t *testing.T) {
	// The Taylor branch must agree with the closed form at the threshold.
	a1, b1 := se2Coeffs(smallAngle * 0.99)
	a2, b2 := se2Coeffs(smallAngle * 1.01)
	assert.InDelta(t, a1, a2, 1e-9)
	assert.InDelta(t, b1, b2, 1e-9)
}

func TestOplusOminusInverse(t *testing.T) {
	x := NewSE2(0.4, 1, -2)
	y := NewSE2(-0.9, 3, 0.5)

	for _, conv := range []Convention{ConventionRight, ConventionLeft} {
		xi := Ominus(x, y, conv)
		back := Oplus(y, xi, conv).(SE2)
		assertSE2Equal(t, x, back, 1e-9)
	}
}

func TestConventionsDiffer(t *testing.T) {
	x := NewSE2(0.8, 2, 0)
	xi := mat.NewVecDense(3, []float64{0, 1, 0})

	right := Oplus(x, xi, ConventionRight).(SE2)
	left := Oplus(x, xi, ConventionLeft).(SE2)
	rx, _ := right.XY()
	lx, _ := left.XY()
	assert.Greater(t, math.Abs(rx-lx), 1e-6)
}

func TestDualSE2MatchesReal(t *testing.T) {
	p := NewSE2(0.4, 1, -2)
	q := NewSE2(-0.9, 3, 0.5)

	// Compose in dual arithmetic with no epsilon must equal the real result.
	dc := p.LiftConst().DualCompose(q.LiftConst()).(dualSE2)
	real := p.Compose(q).(SE2)
	rx, ry := real.XY()
	assert.InDelta(t, rx, dc.x.Re, 1e-12)
	assert.InDelta(t, ry, dc.y.Re, 1e-12)

	// Log too.
	dl := p.LiftConst().DualLog()
	rl := p.Log()
	require.Len(t, dl, 3)
	for i := range dl {
		assert.InDelta(t, rl.AtVec(i), dl[i].Re, 1e-12)
	}
}
