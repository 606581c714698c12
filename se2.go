package gosam

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// smallAngle is the threshold below which the SE2 exponential coefficients
// fall back to their first-order Taylor expansions.
const smallAngle = 1e-5

// SO2 is a planar rotation stored as (cos θ, sin θ). Tangent dimension 1.
type SO2 struct {
	a, b float64
}

// NewSO2 returns the rotation by theta radians.
func NewSO2(theta float64) SO2 {
	return SO2{a: math.Cos(theta), b: math.Sin(theta)}
}

// Theta returns the rotation angle in (-π, π].
func (r SO2) Theta() float64 { return math.Atan2(r.b, r.a) }

// Apply rotates the point (x, y).
func (r SO2) Apply(x, y float64) (float64, float64) {
	return r.a*x - r.b*y, r.b*x + r.a*y
}

// Dim implements the Variable interface.
func (r SO2) Dim() int { return 1 }

// Identity implements the Variable interface.
func (r SO2) Identity() Variable { return SO2{a: 1} }

// Inverse implements the Variable interface.
func (r SO2) Inverse() Variable { return SO2{a: r.a, b: -r.b} }

// Compose implements the Variable interface.
func (r SO2) Compose(other Variable) Variable {
	o, ok := other.(SO2)
	if !ok {
		panic(fmt.Sprintf("gosam: cannot compose SO2 with %T", other))
	}
	return SO2{a: r.a*o.a - r.b*o.b, b: r.a*o.b + r.b*o.a}
}

// Exp implements the Variable interface.
func (r SO2) Exp(xi mat.Vector) Variable { return NewSO2(xi.AtVec(0)) }

// Log implements the Variable interface.
func (r SO2) Log() *mat.VecDense {
	return mat.NewVecDense(1, []float64{r.Theta()})
}

// Lift implements the Variable interface.
func (r SO2) Lift(start, total int, conv Convention) DualVariable {
	self := r.LiftConst().(dualSO2)
	pert := dualSO2Exp(liftTangent(1, start, total)[0])
	if conv == ConventionLeft {
		return pert.compose(self)
	}
	return self.compose(pert)
}

// LiftConst implements the Variable interface.
func (r SO2) LiftConst() DualVariable {
	return dualSO2{a: Const(r.a), b: Const(r.b)}
}

func (r SO2) String() string {
	return fmt.Sprintf("SO2(%.4f)", r.Theta())
}

// SE2 is a planar rigid transform: a rotation and a translation. Tangent
// dimension 3, ordered (θ, x, y).
type SE2 struct {
	rot  SO2
	x, y float64
}

// NewSE2 returns the transform with rotation theta and translation (x, y).
func NewSE2(theta, x, y float64) SE2 {
	return SE2{rot: NewSO2(theta), x: x, y: y}
}

// Theta returns the rotation angle.
func (p SE2) Theta() float64 { return p.rot.Theta() }

// XY returns the translation.
func (p SE2) XY() (float64, float64) { return p.x, p.y }

// Dim implements the Variable interface.
func (p SE2) Dim() int { return 3 }

// Identity implements the Variable interface.
func (p SE2) Identity() Variable { return SE2{rot: SO2{a: 1}} }

// Inverse implements the Variable interface.
func (p SE2) Inverse() Variable {
	inv := p.rot.Inverse().(SO2)
	ix, iy := inv.Apply(p.x, p.y)
	return SE2{rot: inv, x: -ix, y: -iy}
}

// Compose implements the Variable interface.
func (p SE2) Compose(other Variable) Variable {
	o, ok := other.(SE2)
	if !ok {
		panic(fmt.Sprintf("gosam: cannot compose SE2 with %T", other))
	}
	rx, ry := p.rot.Apply(o.x, o.y)
	return SE2{
		rot: p.rot.Compose(o.rot).(SO2),
		x:   rx + p.x,
		y:   ry + p.y,
	}
}

// se2Coeffs returns the closed-form coefficients A = sin θ / θ and
// B = (1 - cos θ) / θ, with first-order Taylor fallbacks near zero.
func se2Coeffs(theta float64) (float64, float64) {
	if math.Abs(theta) < smallAngle {
		return 1, theta / 2
	}
	return math.Sin(theta) / theta, (1 - math.Cos(theta)) / theta
}

// Exp implements the Variable interface.
func (p SE2) Exp(xi mat.Vector) Variable {
	theta, dx, dy := xi.AtVec(0), xi.AtVec(1), xi.AtVec(2)
	a, b := se2Coeffs(theta)
	// V = [[A, -B], [B, A]]
	return SE2{
		rot: NewSO2(theta),
		x:   a*dx - b*dy,
		y:   b*dx + a*dy,
	}
}

// Log implements the Variable interface.
func (p SE2) Log() *mat.VecDense {
	theta := p.rot.Theta()
	a, b := se2Coeffs(theta)
	den := a*a + b*b
	// V^-1 = [[A, B], [-B, A]] / (A² + B²)
	return mat.NewVecDense(3, []float64{
		theta,
		(a*p.x + b*p.y) / den,
		(-b*p.x + a*p.y) / den,
	})
}

// Lift implements the Variable interface.
func (p SE2) Lift(start, total int, conv Convention) DualVariable {
	self := p.LiftConst().(dualSE2)
	pert := dualSE2Exp(liftTangent(3, start, total))
	if conv == ConventionLeft {
		return pert.compose(self)
	}
	return self.compose(pert)
}

// LiftConst implements the Variable interface.
func (p SE2) LiftConst() DualVariable {
	return dualSE2{
		rot: dualSO2{a: Const(p.rot.a), b: Const(p.rot.b)},
		x:   Const(p.x),
		y:   Const(p.y),
	}
}

func (p SE2) String() string {
	return fmt.Sprintf("SE2(θ=%.4f, x=%.4f, y=%.4f)", p.Theta(), p.x, p.y)
}

// ------------------------- dual-number lifts ------------------------- //

type dualSO2 struct {
	a, b Dual
}

func dualSO2Exp(theta Dual) dualSO2 {
	return dualSO2{a: theta.Cos(), b: theta.Sin()}
}

func (r dualSO2) compose(o dualSO2) dualSO2 {
	return dualSO2{
		a: r.a.Mul(o.a).Sub(r.b.Mul(o.b)),
		b: r.a.Mul(o.b).Add(r.b.Mul(o.a)),
	}
}

func (r dualSO2) inverse() dualSO2 { return dualSO2{a: r.a, b: r.b.Neg()} }

func (r dualSO2) apply(x, y Dual) (Dual, Dual) {
	return r.a.Mul(x).Sub(r.b.Mul(y)), r.b.Mul(x).Add(r.a.Mul(y))
}

func (r dualSO2) theta() Dual { return Atan2(r.b, r.a) }

func (r dualSO2) DualInverse() DualVariable { return r.inverse() }

func (r dualSO2) DualCompose(other DualVariable) DualVariable {
	return r.compose(other.(dualSO2))
}

func (r dualSO2) DualLog() []Dual { return []Dual{r.theta()} }

type dualSE2 struct {
	rot  dualSO2
	x, y Dual
}

// dualSE2Coeffs mirrors se2Coeffs in dual arithmetic, branching on the real
// part of theta.
func dualSE2Coeffs(theta Dual) (Dual, Dual) {
	if math.Abs(theta.Re) < smallAngle {
		return Dual{Re: 1, Eps: nil}, theta.Scale(0.5)
	}
	return theta.Sin().Div(theta), Const(1).Sub(theta.Cos()).Div(theta)
}

func dualSE2Exp(xi []Dual) dualSE2 {
	theta, dx, dy := xi[0], xi[1], xi[2]
	a, b := dualSE2Coeffs(theta)
	return dualSE2{
		rot: dualSO2Exp(theta),
		x:   a.Mul(dx).Sub(b.Mul(dy)),
		y:   b.Mul(dx).Add(a.Mul(dy)),
	}
}

func (p dualSE2) compose(o dualSE2) dualSE2 {
	rx, ry := p.rot.apply(o.x, o.y)
	return dualSE2{
		rot: p.rot.compose(o.rot),
		x:   rx.Add(p.x),
		y:   ry.Add(p.y),
	}
}

func (p dualSE2) DualInverse() DualVariable {
	inv := p.rot.inverse()
	ix, iy := inv.apply(p.x, p.y)
	return dualSE2{rot: inv, x: ix.Neg(), y: iy.Neg()}
}

func (p dualSE2) DualCompose(other DualVariable) DualVariable {
	return p.compose(other.(dualSE2))
}

func (p dualSE2) DualLog() []Dual {
	theta := p.rot.theta()
	a, b := dualSE2Coeffs(theta)
	den := a.Mul(a).Add(b.Mul(b))
	return []Dual{
		theta,
		a.Mul(p.x).Add(b.Mul(p.y)).Div(den),
		b.Neg().Mul(p.x).Add(a.Mul(p.y)).Div(den),
	}
}
