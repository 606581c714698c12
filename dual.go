package gosam

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Dual is a forward-mode dual number: a real part plus a vector of
// infinitesimal epsilon coefficients, one per tangent coordinate of the
// enclosing differentiation call. Arithmetic on Duals propagates first
// derivatives exactly via the chain rule.
//
// A nil Eps slice represents an all-zero epsilon vector, so constants cost no
// allocation.
type Dual struct {
	Re  float64
	Eps []float64
}

// Const returns a dual number with zero derivative.
func Const(x float64) Dual { return Dual{Re: x} }

// Var returns a dual number seeded as the i-th of total independent
// perturbation directions.
func Var(x float64, i, total int) Dual {
	eps := make([]float64, total)
	eps[i] = 1
	return Dual{Re: x, Eps: eps}
}

// combineEps returns ca*a + cb*b where either slice may be nil (zero).
func combineEps(ca float64, a []float64, cb float64, b []float64) []float64 {
	if a == nil && b == nil {
		return nil
	}
	n := len(a)
	if n == 0 {
		n = len(b)
	}
	out := make([]float64, n)
	if a != nil {
		floats.AddScaled(out, ca, a)
	}
	if b != nil {
		floats.AddScaled(out, cb, b)
	}
	return out
}

// scaleEps returns c*a, or nil if a is nil.
func scaleEps(c float64, a []float64) []float64 {
	if a == nil {
		return nil
	}
	out := make([]float64, len(a))
	floats.AddScaled(out, c, a)
	return out
}

// Add returns d + o.
func (d Dual) Add(o Dual) Dual {
	return Dual{Re: d.Re + o.Re, Eps: combineEps(1, d.Eps, 1, o.Eps)}
}

// Sub returns d - o.
func (d Dual) Sub(o Dual) Dual {
	return Dual{Re: d.Re - o.Re, Eps: combineEps(1, d.Eps, -1, o.Eps)}
}

// Neg returns -d.
func (d Dual) Neg() Dual {
	return Dual{Re: -d.Re, Eps: scaleEps(-1, d.Eps)}
}

// Mul returns d * o.
func (d Dual) Mul(o Dual) Dual {
	return Dual{Re: d.Re * o.Re, Eps: combineEps(o.Re, d.Eps, d.Re, o.Eps)}
}

// Div returns d / o.
func (d Dual) Div(o Dual) Dual {
	inv := 1 / o.Re
	return Dual{
		Re:  d.Re * inv,
		Eps: combineEps(inv, d.Eps, -d.Re*inv*inv, o.Eps),
	}
}

// Scale returns c * d for a real constant c.
func (d Dual) Scale(c float64) Dual {
	return Dual{Re: c * d.Re, Eps: scaleEps(c, d.Eps)}
}

// Sin returns sin(d).
func (d Dual) Sin() Dual {
	return Dual{Re: math.Sin(d.Re), Eps: scaleEps(math.Cos(d.Re), d.Eps)}
}

// Cos returns cos(d).
func (d Dual) Cos() Dual {
	return Dual{Re: math.Cos(d.Re), Eps: scaleEps(-math.Sin(d.Re), d.Eps)}
}

// Sqrt returns the square root of d. The real part must be positive: the
// derivative 1/(2√x) is unbounded at zero, so a zero real part propagates
// non-finite epsilons.
func (d Dual) Sqrt() Dual {
	s := math.Sqrt(d.Re)
	return Dual{Re: s, Eps: scaleEps(0.5/s, d.Eps)}
}

// Atan2 returns atan2(y, x) with derivatives propagated through both
// arguments.
func Atan2(y, x Dual) Dual {
	den := x.Re*x.Re + y.Re*y.Re
	return Dual{
		Re:  math.Atan2(y.Re, x.Re),
		Eps: combineEps(x.Re/den, y.Eps, -y.Re/den, x.Eps),
	}
}
