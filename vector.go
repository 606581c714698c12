package gosam

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// VectorVar is the trivial flat manifold Rⁿ: composition is addition, and
// Exp/Log are the identity map. It is handy for linear problems (biases,
// landmarks, velocities) and as a reference case in tests.
type VectorVar struct {
	vec *mat.VecDense
}

// NewVectorVar returns a VectorVar holding the given coordinates.
func NewVectorVar(vals ...float64) VectorVar {
	v := make([]float64, len(vals))
	copy(v, vals)
	return VectorVar{vec: mat.NewVecDense(len(v), v)}
}

// Vector returns a copy of the coordinates.
func (v VectorVar) Vector() *mat.VecDense {
	return mat.VecDenseCopyOf(v.vec)
}

// At returns the i-th coordinate.
func (v VectorVar) At(i int) float64 { return v.vec.AtVec(i) }

// Dim implements the Variable interface.
func (v VectorVar) Dim() int { return v.vec.Len() }

// Identity implements the Variable interface.
func (v VectorVar) Identity() Variable {
	return VectorVar{vec: mat.NewVecDense(v.vec.Len(), nil)}
}

// Inverse implements the Variable interface.
func (v VectorVar) Inverse() Variable {
	out := mat.NewVecDense(v.vec.Len(), nil)
	out.ScaleVec(-1, v.vec)
	return VectorVar{vec: out}
}

// Compose implements the Variable interface.
func (v VectorVar) Compose(other Variable) Variable {
	o, ok := other.(VectorVar)
	if !ok {
		panic(fmt.Sprintf("gosam: cannot compose VectorVar with %T", other))
	}
	out := mat.NewVecDense(v.vec.Len(), nil)
	out.AddVec(v.vec, o.vec)
	return VectorVar{vec: out}
}

// Exp implements the Variable interface.
func (v VectorVar) Exp(xi mat.Vector) Variable {
	out := mat.NewVecDense(xi.Len(), nil)
	out.CopyVec(xi)
	return VectorVar{vec: out}
}

// Log implements the Variable interface.
func (v VectorVar) Log() *mat.VecDense {
	return mat.VecDenseCopyOf(v.vec)
}

// Lift implements the Variable interface.
func (v VectorVar) Lift(start, total int, conv Convention) DualVariable {
	// Addition commutes, so left and right lifts coincide.
	out := make(dualVec, v.vec.Len())
	for i := range out {
		out[i] = Var(v.vec.AtVec(i), start+i, total)
	}
	return out
}

// LiftConst implements the Variable interface.
func (v VectorVar) LiftConst() DualVariable {
	out := make(dualVec, v.vec.Len())
	for i := range out {
		out[i] = Const(v.vec.AtVec(i))
	}
	return out
}

func (v VectorVar) String() string {
	return fmt.Sprintf("VectorVar%v", v.vec.RawVector().Data)
}

// dualVec is the dual-number lift of VectorVar.
type dualVec []Dual

func (v dualVec) DualInverse() DualVariable {
	out := make(dualVec, len(v))
	for i := range v {
		out[i] = v[i].Neg()
	}
	return out
}

func (v dualVec) DualCompose(other DualVariable) DualVariable {
	o := other.(dualVec)
	out := make(dualVec, len(v))
	for i := range v {
		out[i] = v[i].Add(o[i])
	}
	return out
}

func (v dualVec) DualLog() []Dual {
	out := make([]Dual, len(v))
	copy(out, v)
	return out
}
