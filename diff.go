package gosam

import "gonum.org/v1/gonum/mat"

// DiffResult bundles a residual value with its Jacobian.
type DiffResult struct {
	Value *mat.VecDense
	Diff  *mat.Dense
}

// collectDuals stacks the epsilon vectors of a dual residual into a Jacobian,
// one output row per dual coordinate.
func collectDuals(out []Dual, total int) DiffResult {
	value := mat.NewVecDense(len(out), nil)
	diff := mat.NewDense(len(out), total, nil)
	for i, d := range out {
		value.SetVec(i, d.Re)
		for j, e := range d.Eps {
			diff.Set(i, j, e)
		}
	}
	return DiffResult{Value: value, Diff: diff}
}

// ForwardProp computes exact Jacobians with forward-mode automatic
// differentiation: each input variable is lifted with its own block of
// epsilon directions, and the residual's output epsilon rows form the
// Jacobian.
type ForwardProp struct {
	// Conv is the retraction convention of the lift; it must match the
	// optimizer's.
	Conv Convention
}

// Jacobian1 differentiates a unary residual at v.
func (fp ForwardProp) Jacobian1(f func(DualVariable) []Dual, v Variable) DiffResult {
	total := v.Dim()
	return collectDuals(f(v.Lift(0, total, fp.Conv)), total)
}

// Jacobian2 differentiates a binary residual at (v1, v2). The Jacobian
// columns are ordered v1 then v2.
func (fp ForwardProp) Jacobian2(f func(a, b DualVariable) []Dual, v1, v2 Variable) DiffResult {
	total := v1.Dim() + v2.Dim()
	return collectDuals(f(
		v1.Lift(0, total, fp.Conv),
		v2.Lift(v1.Dim(), total, fp.Conv),
	), total)
}

// NumericalDiff computes Jacobians by central differences over manifold
// retractions. It is a drop-in cross-check for ForwardProp and a fallback
// for residuals where dual propagation is impractical.
type NumericalDiff struct {
	// Power sets the perturbation step to 10^-Power. Zero means 6.
	Power int
	// Conv is the retraction convention used for perturbations.
	Conv Convention
}

func (nd NumericalDiff) step() float64 {
	p := nd.Power
	if p == 0 {
		p = 6
	}
	s := 1.0
	for i := 0; i < p; i++ {
		s /= 10
	}
	return s
}

// Jacobian1 differentiates a unary residual at v.
func (nd NumericalDiff) Jacobian1(f func(Variable) *mat.VecDense, v Variable) DiffResult {
	eps := nd.step()
	value := f(v)
	diff := mat.NewDense(value.Len(), v.Dim(), nil)
	xi := mat.NewVecDense(v.Dim(), nil)
	for j := 0; j < v.Dim(); j++ {
		xi.SetVec(j, eps)
		plus := f(Oplus(v, xi, nd.Conv))
		xi.SetVec(j, -eps)
		minus := f(Oplus(v, xi, nd.Conv))
		xi.SetVec(j, 0)
		for i := 0; i < value.Len(); i++ {
			diff.Set(i, j, (plus.AtVec(i)-minus.AtVec(i))/(2*eps))
		}
	}
	return DiffResult{Value: value, Diff: diff}
}

// Jacobian2 differentiates a binary residual at (v1, v2).
func (nd NumericalDiff) Jacobian2(f func(a, b Variable) *mat.VecDense, v1, v2 Variable) DiffResult {
	eps := nd.step()
	value := f(v1, v2)
	total := v1.Dim() + v2.Dim()
	diff := mat.NewDense(value.Len(), total, nil)

	perturb := func(col int, fn func(p Variable) *mat.VecDense, v Variable) {
		xi := mat.NewVecDense(v.Dim(), nil)
		for j := 0; j < v.Dim(); j++ {
			xi.SetVec(j, eps)
			plus := fn(Oplus(v, xi, nd.Conv))
			xi.SetVec(j, -eps)
			minus := fn(Oplus(v, xi, nd.Conv))
			xi.SetVec(j, 0)
			for i := 0; i < value.Len(); i++ {
				diff.Set(i, col+j, (plus.AtVec(i)-minus.AtVec(i))/(2*eps))
			}
		}
	}

	perturb(0, func(p Variable) *mat.VecDense { return f(p, v2) }, v1)
	perturb(v1.Dim(), func(p Variable) *mat.VecDense { return f(v1, p) }, v2)
	return DiffResult{Value: value, Diff: diff}
}

// NumericalDerivative central-differences a scalar function, used to verify
// robust-kernel weights against their losses.
func NumericalDerivative(f func(float64) float64, x, eps float64) float64 {
	return (f(x+eps) - f(x-eps)) / (2 * eps)
}
