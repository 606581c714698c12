package gosam

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Factor is a single measurement constraint: a residual, a noise model and a
// robust kernel over a fixed set of variable keys. Factors are immutable
// after construction; build them with NewFactor. The factor's error scalar
// is robust.Loss(‖noise.Whiten(residual)‖²).
type Factor struct {
	keys     []Key
	residual Residual
	noise    NoiseModel
	robust   RobustCost
}

// FactorBuilder assembles a Factor, defaulting the noise model to UnitNoise
// and the robust kernel to L2.
type FactorBuilder struct {
	keys     []Key
	residual Residual
	noise    NoiseModel
	robust   RobustCost
}

// NewFactor starts a builder over the residual and its keys.
func NewFactor(residual Residual, keys ...Key) *FactorBuilder {
	return &FactorBuilder{keys: keys, residual: residual}
}

// Noise sets the noise model.
func (b *FactorBuilder) Noise(n NoiseModel) *FactorBuilder {
	b.noise = n
	return b
}

// Robust sets the robust kernel.
func (b *FactorBuilder) Robust(c RobustCost) *FactorBuilder {
	b.robust = c
	return b
}

// Build validates arity and dimensions and returns the immutable factor.
func (b *FactorBuilder) Build() (*Factor, error) {
	if len(b.keys) != b.residual.Arity() {
		return nil, fmt.Errorf("%w: residual has arity %d, got %d keys",
			ErrDimensionMismatch, b.residual.Arity(), len(b.keys))
	}
	noise := b.noise
	if noise == nil {
		noise = NewUnitNoise(b.residual.DimOut())
	}
	if noise.Dim() != b.residual.DimOut() {
		return nil, fmt.Errorf("%w: noise dim %d, residual dim %d",
			ErrDimensionMismatch, noise.Dim(), b.residual.DimOut())
	}
	robust := b.robust
	if robust == nil {
		robust = L2{}
	}
	keys := make([]Key, len(b.keys))
	copy(keys, b.keys)
	return &Factor{keys: keys, residual: b.residual, noise: noise, robust: robust}, nil
}

// MustBuild is Build for static graphs, panicking on a malformed factor.
func (b *FactorBuilder) MustBuild() *Factor {
	f, err := b.Build()
	if err != nil {
		panic(err)
	}
	return f
}

// Keys returns the factor's keys.
func (f *Factor) Keys() []Key {
	out := make([]Key, len(f.keys))
	copy(out, f.keys)
	return out
}

// DimOut returns the residual's output dimension.
func (f *Factor) DimOut() int { return f.residual.DimOut() }

// Error computes the factor's robust-weighted error at values.
func (f *Factor) Error(values *Values) (float64, error) {
	r, err := f.residual.Residual(values, f.keys)
	if err != nil {
		return 0, err
	}
	w := f.noise.WhitenVec(r)
	return f.robust.Loss(mat.Dot(w, w)), nil
}

// Linearize evaluates the residual and Jacobian at values, whitens both,
// scales them by the square root of the robust weight and returns the
// resulting LinearFactor.
func (f *Factor) Linearize(values *Values) (*LinearFactor, error) {
	r, j, err := f.residual.ResidualJacobian(values, f.keys)
	if err != nil {
		return nil, err
	}

	wr := f.noise.WhitenVec(r)
	wj := f.noise.WhitenMat(j)

	norm2 := mat.Dot(wr, wr)
	weight := math.Sqrt(f.robust.Weight(norm2))

	rows, cols := wj.Dims()
	a := mat.NewDense(rows, cols, nil)
	a.Scale(weight, wj)
	b := mat.NewVecDense(wr.Len(), nil)
	b.ScaleVec(-weight, wr)

	idx := make([]int, len(f.keys))
	off := 0
	for i, key := range f.keys {
		v, err := values.At(key)
		if err != nil {
			return nil, err
		}
		idx[i] = off
		off += v.Dim()
	}
	return NewLinearFactor(f.keys, a, idx, b)
}

func (f *Factor) String() string {
	return fmt.Sprintf("Factor{keys: %v, residual: %v, noise: %v, robust: %T}",
		f.keys, f.residual, f.noise, f.robust)
}

// LinearFactor is one factor's dense Jacobian block row and residual vector,
// tagged with the keys and in-block column offsets needed to scatter it into
// the global sparse system.
type LinearFactor struct {
	Keys []Key
	// A is the weighted, whitened Jacobian; columns are grouped per key.
	A *mat.Dense
	// Idx holds each key's starting column within A.
	Idx []int
	// B is the weighted, whitened negated residual.
	B *mat.VecDense
}

// NewLinearFactor validates block and vector dimensions.
func NewLinearFactor(keys []Key, a *mat.Dense, idx []int, b *mat.VecDense) (*LinearFactor, error) {
	if len(keys) != len(idx) {
		return nil, fmt.Errorf("%w: %d keys, %d block offsets", ErrDimensionMismatch, len(keys), len(idx))
	}
	if err := checkMatDims(a, b, "A", "b", rows2rows); err != nil {
		return nil, err
	}
	return &LinearFactor{Keys: keys, A: a, Idx: idx, B: b}, nil
}

// Dim returns the factor's output (row) dimension.
func (lf *LinearFactor) Dim() int { return lf.B.Len() }

// Block returns the dense Jacobian block of the i-th key as a view.
func (lf *LinearFactor) Block(i int) mat.Matrix {
	rows, cols := lf.A.Dims()
	end := cols
	if i+1 < len(lf.Idx) {
		end = lf.Idx[i+1]
	}
	return lf.A.Slice(0, rows, lf.Idx[i], end)
}

// Error evaluates the linear-model cost ‖A·dx − b‖²/2 at a candidate delta.
func (lf *LinearFactor) Error(dx *LinearValues) (float64, error) {
	ax := mat.NewVecDense(lf.Dim(), nil)
	tmp := mat.NewVecDense(lf.Dim(), nil)
	for i, key := range lf.Keys {
		seg, err := dx.Segment(key)
		if err != nil {
			return 0, err
		}
		tmp.MulVec(lf.Block(i), seg)
		ax.AddVec(ax, tmp)
	}
	ax.SubVec(ax, lf.B)
	return mat.Dot(ax, ax) / 2, nil
}
