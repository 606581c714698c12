package gosam

import (
	"fmt"
	"reflect"

	"gonum.org/v1/gonum/mat"
)

// Residual is a pure function over N typed variables producing an error
// vector of fixed dimension, differentiable by construction. Implementations
// fetch their variables from Values by the factor's keys and must treat a
// missing key or a wrong concrete type as a contract error.
type Residual interface {
	// Arity is the number of variables the residual reads.
	Arity() int
	// DimIn is the total tangent dimension of those variables.
	DimIn() int
	// DimOut is the residual vector length.
	DimOut() int
	// Residual evaluates the raw (unwhitened) error vector.
	Residual(values *Values, keys []Key) (*mat.VecDense, error)
	// ResidualJacobian evaluates the error vector and its Jacobian with
	// respect to the stacked tangent of the variables, in key order.
	ResidualJacobian(values *Values, keys []Key) (*mat.VecDense, *mat.Dense, error)
}

// typedAt fetches a variable and checks its concrete type against want.
func typedAt(values *Values, key Key, want Variable) (Variable, error) {
	v, err := values.At(key)
	if err != nil {
		return nil, err
	}
	if reflect.TypeOf(v) != reflect.TypeOf(want) {
		return nil, fmt.Errorf("%w: key %v holds %T, want %T", ErrWrongType, key, v, want)
	}
	return v, nil
}

// PriorResidual anchors a single variable to a prior value z, computing
// z ⊖ v.
type PriorResidual struct {
	// Prior is the anchoring value z.
	Prior Variable
	// Conv is the retraction convention; it must match the optimizer's.
	Conv Convention
}

// NewPriorResidual returns a prior residual with the right retraction
// convention.
func NewPriorResidual(prior Variable) *PriorResidual {
	return &PriorResidual{Prior: prior}
}

// Arity implements the Residual interface.
func (r *PriorResidual) Arity() int { return 1 }

// DimIn implements the Residual interface.
func (r *PriorResidual) DimIn() int { return r.Prior.Dim() }

// DimOut implements the Residual interface.
func (r *PriorResidual) DimOut() int { return r.Prior.Dim() }

// Residual implements the Residual interface.
func (r *PriorResidual) Residual(values *Values, keys []Key) (*mat.VecDense, error) {
	v, err := typedAt(values, keys[0], r.Prior)
	if err != nil {
		return nil, err
	}
	return Ominus(r.Prior, v, r.Conv), nil
}

// ResidualJacobian implements the Residual interface.
func (r *PriorResidual) ResidualJacobian(values *Values, keys []Key) (*mat.VecDense, *mat.Dense, error) {
	v, err := typedAt(values, keys[0], r.Prior)
	if err != nil {
		return nil, nil, err
	}
	prior := r.Prior.LiftConst()
	res := ForwardProp{Conv: r.Conv}.Jacobian1(func(vd DualVariable) []Dual {
		return DualOminus(prior, vd, r.Conv)
	}, v)
	return res.Value, res.Diff, nil
}

func (r *PriorResidual) String() string {
	return fmt.Sprintf("PriorResidual(%v)", r.Prior)
}

// BetweenResidual constrains the relative transform between two variables to
// a measured delta z, computing (v1 ∘ z) ⊖ v2.
type BetweenResidual struct {
	// Delta is the measured relative transform z.
	Delta Variable
	// Conv is the retraction convention; it must match the optimizer's.
	Conv Convention
}

// NewBetweenResidual returns a between residual with the right retraction
// convention.
func NewBetweenResidual(delta Variable) *BetweenResidual {
	return &BetweenResidual{Delta: delta}
}

// Arity implements the Residual interface.
func (r *BetweenResidual) Arity() int { return 2 }

// DimIn implements the Residual interface.
func (r *BetweenResidual) DimIn() int { return 2 * r.Delta.Dim() }

// DimOut implements the Residual interface.
func (r *BetweenResidual) DimOut() int { return r.Delta.Dim() }

// Residual implements the Residual interface.
func (r *BetweenResidual) Residual(values *Values, keys []Key) (*mat.VecDense, error) {
	v1, err := typedAt(values, keys[0], r.Delta)
	if err != nil {
		return nil, err
	}
	v2, err := typedAt(values, keys[1], r.Delta)
	if err != nil {
		return nil, err
	}
	return Ominus(v1.Compose(r.Delta), v2, r.Conv), nil
}

// ResidualJacobian implements the Residual interface.
func (r *BetweenResidual) ResidualJacobian(values *Values, keys []Key) (*mat.VecDense, *mat.Dense, error) {
	v1, err := typedAt(values, keys[0], r.Delta)
	if err != nil {
		return nil, nil, err
	}
	v2, err := typedAt(values, keys[1], r.Delta)
	if err != nil {
		return nil, nil, err
	}
	delta := r.Delta.LiftConst()
	res := ForwardProp{Conv: r.Conv}.Jacobian2(func(a, b DualVariable) []Dual {
		return DualOminus(a.DualCompose(delta), b, r.Conv)
	}, v1, v2)
	return res.Value, res.Diff, nil
}

func (r *BetweenResidual) String() string {
	return fmt.Sprintf("BetweenResidual(%v)", r.Delta)
}
