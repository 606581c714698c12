package gosam

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Variable is a manifold (Lie group) element with a fixed tangent dimension.
// Implementations are immutable value types: every operation returns a new
// element. Exp and Log are mutually inverse in a neighborhood of the
// identity.
//
// Compose, and the Oplus/Ominus helpers built on it, panic when handed a
// different concrete type; mixing manifold types under one key is a
// programmer error.
type Variable interface {
	// Dim is the tangent-space dimension.
	Dim() int
	// Identity returns the group identity element.
	Identity() Variable
	// Inverse returns the group inverse.
	Inverse() Variable
	// Compose returns the group product with other.
	Compose(other Variable) Variable
	// Exp maps a tangent vector of length Dim to a group element. The
	// receiver is used only to select the concrete type.
	Exp(xi mat.Vector) Variable
	// Log maps the element to its tangent vector.
	Log() *mat.VecDense
	// Lift returns a dual-number copy where tangent coordinate i carries
	// the independent perturbation direction start+i out of total.
	Lift(start, total int, conv Convention) DualVariable
	// LiftConst returns a dual-number copy with zero perturbation.
	LiftConst() DualVariable

	fmt.Stringer
}

// DualVariable is a manifold element lifted into dual-number space, exposing
// the operations residuals need for exact forward-mode Jacobians.
type DualVariable interface {
	DualInverse() DualVariable
	DualCompose(other DualVariable) DualVariable
	DualLog() []Dual
}

// Convention selects the retraction convention used for Oplus/Ominus and
// Jacobian lifting. It must be consistent across the residuals and the
// optimizer of one run; the right convention is the default everywhere.
type Convention uint8

const (
	// ConventionRight retracts on the right: x ⊕ δ = x ∘ exp(δ).
	ConventionRight Convention = iota
	// ConventionLeft retracts on the left: x ⊕ δ = exp(δ) ∘ x.
	ConventionLeft
)

func (c Convention) String() string {
	if c == ConventionLeft {
		return "left"
	}
	return "right"
}

// UnmarshalYAML accepts "right" or "left".
func (c *Convention) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	switch s {
	case "right", "":
		*c = ConventionRight
	case "left":
		*c = ConventionLeft
	default:
		return fmt.Errorf("gosam: unknown retraction convention %q", s)
	}
	return nil
}

// MarshalYAML emits "right" or "left".
func (c Convention) MarshalYAML() (interface{}, error) { return c.String(), nil }

// Oplus retracts x by the tangent perturbation xi under the given convention.
func Oplus(x Variable, xi mat.Vector, conv Convention) Variable {
	if conv == ConventionLeft {
		return x.Exp(xi).Compose(x)
	}
	return x.Compose(x.Exp(xi))
}

// Ominus returns the tangent vector taking y to x, so that
// Oplus(y, Ominus(x, y)) == x.
func Ominus(x, y Variable, conv Convention) *mat.VecDense {
	if conv == ConventionLeft {
		return x.Compose(y.Inverse()).Log()
	}
	return y.Inverse().Compose(x).Log()
}

// DualOminus is Ominus over lifted variables.
func DualOminus(x, y DualVariable, conv Convention) []Dual {
	if conv == ConventionLeft {
		return x.DualCompose(y.DualInverse()).DualLog()
	}
	return y.DualInverse().DualCompose(x).DualLog()
}

// liftTangent builds the infinitesimal tangent vector used by Lift: dim dual
// coordinates with real part zero, coordinate i perturbed along direction
// start+i of total.
func liftTangent(dim, start, total int) []Dual {
	xi := make([]Dual, dim)
	for i := range xi {
		xi[i] = Var(0, start+i, total)
	}
	return xi
}
