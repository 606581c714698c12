package gosam

import (
	"fmt"
	"reflect"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Values is a keyed heterogeneous store of manifold elements: the current
// estimate. Each entry's concrete manifold type is fixed at insertion and
// checked on typed access. Iteration follows insertion order, which also
// fixes the column ordering of the assembled linear system.
type Values struct {
	keys []Key
	data map[Key]Variable
}

// NewValues returns an empty Values container.
func NewValues() *Values {
	return &Values{data: make(map[Key]Variable)}
}

// Len returns the number of variables.
func (v *Values) Len() int { return len(v.keys) }

// Keys returns the keys in insertion order.
func (v *Values) Keys() []Key {
	out := make([]Key, len(v.keys))
	copy(out, v.keys)
	return out
}

// Insert adds or replaces the variable under key. A replacement must keep
// the original insertion position and concrete type.
func (v *Values) Insert(key Key, variable Variable) error {
	if prev, ok := v.data[key]; ok {
		if reflect.TypeOf(prev) != reflect.TypeOf(variable) {
			return fmt.Errorf("%w: key %v holds %T, cannot replace with %T",
				ErrWrongType, key, prev, variable)
		}
		v.data[key] = variable
		return nil
	}
	v.keys = append(v.keys, key)
	v.data[key] = variable
	return nil
}

// At returns the variable stored under key.
func (v *Values) At(key Key) (Variable, error) {
	variable, ok := v.data[key]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrKeyNotFound, key)
	}
	return variable, nil
}

// SE2At returns the SE2 stored under key, failing on a missing key or a
// different concrete type.
func (v *Values) SE2At(key Key) (SE2, error) {
	variable, err := v.At(key)
	if err != nil {
		return SE2{}, err
	}
	p, ok := variable.(SE2)
	if !ok {
		return SE2{}, fmt.Errorf("%w: key %v holds %T, want SE2", ErrWrongType, key, variable)
	}
	return p, nil
}

// VectorAt returns the VectorVar stored under key, failing on a missing key
// or a different concrete type.
func (v *Values) VectorAt(key Key) (VectorVar, error) {
	variable, err := v.At(key)
	if err != nil {
		return VectorVar{}, err
	}
	vec, ok := variable.(VectorVar)
	if !ok {
		return VectorVar{}, fmt.Errorf("%w: key %v holds %T, want VectorVar", ErrWrongType, key, variable)
	}
	return vec, nil
}

// Copy returns a shallow copy. Variables are immutable value types, so a
// copied container may be retracted independently of the original.
func (v *Values) Copy() *Values {
	out := &Values{
		keys: make([]Key, len(v.keys)),
		data: make(map[Key]Variable, len(v.data)),
	}
	copy(out.keys, v.keys)
	for k, variable := range v.data {
		out.data[k] = variable
	}
	return out
}

// Oplus retracts every variable in place by its segment of the delta vector.
func (v *Values) Oplus(dx *LinearValues, conv Convention) error {
	for _, key := range v.keys {
		seg, err := dx.Segment(key)
		if err != nil {
			return err
		}
		v.data[key] = Oplus(v.data[key], seg, conv)
	}
	return nil
}

func (v *Values) String() string {
	var sb strings.Builder
	sb.WriteString("{\n")
	for _, key := range v.keys {
		fmt.Fprintf(&sb, "  %v: %v,\n", key, v.data[key])
	}
	sb.WriteString("}")
	return sb.String()
}

// LinearValues is a flat tangent-space vector segmented per key by a
// GraphOrder, e.g. the solution delta of one optimizer step.
type LinearValues struct {
	order *GraphOrder
	vec   *mat.VecDense
}

// NewLinearValues returns an all-zero LinearValues over order.
func NewLinearValues(order *GraphOrder) *LinearValues {
	return &LinearValues{order: order, vec: mat.NewVecDense(order.Dim(), nil)}
}

// LinearValuesOf wraps a solved delta vector. The vector's length must equal
// the order's total dimension.
func LinearValuesOf(order *GraphOrder, vec *mat.VecDense) (*LinearValues, error) {
	if vec.Len() != order.Dim() {
		return nil, fmt.Errorf("%w: delta has %d rows, order spans %d",
			ErrDimensionMismatch, vec.Len(), order.Dim())
	}
	return &LinearValues{order: order, vec: vec}, nil
}

// Dim returns the total tangent dimension.
func (lv *LinearValues) Dim() int { return lv.vec.Len() }

// Segment returns the key's slice of the flat vector as a view.
func (lv *LinearValues) Segment(key Key) (mat.Vector, error) {
	blk, ok := lv.order.Block(key)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrKeyNotFound, key)
	}
	return lv.vec.SliceVec(blk.Offset, blk.Offset+blk.Dim), nil
}
