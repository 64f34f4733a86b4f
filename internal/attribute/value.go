package attribute

import "slices"

// Value is the closed set of attribute value types. Values are immutable;
// KeySet must not be modified after it has been stored.
type Value interface {
	Kind() Kind
	Equal(other Value) bool
	isValue()
}

// Vector is a 2D position or direction.
type Vector struct {
	X, Y float32
}

// Float is a scalar.
type Float float32

// Int is a signed counter.
type Int int32

// Bool is a flag.
type Bool bool

// String is a short single-byte-encoded text.
type String string

// KeySet is a set of input or action codes.
type KeySet []uint16

// Local wraps process-local structures (physics bodies, tile grids) that never
// leave the process.
type Local struct {
	Ref any
}

func (Vector) Kind() Kind { return KindVector }
func (Float) Kind() Kind  { return KindFloat }
func (Int) Kind() Kind    { return KindInt }
func (Bool) Kind() Kind   { return KindBool }
func (String) Kind() Kind { return KindString }
func (KeySet) Kind() Kind { return KindKeySet }
func (Local) Kind() Kind  { return KindLocal }

func (Vector) isValue() {}
func (Float) isValue()  {}
func (Int) isValue()    {}
func (Bool) isValue()   {}
func (String) isValue() {}
func (KeySet) isValue() {}
func (Local) isValue()  {}

func (v Vector) Equal(other Value) bool {
	o, ok := other.(Vector)
	return ok && o == v
}

func (v Float) Equal(other Value) bool {
	o, ok := other.(Float)
	return ok && o == v
}

func (v Int) Equal(other Value) bool {
	o, ok := other.(Int)
	return ok && o == v
}

func (v Bool) Equal(other Value) bool {
	o, ok := other.(Bool)
	return ok && o == v
}

func (v String) Equal(other Value) bool {
	o, ok := other.(String)
	return ok && o == v
}

func (v KeySet) Equal(other Value) bool {
	o, ok := other.(KeySet)
	if !ok || len(o) != len(v) {
		return false
	}
	for i := range v {
		if v[i] != o[i] {
			return false
		}
	}
	return true
}

// Equal always reports false: local structures are mutable references and
// are never diffed.
func (v Local) Equal(Value) bool {
	return false
}

// Add returns the component-wise sum.
func (v Vector) Add(o Vector) Vector {
	return Vector{X: v.X + o.X, Y: v.Y + o.Y}
}

// Scale multiplies both components by f.
func (v Vector) Scale(f float32) Vector {
	return Vector{X: v.X * f, Y: v.Y * f}
}

// Contains reports whether code is in the set.
func (v KeySet) Contains(code uint16) bool {
	for _, c := range v {
		if c == code {
			return true
		}
	}
	return false
}

// NewKeySet returns the codes sorted with duplicates removed, so two sets
// holding the same keys compare equal.
func NewKeySet(codes ...uint16) KeySet {
	out := make(KeySet, len(codes))
	copy(out, codes)
	slices.Sort(out)
	return slices.Compact(out)
}
