// Package value defines the Ako document tree.
//
// A Value is a closed tagged variant: exactly one payload is active and the
// Kind says which. Containers own their children; a tree never shares a node
// between two parents, and Merge clones whatever it grafts in.
package value

import (
	"github.com/tuyuji/ako/core/invariant"
	"github.com/tuyuji/ako/core/registry"
)

// Kind identifies the active payload of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindShortType
	KindVector
	KindTable
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindBool:
		return "Bool"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindShortType:
		return "ShortType"
	case KindVector:
		return "Vector"
	case KindTable:
		return "Table"
	case KindArray:
		return "Array"
	default:
		return "Unknown"
	}
}

// Vector component bounds
const (
	MinVectorLen = 2
	MaxVectorLen = 4
)

// ShortType is a `&name` literal resolved through a registry.
// Identity is Name; Handle is what the registry returned at parse time.
type ShortType struct {
	Name   string
	Handle registry.Handle
}

// Value is a node in an Ako document.
type Value struct {
	kind Kind

	b     bool
	i     int32
	f     float32
	s     string
	short ShortType
	vec   []float32
	table *Table
	arr   []*Value
}

// Null creates a null value
func Null() *Value { return &Value{kind: KindNull} }

// Bool creates a boolean value
func Bool(b bool) *Value { return &Value{kind: KindBool, b: b} }

// Int creates a 32-bit integer value
func Int(i int32) *Value { return &Value{kind: KindInt, i: i} }

// Float creates a 32-bit float value
func Float(f float32) *Value { return &Value{kind: KindFloat, f: f} }

// String creates a string value
func String(s string) *Value { return &Value{kind: KindString, s: s} }

// Short creates a short type value.
func Short(name string, handle registry.Handle) *Value {
	invariant.Precondition(name != "", "short type name must not be empty")
	return &Value{kind: KindShortType, short: ShortType{Name: name, Handle: handle}}
}

// Vector creates a vector of 2 to 4 components.
func Vector(components ...float32) *Value {
	invariant.InRange(len(components), MinVectorLen, MaxVectorLen, "vector components")
	vec := make([]float32, len(components))
	copy(vec, components)
	return &Value{kind: KindVector, vec: vec}
}

// EmptyTable creates a table value with no entries
func EmptyTable() *Value { return &Value{kind: KindTable, table: NewTable()} }

// TableOf wraps t in a value. The value takes ownership of t.
func TableOf(t *Table) *Value {
	invariant.NotNil(t, "table")
	return &Value{kind: KindTable, table: t}
}

// Array creates an array value owning elems.
func Array(elems ...*Value) *Value {
	for _, e := range elems {
		invariant.NotNil(e, "array element")
	}
	arr := make([]*Value, len(elems))
	copy(arr, elems)
	return &Value{kind: KindArray, arr: arr}
}

// Kind returns the active payload kind
func (v *Value) Kind() Kind { return v.kind }

// IsNull reports whether v is Null
func (v *Value) IsNull() bool { return v.kind == KindNull }

// IsContainer reports whether v is a Table or an Array.
func (v *Value) IsContainer() bool { return v.kind == KindTable || v.kind == KindArray }

// IsNumeric reports whether v is an Int or a Float.
func (v *Value) IsNumeric() bool { return v.kind == KindInt || v.kind == KindFloat }

// Len returns the number of entries of a Table, elements of an Array or
// components of a Vector. Scalars have length 0.
func (v *Value) Len() int {
	switch v.kind {
	case KindTable:
		return v.table.Len()
	case KindArray:
		return len(v.arr)
	case KindVector:
		return len(v.vec)
	default:
		return 0
	}
}

// Set binds key in a table value, replacing any previous binding.
func (v *Value) Set(key string, child *Value) error {
	if v.kind != KindTable {
		return mismatch(v.kind, KindTable)
	}
	v.table.Set(key, child)
	return nil
}

// Append adds elems to the end of an array value.
func (v *Value) Append(elems ...*Value) error {
	if v.kind != KindArray {
		return mismatch(v.kind, KindArray)
	}
	for _, e := range elems {
		invariant.NotNil(e, "array element")
	}
	v.arr = append(v.arr, elems...)
	return nil
}

// Clone returns a deep copy of v.
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	out := *v
	switch v.kind {
	case KindVector:
		out.vec = make([]float32, len(v.vec))
		copy(out.vec, v.vec)
	case KindTable:
		out.table = v.table.Clone()
	case KindArray:
		out.arr = make([]*Value, len(v.arr))
		for i, e := range v.arr {
			out.arr[i] = e.Clone()
		}
	}
	return &out
}

// Equal reports deep structural equality. Table key order is ignored and
// short types compare by name.
func (v *Value) Equal(other *Value) bool {
	if v == nil || other == nil {
		return v == other
	}
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindInt:
		return v.i == other.i
	case KindFloat:
		return v.f == other.f
	case KindString:
		return v.s == other.s
	case KindShortType:
		return v.short.Name == other.short.Name
	case KindVector:
		if len(v.vec) != len(other.vec) {
			return false
		}
		for i := range v.vec {
			if v.vec[i] != other.vec[i] {
				return false
			}
		}
		return true
	case KindTable:
		return v.table.Equal(other.table)
	case KindArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	default:
		invariant.Invariant(false, "unhandled kind %v", v.kind)
		return false
	}
}
