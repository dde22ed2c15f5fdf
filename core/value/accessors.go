package value

import (
	"strconv"
	"strings"

	"github.com/tuyuji/ako/core/suggest"
)

// AsBool returns the payload of a Bool.
func (v *Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, mismatch(v.kind, KindBool)
	}
	return v.b, nil
}

// AsInt returns the payload of an Int.
func (v *Value) AsInt() (int32, error) {
	if v.kind != KindInt {
		return 0, mismatch(v.kind, KindInt)
	}
	return v.i, nil
}

// AsFloat returns the payload of a Float. Ints are rejected; use AsNumber
// to accept either.
func (v *Value) AsFloat() (float32, error) {
	if v.kind != KindFloat {
		return 0, mismatch(v.kind, KindFloat)
	}
	return v.f, nil
}

// AsNumber returns an Int or Float payload as float32.
func (v *Value) AsNumber() (float32, error) {
	switch v.kind {
	case KindInt:
		return float32(v.i), nil
	case KindFloat:
		return v.f, nil
	default:
		return 0, mismatch(v.kind, KindInt, KindFloat)
	}
}

// AsString returns the payload of a String.
func (v *Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", mismatch(v.kind, KindString)
	}
	return v.s, nil
}

// AsShortType returns the payload of a ShortType.
func (v *Value) AsShortType() (ShortType, error) {
	if v.kind != KindShortType {
		return ShortType{}, mismatch(v.kind, KindShortType)
	}
	return v.short, nil
}

// AsVector returns a copy of the components of a Vector, or of a numeric
// Array of 2 to 4 elements.
func (v *Value) AsVector() ([]float32, error) {
	switch v.kind {
	case KindVector:
		out := make([]float32, len(v.vec))
		copy(out, v.vec)
		return out, nil
	case KindArray:
		if len(v.arr) < MinVectorLen || len(v.arr) > MaxVectorLen {
			return nil, mismatch(v.kind, KindVector)
		}
		out := make([]float32, len(v.arr))
		for i, e := range v.arr {
			n, err := e.AsNumber()
			if err != nil {
				return nil, mismatch(v.kind, KindVector)
			}
			out[i] = n
		}
		return out, nil
	default:
		return nil, mismatch(v.kind, KindVector)
	}
}

// AsVector2 returns a two-component vector
func (v *Value) AsVector2() ([2]float32, error) {
	var out [2]float32
	return out, v.vectorInto(out[:])
}

// AsVector3 returns a three-component vector
func (v *Value) AsVector3() ([3]float32, error) {
	var out [3]float32
	return out, v.vectorInto(out[:])
}

// AsVector4 returns a four-component vector
func (v *Value) AsVector4() ([4]float32, error) {
	var out [4]float32
	return out, v.vectorInto(out[:])
}

func (v *Value) vectorInto(dst []float32) error {
	comps, err := v.AsVector()
	if err != nil {
		return err
	}
	if len(comps) != len(dst) {
		return &IndexOutOfRangeError{Index: len(dst) - 1, Len: len(comps)}
	}
	copy(dst, comps)
	return nil
}

// AsTable returns the live table of a Table value.
func (v *Value) AsTable() (*Table, error) {
	if v.kind != KindTable {
		return nil, mismatch(v.kind, KindTable)
	}
	return v.table, nil
}

// AsArray returns the live elements of an Array value. The slice must not be
// appended to; use Append.
func (v *Value) AsArray() ([]*Value, error) {
	if v.kind != KindArray {
		return nil, mismatch(v.kind, KindArray)
	}
	return v.arr, nil
}

// Get returns the value bound to key in a Table.
func (v *Value) Get(key string) (*Value, error) {
	if v.kind != KindTable {
		return nil, mismatch(v.kind, KindTable)
	}
	child, ok := v.table.Get(key)
	if !ok {
		return nil, &KeyNotFoundError{Key: key, Suggestion: suggest.Closest(key, v.table.keys)}
	}
	return child, nil
}

// Index returns the i-th element of an Array, or the i-th component of a
// Vector as a Float.
func (v *Value) Index(i int) (*Value, error) {
	switch v.kind {
	case KindArray:
		if i < 0 || i >= len(v.arr) {
			return nil, &IndexOutOfRangeError{Index: i, Len: len(v.arr)}
		}
		return v.arr[i], nil
	case KindVector:
		if i < 0 || i >= len(v.vec) {
			return nil, &IndexOutOfRangeError{Index: i, Len: len(v.vec)}
		}
		return Float(v.vec[i]), nil
	default:
		return nil, mismatch(v.kind, KindArray, KindVector)
	}
}

// Lookup walks path from v. Segments select table keys; on an Array or
// Vector a segment must be a decimal index.
func (v *Value) Lookup(path ...string) (*Value, error) {
	cur := v
	for depth, seg := range path {
		var (
			next *Value
			err  error
		)
		switch cur.kind {
		case KindArray, KindVector:
			idx, convErr := strconv.Atoi(seg)
			if convErr != nil {
				return nil, &TypeMismatchError{Expected: []Kind{KindTable}, Actual: cur.kind, Path: joinPath(path[:depth])}
			}
			next, err = cur.Index(idx)
		default:
			next, err = cur.Get(seg)
			if tm, ok := err.(*TypeMismatchError); ok {
				tm.Path = joinPath(path[:depth])
			}
		}
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// SplitPath splits a dotted path such as "window.size" into segments.
func SplitPath(dotted string) []string {
	if dotted == "" {
		return nil
	}
	return strings.Split(dotted, ".")
}

func joinPath(segs []string) string {
	if len(segs) == 0 {
		return "<root>"
	}
	return strings.Join(segs, ".")
}
