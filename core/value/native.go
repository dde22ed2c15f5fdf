package value

import (
	"fmt"
	"math"
	"sort"
)

// ToNative converts v into plain Go values: nil, bool, int32, float32,
// string, ShortType, []float32 for vectors, map[string]any for tables and
// []any for arrays.
func ToNative(v *Value) any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindShortType:
		return v.short
	case KindVector:
		out := make([]float32, len(v.vec))
		copy(out, v.vec)
		return out
	case KindTable:
		out := make(map[string]any, v.table.Len())
		for k, child := range v.table.All() {
			out[k] = ToNative(child)
		}
		return out
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = ToNative(e)
		}
		return out
	default:
		panic(fmt.Sprintf("unhandled kind %v", v.kind))
	}
}

// FromNative builds a Value from plain Go values as produced by decoders.
// Integers that fit in int32 become Int; other numbers become Float. Maps
// with string keys become tables with keys in sorted order.
func FromNative(x any) (*Value, error) {
	switch n := x.(type) {
	case nil:
		return Null(), nil
	case *Value:
		return n.Clone(), nil
	case bool:
		return Bool(n), nil
	case string:
		return String(n), nil
	case ShortType:
		return Short(n.Name, n.Handle), nil
	case int:
		return fromInt64(int64(n)), nil
	case int8:
		return Int(int32(n)), nil
	case int16:
		return Int(int32(n)), nil
	case int32:
		return Int(n), nil
	case int64:
		return fromInt64(n), nil
	case uint:
		return fromUint64(uint64(n)), nil
	case uint8:
		return Int(int32(n)), nil
	case uint16:
		return Int(int32(n)), nil
	case uint32:
		return fromUint64(uint64(n)), nil
	case uint64:
		return fromUint64(n), nil
	case float32:
		return Float(n), nil
	case float64:
		if isInt32(n) {
			return Int(int32(n)), nil
		}
		return Float(float32(n)), nil
	case []float32:
		if len(n) >= MinVectorLen && len(n) <= MaxVectorLen {
			return Vector(n...), nil
		}
		elems := make([]*Value, len(n))
		for i, f := range n {
			elems[i] = Float(f)
		}
		return Array(elems...), nil
	case []any:
		elems := make([]*Value, len(n))
		for i, e := range n {
			child, err := FromNative(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			elems[i] = child
		}
		return Array(elems...), nil
	case map[string]any:
		keys := make([]string, 0, len(n))
		for k := range n {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		t := NewTable()
		for _, k := range keys {
			child, err := FromNative(n[k])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			t.Set(k, child)
		}
		return TableOf(t), nil
	case map[any]any:
		conv := make(map[string]any, len(n))
		for k, e := range n {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("unsupported map key type %T", k)
			}
			conv[ks] = e
		}
		return FromNative(conv)
	default:
		return nil, fmt.Errorf("unsupported native type %T", x)
	}
}

func fromInt64(n int64) *Value {
	if n >= math.MinInt32 && n <= math.MaxInt32 {
		return Int(int32(n))
	}
	return Float(float32(n))
}

func fromUint64(n uint64) *Value {
	if n <= math.MaxInt32 {
		return Int(int32(n))
	}
	return Float(float32(n))
}

// isInt32 reports whether f is integral and representable as int32. Negative
// zero stays a float.
func isInt32(f float64) bool {
	if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return false
	}
	return !(f == 0 && math.Signbit(f))
}
