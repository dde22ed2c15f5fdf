package value

import (
	"math"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// windowDoc builds `window [ title "Ako" size 800x600 ] flags [[ + - ; ]]`
func windowDoc() *Value {
	window := EmptyTable()
	_ = window.Set("title", String("Ako"))
	_ = window.Set("size", Vector(800, 600))

	doc := EmptyTable()
	_ = doc.Set("window", window)
	_ = doc.Set("flags", Array(Bool(true), Bool(false), Null()))
	return doc
}

func TestKindString(t *testing.T) {
	tests := map[Kind]string{
		KindNull:      "Null",
		KindBool:      "Bool",
		KindInt:       "Int",
		KindFloat:     "Float",
		KindString:    "String",
		KindShortType: "ShortType",
		KindVector:    "Vector",
		KindTable:     "Table",
		KindArray:     "Array",
		Kind(200):     "Unknown",
	}
	for k, want := range tests {
		assert.Equal(t, want, k.String())
	}
}

func TestConstructorsSetKind(t *testing.T) {
	tests := []struct {
		name string
		v    *Value
		want Kind
	}{
		{"null", Null(), KindNull},
		{"bool", Bool(true), KindBool},
		{"int", Int(3), KindInt},
		{"float", Float(1.5), KindFloat},
		{"string", String("hi"), KindString},
		{"short", Short("int", reflect.TypeFor[int32]()), KindShortType},
		{"vector", Vector(1, 2, 3), KindVector},
		{"table", EmptyTable(), KindTable},
		{"array", Array(), KindArray},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.Kind())
		})
	}
}

func TestVectorArityIsAsserted(t *testing.T) {
	assert.Panics(t, func() { Vector(1) })
	assert.Panics(t, func() { Vector(1, 2, 3, 4, 5) })
	assert.NotPanics(t, func() { Vector(1, 2, 3, 4) })
}

func TestVectorCopiesComponents(t *testing.T) {
	comps := []float32{1, 2}
	v := Vector(comps...)
	comps[0] = 99

	got, err := v.AsVector2()
	require.NoError(t, err)
	assert.Equal(t, [2]float32{1, 2}, got)
}

func TestLen(t *testing.T) {
	doc := windowDoc()
	assert.Equal(t, 2, doc.Len())

	flags, err := doc.Get("flags")
	require.NoError(t, err)
	assert.Equal(t, 3, flags.Len())
	assert.Equal(t, 3, Vector(1, 2, 3).Len())
	assert.Equal(t, 0, Int(5).Len())
}

func TestSetAndAppendRequireContainer(t *testing.T) {
	var tm *TypeMismatchError
	require.ErrorAs(t, Int(1).Set("a", Null()), &tm)
	assert.Equal(t, []Kind{KindTable}, tm.Expected)
	assert.Equal(t, KindInt, tm.Actual)

	require.ErrorAs(t, EmptyTable().Append(Null()), &tm)
	assert.Equal(t, []Kind{KindArray}, tm.Expected)

	arr := Array(Int(1))
	require.NoError(t, arr.Append(Int(2), Int(3)))
	assert.Equal(t, 3, arr.Len())
}

func TestCloneIsDeep(t *testing.T) {
	doc := windowDoc()
	clone := doc.Clone()
	require.True(t, doc.Equal(clone))

	window, err := clone.Get("window")
	require.NoError(t, err)
	require.NoError(t, window.Set("title", String("changed")))

	flags, err := clone.Get("flags")
	require.NoError(t, err)
	require.NoError(t, flags.Append(Int(1)))

	orig, err := doc.Lookup("window", "title")
	require.NoError(t, err)
	title, _ := orig.AsString()
	assert.Equal(t, "Ako", title)
	assert.False(t, doc.Equal(clone))
}

func TestEqual(t *testing.T) {
	a := EmptyTable()
	_ = a.Set("x", Int(1))
	_ = a.Set("y", Int(2))
	b := EmptyTable()
	_ = b.Set("y", Int(2))
	_ = b.Set("x", Int(1))

	assert.True(t, a.Equal(b), "key order must not matter")
	assert.False(t, Int(1).Equal(Float(1)), "Int and Float differ")
	assert.False(t, Vector(1, 2).Equal(Array(Float(1), Float(2))), "Vector and Array differ")
	assert.True(t, Short("int", reflect.TypeFor[int32]()).Equal(Short("int", nil)), "short types compare by name")
	assert.False(t, Array(Int(1), Int(2)).Equal(Array(Int(2), Int(1))), "array order matters")

	var nilValue *Value
	assert.True(t, nilValue.Equal(nil))
	assert.False(t, nilValue.Equal(Null()))
}

func TestTableKeepsInsertionOrder(t *testing.T) {
	tbl := NewTable()
	tbl.Set("zeta", Int(1))
	tbl.Set("alpha", Int(2))
	tbl.Set("mid", Int(3))
	tbl.Set("zeta", Int(4))

	if diff := cmp.Diff([]string{"zeta", "alpha", "mid"}, tbl.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}

	tbl.Delete("alpha")
	tbl.Delete("missing")
	if diff := cmp.Diff([]string{"zeta", "mid"}, tbl.Keys()); diff != "" {
		t.Errorf("keys after delete mismatch (-want +got):\n%s", diff)
	}

	var seen []string
	for k := range tbl.All() {
		seen = append(seen, k)
		break
	}
	assert.Equal(t, []string{"zeta"}, seen, "iteration must stop when yield returns false")
	assert.True(t, tbl.Has("mid"))
	assert.False(t, tbl.Has("alpha"))
}

func TestToNative(t *testing.T) {
	want := map[string]any{
		"window": map[string]any{
			"title": "Ako",
			"size":  []float32{800, 600},
		},
		"flags": []any{true, false, nil},
	}
	if diff := cmp.Diff(want, ToNative(windowDoc())); diff != "" {
		t.Errorf("native mismatch (-want +got):\n%s", diff)
	}
}

func TestFromNative(t *testing.T) {
	got, err := FromNative(map[string]any{
		"count":   float64(3),
		"ratio":   0.5,
		"big":     int64(1) << 40,
		"name":    "ako",
		"enabled": true,
		"nothing": nil,
		"list":    []any{1, "two"},
		"nested":  map[any]any{"k": uint8(7)},
		"vec":     []float32{1, 2, 3},
	})
	require.NoError(t, err)

	want := map[string]any{
		"count":   int32(3),
		"ratio":   float32(0.5),
		"big":     float32(1 << 40),
		"name":    "ako",
		"enabled": true,
		"nothing": nil,
		"list":    []any{int32(1), "two"},
		"nested":  map[string]any{"k": int32(7)},
		"vec":     []float32{1, 2, 3},
	}
	if diff := cmp.Diff(want, ToNative(got)); diff != "" {
		t.Errorf("from native mismatch (-want +got):\n%s", diff)
	}

	tbl, err := got.AsTable()
	require.NoError(t, err)
	assert.Equal(t, []string{"big", "count", "enabled", "list", "name", "nested", "nothing", "ratio", "vec"}, tbl.Keys())
}

func TestFromNativeRejectsUnsupported(t *testing.T) {
	_, err := FromNative(map[string]any{"ch": make(chan int)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ch: unsupported native type chan int")

	_, err = FromNative(map[any]any{1: "x"})
	assert.Error(t, err)
}

func TestFromNativeNegativeZeroStaysFloat(t *testing.T) {
	v, err := FromNative(math.Copysign(0, -1))
	require.NoError(t, err)
	assert.Equal(t, KindFloat, v.Kind())

	v, err = FromNative(float64(0))
	require.NoError(t, err)
	assert.Equal(t, KindInt, v.Kind())
}
