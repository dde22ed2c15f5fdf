package export

import (
	"bytes"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuyuji/ako/core/registry"
	"github.com/tuyuji/ako/core/value"
	"github.com/tuyuji/ako/runtime/parser"
)

const sample = `
window [
	title "Ako \"demo\""
	size 800x600
	scale 1.5
	ratio 2.0
]
+fullscreen
volume -3
tags [[ "a" "b" ]]
empty []
`

func mustParse(t *testing.T, src string, opts ...parser.ParserOpt) *value.Value {
	t.Helper()
	doc, err := parser.Parse(src, opts...)
	require.NoError(t, err)
	return doc
}

func encode(t *testing.T, doc *value.Value, f Format, opts ...Option) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, doc, f, opts...))
	return buf.String()
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name string
		want Format
	}{
		{"ako", FormatAko},
		{"JSON", FormatJSON},
		{"yml", FormatYAML},
		{"yaml", FormatYAML},
		{"cbor", FormatCBOR},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseFormat("toml")
	var unsupported *UnsupportedFormatError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "toml", unsupported.Name)
}

func TestEncodeJSON(t *testing.T) {
	got := encode(t, mustParse(t, sample), FormatJSON)

	want := strings.Join([]string{
		`{`,
		`  "window": {`,
		`    "title": "Ako \"demo\"",`,
		`    "size": [`,
		`      800.0,`,
		`      600.0`,
		`    ],`,
		`    "scale": 1.5,`,
		`    "ratio": 2.0`,
		`  },`,
		`  "fullscreen": true,`,
		`  "volume": -3,`,
		`  "tags": [`,
		`    "a",`,
		`    "b"`,
		`  ],`,
		`  "empty": {}`,
		`}`,
		``,
	}, "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("JSON mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeJSONNoHTMLEscaping(t *testing.T) {
	got := encode(t, mustParse(t, `q "<a & b>"`), FormatJSON, WithIndent(""))
	assert.Contains(t, got, `"<a & b>"`)
}

func TestEncodeJSONRejectsNaN(t *testing.T) {
	doc := value.EmptyTable()
	require.NoError(t, doc.Set("bad", value.Float(float32(math.NaN()))))

	err := Encode(&bytes.Buffer{}, doc, FormatJSON)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}

func TestDecodeJSON(t *testing.T) {
	src := `{"z": 1, "a": {"f": 1.0, "big": 3000000000, "s": "x"}, "n": null, "l": [true, false]}`

	doc, err := Decode(strings.NewReader(src), FormatJSON)
	require.NoError(t, err)

	tbl, err := doc.AsTable()
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "n", "l"}, tbl.Keys(), "object key order is kept")

	want := value.EmptyTable()
	require.NoError(t, want.Set("z", value.Int(1)))
	inner := value.EmptyTable()
	require.NoError(t, inner.Set("f", value.Float(1)))
	require.NoError(t, inner.Set("big", value.Float(3e9)))
	require.NoError(t, inner.Set("s", value.String("x")))
	require.NoError(t, want.Set("a", inner))
	require.NoError(t, want.Set("n", value.Null()))
	require.NoError(t, want.Set("l", value.Array(value.Bool(true), value.Bool(false))))

	assert.True(t, want.Equal(doc), "got %v", value.ToNative(doc))
}

func TestDecodeJSONErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"scalar_root", `42`},
		{"trailing", `{} {}`},
		{"truncated", `{"a": [1, 2`},
		{"empty", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input), FormatJSON)
			assert.Error(t, err)
		})
	}
}

func TestEncodeYAML(t *testing.T) {
	got := encode(t, mustParse(t, sample), FormatYAML)

	want := strings.Join([]string{
		`window:`,
		`  title: Ako "demo"`,
		`  size: [800.0, 600.0]`,
		`  scale: 1.5`,
		`  ratio: 2.0`,
		`fullscreen: true`,
		`volume: -3`,
		`tags:`,
		`  - a`,
		`  - b`,
		`empty: {}`,
		``,
	}, "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("YAML mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeYAMLQuotesAmbiguousStrings(t *testing.T) {
	doc := value.EmptyTable()
	require.NoError(t, doc.Set("s", value.String("true")))

	back, err := Decode(strings.NewReader(encode(t, doc, FormatYAML)), FormatYAML)
	require.NoError(t, err)
	assert.True(t, doc.Equal(back))
}

func TestDecodeYAML(t *testing.T) {
	src := `
base: &base
  speed: 1
  name: default
player:
  <<: *base
  name: hero
  scale: 2.0
  pos: [1, 2.5]
nothing: ~
`
	doc, err := Decode(strings.NewReader(src), FormatYAML)
	require.NoError(t, err)

	tbl, _ := doc.AsTable()
	assert.Equal(t, []string{"base", "player", "nothing"}, tbl.Keys())

	name, err := doc.Lookup("player", "name")
	require.NoError(t, err)
	s, _ := name.AsString()
	assert.Equal(t, "hero", s)

	speed, err := doc.Lookup("player", "speed")
	require.NoError(t, err)
	assert.True(t, speed.Equal(value.Int(1)), "merge key supplies missing entries")

	scale, err := doc.Lookup("player", "scale")
	require.NoError(t, err)
	assert.Equal(t, value.KindFloat, scale.Kind(), "2.0 stays a float")

	pos, err := doc.Lookup("player", "pos")
	require.NoError(t, err)
	vec, err := pos.AsVector2()
	require.NoError(t, err)
	assert.Equal(t, [2]float32{1, 2.5}, vec)

	nothing, err := doc.Get("nothing")
	require.NoError(t, err)
	assert.True(t, nothing.IsNull())
}

func TestDecodeYAMLEmpty(t *testing.T) {
	doc, err := Decode(strings.NewReader(""), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Len())
	assert.Equal(t, value.KindTable, doc.Kind())
}

func TestRoundTrip(t *testing.T) {
	doc := mustParse(t, "a 1\nb [ c \"x\" d -2.5 ]\nl [[ 1 \"two\" [ k + ] ]]\nz -\n")

	for _, f := range []Format{FormatAko, FormatJSON, FormatYAML} {
		t.Run(string(f), func(t *testing.T) {
			back, err := Decode(strings.NewReader(encode(t, doc, f)), f)
			require.NoError(t, err)
			assert.True(t, doc.Equal(back), "got %v", value.ToNative(back))
		})
	}
}

func TestCBOR(t *testing.T) {
	doc := mustParse(t, "b \"x\"\na 1\nf 2.5\nl [[ + - ]]\n")
	reordered := mustParse(t, "l [[ + - ]]\nf 2.5\na 1\nb \"x\"\n")

	first := encode(t, doc, FormatCBOR)
	assert.Equal(t, first, encode(t, reordered, FormatCBOR), "canonical encoding ignores key order")

	back, err := Decode(strings.NewReader(first), FormatCBOR)
	require.NoError(t, err)
	assert.True(t, doc.Equal(back))

	tbl, _ := back.AsTable()
	assert.Equal(t, []string{"a", "b", "f", "l"}, tbl.Keys())
}

func TestShortTypes(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register("vec", reflect.TypeFor[[3]float32]()))
	doc := mustParse(t, "kind &vec\n", parser.WithRegistry(reg))

	for _, f := range []Format{FormatJSON, FormatYAML, FormatCBOR} {
		t.Run(string(f), func(t *testing.T) {
			out := encode(t, doc, f, WithRegistry(reg))
			assert.Contains(t, out, "&vec")

			plain, err := Decode(strings.NewReader(out), f)
			require.NoError(t, err)
			kind, _ := plain.Get("kind")
			assert.Equal(t, value.KindString, kind.Kind(), "without a registry the name stays a string")

			typed, err := Decode(strings.NewReader(out), f, WithRegistry(reg))
			require.NoError(t, err)
			kind, _ = typed.Get("kind")
			st, err := kind.AsShortType()
			require.NoError(t, err)
			assert.Equal(t, "vec", st.Name)
			assert.Equal(t, reflect.TypeFor[[3]float32](), st.Handle)
		})
	}
}

func TestBuiltinShortTypesKeepTheirNames(t *testing.T) {
	reg := registry.NewWithBuiltins()
	doc := mustParse(t, "c &char i &int\n", parser.WithRegistry(reg))

	for _, f := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(f), func(t *testing.T) {
			typed, err := Decode(strings.NewReader(encode(t, doc, f, WithRegistry(reg))), f, WithRegistry(reg))
			require.NoError(t, err)
			assert.True(t, doc.Equal(typed))
		})
	}
}

func TestUnsupportedFormat(t *testing.T) {
	err := Encode(&bytes.Buffer{}, value.EmptyTable(), Format("toml"))
	var unsupported *UnsupportedFormatError
	assert.ErrorAs(t, err, &unsupported)

	_, err = Decode(strings.NewReader(""), Format("toml"))
	assert.ErrorAs(t, err, &unsupported)
}

func TestCBORVectorsDecodeAsNumericArrays(t *testing.T) {
	doc := mustParse(t, "pos 1.5x2.25x-0.1\nsize 800x600\n")

	back, err := Decode(strings.NewReader(encode(t, doc, FormatCBOR)), FormatCBOR)
	require.NoError(t, err)

	want := map[string]any{
		"pos":  []any{float32(1.5), float32(2.25), float32(-0.1)},
		"size": []any{int32(800), int32(600)},
	}
	if diff := cmp.Diff(want, value.ToNative(back), cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Errorf("decoded CBOR mismatch (-want +got):\n%s", diff)
	}

	size, err := back.Get("size")
	require.NoError(t, err)
	vec, err := size.AsVector2()
	require.NoError(t, err)
	assert.Equal(t, [2]float32{800, 600}, vec, "numeric arrays still read as vectors")
}
