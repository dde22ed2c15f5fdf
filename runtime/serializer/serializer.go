// Package serializer writes Ako documents back to source text.
//
// Output re-parses to an equal tree, except that numeric arrays of two to
// four elements come back as vectors and comments are not preserved.
package serializer

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/tuyuji/ako/core/invariant"
	"github.com/tuyuji/ako/core/registry"
	"github.com/tuyuji/ako/core/value"
	"github.com/tuyuji/ako/runtime/lexer"
)

// Opt represents a serializer configuration option
type Opt func(*config)

type config struct {
	registry *registry.Registry
	indent   string
}

// WithRegistry names short types through reverse lookup in r. Without a
// registry the name recorded at parse time is written.
func WithRegistry(r *registry.Registry) Opt {
	return func(c *config) {
		c.registry = r
	}
}

// WithIndent sets the indentation unit for nested tables (default tab)
func WithIndent(indent string) Opt {
	return func(c *config) {
		c.indent = indent
	}
}

// Error reports a value that cannot be written.
type Error struct {
	Path string // dotted location of the value, "<root>" for the root
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("serialize %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Serialize renders doc as Ako source.
func Serialize(doc *value.Value, opts ...Opt) (string, error) {
	invariant.NotNil(doc, "document")

	w := &writer{config: newConfig(opts)}
	if err := w.document(doc); err != nil {
		return "", err
	}
	return w.b.String(), nil
}

// SerializeValue renders a single value on one line, the way it would
// appear after a key. Tables are written inline as `[ k v ]`.
func SerializeValue(v *value.Value, opts ...Opt) (string, error) {
	invariant.NotNil(v, "value")

	w := &writer{config: newConfig(opts)}
	if err := w.inline(v); err != nil {
		return "", err
	}
	return w.b.String(), nil
}

func newConfig(opts []Opt) *config {
	c := &config{indent: "\t"}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Write renders doc as Ako source to out.
func Write(out io.Writer, doc *value.Value, opts ...Opt) error {
	text, err := Serialize(doc, opts...)
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, text)
	return err
}

type writer struct {
	config *config
	b      strings.Builder
	path   []string
}

func (w *writer) document(doc *value.Value) error {
	switch doc.Kind() {
	case value.KindTable:
		tbl, _ := doc.AsTable()
		return w.entries(tbl, 0)
	case value.KindArray:
		// A root array is always bracketed; a bare vector is not a document
		elems, _ := doc.AsArray()
		if err := w.arrayLiteral(elems); err != nil {
			return err
		}
		w.b.WriteByte('\n')
		return nil
	default:
		return w.fail(fmt.Errorf("document root must be a Table or Array, got %s", doc.Kind()))
	}
}

// entries writes one `key value` line per table entry
func (w *writer) entries(tbl *value.Table, depth int) error {
	for key, v := range tbl.All() {
		w.path = append(w.path, key)

		w.writeIndent(depth)
		w.key(key)
		w.b.WriteByte(' ')

		var err error
		if v.Kind() == value.KindTable {
			err = w.block(v, depth)
		} else {
			err = w.inline(v)
		}
		if err != nil {
			return err
		}
		w.b.WriteByte('\n')

		w.path = w.path[:len(w.path)-1]
	}
	return nil
}

// block writes a nested table across lines
func (w *writer) block(v *value.Value, depth int) error {
	tbl, _ := v.AsTable()
	if tbl.Len() == 0 {
		w.b.WriteString("[]")
		return nil
	}

	w.b.WriteString("[\n")
	if err := w.entries(tbl, depth+1); err != nil {
		return err
	}
	w.writeIndent(depth)
	w.b.WriteByte(']')
	return nil
}

// inline writes a value on the current line
func (w *writer) inline(v *value.Value) error {
	switch v.Kind() {
	case value.KindNull:
		w.b.WriteByte(';')
	case value.KindBool:
		b, _ := v.AsBool()
		if b {
			w.b.WriteByte('+')
		} else {
			w.b.WriteByte('-')
		}
	case value.KindInt:
		i, _ := v.AsInt()
		w.b.WriteString(strconv.FormatInt(int64(i), 10))
	case value.KindFloat:
		f, _ := v.AsFloat()
		s, err := formatFloat(f)
		if err != nil {
			return w.fail(err)
		}
		w.b.WriteString(s)
	case value.KindString:
		s, _ := v.AsString()
		w.quote(s)
	case value.KindShortType:
		st, _ := v.AsShortType()
		name, err := w.shortTypeName(st)
		if err != nil {
			return w.fail(err)
		}
		w.b.WriteByte('&')
		w.b.WriteString(name)
	case value.KindVector:
		comps, _ := v.AsVector()
		return w.vector(comps)
	case value.KindTable:
		return w.inlineTable(v)
	case value.KindArray:
		return w.array(v)
	default:
		invariant.Invariant(false, "unhandled kind %v", v.Kind())
	}
	return nil
}

func (w *writer) inlineTable(v *value.Value) error {
	tbl, _ := v.AsTable()
	if tbl.Len() == 0 {
		w.b.WriteString("[]")
		return nil
	}

	w.b.WriteString("[ ")
	for key, child := range tbl.All() {
		w.path = append(w.path, key)
		w.key(key)
		w.b.WriteByte(' ')
		if err := w.inline(child); err != nil {
			return err
		}
		w.b.WriteByte(' ')
		w.path = w.path[:len(w.path)-1]
	}
	w.b.WriteByte(']')
	return nil
}

func (w *writer) array(v *value.Value) error {
	elems, _ := v.AsArray()

	if comps, ok := vectorShorthand(elems); ok {
		return w.vector(comps)
	}
	return w.arrayLiteral(elems)
}

func (w *writer) arrayLiteral(elems []*value.Value) error {
	w.b.WriteString("[[ ")
	for i, e := range elems {
		w.path = append(w.path, strconv.Itoa(i))
		if err := w.inline(e); err != nil {
			return err
		}
		w.b.WriteByte(' ')
		w.path = w.path[:len(w.path)-1]
	}
	w.b.WriteString("]]")
	return nil
}

// vectorShorthand reports whether an array of 2 to 4 numbers can be written
// as a vector
func vectorShorthand(elems []*value.Value) ([]float32, bool) {
	if len(elems) < value.MinVectorLen || len(elems) > value.MaxVectorLen {
		return nil, false
	}
	comps := make([]float32, len(elems))
	for i, e := range elems {
		n, err := e.AsNumber()
		if err != nil {
			return nil, false
		}
		comps[i] = n
	}
	return comps, true
}

func (w *writer) vector(comps []float32) error {
	for i, c := range comps {
		if i > 0 {
			w.b.WriteByte('x')
		}
		s, err := formatComponent(c)
		if err != nil {
			return w.fail(err)
		}
		w.b.WriteString(s)
	}
	return nil
}

func (w *writer) shortTypeName(st value.ShortType) (string, error) {
	if w.config.registry == nil || st.Handle == nil {
		return st.Name, nil
	}
	// The recorded name wins while it still resolves to the same type
	if h, err := w.config.registry.Resolve(st.Name); err == nil && h == st.Handle {
		return st.Name, nil
	}
	return w.config.registry.ReverseResolve(st.Handle)
}

func (w *writer) key(key string) {
	if lexer.IsIdentifier(key) {
		w.b.WriteString(key)
		return
	}
	w.quote(key)
}

func (w *writer) quote(s string) {
	w.b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			w.b.WriteString(`\"`)
		case '\\':
			w.b.WriteString(`\\`)
		case '\n':
			w.b.WriteString(`\n`)
		default:
			w.b.WriteRune(r)
		}
	}
	w.b.WriteByte('"')
}

func (w *writer) writeIndent(depth int) {
	for i := 0; i < depth; i++ {
		w.b.WriteString(w.config.indent)
	}
}

func (w *writer) fail(err error) error {
	path := "<root>"
	if len(w.path) > 0 {
		path = strings.Join(w.path, ".")
	}
	return &Error{Path: path, Err: err}
}

// formatFloat writes the shortest decimal that reads back as f and always
// contains a dot, so it re-lexes as a FLOAT.
func formatFloat(f float32) (string, error) {
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		return "", fmt.Errorf("float %v has no Ako literal", f)
	}
	s := strconv.FormatFloat(float64(f), 'f', -1, 32)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s, nil
}

// formatComponent writes a vector component. Integral components that fit
// an Int are written without a fraction.
func formatComponent(c float32) (string, error) {
	f := float64(c)
	if f == math.Trunc(f) && f >= math.MinInt32 && f <= math.MaxInt32 && !(f == 0 && math.Signbit(f)) {
		return strconv.FormatInt(int64(f), 10), nil
	}
	return formatFloat(c)
}
