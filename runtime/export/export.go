// Package export converts Ako documents to and from other data formats.
//
// JSON and YAML keep table keys in insertion order. CBOR output uses the
// canonical encoding, so its map keys are sorted and equal documents
// produce identical bytes. Short types are written as "&name" strings.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tuyuji/ako/core/registry"
	"github.com/tuyuji/ako/core/value"
	"github.com/tuyuji/ako/runtime/parser"
	"github.com/tuyuji/ako/runtime/serializer"
)

// Format names a document encoding.
type Format string

const (
	FormatAko  Format = "ako"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCBOR Format = "cbor"
)

// Formats lists every supported format
var Formats = []Format{FormatAko, FormatJSON, FormatYAML, FormatCBOR}

// UnsupportedFormatError reports a format name Ako does not know.
type UnsupportedFormatError struct {
	Name string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format %q (want ako, json, yaml or cbor)", e.Name)
}

// ParseFormat maps a name such as "json" or "yml" to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "ako":
		return FormatAko, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "cbor":
		return FormatCBOR, nil
	default:
		return "", &UnsupportedFormatError{Name: name}
	}
}

// Option configures Encode and Decode
type Option func(*config)

type config struct {
	registry *registry.Registry
	indent   string
}

func newConfig(opts []Option) *config {
	c := &config{indent: "  "}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithRegistry names short types through r when encoding and turns "&name"
// strings that r resolves back into short types when decoding.
func WithRegistry(r *registry.Registry) Option {
	return func(c *config) {
		c.registry = r
	}
}

// WithIndent sets the indentation for JSON and YAML output (default two
// spaces)
func WithIndent(indent string) Option {
	return func(c *config) {
		c.indent = indent
	}
}

// Encode writes doc to w in format f.
func Encode(w io.Writer, doc *value.Value, f Format, opts ...Option) error {
	c := newConfig(opts)
	switch f {
	case FormatAko:
		sopts := []serializer.Opt{serializer.WithIndent("\t")}
		if c.registry != nil {
			sopts = append(sopts, serializer.WithRegistry(c.registry))
		}
		return serializer.Write(w, doc, sopts...)
	case FormatJSON:
		return c.encodeJSON(w, doc)
	case FormatYAML:
		return c.encodeYAML(w, doc)
	case FormatCBOR:
		return c.encodeCBOR(w, doc)
	default:
		return &UnsupportedFormatError{Name: string(f)}
	}
}

// Decode reads one document in format f from r. The root must be a table
// or an array; empty YAML input yields an empty table.
func Decode(r io.Reader, f Format, opts ...Option) (*value.Value, error) {
	c := newConfig(opts)

	var (
		doc *value.Value
		err error
	)
	switch f {
	case FormatAko:
		var src []byte
		if src, err = io.ReadAll(r); err != nil {
			return nil, err
		}
		var popts []parser.ParserOpt
		if c.registry != nil {
			popts = append(popts, parser.WithRegistry(c.registry))
		}
		return parser.Parse(string(src), popts...)
	case FormatJSON:
		doc, err = decodeJSON(r)
	case FormatYAML:
		doc, err = decodeYAML(r)
	case FormatCBOR:
		doc, err = decodeCBOR(r)
	default:
		return nil, &UnsupportedFormatError{Name: string(f)}
	}
	if err != nil {
		return nil, err
	}
	if !doc.IsContainer() {
		return nil, fmt.Errorf("%s: document root must be a table or array, got %s", f, doc.Kind())
	}
	if c.registry != nil {
		c.restoreShortTypes(doc)
	}
	return doc, nil
}

// shortTypeName returns the "&name" form of a short type value
func (c *config) shortTypeName(v *value.Value) string {
	st, _ := v.AsShortType()
	if c.registry != nil && st.Handle != nil {
		if h, err := c.registry.Resolve(st.Name); err == nil && h == st.Handle {
			return "&" + st.Name
		}
		if name, err := c.registry.ReverseResolve(st.Handle); err == nil {
			return "&" + name
		}
	}
	return "&" + st.Name
}

// restoreShortTypes replaces "&name" strings the registry knows in place
func (c *config) restoreShortTypes(v *value.Value) {
	switch v.Kind() {
	case value.KindTable:
		tbl, _ := v.AsTable()
		for key, child := range tbl.All() {
			if st := c.shortType(child); st != nil {
				tbl.Set(key, st)
				continue
			}
			c.restoreShortTypes(child)
		}
	case value.KindArray:
		elems, _ := v.AsArray()
		for i, child := range elems {
			if st := c.shortType(child); st != nil {
				elems[i] = st
				continue
			}
			c.restoreShortTypes(child)
		}
	}
}

func (c *config) shortType(v *value.Value) *value.Value {
	s, err := v.AsString()
	if err != nil || !strings.HasPrefix(s, "&") {
		return nil
	}
	name := s[1:]
	handle, err := c.registry.Resolve(name)
	if err != nil {
		return nil
	}
	return value.Short(name, handle)
}

// formatFloat renders f so that it reads back as a float, never an integer
func formatFloat(f float32) string {
	s := strconv.FormatFloat(float64(f), 'g', -1, 32)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
