package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/tuyuji/ako/core/value"
)

func (c *config) encodeJSON(w io.Writer, doc *value.Value) error {
	var compact bytes.Buffer
	if err := c.writeJSON(&compact, doc, nil); err != nil {
		return err
	}

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", c.indent); err != nil {
		return fmt.Errorf("json: %w", err)
	}
	out.WriteByte('\n')
	_, err := out.WriteTo(w)
	return err
}

func (c *config) writeJSON(b *bytes.Buffer, v *value.Value, path []string) error {
	switch v.Kind() {
	case value.KindNull:
		b.WriteString("null")
	case value.KindBool:
		bv, _ := v.AsBool()
		b.WriteString(strconv.FormatBool(bv))
	case value.KindInt:
		i, _ := v.AsInt()
		b.WriteString(strconv.FormatInt(int64(i), 10))
	case value.KindFloat:
		f, _ := v.AsFloat()
		if err := writeJSONFloat(b, f, path); err != nil {
			return err
		}
	case value.KindString:
		s, _ := v.AsString()
		writeJSONString(b, s)
	case value.KindShortType:
		writeJSONString(b, c.shortTypeName(v))
	case value.KindVector:
		comps, _ := v.AsVector()
		b.WriteByte('[')
		for i, f := range comps {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeJSONFloat(b, f, path); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case value.KindTable:
		tbl, _ := v.AsTable()
		b.WriteByte('{')
		first := true
		for key, child := range tbl.All() {
			if !first {
				b.WriteByte(',')
			}
			first = false
			writeJSONString(b, key)
			b.WriteByte(':')
			if err := c.writeJSON(b, child, append(path, key)); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	case value.KindArray:
		elems, _ := v.AsArray()
		b.WriteByte('[')
		for i, child := range elems {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := c.writeJSON(b, child, append(path, strconv.Itoa(i))); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	default:
		return fmt.Errorf("json: unhandled kind %s", v.Kind())
	}
	return nil
}

func writeJSONFloat(b *bytes.Buffer, f float32, path []string) error {
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		return fmt.Errorf("json: %s: %v has no JSON representation", pathString(path), f)
	}
	b.WriteString(formatFloat(f))
	return nil
}

func writeJSONString(b *bytes.Buffer, s string) {
	enc := json.NewEncoder(b)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail
	_ = enc.Encode(s)
	b.Truncate(b.Len() - 1) // drop the newline Encode appends
}

func pathString(path []string) string {
	if len(path) == 0 {
		return "<root>"
	}
	return strings.Join(path, ".")
}

// decodeJSON reads tokens instead of unmarshalling into maps so that object
// keys keep their order.
func decodeJSON(r io.Reader) (*value.Value, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	doc, err := readJSON(dec)
	if err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("json: unexpected data after document at offset %d", dec.InputOffset())
	}
	return doc, nil
}

func readJSON(dec *json.Decoder) (*value.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			tbl := value.NewTable()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key must be a string, got %v", keyTok)
				}
				child, err := readJSON(dec)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", key, err)
				}
				tbl.Set(key, child)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return value.TableOf(tbl), nil
		case '[':
			var elems []*value.Value
			for dec.More() {
				child, err := readJSON(dec)
				if err != nil {
					return nil, fmt.Errorf("[%d]: %w", len(elems), err)
				}
				elems = append(elems, child)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return value.Array(elems...), nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %v", t)
		}
	case json.Number:
		return jsonNumber(t)
	case string:
		return value.String(t), nil
	case bool:
		return value.Bool(t), nil
	case nil:
		return value.Null(), nil
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}

// jsonNumber keeps "1.0" a Float and "1" an Int
func jsonNumber(n json.Number) (*value.Value, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return value.FromNative(i)
		}
	}
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return nil, fmt.Errorf("number %s: %w", s, err)
	}
	return value.Float(float32(f)), nil
}
