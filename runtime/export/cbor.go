package export

import (
	"fmt"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/tuyuji/ako/core/value"
)

var (
	cborEncMode = mustEncMode()
	cborDecMode = mustDecMode()
)

func mustEncMode() cbor.EncMode {
	mode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor: canonical encoder options: %v", err))
	}
	return mode
}

func mustDecMode() cbor.DecMode {
	mode, err := cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		MaxNestedLevels: 512,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("cbor: decoder options: %v", err))
	}
	return mode
}

func (c *config) encodeCBOR(w io.Writer, doc *value.Value) error {
	data, err := cborEncMode.Marshal(c.plain(doc))
	if err != nil {
		return fmt.Errorf("cbor: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// plain converts v into maps, slices and scalars with short types as
// "&name" strings
func (c *config) plain(v *value.Value) any {
	switch v.Kind() {
	case value.KindShortType:
		return c.shortTypeName(v)
	case value.KindTable:
		tbl, _ := v.AsTable()
		out := make(map[string]any, tbl.Len())
		for key, child := range tbl.All() {
			out[key] = c.plain(child)
		}
		return out
	case value.KindArray:
		elems, _ := v.AsArray()
		out := make([]any, len(elems))
		for i, child := range elems {
			out[i] = c.plain(child)
		}
		return out
	default:
		return value.ToNative(v)
	}
}

// decodeCBOR reads one data item. Map keys come back sorted and integral
// floats that fit in int32 become Int.
func decodeCBOR(r io.Reader) (*value.Value, error) {
	var x any
	if err := cborDecMode.NewDecoder(r).Decode(&x); err != nil {
		return nil, fmt.Errorf("cbor: %w", err)
	}
	doc, err := value.FromNative(x)
	if err != nil {
		return nil, fmt.Errorf("cbor: %w", err)
	}
	return doc, nil
}
