package value

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/tuyuji/ako/core/invariant"
)

// canonicalNode is the deterministic encoding of a Value.
// Tables are encoded as maps, so canonical CBOR sorts their keys and two
// trees that differ only in key order encode identically.
type canonicalNode struct {
	Kind   Kind                     `cbor:"1,keyasint"`
	Bool   bool                     `cbor:"2,keyasint,omitempty"`
	Int    int32                    `cbor:"3,keyasint,omitempty"`
	Float  float32                  `cbor:"4,keyasint,omitempty"`
	String string                   `cbor:"5,keyasint,omitempty"`
	Vector []float32                `cbor:"6,keyasint,omitempty"`
	Table  map[string]canonicalNode `cbor:"7,keyasint,omitempty"`
	Array  []canonicalNode          `cbor:"8,keyasint,omitempty"`
}

var canonicalEncMode = func() cbor.EncMode {
	em, err := cbor.CanonicalEncOptions().EncMode()
	invariant.ExpectNoError(err, "canonical CBOR mode")
	return em
}()

func canonicalize(v *Value) canonicalNode {
	n := canonicalNode{Kind: v.kind}
	switch v.kind {
	case KindNull:
	case KindBool:
		n.Bool = v.b
	case KindInt:
		n.Int = v.i
	case KindFloat:
		n.Float = positiveZero(v.f)
	case KindString:
		n.String = v.s
	case KindShortType:
		n.String = v.short.Name
	case KindVector:
		n.Vector = make([]float32, len(v.vec))
		for i, c := range v.vec {
			n.Vector[i] = positiveZero(c)
		}
	case KindTable:
		n.Table = make(map[string]canonicalNode, v.table.Len())
		for k, child := range v.table.All() {
			n.Table[k] = canonicalize(child)
		}
	case KindArray:
		n.Array = make([]canonicalNode, len(v.arr))
		for i, e := range v.arr {
			n.Array[i] = canonicalize(e)
		}
	default:
		invariant.Invariant(false, "unhandled kind %v", v.kind)
	}
	return n
}

// positiveZero maps -0 to 0, which Equal treats as the same number.
func positiveZero(f float32) float32 {
	if f == 0 {
		return 0
	}
	return f
}

// MarshalCanonical returns the canonical CBOR encoding of v.
// Equal values always produce identical bytes.
func (v *Value) MarshalCanonical() ([]byte, error) {
	data, err := canonicalEncMode.Marshal(canonicalize(v))
	if err != nil {
		return nil, fmt.Errorf("CBOR encoding failed: %w", err)
	}
	return data, nil
}

// Hash returns the BLAKE2b-256 digest of the canonical encoding.
func (v *Value) Hash() ([32]byte, error) {
	data, err := v.MarshalCanonical()
	if err != nil {
		return [32]byte{}, err
	}
	return blake2b.Sum256(data), nil
}

// Digest returns Hash in the printable form "blake2b:<hex>".
func (v *Value) Digest() (string, error) {
	hash, err := v.Hash()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("blake2b:%x", hash), nil
}
