package value

import (
	"iter"
	"slices"

	"github.com/tuyuji/ako/core/invariant"
)

// Table is a string-keyed map that remembers insertion order.
// Rebinding an existing key keeps its original position.
type Table struct {
	keys    []string
	entries map[string]*Value
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{entries: make(map[string]*Value)}
}

// Len returns the number of entries
func (t *Table) Len() int { return len(t.keys) }

// Get returns the value bound to key.
func (t *Table) Get(key string) (*Value, bool) {
	v, ok := t.entries[key]
	return v, ok
}

// Has reports whether key is bound
func (t *Table) Has(key string) bool {
	_, ok := t.entries[key]
	return ok
}

// Set binds key to v.
func (t *Table) Set(key string, v *Value) {
	invariant.NotNil(v, "table value")
	if _, ok := t.entries[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.entries[key] = v
}

// Delete removes key. Unknown keys are ignored.
func (t *Table) Delete(key string) {
	if _, ok := t.entries[key]; !ok {
		return
	}
	delete(t.entries, key)
	t.keys = slices.DeleteFunc(t.keys, func(k string) bool { return k == key })
}

// Keys returns the keys in insertion order.
func (t *Table) Keys() []string {
	return slices.Clone(t.keys)
}

// All iterates entries in insertion order.
func (t *Table) All() iter.Seq2[string, *Value] {
	return func(yield func(string, *Value) bool) {
		for _, k := range t.keys {
			if !yield(k, t.entries[k]) {
				return
			}
		}
	}
}

// Clone returns a deep copy of t
func (t *Table) Clone() *Table {
	out := &Table{
		keys:    slices.Clone(t.keys),
		entries: make(map[string]*Value, len(t.entries)),
	}
	for k, v := range t.entries {
		out.entries[k] = v.Clone()
	}
	return out
}

// Equal compares entries regardless of order
func (t *Table) Equal(other *Table) bool {
	if t == nil || other == nil {
		return t == other
	}
	if len(t.entries) != len(other.entries) {
		return false
	}
	for k, v := range t.entries {
		ov, ok := other.entries[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}
