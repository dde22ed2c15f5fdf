// Package layers resolves configuration lookups across prioritised layers.
//
// Each label owns one table. Labels are ordered; a higher label overrides a
// lower one, so with layers Defaults < Game < User a key set by the user wins
// over the same key in the game's defaults.
package layers

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/tuyuji/ako/core/invariant"
	"github.com/tuyuji/ako/core/value"
	"github.com/tuyuji/ako/runtime/parser"
)

// ErrNotFound is returned when no layer resolves a path
var ErrNotFound = errors.New("layers: path not found")

// UnknownLayerError reports a label the collection was not built with.
type UnknownLayerError struct {
	Label any
}

func (e *UnknownLayerError) Error() string {
	return fmt.Sprintf("layers: unknown layer %v", e.Label)
}

// Layers holds one table per label. Safe for concurrent use; values returned
// by Get and Layer are live and must not be mutated while other goroutines
// merge into the same layer.
type Layers[L cmp.Ordered] struct {
	mu     sync.RWMutex
	labels []L // ascending priority
	docs   map[L]*value.Value
}

// New creates a collection with an empty table for every label. Labels are
// sorted, so priority follows the natural order of L.
func New[L cmp.Ordered](labels ...L) *Layers[L] {
	invariant.Precondition(len(labels) > 0, "at least one layer label is required")

	sorted := slices.Clone(labels)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	docs := make(map[L]*value.Value, len(sorted))
	for _, label := range sorted {
		docs[label] = value.EmptyTable()
	}
	return &Layers[L]{labels: sorted, docs: docs}
}

// Labels returns the labels from lowest to highest priority
func (l *Layers[L]) Labels() []L {
	return slices.Clone(l.labels)
}

// Layer returns the live table of label.
func (l *Layers[L]) Layer(label L) (*value.Value, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	doc, ok := l.docs[label]
	if !ok {
		return nil, &UnknownLayerError{Label: label}
	}
	return doc, nil
}

// SetLayer replaces the table of label. The collection takes ownership of doc.
func (l *Layers[L]) SetLayer(label L, doc *value.Value) error {
	invariant.NotNil(doc, "layer document")
	if doc.Kind() != value.KindTable {
		return &value.TypeMismatchError{Expected: []value.Kind{value.KindTable}, Actual: doc.Kind()}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.docs[label]; !ok {
		return &UnknownLayerError{Label: label}
	}
	l.docs[label] = doc
	return nil
}

// Merge folds doc into the table of label.
func (l *Layers[L]) Merge(label L, doc *value.Value) error {
	invariant.NotNil(doc, "overlay document")

	l.mu.Lock()
	defer l.mu.Unlock()

	base, ok := l.docs[label]
	if !ok {
		return &UnknownLayerError{Label: label}
	}
	return value.Merge(base, doc)
}

// MergeSource parses src and merges it into the table of label.
func (l *Layers[L]) MergeSource(label L, src string, opts ...parser.ParserOpt) error {
	doc, err := parser.Parse(src, opts...)
	if err != nil {
		return err
	}
	return l.Merge(label, doc)
}

// Get resolves path against the layers from highest to lowest priority and
// returns the first match.
func (l *Layers[L]) Get(path ...string) (*value.Value, error) {
	v, _, err := l.Resolve(path...)
	return v, err
}

// Resolve is Get that also reports which layer supplied the value.
func (l *Layers[L]) Resolve(path ...string) (*value.Value, L, error) {
	var zero L
	if len(path) == 0 {
		return nil, zero, ErrNotFound
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := len(l.labels) - 1; i >= 0; i-- {
		label := l.labels[i]
		doc := l.docs[label]
		if doc.Len() == 0 {
			continue
		}
		if v, err := doc.Lookup(path...); err == nil {
			return v, label, nil
		}
	}
	return nil, zero, ErrNotFound
}

// Flatten merges every layer, lowest priority first, into a new table: the
// effective configuration.
func (l *Layers[L]) Flatten() *value.Value {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := value.EmptyTable()
	for _, label := range l.labels {
		invariant.ExpectNoError(value.Merge(out, l.docs[label]), "merging layer tables")
	}
	return out
}
