package value

import (
	"fmt"
	"strings"
)

// TypeMismatchError reports an operation applied to the wrong kind of value.
type TypeMismatchError struct {
	Expected []Kind
	Actual   Kind
	Path     string // dotted location of the mismatch, if known
}

func (e *TypeMismatchError) Error() string {
	names := make([]string, len(e.Expected))
	for i, k := range e.Expected {
		names[i] = k.String()
	}
	msg := fmt.Sprintf("type mismatch: expected %s, got %s", strings.Join(names, " or "), e.Actual)
	if e.Path != "" {
		msg += " at " + e.Path
	}
	return msg
}

// KeyNotFoundError reports a missing table key.
type KeyNotFoundError struct {
	Key        string
	Suggestion string
}

func (e *KeyNotFoundError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("key %q not found (did you mean %q?)", e.Key, e.Suggestion)
	}
	return fmt.Sprintf("key %q not found", e.Key)
}

// IndexOutOfRangeError reports an array or vector index outside [0, Len).
type IndexOutOfRangeError struct {
	Index int
	Len   int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("index %d out of range [0, %d)", e.Index, e.Len)
}

func mismatch(actual Kind, expected ...Kind) *TypeMismatchError {
	return &TypeMismatchError{Expected: expected, Actual: actual}
}
