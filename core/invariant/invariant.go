// Package invariant holds the contract assertions used across the Ako engine.
//
// Lexer, parser and merge code call these to state what must hold for the
// engine itself to be correct. A violation is a bug in Ako, never a problem
// with the document being read, so every helper panics instead of returning
// an error. Malformed input is reported through the typed errors of the
// lexer and parser packages.
package invariant

import (
	"fmt"
	"reflect"
	"runtime"
)

// Precondition checks an input contract at function entry.
// Panics with PRECONDITION VIOLATION if condition is false.
//
// Example:
//
//	func (t *Table) Set(key string, v *Value) {
//	    invariant.Precondition(v != nil, "value for %q must not be nil", key)
//	    // ...
//	}
func Precondition(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("PRECONDITION", format, args...)
	}
}

// Postcondition checks an output contract before function return.
// Panics with POSTCONDITION VIOLATION if condition is false.
//
// Example:
//
//	doc := p.document()
//	invariant.Postcondition(doc.IsContainer(), "document root must be a table or array")
func Postcondition(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("POSTCONDITION", format, args...)
	}
}

// Invariant checks an internal invariant during function execution.
// Panics with INVARIANT VIOLATION if condition is false.
//
// Example:
//
//	prev := p.pos
//	p.element(table)
//	invariant.Invariant(p.pos > prev, "element must consume at least one token")
func Invariant(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("INVARIANT", format, args...)
	}
}

// NotNil panics if value is nil, including typed nils such as (*Value)(nil).
func NotNil(value interface{}, name string) {
	if value == nil || isNilValue(value) {
		fail("PRECONDITION", "%s must not be nil", name)
	}
}

func isNilValue(value interface{}) bool {
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return v.IsNil()
	default:
		return false
	}
}

// InRange panics if value is outside [minVal, maxVal].
//
// Example:
//
//	invariant.InRange(len(components), 2, 4, "vector components")
func InRange(value, minVal, maxVal int, name string) {
	if value < minVal || value > maxVal {
		fail("PRECONDITION", "%s must be in range [%d, %d], got %d",
			name, minVal, maxVal, value)
	}
}

// ExpectNoError panics if err is not nil. Use it for operations that cannot
// fail given already validated input, e.g. encoding a tree the engine built.
func ExpectNoError(err error, msg string) {
	if err != nil {
		fail("POSTCONDITION", "%s must not fail: %v", msg, err)
	}
}

// fail panics with a formatted message including the violating call site.
func fail(kind, format string, args ...interface{}) {
	// Skip fail() and the exported wrapper
	pc := make([]uintptr, 10)
	n := runtime.Callers(3, pc)
	frames := runtime.CallersFrames(pc[:n])

	msg := fmt.Sprintf("%s VIOLATION: "+format, append([]interface{}{kind}, args...)...)
	if frame, ok := frames.Next(); ok {
		msg += fmt.Sprintf("\n  at %s:%d", frame.File, frame.Line)
	}

	panic(msg)
}
