package parser

import (
	"fmt"
	"strings"

	"github.com/tuyuji/ako/runtime/lexer"
)

// ParseError represents a parse error with context for user-friendly messages.
// Errors from the lexer, the registry and vector arity checks are carried in
// Cause, so errors.As reaches them through a ParseError.
type ParseError struct {
	// Location
	Filename string         // Source filename (empty for stdin/string)
	Position lexer.Position // Line, column, offset

	// Core error info
	Message string // Clear, specific: "missing closing ']]'"
	Context string // What we were parsing: "array"

	// What went wrong
	Expected []lexer.TokenType // What tokens would be valid
	Got      lexer.TokenType   // What we found instead

	// How to fix it
	Suggestion string // Actionable fix: "did you mean &float?"
	Note       string // Optional explanation, e.g. where a bracket was opened

	Cause error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	if e.Filename != "" {
		b.WriteString(e.Filename)
		b.WriteByte(':')
	}
	fmt.Fprintf(&b, "%d:%d: %s", e.Position.Line, e.Position.Column, e.Message)
	if e.Context != "" {
		fmt.Fprintf(&b, " (in %s)", e.Context)
	}
	return b.String()
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Render formats the error with a code snippet in Rust/Clang style:
//
//	error: unknown short type "flaot"
//	  --> config.ako:3:7
//	   |
//	 3 | speed &flaot
//	   |       ^
//	   = help: did you mean &float?
func (e *ParseError) Render(source string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "error: %s\n", e.Message)

	location := fmt.Sprintf("%d:%d", e.Position.Line, e.Position.Column)
	if e.Filename != "" {
		location = e.Filename + ":" + location
	}
	fmt.Fprintf(&b, "  --> %s\n", location)

	lines := strings.Split(source, "\n")
	if e.Position.Line >= 1 && e.Position.Line <= len(lines) {
		lineContent := strings.TrimRight(lines[e.Position.Line-1], "\r")
		b.WriteString("   |\n")
		fmt.Fprintf(&b, "%2d | %s\n", e.Position.Line, lineContent)
		b.WriteString("   | ")
		if e.Position.Column > 0 {
			b.WriteString(strings.Repeat(" ", e.Position.Column-1) + "^")
		}
		b.WriteByte('\n')
	}

	if e.Context != "" {
		fmt.Fprintf(&b, "   = while parsing %s\n", e.Context)
	}
	if expected := expectedList(e.Expected); expected != "" {
		fmt.Fprintf(&b, "   = expected %s, found %s\n", expected, tokenName(e.Got))
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "   = help: %s\n", e.Suggestion)
	}
	if e.Note != "" {
		fmt.Fprintf(&b, "   = note: %s\n", e.Note)
	}
	return b.String()
}

// VectorArityError reports a vector literal with more than four components.
type VectorArityError struct {
	Position lexer.Position
	Count    int
}

func (e *VectorArityError) Error() string {
	return fmt.Sprintf("vector has %d components, at most 4 are allowed", e.Count)
}

// tokenName describes a token type for messages
func tokenName(t lexer.TokenType) string {
	return t.Symbol()
}

func expectedList(types []lexer.TokenType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = tokenName(t)
	}
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " or " + names[len(names)-1]
	}
}
