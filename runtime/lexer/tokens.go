// Package lexer turns Ako source text into tokens.
package lexer

import "fmt"

// TokenType represents Ako lexical tokens
type TokenType int

const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Literals
	IDENTIFIER // window, _private, size2
	STRING     // "text"
	INT        // 42, -7
	FLOAT      // 1.5, -0.25f
	BOOL       // + or - standing alone

	// Punctuation
	SEMICOLON  // ; - null
	AND        // & - short type marker
	DOT        // . - key path separator
	VECTOR_SEP // x between vector components

	// Containers
	OPEN_TABLE  // [
	CLOSE_TABLE // ]
	OPEN_ARRAY  // [[
	CLOSE_ARRAY // ]]
)

// Token is a lexical token with its literal payload and source span.
type Token struct {
	Type TokenType
	Text []byte // Raw source bytes of the token, nil for EOF

	// Literal payloads, set according to Type
	Str   string  // decoded STRING contents, or IDENTIFIER name
	Int   int32   // INT
	Float float32 // FLOAT
	Bool  bool    // BOOL

	Span Span
}

// String returns the token text as a string (for testing and debugging)
func (t Token) String() string {
	return string(t.Text)
}

// Pos returns the start of the token
func (t Token) Pos() Position {
	return t.Span.Start
}

// IsNumber reports whether the token is an INT or FLOAT literal
func (t Token) IsNumber() bool {
	return t.Type == INT || t.Type == FLOAT
}

// Position represents a position in the source code
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based column number
	Offset int // 0-based byte offset
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span covers [Start, End) of a token.
type Span struct {
	Start Position
	End   Position
}

// String returns a string representation of the token type
func (t TokenType) String() string {
	switch t {
	case EOF:
		return "EOF"
	case ILLEGAL:
		return "ILLEGAL"
	case IDENTIFIER:
		return "IDENTIFIER"
	case STRING:
		return "STRING"
	case INT:
		return "INT"
	case FLOAT:
		return "FLOAT"
	case BOOL:
		return "BOOL"
	case SEMICOLON:
		return "SEMICOLON"
	case AND:
		return "AND"
	case DOT:
		return "DOT"
	case VECTOR_SEP:
		return "VECTOR_SEP"
	case OPEN_TABLE:
		return "OPEN_TABLE"
	case CLOSE_TABLE:
		return "CLOSE_TABLE"
	case OPEN_ARRAY:
		return "OPEN_ARRAY"
	case CLOSE_ARRAY:
		return "CLOSE_ARRAY"
	default:
		return "UNKNOWN"
	}
}

// Symbol returns the source spelling of punctuation tokens, used in error
// messages. Literal token types return their name.
func (t TokenType) Symbol() string {
	switch t {
	case SEMICOLON:
		return "';'"
	case AND:
		return "'&'"
	case DOT:
		return "'.'"
	case VECTOR_SEP:
		return "'x'"
	case OPEN_TABLE:
		return "'['"
	case CLOSE_TABLE:
		return "']'"
	case OPEN_ARRAY:
		return "'[['"
	case CLOSE_ARRAY:
		return "']]'"
	case BOOL:
		return "'+' or '-'"
	case EOF:
		return "end of input"
	default:
		return t.String()
	}
}
