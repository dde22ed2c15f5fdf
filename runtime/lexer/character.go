package lexer

// ASCII character lookup tables for fast classification (zero-allocation)
//
// Use inline bounds-checked lookups:
//
//	if ch < 128 && isLetter[ch] { ... }
//
// Bytes >= 128 are never part of identifiers, numbers or punctuation; they
// only appear inside strings and comments.
var (
	isWhitespace [128]bool // Space, tab, carriage return, newline
	isLetter     [128]bool // a-z, A-Z, _
	isDigit      [128]bool // 0-9
	isIdentStart [128]bool // Letter or _
	isIdentPart  [128]bool // Letter, digit or _
)

func init() {
	for i := 0; i < 128; i++ {
		ch := byte(i)

		// Newlines separate like any other whitespace; Ako has no statements
		isWhitespace[i] = ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n'

		isLetter[i] = ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_'
		isDigit[i] = '0' <= ch && ch <= '9'

		isIdentStart[i] = isLetter[i]
		isIdentPart[i] = isLetter[i] || isDigit[i]
	}
}

// IsIdentifier reports whether s can be written as a bare key.
// Identifiers: [a-zA-Z_][a-zA-Z0-9_]*
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}

	first := s[0]
	if first >= 128 || !isIdentStart[first] {
		return false
	}

	for i := 1; i < len(s); i++ {
		ch := s[i]
		if ch >= 128 || !isIdentPart[ch] {
			return false
		}
	}
	return true
}

func digitAt(input []byte, pos int) bool {
	return pos < len(input) && input[pos] < 128 && isDigit[input[pos]]
}
