package lexer

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// LexerOpt represents a lexer configuration option
type LexerOpt func(*LexerConfig)

// TelemetryMode controls telemetry collection (production-safe)
type TelemetryMode int

const (
	TelemetryOff    TelemetryMode = iota // Zero overhead (default)
	TelemetryBasic                       // Token counts only
	TelemetryTiming                      // Token counts + timing per type
)

// DebugLevel controls debug tracing (development only)
type DebugLevel int

const (
	DebugOff      DebugLevel = iota // No debug info (default)
	DebugPaths                      // Method call tracing
	DebugDetailed                   // Character-level tracing
)

// LexerConfig holds lexer configuration
type LexerConfig struct {
	telemetry TelemetryMode
	debug     DebugLevel
	logger    *slog.Logger
}

// WithTelemetryBasic enables basic telemetry (token counts only)
func WithTelemetryBasic() LexerOpt {
	return func(c *LexerConfig) {
		c.telemetry = TelemetryBasic
	}
}

// WithTelemetryTiming enables timing telemetry (counts + timing per type)
func WithTelemetryTiming() LexerOpt {
	return func(c *LexerConfig) {
		c.telemetry = TelemetryTiming
	}
}

// WithDebugPaths enables debug path tracing (development only)
func WithDebugPaths() LexerOpt {
	return func(c *LexerConfig) {
		c.debug = DebugPaths
	}
}

// WithDebugDetailed enables detailed debug tracing (development only)
func WithDebugDetailed() LexerOpt {
	return func(c *LexerConfig) {
		c.debug = DebugDetailed
	}
}

// WithLogger sets the logger used for debug output. By default debug
// output goes to stderr when AKO_DEBUG_LEXER is set and is discarded
// otherwise.
func WithLogger(logger *slog.Logger) LexerOpt {
	return func(c *LexerConfig) {
		c.logger = logger
	}
}

// TokenTelemetry holds per-token type telemetry (production-safe)
type TokenTelemetry struct {
	Type      TokenType
	Count     int
	TotalTime time.Duration
	AvgTime   time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// DebugEvent holds debug tracing information (development only)
type DebugEvent struct {
	Timestamp time.Time
	Event     string   // "enter_lexNumber", "vector_sep", "exit_lexString"
	Position  Position // Current lexer position
	Context   string   // Current character, token being built, etc.
}

// LexError reports the first character the lexer could not classify, or a
// malformed literal.
type LexError struct {
	Position Position
	Char     rune // offending character, utf8.RuneError at end of input
	Message  string
}

func (e *LexError) Error() string {
	if e.Char == utf8.RuneError {
		return fmt.Sprintf("%d:%d: %s", e.Position.Line, e.Position.Column, e.Message)
	}
	return fmt.Sprintf("%d:%d: %s %q", e.Position.Line, e.Position.Column, e.Message, e.Char)
}

// defaultLogger is shared by lexers built without WithLogger
var defaultLogger = sync.OnceValue(func() *slog.Logger {
	if os.Getenv("AKO_DEBUG_LEXER") == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Remove timestamp and level for cleaner output
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
})

// Lexer tokenizes Ako source
type Lexer struct {
	// Core lexing state
	input    []byte
	position int
	line     int
	column   int

	// Set once a number has been lexed and cleared by any other token;
	// enables the `x` vector separator
	afterNumber bool

	// First error; once set every call to NextToken returns ILLEGAL
	err error

	logger *slog.Logger

	// Telemetry (nil when disabled for zero allocation)
	telemetryMode  TelemetryMode
	tokenTelemetry map[TokenType]*TokenTelemetry

	// Debug (nil when disabled for zero allocation)
	debugLevel  DebugLevel
	debugEvents []DebugEvent
}

// NewLexer creates a new lexer instance with optional configuration
func NewLexer(input string, opts ...LexerOpt) *Lexer {
	config := &LexerConfig{}
	for _, opt := range opts {
		opt(config)
	}
	if config.logger == nil {
		config.logger = defaultLogger()
	}
	if config.debug == DebugOff && os.Getenv("AKO_DEBUG_LEXER") != "" {
		config.debug = DebugPaths
	}

	lexer := &Lexer{
		telemetryMode: config.telemetry,
		debugLevel:    config.debug,
		logger:        config.logger,
	}

	// Only allocate telemetry structures when needed
	if config.telemetry > TelemetryOff {
		lexer.tokenTelemetry = make(map[TokenType]*TokenTelemetry)
	}
	if config.debug > DebugOff {
		lexer.debugEvents = make([]DebugEvent, 0, 256)
	}

	lexer.Init([]byte(input))
	return lexer
}

// Init resets the lexer with new input (following Go scanner pattern)
func (l *Lexer) Init(input []byte) {
	l.input = input
	l.position = 0
	l.line = 1
	l.column = 1
	l.afterNumber = false
	l.err = nil

	for k := range l.tokenTelemetry {
		delete(l.tokenTelemetry, k)
	}
	if l.debugEvents != nil {
		l.debugEvents = l.debugEvents[:0]
	}
}

// Tokenize lexes the whole of source. It returns the tokens ending in EOF,
// or the first LexError.
func Tokenize(source string, opts ...LexerOpt) ([]Token, error) {
	l := NewLexer(source, opts...)
	tokens := l.GetTokens()
	if err := l.Err(); err != nil {
		return nil, err
	}
	return tokens, nil
}

// Err returns the first error encountered, if any
func (l *Lexer) Err() error {
	return l.err
}

// GetTokenTelemetry returns per-token type telemetry (production safe)
func (l *Lexer) GetTokenTelemetry() map[TokenType]*TokenTelemetry {
	if l.telemetryMode == TelemetryOff || l.tokenTelemetry == nil {
		return nil
	}

	// Return a copy to prevent external modification
	result := make(map[TokenType]*TokenTelemetry, len(l.tokenTelemetry))
	for k, v := range l.tokenTelemetry {
		telemetryCopy := *v
		result[k] = &telemetryCopy
	}
	return result
}

// GetDebugEvents returns debug events (development only)
func (l *Lexer) GetDebugEvents() []DebugEvent {
	if l.debugLevel == DebugOff || l.debugEvents == nil {
		return nil
	}

	result := make([]DebugEvent, len(l.debugEvents))
	copy(result, l.debugEvents)
	return result
}

// NextToken returns the next token. After EOF it keeps returning EOF; after
// an error it returns ILLEGAL and Err reports the cause.
func (l *Lexer) NextToken() Token {
	var start time.Time
	if l.telemetryMode >= TelemetryTiming {
		start = time.Now()
	}

	token := l.lexToken()

	if l.telemetryMode > TelemetryOff {
		var elapsed time.Duration
		if l.telemetryMode >= TelemetryTiming {
			elapsed = time.Since(start)
		}
		l.recordTokenTelemetry(token.Type, elapsed)
	}

	return token
}

// GetTokens returns all remaining tokens, ending with EOF, or with ILLEGAL
// if lexing failed.
func (l *Lexer) GetTokens() []Token {
	var tokens []Token
	for {
		token := l.NextToken()
		tokens = append(tokens, token)
		if token.Type == EOF || token.Type == ILLEGAL {
			return tokens
		}
	}
}

// recordTokenTelemetry records per-token type telemetry (production safe)
func (l *Lexer) recordTokenTelemetry(tokenType TokenType, elapsed time.Duration) {
	telemetry, exists := l.tokenTelemetry[tokenType]
	if !exists {
		telemetry = &TokenTelemetry{
			Type:    tokenType,
			MinTime: elapsed,
			MaxTime: elapsed,
		}
		l.tokenTelemetry[tokenType] = telemetry
	}

	telemetry.Count++

	if l.telemetryMode >= TelemetryTiming {
		telemetry.TotalTime += elapsed
		telemetry.AvgTime = telemetry.TotalTime / time.Duration(telemetry.Count)
		if elapsed < telemetry.MinTime {
			telemetry.MinTime = elapsed
		}
		if elapsed > telemetry.MaxTime {
			telemetry.MaxTime = elapsed
		}
	}
}

// recordDebugEvent records debug events when debug tracing is enabled
func (l *Lexer) recordDebugEvent(event, context string) {
	if l.debugLevel == DebugOff {
		return
	}

	pos := l.pos()
	l.debugEvents = append(l.debugEvents, DebugEvent{
		Timestamp: time.Now(),
		Event:     event,
		Position:  pos,
		Context:   context,
	})
	l.logger.Debug("lexer", "event", event, "pos", pos.String(), "context", context)
}

func (l *Lexer) pos() Position {
	return Position{Line: l.line, Column: l.column, Offset: l.position}
}

// fail records the first error and returns the ILLEGAL token that ends the stream
func (l *Lexer) fail(at Position, ch rune, format string, args ...any) Token {
	if l.err == nil {
		l.err = &LexError{Position: at, Char: ch, Message: fmt.Sprintf(format, args...)}
		l.logger.Debug("lex error", "pos", at.String(), "err", l.err)
	}
	return Token{
		Type: ILLEGAL,
		Text: l.input[at.Offset:l.position],
		Span: Span{Start: at, End: l.pos()},
	}
}

// lexToken performs the actual tokenization work
func (l *Lexer) lexToken() Token {
	if l.err != nil {
		return Token{Type: ILLEGAL, Span: Span{Start: l.pos(), End: l.pos()}}
	}

	if l.debugLevel > DebugOff {
		l.recordDebugEvent("enter_lexToken", "")
	}

	if l.skipWhitespaceAndComments() {
		l.afterNumber = false
	}

	if l.position >= len(l.input) {
		pos := l.pos()
		return Token{Type: EOF, Span: Span{Start: pos, End: pos}}
	}

	start := l.pos()
	ch := l.input[l.position]
	if l.debugLevel >= DebugDetailed {
		l.recordDebugEvent("current_char", string(ch))
	}

	// Vector separator: only directly after a number, before another number
	if l.afterNumber && ch == 'x' && l.startsNumber(l.position+1) {
		l.advanceBytes(1)
		l.recordDebugEvent("vector_sep", "x")
		return l.token(VECTOR_SEP, start)
	}
	l.afterNumber = false

	if ch < 128 && isIdentStart[ch] {
		return l.lexIdentifier(start)
	}

	if ch < 128 && isDigit[ch] {
		return l.lexNumber(start)
	}

	switch ch {
	case '+', '-':
		if digitAt(l.input, l.position+1) {
			return l.lexNumber(start)
		}
		l.advanceBytes(1)
		tok := l.token(BOOL, start)
		tok.Bool = ch == '+'
		return tok
	case '"':
		return l.lexString(start)
	case ';':
		l.advanceBytes(1)
		return l.token(SEMICOLON, start)
	case '.':
		l.advanceBytes(1)
		return l.token(DOT, start)
	case '&':
		l.advanceBytes(1)
		return l.token(AND, start)
	case '[':
		if l.peekByte(1) == '[' {
			l.advanceBytes(2)
			return l.token(OPEN_ARRAY, start)
		}
		l.advanceBytes(1)
		return l.token(OPEN_TABLE, start)
	case ']':
		if l.peekByte(1) == ']' {
			l.advanceBytes(2)
			return l.token(CLOSE_ARRAY, start)
		}
		l.advanceBytes(1)
		return l.token(CLOSE_TABLE, start)
	}

	r, size := utf8.DecodeRune(l.input[l.position:])
	l.position += size
	l.column++
	return l.fail(start, r, "unexpected character")
}

// token builds a token spanning start to the current position
func (l *Lexer) token(t TokenType, start Position) Token {
	return Token{
		Type: t,
		Text: l.input[start.Offset:l.position],
		Span: Span{Start: start, End: l.pos()},
	}
}

func (l *Lexer) peekByte(ahead int) byte {
	if l.position+ahead < len(l.input) {
		return l.input[l.position+ahead]
	}
	return 0
}

// startsNumber reports whether a numeric literal begins at pos
func (l *Lexer) startsNumber(pos int) bool {
	if digitAt(l.input, pos) {
		return true
	}
	if pos < len(l.input) && (l.input[pos] == '+' || l.input[pos] == '-') {
		return digitAt(l.input, pos+1)
	}
	return false
}

// advanceBytes moves over n ASCII bytes that contain no newline
func (l *Lexer) advanceBytes(n int) {
	l.position += n
	l.column += n
}

// advanceRune moves over one character, tracking lines
func (l *Lexer) advanceRune() rune {
	r, size := utf8.DecodeRune(l.input[l.position:])
	l.position += size
	if r == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return r
}

// validRune reports whether the input at the current position starts with a
// well-formed UTF-8 sequence. An encoded U+FFFD is valid.
func (l *Lexer) validRune() bool {
	r, size := utf8.DecodeRune(l.input[l.position:])
	return r != utf8.RuneError || size > 1
}

// skipWhitespaceAndComments skips separators and `#` comments.
// Returns true if anything was skipped.
func (l *Lexer) skipWhitespaceAndComments() bool {
	start := l.position
	for l.position < len(l.input) {
		ch := l.input[l.position]
		switch {
		case ch == '\n':
			l.position++
			l.line++
			l.column = 1
		case ch < 128 && isWhitespace[ch]:
			l.position++
			l.column++
		case ch == '#':
			for l.position < len(l.input) && l.input[l.position] != '\n' {
				l.advanceRune()
			}
		default:
			return l.position > start
		}
	}
	return l.position > start
}

// lexIdentifier lexes [a-zA-Z_][a-zA-Z0-9_]*
func (l *Lexer) lexIdentifier(start Position) Token {
	if l.debugLevel > DebugOff {
		l.recordDebugEvent("enter_lexIdentifier", "")
	}

	for l.position < len(l.input) {
		ch := l.input[l.position]
		if ch >= 128 || !isIdentPart[ch] {
			break
		}
		l.advanceBytes(1)
	}

	tok := l.token(IDENTIFIER, start)
	tok.Str = string(tok.Text)
	return tok
}

// lexNumber lexes an optionally signed decimal INT or FLOAT.
// A float needs digits on both sides of the dot and may carry an f/F suffix.
func (l *Lexer) lexNumber(start Position) Token {
	if l.debugLevel > DebugOff {
		l.recordDebugEvent("enter_lexNumber", "")
	}

	if ch := l.input[l.position]; ch == '+' || ch == '-' {
		l.advanceBytes(1)
	}
	for digitAt(l.input, l.position) {
		l.advanceBytes(1)
	}

	isFloat := false
	if l.peekByte(0) == '.' && digitAt(l.input, l.position+1) {
		isFloat = true
		l.advanceBytes(1)
		for digitAt(l.input, l.position) {
			l.advanceBytes(1)
		}
	}

	literal := string(l.input[start.Offset:l.position])
	if isFloat && (l.peekByte(0) == 'f' || l.peekByte(0) == 'F') {
		l.advanceBytes(1)
	}

	l.afterNumber = true

	if isFloat {
		f, err := strconv.ParseFloat(literal, 32)
		if err != nil {
			return l.fail(start, utf8.RuneError, "invalid float literal %s", literal)
		}
		tok := l.token(FLOAT, start)
		tok.Float = float32(f)
		return tok
	}

	n, err := strconv.ParseInt(literal, 10, 64)
	if err != nil || n < math.MinInt32 || n > math.MaxInt32 {
		return l.fail(start, utf8.RuneError, "integer literal %s out of range", literal)
	}
	tok := l.token(INT, start)
	tok.Int = int32(n)
	return tok
}

// lexString lexes a double-quoted string, decoding escapes
func (l *Lexer) lexString(start Position) Token {
	if l.debugLevel > DebugOff {
		l.recordDebugEvent("enter_lexString", "")
	}

	l.advanceBytes(1) // opening quote

	var sb strings.Builder
	for l.position < len(l.input) {
		ch := l.input[l.position]
		switch ch {
		case '"':
			l.advanceBytes(1)
			tok := l.token(STRING, start)
			tok.Str = sb.String()
			return tok
		case '\\':
			l.advanceBytes(1)
			if l.position >= len(l.input) {
				break
			}
			if !l.validRune() {
				return l.fail(l.pos(), utf8.RuneError, "invalid UTF-8 in string")
			}
			switch esc := l.advanceRune(); esc {
			case 'n':
				sb.WriteByte('\n')
			default:
				// \" and \\ decode to themselves, as does any other escaped character
				sb.WriteRune(esc)
			}
		default:
			if !l.validRune() {
				return l.fail(l.pos(), utf8.RuneError, "invalid UTF-8 in string")
			}
			sb.WriteRune(l.advanceRune())
		}
	}

	return l.fail(start, utf8.RuneError, "unterminated string")
}
