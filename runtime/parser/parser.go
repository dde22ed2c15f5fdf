// Package parser builds Ako documents from source text.
//
// Grammar:
//
//	document  := '[[' arrayBody ']]' EOF | '[' tableBody ']' EOF | tableBody EOF
//	tableBody := element*
//	element   := (BOOL | ';') dottedKey | dottedKey (BOOL | ';' | value)
//	dottedKey := segment ('.' segment)*          segment := IDENTIFIER | STRING
//	value     := INT | FLOAT | vector | STRING | '&' IDENTIFIER ('.' IDENTIFIER)*
//	           | '[' tableBody ']' | '[[' arrayBody ']]'
//	arrayBody := (value | BOOL | ';')*
//	vector    := number ('x' number){1,3}
package parser

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tuyuji/ako/core/invariant"
	"github.com/tuyuji/ako/core/registry"
	"github.com/tuyuji/ako/core/value"
	"github.com/tuyuji/ako/runtime/lexer"
)

// Document is a parse result together with its telemetry
type Document struct {
	Root        *value.Value
	Tokens      []lexer.Token
	Telemetry   *ParseTelemetry // nil unless telemetry is enabled
	DebugEvents []DebugEvent    // nil unless debug tracing is enabled
}

// Parse parses source into a document tree whose root is a Table or an Array.
func Parse(source string, opts ...ParserOpt) (*value.Value, error) {
	doc, err := ParseDocument([]byte(source), opts...)
	if err != nil {
		return nil, err
	}
	return doc.Root, nil
}

// ParseDocument parses source and returns the tree with tokens, telemetry
// and debug events.
func ParseDocument(source []byte, opts ...ParserOpt) (*Document, error) {
	config := newConfig(opts)

	var startTotal, startLex time.Time
	if config.telemetry >= TelemetryTiming {
		startTotal = time.Now()
		startLex = startTotal
	}

	lex := lexer.NewLexer("", config.lexerOpts()...)
	lex.Init(source)
	tokens := lex.GetTokens()
	if err := lex.Err(); err != nil {
		return nil, lexFailure(config, err)
	}

	var lexTime time.Duration
	if config.telemetry >= TelemetryTiming {
		lexTime = time.Since(startLex)
	}

	doc, err := parseTokens(tokens, config)
	if err != nil {
		return nil, err
	}

	if doc.Telemetry != nil && config.telemetry >= TelemetryTiming {
		doc.Telemetry.LexTime = lexTime
		doc.Telemetry.TotalTime = time.Since(startTotal)
	}
	return doc, nil
}

// ParseTokens parses pre-lexed tokens. A slice that does not end with EOF,
// such as a stream cut short by a lexer error, is reported as a ParseError.
func ParseTokens(tokens []lexer.Token, opts ...ParserOpt) (*value.Value, error) {
	config := newConfig(opts)
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != lexer.EOF {
		pe := &ParseError{
			Filename: config.filename,
			Position: lexer.Position{Line: 1, Column: 1},
			Message:  "token stream does not end with end of input",
			Expected: []lexer.TokenType{lexer.EOF},
			Got:      lexer.EOF,
		}
		if n := len(tokens); n > 0 {
			last := tokens[n-1]
			pe.Position = last.Span.Start
			pe.Got = last.Type
		}
		return nil, pe
	}

	doc, err := parseTokens(tokens, config)
	if err != nil {
		return nil, err
	}
	return doc.Root, nil
}

// ParseInto parses source and merges the result into existing.
func ParseInto(existing *value.Value, source string, opts ...ParserOpt) error {
	invariant.NotNil(existing, "existing document")

	parsed, err := Parse(source, opts...)
	if err != nil {
		return err
	}
	return value.Merge(existing, parsed)
}

func lexFailure(config *ParserConfig, err error) *ParseError {
	pe := &ParseError{
		Filename: config.filename,
		Message:  err.Error(),
		Got:      lexer.ILLEGAL,
		Cause:    err,
	}
	var lexErr *lexer.LexError
	if errors.As(err, &lexErr) {
		pe.Position = lexErr.Position
		pe.Message = lexErr.Message
		if lexErr.Char != utf8.RuneError {
			pe.Message = fmt.Sprintf("%s %q", lexErr.Message, lexErr.Char)
		}
	}
	return pe
}

func parseTokens(tokens []lexer.Token, config *ParserConfig) (*Document, error) {
	invariant.Precondition(len(tokens) > 0 && tokens[len(tokens)-1].Type == lexer.EOF,
		"token stream must end with EOF")

	p := &parser{
		tokens: tokens,
		config: config,
	}
	if config.debug > DebugOff {
		p.debugEvents = make([]DebugEvent, 0, 64)
	}

	var startParse time.Time
	if config.telemetry >= TelemetryTiming {
		startParse = time.Now()
	}

	root, err := p.document()
	if err != nil {
		return nil, err
	}
	invariant.Postcondition(root.IsContainer(), "document root must be a table or array")

	doc := &Document{
		Root:        root,
		Tokens:      tokens,
		DebugEvents: p.debugEvents,
	}
	if config.telemetry >= TelemetryBasic {
		doc.Telemetry = &ParseTelemetry{
			TokenCount: len(tokens),
			ValueCount: p.values,
			MaxDepth:   p.maxDepth,
		}
		if config.telemetry >= TelemetryTiming {
			doc.Telemetry.ParseTime = time.Since(startParse)
			doc.Telemetry.TotalTime = doc.Telemetry.ParseTime
		}
	}
	return doc, nil
}

type parser struct {
	tokens []lexer.Token
	pos    int
	config *ParserConfig

	depth    int
	maxDepth int
	values   int

	debugEvents []DebugEvent
}

// recordDebugEvent records debug events when debug tracing is enabled
func (p *parser) recordDebugEvent(event, context string) {
	if p.config.debug == DebugOff {
		return
	}

	p.debugEvents = append(p.debugEvents, DebugEvent{
		Timestamp: time.Now(),
		Event:     event,
		TokenPos:  p.pos,
		Context:   context,
	})
	if p.config.logger != nil {
		p.config.logger.Debug("parser", "event", event, "token", p.pos, "context", context)
	}
}

// document parses the root of a source file
func (p *parser) document() (*value.Value, error) {
	if p.config.debug > DebugOff {
		p.recordDebugEvent("enter_document", "")
	}

	var root *value.Value
	switch {
	case p.at(lexer.OPEN_ARRAY):
		arr, err := p.array()
		if err != nil {
			return nil, err
		}
		root = arr
	case p.at(lexer.OPEN_TABLE):
		tbl, err := p.table()
		if err != nil {
			return nil, err
		}
		root = tbl
	default:
		root = p.newValue(value.EmptyTable())
		tbl, _ := root.AsTable()
		if err := p.tableBody(tbl, lexer.EOF, lexer.Token{}); err != nil {
			return nil, err
		}
	}

	if !p.at(lexer.EOF) {
		return nil, p.errorf(p.current(), "document", []lexer.TokenType{lexer.EOF},
			"unexpected %s after the document root", tokenName(p.current().Type))
	}
	return root, nil
}

// tableBody parses elements into tbl until closer
func (p *parser) tableBody(tbl *value.Table, closer lexer.TokenType, opened lexer.Token) error {
	for !p.at(closer) {
		if p.at(lexer.EOF) {
			return p.unclosed(opened, "table", closer)
		}
		prev := p.pos
		if err := p.element(tbl); err != nil {
			return err
		}
		invariant.Invariant(p.pos > prev, "element must consume at least one token")
	}
	return nil
}

// element parses one key binding
func (p *parser) element(tbl *value.Table) error {
	if p.config.debug > DebugOff {
		p.recordDebugEvent("enter_element", p.current().Type.String())
	}

	// Prefix form: +key, -key, ;key
	var prefix *value.Value
	switch tok := p.current(); tok.Type {
	case lexer.BOOL:
		prefix = value.Bool(tok.Bool)
		p.advance()
	case lexer.SEMICOLON:
		prefix = value.Null()
		p.advance()
	}

	keyTok := p.current()
	segments, err := p.dottedKey()
	if err != nil {
		return err
	}

	target, err := p.navigate(tbl, segments[:len(segments)-1], keyTok)
	if err != nil {
		return err
	}
	key := segments[len(segments)-1]

	if prefix != nil {
		target.Set(key, p.newValue(prefix))
		return nil
	}

	var v *value.Value
	switch tok := p.current(); tok.Type {
	case lexer.BOOL:
		v = p.newValue(value.Bool(tok.Bool))
		p.advance()
	case lexer.SEMICOLON:
		v = p.newValue(value.Null())
		p.advance()
	default:
		v, err = p.value(fmt.Sprintf("value of %q", strings.Join(segments, ".")))
		if err != nil {
			return err
		}
	}

	target.Set(key, v)
	return nil
}

// dottedKey parses segment ('.' segment)*
func (p *parser) dottedKey() ([]string, error) {
	var segments []string
	for {
		tok := p.current()
		switch tok.Type {
		case lexer.IDENTIFIER, lexer.STRING:
			segments = append(segments, tok.Str)
			p.advance()
		default:
			return nil, p.keyExpected(tok)
		}

		if !p.at(lexer.DOT) {
			return segments, nil
		}
		p.advance()
	}
}

// keyExpected reports a missing key. A value in key position is parsed
// first so malformed values report their own, more specific error.
func (p *parser) keyExpected(tok lexer.Token) error {
	expected := []lexer.TokenType{lexer.IDENTIFIER, lexer.STRING}
	if tok.IsNumber() || tok.Type == lexer.OPEN_ARRAY || tok.Type == lexer.OPEN_TABLE || tok.Type == lexer.AND {
		save := p.pos
		if _, err := p.value("value"); err != nil {
			return err
		}
		p.pos = save
		err := p.errorf(tok, "key", expected, "expected key, found a value")
		err.Suggestion = "every value needs a key in a table, e.g. `name 42`"
		return err
	}
	return p.errorf(tok, "key", expected, "expected key, found %s", tokenName(tok.Type))
}

// navigate walks (creating) nested tables along path
func (p *parser) navigate(tbl *value.Table, path []string, at lexer.Token) (*value.Table, error) {
	for i, seg := range path {
		child, ok := tbl.Get(seg)
		if !ok {
			child = p.newValue(value.EmptyTable())
			tbl.Set(seg, child)
		}
		next, err := child.AsTable()
		if err != nil {
			pe := p.errorf(at, "dotted key", nil,
				"cannot descend into %q: it holds a %s, not a table", strings.Join(path[:i+1], "."), child.Kind())
			pe.Cause = err
			return nil, pe
		}
		tbl = next
	}
	return tbl, nil
}

// value parses any value that can follow a key or sit in an array
func (p *parser) value(context string) (*value.Value, error) {
	tok := p.current()
	switch tok.Type {
	case lexer.INT, lexer.FLOAT:
		if p.peek(1).Type == lexer.VECTOR_SEP {
			return p.vector()
		}
		p.advance()
		if tok.Type == lexer.INT {
			return p.newValue(value.Int(tok.Int)), nil
		}
		return p.newValue(value.Float(tok.Float)), nil
	case lexer.STRING:
		p.advance()
		return p.newValue(value.String(tok.Str)), nil
	case lexer.AND:
		return p.shortType()
	case lexer.OPEN_TABLE:
		return p.table()
	case lexer.OPEN_ARRAY:
		return p.array()
	default:
		expected := []lexer.TokenType{lexer.INT, lexer.FLOAT, lexer.STRING, lexer.AND, lexer.OPEN_TABLE, lexer.OPEN_ARRAY}
		return nil, p.errorf(tok, context, expected, "expected value, found %s", tokenName(tok.Type))
	}
}

// vector parses number ('x' number)+
func (p *parser) vector() (*value.Value, error) {
	if p.config.debug > DebugOff {
		p.recordDebugEvent("enter_vector", "")
	}

	start := p.current()
	components := []float32{numberOf(start)}
	p.advance()

	for p.at(lexer.VECTOR_SEP) {
		p.advance()
		tok := p.current()
		if !tok.IsNumber() {
			return nil, p.errorf(tok, "vector", []lexer.TokenType{lexer.INT, lexer.FLOAT},
				"expected vector component, found %s", tokenName(tok.Type))
		}
		components = append(components, numberOf(tok))
		p.advance()
	}

	if len(components) > value.MaxVectorLen {
		arity := &VectorArityError{Position: start.Pos(), Count: len(components)}
		pe := p.errorf(start, "vector", nil, "%s", arity.Error())
		pe.Suggestion = "use an array for more components, e.g. [[ 1 2 3 4 5 ]]"
		pe.Cause = arity
		return nil, pe
	}
	return p.newValue(value.Vector(components...)), nil
}

func numberOf(tok lexer.Token) float32 {
	if tok.Type == lexer.INT {
		return float32(tok.Int)
	}
	return tok.Float
}

// shortType parses '&' IDENTIFIER ('.' IDENTIFIER)* and resolves it
func (p *parser) shortType() (*value.Value, error) {
	amp := p.current()
	p.advance()

	var parts []string
	for {
		tok := p.current()
		if tok.Type != lexer.IDENTIFIER {
			return nil, p.errorf(tok, "short type", []lexer.TokenType{lexer.IDENTIFIER},
				"expected type name after %s, found %s", tokenName(lexer.AND), tokenName(tok.Type))
		}
		parts = append(parts, tok.Str)
		p.advance()

		if !p.at(lexer.DOT) || p.peek(1).Type != lexer.IDENTIFIER {
			break
		}
		p.advance()
	}
	name := strings.Join(parts, ".")

	if p.config.registry == nil {
		cause := &registry.UnknownShortTypeError{Name: name}
		pe := p.errorf(amp, "short type", nil, "%s", cause.Error())
		pe.Note = "no type registry was configured"
		pe.Cause = cause
		return nil, pe
	}

	handle, err := p.config.registry.Resolve(name)
	if err != nil {
		pe := p.errorf(amp, "short type", nil, "%s", err.Error())
		var unknown *registry.UnknownShortTypeError
		if errors.As(err, &unknown) && unknown.Suggestion != "" {
			pe.Suggestion = fmt.Sprintf("did you mean &%s?", unknown.Suggestion)
			pe.Message = fmt.Sprintf("unknown short type %q", name)
		}
		pe.Cause = err
		return nil, pe
	}
	return p.newValue(value.Short(name, handle)), nil
}

// table parses '[' tableBody ']'
func (p *parser) table() (*value.Value, error) {
	open := p.current()
	p.advance()
	if err := p.enter(open); err != nil {
		return nil, err
	}
	defer p.leave()

	v := p.newValue(value.EmptyTable())
	tbl, _ := v.AsTable()
	if err := p.tableBody(tbl, lexer.CLOSE_TABLE, open); err != nil {
		return nil, err
	}
	p.advance() // ]
	return v, nil
}

// array parses '[[' arrayBody ']]'
func (p *parser) array() (*value.Value, error) {
	if p.config.debug > DebugOff {
		p.recordDebugEvent("enter_array", "")
	}

	open := p.current()
	p.advance()
	if err := p.enter(open); err != nil {
		return nil, err
	}
	defer p.leave()

	var elems []*value.Value
	for !p.at(lexer.CLOSE_ARRAY) {
		tok := p.current()
		switch tok.Type {
		case lexer.EOF:
			return nil, p.unclosed(open, "array", lexer.CLOSE_ARRAY)
		case lexer.BOOL:
			elems = append(elems, p.newValue(value.Bool(tok.Bool)))
			p.advance()
		case lexer.SEMICOLON:
			elems = append(elems, p.newValue(value.Null()))
			p.advance()
		default:
			v, err := p.value("array")
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
		}
	}
	p.advance() // ]]

	return p.newValue(value.Array(elems...)), nil
}

// enter tracks container nesting
func (p *parser) enter(open lexer.Token) error {
	p.depth++
	if p.depth > p.maxDepth {
		p.maxDepth = p.depth
	}
	if p.config.maxDepth > 0 && p.depth > p.config.maxDepth {
		return p.errorf(open, "", nil, "containers nested deeper than %d levels", p.config.maxDepth)
	}
	return nil
}

func (p *parser) leave() {
	p.depth--
}

func (p *parser) newValue(v *value.Value) *value.Value {
	p.values++
	return v
}

// at reports whether the current token has type typ
func (p *parser) at(typ lexer.TokenType) bool {
	return p.current().Type == typ
}

// current returns the current token
func (p *parser) current() lexer.Token {
	return p.peek(0)
}

// peek returns the token ahead positions after the current one
func (p *parser) peek(ahead int) lexer.Token {
	if p.pos+ahead >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+ahead]
}

// advance moves to the next token
func (p *parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
}

func (p *parser) errorf(at lexer.Token, context string, expected []lexer.TokenType, format string, args ...any) *ParseError {
	return &ParseError{
		Filename: p.config.filename,
		Position: at.Pos(),
		Message:  fmt.Sprintf(format, args...),
		Context:  context,
		Expected: expected,
		Got:      at.Type,
	}
}

// unclosed reports a container that reached end of input
func (p *parser) unclosed(open lexer.Token, context string, closer lexer.TokenType) *ParseError {
	pe := p.errorf(p.current(), context, []lexer.TokenType{closer}, "missing closing %s", tokenName(closer))
	if open.Type != lexer.EOF {
		pe.Note = fmt.Sprintf("%s opened at %s", tokenName(open.Type), open.Pos())
	}
	return pe
}
