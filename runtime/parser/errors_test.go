package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuyuji/ako/core/registry"
	"github.com/tuyuji/ako/core/value"
	"github.com/tuyuji/ako/runtime/lexer"
)

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantLine     int
		wantColumn   int
		wantMessage  string
		wantExpected []lexer.TokenType
	}{
		{
			name:         "missing_value_at_eof",
			input:        "a",
			wantLine:     1,
			wantColumn:   2,
			wantMessage:  `expected value, found end of input`,
			wantExpected: []lexer.TokenType{lexer.INT, lexer.FLOAT, lexer.STRING, lexer.AND, lexer.OPEN_TABLE, lexer.OPEN_ARRAY},
		},
		{
			name:        "close_bracket_as_value",
			input:       "a ]",
			wantLine:    1,
			wantColumn:  3,
			wantMessage: `expected value, found ']'`,
		},
		{
			name:         "close_bracket_as_key",
			input:        "a 1\n]",
			wantLine:     2,
			wantColumn:   1,
			wantMessage:  `expected key, found ']'`,
			wantExpected: []lexer.TokenType{lexer.IDENTIFIER, lexer.STRING},
		},
		{
			name:        "value_without_key",
			input:       "a 1 2",
			wantLine:    1,
			wantColumn:  5,
			wantMessage: "expected key, found a value",
		},
		{
			name:         "unclosed_table",
			input:        "a [ b 1",
			wantLine:     1,
			wantColumn:   8,
			wantMessage:  "missing closing ']'",
			wantExpected: []lexer.TokenType{lexer.CLOSE_TABLE},
		},
		{
			name:         "unclosed_array",
			input:        "a [[ 1 2",
			wantLine:     1,
			wantColumn:   9,
			wantMessage:  "missing closing ']]'",
			wantExpected: []lexer.TokenType{lexer.CLOSE_ARRAY},
		},
		{
			name:        "mismatched_close",
			input:       "a [[ 1 ]",
			wantLine:    1,
			wantColumn:  8,
			wantMessage: `expected value, found ']'`,
		},
		{
			name:         "trailing_after_root_array",
			input:        "[[ 1 ]] a 1",
			wantLine:     1,
			wantColumn:   9,
			wantMessage:  "unexpected IDENTIFIER after the document root",
			wantExpected: []lexer.TokenType{lexer.EOF},
		},
		{
			name:        "dangling_dot",
			input:       "a. 1",
			wantLine:    1,
			wantColumn:  4,
			wantMessage: "expected key, found a value",
		},
		{
			name:        "descend_through_scalar",
			input:       "a 1\na.b 2",
			wantLine:    2,
			wantColumn:  1,
			wantMessage: `cannot descend into "a": it holds a Int, not a table`,
		},
		{
			name:        "short_type_without_name",
			input:       "t & 1",
			wantLine:    1,
			wantColumn:  5,
			wantMessage: "expected type name after '&', found INT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)

			var pe *ParseError
			require.True(t, errors.As(err, &pe), "expected *ParseError, got %T", err)
			assert.Equal(t, tt.wantLine, pe.Position.Line, "line")
			assert.Equal(t, tt.wantColumn, pe.Position.Column, "column")
			assert.Equal(t, tt.wantMessage, pe.Message)
			if tt.wantExpected != nil {
				assert.Equal(t, tt.wantExpected, pe.Expected)
			}
		})
	}
}

func TestDescendErrorCarriesTypeMismatch(t *testing.T) {
	_, err := Parse("a \"s\" a.b 1")

	var tm *value.TypeMismatchError
	require.ErrorAs(t, err, &tm)
	assert.Equal(t, value.KindString, tm.Actual)
}

func TestUnclosedNoteShowsOpening(t *testing.T) {
	_, err := Parse("outer [\n  inner [[ 1\n")

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "'[[' opened at 2:9", pe.Note)
}

func TestVectorArity(t *testing.T) {
	for _, input := range []string{"1x2x3x4x5", "v 1x2x3x4x5", "v [[ 1x2x3x4x5x6 ]]"} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)

			var arity *VectorArityError
			require.ErrorAs(t, err, &arity)
			assert.Greater(t, arity.Count, 4)

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Contains(t, pe.Message, "at most 4")
		})
	}

	_, err := Parse("v 1x2x3x4")
	assert.NoError(t, err)
}

func TestUnknownShortType(t *testing.T) {
	reg := registry.NewWithBuiltins()

	_, err := Parse("speed &flaot", WithRegistry(reg), WithFilename("config.ako"))

	var unknown *registry.UnknownShortTypeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "flaot", unknown.Name)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "did you mean &float?", pe.Suggestion)
	assert.Equal(t, `config.ako:1:7: unknown short type "flaot" (in short type)`, pe.Error())

	_, err = Parse("x &nonexistent_short_type", WithRegistry(reg))
	require.ErrorAs(t, err, &unknown)
}

func TestShortTypeWithoutRegistry(t *testing.T) {
	_, err := Parse("kind &int")

	var unknown *registry.UnknownShortTypeError
	require.ErrorAs(t, err, &unknown)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "no type registry was configured", pe.Note)
}

func TestLexErrorsAreWrapped(t *testing.T) {
	_, err := Parse("a 1\nb @", WithFilename("bad.ako"))

	var lexErr *lexer.LexError
	require.ErrorAs(t, err, &lexErr)
	assert.Equal(t, '@', lexErr.Char)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, lexer.ILLEGAL, pe.Got)
	assert.Equal(t, `bad.ako:2:3: unexpected character '@'`, pe.Error())
}

func TestMaxDepth(t *testing.T) {
	deep := strings.Repeat("[[ ", 10) + strings.Repeat("]] ", 10)

	_, err := Parse(deep, WithMaxDepth(5))
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Message, "nested deeper than 5")

	_, err = Parse(deep, WithMaxDepth(10))
	assert.NoError(t, err)
}

func TestRender(t *testing.T) {
	source := "name \"ako\"\nspeed &flaot\n"
	_, err := Parse(source, WithRegistry(registry.NewWithBuiltins()), WithFilename("config.ako"))

	var pe *ParseError
	require.ErrorAs(t, err, &pe)

	want := strings.Join([]string{
		`error: unknown short type "flaot"`,
		"  --> config.ako:2:7",
		"   |",
		" 2 | speed &flaot",
		"   |       ^",
		"   = while parsing short type",
		"   = help: did you mean &float?",
		"",
	}, "\n")
	assert.Equal(t, want, pe.Render(source))
}

func TestRenderOutOfRangeLineOmitsSnippet(t *testing.T) {
	pe := &ParseError{Position: lexer.Position{Line: 9, Column: 1}, Message: "boom"}
	assert.Equal(t, "error: boom\n  --> 9:1\n", pe.Render("one line"))
}

func TestRenderExpectedTokens(t *testing.T) {
	source := "list [[ 1 2"
	_, err := Parse(source)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Render(source), "   = expected ']]', found end of input\n")
}
