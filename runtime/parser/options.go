package parser

import (
	"log/slog"
	"time"

	"github.com/tuyuji/ako/core/registry"
	"github.com/tuyuji/ako/runtime/lexer"
)

// ParserOpt represents a parser configuration option
type ParserOpt func(*ParserConfig)

// TelemetryMode controls telemetry collection (production-safe)
type TelemetryMode int

const (
	TelemetryOff    TelemetryMode = iota // Zero overhead (default)
	TelemetryBasic                       // Token and node counts only
	TelemetryTiming                      // Counts + lex/parse timing
)

// DebugLevel controls debug tracing (development only)
type DebugLevel int

const (
	DebugOff      DebugLevel = iota // No debug info (default)
	DebugPaths                      // Method call tracing
	DebugDetailed                   // Token-level tracing
)

// DefaultMaxDepth bounds container nesting
const DefaultMaxDepth = 512

// ParserConfig holds parser configuration
type ParserConfig struct {
	telemetry TelemetryMode
	debug     DebugLevel
	registry  *registry.Registry
	filename  string
	maxDepth  int
	logger    *slog.Logger
}

func newConfig(opts []ParserOpt) *ParserConfig {
	config := &ParserConfig{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(config)
	}
	return config
}

// lexerOpts forwards the relevant settings to the lexer
func (c *ParserConfig) lexerOpts() []lexer.LexerOpt {
	var opts []lexer.LexerOpt
	if c.logger != nil {
		opts = append(opts, lexer.WithLogger(c.logger))
	}
	if c.debug >= DebugDetailed {
		opts = append(opts, lexer.WithDebugDetailed())
	}
	return opts
}

// WithRegistry sets the registry used to resolve `&name` short types.
// Without one every short type literal is rejected.
func WithRegistry(r *registry.Registry) ParserOpt {
	return func(c *ParserConfig) {
		c.registry = r
	}
}

// WithFilename sets the file name reported in errors
func WithFilename(name string) ParserOpt {
	return func(c *ParserConfig) {
		c.filename = name
	}
}

// WithMaxDepth limits how deeply tables and arrays may nest
func WithMaxDepth(depth int) ParserOpt {
	return func(c *ParserConfig) {
		c.maxDepth = depth
	}
}

// WithLogger routes debug output of the parser and its lexer to logger
func WithLogger(logger *slog.Logger) ParserOpt {
	return func(c *ParserConfig) {
		c.logger = logger
	}
}

// WithTelemetryBasic enables basic telemetry (counts only)
func WithTelemetryBasic() ParserOpt {
	return func(c *ParserConfig) {
		c.telemetry = TelemetryBasic
	}
}

// WithTelemetryTiming enables timing telemetry (counts + timing per phase)
func WithTelemetryTiming() ParserOpt {
	return func(c *ParserConfig) {
		c.telemetry = TelemetryTiming
	}
}

// WithDebugPaths enables debug path tracing (development only)
func WithDebugPaths() ParserOpt {
	return func(c *ParserConfig) {
		c.debug = DebugPaths
	}
}

// WithDebugDetailed enables detailed debug tracing (development only)
func WithDebugDetailed() ParserOpt {
	return func(c *ParserConfig) {
		c.debug = DebugDetailed
	}
}

// ParseTelemetry holds parser performance metrics (production-safe)
type ParseTelemetry struct {
	LexTime    time.Duration // Time spent lexing
	ParseTime  time.Duration // Time spent parsing
	TotalTime  time.Duration // Total parse time
	TokenCount int           // Number of tokens
	ValueCount int           // Number of values built
	MaxDepth   int           // Deepest container nesting seen
}

// DebugEvent holds debug tracing information (development only)
type DebugEvent struct {
	Timestamp time.Time
	Event     string // "enter_element", "enter_vector", etc.
	TokenPos  int    // Current token position
	Context   string // Additional context
}
