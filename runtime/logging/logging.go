// Package logging builds the structured logger used by the ako command.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// EnvLevel names the environment variable consulted when no level is given
const EnvLevel = "AKO_LOG_LEVEL"

// Config selects where log records go.
type Config struct {
	Level  string    // debug, info, warn or error; falls back to AKO_LOG_LEVEL, then info
	File   string    // optional path receiving JSON records
	Stderr io.Writer // terminal output, os.Stderr when nil
}

// ParseLevel maps a level name to a slog.Level. Empty means info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", name)
	}
}

// New returns a logger writing text to the terminal and, when cfg.File is
// set, JSON lines to that file. Close the returned closer on exit.
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	name := cfg.Level
	if name == "" {
		name = os.Getenv(EnvLevel)
	}
	lvl, err := ParseLevel(name)
	if err != nil {
		return nil, nil, err
	}
	level := new(slog.LevelVar)
	level.Set(lvl)

	stderr := cfg.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(stderr, &slog.HandlerOptions{
			Level: level,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				// Terminal output is read by people; drop the timestamp
				if a.Key == slog.TimeKey && len(groups) == 0 {
					return slog.Attr{}
				}
				return a
			},
		}),
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
		closer = f
	}

	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
