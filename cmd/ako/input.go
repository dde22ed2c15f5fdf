package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tuyuji/ako/core/value"
	"github.com/tuyuji/ako/runtime/export"
	"github.com/tuyuji/ako/runtime/loader"
	"github.com/tuyuji/ako/runtime/parser"
)

const stdinName = "<stdin>"

// getInputReader opens file, or stdin when file is "-"
func getInputReader(cmd *cobra.Command, file string) (io.Reader, func() error, error) {
	if file == "-" {
		return cmd.InOrStdin(), func() error { return nil }, nil
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening file %s: %w", file, err)
	}
	return f, f.Close, nil
}

func (a *app) readSource(cmd *cobra.Command, file string) (string, error) {
	reader, closeFunc, err := getInputReader(cmd, file)
	if err != nil {
		return "", err
	}
	defer func() { _ = closeFunc() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", displayName(file), err)
	}
	if file == "-" {
		a.stdin = string(data)
	}
	return string(data), nil
}

func (a *app) parserOpts(file string) []parser.ParserOpt {
	return []parser.ParserOpt{
		parser.WithFilename(displayName(file)),
		parser.WithRegistry(a.registry),
		parser.WithLogger(a.logger),
	}
}

// parseFile reads and parses file ("-" for stdin)
func (a *app) parseFile(cmd *cobra.Command, file string) (*value.Value, error) {
	src, err := a.readSource(cmd, file)
	if err != nil {
		return nil, err
	}
	return parser.Parse(src, a.parserOpts(file)...)
}

func (a *app) loaderOpts() []loader.Option {
	return []loader.Option{
		loader.WithLogger(a.logger),
		loader.WithParserOptions(parser.WithRegistry(a.registry), parser.WithLogger(a.logger)),
	}
}

func displayName(file string) string {
	if file == "-" {
		return stdinName
	}
	return file
}

// formatFromPath guesses a format from the file extension, Ako otherwise
func formatFromPath(file string) export.Format {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".json":
		return export.FormatJSON
	case ".yaml", ".yml":
		return export.FormatYAML
	case ".cbor":
		return export.FormatCBOR
	default:
		return export.FormatAko
	}
}
