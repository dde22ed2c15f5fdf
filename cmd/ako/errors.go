package main

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/tuyuji/ako/runtime/parser"
)

// report writes err for a person to read. Parse errors get a source
// snippet when the source can still be found.
func (a *app) report(w io.Writer, err error) {
	if err == nil {
		return
	}
	useColor := a.useColor(w)

	var perr *parser.ParseError
	if errors.As(err, &perr) {
		if src, ok := a.sourceOf(perr.Filename); ok {
			writeSnippet(w, perr.Render(src), useColor)
			return
		}
	}
	printf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Error())
}

func (a *app) sourceOf(filename string) (string, bool) {
	switch filename {
	case "":
		return "", false
	case stdinName:
		return a.stdin, true
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// writeSnippet colors the headline and help lines of a rendered parse error
func writeSnippet(w io.Writer, rendered string, useColor bool) {
	for _, line := range strings.SplitAfter(rendered, "\n") {
		switch {
		case strings.HasPrefix(line, "error:"):
			line = Colorize("error:", ColorRed, useColor) + strings.TrimPrefix(line, "error:")
		case strings.HasPrefix(line, "   = help:"):
			line = Colorize(line, ColorYellow, useColor)
		case strings.HasPrefix(line, "   = note:"):
			line = Colorize(line, ColorGray, useColor)
		}
		_, _ = io.WriteString(w, line)
	}
}
