package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	stdout string
	stderr string
	err    error
}

// runAko executes the CLI the way main does, reporting errors to stderr
func runAko(t *testing.T, stdin string, args ...string) result {
	t.Helper()

	a := &app{noColor: true}
	cmd := newRootCmd(a)
	var stdout, stderr bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.ExecuteContext(context.Background())
	a.close()
	if err != nil {
		a.report(&stderr, err)
	}
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.ako", "window.size 800x600\n")
	bad := writeFile(t, dir, "bad.ako", "window [\n\tsize 1x2x3x4x5\n]\n")

	res := runAko(t, "", "check", good)
	require.NoError(t, res.err)
	assert.Equal(t, good+": ok\n", res.stdout)

	res = runAko(t, "", "check", good, bad)
	require.Error(t, res.err)
	assert.Contains(t, res.stdout, good+": ok")
	assert.Contains(t, res.stderr, "error: ")
	assert.Contains(t, res.stderr, "--> "+bad+":2:")
	assert.Contains(t, res.stderr, " 2 | \tsize 1x2x3x4x5")
	assert.Contains(t, res.stderr, "1 of 2 files failed to parse")
}

func TestCheckStdinSnippet(t *testing.T) {
	res := runAko(t, "speed &flaot\n", "check", "-")
	require.Error(t, res.err)
	assert.Contains(t, res.stderr, "--> <stdin>:1:")
	assert.Contains(t, res.stderr, "help: did you mean &float?")
}

func TestFmt(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "game.ako", "window[size 800x600 title\"Ako\"]   +vsync\n")

	res := runAko(t, "", "fmt", path)
	require.NoError(t, res.err)
	assert.Equal(t, "window [\n\tsize 800x600\n\ttitle \"Ako\"\n]\nvsync +\n", res.stdout)

	res = runAko(t, "", "fmt", "--indent", "  ", "-w", path)
	require.NoError(t, res.err)
	assert.Empty(t, res.stdout)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "window [\n  size 800x600\n  title \"Ako\"\n]\nvsync +\n", string(data))
}

func TestFmtWriteStdin(t *testing.T) {
	res := runAko(t, "a 1", "fmt", "-w", "-")
	assert.ErrorContains(t, res.err, "stdin")
}

func TestGet(t *testing.T) {
	dir := t.TempDir()
	defaults := writeFile(t, dir, "defaults.ako", "window [ size 800x600 title \"Ako\" ]\nvolume 5\n")
	user := writeFile(t, dir, "user.ako", "window.size 1920x1080\n")

	tests := []struct {
		path string
		want string
	}{
		{"window.size", "1920x1080"},
		{"window.title", `"Ako"`},
		{"volume", "5"},
		{"window.size.0", "1920.0"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			res := runAko(t, "", "get", tt.path, defaults, user)
			require.NoError(t, res.err)
			assert.Equal(t, tt.want+"\n", res.stdout)
		})
	}
}

func TestGetMissingSuggestsKey(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.ako", "volume 5\n")

	res := runAko(t, "", "get", "volme", path)
	require.Error(t, res.err)
	assert.Contains(t, res.stderr, `"volme"`)
	assert.Contains(t, res.stderr, "volume")
}

func TestMerge(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.ako", "name \"base\"\nlist [[ 1 ]]\n")
	b := writeFile(t, dir, "b.ako", "name \"override\"\nlist [[ 2 ]]\n")

	res := runAko(t, "", "merge", "-o", "json", a, b)
	require.NoError(t, res.err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &got))
	assert.Equal(t, "override", got["name"])
	assert.Equal(t, []any{float64(1), float64(2)}, got["list"])

	res = runAko(t, "", "merge", a, b)
	require.NoError(t, res.err)
	assert.Equal(t, "name \"override\"\nlist 1x2\n", res.stdout)
}

func TestConvert(t *testing.T) {
	res := runAko(t, `{"player": {"name": "hero", "hp": 10}}`, "convert", "--from", "json", "--to", "ako")
	require.NoError(t, res.err)
	assert.Equal(t, "player [\n\tname \"hero\"\n\thp 10\n]\n", res.stdout)

	dir := t.TempDir()
	path := writeFile(t, dir, "doc.ako", "a 1\nb [[ \"x\" ]]\n")
	res = runAko(t, "", "convert", "--to", "yaml", path)
	require.NoError(t, res.err)
	assert.Equal(t, "a: 1\nb:\n  - x\n", res.stdout)

	jsonPath := writeFile(t, dir, "doc.json", `{"k": true}`)
	res = runAko(t, "", "convert", "--to", "ako", jsonPath)
	require.NoError(t, res.err)
	assert.Equal(t, "k +\n", res.stdout)

	res = runAko(t, "", "convert", "--to", "toml", path)
	assert.ErrorContains(t, res.err, `unsupported format "toml"`)
}

func TestHash(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.ako", "x 1\ny [ z + ]\n")
	b := writeFile(t, dir, "b.ako", "# same content, other layout\ny.z+ x 1")

	res := runAko(t, "", "hash", a, b)
	require.NoError(t, res.err)

	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.Len(t, lines, 2)
	digestA, _, _ := strings.Cut(lines[0], "  ")
	digestB, _, _ := strings.Cut(lines[1], "  ")
	assert.True(t, strings.HasPrefix(digestA, "blake2b:"))
	assert.Equal(t, digestA, digestB)
}

func TestTokens(t *testing.T) {
	res := runAko(t, "size 800x600", "tokens")
	require.NoError(t, res.err)

	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "IDENTIFIER")
	assert.Contains(t, lines[0], `"size"`)
	assert.Contains(t, lines[2], "VECTOR_SEP")
	assert.Contains(t, lines[4], "EOF")

	res = runAko(t, "s \"open", "tokens")
	require.Error(t, res.err)
	assert.Contains(t, res.stderr, "<stdin>:1:")
}

func TestTokensTelemetry(t *testing.T) {
	res := runAko(t, "a 1 b 2", "tokens", "--telemetry")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "count=2")
}

func TestWatchMissingFile(t *testing.T) {
	res := runAko(t, "", "watch", filepath.Join(t.TempDir(), "missing.ako"))
	require.Error(t, res.err)
	assert.Contains(t, res.stderr, "missing.ako")
}

func TestNoBuiltins(t *testing.T) {
	res := runAko(t, "t &int", "--no-builtins", "check", "-")
	require.Error(t, res.err)
	assert.Contains(t, res.stderr, `unknown short type "int"`)
}

func TestInvalidLogLevel(t *testing.T) {
	res := runAko(t, "a 1", "--log-level", "loud", "check", "-")
	assert.ErrorContains(t, res.err, "unknown log level")
}
