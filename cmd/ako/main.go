package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tuyuji/ako/core/registry"
	"github.com/tuyuji/ako/runtime/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	a := &app{}
	err := newRootCmd(a).ExecuteContext(ctx)
	a.close()
	stop()

	if err != nil {
		a.report(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries the state shared by every subcommand
type app struct {
	logLevel   string
	logFile    string
	noColor    bool
	noBuiltins bool

	logger   *slog.Logger
	logClose io.Closer
	registry *registry.Registry

	stdin string // source read from "-", kept for error snippets
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ako",
		Short:         "Check, format, query and convert Ako configuration files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error (default $"+logging.EnvLevel+" or info)")
	rootCmd.PersistentFlags().StringVar(&a.logFile, "log-file", "", "Also write JSON log records to this file")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&a.noBuiltins, "no-builtins", false, "Do not register the builtin short types (&int, &float, ...)")

	rootCmd.AddCommand(
		newCheckCmd(a),
		newFmtCmd(a),
		newGetCmd(a),
		newMergeCmd(a),
		newConvertCmd(a),
		newHashCmd(a),
		newTokensCmd(a),
		newWatchCmd(a),
	)
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	logger, closer, err := logging.New(logging.Config{
		Level:  a.logLevel,
		File:   a.logFile,
		Stderr: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	a.logger = logger
	a.logClose = closer

	if a.noBuiltins {
		a.registry = registry.New()
	} else {
		a.registry = registry.NewWithBuiltins()
	}
	return nil
}

func (a *app) close() {
	if a.logClose != nil {
		_ = a.logClose.Close()
		a.logClose = nil
	}
}

// useColor reports whether w should receive ANSI colors
func (a *app) useColor(w io.Writer) bool {
	if a.noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
