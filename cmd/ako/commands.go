package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tuyuji/ako/core/value"
	"github.com/tuyuji/ako/runtime/export"
	"github.com/tuyuji/ako/runtime/layers"
	"github.com/tuyuji/ako/runtime/lexer"
	"github.com/tuyuji/ako/runtime/loader"
	"github.com/tuyuji/ako/runtime/serializer"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE...",
		Short: "Parse files and report syntax errors",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, file := range args {
				if _, err := a.parseFile(cmd, file); err != nil {
					a.report(cmd.ErrOrStderr(), err)
					failed++
					continue
				}
				printf(cmd.OutOrStdout(), "%s: ok\n", displayName(file))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed to parse", failed, len(args))
			}
			return nil
		},
	}
}

func newFmtCmd(a *app) *cobra.Command {
	var (
		write  bool
		indent string
	)

	cmd := &cobra.Command{
		Use:   "fmt FILE...",
		Short: "Rewrite files in canonical Ako layout",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sopts := []serializer.Opt{serializer.WithRegistry(a.registry), serializer.WithIndent(indent)}

			for _, file := range args {
				doc, err := a.parseFile(cmd, file)
				if err != nil {
					return err
				}

				if !write {
					if err := serializer.Write(cmd.OutOrStdout(), doc, sopts...); err != nil {
						return err
					}
					continue
				}
				if file == "-" {
					return errors.New("cannot write formatted output back to stdin")
				}
				opts := append(a.loaderOpts(), loader.WithSerializerOptions(sopts...))
				if err := loader.Save(file, doc, opts...); err != nil {
					return err
				}
				a.logger.Info("formatted", slog.String("path", file))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "Write the result back to the source file")
	cmd.Flags().StringVar(&indent, "indent", "\t", "Indentation unit for nested tables")
	return cmd
}

// loadLayers loads one layer per file; later files take priority
func (a *app) loadLayers(ctx context.Context, files []string) (*layers.Layers[int], []loader.Source[int], error) {
	labels := make([]int, len(files))
	sources := make([]loader.Source[int], len(files))
	for i, file := range files {
		labels[i] = i
		sources[i] = loader.Source[int]{Label: i, Path: file}
	}

	l := layers.New(labels...)
	if err := loader.LoadLayers(ctx, l, sources, a.loaderOpts()...); err != nil {
		return nil, nil, err
	}
	return l, sources, nil
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get PATH FILE...",
		Short: "Print the value at a dotted path, later files overriding earlier ones",
		Example: `  ako get window.size defaults.ako user.ako
  ako get players.0.name game.ako`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := value.SplitPath(args[0])

			l, sources, err := a.loadLayers(cmd.Context(), args[1:])
			if err != nil {
				return err
			}

			v, label, err := l.Resolve(path...)
			if errors.Is(err, layers.ErrNotFound) {
				// The merged view explains what is missing and suggests keys
				if _, lerr := l.Flatten().Lookup(path...); lerr != nil {
					return fmt.Errorf("%s: %w", args[0], lerr)
				}
			}
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			a.logger.Debug("value resolved",
				slog.String("path", args[0]),
				slog.String("file", sources[label].Path))

			text, err := serializer.SerializeValue(v, serializer.WithRegistry(a.registry))
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\n", text)
			return nil
		},
	}
}

func newMergeCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "merge FILE...",
		Short: "Merge files in order and print the effective document",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := export.ParseFormat(output)
			if err != nil {
				return err
			}
			l, _, err := a.loadLayers(cmd.Context(), args)
			if err != nil {
				return err
			}
			return export.Encode(cmd.OutOrStdout(), l.Flatten(), format, export.WithRegistry(a.registry))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "ako", "Output format: ako, json, yaml or cbor")
	return cmd
}

func newConvertCmd(a *app) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "convert [FILE]",
		Short: "Convert between Ako, JSON, YAML and CBOR",
		Long: `Convert a document between formats. FILE defaults to stdin; the input
format is taken from --from, else from the file extension, else Ako.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := "-"
			if len(args) == 1 {
				file = args[0]
			}

			inFormat := formatFromPath(file)
			if from != "" {
				f, err := export.ParseFormat(from)
				if err != nil {
					return err
				}
				inFormat = f
			}
			outFormat, err := export.ParseFormat(to)
			if err != nil {
				return err
			}

			var doc *value.Value
			if inFormat == export.FormatAko {
				doc, err = a.parseFile(cmd, file)
			} else {
				doc, err = a.decodeFile(cmd, file, inFormat)
			}
			if err != nil {
				return err
			}
			return export.Encode(cmd.OutOrStdout(), doc, outFormat, export.WithRegistry(a.registry))
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Input format: ako, json, yaml or cbor")
	cmd.Flags().StringVar(&to, "to", "json", "Output format: ako, json, yaml or cbor")
	return cmd
}

func (a *app) decodeFile(cmd *cobra.Command, file string, format export.Format) (*value.Value, error) {
	reader, closeFunc, err := getInputReader(cmd, file)
	if err != nil {
		return nil, err
	}
	defer func() { _ = closeFunc() }()

	doc, err := export.Decode(reader, format, export.WithRegistry(a.registry))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", displayName(file), err)
	}
	return doc, nil
}

func newHashCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "hash FILE...",
		Short: "Print the canonical digest of each document",
		Long: `Print a BLAKE2b digest of each document's canonical form. Formatting,
comments and key order do not change the digest.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, file := range args {
				doc, err := a.parseFile(cmd, file)
				if err != nil {
					return err
				}
				digest, err := doc.Digest()
				if err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "%s  %s\n", digest, displayName(file))
			}
			return nil
		},
	}
}

func newTokensCmd(a *app) *cobra.Command {
	var telemetry bool

	cmd := &cobra.Command{
		Use:   "tokens [FILE]",
		Short: "Print the token stream of a file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := "-"
			if len(args) == 1 {
				file = args[0]
			}
			src, err := a.readSource(cmd, file)
			if err != nil {
				return err
			}

			opts := []lexer.LexerOpt{lexer.WithLogger(a.logger)}
			if telemetry {
				opts = append(opts, lexer.WithTelemetryTiming())
			}
			lex := lexer.NewLexer(src, opts...)
			tokens := lex.GetTokens()
			if err := lex.Err(); err != nil {
				return fmt.Errorf("%s:%w", displayName(file), err)
			}

			out := cmd.OutOrStdout()
			for _, tok := range tokens {
				printf(out, "%-8s %-12s %q\n", tok.Pos(), tok.Type, tok.Text)
			}

			if telemetry {
				stats := lex.GetTokenTelemetry()
				types := make([]lexer.TokenType, 0, len(stats))
				for typ := range stats {
					types = append(types, typ)
				}
				slices.Sort(types)
				printf(out, "\n")
				for _, typ := range types {
					s := stats[typ]
					printf(out, "%-12s count=%d total=%s\n", typ, s.Count, s.TotalTime)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&telemetry, "telemetry", false, "Print per token type counts and timings")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	var (
		metricsAddr string
		debounce    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch FILE...",
		Short: "Reload layers when files change and report the effective digest",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, sources, err := a.loadLayers(cmd.Context(), args)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			opts := append(a.loaderOpts(),
				loader.WithDebounce(debounce),
				loader.WithMetrics(loader.NewMetrics(reg)))
			w := loader.NewWatcher(l, sources, opts...)
			changes := make(chan loader.Change[int], 16)
			w.Listen(changes)

			out := cmd.OutOrStdout()
			if err := printEffective(out, "loaded", l); err != nil {
				return err
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				return w.Run(ctx)
			})
			g.Go(func() error {
				for {
					select {
					case <-ctx.Done():
						return nil
					case change := <-changes:
						printf(out, "%s changed (%s)\n", sources[change.Label].Path, change.Digest)
						if err := printEffective(out, "effective", l); err != nil {
							return err
						}
					}
				}
			})

			if metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
				server := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

				g.Go(func() error {
					a.logger.Info("serving metrics", slog.String("addr", metricsAddr))
					if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
						return fmt.Errorf("metrics server: %w", err)
					}
					return nil
				})
				g.Go(func() error {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					return server.Shutdown(shutdownCtx)
				})
			}

			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().DurationVar(&debounce, "debounce", loader.DefaultDebounce, "Wait this long for file events to settle")
	return cmd
}

func printEffective(out io.Writer, what string, l *layers.Layers[int]) error {
	digest, err := l.Flatten().Digest()
	if err != nil {
		return err
	}
	printf(out, "%s %s\n", what, digest)
	return nil
}
