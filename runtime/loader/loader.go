// Package loader reads Ako files from disk into documents and layers, writes
// them back atomically and reloads layers when their files change.
package loader

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/google/renameio/v2"
	"golang.org/x/sync/errgroup"

	"github.com/tuyuji/ako/core/invariant"
	"github.com/tuyuji/ako/core/value"
	"github.com/tuyuji/ako/runtime/layers"
	"github.com/tuyuji/ako/runtime/parser"
	"github.com/tuyuji/ako/runtime/serializer"
)

// DefaultDebounce is how long the watcher waits for a burst of file events
// to settle before reloading
const DefaultDebounce = 500 * time.Millisecond

// Option configures loading, saving and watching
type Option func(*options)

type options struct {
	parserOpts     []parser.ParserOpt
	serializerOpts []serializer.Opt
	logger         *slog.Logger
	metrics        *Metrics
	debounce       time.Duration
	concurrency    int
}

func newOptions(opts []Option) *options {
	o := &options{
		debounce:    DefaultDebounce,
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// WithParserOptions passes options to every parse
func WithParserOptions(opts ...parser.ParserOpt) Option {
	return func(o *options) {
		o.parserOpts = append(o.parserOpts, opts...)
	}
}

// WithSerializerOptions passes options to Save
func WithSerializerOptions(opts ...serializer.Opt) Option {
	return func(o *options) {
		o.serializerOpts = append(o.serializerOpts, opts...)
	}
}

// WithLogger sets the structured logger (default slog.Default())
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics records watcher activity in m
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithDebounce sets the watcher's settle delay
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		o.debounce = d
	}
}

// WithConcurrency bounds how many files LoadLayers parses at once
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// Source binds a file to the layer it feeds.
type Source[L cmp.Ordered] struct {
	Label L
	Path  string
}

// LoadFile reads and parses one file.
func LoadFile(ctx context.Context, path string, opts ...Option) (*value.Value, error) {
	return newOptions(opts).load(ctx, path)
}

func (o *options) load(ctx context.Context, path string) (*value.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	popts := append([]parser.ParserOpt{parser.WithFilename(path)}, o.parserOpts...)
	doc, err := parser.Parse(string(data), popts...)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadLayers parses every source concurrently, then merges each document
// into its label's layer in source order. Merges run against copies of the
// affected layers, which replace the live ones only once every source has
// parsed and merged; on error no layer changes.
func LoadLayers[L cmp.Ordered](ctx context.Context, l *layers.Layers[L], sources []Source[L], opts ...Option) error {
	o := newOptions(opts)

	docs, err := loadAll(ctx, o, sources)
	if err != nil {
		return err
	}

	staged := make(map[L]*value.Value)
	for i, src := range sources {
		base, ok := staged[src.Label]
		if !ok {
			current, err := l.Layer(src.Label)
			if err != nil {
				return fmt.Errorf("merge %s into layer %v: %w", src.Path, src.Label, err)
			}
			base = current.Clone()
			staged[src.Label] = base
		}
		if err := value.Merge(base, docs[i]); err != nil {
			return fmt.Errorf("merge %s into layer %v: %w", src.Path, src.Label, err)
		}
		o.logger.Debug("layer source merged",
			slog.String("event", "layer.source_merged"),
			slog.String("path", src.Path),
			slog.Any("label", src.Label))
	}

	for _, label := range l.Labels() {
		if doc, ok := staged[label]; ok {
			// Staged documents are tables cloned from the layer, so this cannot fail
			invariant.ExpectNoError(l.SetLayer(label, doc), "commit staged layer")
		}
	}
	return nil
}

// loadAll parses sources concurrently; docs[i] belongs to sources[i].
func loadAll[L cmp.Ordered](ctx context.Context, o *options, sources []Source[L]) ([]*value.Value, error) {
	docs := make([]*value.Value, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	if o.concurrency > 0 {
		g.SetLimit(o.concurrency)
	}
	for i, src := range sources {
		g.Go(func() error {
			doc, err := o.load(gctx, src.Path)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

// Save serializes doc and atomically replaces the file at path. Readers see
// either the old contents or the new ones, never a partial write.
func Save(path string, doc *value.Value, opts ...Option) error {
	o := newOptions(opts)

	text, err := serializer.Serialize(doc, o.serializerOpts...)
	if err != nil {
		return err
	}

	pending, err := renameio.NewPendingFile(path, renameio.WithExistingPermissions())
	if err != nil {
		return fmt.Errorf("create pending file for %s: %w", path, err)
	}
	defer func() { _ = pending.Cleanup() }()

	if _, err := pending.WriteString(text); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}

	o.logger.Debug("document saved",
		slog.String("event", "document.saved"),
		slog.String("path", path),
		slog.Int("bytes", len(text)))
	return nil
}
