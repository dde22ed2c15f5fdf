package loader

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/singleflight"

	"github.com/tuyuji/ako/core/invariant"
	"github.com/tuyuji/ako/core/value"
	"github.com/tuyuji/ako/runtime/layers"
)

// Change is sent to listeners after a reload replaced a layer.
type Change[L cmp.Ordered] struct {
	Label  L
	Digest string // canonical digest of the new layer contents
}

// Watcher keeps layers in sync with the files that feed them.
//
// Each file change rebuilds the affected layer from all of its sources, in
// source order. A rebuild that fails leaves the previous layer in place; one
// that produces the same canonical contents is dropped without notifying.
type Watcher[L cmp.Ordered] struct {
	layers  *layers.Layers[L]
	sources []Source[L]
	opts    *options

	listenMu  sync.RWMutex
	listeners []chan<- Change[L]

	flight singleflight.Group

	readyOnce sync.Once
	ready     chan struct{}
}

// NewWatcher creates a watcher for sources feeding l. Call Run to start it.
func NewWatcher[L cmp.Ordered](l *layers.Layers[L], sources []Source[L], opts ...Option) *Watcher[L] {
	invariant.NotNil(l, "layers")
	invariant.Precondition(len(sources) > 0, "watcher needs at least one source")

	return &Watcher[L]{
		layers:  l,
		sources: slices.Clone(sources),
		opts:    newOptions(opts),
		ready:   make(chan struct{}),
	}
}

// Listen registers ch for change notifications. Sends never block: a
// listener whose channel is full misses that change.
func (w *Watcher[L]) Listen(ch chan<- Change[L]) {
	w.listenMu.Lock()
	defer w.listenMu.Unlock()
	w.listeners = append(w.listeners, ch)
}

// Ready is closed once Run has registered every watch.
func (w *Watcher[L]) Ready() <-chan struct{} {
	return w.ready
}

// Reload rebuilds the layer for label from its sources now. Concurrent
// calls for the same label share one rebuild.
func (w *Watcher[L]) Reload(ctx context.Context, label L) error {
	name := fmt.Sprint(label)
	_, err, _ := w.flight.Do(name, func() (any, error) {
		return nil, w.reload(ctx, label, name)
	})
	return err
}

func (w *Watcher[L]) reload(ctx context.Context, label L, name string) error {
	logger := w.opts.logger.With(slog.Any("label", label))
	start := time.Now()

	logger.Info("reloading layer", slog.String("event", "layer.reload_start"))

	result, digest, err := w.rebuild(ctx, label)
	w.opts.metrics.observe(name, result, time.Since(start).Seconds())

	switch result {
	case resultFailed:
		logger.Error("layer reload failed, keeping previous contents",
			slog.String("event", "layer.reload_failed"),
			slog.Any("err", err))
		return err
	case resultUnchanged:
		logger.Info("layer contents unchanged",
			slog.String("event", "layer.reload_unchanged"),
			slog.String("digest", digest))
		return nil
	}

	logger.Info("layer reloaded",
		slog.String("event", "layer.reload_success"),
		slog.String("digest", digest),
		slog.Duration("took", time.Since(start)))
	w.notify(Change[L]{Label: label, Digest: digest})
	return nil
}

func (w *Watcher[L]) rebuild(ctx context.Context, label L) (string, string, error) {
	var sources []Source[L]
	for _, src := range w.sources {
		if src.Label == label {
			sources = append(sources, src)
		}
	}
	if len(sources) == 0 {
		return resultFailed, "", fmt.Errorf("no source feeds layer %v", label)
	}

	current, err := w.layers.Layer(label)
	if err != nil {
		return resultFailed, "", err
	}

	docs, err := loadAll(ctx, w.opts, sources)
	if err != nil {
		return resultFailed, "", err
	}
	merged := value.EmptyTable()
	for i, doc := range docs {
		if err := value.Merge(merged, doc); err != nil {
			return resultFailed, "", fmt.Errorf("merge %s into layer %v: %w", sources[i].Path, label, err)
		}
	}

	next, err := merged.Hash()
	if err != nil {
		return resultFailed, "", err
	}
	digest := fmt.Sprintf("blake2b:%x", next)

	if prev, err := current.Hash(); err == nil && prev == next {
		return resultUnchanged, digest, nil
	}
	if err := w.layers.SetLayer(label, merged); err != nil {
		return resultFailed, "", err
	}
	return resultApplied, digest, nil
}

func (w *Watcher[L]) notify(change Change[L]) {
	w.listenMu.RLock()
	defer w.listenMu.RUnlock()

	for _, ch := range w.listeners {
		select {
		case ch <- change:
		default:
			w.opts.logger.Warn("listener channel full, change dropped",
				slog.String("event", "layer.listener_skip"),
				slog.Any("label", change.Label))
		}
	}
}

// Run watches the source files until ctx is cancelled. Bursts of events
// are coalesced for the debounce delay before the affected layers reload.
func (w *Watcher[L]) Run(ctx context.Context) error {
	targets := make(map[string][]L)
	dirs := make(map[string]struct{})
	for _, src := range w.sources {
		abs, err := filepath.Abs(src.Path)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", src.Path, err)
		}
		if !slices.Contains(targets[abs], src.Label) {
			targets[abs] = append(targets[abs], src.Label)
		}
		dirs[filepath.Dir(abs)] = struct{}{}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	// Directories rather than files, so editors that replace a file by
	// renaming over it keep being seen.
	for _, dir := range slices.Sorted(maps.Keys(dirs)) {
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	w.readyOnce.Do(func() { close(w.ready) })
	w.opts.logger.Info("watching layer sources",
		slog.String("event", "layer.watcher_started"),
		slog.Int("files", len(targets)))

	debounce := time.NewTimer(w.opts.debounce)
	debounce.Stop()
	defer debounce.Stop()
	pending := make(map[L]struct{})

	for {
		select {
		case <-ctx.Done():
			w.opts.logger.Info("layer watcher stopped", slog.String("event", "layer.watcher_stopped"))
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			labels, watched := targets[filepath.Clean(event.Name)]
			if !watched {
				continue
			}
			w.opts.logger.Debug("layer source changed",
				slog.String("event", "layer.file_changed"),
				slog.String("path", event.Name),
				slog.String("op", event.Op.String()))
			for _, label := range labels {
				pending[label] = struct{}{}
			}
			debounce.Reset(w.opts.debounce)

		case <-debounce.C:
			for _, label := range slices.Sorted(maps.Keys(pending)) {
				// Failures are logged and counted; the old layer stays
				_ = w.Reload(ctx, label)
			}
			clear(pending)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.opts.metrics.watchError()
			w.opts.logger.Error("file watcher error",
				slog.String("event", "layer.watcher_error"),
				slog.Any("err", err))
		}
	}
}
