// Package watch re-runs a callback when files under a directory change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last event before the
// callback runs.
const DefaultDebounce = 300 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	Root     string
	Debounce time.Duration

	// Match filters changed paths; nil accepts every file.
	Match func(path string) bool

	Logger *slog.Logger
}

// Func is called with the sorted, de-duplicated paths that changed since
// the previous call.
type Func func(ctx context.Context, changed []string) error

// Watcher watches a directory tree.
type Watcher struct {
	opts Options
	fsw  *fsnotify.Watcher
	log  *slog.Logger
}

// New creates a watcher and registers every directory below opts.Root.
// Events are recorded from the moment New returns.
func New(opts Options) (*Watcher, error) {
	if opts.Root == "" {
		opts.Root = "."
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch init failed: %w", err)
	}
	w := &Watcher{opts: opts, fsw: fsw, log: log.With("component", "watch")}
	if err := w.addRecursive(opts.Root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run delivers debounced change batches to fn until ctx is done. fn runs
// on the calling goroutine, so batches never overlap; an error from fn is
// logged and watching goes on.
func (w *Watcher) Run(ctx context.Context, fn Func) error {
	timer := time.NewTimer(w.opts.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	pending := map[string]struct{}{}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.handle(ev) {
				continue
			}
			pending[ev.Name] = struct{}{}
			timer.Reset(w.opts.Debounce)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)

			w.log.Info("change detected", "files", len(changed))
			if err := fn(ctx, changed); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.log.Error("re-run failed", "error", err)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// handle reports whether ev should trigger a run. New directories are
// added to the watch list.
func (w *Watcher) handle(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(ev.Name); err != nil {
				w.log.Warn("cannot watch new directory", "path", ev.Name, "error", err)
			}
			return false
		}
	}
	if w.opts.Match != nil && !w.opts.Match(ev.Name) {
		return false
	}
	return true
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// skipDir excludes hidden and dependency directories.
func skipDir(name string) bool {
	return name == "node_modules" || name == "vendor" || (len(name) > 1 && name[0] == '.')
}
