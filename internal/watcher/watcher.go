// Package watcher signals when a single input file changes on disk.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long the file must stay quiet before a change is
// signalled. Default: 500ms.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// Watcher watches the directory holding path, since editors and exporters
// often replace a file instead of writing it in place, and filters events
// down to path itself.
type Watcher struct {
	fs       *fsnotify.Watcher
	path     string
	debounce time.Duration
}

// New creates a Watcher for path. The file does not need to exist yet.
func New(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}
	w := &Watcher{fs: fs, path: abs, debounce: defaultDebounce}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watch starts monitoring. A burst of writes produces one signal once the
// file has been quiet for the debounce window. Signals coalesce: if the
// consumer is still busy with the previous one, a single pending signal is
// kept. The channel closes when ctx is done or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context) (<-chan struct{}, error) {
	if err := w.fs.Add(filepath.Dir(w.path)); err != nil {
		return nil, fmt.Errorf("watcher: watch %s: %w", filepath.Dir(w.path), err)
	}

	changes := make(chan struct{}, 1)
	go func() {
		defer close(changes)

		timer := time.NewTimer(w.debounce)
		timer.Stop()
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.fs.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != w.path {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				slog.Debug("input file event", "path", event.Name, "op", event.Op.String())
				timer.Reset(w.debounce)
			case <-timer.C:
				select {
				case changes <- struct{}{}:
				default:
				}
			case err, ok := <-w.fs.Errors:
				if !ok {
					return
				}
				slog.Warn("file watcher error", "path", w.path, "error", err)
			}
		}
	}()
	return changes, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
