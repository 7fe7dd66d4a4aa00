// Package watch resets collection caches when another process rewrites an
// overlay stored in a filesystem directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"shelterdb/internal/core"
)

// DefaultDebounce coalesces the burst of events a single overlay write causes.
const DefaultDebounce = 250 * time.Millisecond

// Target resolves the collection persisted under an overlay key.
// *core.Catalog satisfies it.
type Target interface {
	ByOverlayKey(key string) (core.Collection, bool)
}

// Stats counts watcher activity.
type Stats struct {
	Events    int
	Resets    int
	Errors    int
	LastKey   string
	LastReset time.Time
}

// Watcher watches one overlay directory. Each file in it is named after the
// overlay key it holds; sidecar and temp files are ignored.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	dir      string
	target   Target
	log      core.Logger
	debounce time.Duration
	pending  map[string]time.Time
	stats    Stats
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger; the default discards output.
func WithLogger(l core.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// WithDebounce sets how long a key must stay quiet before its cache resets.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher for dir. Nothing is watched until Start.
func New(dir string, target Target, opts ...Option) (*Watcher, error) {
	if target == nil {
		return nil, errors.New("watch: nil target")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	w := &Watcher{
		watcher:  fw,
		dir:      dir,
		target:   target,
		log:      core.NopLogger{},
		debounce: DefaultDebounce,
		pending:  make(map[string]time.Time),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string { return w.dir }

// Start creates the directory if needed and begins watching it in the
// background. Calling Start twice is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	err := os.MkdirAll(w.dir, 0o755)
	if err == nil {
		err = w.watcher.Add(w.dir)
	}
	if err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.log.Info("watching overlay directory", "dir", w.dir)
	go w.run(ctx)
	return nil
}

// Stop ends the watch loop and releases the inotify handle.
func (w *Watcher) Stop() {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}
	if err := w.watcher.Close(); err != nil {
		w.log.Error("closing watcher", "error", err)
	}
}

// Stats returns a snapshot of the counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := time.NewTicker(w.debounce / 4)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("watch error", "dir", w.dir, "error", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
		case now := <-tick.C:
			w.flush(now)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	key := overlayKey(event.Name)
	if key == "" {
		return
	}
	if _, ok := w.target.ByOverlayKey(key); !ok {
		return
	}
	w.mu.Lock()
	w.pending[key] = time.Now()
	w.stats.Events++
	w.mu.Unlock()
}

func (w *Watcher) flush(now time.Time) {
	var due []string
	w.mu.Lock()
	for key, last := range w.pending {
		if now.Sub(last) >= w.debounce {
			due = append(due, key)
			delete(w.pending, key)
		}
	}
	w.mu.Unlock()

	for _, key := range due {
		col, ok := w.target.ByOverlayKey(key)
		if !ok {
			continue
		}
		col.ResetCache()
		w.log.Info("overlay changed on disk, cache reset", "collection", string(col.Name()), "key", key)
		w.mu.Lock()
		w.stats.Resets++
		w.stats.LastKey = key
		w.stats.LastReset = now
		w.mu.Unlock()
	}
}

// overlayKey maps a path in the watched directory to the key it stores, or
// "" for sidecars and temp files.
func overlayKey(path string) string {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, ".meta") {
		return ""
	}
	return base
}
