// Package watch turns a hot folder into a stream of debounced file paths.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a path must stay quiet before it is handled.
const DefaultDebounce = 500 * time.Millisecond

// Handler is called once per settled file.
type Handler func(ctx context.Context, path string) error

// Watcher calls a Handler for files created or rewritten in one directory.
type Watcher struct {
	dir      string
	handle   Handler
	accept   func(path string) bool
	debounce time.Duration
	log      *slog.Logger
	fsw      *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer
	running sync.WaitGroup
}

type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithFilter replaces AcceptPNG.
func WithFilter(accept func(path string) bool) Option {
	return func(w *Watcher) { w.accept = accept }
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// New starts watching dir. Events are delivered once Run is called.
func New(dir string, handle Handler, opts ...Option) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch folder %s: %w", dir, err)
	}

	w := &Watcher{
		dir:      dir,
		handle:   handle,
		accept:   AcceptPNG,
		debounce: DefaultDebounce,
		log:      slog.Default(),
		fsw:      fsw,
		pending:  make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run processes events until ctx is done, then waits for handlers in flight.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	w.log.InfoContext(ctx, "watching folder", "dir", w.dir, "debounce", w.debounce)

	for {
		select {
		case <-ctx.Done():
			w.stopPending()
			w.running.Wait()
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				w.running.Wait()
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.accept(event.Name) {
				continue
			}
			w.schedule(ctx, event.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				w.running.Wait()
				return nil
			}
			w.log.WarnContext(ctx, "watcher error", "error", err)
		}
	}
}

func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok && timer.Stop() {
		w.running.Done()
	}
	w.running.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(w.debounce, func() {
		defer w.running.Done()
		w.mu.Lock()
		if w.pending[path] == timer {
			delete(w.pending, path)
		}
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		if err := w.handle(ctx, path); err != nil {
			w.log.WarnContext(ctx, "handling file failed", "path", path, "error", err)
		}
	})
	w.pending[path] = timer
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		if timer.Stop() {
			w.running.Done()
		}
		delete(w.pending, path)
	}
}

// AcceptPNG takes visible .png files that are not stickerkit output.
func AcceptPNG(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	lower := strings.ToLower(base)
	return strings.HasSuffix(lower, ".png") && !strings.HasSuffix(lower, "_sticker.png")
}
