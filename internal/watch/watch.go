// Package watch rebuilds a target when its declarations change.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/targetbuilder/internal/catalog"
	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/targetbuilder/internal/logfields"
)

// DefaultDebounce collapses bursts of file events into one build.
const DefaultDebounce = 300 * time.Millisecond

// BuildFunc runs one build.
type BuildFunc func(ctx context.Context) error

// Watcher triggers builds on declaration changes. Builds never overlap: an
// event during a build schedules exactly one more build after it.
type Watcher struct {
	roots    []string
	files    map[string]bool
	build    BuildFunc
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	pending bool
	wg      sync.WaitGroup
}

// New returns a watcher over the declaration roots. files lists additional
// files, such as the project descriptor, that trigger a build.
func New(roots, files []string, build BuildFunc) *Watcher {
	w := &Watcher{
		roots:    roots,
		files:    map[string]bool{},
		build:    build,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, f := range files {
		w.files[filepath.Clean(f)] = true
	}
	return w
}

// WithDebounce overrides the debounce interval.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	if d > 0 {
		w.debounce = d
	}
	return w
}

// WithLogger replaces the watcher's logger.
func (w *Watcher) WithLogger(l *slog.Logger) *Watcher {
	if l != nil {
		w.logger = l
	}
	return w
}

// Run watches until ctx is cancelled, then waits for a running build.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create file watcher").Build()
	}
	defer func() { _ = fw.Close() }()

	for _, root := range w.roots {
		w.addTree(fw, root)
	}
	for f := range w.files {
		w.add(fw, filepath.Dir(f))
	}
	w.logger.Info("Watching declarations", logfields.Count(len(fw.WatchList())))

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
		w.wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					w.addTree(fw, event.Name)
					continue
				}
			}
			if !w.relevant(event.Name) {
				continue
			}
			w.logger.Debug("Declaration changed", logfields.Path(event.Name), slog.String("op", event.Op.String()))
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() { w.trigger(ctx) })
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("File watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) relevant(path string) bool {
	return catalog.IsDeclaration(path) || w.files[filepath.Clean(path)]
}

func (w *Watcher) addTree(fw *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			switch d.Name() {
			case "Binaries", "Intermediate", ".git":
				return filepath.SkipDir
			}
			w.add(fw, path)
		}
		return nil
	})
}

func (w *Watcher) add(fw *fsnotify.Watcher, dir string) {
	if err := fw.Add(dir); err != nil {
		w.logger.Debug("Skipping unwatchable directory", logfields.Path(dir), logfields.Error(err))
	}
}

// trigger starts a build, or marks one pending when a build is running.
func (w *Watcher) trigger(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.pending = true
		w.mu.Unlock()
		return
	}
	w.running = true
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		for {
			if ctx.Err() != nil {
				w.mu.Lock()
				w.running, w.pending = false, false
				w.mu.Unlock()
				return
			}
			if err := w.build(ctx); err != nil {
				w.logger.Error("Build failed", logfields.Error(err))
			}
			w.mu.Lock()
			if !w.pending {
				w.running = false
				w.mu.Unlock()
				return
			}
			w.pending = false
			w.mu.Unlock()
		}
	}()
}
