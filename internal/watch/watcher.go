// Package watch turns filesystem changes under the launcher directory into
// debounced restart requests.
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

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/axislauncher/internal/logfields"
)

// Config describes what to watch. Paths and Ignore are relative to Root
// unless absolute. A path may name a file or a directory (watched recursively).
// Ignore entries without a slash are matched against every path element;
// entries with a slash are doublestar globs over the Root-relative path
// (e.g. "public/**/*.map").
type Config struct {
	Root     string
	Paths    []string
	Ignore   []string
	Debounce time.Duration
}

// Watcher emits at most one pending restart request per quiet period.
type Watcher struct {
	fs       *fsnotify.Watcher
	root     string
	ignore   []string
	debounce time.Duration

	dirs  []string            // recursively watched roots
	files map[string]struct{} // individually watched files

	changes chan struct{}
	mu      sync.Mutex
	timer   *time.Timer
}

// New sets up fsnotify watches for cfg. Paths that do not exist are skipped with a warning.
func New(cfg Config) (*Watcher, error) {
	for _, pattern := range cfg.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid ignore pattern %q", pattern)
		}
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	w := &Watcher{
		fs:       fw,
		root:     filepath.Clean(cfg.Root),
		ignore:   append([]string(nil), cfg.Ignore...),
		debounce: cfg.Debounce,
		files:    map[string]struct{}{},
		changes:  make(chan struct{}, 1),
	}
	if w.debounce <= 0 {
		w.debounce = 300 * time.Millisecond
	}

	for _, p := range cfg.Paths {
		abs := p
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(cfg.Root, p)
		}
		abs = filepath.Clean(abs)
		fi, err := os.Stat(abs)
		if err != nil {
			slog.Warn("Watch path unavailable", logfields.Path(abs), logfields.Error(err))
			continue
		}
		if fi.IsDir() {
			w.dirs = append(w.dirs, abs)
			w.addDirsRecursive(abs)
			continue
		}
		// Watch the parent so editors that replace the file by rename keep working.
		if err := fw.Add(filepath.Dir(abs)); err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("watch %s: %w", abs, err)
		}
		w.files[abs] = struct{}{}
	}
	return w, nil
}

// Changes delivers debounced restart requests.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Run consumes filesystem events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", logfields.Error(err))
		}
	}
}

// Close stops the underlying watcher and any pending debounce timer.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fs.Close()
}

func (w *Watcher) handle(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if ev.Op == fsnotify.Chmod || !w.relevant(path) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(path); err == nil && fi.IsDir() {
			w.addDirsRecursive(path)
		}
	}
	slog.Debug("File change detected", logfields.Path(path), slog.String("op", ev.Op.String()))
	w.trigger()
}

func (w *Watcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case w.changes <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) relevant(path string) bool {
	if shouldIgnoreEvent(path) || w.ignored(path) {
		return false
	}
	if _, ok := w.files[path]; ok {
		return true
	}
	for _, d := range w.dirs {
		if path == d || strings.HasPrefix(path, d+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range w.ignore {
		if strings.Contains(pattern, "/") {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				return true
			}
			continue
		}
		for _, elem := range strings.Split(rel, "/") {
			if ok, _ := doublestar.Match(pattern, elem); ok {
				return true
			}
		}
	}
	return false
}

func (w *Watcher) addDirsRecursive(root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			slog.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

// shouldIgnoreEvent filters hidden, editor swap and OS metadata files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}
