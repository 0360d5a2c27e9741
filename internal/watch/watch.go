// Package watch observes a project tree with fsnotify and reports
// debounced file changes. Events inside the debounce window coalesce into
// one callback carrying the net change per path.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/jward/emberls/internal/project"
)

const defaultDebounce = 200 * time.Millisecond

// DefaultPatterns select the files that can change a registry or a
// project's shape.
var DefaultPatterns = []string{"**/*.{js,ts,hbs}", "package.json", "**/package.json", "config/environment.js"}

// defaultIgnores are never watched.
var defaultIgnores = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/tmp/**",
	"**/dist/**",
	"**/*.swp",
	"**/*~",
	"**/.DS_Store",
}

// Event is the net change of one path over a debounce window.
type Event struct {
	Path string             `json:"path" yaml:"path"`
	Kind project.ChangeKind `json:"kind" yaml:"kind"`
}

// Config holds the parameters for a Watcher.
type Config struct {
	// Root is the directory watched recursively.
	Root string
	// Patterns are doublestar globs relative to Root. Defaults to
	// DefaultPatterns.
	Patterns []string
	// Ignore adds to the built-in ignores.
	Ignore []string
	// Debounce is the quiet period before OnChange fires.
	Debounce time.Duration
	Logger   *log.Logger
	// OnChange receives the changes sorted by path. Calls never overlap.
	OnChange func(ctx context.Context, events []Event)
}

// Watcher reports debounced changes under a root. Run must be called once.
type Watcher struct {
	cfg      Config
	fsw      *fsnotify.Watcher
	root     string
	patterns []string
	ignores  []string
	debounce time.Duration
	logger   *log.Logger
	started  atomic.Bool
}

// New validates cfg and registers every non-ignored directory under Root.
func New(cfg Config) (*Watcher, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve root: %w", err)
	}
	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	ignores := append(append([]string(nil), defaultIgnores...), cfg.Ignore...)
	for _, pat := range append(append([]string(nil), patterns...), ignores...) {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("watch: invalid pattern %q", pat)
		}
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}
	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		root:     root,
		patterns: patterns,
		ignores:  ignores,
		debounce: debounce,
		logger:   logger,
	}
	if err := w.addDirectories(); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run processes events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return fmt.Errorf("watch: Run called more than once")
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]project.ChangeKind)
		timer   *time.Timer
		busy    atomic.Bool
		wg      sync.WaitGroup
	)

	fire := func() {
		defer wg.Done()
		if ctx.Err() != nil {
			return
		}
		if !busy.CompareAndSwap(false, true) {
			// Retry once the running callback is done.
			mu.Lock()
			if timer != nil {
				wg.Add(1)
				if timer.Reset(w.debounce) {
					wg.Done()
				}
			}
			mu.Unlock()
			return
		}
		defer busy.Store(false)

		mu.Lock()
		events := make([]Event, 0, len(pending))
		for path, kind := range pending {
			events = append(events, Event{Path: path, Kind: kind})
		}
		clear(pending)
		mu.Unlock()
		if len(events) == 0 {
			return
		}
		sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })

		w.logger.Debug("files changed", "root", w.root, "count", len(events))
		if w.cfg.OnChange != nil {
			w.cfg.OnChange(ctx, events)
		}
	}

	queue := func(path string, kind project.ChangeKind) {
		mu.Lock()
		defer mu.Unlock()
		if prev, seen := pending[path]; seen {
			kind = merge(prev, kind)
		}
		pending[path] = kind
		wg.Add(1)
		if timer == nil {
			timer = time.AfterFunc(w.debounce, fire)
		} else if timer.Reset(w.debounce) {
			// Still pending; the earlier Add covers it.
			wg.Done()
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil && timer.Stop() {
			wg.Done()
		}
		timer = nil
		mu.Unlock()
		wg.Wait()
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("closing watcher failed", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("watch: event channel closed")
			}
			if evt.Has(fsnotify.Create) {
				for _, path := range w.addTree(evt.Name) {
					queue(path, project.Created)
				}
			}
			kind, ok := changeKind(evt.Op)
			if !ok || !w.selected(evt.Name) {
				continue
			}
			queue(evt.Name, kind)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("watch: error channel closed")
			}
			w.logger.Warn("watcher error", "root", w.root, "err", err)
		}
	}
}

func changeKind(op fsnotify.Op) (project.ChangeKind, bool) {
	switch {
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return project.Deleted, true
	case op.Has(fsnotify.Create):
		return project.Created, true
	case op.Has(fsnotify.Write):
		return project.Changed, true
	}
	return 0, false
}

// merge folds next into the pending kind of a path.
func merge(prev, next project.ChangeKind) project.ChangeKind {
	switch {
	case next == project.Deleted:
		return project.Deleted
	case next == project.Created && prev == project.Deleted:
		return project.Changed
	case next == project.Changed && prev == project.Created:
		return project.Created
	}
	return next
}

// selected reports whether an absolute path matches a pattern and no
// ignore.
func (w *Watcher) selected(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	return !matchAny(w.ignores, rel) && matchAny(w.patterns, rel)
}

func (w *Watcher) ignoredDir(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return true
	}
	rel = filepath.ToSlash(rel)
	return rel != "." && (matchAny(w.ignores, rel) || matchAny(w.ignores, rel+"/"))
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func (w *Watcher) addDirectories() error {
	err := filepath.WalkDir(w.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			w.logger.Debug("skipping unreadable path", "path", path, "err", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignoredDir(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add directory %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: walk %s: %w", w.root, err)
	}
	return nil
}

// addTree extends the watch to a directory created after New and to every
// directory below it. A tree made in one step (mkdir -p, a checkout) can
// hold files before its watches exist, so the selected files already
// present are returned for reporting.
func (w *Watcher) addTree(dir string) []string {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() || w.ignoredDir(dir) {
		return nil
	}
	var files []string
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			if w.selected(path) {
				files = append(files, path)
			}
			return nil
		}
		if w.ignoredDir(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("unable to watch new directory", "path", path, "err", err)
		}
		return nil
	})
	return files
}
