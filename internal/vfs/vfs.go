// Package vfs is the filesystem collaborator used for existence checks,
// reads and project walks.
package vfs

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
)

// FS is the filesystem seen by the engine. Failures mean "does not exist".
type FS interface {
	Exists(path string) bool
	ReadFile(path string) ([]byte, error)
	// ListFiles returns absolute paths under root whose root-relative,
	// slash-separated path matches one of globs (all files when empty).
	ListFiles(ctx context.Context, root string, globs ...string) ([]string, error)
}

var skipDirs = map[string]struct{}{
	"node_modules":      {},
	"bower_components":  {},
	".git":              {},
	".hg":               {},
	".svn":              {},
	"tmp":               {},
	"dist":              {},
	".embroider":        {},
	"coverage":          {},
	"concat-stats-for":  {},
	"ember-try-scratch": {},
}

// OS reads the real filesystem. Walks honor the root's .gitignore.
type OS struct {
	mu      sync.Mutex
	ignores map[string]*ignore.GitIgnore
}

// NewOS returns an OS filesystem.
func NewOS() *OS {
	return &OS{ignores: make(map[string]*ignore.GitIgnore)}
}

// Exists implements FS.
func (o *OS) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ReadFile implements FS.
func (o *OS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// ListFiles implements FS.
func (o *OS) ListFiles(ctx context.Context, root string, globs ...string) ([]string, error) {
	root = filepath.Clean(root)
	gi := o.gitignore(root)

	var results []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		if !matchAny(rel, globs) {
			return nil
		}
		results = append(results, path)
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return results, err
	}
	sort.Strings(results)
	return results, nil
}

func (o *OS) gitignore(root string) *ignore.GitIgnore {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gi, ok := o.ignores[root]; ok {
		return gi
	}
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		gi = nil
	}
	o.ignores[root] = gi
	return gi
}

func matchAny(rel string, globs []string) bool {
	if len(globs) == 0 {
		return true
	}
	for _, g := range globs {
		if ok, err := doublestar.Match(g, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// Map is an in-memory FS keyed by absolute path.
type Map map[string]string

// Exists implements FS.
func (m Map) Exists(path string) bool {
	_, ok := m[filepath.Clean(path)]
	return ok
}

// ReadFile implements FS.
func (m Map) ReadFile(path string) ([]byte, error) {
	src, ok := m[filepath.Clean(path)]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return []byte(src), nil
}

// ListFiles implements FS.
func (m Map) ListFiles(ctx context.Context, root string, globs ...string) ([]string, error) {
	root = filepath.Clean(root)
	var out []string
	for p := range m {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		rel = filepath.ToSlash(rel)
		if skipped(rel) || !matchAny(rel, globs) {
			continue
		}
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

func skipped(rel string) bool {
	segs := strings.Split(rel, "/")
	for _, s := range segs[:len(segs)-1] {
		if _, ok := skipDirs[s]; ok {
			return true
		}
	}
	return false
}
