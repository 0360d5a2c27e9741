// Package registry holds the in-memory index of symbol names to the files
// that can define them.
package registry

import (
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/hbollon/go-edlib"

	"github.com/jward/emberls/internal/layout"
)

// Entry is one (type, name, path) triple.
type Entry struct {
	Type layout.SymbolType `json:"type" yaml:"type"`
	Name string            `json:"name" yaml:"name"`
	Path string            `json:"path" yaml:"path"`
}

type key struct {
	typ  layout.SymbolType
	name string
}

// Registry maps SymbolType → name → set(path). It is safe for concurrent
// use: one writer, many readers.
type Registry struct {
	mu      sync.RWMutex
	symbols map[layout.SymbolType]map[string]map[string]struct{}
	owners  map[string]key
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		symbols: make(map[layout.SymbolType]map[string]map[string]struct{}),
		owners:  make(map[string]key),
	}
}

// Add records paths as defining (t, name). A path already recorded under
// another symbol moves to this one.
func (r *Registry) Add(t layout.SymbolType, name string, paths ...string) {
	if name == "" || len(paths) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{t, name}
	for _, p := range paths {
		if prev, ok := r.owners[p]; ok && prev != k {
			r.removeLocked(prev, p)
		}
		names := r.symbols[t]
		if names == nil {
			names = make(map[string]map[string]struct{})
			r.symbols[t] = names
		}
		set := names[name]
		if set == nil {
			set = make(map[string]struct{})
			names[name] = set
		}
		set[p] = struct{}{}
		r.owners[p] = k
	}
}

// Remove drops paths from (t, name). Empty names and types are deleted so
// that an add followed by the matching remove leaves no trace.
func (r *Registry) Remove(t layout.SymbolType, name string, paths ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range paths {
		r.removeLocked(key{t, name}, p)
	}
}

// RemovePath drops a path from whichever symbol owns it.
func (r *Registry) RemovePath(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.owners[path]
	if ok {
		r.removeLocked(k, path)
	}
	return ok
}

func (r *Registry) removeLocked(k key, p string) {
	names := r.symbols[k.typ]
	set := names[k.name]
	if _, ok := set[p]; !ok {
		return
	}
	delete(set, p)
	if owner, ok := r.owners[p]; ok && owner == k {
		delete(r.owners, p)
	}
	if len(set) == 0 {
		delete(names, k.name)
	}
	if len(names) == 0 {
		delete(r.symbols, k.typ)
	}
}

// Lookup returns a copy of every name of type t with its sorted paths.
func (r *Registry) Lookup(t layout.SymbolType) map[string][]string {
	return r.LookupIn(t)
}

// LookupIn is Lookup restricted to paths under one of roots. With no roots
// every path is returned.
func (r *Registry) LookupIn(t layout.SymbolType, roots ...string) map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]string, len(r.symbols[t]))
	for name, set := range r.symbols[t] {
		var paths []string
		for p := range set {
			if underAny(p, roots) {
				paths = append(paths, p)
			}
		}
		if len(paths) == 0 {
			continue
		}
		sort.Strings(paths)
		out[name] = paths
	}
	return out
}

// PathsFor returns the sorted paths of one symbol.
func (r *Registry) PathsFor(t layout.SymbolType, name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.symbols[t][name]
	if len(set) == 0 {
		return nil
	}
	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Names returns the sorted names of type t.
func (r *Registry) Names(t layout.SymbolType) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.symbols[t]))
	for n := range r.symbols[t] {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Owner returns the symbol a path is recorded under.
func (r *Registry) Owner(path string) (layout.SymbolType, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.owners[path]
	return k.typ, k.name, ok
}

// Len returns the number of recorded paths.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.owners)
}

// Entries returns every triple ordered by type, name and path.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	out := make([]Entry, 0, len(r.owners))
	for p, k := range r.owners {
		out = append(out, Entry{Type: k.typ, Name: k.name, Path: p})
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b Entry) int {
		if c := strings.Compare(string(a.Type), string(b.Type)); c != 0 {
			return c
		}
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Path, b.Path)
	})
	return out
}

// minSimilarity is the Jaro-Winkler score a name needs to be suggested.
const minSimilarity = 0.7

// Suggest returns up to n names of type t similar to name, best first.
func (r *Registry) Suggest(t layout.SymbolType, name string, n int) []string {
	type scored struct {
		name  string
		score float32
	}
	var candidates []scored
	for _, other := range r.Names(t) {
		score, err := edlib.StringsSimilarity(name, other, edlib.JaroWinkler)
		if err != nil || score < minSimilarity {
			continue
		}
		candidates = append(candidates, scored{other, score})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if n > 0 && len(candidates) > n {
		candidates = candidates[:n]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.name
	}
	return out
}

func underAny(path string, roots []string) bool {
	if len(roots) == 0 {
		return true
	}
	for _, root := range roots {
		if Under(path, root) {
			return true
		}
	}
	return false
}

// Under reports whether path equals root or lives beneath it.
func Under(path, root string) bool {
	root = filepath.Clean(root)
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}
