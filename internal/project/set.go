package project

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/jward/emberls/internal/registry"
)

// Set holds the loaded projects keyed by host root.
type Set struct {
	mu       sync.RWMutex
	projects map[string]*Project
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{projects: make(map[string]*Project)}
}

// Add stores p, returning the project it replaced, if any.
func (s *Set) Add(p *Project) *Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.projects[p.Root()]
	s.projects[p.Root()] = p
	return prev
}

// Remove drops the project rooted at root.
func (s *Set) Remove(root string) (*Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	root = filepath.Clean(root)
	p, ok := s.projects[root]
	delete(s.projects, root)
	return p, ok
}

// Get returns the project rooted exactly at root.
func (s *Set) Get(root string) (*Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[filepath.Clean(root)]
	return p, ok
}

// All returns the projects ordered by root.
func (s *Set) All() []*Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Root() < out[j].Root() })
	return out
}

// ForPath returns the project whose host root most closely contains path,
// falling back to a project that composes an addon containing it.
func (s *Set) ForPath(path string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *Project
	for root, p := range s.projects {
		if registry.Under(path, root) && (best == nil || len(root) > len(best.Root())) {
			best = p
		}
	}
	if best != nil {
		return best, nil
	}
	for _, p := range s.projects {
		if p.Contains(path) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w for %s", ErrNoProject, path)
}

// ForURI is ForPath for an editor URI.
func (s *Set) ForURI(uri string) (*Project, error) {
	path, err := PathFromURI(uri)
	if err != nil {
		return nil, err
	}
	return s.ForPath(path)
}
