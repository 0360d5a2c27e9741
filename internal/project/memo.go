package project

import "github.com/jward/emberls/internal/cache"

type memo interface {
	Invalidate(prefix string)
	Purge()
}

// Memo returns the project-owned memo registered under name, creating it
// with the project's cache options on first use.
func Memo[V any](p *Project, name string) *cache.Memo[V] {
	p.memoLock.Lock()
	defer p.memoLock.Unlock()
	if m, ok := p.memos[name].(*cache.Memo[V]); ok {
		return m
	}
	m := cache.New[V](p.cacheOpts...)
	p.memos[name] = m
	return m
}

func (p *Project) invalidate(prefix string) {
	p.memoLock.Lock()
	defer p.memoLock.Unlock()
	for _, m := range p.memos {
		m.Invalidate(prefix)
	}
}

func (p *Project) purge() {
	p.memoLock.Lock()
	defer p.memoLock.Unlock()
	for _, m := range p.memos {
		m.Purge()
	}
}
