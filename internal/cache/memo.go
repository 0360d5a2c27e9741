// Package cache provides a time-boxed memo for directory listings and
// context lookups.
package cache

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// DefaultTTL is how long a memoized value stays fresh.
const DefaultTTL = 60 * time.Second

type entry[V any] struct {
	value   V
	expires time.Time
}

// Memo caches computed values by key for a fixed freshness window. The
// clock is injected so expiry is testable.
type Memo[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	bypass  bool
	entries map[string]entry[V]
}

// Option configures a Memo.
type Option func(*options)

type options struct {
	ttl time.Duration
	now func() time.Time
}

// WithTTL sets the freshness window.
func WithTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.ttl = d
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// New returns an empty memo.
func New[V any](opts ...Option) *Memo[V] {
	o := options{ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Memo[V]{ttl: o.ttl, now: o.now, entries: make(map[string]entry[V])}
}

// SetBypass makes Get always recompute. Callers set it when an external
// watcher keeps the underlying data fresh.
func (m *Memo[V]) SetBypass(bypass bool) {
	m.mu.Lock()
	m.bypass = bypass
	m.mu.Unlock()
}

// Get returns the cached value for key, computing and storing it when
// missing or stale. Errors are not cached.
func (m *Memo[V]) Get(key string, compute func() (V, error)) (V, error) {
	m.mu.Lock()
	if !m.bypass {
		if e, ok := m.entries[key]; ok && m.now().Before(e.expires) {
			m.mu.Unlock()
			return e.value, nil
		}
	}
	bypass := m.bypass
	m.mu.Unlock()

	v, err := compute()
	if err != nil || bypass {
		return v, err
	}

	m.mu.Lock()
	m.entries[key] = entry[V]{value: v, expires: m.now().Add(m.ttl)}
	m.mu.Unlock()
	return v, nil
}

// Invalidate drops every key starting with prefix.
func (m *Memo[V]) Invalidate(prefix string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
}

// Purge drops every entry, fresh or not.
func (m *Memo[V]) Purge() {
	m.mu.Lock()
	m.entries = make(map[string]entry[V])
	m.mu.Unlock()
}

// Len returns the number of stored entries, including stale ones.
func (m *Memo[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// RootKey keys a listing computed from a root alone.
func RootKey(root string) string {
	return root + "\x00"
}

// ContentKey keys a lookup that depends on a document's content. The
// content is hashed so keys stay small.
func ContentKey(root, uri, content string) string {
	return RootKey(root) + uri + "\x00" + strconv.FormatUint(xxhash.Sum64String(content), 16)
}
