// Package project models one Ember project: its host root, composed
// addons, pod prefix, file versions and symbol registry.
package project

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jward/emberls/internal/cache"
	"github.com/jward/emberls/internal/layout"
	"github.com/jward/emberls/internal/registry"
	"github.com/jward/emberls/internal/script"
	"github.com/jward/emberls/internal/vfs"
)

// ErrNoProject is returned when a directory is not a project root or no
// loaded project contains a path.
var ErrNoProject = errors.New("project: no project")

// maxTrackedFiles bounds the files map; it is cleared when exceeded.
const maxTrackedFiles = 10000

// ChangeKind is a file event, numbered like editor file change types.
type ChangeKind int

const (
	Created ChangeKind = iota + 1
	Changed
	Deleted
)

func (c ChangeKind) String() string {
	switch c {
	case Created:
		return "created"
	case Changed:
		return "changed"
	case Deleted:
		return "deleted"
	}
	return "unknown"
}

type (
	// Watcher observes every tracked change, after the registry is updated.
	Watcher func(uri string, change ChangeKind)
	// Destructor runs when the project unloads.
	Destructor func(*Project)
	// Initializer runs during Init. A returned Destructor is kept for Unload.
	Initializer func(ctx context.Context, p *Project) (Destructor, error)
)

// Project is one host root plus its addons.
type Project struct {
	root      string
	name      string
	pkg       *Package
	addons    []AddonMeta
	podPrefix string
	muLayout  bool
	namespace bool

	fs        vfs.FS
	logger    *log.Logger
	registry  *registry.Registry
	matcher   *layout.Matcher
	memoLock  sync.Mutex
	memos     map[string]memo
	cacheOpts []cache.Option
	bypass    bool

	provider     AddonProvider
	builtin      []Initializer
	initializers []Initializer

	lock        sync.Mutex
	files       map[string]int
	watchers    []Watcher
	destructors []Destructor
	linters     []Linter
	executors   map[string]Executor
	initIssues  []error
}

// Option configures a Project.
type Option func(*Project)

// WithFS sets the filesystem. Defaults to the OS.
func WithFS(fsys vfs.FS) Option {
	return func(p *Project) { p.fs = fsys }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Project) { p.logger = l }
}

// WithAddonProvider replaces the package.json addon discovery.
func WithAddonProvider(ap AddonProvider) Option {
	return func(p *Project) { p.provider = ap }
}

// WithBuiltin adds an initializer that runs before the registry walk.
func WithBuiltin(fn Initializer) Option {
	return func(p *Project) { p.builtin = append(p.builtin, fn) }
}

// WithInitializer adds an initializer that runs after the registry walk.
func WithInitializer(fn Initializer) Option {
	return func(p *Project) { p.initializers = append(p.initializers, fn) }
}

// WithNamespaces forces addon-qualified component labels.
func WithNamespaces(on bool) Option {
	return func(p *Project) { p.namespace = p.namespace || on }
}

// WithCache sets the TTL and clock of every memo the project owns.
func WithCache(opts ...cache.Option) Option {
	return func(p *Project) { p.cacheOpts = append(p.cacheOpts, opts...) }
}

// WithListingBypass disables memoized directory listings. Set it when an
// external watcher keeps the registry fresh.
func WithListingBypass(on bool) Option {
	return func(p *Project) { p.bypass = on }
}

// New loads the project rooted at root. The directory must hold a
// package.json.
func New(ctx context.Context, root string, opts ...Option) (*Project, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	p := &Project{
		root:      root,
		podPrefix: layout.DefaultPodPrefix,
		registry:  registry.New(),
		files:     make(map[string]int),
		executors: make(map[string]Executor),
		memos:     make(map[string]memo),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.fs == nil {
		p.fs = vfs.NewOS()
	}
	if p.logger == nil {
		p.logger = log.Default()
	}
	if p.provider == nil {
		p.provider = PackageAddons{FS: p.fs, IncludeModules: true}
	}

	pkg, err := ReadPackage(p.fs, root)
	if err != nil {
		return nil, fmt.Errorf("%w at %s: %w", ErrNoProject, root, err)
	}
	p.pkg = pkg
	p.name = pkg.Name
	p.namespace = p.namespace || pkg.HasDependency(NamespacingAddon)

	addons, err := p.provider.Addons(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("project: addons for %s: %w", root, err)
	}
	for _, a := range addons {
		if filepath.Clean(a.Root) != root {
			p.addons = append(p.addons, a)
		}
	}

	p.podPrefix = p.detectPodPrefix(ctx)
	p.muLayout = p.detectModuleUnification(ctx)
	p.matcher = layout.NewMatcher(p.podPrefix, append([]string{root}, p.addonRoots()...)...)
	return p, nil
}

func (p *Project) detectPodPrefix(ctx context.Context) string {
	src, err := p.fs.ReadFile(filepath.Join(p.root, "config", "environment.js"))
	if err != nil {
		return layout.DefaultPodPrefix
	}
	raw, err := script.PodModulePrefix(ctx, src)
	if err != nil {
		p.logger.Warn("unable to read pod module prefix", "root", p.root, "err", err)
		return layout.DefaultPodPrefix
	}
	// "my-app/pods" lives at app/pods.
	_, suffix, ok := strings.Cut(raw, "/")
	if !ok || suffix == "" {
		return layout.DefaultPodPrefix
	}
	return layout.DefaultPodPrefix + "/" + suffix
}

func (p *Project) detectModuleUnification(ctx context.Context) bool {
	files, err := p.fs.ListFiles(ctx, filepath.Join(p.root, "src", "ui"))
	return err == nil && len(files) > 0
}

// Root returns the host root.
func (p *Project) Root() string { return p.root }

// Name returns the package name.
func (p *Project) Name() string { return p.name }

// Package returns the parsed package.json.
func (p *Project) Package() *Package { return p.pkg }

// PodPrefix returns the root-relative pod directory ("app" by default).
func (p *Project) PodPrefix() string { return p.podPrefix }

// IsModuleUnification reports whether the project uses the src/ layout.
func (p *Project) IsModuleUnification() bool { return p.muLayout }

// NamespacesEnabled reports whether addon-qualified labels are produced.
func (p *Project) NamespacesEnabled() bool { return p.namespace }

// Registry returns the project's symbol registry.
func (p *Project) Registry() *registry.Registry { return p.registry }

// FS returns the filesystem collaborator.
func (p *Project) FS() vfs.FS { return p.fs }

// Logger returns the project logger.
func (p *Project) Logger() *log.Logger { return p.logger }

// Listings returns the project's memo for directory listings.
func (p *Project) Listings() *cache.Memo[[]string] {
	m := Memo[[]string](p, "listings")
	m.SetBypass(p.bypass)
	return m
}

// Addons returns the addon metadata in discovery order.
func (p *Project) Addons() []AddonMeta {
	return append([]AddonMeta(nil), p.addons...)
}

// AddonInfos returns the layout view of Addons.
func (p *Project) AddonInfos() []layout.AddonInfo {
	out := make([]layout.AddonInfo, len(p.addons))
	for i, a := range p.addons {
		out[i] = a.Info()
	}
	return out
}

func (p *Project) addonRoots() []string {
	out := make([]string, len(p.addons))
	for i, a := range p.addons {
		out[i] = a.Root
	}
	return out
}

// Roots returns the host root and every addon root not already under an
// included root. Registry views are prefix based, so nested roots would
// count twice.
func (p *Project) Roots() []string {
	roots := []string{p.root}
	for _, r := range p.addonRoots() {
		nested := false
		for _, inc := range roots {
			if registry.Under(r, inc) {
				nested = true
				break
			}
		}
		if !nested {
			roots = append(roots, r)
		}
	}
	return roots
}

// Contains reports whether path lives under one of the project's roots.
func (p *Project) Contains(path string) bool {
	for _, r := range p.Roots() {
		if registry.Under(path, r) {
			return true
		}
	}
	return false
}

// MatchPathToType maps a file to the symbol it defines.
func (p *Project) MatchPathToType(path string) (layout.Match, bool) {
	return p.matcher.Match(path)
}

// PathFromURI converts a file:// URI or plain path to a clean absolute
// path.
func PathFromURI(uri string) (string, error) {
	if strings.HasPrefix(uri, "file://") {
		u, err := url.Parse(uri)
		if err != nil {
			return "", fmt.Errorf("project: parse uri %q: %w", uri, err)
		}
		return filepath.Clean(filepath.FromSlash(u.Path)), nil
	}
	if uri == "" {
		return "", fmt.Errorf("project: empty uri")
	}
	return filepath.Abs(uri)
}

// TrackChange applies a file event to the files map and registry, then
// notifies watchers in registration order.
func (p *Project) TrackChange(uri string, change ChangeKind) {
	path, err := PathFromURI(uri)
	if err != nil {
		p.logger.Warn("ignoring change", "uri", uri, "err", err)
		return
	}
	match, matched := p.MatchPathToType(path)

	p.lock.Lock()
	if len(p.files) > maxTrackedFiles {
		p.logger.Error("too many files tracked, resetting", "root", p.root)
		p.files = make(map[string]int)
	}
	if change == Deleted {
		delete(p.files, path)
		if matched {
			p.registry.Remove(match.Type, match.Name, path)
		}
	} else {
		if matched {
			p.registry.Add(match.Type, match.Name, path)
		}
		p.files[path]++
	}
	watchers := append([]Watcher(nil), p.watchers...)
	p.lock.Unlock()

	if change != Changed {
		p.invalidate(cache.RootKey(p.root))
	}
	for _, w := range watchers {
		w(uri, change)
	}
}

// FileVersion returns how many create/change events a file has seen.
func (p *Project) FileVersion(path string) (int, bool) {
	p.lock.Lock()
	defer p.lock.Unlock()
	v, ok := p.files[path]
	return v, ok
}

// AddWatcher registers a change observer.
func (p *Project) AddWatcher(w Watcher) {
	p.lock.Lock()
	p.watchers = append(p.watchers, w)
	p.lock.Unlock()
}

// AddDestructor registers a teardown callback.
func (p *Project) AddDestructor(d Destructor) {
	p.lock.Lock()
	p.destructors = append(p.destructors, d)
	p.lock.Unlock()
}

// InitIssues returns the errors recorded by initializers.
func (p *Project) InitIssues() []error {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]error(nil), p.initIssues...)
}

// Init runs builtin initializers, populates the registry with one walk
// each of the tests, app and addon trees, then runs the remaining
// initializers so they see a complete registry.
func (p *Project) Init(ctx context.Context) error {
	start := time.Now()
	p.runInitializers(ctx, p.builtin)
	if err := p.populate(ctx); err != nil {
		return err
	}
	p.runInitializers(ctx, p.initializers)
	p.logger.Debug("project initialized",
		"root", p.root, "symbols", p.registry.Len(), "addons", len(p.addons), "took", time.Since(start))
	return nil
}

func (p *Project) runInitializers(ctx context.Context, fns []Initializer) {
	for _, fn := range fns {
		d, err := p.safeInit(ctx, fn)
		if err != nil {
			p.logger.Error("initializer failed", "root", p.root, "err", err)
			p.lock.Lock()
			p.initIssues = append(p.initIssues, err)
			p.lock.Unlock()
			continue
		}
		if d != nil {
			p.AddDestructor(d)
		}
	}
}

func (p *Project) safeInit(ctx context.Context, fn Initializer) (d Destructor, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("project: initializer panic: %v", r)
		}
	}()
	return fn(ctx, p)
}

// Unload runs destructors, recovering from panics, and drops all state.
func (p *Project) Unload() {
	p.lock.Lock()
	destructors := p.destructors
	p.destructors = nil
	p.initIssues = nil
	p.watchers = nil
	p.linters = nil
	p.executors = make(map[string]Executor)
	p.files = make(map[string]int)
	p.lock.Unlock()

	for _, d := range destructors {
		func() {
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("destructor panic", "root", p.root, "panic", r)
				}
			}()
			d(p)
		}()
	}
	for _, e := range p.registry.Entries() {
		p.registry.RemovePath(e.Path)
	}
	p.purge()
	p.logger.Info("project unloaded", "root", p.root)
}
