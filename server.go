package emberls

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/jward/emberls/internal/cache"
	"github.com/jward/emberls/internal/config"
	"github.com/jward/emberls/internal/project"
	"github.com/jward/emberls/internal/resolve"
	"github.com/jward/emberls/internal/runtime"
	"github.com/jward/emberls/internal/store"
	"github.com/jward/emberls/internal/vfs"
)

// ErrIgnoredProject is returned by AddProject for packages listed in
// ignored_projects.
var ErrIgnoredProject = errors.New("emberls: project is ignored")

// RegistryCommand is the project command that returns the registry
// entries.
const RegistryCommand = "els.registry"

// Server owns the loaded projects and answers requests against them.
type Server struct {
	cfg       *config.Config
	logger    *log.Logger
	fs        vfs.FS
	scriptsFS fs.FS
	projects  *project.Set
	engine    *resolve.Engine
	runtime   *runtime.Runtime

	initializers []project.Initializer

	mu    sync.Mutex
	inits map[string]*lazyInit
}

// lazyInit defers a project's registry walk to its first request.
type lazyInit struct {
	once sync.Once
	err  error
}

// Option configures a Server.
type Option func(*Server)

// WithConfig sets the configuration. Defaults to config.Default().
func WithConfig(cfg *config.Config) Option {
	return func(s *Server) { s.cfg = cfg }
}

// WithLogger sets the logger. By default the server logs to stderr at the
// configured log_level.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithFS sets the filesystem projects are read from. Defaults to the OS.
func WithFS(fsys vfs.FS) Option {
	return func(s *Server) { s.fs = fsys }
}

// WithScriptsFS makes addon scripts import their modules from fsys
// instead of from the directory the script lives in.
func WithScriptsFS(fsys fs.FS) Option {
	return func(s *Server) { s.scriptsFS = fsys }
}

// WithInitializer adds an initializer run for every project after its
// registry walk.
func WithInitializer(fn project.Initializer) Option {
	return func(s *Server) { s.initializers = append(s.initializers, fn) }
}

// New creates a Server. No project is loaded until AddProject.
func New(opts ...Option) (*Server, error) {
	s := &Server{
		projects: project.NewSet(),
		inits:    make(map[string]*lazyInit),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg == nil {
		s.cfg = config.Default()
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("emberls: %w", err)
	}
	if s.logger == nil {
		level, err := log.ParseLevel(s.cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("emberls: log level: %w", err)
		}
		s.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "emberls", Level: level})
	}
	if s.fs == nil {
		s.fs = vfs.NewOS()
	}

	engineOpts := []resolve.Option{
		resolve.WithLogger(s.logger.WithPrefix("resolve")),
		resolve.WithReadTimeout(s.cfg.TemplateReadTimeout),
		resolve.WithMaxConcurrentReads(s.cfg.MaxConcurrentReads),
		resolve.WithInlineTemplates(),
	}
	if s.cfg.ProviderScripts {
		rtOpts := []runtime.Option{runtime.WithLogger(s.logger.WithPrefix("runtime"))}
		if s.scriptsFS != nil {
			rtOpts = append(rtOpts, runtime.WithFS(s.scriptsFS))
		}
		s.runtime = runtime.New(rtOpts...)
		engineOpts = append(engineOpts, resolve.WithProviders(s.runtime))
	}
	s.engine = resolve.New(engineOpts...)
	return s, nil
}

// Config returns the settings the server runs with.
func (s *Server) Config() *config.Config { return s.cfg }

// Logger returns the server logger.
func (s *Server) Logger() *log.Logger { return s.logger }

// AddProject loads the project rooted at root, replacing and unloading any
// project already loaded there. With eager_registry the registry is built
// before AddProject returns; otherwise on the project's first request.
func (s *Server) AddProject(ctx context.Context, root string) (*Project, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("emberls: %w", err)
	}
	pkg, err := project.ReadPackage(s.fs, root)
	if err != nil {
		return nil, fmt.Errorf("emberls: add project %s: %w", root, err)
	}
	if s.cfg.IsIgnored(pkg.Name) {
		return nil, fmt.Errorf("%w: %s", ErrIgnoredProject, pkg.Name)
	}

	p, err := project.New(ctx, root, s.projectOptions(root)...)
	if err != nil {
		return nil, fmt.Errorf("emberls: add project %s: %w", root, err)
	}
	if s.cfg.UseBuiltinLinting {
		p.AddLinter(templateLinter)
	}
	p.AddCommandExecutor(RegistryCommand, registryCommand)

	if prev := s.projects.Add(p); prev != nil {
		prev.Unload()
	}
	s.mu.Lock()
	delete(s.inits, root)
	if !s.cfg.DisableInitialization {
		s.inits[root] = &lazyInit{}
	}
	s.mu.Unlock()

	if s.cfg.EagerRegistry {
		if err := s.ensureInit(ctx, p); err != nil {
			return p, err
		}
	}
	s.logger.Info("project added", "root", root, "name", p.Name(), "addons", len(p.Addons()))
	return p, nil
}

func (s *Server) projectOptions(root string) []project.Option {
	extra := make([]string, 0, len(s.cfg.Addons))
	for _, a := range s.cfg.Addons {
		r := a.Root
		if !filepath.IsAbs(r) {
			r = filepath.Join(root, r)
		}
		extra = append(extra, r)
	}
	opts := []project.Option{
		project.WithFS(s.fs),
		project.WithLogger(s.logger.WithPrefix("project")),
		project.WithAddonProvider(project.PackageAddons{
			FS:             s.fs,
			IncludeModules: s.cfg.IncludeModules,
			Extra:          extra,
		}),
		project.WithNamespaces(s.cfg.Namespaces),
		project.WithCache(cache.WithTTL(s.cfg.CacheTTL)),
		project.WithListingBypass(s.cfg.ExternalFileWatcher),
	}
	for _, fn := range s.initializers {
		opts = append(opts, project.WithInitializer(fn))
	}
	return opts
}

// ensureInit builds p's registry once. Projects added with
// disable_initialization are never walked.
func (s *Server) ensureInit(ctx context.Context, p *Project) error {
	s.mu.Lock()
	l := s.inits[p.Root()]
	s.mu.Unlock()
	if l == nil {
		return nil
	}
	l.once.Do(func() {
		if err := p.Init(ctx); err != nil {
			l.err = fmt.Errorf("emberls: init %s: %w", p.Root(), err)
		}
	})
	return l.err
}

// RemoveProject unloads the project rooted at root.
func (s *Server) RemoveProject(root string) bool {
	root, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	p, ok := s.projects.Remove(root)
	if !ok {
		return false
	}
	s.mu.Lock()
	delete(s.inits, root)
	s.mu.Unlock()
	p.Unload()
	return true
}

// Projects returns the loaded projects ordered by root.
func (s *Server) Projects() []*Project { return s.projects.All() }

// ProjectForURI returns the project owning uri, building its registry if
// it has not been built yet.
func (s *Server) ProjectForURI(ctx context.Context, uri string) (*Project, error) {
	p, err := s.projects.ForURI(uri)
	if err != nil {
		return nil, err
	}
	if err := s.ensureInit(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Close unloads every project.
func (s *Server) Close() error {
	for _, p := range s.projects.All() {
		s.RemoveProject(p.Root())
	}
	return nil
}

// TrackChange applies a file event to the project owning uri.
func (s *Server) TrackChange(uri string, change ChangeKind) error {
	p, err := s.projects.ForURI(uri)
	if err != nil {
		return err
	}
	p.TrackChange(uri, change)
	return nil
}

// Lint runs the project's linters over an open document.
func (s *Server) Lint(ctx context.Context, doc Document) ([]Diagnostic, error) {
	p, err := s.ProjectForURI(ctx, doc.URI)
	if err != nil {
		return nil, err
	}
	return p.Lint(ctx, doc), nil
}

// Execute runs a project command for the project owning uri.
func (s *Server) Execute(ctx context.Context, uri, command string, args []any) (any, error) {
	p, err := s.ProjectForURI(ctx, uri)
	if err != nil {
		return nil, err
	}
	return p.Execute(ctx, command, args)
}

// Snapshot captures the registry of the project rooted at root for the
// store. hashFiles adds a content hash per file.
func (s *Server) Snapshot(ctx context.Context, root string, hashFiles bool) (Snapshot, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return Snapshot{}, fmt.Errorf("emberls: %w", err)
	}
	p, ok := s.projects.Get(root)
	if !ok {
		return Snapshot{}, fmt.Errorf("%w at %s", project.ErrNoProject, root)
	}
	if err := s.ensureInit(ctx, p); err != nil {
		return Snapshot{}, err
	}
	return store.Capture(ctx, p, hashFiles)
}

func registryCommand(_ context.Context, p *project.Project, _ []any) (any, error) {
	return p.Registry().Entries(), nil
}

// request resolves the project and text of a cursor.
func (s *Server) request(ctx context.Context, dp DocumentPosition) (resolve.Request, error) {
	p, err := s.ProjectForURI(ctx, dp.URI)
	if err != nil {
		return resolve.Request{}, err
	}
	path, err := project.PathFromURI(dp.URI)
	if err != nil {
		return resolve.Request{}, err
	}
	text := dp.Text
	if text == "" {
		data, err := p.FS().ReadFile(path)
		if err != nil {
			return resolve.Request{}, fmt.Errorf("emberls: read %s: %w", path, err)
		}
		text = string(data)
	}
	return resolve.Request{
		Project:  p,
		Path:     path,
		Text:     strings.ReplaceAll(text, "\r\n", "\n"),
		Position: dp.Position,
	}, nil
}

// Classify returns the context of the cursor.
func (s *Server) Classify(ctx context.Context, dp DocumentPosition) (Kind, error) {
	req, err := s.request(ctx, dp)
	if err != nil {
		return 0, err
	}
	return s.engine.Classify(ctx, req)
}

// Definition returns the files defining the symbol under the cursor.
func (s *Server) Definition(ctx context.Context, dp DocumentPosition) ([]Location, error) {
	req, err := s.request(ctx, dp)
	if err != nil {
		return nil, err
	}
	return s.engine.Definition(ctx, resolve.DefinitionRequest{Request: req}), nil
}

// Complete returns the completion items for the cursor.
func (s *Server) Complete(ctx context.Context, dp DocumentPosition) ([]CompletionItem, error) {
	req, err := s.request(ctx, dp)
	if err != nil {
		return nil, err
	}
	return s.engine.Complete(ctx, resolve.CompletionRequest{Request: req}), nil
}
