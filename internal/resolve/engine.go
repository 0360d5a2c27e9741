package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jward/emberls/internal/ast"
	"github.com/jward/emberls/internal/classify"
	"github.com/jward/emberls/internal/layout"
	"github.com/jward/emberls/internal/project"
	"github.com/jward/emberls/internal/script"
	"github.com/jward/emberls/internal/template"
)

// ErrUnsupportedFile is returned for documents that are neither scripts
// nor templates.
var ErrUnsupportedFile = errors.New("resolve: unsupported file type")

// completionDummy is spliced in at the cursor so partial input such as
// "{{" or "<Fo" still parses into a focusable node.
const completionDummy = "ELSCompletionDummy"

type (
	// RouteDefinitions finds the files that define a route path.
	RouteDefinitions interface {
		RouteDefinition(ctx context.Context, p *project.Project, route string) ([]Location, error)
	}

	// ComponentTemplates lists the template files that could define a
	// component under one project root. Paths need not exist.
	ComponentTemplates interface {
		ComponentTemplates(p *project.Project, root, tag string) []string
	}

	// TemplateDefinitions resolves definitions inside an inline template
	// embedded in a script.
	TemplateDefinitions interface {
		TemplateDefinition(ctx context.Context, req DefinitionRequest, src TemplateSource) ([]Location, error)
	}

	// Provider is an addon-contributed hook. It receives the results so
	// far and returns the results to pass on.
	Provider interface {
		Name() string
		Complete(ctx context.Context, req CompletionRequest, kind classify.Kind) ([]CompletionItem, error)
		Define(ctx context.Context, req DefinitionRequest, kind classify.Kind) ([]Location, error)
	}

	// Providers returns the hooks that apply to a project, in order.
	Providers interface {
		Providers(ctx context.Context, p *project.Project) []Provider
	}
)

// Engine runs the definition and completion pipelines.
type Engine struct {
	routes    RouteDefinitions
	templates ComponentTemplates
	inline    TemplateDefinitions
	providers Providers
	logger    *log.Logger

	readTimeout time.Duration
	maxReads    int
}

// Option configures an Engine.
type Option func(*Engine)

// WithRouteDefinitions replaces the route-definition collaborator.
func WithRouteDefinitions(r RouteDefinitions) Option {
	return func(e *Engine) { e.routes = r }
}

// WithComponentTemplates replaces the component-template collaborator.
func WithComponentTemplates(t ComponentTemplates) Option {
	return func(e *Engine) { e.templates = t }
}

// WithTemplateDefinitions sets the inline-template collaborator. Without
// one, definition requests inside inline templates return their input
// results.
func WithTemplateDefinitions(t TemplateDefinitions) Option {
	return func(e *Engine) { e.inline = t }
}

// WithInlineTemplates resolves inline templates with the engine's own
// template pipeline.
func WithInlineTemplates() Option {
	return func(e *Engine) { e.inline = inlineDefinitions{e: e} }
}

// WithProviders sets the addon hooks.
func WithProviders(p Providers) Option {
	return func(e *Engine) { e.providers = p }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithReadTimeout bounds the template existence checks and reads done
// while answering one request.
func WithReadTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.readTimeout = d
		}
	}
}

// WithMaxConcurrentReads bounds concurrent file checks per request.
func WithMaxConcurrentReads(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxReads = n
		}
	}
}

// New returns an Engine with the default route and template
// collaborators.
func New(opts ...Option) *Engine {
	e := &Engine{
		routes:      Routes{},
		templates:   Templates{},
		logger:      log.Default(),
		readTimeout: 2 * time.Second,
		maxReads:    8,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Classify parses the request's document and classifies the cursor.
func (e *Engine) Classify(ctx context.Context, req Request) (classify.Kind, error) {
	focus, err := focusPath(ctx, req.Path, req.Text, req.Position)
	if err != nil {
		return classify.None, err
	}
	return classify.Classify(focus), nil
}

// focusPath parses text as the document at path and returns the cursor
// path at pos.
func focusPath(ctx context.Context, path, text string, pos ast.Position) (*ast.Path, error) {
	if layout.IsTemplate(path) {
		tpl, err := template.Parse(text)
		if err != nil {
			return nil, err
		}
		return ast.FocusPath(tpl, pos), nil
	}
	lang, ok := script.LanguageForFile(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
	}
	prog, err := script.Parse(ctx, []byte(text), lang)
	if err != nil {
		return nil, err
	}
	return ast.FocusPath(prog, pos), nil
}

// completionFocus parses a template with the completion dummy at the
// cursor, falling back to the text as typed.
func completionFocus(text string, pos ast.Position) (*ast.Path, error) {
	off := offsetAt(text, pos)
	tpl, err := template.Parse(text[:off] + completionDummy + text[off:])
	if err != nil {
		tpl, err = template.Parse(text)
		if err != nil {
			return nil, err
		}
	}
	return ast.FocusPath(tpl, pos), nil
}

// offsetAt converts a line/column position to a byte offset, clamped to
// the end of its line.
func offsetAt(text string, pos ast.Position) int {
	off := 0
	for line := 0; line < pos.Line; line++ {
		i := strings.IndexByte(text[off:], '\n')
		if i < 0 {
			return len(text)
		}
		off += i + 1
	}
	end := len(text)
	if i := strings.IndexByte(text[off:], '\n'); i >= 0 {
		end = off + i
	}
	return min(off+max(pos.Column, 0), end)
}

func (e *Engine) projectProviders(ctx context.Context, p *project.Project) []Provider {
	if e.providers == nil {
		return nil
	}
	return e.providers.Providers(ctx, p)
}

// completeWithProviders threads items through every provider. A failing
// provider is logged and its input passed on.
func (e *Engine) completeWithProviders(ctx context.Context, req CompletionRequest, kind classify.Kind) []CompletionItem {
	for _, pr := range e.projectProviders(ctx, req.Project) {
		items, err := pr.Complete(ctx, req, kind)
		if err != nil {
			e.logger.Error("provider completion failed", "provider", pr.Name(), "path", req.Path, "err", err)
			continue
		}
		req.Results = items
	}
	return req.Results
}

func (e *Engine) defineWithProviders(ctx context.Context, req DefinitionRequest, kind classify.Kind) []Location {
	for _, pr := range e.projectProviders(ctx, req.Project) {
		locs, err := pr.Define(ctx, req, kind)
		if err != nil {
			e.logger.Error("provider definition failed", "provider", pr.Name(), "path", req.Path, "err", err)
			continue
		}
		req.Results = locs
	}
	return req.Results
}
