package resolve

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/jward/emberls/internal/ast"
	"github.com/jward/emberls/internal/classify"
	"github.com/jward/emberls/internal/layout"
	"github.com/jward/emberls/internal/project"
	"github.com/jward/emberls/internal/script"
	"github.com/jward/emberls/internal/template"
)

// Routes is the default RouteDefinitions. A route resolves to its route
// and controller scripts and its template, under every host convention
// and every addon.
type Routes struct{}

// RouteDefinition implements RouteDefinitions.
func (Routes) RouteDefinition(_ context.Context, p *project.Project, route string) ([]Location, error) {
	if route == "" {
		return nil, nil
	}
	q := symbolQuery{typ: layout.Route, name: route, addons: true}
	paths := candidatePaths(p, q)
	q.templates = true
	paths = append(paths, candidatePaths(p, q)...)

	var out []Location
	for _, path := range uniquePaths(paths) {
		if p.FS().Exists(path) {
			out = append(out, fileStart(path))
		}
	}
	return out, nil
}

// Templates is the default ComponentTemplates. The host root uses the
// project's conventions and addon roots the addon layout; known template
// files under root from the registry are appended.
type Templates struct{}

// ComponentTemplates implements ComponentTemplates. tag is either an
// angle-bracket tag or a dasherized component name, optionally
// addon-qualified.
func (Templates) ComponentTemplates(p *project.Project, root, tag string) []string {
	addon, name := splitNamespace(tag, isAngleTag(tag))
	if name == "" {
		return nil
	}
	root = filepath.Clean(root)

	var out []string
	if root == p.Root() && addon == "" {
		r := resolverFor(p, "")
		for _, conv := range conventions(p) {
			paths, err := r.TemplatePaths(conv, root, layout.Component, name, p.PodPrefix())
			if err == nil {
				out = append(out, paths...)
			}
		}
	}
	for _, a := range p.AddonInfos() {
		if filepath.Clean(a.Root) != root || (addon != "" && addonShortName(a.Name) != addon) {
			continue
		}
		single := a
		l := layout.AddonLayout{Roots: func(string) []layout.AddonInfo { return []layout.AddonInfo{single} }}
		out = append(out, l.Templates(root, layout.Component, name)...)
	}
	for _, path := range p.Registry().PathsFor(layout.Component, name) {
		if layout.IsTemplate(path) && underAny(path, []string{root}) && !isTestFile(p, path) {
			out = append(out, path)
		}
	}
	return uniquePaths(out)
}

func isAngleTag(tag string) bool {
	if tag == "" {
		return false
	}
	c := tag[0]
	return c >= 'A' && c <= 'Z' || strings.Contains(tag, "::")
}

// componentRoots lists every root a component may live under: the host
// root and each addon root, nested or not.
func componentRoots(p *project.Project) []string {
	roots := []string{p.Root()}
	for _, a := range p.Addons() {
		roots = append(roots, a.Root)
	}
	return uniquePaths(roots)
}

// componentTemplates returns the existing template files of a component
// across every root, in root order.
func (e *Engine) componentTemplates(ctx context.Context, p *project.Project, tag string) []string {
	var candidates []string
	for _, root := range componentRoots(p) {
		candidates = append(candidates, e.templates.ComponentTemplates(p, root, tag)...)
	}
	return e.existing(ctx, p.FS(), uniquePaths(candidates))
}

// TemplateSource is a template embedded in a script, with the position of
// its first character in the script.
type TemplateSource struct {
	Text  string       `json:"text" yaml:"text"`
	Start ast.Position `json:"start" yaml:"start"`
}

// relative maps a script position into the source's own coordinates.
func (s TemplateSource) relative(pos ast.Position) ast.Position {
	if pos.Line == s.Start.Line {
		return ast.Position{Line: 0, Column: pos.Column - s.Start.Column}
	}
	return ast.Position{Line: pos.Line - s.Start.Line, Column: pos.Column}
}

// SourcesForDocument returns the template sources of a document: the
// whole text of a template file, or every non-blank hbs tagged template
// of a script. Linters run over each source.
func SourcesForDocument(ctx context.Context, path, text string) ([]TemplateSource, error) {
	if layout.IsTemplate(path) {
		if strings.TrimSpace(text) == "" {
			return nil, nil
		}
		return []TemplateSource{{Text: text}}, nil
	}
	lang, ok := script.LanguageForFile(path)
	if !ok {
		return nil, nil
	}
	prog, err := script.Parse(ctx, []byte(text), lang)
	if err != nil {
		return nil, err
	}
	var out []TemplateSource
	ast.Walk(prog, func(n ast.Node) bool {
		tagged, ok := n.(*ast.TaggedTemplateExpression)
		if !ok || tagged.Quasi == nil {
			return true
		}
		if tag, ok := tagged.Tag.(*ast.Identifier); !ok || tag == nil || tag.Name != "hbs" {
			return true
		}
		for _, q := range tagged.Quasi.Quasis {
			if strings.TrimSpace(q.Raw) != "" {
				out = append(out, TemplateSource{Text: q.Raw, Start: q.Loc().Start})
			}
		}
		return false
	})
	return out, nil
}

// inlineDefinitions resolves inline templates with the engine's template
// pipeline, as if the template were a file next to the script.
type inlineDefinitions struct {
	e *Engine
}

func (d inlineDefinitions) TemplateDefinition(ctx context.Context, req DefinitionRequest, src TemplateSource) ([]Location, error) {
	tpl, err := template.Parse(src.Text)
	if err != nil {
		return nil, err
	}
	focus := ast.FocusPath(tpl, src.relative(req.Position))
	kind := classify.Classify(focus)
	if kind == classify.None {
		return req.Results, nil
	}
	inner := req.Request
	inner.Text = src.Text
	locs, err := d.e.templateDefinition(ctx, inner, focus, kind)
	return uniqueLocations(locs), err
}
