package resolve

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jward/emberls/internal/ast"
	"github.com/jward/emberls/internal/classify"
	"github.com/jward/emberls/internal/layout"
	"github.com/jward/emberls/internal/project"
	"github.com/jward/emberls/internal/script"
)

// Definition returns the locations the cursor refers to. Parse and
// collaborator failures are logged and degrade to the partial result, or
// to the request's input results when nothing was found.
func (e *Engine) Definition(ctx context.Context, req DefinitionRequest) []Location {
	focus, err := focusPath(ctx, req.Path, req.Text, req.Position)
	if err != nil {
		e.logger.Warn("definition: unable to parse document", "path", req.Path, "err", err)
		return req.Results
	}
	kind := classify.Classify(focus)
	if kind == classify.None {
		return e.defineWithProviders(ctx, req, kind)
	}

	var locs []Location
	if req.IsTemplate() {
		locs, err = e.templateDefinition(ctx, req.Request, focus, kind)
	} else {
		locs, err = e.scriptDefinition(ctx, req, focus, kind)
	}
	if err != nil {
		e.logger.Error("definition failed", "path", req.Path, "kind", kind, "err", err)
		if len(locs) == 0 {
			return req.Results
		}
	}
	req.Results = locs
	return e.defineWithProviders(ctx, req, kind)
}

func (e *Engine) scriptDefinition(ctx context.Context, req DefinitionRequest, focus *ast.Path, kind classify.Kind) ([]Location, error) {
	p := req.Project
	switch kind {
	case classify.ModelReference:
		return e.symbolDefinition(ctx, p, symbolQuery{typ: layout.Model, name: stringValue(focus.Node())}), nil
	case classify.TransformReference:
		return e.symbolDefinition(ctx, p, symbolQuery{typ: layout.Transform, name: stringValue(focus.Node())}), nil
	case classify.ServiceInjection, classify.NamedServiceInjection:
		name := layout.NormalizeServiceName(serviceName(focus, kind))
		return e.symbolDefinition(ctx, p, symbolQuery{typ: layout.Service, name: name, addons: true}), nil
	case classify.ImportPathDeclaration:
		paths := e.importPaths(ctx, p, req.Path, stringValue(focus.Node()))
		return uniqueLocations(append(append([]Location(nil), req.Results...), locations(paths)...)), nil
	case classify.ImportSpecifier, classify.ImportDefaultSpecifier:
		return e.importDefinition(ctx, p, req.Path, focus)
	case classify.RouteLookup:
		return e.routes.RouteDefinition(ctx, p, stringValue(focus.Node()))
	case classify.InlineTemplateTag:
		if e.inline == nil {
			return req.Results, nil
		}
		el, _ := focus.Node().(*ast.TemplateElement)
		if el == nil {
			return req.Results, nil
		}
		return e.inline.TemplateDefinition(ctx, req, TemplateSource{Text: el.Raw, Start: el.Loc().Start})
	}
	return req.Results, nil
}

func stringValue(n ast.Node) string {
	if s, ok := n.(*ast.StringLiteral); ok && s != nil {
		return s.Value
	}
	return ""
}

// serviceName returns the injected service's name: the explicit name
// argument when one is given, otherwise the property name.
func serviceName(focus *ast.Path, kind classify.Kind) string {
	if kind == classify.NamedServiceInjection {
		return stringValue(focus.Node())
	}
	id, _ := focus.Node().(*ast.Identifier)
	if id == nil {
		return ""
	}
	var call *ast.CallExpression
	switch parent := focus.Parent().(type) {
	case *ast.ObjectProperty:
		call, _ = parent.Value.(*ast.CallExpression)
	case *ast.ClassProperty:
		if d := classify.ServiceDecorator(parent); d != nil {
			call, _ = d.Expression.(*ast.CallExpression)
		}
	}
	if call != nil && len(call.Arguments) > 0 {
		if name := stringValue(call.Arguments[0]); name != "" {
			return name
		}
	}
	return id.Name
}

// symbolDefinition resolves a symbol to the start of every existing file
// that could define it.
func (e *Engine) symbolDefinition(ctx context.Context, p *project.Project, q symbolQuery) []Location {
	if q.name == "" {
		return nil
	}
	return locations(e.existing(ctx, p.FS(), candidatePaths(p, q)))
}

func (e *Engine) importPaths(ctx context.Context, p *project.Project, fromFile, importPath string) []string {
	if importPath == "" {
		return nil
	}
	candidates := layout.ImportPaths(layout.ImportRequest{
		Root:              p.Root(),
		ProjectName:       p.Name(),
		ImportPath:        importPath,
		FromFile:          fromFile,
		ModuleUnification: p.IsModuleUnification(),
		Addons:            p.AddonInfos(),
	})
	return e.existing(ctx, p.FS(), uniquePaths(candidates))
}

// importDefinition resolves an import binding to the export it names in
// each candidate file, falling back to the file start.
func (e *Engine) importDefinition(ctx context.Context, p *project.Project, fromFile string, focus *ast.Path) ([]Location, error) {
	decl, _ := focus.ParentFromLevel(2).(*ast.ImportDeclaration)
	if decl == nil || decl.Source == nil {
		return nil, nil
	}
	name := importedName(focus)

	var (
		out  []Location
		errs []error
	)
	for _, path := range e.importPaths(ctx, p, fromFile, decl.Source.Value) {
		loc := fileStart(path)
		lang, ok := script.LanguageForFile(path)
		if !ok {
			out = append(out, loc)
			continue
		}
		src, err := e.readFile(ctx, p.FS(), path)
		if err != nil {
			errs = append(errs, err)
			out = append(out, loc)
			continue
		}
		r, found, err := script.FindExport(ctx, src, lang, name)
		if err != nil {
			errs = append(errs, fmt.Errorf("resolve: exports of %s: %w", path, err))
		} else if found {
			loc.Range = r
		}
		out = append(out, loc)
	}
	if len(errs) > 0 {
		return out, fmt.Errorf("resolve: import %q had %d error(s): %w", decl.Source.Value, len(errs), errs[0])
	}
	return out, nil
}

// importedName is the exported name a specifier binds; default
// specifiers bind "default".
func importedName(focus *ast.Path) string {
	switch spec := focus.Parent().(type) {
	case *ast.ImportSpecifier:
		if spec.Imported != nil {
			return spec.Imported.Name
		}
		if spec.Local != nil {
			return spec.Local.Name
		}
	}
	return "default"
}

func (e *Engine) templateDefinition(ctx context.Context, req Request, focus *ast.Path, kind classify.Kind) ([]Location, error) {
	p := req.Project
	switch kind {
	case classify.AngleComponent:
		el := focus.Node().(*ast.ElementNode)
		head, _, _ := strings.Cut(el.Tag, ".")
		if inScope(focus, head) {
			return nil, nil
		}
		return e.componentDefinition(ctx, p, el.Tag), nil
	case classify.MustachePath, classify.BlockPath, classify.SubExpressionPath, classify.ModifierPath:
		pe := focus.Node().(*ast.PathExpression)
		if inScope(focus, pe.Head()) {
			return nil, nil
		}
		return e.pathDefinition(ctx, p, pe.Original, kind), nil
	case classify.NamedBlockName:
		parent, _ := focus.Parent().(*ast.ElementNode)
		if parent == nil {
			return nil, nil
		}
		return locations(e.componentTemplates(ctx, p, parent.Tag)), nil
	case classify.InlineLinkToTarget, classify.BlockLinkToTarget:
		return e.routes.RouteDefinition(ctx, p, stringValue(focus.Node()))
	case classify.LinkComponentRouteTarget:
		text, _ := focus.Node().(*ast.TextNode)
		if text == nil {
			return nil, nil
		}
		return e.routes.RouteDefinition(ctx, p, text.Chars)
	case classify.LocalPathExpression:
		name, ok := componentForFile(req.Path)
		if !ok {
			return nil, nil
		}
		return e.symbolDefinition(ctx, p, symbolQuery{typ: layout.Component, name: name, addons: true}), nil
	}
	return nil, nil
}

// pathDefinition resolves a statement path: mustaches may name a component
// or helper, blocks a component, sub-expressions a helper and modifiers a
// modifier.
func (e *Engine) pathDefinition(ctx context.Context, p *project.Project, original string, kind classify.Kind) []Location {
	addon, name := splitNamespace(original, false)
	var types []layout.SymbolType
	switch kind {
	case classify.MustachePath:
		types = []layout.SymbolType{layout.Component, layout.Helper}
	case classify.BlockPath:
		types = []layout.SymbolType{layout.Component}
	case classify.SubExpressionPath:
		types = []layout.SymbolType{layout.Helper}
	case classify.ModifierPath:
		types = []layout.SymbolType{layout.Modifier}
	}

	var paths []string
	for _, t := range types {
		q := symbolQuery{typ: t, name: name, addons: true, addon: addon}
		paths = append(paths, candidatePaths(p, q)...)
		if t == layout.Component {
			q.templates = true
			paths = append(paths, candidatePaths(p, q)...)
		}
	}
	return locations(e.existing(ctx, p.FS(), uniquePaths(paths)))
}

// componentDefinition resolves an angle-bracket tag to the component's
// script and template files.
func (e *Engine) componentDefinition(ctx context.Context, p *project.Project, tag string) []Location {
	addon, name := splitNamespace(tag, true)
	q := symbolQuery{typ: layout.Component, name: name, addons: true, addon: addon}
	paths := candidatePaths(p, q)
	q.templates = true
	paths = append(paths, candidatePaths(p, q)...)
	return locations(e.existing(ctx, p.FS(), uniquePaths(paths)))
}

// splitNamespace splits an addon-qualified label into the addon's short
// name and the dasherized symbol name.
func splitNamespace(label string, angle bool) (addon, name string) {
	addon, name, ok := layout.SplitQualified(label)
	if !ok {
		name = label
	}
	if angle {
		name = layout.FromAngleBracket(name)
		if ok {
			addon = layout.Dasherize(addon)
		}
	}
	return addon, name
}

// componentForFile derives the component a template or script belongs to
// from its path: everything after /components/ without the extension or a
// trailing /component or /template.
func componentForFile(path string) (string, bool) {
	_, rest, ok := strings.Cut(filepath.ToSlash(path), "/components/")
	if !ok || rest == "" {
		return "", false
	}
	if i := strings.LastIndexByte(rest, '.'); i > strings.LastIndexByte(rest, '/') {
		rest = rest[:i]
	}
	for _, suffix := range []string{"/component", "/template", "/index"} {
		if trimmed, ok := strings.CutSuffix(rest, suffix); ok {
			return trimmed, trimmed != ""
		}
	}
	return rest, true
}
