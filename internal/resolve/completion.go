package resolve

import (
	"context"
	"sort"
	"strings"

	"github.com/jward/emberls/internal/ast"
	"github.com/jward/emberls/internal/classify"
	"github.com/jward/emberls/internal/layout"
	"github.com/jward/emberls/internal/project"
	"github.com/jward/emberls/internal/template"
)

// Complete returns the completion items for the cursor, with the
// request's input results first. Labels are unique.
func (e *Engine) Complete(ctx context.Context, req CompletionRequest) []CompletionItem {
	var (
		items []CompletionItem
		kind  classify.Kind
		err   error
	)
	if req.IsTemplate() {
		items, kind, err = e.completeTemplate(ctx, req)
	} else {
		items, kind, err = e.completeScript(ctx, req)
	}
	if err != nil {
		e.logger.Warn("completion failed", "path", req.Path, "kind", kind, "err", err)
	}
	if items == nil {
		items = req.Results
	}
	req.Results = items
	return uniqueLabels(e.completeWithProviders(ctx, req, kind))
}

func (e *Engine) completeTemplate(ctx context.Context, req CompletionRequest) ([]CompletionItem, classify.Kind, error) {
	focus, err := completionFocus(req.Text, req.Position)
	if err != nil {
		return nil, classify.None, err
	}
	kind := classify.Classify(focus)
	p := req.Project
	items := append([]CompletionItem(nil), req.Results...)

	switch kind {
	case classify.NamedBlockName:
		if parent, ok := focus.Parent().(*ast.ElementNode); ok && parent != nil {
			items = append(items, e.namedBlocks(ctx, p, parent.Tag)...)
		}
	case classify.AngleComponent:
		items = append(items, uniqueLabels(append(componentItems(p, true), localScope(focus)...))...)
	case classify.ComponentArgumentName:
		items = append(items, e.argumentNames(ctx, p, focus)...)
	case classify.LocalPathExpression:
		items = append(items, withPrefix(e.templateContext(ctx, p, req.Path, req.Text), "this.")...)
	case classify.ArgumentPathExpression:
		items = append(items, withPrefix(e.templateContext(ctx, p, req.Path, req.Text), "@")...)
	case classify.MustachePath:
		items = append(items, localScope(focus)...)
		items = append(items, e.templateContext(ctx, p, req.Path, req.Text)...)
		items = append(items, componentItems(p, false)...)
		items = append(items, registryItems(p, layout.Helper, ItemFunction, detailHelper)...)
		items = append(items, builtinMustacheItems...)
	case classify.BlockPath:
		items = append(items, localScope(focus)...)
		items = append(items, builtinBlockItems...)
		items = append(items, componentItems(p, false)...)
	case classify.SubExpressionPath:
		items = append(items, registryItems(p, layout.Helper, ItemFunction, detailHelper)...)
		items = append(items, builtinSubExpressionItems...)
	case classify.ScopedPathExpression, classify.Outlet:
		items = append(items, localScope(focus)...)
		items = append(items, e.templateContext(ctx, p, req.Path, req.Text)...)
	case classify.InlineLinkToTarget, classify.BlockLinkToTarget, classify.LinkComponentRouteTarget:
		items = append(items, e.routeItems(ctx, p)...)
	case classify.ModifierPath:
		items = append(items, builtinModifierItems...)
		items = append(items, registryItems(p, layout.Modifier, ItemFunction, detailModifier)...)
	}

	return uniqueLabels(items), kind, nil
}

func (e *Engine) completeScript(ctx context.Context, req CompletionRequest) ([]CompletionItem, classify.Kind, error) {
	focus, err := focusPath(ctx, req.Path, req.Text, req.Position)
	if err != nil {
		return nil, classify.None, err
	}
	kind := classify.Classify(focus)
	p := req.Project
	items := append([]CompletionItem(nil), req.Results...)

	switch kind {
	case classify.ModelReference:
		items = append(items, registryItems(p, layout.Model, ItemClass, detailModel)...)
	case classify.TransformReference:
		items = append(items, registryItems(p, layout.Transform, ItemFunction, detailTransform)...)
	case classify.NamedServiceInjection:
		items = append(items, registryItems(p, layout.Service, ItemModule, detailService)...)
	case classify.RouteLookup:
		items = append(items, e.routeItems(ctx, p)...)
	}
	return uniqueLabels(items), kind, nil
}

// registryItems lists the names of type t across the project's roots,
// sorted. Names known only through test files are left out.
func registryItems(p *project.Project, t layout.SymbolType, kind ItemKind, detail string) []CompletionItem {
	found := p.Registry().LookupIn(t, p.Roots()...)
	names := make([]string, 0, len(found))
	for name, paths := range found {
		if hasDefinition(p, paths) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return keywords(kind, detail, names...)
}

// componentItems lists the project's components, addon-qualified when
// namespacing is on. Qualification happens before local scope is merged in
// so a block param shadowing a name keeps the qualified labels.
func componentItems(p *project.Project, angle bool) []CompletionItem {
	items := registryItems(p, layout.Component, ItemClass, detailComponent)
	if angle {
		for i := range items {
			items[i].Label = layout.ToAngleBracket(items[i].Label)
		}
	}
	return namespaceComponents(p, items, angle)
}

// routeFiles are the files that define a route name.
var routeFiles = []string{
	"app/routes/**/*.{js,ts}",
	"app/controllers/**/*.{js,ts}",
	"app/templates/**/*.hbs",
	"addon/routes/**/*.{js,ts}",
	"addon/templates/**/*.hbs",
}

// routeItems lists route names from the registry plus the memoized route
// listing of every root, which covers projects whose registry was never
// walked.
func (e *Engine) routeItems(ctx context.Context, p *project.Project) []CompletionItem {
	items := registryItems(p, layout.Route, ItemFile, detailRoute)
	files, err := p.ListItems(ctx, "routes", routeFiles...)
	if err != nil {
		e.logger.Debug("route listing failed", "root", p.Root(), "err", err)
	}
	var names []string
	for _, path := range files {
		if m, ok := p.MatchPathToType(path); ok && m.Type == layout.Route && !m.Test {
			names = append(names, m.Name)
		}
	}
	sort.Strings(names)
	return uniqueLabels(append(items, keywords(ItemFile, detailRoute, names...)...))
}

func withPrefix(items []CompletionItem, prefix string) []CompletionItem {
	var out []CompletionItem
	for _, it := range items {
		if strings.HasPrefix(it.Label, prefix) {
			out = append(out, it)
		}
	}
	return out
}

// nonArgumentTags never take component arguments worth introspecting.
var nonArgumentTags = map[string]bool{"Input": true, "Textarea": true, "LinkTo": true}

// argumentNames offers the @arguments the referenced component's first
// existing template reads, minus those already set on the element.
func (e *Engine) argumentNames(ctx context.Context, p *project.Project, focus *ast.Path) []CompletionItem {
	el, ok := focus.Parent().(*ast.ElementNode)
	if !ok || el == nil {
		return nil
	}
	tag := el.Tag
	if nonArgumentTags[tag] || strings.HasPrefix(tag, "@") || strings.HasPrefix(tag, ":") || strings.Contains(tag, ".") {
		return nil
	}
	tpls := e.componentTemplates(ctx, p, tag)
	if len(tpls) == 0 {
		return nil
	}
	content, err := e.readFile(ctx, p.FS(), tpls[0])
	if err != nil {
		e.logger.Warn("unable to read component template", "path", tpls[0], "err", err)
		return nil
	}

	present := make(map[string]bool, len(el.Attributes))
	for _, a := range el.Attributes {
		if strings.HasPrefix(a.Name, "@") {
			present[a.Name] = true
		}
	}
	var out []CompletionItem
	for _, it := range e.templateContext(ctx, p, tpls[0], string(content)) {
		name, _, _ := strings.Cut(it.Label, ".")
		if strings.HasPrefix(name, "@") && !present[name] {
			out = append(out, CompletionItem{Label: name, Kind: it.Kind, Detail: it.Detail})
		}
	}
	return uniqueLabels(out)
}

// namedBlocks offers the blocks the parent component's first existing
// template yields to, as :name slots.
func (e *Engine) namedBlocks(ctx context.Context, p *project.Project, tag string) []CompletionItem {
	tpls := e.componentTemplates(ctx, p, tag)
	if len(tpls) == 0 {
		return nil
	}
	content, err := e.readFile(ctx, p.FS(), tpls[0])
	if err != nil {
		e.logger.Warn("unable to read component template", "path", tpls[0], "err", err)
		return nil
	}
	tpl, err := template.Parse(string(content))
	if err != nil {
		e.logger.Warn("unable to parse component template", "path", tpls[0], "err", err)
		return nil
	}
	var out []CompletionItem
	for _, name := range template.Blocks(tpl) {
		out = append(out, CompletionItem{
			Label:  ":" + name,
			Kind:   ItemVariable,
			Detail: "Named block (Slot) for <" + tag + ">",
		})
	}
	return out
}
