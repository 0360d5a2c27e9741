package runtime

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/risor-io/risor/object"

	"github.com/jward/emberls/internal/ast"
	"github.com/jward/emberls/internal/classify"
	"github.com/jward/emberls/internal/layout"
	"github.com/jward/emberls/internal/project"
	"github.com/jward/emberls/internal/resolve"
)

var _ resolve.Providers = (*Runtime)(nil)

// Providers implements resolve.Providers: one provider per addon of p that
// declares a script, in addon order.
func (r *Runtime) Providers(_ context.Context, p *project.Project) []resolve.Provider {
	var out []resolve.Provider
	for _, a := range p.Addons() {
		if a.Script != "" {
			out = append(out, &scriptProvider{rt: r, project: p, addon: a})
		}
	}
	return out
}

// scriptProvider runs one addon's script for each request. The script sees
// the request and the current results, and appends through add_item or
// add_location.
type scriptProvider struct {
	rt      *Runtime
	project *project.Project
	addon   project.AddonMeta
}

func (s *scriptProvider) Name() string { return s.addon.Name }

func (s *scriptProvider) Complete(ctx context.Context, req resolve.CompletionRequest, kind classify.Kind) ([]resolve.CompletionItem, error) {
	out := &collector[resolve.CompletionItem]{items: append([]resolve.CompletionItem(nil), req.Results...)}
	globals := s.globals(req.Request, kind, "completion")
	globals["results"] = itemsToList(req.Results)
	globals["add_item"] = makeAddItemFn(out)
	globals["add_location"] = wrongRequest("add_location", "definition")

	if err := s.rt.RunScript(ctx, s.project.FS(), s.addon.Script, globals); err != nil {
		return req.Results, err
	}
	return out.all(), nil
}

func (s *scriptProvider) Define(ctx context.Context, req resolve.DefinitionRequest, kind classify.Kind) ([]resolve.Location, error) {
	out := &collector[resolve.Location]{items: append([]resolve.Location(nil), req.Results...)}
	globals := s.globals(req.Request, kind, "definition")
	globals["results"] = locationsToList(req.Results)
	globals["add_location"] = makeAddLocationFn(out)
	globals["add_item"] = wrongRequest("add_item", "completion")

	if err := s.rt.RunScript(ctx, s.project.FS(), s.addon.Script, globals); err != nil {
		return req.Results, err
	}
	return out.all(), nil
}

// globals exposes the request and read-only project access.
func (s *scriptProvider) globals(req resolve.Request, kind classify.Kind, typ string) map[string]any {
	p := s.project
	return map[string]any{
		"request": object.NewMap(map[string]object.Object{
			"type":    object.NewString(typ),
			"kind":    object.NewString(kind.String()),
			"path":    object.NewString(req.Path),
			"text":    object.NewString(req.Text),
			"line":    object.NewInt(int64(req.Position.Line)),
			"column":  object.NewInt(int64(req.Position.Column)),
			"root":    object.NewString(p.Root()),
			"project": object.NewString(p.Name()),
			"addon":   object.NewString(s.addon.Name),
		}),
		"registry_names": makeRegistryNamesFn(p),
		"registry_paths": makeRegistryPathsFn(p),
		"read_file":      makeReadFileFn(p),
	}
}

// collector gathers script output. Builtins may run on goroutines the
// script spawns.
type collector[T any] struct {
	mu    sync.Mutex
	items []T
}

func (c *collector[T]) add(v T) {
	c.mu.Lock()
	c.items = append(c.items, v)
	c.mu.Unlock()
}

func (c *collector[T]) all() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items
}

// wrongRequest stands in for an output builtin of the other request type.
// Both names must exist on every run since Risor resolves them at compile
// time, but only one may be called.
func wrongRequest(name, typ string) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
		return object.Errorf("%s: only available for %s requests", name, typ)
	})
}

// makeAddItemFn creates "add_item".
//
// add_item({label, kind, detail})
func makeAddItemFn(out *collector[resolve.CompletionItem]) *object.Builtin {
	return object.NewBuiltin("add_item", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("add_item", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("add_item: %v", err)
		}
		label := getString(m, "label")
		if label == "" {
			return object.Errorf("add_item: label is required")
		}
		kind := resolve.ItemKind(getInt(m, "kind"))
		if kind == 0 {
			kind = resolve.ItemText
		}
		out.add(resolve.CompletionItem{Label: label, Kind: kind, Detail: getString(m, "detail")})
		return object.Nil
	})
}

// makeAddLocationFn creates "add_location". Lines and columns are
// zero-based; the end defaults to the start.
//
// add_location({path, line, column, end_line, end_column})
func makeAddLocationFn(out *collector[resolve.Location]) *object.Builtin {
	return object.NewBuiltin("add_location", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("add_location", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("add_location: %v", err)
		}
		path := getString(m, "path")
		if path == "" {
			return object.Errorf("add_location: path is required")
		}
		start := ast.Position{Line: getInt(m, "line"), Column: getInt(m, "column")}
		end := start
		if _, ok := m["end_line"]; ok {
			end = ast.Position{Line: getInt(m, "end_line"), Column: getInt(m, "end_column")}
		}
		out.add(resolve.Location{Path: path, Range: ast.Range{Start: start, End: end}})
		return object.Nil
	})
}

// makeRegistryNamesFn creates "registry_names", the sorted names of a
// symbol type across the project's roots.
//
// registry_names(type) → []string
func makeRegistryNamesFn(p *project.Project) *object.Builtin {
	return object.NewBuiltin("registry_names", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("registry_names", 1, len(args))
		}
		t, err := symbolType(args[0])
		if err != nil {
			return object.Errorf("registry_names: %v", err)
		}
		found := p.Registry().LookupIn(t, p.Roots()...)
		names := make([]string, 0, len(found))
		for name := range found {
			names = append(names, name)
		}
		sort.Strings(names)
		return stringList(names)
	})
}

// makeRegistryPathsFn creates "registry_paths".
//
// registry_paths(type, name) → []string
func makeRegistryPathsFn(p *project.Project) *object.Builtin {
	return object.NewBuiltin("registry_paths", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("registry_paths", 2, len(args))
		}
		t, err := symbolType(args[0])
		if err != nil {
			return object.Errorf("registry_paths: %v", err)
		}
		name, err := toString(args[1])
		if err != nil {
			return object.Errorf("registry_paths: %v", err)
		}
		return stringList(p.Registry().PathsFor(t, name))
	})
}

// makeReadFileFn creates "read_file". Only files inside the project are
// readable.
//
// read_file(path) → string
func makeReadFileFn(p *project.Project) *object.Builtin {
	return object.NewBuiltin("read_file", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("read_file", 1, len(args))
		}
		path, err := toString(args[0])
		if err != nil {
			return object.Errorf("read_file: %v", err)
		}
		if !p.Contains(path) {
			return object.Errorf("read_file: %s is outside the project", path)
		}
		data, err := p.FS().ReadFile(path)
		if err != nil {
			return object.Errorf("read_file: %v", err)
		}
		return object.NewString(string(data))
	})
}

func symbolType(obj object.Object) (layout.SymbolType, error) {
	s, err := toString(obj)
	if err != nil {
		return "", err
	}
	for _, t := range layout.SymbolTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown symbol type %q", s)
}

func itemsToList(items []resolve.CompletionItem) object.Object {
	results := make([]object.Object, 0, len(items))
	for _, it := range items {
		results = append(results, object.NewMap(map[string]object.Object{
			"label":  object.NewString(it.Label),
			"kind":   object.NewInt(int64(it.Kind)),
			"detail": object.NewString(it.Detail),
		}))
	}
	return object.NewList(results)
}

func locationsToList(locs []resolve.Location) object.Object {
	results := make([]object.Object, 0, len(locs))
	for _, l := range locs {
		results = append(results, object.NewMap(map[string]object.Object{
			"path":       object.NewString(l.Path),
			"line":       object.NewInt(int64(l.Range.Start.Line)),
			"column":     object.NewInt(int64(l.Range.Start.Column)),
			"end_line":   object.NewInt(int64(l.Range.End.Line)),
			"end_column": object.NewInt(int64(l.Range.End.Column)),
		}))
	}
	return object.NewList(results)
}

func stringList(values []string) object.Object {
	results := make([]object.Object, 0, len(values))
	for _, v := range values {
		results = append(results, object.NewString(v))
	}
	return object.NewList(results)
}

// --- Map extraction helpers ---

func extractMap(obj object.Object) (map[string]object.Object, error) {
	m, ok := obj.(*object.Map)
	if !ok {
		return nil, fmt.Errorf("expected map, got %s", obj.Type())
	}
	return m.Value(), nil
}

func getString(m map[string]object.Object, key string) string {
	if s, ok := m[key].(*object.String); ok {
		return s.Value()
	}
	return ""
}

func getInt(m map[string]object.Object, key string) int {
	switch v := m[key].(type) {
	case *object.Int:
		return int(v.Value())
	case *object.Float:
		return int(v.Value())
	}
	return 0
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}
