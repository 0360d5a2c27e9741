package layout

import (
	"fmt"
	"path/filepath"
	"strings"
)

// AddonPaths resolves symbol files across every addon composed into a
// root. Addon shapes are found by walking addon roots, not by a formula on
// one root.
type AddonPaths interface {
	Candidates(root string, t SymbolType, name string) []string
	Templates(root string, t SymbolType, name string) []string
}

type pathFunc func(root, name, podPrefix string) []string

type layoutKey struct {
	conv Convention
	typ  SymbolType
}

// classicDirs is the app/ subdirectory of each symbol type.
var classicDirs = map[SymbolType]string{
	Component: "components",
	Helper:    "helpers",
	Modifier:  "modifiers",
	Service:   "services",
	Model:     "models",
	Transform: "transforms",
	Route:     "routes",
}

func routeDir(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}

func podRoot(root, podPrefix string) string {
	if podPrefix == "" {
		podPrefix = DefaultPodPrefix
	}
	return filepath.Join(root, podPrefix)
}

func classicType(t SymbolType) pathFunc {
	return func(root, name, _ string) []string {
		return withScriptExts(root, "app", classicDirs[t], name)
	}
}

func podType(kind string) pathFunc {
	return func(root, name, podPrefix string) []string {
		return withScriptExts(podRoot(root, podPrefix), name, kind)
	}
}

// scriptLayouts is the explicit dispatch table for script candidates.
var scriptLayouts = map[layoutKey]pathFunc{
	{Classic, Component}: classicType(Component),
	{Classic, Helper}:    classicType(Helper),
	{Classic, Modifier}:  classicType(Modifier),
	{Classic, Service}:   classicType(Service),
	{Classic, Model}:     classicType(Model),
	{Classic, Transform}: classicType(Transform),
	{Classic, Route}: func(root, name, _ string) []string {
		dir := routeDir(name)
		return append(
			withScriptExts(root, "app", "routes", dir),
			withScriptExts(root, "app", "controllers", dir)...,
		)
	},

	{Pod, Component}: func(root, name, podPrefix string) []string {
		return withScriptExts(podRoot(root, podPrefix), "components", name, "component")
	},
	{Pod, Model}:     podType("model"),
	{Pod, Service}:   podType("service"),
	{Pod, Transform}: podType("transform"),
	{Pod, Route}: func(root, name, podPrefix string) []string {
		dir := routeDir(name)
		return append(
			withScriptExts(podRoot(root, podPrefix), dir, "route"),
			withScriptExts(podRoot(root, podPrefix), dir, "controller")...,
		)
	},

	{ModuleUnification, Component}: func(root, name, _ string) []string {
		return withScriptExts(root, "src", "ui", "components", name, "component")
	},
	{ModuleUnification, Helper}: func(root, name, _ string) []string {
		return withScriptExts(root, "src", "ui", "components", name, "helper")
	},
	{ModuleUnification, Modifier}: func(root, name, _ string) []string {
		return withScriptExts(root, "src", "ui", "components", name, "modifier")
	},
	{ModuleUnification, Service}: func(root, name, _ string) []string {
		return withScriptExts(root, "src", "services", name)
	},
	{ModuleUnification, Model}: func(root, name, _ string) []string {
		return withScriptExts(root, "src", "data", "models", name, "model")
	},
	{ModuleUnification, Transform}: func(root, name, _ string) []string {
		return withScriptExts(root, "src", "data", "transforms", name)
	},
	{ModuleUnification, Route}: func(root, name, _ string) []string {
		return withScriptExts(root, "src", "ui", "routes", routeDir(name), "route")
	},
}

// templateLayouts is the dispatch table for template candidates. Only
// components and routes have templates.
var templateLayouts = map[layoutKey]pathFunc{
	{Classic, Component}: func(root, name, _ string) []string {
		return []string{
			filepath.Join(root, "app", "components", name+".hbs"),
			filepath.Join(root, "app", "templates", "components", name+".hbs"),
			filepath.Join(root, "app", "components", name, "index.hbs"),
		}
	},
	{Classic, Route}: func(root, name, _ string) []string {
		return []string{filepath.Join(root, "app", "templates", routeDir(name)+".hbs")}
	},
	{Pod, Component}: func(root, name, podPrefix string) []string {
		return []string{filepath.Join(podRoot(root, podPrefix), "components", name, "template.hbs")}
	},
	{Pod, Route}: func(root, name, podPrefix string) []string {
		return []string{filepath.Join(podRoot(root, podPrefix), routeDir(name), "template.hbs")}
	},
	{ModuleUnification, Component}: func(root, name, _ string) []string {
		return []string{filepath.Join(root, "src", "ui", "components", name, "template.hbs")}
	},
	{ModuleUnification, Route}: func(root, name, _ string) []string {
		return []string{filepath.Join(root, "src", "ui", "routes", routeDir(name), "template.hbs")}
	},
}

// Resolver generates candidate paths per convention. Addons is consulted
// for the Addon convention and may be nil when no addons are known.
type Resolver struct {
	Addons AddonPaths
}

// CandidatePaths returns the absolute script paths that could define name
// under conv, each emitted once per script extension and never
// deduplicated. podPrefix is relative to root ("app" or "app/<prefix>").
func (r *Resolver) CandidatePaths(conv Convention, root string, t SymbolType, name, podPrefix string) ([]string, error) {
	if conv == Addon {
		return r.addonPaths(root, t, name, false)
	}
	fn, ok := scriptLayouts[layoutKey{conv, t}]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrUnsupported, conv, t)
	}
	return fn(root, name, podPrefix), nil
}

// TemplatePaths returns the template files that could belong to a
// component or route.
func (r *Resolver) TemplatePaths(conv Convention, root string, t SymbolType, name, podPrefix string) ([]string, error) {
	if conv == Addon {
		return r.addonPaths(root, t, name, true)
	}
	fn, ok := templateLayouts[layoutKey{conv, t}]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s template", ErrUnsupported, conv, t)
	}
	return fn(root, name, podPrefix), nil
}

func (r *Resolver) addonPaths(root string, t SymbolType, name string, templates bool) ([]string, error) {
	if _, ok := classicDirs[t]; !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrUnsupported, Addon, t)
	}
	if templates && t != Component && t != Route {
		return nil, fmt.Errorf("%w: %s %s template", ErrUnsupported, Addon, t)
	}
	if r == nil || r.Addons == nil {
		return nil, nil
	}
	if templates {
		return r.Addons.Templates(root, t, name), nil
	}
	return r.Addons.Candidates(root, t, name), nil
}

// AddonLayout is the default AddonPaths: it lays symbols out under the
// addon/ tree of every addon root returned by Roots.
type AddonLayout struct {
	Roots func(root string) []AddonInfo
}

// Candidates implements AddonPaths.
func (a AddonLayout) Candidates(root string, t SymbolType, name string) []string {
	dir, ok := classicDirs[t]
	if !ok || a.Roots == nil {
		return nil
	}
	if t == Route {
		name = routeDir(name)
	}
	var out []string
	for _, addon := range a.Roots(root) {
		out = append(out, withScriptExts(addon.Root, "addon", dir, name)...)
	}
	return out
}

// Templates implements AddonPaths.
func (a AddonLayout) Templates(root string, t SymbolType, name string) []string {
	if a.Roots == nil {
		return nil
	}
	var out []string
	for _, addon := range a.Roots(root) {
		switch t {
		case Component:
			out = append(out,
				filepath.Join(addon.Root, "addon", "components", name+".hbs"),
				filepath.Join(addon.Root, "addon", "templates", "components", name+".hbs"),
				filepath.Join(addon.Root, "addon", "components", name, "index.hbs"),
			)
		case Route:
			out = append(out, filepath.Join(addon.Root, "addon", "templates", routeDir(name)+".hbs"))
		}
	}
	return out
}
