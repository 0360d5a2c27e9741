package project

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/jward/emberls/internal/layout"
	"github.com/jward/emberls/internal/vfs"
)

// NamespacingAddon enables addon-qualified component names when listed as a
// dependency.
const NamespacingAddon = "ember-holy-futuristic-template-namespacing-batman"

// Package is the subset of package.json the engine reads.
type Package struct {
	Name            string            `json:"name"`
	Keywords        []string          `json:"keywords"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	EmberAddon      struct {
		Paths []string `json:"paths"`
	} `json:"ember-addon"`
	LanguageServer struct {
		Script string `json:"script"`
	} `json:"ember-language-server"`
}

// IsAddon reports whether the package declares itself an Ember addon.
func (p *Package) IsAddon() bool {
	return slices.Contains(p.Keywords, "ember-addon")
}

// HasDependency reports whether name is a dependency or dev dependency.
func (p *Package) HasDependency(name string) bool {
	_, ok := p.Dependencies[name]
	if !ok {
		_, ok = p.DevDependencies[name]
	}
	return ok
}

// AllDependencies returns dependency names, dependencies before dev
// dependencies, each group sorted.
func (p *Package) AllDependencies() []string {
	deps := make([]string, 0, len(p.Dependencies)+len(p.DevDependencies))
	for name := range p.Dependencies {
		deps = append(deps, name)
	}
	slices.Sort(deps)
	var dev []string
	for name := range p.DevDependencies {
		if _, ok := p.Dependencies[name]; !ok {
			dev = append(dev, name)
		}
	}
	slices.Sort(dev)
	return append(deps, dev...)
}

// ReadPackage parses <root>/package.json.
func ReadPackage(fsys vfs.FS, root string) (*Package, error) {
	path := filepath.Join(root, "package.json")
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("project: read %s: %w", path, err)
	}
	var pkg Package
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("project: parse %s: %w", path, err)
	}
	return &pkg, nil
}

// AddonMeta describes an addon composed into a project.
type AddonMeta struct {
	Name string `json:"name" yaml:"name"`
	Root string `json:"root" yaml:"root"`
	// Script is the absolute path of the addon's provider script, if any.
	Script string `json:"script,omitempty" yaml:"script,omitempty"`
}

// Info returns the layout view of the addon.
func (a AddonMeta) Info() layout.AddonInfo {
	return layout.AddonInfo{Name: a.Name, Root: a.Root}
}

// AddonProvider resolves the ordered addons composed into a root.
type AddonProvider interface {
	Addons(ctx context.Context, root string) ([]AddonMeta, error)
}

// PackageAddons is the default AddonProvider. It reads package.json:
// dependencies whose own package.json carries the ember-addon keyword and
// in-repo addons listed under ember-addon.paths, then any extra roots.
type PackageAddons struct {
	FS vfs.FS
	// IncludeModules resolves dependencies from node_modules.
	IncludeModules bool
	// Extra roots are appended after discovered addons.
	Extra []string
}

// Addons implements AddonProvider.
func (p PackageAddons) Addons(ctx context.Context, root string) ([]AddonMeta, error) {
	pkg, err := ReadPackage(p.FS, root)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{filepath.Clean(root): true}
	var out []AddonMeta
	add := func(addonRoot string) {
		addonRoot = filepath.Clean(addonRoot)
		if seen[addonRoot] {
			return
		}
		meta, ok := p.addonAt(addonRoot)
		if !ok {
			return
		}
		seen[addonRoot] = true
		out = append(out, meta)
	}

	for _, rel := range pkg.EmberAddon.Paths {
		add(filepath.Join(root, rel))
	}
	if p.IncludeModules {
		for _, dep := range pkg.AllDependencies() {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			if dir, ok := p.resolveModule(root, dep); ok {
				add(dir)
			}
		}
	}
	for _, extra := range p.Extra {
		add(extra)
	}
	return out, nil
}

func (p PackageAddons) addonAt(root string) (AddonMeta, bool) {
	pkg, err := ReadPackage(p.FS, root)
	if err != nil || !pkg.IsAddon() {
		return AddonMeta{}, false
	}
	meta := AddonMeta{Name: pkg.Name, Root: root}
	if pkg.LanguageServer.Script != "" {
		meta.Script = filepath.Join(root, pkg.LanguageServer.Script)
	}
	return meta, true
}

// resolveModule finds node_modules/<name> in root or its ancestors.
func (p PackageAddons) resolveModule(root, name string) (string, bool) {
	dir := filepath.Clean(root)
	for {
		candidate := filepath.Join(dir, "node_modules", filepath.FromSlash(name))
		if p.FS.Exists(filepath.Join(candidate, "package.json")) {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
