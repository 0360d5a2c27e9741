package resolve

import (
	"slices"
	"strings"

	"github.com/jward/emberls/internal/layout"
	"github.com/jward/emberls/internal/project"
)

// addonShortName is the last path segment of a scoped addon name.
func addonShortName(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// namespaceComponents rewrites component items provided by addons into
// addon-qualified labels. An item keeps its raw label as well when the host
// project defines the same name. Items with no qualified form pass
// through.
func namespaceComponents(p *project.Project, items []CompletionItem, angle bool) []CompletionItem {
	if !p.NamespacesEnabled() || !hasComponents(items) {
		return items
	}
	qualified, host := namespacedComponents(p, angle)

	out := make([]CompletionItem, 0, len(items))
	for _, it := range items {
		labels := qualified[it.Label]
		if it.Detail != detailComponent || len(labels) == 0 {
			out = append(out, it)
			continue
		}
		if host[it.Label] {
			out = append(out, it)
		}
		for _, label := range labels {
			q := it
			q.Label = label
			out = append(out, q)
		}
	}
	return uniqueLabels(out)
}

func hasComponents(items []CompletionItem) bool {
	for _, it := range items {
		if it.Detail == detailComponent {
			return true
		}
	}
	return false
}

// namespacedComponents maps each component label to the qualified labels
// of the addons that physically contain one of its files, and reports
// which labels the host project itself defines.
func namespacedComponents(p *project.Project, angle bool) (map[string][]string, map[string]bool) {
	label := func(name string) string {
		if angle {
			return layout.ToAngleBracket(name)
		}
		return name
	}

	qualified := make(map[string][]string)
	var addonRoots []string
	for _, a := range p.Addons() {
		addonRoots = append(addonRoots, a.Root)
		short := addonShortName(a.Name)
		for name, paths := range p.Registry().LookupIn(layout.Component, a.Root) {
			if !hasDefinition(p, paths) {
				continue
			}
			key := label(name)
			q := layout.QualifiedName(short, name, angle)
			if !slices.Contains(qualified[key], q) {
				qualified[key] = append(qualified[key], q)
			}
		}
	}

	host := make(map[string]bool)
	for name, paths := range p.Registry().LookupIn(layout.Component, p.Root()) {
		for _, path := range paths {
			if !underAny(path, addonRoots) && !isTestFile(p, path) {
				host[label(name)] = true
				break
			}
		}
	}
	return qualified, host
}

func hasDefinition(p *project.Project, paths []string) bool {
	for _, path := range paths {
		if !isTestFile(p, path) {
			return true
		}
	}
	return false
}

func isTestFile(p *project.Project, path string) bool {
	m, ok := p.MatchPathToType(path)
	return ok && m.Test
}
