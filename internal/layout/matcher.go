package layout

import (
	"path/filepath"
	"slices"
	"strings"
)

// Match is the symbol a file defines.
type Match struct {
	Type       SymbolType `json:"type" yaml:"type"`
	Name       string     `json:"name" yaml:"name"`
	Convention Convention `json:"-" yaml:"-"`
	Test       bool       `json:"test,omitempty" yaml:"test,omitempty"`
}

// ignoredSegments are directories never scanned for symbols.
var ignoredSegments = []string{"tmp", "dist", ".git", "node_modules"}

// dirTypes maps a classic subdirectory to the symbol type it holds.
var dirTypes = map[string]SymbolType{
	"components":  Component,
	"helpers":     Helper,
	"modifiers":   Modifier,
	"services":    Service,
	"models":      Model,
	"transforms":  Transform,
	"routes":      Route,
	"controllers": Route,
	"templates":   Route,
}

// podKinds maps a pod file stem to the symbol type it holds.
var podKinds = map[string]SymbolType{
	"model":      Model,
	"service":    Service,
	"transform":  Transform,
	"route":      Route,
	"controller": Route,
	"template":   Route,
}

// Matcher maps absolute file paths back to symbols. Conventions are tried
// in a fixed order: Classic, then Pod, then ModuleUnification.
type Matcher struct {
	podPrefix string
	roots     []string
}

// NewMatcher returns a matcher for files under roots. podPrefix is the
// root-relative pod directory ("app" when empty).
func NewMatcher(podPrefix string, roots ...string) *Matcher {
	if podPrefix == "" {
		podPrefix = DefaultPodPrefix
	}
	cleaned := make([]string, 0, len(roots))
	for _, r := range roots {
		cleaned = append(cleaned, filepath.Clean(r))
	}
	// Longest root first so nested addon roots win over the host root.
	slices.SortStableFunc(cleaned, func(a, b string) int { return len(b) - len(a) })
	return &Matcher{podPrefix: filepath.ToSlash(podPrefix), roots: cleaned}
}

// Relative returns path relative to the longest root containing it.
func (m *Matcher) Relative(path string) (string, bool) {
	path = filepath.Clean(path)
	for _, root := range m.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		return filepath.ToSlash(rel), true
	}
	return "", false
}

// Match classifies an absolute path.
func (m *Matcher) Match(path string) (Match, bool) {
	rel, ok := m.Relative(path)
	if !ok {
		return Match{}, false
	}
	return m.MatchRelative(rel)
}

// MatchRelative classifies a root-relative, slash-separated path.
func (m *Matcher) MatchRelative(rel string) (Match, bool) {
	ext := filepath.Ext(rel)
	if !IsScript(rel) && !IsTemplate(rel) {
		return Match{}, false
	}
	segs := strings.Split(strings.TrimSuffix(rel, ext), "/")
	for _, s := range segs {
		if slices.Contains(ignoredSegments, s) {
			return Match{}, false
		}
	}
	if match, ok := matchClassic(segs); ok {
		return match, true
	}
	if match, ok := matchTest(segs); ok {
		return match, true
	}
	if match, ok := m.matchPod(segs); ok {
		return match, true
	}
	return matchModuleUnification(segs)
}

func matchClassic(segs []string) (Match, bool) {
	if len(segs) < 3 {
		return Match{}, false
	}
	conv := Classic
	switch segs[0] {
	case "app":
	case "addon":
		conv = Addon
	default:
		return Match{}, false
	}
	typ, ok := dirTypes[segs[1]]
	if !ok {
		return Match{}, false
	}
	rest := segs[2:]
	if segs[1] == "templates" && rest[0] == "components" {
		typ, rest = Component, rest[1:]
	}
	return symbolFrom(typ, rest, conv)
}

func matchTest(segs []string) (Match, bool) {
	if len(segs) < 4 || segs[0] != "tests" || (segs[1] != "unit" && segs[1] != "integration") {
		return Match{}, false
	}
	typ, ok := dirTypes[segs[2]]
	if !ok || segs[2] == "templates" {
		return Match{}, false
	}
	rest := slices.Clone(segs[3:])
	last := rest[len(rest)-1]
	if !strings.HasSuffix(last, "-test") {
		return Match{}, false
	}
	rest[len(rest)-1] = strings.TrimSuffix(last, "-test")
	match, ok := symbolFrom(typ, rest, Classic)
	match.Test = ok
	return match, ok
}

func (m *Matcher) matchPod(segs []string) (Match, bool) {
	prefixes := []string{m.podPrefix}
	if m.podPrefix != DefaultPodPrefix {
		prefixes = append(prefixes, DefaultPodPrefix)
	}
	for _, prefix := range prefixes {
		pre := strings.Split(prefix, "/")
		if len(segs) <= len(pre)+1 || !slices.Equal(segs[:len(pre)], pre) {
			continue
		}
		rest := segs[len(pre):]
		stem := rest[len(rest)-1]
		dirs := rest[:len(rest)-1]
		if dirs[0] == "components" && len(dirs) > 1 && (stem == "component" || stem == "template") {
			return Match{Type: Component, Name: strings.Join(dirs[1:], "/"), Convention: Pod}, true
		}
		typ, ok := podKinds[stem]
		if !ok {
			continue
		}
		return symbolFrom(typ, dirs, Pod)
	}
	return Match{}, false
}

func matchModuleUnification(segs []string) (Match, bool) {
	if len(segs) < 3 || segs[0] != "src" {
		return Match{}, false
	}
	stem := segs[len(segs)-1]
	switch {
	case segs[1] == "data" && segs[2] == "models" && stem == "model" && len(segs) > 4:
		return muMatch(Model, segs[3:len(segs)-1])
	case segs[1] == "data" && segs[2] == "transforms" && len(segs) > 3:
		return muMatch(Transform, segs[3:])
	case segs[1] == "services":
		return muMatch(Service, segs[2:])
	case segs[1] == "ui" && segs[2] == "components" && len(segs) > 4:
		name := segs[3 : len(segs)-1]
		switch stem {
		case "component", "template":
			return muMatch(Component, name)
		case "helper":
			return muMatch(Helper, name)
		case "modifier":
			return muMatch(Modifier, name)
		}
	case segs[1] == "ui" && segs[2] == "routes" && len(segs) > 4:
		switch stem {
		case "route", "controller", "template":
			return Match{Type: Route, Name: strings.Join(segs[3:len(segs)-1], "."), Convention: ModuleUnification}, true
		}
	}
	return Match{}, false
}

func muMatch(typ SymbolType, name []string) (Match, bool) {
	if len(name) == 0 {
		return Match{}, false
	}
	return Match{Type: typ, Name: strings.Join(name, "/"), Convention: ModuleUnification}, true
}

// symbolFrom builds a match from the name segments under a type directory.
// Co-located component files drop their trailing component, template or
// index segment; route-like names are dotted.
func symbolFrom(typ SymbolType, rest []string, conv Convention) (Match, bool) {
	if typ == Component && len(rest) > 1 {
		switch rest[len(rest)-1] {
		case "component", "template", "index":
			rest = rest[:len(rest)-1]
		}
	}
	if len(rest) == 0 || rest[0] == "" {
		return Match{}, false
	}
	sep := "/"
	if typ == Route {
		sep = "."
	}
	return Match{Type: typ, Name: strings.Join(rest, sep), Convention: conv}, true
}
