// Package layout maps symbols to the files that can define them under each
// project layout convention, and maps files back to symbols.
package layout

import (
	"errors"
	"path/filepath"
)

// ErrUnsupported is returned when a convention has no layout for a symbol
// type.
var ErrUnsupported = errors.New("layout: unsupported convention for symbol type")

// SymbolType is the category of a registry symbol.
type SymbolType string

const (
	Component SymbolType = "component"
	Helper    SymbolType = "helper"
	Modifier  SymbolType = "modifier"
	Service   SymbolType = "service"
	Model     SymbolType = "model"
	Transform SymbolType = "transform"
	Route     SymbolType = "route"
)

// SymbolTypes lists every symbol type.
var SymbolTypes = []SymbolType{Component, Helper, Modifier, Service, Model, Transform, Route}

// Convention is a directory-shape rule for locating symbol files.
type Convention int

const (
	Classic Convention = iota
	Pod
	ModuleUnification
	Addon
)

func (c Convention) String() string {
	switch c {
	case Classic:
		return "classic"
	case Pod:
		return "pod"
	case ModuleUnification:
		return "module-unification"
	case Addon:
		return "addon"
	}
	return "unknown"
}

// AddonInfo names an addon composed into a project and its root directory.
type AddonInfo struct {
	Name string `json:"name" yaml:"name"`
	Root string `json:"root" yaml:"root"`
}

// DefaultPodPrefix is the pod module prefix of projects that configure none.
const DefaultPodPrefix = "app"

// scriptExts are tried in this order for every script candidate.
var scriptExts = []string{".js", ".ts"}

// withScriptExts joins elems and emits one path per script extension.
func withScriptExts(elems ...string) []string {
	base := filepath.Join(elems...)
	out := make([]string, 0, len(scriptExts))
	for _, ext := range scriptExts {
		out = append(out, base+ext)
	}
	return out
}

// IsScript reports whether path has a script extension.
func IsScript(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range scriptExts {
		if ext == e {
			return true
		}
	}
	return false
}

// IsTemplate reports whether path is a template file.
func IsTemplate(path string) bool {
	return filepath.Ext(path) == ".hbs"
}
