// Package resolve answers definition and completion requests for a cursor
// inside a script or template file of a loaded project.
package resolve

import (
	"github.com/jward/emberls/internal/ast"
	"github.com/jward/emberls/internal/layout"
	"github.com/jward/emberls/internal/project"
)

// Location is a definition target.
type Location struct {
	Path  string    `json:"path" yaml:"path"`
	Range ast.Range `json:"range" yaml:"range"`
}

// fileStart points at line 0, column 0 of path. Candidate files are found
// by name, so most definitions resolve to the start of the file.
func fileStart(path string) Location {
	return Location{Path: path}
}

// ItemKind is a completion item kind, numbered like editor completion
// kinds.
type ItemKind int

const (
	ItemText     ItemKind = 1
	ItemFunction ItemKind = 3
	ItemField    ItemKind = 5
	ItemVariable ItemKind = 6
	ItemClass    ItemKind = 7
	ItemModule   ItemKind = 9
	ItemProperty ItemKind = 10
	ItemKeyword  ItemKind = 14
	ItemFile     ItemKind = 17
)

var itemKindNames = map[ItemKind]string{
	ItemFunction: "function",
	ItemField:    "field",
	ItemVariable: "variable",
	ItemClass:    "class",
	ItemModule:   "module",
	ItemProperty: "property",
	ItemKeyword:  "keyword",
	ItemFile:     "file",
}

func (k ItemKind) String() string {
	if name, ok := itemKindNames[k]; ok {
		return name
	}
	return "text"
}

// CompletionItem is one completion candidate. Labels are unique within a
// completion result.
type CompletionItem struct {
	Label  string   `json:"label" yaml:"label"`
	Kind   ItemKind `json:"kind" yaml:"kind"`
	Detail string   `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Details of registry-backed items. Namespacing only rewrites items whose
// detail is detailComponent.
const (
	detailComponent = "component"
	detailHelper    = "helper"
	detailModifier  = "modifier"
	detailRoute     = "route"
	detailModel     = "model"
	detailTransform = "transform"
	detailService   = "service"
)

// Request identifies a cursor inside an open document. Text is the
// document content as the editor has it, which may differ from disk.
type Request struct {
	Project  *project.Project
	Path     string
	Text     string
	Position ast.Position
}

// IsTemplate reports whether the document is a template file.
func (r Request) IsTemplate() bool {
	return layout.IsTemplate(r.Path)
}

// DefinitionRequest is a definition lookup. Results are the locations
// collected before this engine ran; they are returned unchanged when the
// cursor references nothing this engine understands.
type DefinitionRequest struct {
	Request
	Results []Location
}

// CompletionRequest is a completion lookup. Results are carried through
// like DefinitionRequest.Results.
type CompletionRequest struct {
	Request
	Results []CompletionItem
}

// uniqueLabels keeps the first item of each label.
func uniqueLabels(items []CompletionItem) []CompletionItem {
	seen := make(map[string]bool, len(items))
	out := make([]CompletionItem, 0, len(items))
	for _, it := range items {
		if seen[it.Label] {
			continue
		}
		seen[it.Label] = true
		out = append(out, it)
	}
	return out
}

// uniquePaths keeps the first occurrence of each path.
func uniquePaths(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func uniqueLocations(locs []Location) []Location {
	seen := make(map[Location]bool, len(locs))
	out := make([]Location, 0, len(locs))
	for _, l := range locs {
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
