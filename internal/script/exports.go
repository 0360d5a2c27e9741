package script

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/emberls/internal/ast"
)

// FindExport locates the binding a module exports under name. An empty
// name or "default" matches the default export. The returned range covers
// the exported identifier, or the whole export statement when the export
// has no name of its own.
func FindExport(ctx context.Context, src []byte, lang, name string) (ast.Range, bool, error) {
	tree, err := parseTree(ctx, src, lang)
	if err != nil {
		return ast.Range{}, false, err
	}
	defer tree.Close()

	if name == "" {
		name = "default"
	}
	for _, stmt := range namedChildren(tree.RootNode()) {
		if stmt.Type() != "export_statement" {
			continue
		}
		if r, ok := matchExport(stmt, src, name); ok {
			return r, true, nil
		}
	}
	return ast.Range{}, false, nil
}

func matchExport(stmt *sitter.Node, src []byte, name string) (ast.Range, bool) {
	isDefault := false
	for i := 0; i < int(stmt.ChildCount()); i++ {
		if stmt.Child(i).Type() == "default" {
			isDefault = true
		}
	}

	if decl := stmt.ChildByFieldName("declaration"); decl != nil {
		switch decl.Type() {
		case "lexical_declaration", "variable_declaration":
			for _, d := range namedChildren(decl) {
				if d.Type() != "variable_declarator" {
					continue
				}
				if id := d.ChildByFieldName("name"); id != nil && nodeText(id, src) == name {
					return span(id).Range, true
				}
			}
		default:
			id := decl.ChildByFieldName("name")
			if isDefault && name == "default" {
				if id != nil {
					return span(id).Range, true
				}
				return span(stmt).Range, true
			}
			if id != nil && nodeText(id, src) == name {
				return span(id).Range, true
			}
		}
		return ast.Range{}, false
	}

	if isDefault {
		if name == "default" {
			return span(stmt).Range, true
		}
		return ast.Range{}, false
	}

	for _, child := range namedChildren(stmt) {
		if child.Type() != "export_clause" {
			continue
		}
		for _, spec := range namedChildren(child) {
			if spec.Type() != "export_specifier" {
				continue
			}
			exported := spec.ChildByFieldName("alias")
			if exported == nil {
				exported = spec.ChildByFieldName("name")
			}
			if exported != nil && unquote(nodeText(exported, src)) == name {
				return span(exported).Range, true
			}
		}
	}
	return ast.Range{}, false
}
