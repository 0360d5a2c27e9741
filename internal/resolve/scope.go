package resolve

import (
	"fmt"

	"github.com/jward/emberls/internal/ast"
)

// localScope collects the block params visible at the cursor, innermost
// block first. A name bound by an inner block shadows the same name bound
// further out.
func localScope(focus *ast.Path) []CompletionItem {
	var out []CompletionItem
	seen := make(map[string]bool)
	bind := func(names []string, source string) {
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, CompletionItem{
				Label:  name,
				Kind:   ItemVariable,
				Detail: "Param from " + source,
			})
		}
	}

	for cur := focus; cur != nil && cur.ParentPath() != nil; cur = cur.ParentPath() {
		switch parent := cur.Parent().(type) {
		case *ast.Block:
			stmt, ok := cur.ParentFromLevel(2).(*ast.BlockStatement)
			if !ok || stmt.Program != parent || len(parent.BlockParams) == 0 {
				continue
			}
			bind(parent.BlockParams, fmt.Sprintf("{{#%s as |...|}}", pathText(stmt.Path)))
		case *ast.ElementNode:
			if len(parent.BlockParams) == 0 || !isChild(parent, cur.Node()) {
				continue
			}
			bind(parent.BlockParams, fmt.Sprintf("<%s as |...|>", parent.Tag))
		}
	}
	return out
}

// isChild reports whether n is in el's body rather than its attributes or
// modifiers; only the body sees the element's block params.
func isChild(el *ast.ElementNode, n ast.Node) bool {
	for _, c := range el.Children {
		if c == n {
			return true
		}
	}
	return false
}

func pathText(n ast.Node) string {
	if pe, ok := n.(*ast.PathExpression); ok && pe != nil {
		return pe.Original
	}
	return ""
}

// inScope reports whether name is a block param visible at the cursor.
func inScope(focus *ast.Path, name string) bool {
	if name == "" {
		return false
	}
	for _, it := range localScope(focus) {
		if it.Label == name {
			return true
		}
	}
	return false
}
