package template

import (
	"strings"

	"github.com/jward/emberls/internal/ast"
)

// Blocks returns the names of the blocks a template yields to, in first-use
// order: {{yield to="name"}}, has-block / has-block-params checks, and
// "default" for a bare {{yield}}.
func Blocks(tpl *ast.Template) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	visit := func(path ast.Node, params []ast.Node, hash *ast.Hash) {
		pe, ok := path.(*ast.PathExpression)
		if !ok || pe.This || pe.Data {
			return
		}
		switch pe.Original {
		case "yield":
			to := "default"
			if hash != nil {
				for _, pair := range hash.Pairs {
					if s, ok := pair.Value.(*ast.StringLiteral); ok && pair.Key == "to" {
						to = s.Value
					}
				}
			}
			add(to)
		case "has-block", "has-block-params", "hasBlock", "hasBlockParams":
			if len(params) == 0 {
				add("default")
				return
			}
			if s, ok := params[0].(*ast.StringLiteral); ok {
				add(s.Value)
			}
		}
	}

	ast.Walk(tpl, func(n ast.Node) bool {
		switch v := n.(type) {
		case *ast.MustacheStatement:
			visit(v.Path, v.Params, v.Hash)
		case *ast.SubExpression:
			visit(v.Path, v.Params, v.Hash)
		case *ast.BlockStatement:
			visit(v.Path, v.Params, v.Hash)
		}
		return true
	})
	return names
}

// Properties returns the this.* and @* paths a template reads, in first-use
// order.
func Properties(tpl *ast.Template) []string {
	var out []string
	seen := make(map[string]bool)
	ast.Walk(tpl, func(n ast.Node) bool {
		pe, ok := n.(*ast.PathExpression)
		if !ok || (!pe.This && !pe.Data) || pe.Original == "this" {
			return true
		}
		// Paths still being typed, such as "this." or "@".
		if pe.Original == "@" || strings.HasSuffix(pe.Original, ".") {
			return true
		}
		if !seen[pe.Original] {
			seen[pe.Original] = true
			out = append(out, pe.Original)
		}
		return true
	})
	return out
}
