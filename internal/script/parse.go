// Package script adapts tree-sitter JavaScript and TypeScript trees to the
// shared ast node tree, and extracts exports, class members and project
// settings from script sources.
package script

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/emberls/internal/ast"
)

// Parse parses script source with the grammar for lang. tree-sitter
// recovers from syntax errors, so a partial program is returned for
// malformed input.
func Parse(ctx context.Context, src []byte, lang string) (*ast.Program, error) {
	tree, err := parseTree(ctx, src, lang)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	c := &converter{src: src}
	root := tree.RootNode()
	prog := &ast.Program{Span: span(root)}
	for _, child := range namedChildren(root) {
		prog.Body = append(prog.Body, c.convert(child))
	}
	return prog, nil
}

func parseTree(ctx context.Context, src []byte, lang string) (*sitter.Tree, error) {
	grammar, ok := ParserForLanguage(lang)
	if !ok {
		return nil, fmt.Errorf("script: unsupported language %q", lang)
	}
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("script: parse: %w", err)
	}
	return tree, nil
}

func span(n *sitter.Node) ast.Span {
	return ast.Span{Range: ast.Range{
		Start: point(n.StartPoint()),
		End:   point(n.EndPoint()),
	}}
}

func point(p sitter.Point) ast.Position {
	return ast.Position{Line: int(p.Row), Column: int(p.Column)}
}

func nodeText(n *sitter.Node, src []byte) string {
	return string(src[n.StartByte():n.EndByte()])
}

// namedChildren returns n's named children without comments.
func namedChildren(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child == nil || child.Type() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

func unquote(s string) string {
	if len(s) >= 2 {
		q := s[0]
		if (q == '"' || q == '\'' || q == '`') && s[len(s)-1] == q {
			return s[1 : len(s)-1]
		}
	}
	return strings.Trim(s, "\"'`")
}

type converter struct {
	src []byte
}

func (c *converter) convert(n *sitter.Node) ast.Node {
	if n == nil {
		return nil
	}
	sp := span(n)
	switch n.Type() {
	case "identifier", "property_identifier", "shorthand_property_identifier",
		"type_identifier", "private_property_identifier":
		return &ast.Identifier{Span: sp, Name: nodeText(n, c.src)}

	case "string":
		return &ast.StringLiteral{Span: sp, Value: unquote(nodeText(n, c.src))}

	case "call_expression":
		fn := n.ChildByFieldName("function")
		args := n.ChildByFieldName("arguments")
		if args != nil && args.Type() == "template_string" {
			return &ast.TaggedTemplateExpression{
				Span:  sp,
				Tag:   c.convert(fn),
				Quasi: c.templateLiteral(args),
			}
		}
		call := &ast.CallExpression{Span: sp, Callee: c.convert(fn)}
		if args != nil {
			for _, arg := range namedChildren(args) {
				call.Arguments = append(call.Arguments, c.convert(arg))
			}
		}
		return call

	case "member_expression":
		return &ast.MemberExpression{
			Span:     sp,
			Object:   c.convert(n.ChildByFieldName("object")),
			Property: c.convert(n.ChildByFieldName("property")),
		}

	case "object":
		obj := &ast.ObjectExpression{Span: sp}
		for _, child := range namedChildren(n) {
			obj.Properties = append(obj.Properties, c.convert(child))
		}
		return obj

	case "pair":
		return &ast.ObjectProperty{
			Span:  sp,
			Key:   c.convert(n.ChildByFieldName("key")),
			Value: c.convert(n.ChildByFieldName("value")),
		}

	case "import_statement":
		return c.importDeclaration(n)

	case "template_string":
		return c.templateLiteral(n)

	case "field_definition", "public_field_definition":
		key := n.ChildByFieldName("property")
		if key == nil {
			key = n.ChildByFieldName("name")
		}
		prop := &ast.ClassProperty{
			Span:  sp,
			Key:   c.convert(key),
			Value: c.convert(n.ChildByFieldName("value")),
		}
		for _, child := range namedChildren(n) {
			if child.Type() == "decorator" {
				prop.Decorators = append(prop.Decorators, c.decorator(child))
			}
		}
		return prop

	case "decorator":
		return c.decorator(n)
	}

	u := &ast.Unknown{Span: sp, Type: n.Type()}
	for _, child := range namedChildren(n) {
		u.Children = append(u.Children, c.convert(child))
	}
	return u
}

func (c *converter) decorator(n *sitter.Node) *ast.Decorator {
	d := &ast.Decorator{Span: span(n)}
	if children := namedChildren(n); len(children) > 0 {
		d.Expression = c.convert(children[0])
	}
	return d
}

// templateLiteral keeps the raw text between the backticks as a single
// element; substitutions are not modeled.
func (c *converter) templateLiteral(n *sitter.Node) *ast.TemplateLiteral {
	lit := &ast.TemplateLiteral{Span: span(n)}
	raw := nodeText(n, c.src)
	if len(raw) < 2 {
		return lit
	}
	start := point(n.StartPoint())
	start.Column++
	end := point(n.EndPoint())
	if end.Column > 0 {
		end.Column--
	}
	lit.Quasis = []*ast.TemplateElement{{
		Span: ast.Span{Range: ast.Range{Start: start, End: end}},
		Raw:  raw[1 : len(raw)-1],
	}}
	return lit
}

func (c *converter) identifier(n *sitter.Node) *ast.Identifier {
	if n == nil {
		return nil
	}
	return &ast.Identifier{Span: span(n), Name: unquote(nodeText(n, c.src))}
}

func (c *converter) importDeclaration(n *sitter.Node) *ast.ImportDeclaration {
	decl := &ast.ImportDeclaration{Span: span(n)}
	if src := n.ChildByFieldName("source"); src != nil {
		decl.Source = &ast.StringLiteral{Span: span(src), Value: unquote(nodeText(src, c.src))}
	}
	for _, child := range namedChildren(n) {
		if child.Type() != "import_clause" {
			continue
		}
		for _, part := range namedChildren(child) {
			switch part.Type() {
			case "identifier":
				local := c.identifier(part)
				decl.Specifiers = append(decl.Specifiers, &ast.ImportDefaultSpecifier{Span: local.Span, Local: local})
			case "named_imports":
				for _, spec := range namedChildren(part) {
					if spec.Type() != "import_specifier" {
						continue
					}
					imported := c.identifier(spec.ChildByFieldName("name"))
					local := imported
					if alias := spec.ChildByFieldName("alias"); alias != nil {
						local = c.identifier(alias)
					}
					decl.Specifiers = append(decl.Specifiers, &ast.ImportSpecifier{
						Span:     span(spec),
						Imported: imported,
						Local:    local,
					})
				}
			default:
				decl.Specifiers = append(decl.Specifiers, c.convert(part))
			}
		}
	}
	return decl
}
