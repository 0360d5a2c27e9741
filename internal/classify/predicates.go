package classify

import (
	"slices"
	"strings"

	"github.com/jward/emberls/internal/ast"
)

// Predicates inspect the focused node and at most two ancestors. They are
// total: any nil or unexpected shape yields false.

var (
	modelCallees     = []string{"belongsTo", "hasMany"}
	storeLookups     = []string{"findRecord", "createRecord", "findAll", "queryRecord", "peekAll", "query", "peekRecord", "adapterFor", "hasRecordForId"}
	routeTransitions = []string{"transitionTo", "replaceWith", "replaceRoute", "modelFor", "controllerFor", "intermediateTransitionTo", "paramsFor", "transitionToRoute"}
)

// calleeName resolves foo(...) and x.foo(...) to "foo".
func calleeName(call *ast.CallExpression) string {
	if call == nil {
		return ""
	}
	switch c := call.Callee.(type) {
	case *ast.Identifier:
		if c != nil {
			return c.Name
		}
	case *ast.MemberExpression:
		if c != nil {
			if id, ok := c.Property.(*ast.Identifier); ok && id != nil {
				return id.Name
			}
		}
	}
	return ""
}

func isMemberCall(call *ast.CallExpression) bool {
	_, ok := call.Callee.(*ast.MemberExpression)
	return ok
}

// argumentIndex returns the position of n in call's arguments, or -1.
func argumentIndex(call *ast.CallExpression, n ast.Node) int {
	if call == nil {
		return -1
	}
	for i, arg := range call.Arguments {
		if arg == n {
			return i
		}
	}
	return -1
}

// stringArgOf returns the call whose first-or-later argument is the
// focused string literal.
func stringArgOf(p *ast.Path) (*ast.CallExpression, int, bool) {
	if !ast.IsKind(p.Node(), ast.KindStringLiteral) {
		return nil, -1, false
	}
	call, ok := p.Parent().(*ast.CallExpression)
	if !ok || call == nil {
		return nil, -1, false
	}
	idx := argumentIndex(call, p.Node())
	return call, idx, idx >= 0
}

func isModelReference(p *ast.Path) bool {
	call, idx, ok := stringArgOf(p)
	if !ok || idx != 0 {
		return false
	}
	name := calleeName(call)
	if slices.Contains(modelCallees, name) {
		return true
	}
	return isMemberCall(call) && slices.Contains(storeLookups, name)
}

func isTransformReference(p *ast.Path) bool {
	call, idx, ok := stringArgOf(p)
	return ok && idx == 0 && calleeName(call) == "attr"
}

func isNamedServiceInjection(p *ast.Path) bool {
	call, idx, ok := stringArgOf(p)
	return ok && idx == 0 && calleeName(call) == "service"
}

func isRouteLookup(p *ast.Path) bool {
	call, idx, ok := stringArgOf(p)
	if !ok || idx != 0 || !isMemberCall(call) {
		return false
	}
	return slices.Contains(routeTransitions, calleeName(call))
}

func isImportPathDeclaration(p *ast.Path) bool {
	return ast.IsKind(p.Node(), ast.KindStringLiteral) && ast.IsKind(p.Parent(), ast.KindImportDeclaration)
}

func isImportSpecifier(p *ast.Path) bool {
	return ast.IsKind(p.Node(), ast.KindIdentifier) && ast.IsKind(p.Parent(), ast.KindImportSpecifier)
}

func isImportDefaultSpecifier(p *ast.Path) bool {
	return ast.IsKind(p.Node(), ast.KindIdentifier) && ast.IsKind(p.Parent(), ast.KindImportDefaultSpecifier)
}

func isServiceInjection(p *ast.Path) bool {
	id, ok := p.Node().(*ast.Identifier)
	if !ok || id == nil {
		return false
	}
	switch parent := p.Parent().(type) {
	case *ast.ObjectProperty:
		if parent == nil || parent.Key != ast.Node(id) {
			return false
		}
		call, ok := parent.Value.(*ast.CallExpression)
		return ok && calleeName(call) == "service"
	case *ast.ClassProperty:
		if parent == nil || parent.Key != ast.Node(id) {
			return false
		}
		return ServiceDecorator(parent) != nil
	}
	return false
}

// ServiceDecorator returns the @service or @service(...) decorator of a
// class property, if any.
func ServiceDecorator(prop *ast.ClassProperty) *ast.Decorator {
	if prop == nil {
		return nil
	}
	for _, d := range prop.Decorators {
		if d == nil {
			continue
		}
		switch e := d.Expression.(type) {
		case *ast.Identifier:
			if e != nil && e.Name == "service" {
				return d
			}
		case *ast.CallExpression:
			if calleeName(e) == "service" {
				return d
			}
		}
	}
	return nil
}

func isInlineTemplateTag(p *ast.Path) bool {
	if !ast.IsKind(p.Node(), ast.KindTemplateElement) || !ast.IsKind(p.Parent(), ast.KindTemplateLiteral) {
		return false
	}
	tagged, ok := p.ParentFromLevel(2).(*ast.TaggedTemplateExpression)
	if !ok || tagged == nil {
		return false
	}
	tag, ok := tagged.Tag.(*ast.Identifier)
	return ok && tag != nil && tag.Name == "hbs"
}

func isAngleComponentShape(el *ast.ElementNode) bool {
	if el.Tag == "" {
		return true
	}
	first := el.Tag[:1]
	return strings.ToUpper(first) == first
}

func isNamedBlockName(p *ast.Path) bool {
	el, ok := p.Node().(*ast.ElementNode)
	if !ok || el == nil || p.Parent() == nil {
		return false
	}
	return isAngleComponentShape(el) && strings.HasPrefix(el.Tag, ":")
}

func isAngleComponent(p *ast.Path) bool {
	el, ok := p.Node().(*ast.ElementNode)
	if !ok || el == nil {
		return false
	}
	return isAngleComponentShape(el) && !isNamedBlockName(p)
}

func isComponentArgumentName(p *ast.Path) bool {
	attr, ok := p.Node().(*ast.AttrNode)
	return ok && attr != nil && strings.HasPrefix(attr.Name, "@")
}

func isLinkComponentRouteTarget(p *ast.Path) bool {
	if !ast.IsKind(p.Node(), ast.KindTextNode) {
		return false
	}
	attr, ok := p.Parent().(*ast.AttrNode)
	return ok && attr != nil && attr.Name == "@route"
}

func isInlineLinkToTarget(p *ast.Path) bool {
	if !ast.IsKind(p.Node(), ast.KindStringLiteral) {
		return false
	}
	m, ok := p.Parent().(*ast.MustacheStatement)
	if !ok || m == nil || len(m.Params) < 2 {
		return false
	}
	return m.Params[1] == p.Node() && pathOriginal(m.Path) == "link-to"
}

func isBlockLinkToTarget(p *ast.Path) bool {
	if !ast.IsKind(p.Node(), ast.KindStringLiteral) {
		return false
	}
	b, ok := p.Parent().(*ast.BlockStatement)
	if !ok || b == nil || len(b.Params) < 1 {
		return false
	}
	return b.Params[0] == p.Node() && pathOriginal(b.Path) == "link-to"
}

func pathOriginal(n ast.Node) string {
	if pe, ok := n.(*ast.PathExpression); ok && pe != nil {
		return pe.Original
	}
	return ""
}

func focusedPath(p *ast.Path) (*ast.PathExpression, bool) {
	pe, ok := p.Node().(*ast.PathExpression)
	return pe, ok && pe != nil
}

func isOutlet(p *ast.Path) bool {
	pe, ok := focusedPath(p)
	return ok && pe.Original == "outlet" && !pe.This && !pe.Data
}

func isLocalPathExpression(p *ast.Path) bool {
	pe, ok := focusedPath(p)
	return ok && pe.This
}

func isArgumentPathExpression(p *ast.Path) bool {
	pe, ok := focusedPath(p)
	return ok && pe.Data
}

// operatorOf reports the statement kind in which the focused path sits in
// operator position, or "" when it is a param or hash value.
func operatorOf(p *ast.Path) ast.NodeKind {
	pe, ok := focusedPath(p)
	if !ok {
		return ""
	}
	switch parent := p.Parent().(type) {
	case *ast.MustacheStatement:
		if parent != nil && parent.Path == ast.Node(pe) {
			return ast.KindMustacheStatement
		}
	case *ast.BlockStatement:
		if parent != nil && parent.Path == ast.Node(pe) {
			return ast.KindBlockStatement
		}
	case *ast.SubExpression:
		if parent != nil && parent.Path == ast.Node(pe) {
			return ast.KindSubExpression
		}
	case *ast.ElementModifierStatement:
		if parent != nil && parent.Path == ast.Node(pe) {
			return ast.KindElementModifierStatement
		}
	}
	return ""
}

// isPlainPath is a path with neither this nor @ head that is not {{outlet}}.
func isPlainPath(p *ast.Path) bool {
	pe, ok := focusedPath(p)
	return ok && !pe.This && !pe.Data && !isOutlet(p)
}

func isModifierPath(p *ast.Path) bool {
	return isPlainPath(p) && operatorOf(p) == ast.KindElementModifierStatement
}

func isMustachePath(p *ast.Path) bool {
	return isPlainPath(p) && operatorOf(p) == ast.KindMustacheStatement
}

func isBlockPath(p *ast.Path) bool {
	return isPlainPath(p) && operatorOf(p) == ast.KindBlockStatement
}

func isSubExpressionPath(p *ast.Path) bool {
	return isPlainPath(p) && operatorOf(p) == ast.KindSubExpression
}

func isScopedPathExpression(p *ast.Path) bool {
	return isPlainPath(p) && operatorOf(p) == ""
}
