package classify

import (
	"github.com/jward/emberls/internal/ast"
)

type rule struct {
	kind  Kind
	match func(*ast.Path) bool
}

// rules are evaluated in order; more specific kinds come first.
var rules = []rule{
	{NamedBlockName, isNamedBlockName},
	{AngleComponent, isAngleComponent},
	{ComponentArgumentName, isComponentArgumentName},
	{LinkComponentRouteTarget, isLinkComponentRouteTarget},
	{InlineLinkToTarget, isInlineLinkToTarget},
	{BlockLinkToTarget, isBlockLinkToTarget},
	{Outlet, isOutlet},
	{LocalPathExpression, isLocalPathExpression},
	{ArgumentPathExpression, isArgumentPathExpression},
	{ModifierPath, isModifierPath},
	{MustachePath, isMustachePath},
	{BlockPath, isBlockPath},
	{SubExpressionPath, isSubExpressionPath},
	{ScopedPathExpression, isScopedPathExpression},

	{InlineTemplateTag, isInlineTemplateTag},
	{ModelReference, isModelReference},
	{TransformReference, isTransformReference},
	{ImportPathDeclaration, isImportPathDeclaration},
	{ImportSpecifier, isImportSpecifier},
	{ImportDefaultSpecifier, isImportDefaultSpecifier},
	{ServiceInjection, isServiceInjection},
	{NamedServiceInjection, isNamedServiceInjection},
	{RouteLookup, isRouteLookup},
}

// Classify returns the reference kind of the focused node, or None.
func Classify(p *ast.Path) Kind {
	if p == nil || p.Node() == nil {
		return None
	}
	for _, r := range rules {
		if r.match(p) {
			return r.kind
		}
	}
	return None
}

// Matches returns every kind whose predicate holds for p, in priority
// order. Classification is exclusive, so a well-formed path yields at most
// one kind.
func Matches(p *ast.Path) []Kind {
	if p == nil || p.Node() == nil {
		return nil
	}
	var out []Kind
	for _, r := range rules {
		if r.match(p) {
			out = append(out, r.kind)
		}
	}
	return out
}

// Kinds lists every kind in priority order.
func Kinds() []Kind {
	out := make([]Kind, len(rules))
	for i, r := range rules {
		out[i] = r.kind
	}
	return out
}
