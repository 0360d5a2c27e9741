// Package classify assigns a reference kind to a cursor path.
package classify

// Kind is the reference kind of a cursor position. The zero value None
// means no predicate matched.
type Kind int

const (
	None Kind = iota

	// Template kinds.
	NamedBlockName
	AngleComponent
	ComponentArgumentName
	LinkComponentRouteTarget
	InlineLinkToTarget
	BlockLinkToTarget
	Outlet
	LocalPathExpression
	ArgumentPathExpression
	ModifierPath
	MustachePath
	BlockPath
	SubExpressionPath
	ScopedPathExpression

	// Script kinds.
	InlineTemplateTag
	ModelReference
	TransformReference
	ImportPathDeclaration
	ImportSpecifier
	ImportDefaultSpecifier
	ServiceInjection
	NamedServiceInjection
	RouteLookup
)

var kindNames = map[Kind]string{
	None:                     "none",
	NamedBlockName:           "named-block-name",
	AngleComponent:           "angle-component",
	ComponentArgumentName:    "component-argument-name",
	LinkComponentRouteTarget: "link-component-route-target",
	InlineLinkToTarget:       "inline-link-to-target",
	BlockLinkToTarget:        "block-link-to-target",
	Outlet:                   "outlet",
	LocalPathExpression:      "local-path-expression",
	ArgumentPathExpression:   "argument-path-expression",
	ModifierPath:             "modifier-path",
	MustachePath:             "mustache-path",
	BlockPath:                "block-path",
	SubExpressionPath:        "sub-expression-path",
	ScopedPathExpression:     "scoped-path-expression",
	InlineTemplateTag:        "inline-template-tag",
	ModelReference:           "model-reference",
	TransformReference:       "transform-reference",
	ImportPathDeclaration:    "import-path-declaration",
	ImportSpecifier:          "import-specifier",
	ImportDefaultSpecifier:   "import-default-specifier",
	ServiceInjection:         "service-injection",
	NamedServiceInjection:    "named-service-injection",
	RouteLookup:              "route-lookup",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalText renders the kind by name for JSON and YAML output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// IsLinkToTarget reports whether k is either link-to target variant.
func (k Kind) IsLinkToTarget() bool {
	return k == InlineLinkToTarget || k == BlockLinkToTarget
}

// IsPathExpression reports whether k classifies a template path expression.
func (k Kind) IsPathExpression() bool {
	switch k {
	case Outlet, LocalPathExpression, ArgumentPathExpression, ModifierPath,
		MustachePath, BlockPath, SubExpressionPath, ScopedPathExpression:
		return true
	}
	return false
}
