// Package ast defines the node tree shared by the script and template
// parsers, along with positions and the cursor Path used by the classifier.
package ast

// Position is a zero-based line/column pair.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"character"`
}

// Before reports whether p sorts strictly before o.
func (p Position) Before(o Position) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Column < o.Column
}

// Range is an inclusive span between two positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// IsZero reports whether the range carries no location information.
func (r Range) IsZero() bool {
	return r == Range{}
}

// Contains reports whether pos lies within r, both ends inclusive.
func (r Range) Contains(pos Position) bool {
	if r.IsZero() {
		return false
	}
	return !pos.Before(r.Start) && !r.End.Before(pos)
}

// NodeKind names the syntactic category of a node.
type NodeKind string

// Script node kinds.
const (
	KindProgram                  NodeKind = "Program"
	KindIdentifier               NodeKind = "Identifier"
	KindStringLiteral            NodeKind = "StringLiteral"
	KindCallExpression           NodeKind = "CallExpression"
	KindMemberExpression         NodeKind = "MemberExpression"
	KindObjectExpression         NodeKind = "ObjectExpression"
	KindObjectProperty           NodeKind = "ObjectProperty"
	KindImportDeclaration        NodeKind = "ImportDeclaration"
	KindImportSpecifier          NodeKind = "ImportSpecifier"
	KindImportDefaultSpecifier   NodeKind = "ImportDefaultSpecifier"
	KindTaggedTemplateExpression NodeKind = "TaggedTemplateExpression"
	KindTemplateLiteral          NodeKind = "TemplateLiteral"
	KindTemplateElement          NodeKind = "TemplateElement"
	KindClassProperty            NodeKind = "ClassProperty"
	KindDecorator                NodeKind = "Decorator"
	KindUnknown                  NodeKind = "Unknown"
)

// Template node kinds.
const (
	KindTemplate                 NodeKind = "Template"
	KindElementNode              NodeKind = "ElementNode"
	KindAttrNode                 NodeKind = "AttrNode"
	KindTextNode                 NodeKind = "TextNode"
	KindMustacheStatement        NodeKind = "MustacheStatement"
	KindBlockStatement           NodeKind = "BlockStatement"
	KindBlock                    NodeKind = "Block"
	KindElementModifierStatement NodeKind = "ElementModifierStatement"
	KindSubExpression            NodeKind = "SubExpression"
	KindPathExpression           NodeKind = "PathExpression"
	KindHash                     NodeKind = "Hash"
	KindHashPair                 NodeKind = "HashPair"
	KindConcatStatement          NodeKind = "ConcatStatement"
	KindLiteral                  NodeKind = "Literal"
	KindCommentStatement         NodeKind = "CommentStatement"
)

// Node is implemented by every tree node of both syntaxes.
type Node interface {
	Kind() NodeKind
	Loc() Range
}

// Span carries the location of a node and implements Loc for embedders.
type Span struct {
	Range Range
}

// Loc returns the node's source range.
func (s Span) Loc() Range { return s.Range }

// IsKind reports whether n is non-nil and of kind k.
func IsKind(n Node, k NodeKind) bool {
	if isNil(n) {
		return false
	}
	return n.Kind() == k
}

// isNil catches typed nil pointers stored in the interface.
func isNil(n Node) bool {
	if n == nil {
		return true
	}
	switch v := n.(type) {
	case *Identifier:
		return v == nil
	case *StringLiteral:
		return v == nil
	case *CallExpression:
		return v == nil
	case *PathExpression:
		return v == nil
	case *ElementNode:
		return v == nil
	case *Block:
		return v == nil
	case *Hash:
		return v == nil
	case *TemplateLiteral:
		return v == nil
	}
	return false
}
