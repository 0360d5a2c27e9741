package ast

// Program is the root of a parsed script.
type Program struct {
	Span
	Body []Node
}

func (*Program) Kind() NodeKind { return KindProgram }

// Identifier is a bare name, including property keys and import bindings.
type Identifier struct {
	Span
	Name string
}

func (*Identifier) Kind() NodeKind { return KindIdentifier }

// StringLiteral is a quoted string in either syntax. Value is unquoted.
type StringLiteral struct {
	Span
	Value string
}

func (*StringLiteral) Kind() NodeKind { return KindStringLiteral }

// CallExpression is callee(arguments...).
type CallExpression struct {
	Span
	Callee    Node
	Arguments []Node
}

func (*CallExpression) Kind() NodeKind { return KindCallExpression }

// MemberExpression is object.property.
type MemberExpression struct {
	Span
	Object   Node
	Property Node
}

func (*MemberExpression) Kind() NodeKind { return KindMemberExpression }

// ObjectExpression is an object literal.
type ObjectExpression struct {
	Span
	Properties []Node
}

func (*ObjectExpression) Kind() NodeKind { return KindObjectExpression }

// ObjectProperty is key: value inside an object literal.
type ObjectProperty struct {
	Span
	Key   Node
	Value Node
}

func (*ObjectProperty) Kind() NodeKind { return KindObjectProperty }

// ImportDeclaration is import specifiers from "source".
type ImportDeclaration struct {
	Span
	Source     *StringLiteral
	Specifiers []Node
}

func (*ImportDeclaration) Kind() NodeKind { return KindImportDeclaration }

// ImportSpecifier is a named binding { imported as local }.
type ImportSpecifier struct {
	Span
	Imported *Identifier
	Local    *Identifier
}

func (*ImportSpecifier) Kind() NodeKind { return KindImportSpecifier }

// ImportDefaultSpecifier is the default binding of an import.
type ImportDefaultSpecifier struct {
	Span
	Local *Identifier
}

func (*ImportDefaultSpecifier) Kind() NodeKind { return KindImportDefaultSpecifier }

// TaggedTemplateExpression is tag`quasi`.
type TaggedTemplateExpression struct {
	Span
	Tag   Node
	Quasi *TemplateLiteral
}

func (*TaggedTemplateExpression) Kind() NodeKind { return KindTaggedTemplateExpression }

// TemplateLiteral is a backtick string.
type TemplateLiteral struct {
	Span
	Quasis []*TemplateElement
}

func (*TemplateLiteral) Kind() NodeKind { return KindTemplateLiteral }

// TemplateElement is one raw chunk of a template literal.
type TemplateElement struct {
	Span
	Raw string
}

func (*TemplateElement) Kind() NodeKind { return KindTemplateElement }

// ClassProperty is a class field, possibly decorated.
type ClassProperty struct {
	Span
	Key        Node
	Value      Node
	Decorators []*Decorator
}

func (*ClassProperty) Kind() NodeKind { return KindClassProperty }

// Decorator is @expression.
type Decorator struct {
	Span
	Expression Node
}

func (*Decorator) Kind() NodeKind { return KindDecorator }

// Unknown preserves the shape of script constructs the classifier never
// inspects directly, so cursor paths stay connected.
type Unknown struct {
	Span
	Type     string
	Children []Node
}

func (*Unknown) Kind() NodeKind { return KindUnknown }
