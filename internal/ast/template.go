package ast

// Template is the root of a parsed template.
type Template struct {
	Span
	Body []Node
}

func (*Template) Kind() NodeKind { return KindTemplate }

// ElementNode is an HTML element or angle-bracket component invocation.
type ElementNode struct {
	Span
	Tag         string
	Attributes  []*AttrNode
	Modifiers   []*ElementModifierStatement
	Children    []Node
	BlockParams []string
	SelfClosing bool
}

func (*ElementNode) Kind() NodeKind { return KindElementNode }

// AttrNode is name=value on an element. Value is a TextNode,
// MustacheStatement or ConcatStatement.
type AttrNode struct {
	Span
	Name  string
	Value Node
}

func (*AttrNode) Kind() NodeKind { return KindAttrNode }

// TextNode is literal template text.
type TextNode struct {
	Span
	Chars string
}

func (*TextNode) Kind() NodeKind { return KindTextNode }

// MustacheStatement is {{path params hash}}.
type MustacheStatement struct {
	Span
	Path     Node
	Params   []Node
	Hash     *Hash
	Trusting bool
}

func (*MustacheStatement) Kind() NodeKind { return KindMustacheStatement }

// BlockStatement is {{#path params hash as |x|}}...{{else}}...{{/path}}.
type BlockStatement struct {
	Span
	Path    Node
	Params  []Node
	Hash    *Hash
	Program *Block
	Inverse *Block
}

func (*BlockStatement) Kind() NodeKind { return KindBlockStatement }

// Block is the body of a block statement.
type Block struct {
	Span
	Body        []Node
	BlockParams []string
}

func (*Block) Kind() NodeKind { return KindBlock }

// ElementModifierStatement is {{path ...}} in element attribute position.
type ElementModifierStatement struct {
	Span
	Path   Node
	Params []Node
	Hash   *Hash
}

func (*ElementModifierStatement) Kind() NodeKind { return KindElementModifierStatement }

// SubExpression is (path params hash).
type SubExpression struct {
	Span
	Path   Node
	Params []Node
	Hash   *Hash
}

func (*SubExpression) Kind() NodeKind { return KindSubExpression }

// PathExpression is a dotted lookup. This is set for this.x paths and Data
// for @x paths; Parts excludes the this/@ head marker.
type PathExpression struct {
	Span
	Original string
	Parts    []string
	This     bool
	Data     bool
}

func (*PathExpression) Kind() NodeKind { return KindPathExpression }

// Head returns the first segment after any this/@ marker.
func (p *PathExpression) Head() string {
	if p == nil || len(p.Parts) == 0 {
		return ""
	}
	return p.Parts[0]
}

// Hash holds key=value pairs of a statement.
type Hash struct {
	Span
	Pairs []*HashPair
}

func (*Hash) Kind() NodeKind { return KindHash }

// HashPair is key=value.
type HashPair struct {
	Span
	Key   string
	Value Node
}

func (*HashPair) Kind() NodeKind { return KindHashPair }

// ConcatStatement is a quoted attribute value mixing text and mustaches.
type ConcatStatement struct {
	Span
	Parts []Node
}

func (*ConcatStatement) Kind() NodeKind { return KindConcatStatement }

// Literal is a number, boolean, null or undefined literal.
type Literal struct {
	Span
	Raw string
}

func (*Literal) Kind() NodeKind { return KindLiteral }

// CommentStatement is an HTML or mustache comment.
type CommentStatement struct {
	Span
	Value string
}

func (*CommentStatement) Kind() NodeKind { return KindCommentStatement }
