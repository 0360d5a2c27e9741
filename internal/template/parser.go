// Package template parses Glimmer templates into the shared ast node tree.
//
// The parser is tolerant of the partial input an editor produces while the
// user types: elements, blocks and mustaches left open at end of input are
// closed there, and stray closing tags are dropped. Mismatched closing
// blocks are still reported as errors.
package template

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jward/emberls/internal/ast"
)

// voidElements never have children or closing tags.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "command": true,
	"embed": true, "hr": true, "img": true, "input": true, "keygen": true,
	"link": true, "meta": true, "param": true, "source": true, "track": true,
	"wbr": true,
}

type stopKind int

const (
	stopEOF stopKind = iota
	stopCloseTag
	stopCloseBlock
	stopElse
)

// stop describes the terminator that ended a content run. start is the
// offset of the terminator's first byte.
type stop struct {
	kind  stopKind
	name  string
	start int
}

type parser struct {
	src        string
	pos        int
	lineStarts []int
}

// Parse parses template source into a Template root.
func Parse(src string) (*ast.Template, error) {
	p := &parser{src: src, lineStarts: []int{0}}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			p.lineStarts = append(p.lineStarts, i+1)
		}
	}

	body, st, err := p.parseContent("", false)
	if err != nil {
		return nil, err
	}
	if st.kind != stopEOF {
		return nil, p.errorf(st.start, "unexpected terminator")
	}
	return &ast.Template{Span: p.span(0, len(src)), Body: body}, nil
}

func (p *parser) position(off int) ast.Position {
	line := sort.Search(len(p.lineStarts), func(i int) bool { return p.lineStarts[i] > off }) - 1
	return ast.Position{Line: line, Column: off - p.lineStarts[line]}
}

func (p *parser) span(start, end int) ast.Span {
	return ast.Span{Range: ast.Range{Start: p.position(start), End: p.position(end)}}
}

// SyntaxError is a parse failure at a position in the template.
type SyntaxError struct {
	Pos ast.Position
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("template: %d:%d: %s", e.Pos.Line+1, e.Pos.Column, e.Msg)
}

func (p *parser) errorf(off int, format string, args ...any) error {
	return &SyntaxError{Pos: p.position(off), Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) hasPrefix(s string) bool {
	return strings.HasPrefix(p.src[p.pos:], s)
}

func (p *parser) skipWS() {
	for !p.eof() && isSpace(p.src[p.pos]) {
		p.pos++
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

// parseContent reads statements until end of input or a terminator. tag is
// the name of the directly enclosing element, if any; inBlock reports
// whether {{else}} and {{/x}} may terminate the run.
func (p *parser) parseContent(tag string, inBlock bool) ([]ast.Node, stop, error) {
	var nodes []ast.Node
	for !p.eof() {
		switch {
		case p.hasPrefix("{{"):
			start := p.pos
			inner := p.pos + 2
			if inner < len(p.src) && p.src[inner] == '~' {
				inner++
			}
			rest := p.src[inner:]
			switch {
			case strings.HasPrefix(rest, "!"):
				nodes = append(nodes, p.parseMustacheComment())
			case strings.HasPrefix(rest, "#"):
				block, err := p.parseBlock()
				if err != nil {
					return nil, stop{}, err
				}
				nodes = append(nodes, block)
			case strings.HasPrefix(rest, "/"):
				p.pos = inner + 1
				name := strings.TrimSpace(strings.TrimSuffix(p.readUntil("}}"), "~"))
				p.consume("}}")
				if !inBlock {
					return nil, stop{}, p.errorf(start, "unexpected {{/%s}}", name)
				}
				return nodes, stop{kind: stopCloseBlock, name: name, start: start}, nil
			case isElseKeyword(rest):
				if !inBlock {
					return nil, stop{}, p.errorf(start, "unexpected {{else}}")
				}
				p.pos = inner + len("else")
				return nodes, stop{kind: stopElse, start: start}, nil
			default:
				nodes = append(nodes, p.parseMustache())
			}
		case p.hasPrefix("<!--"):
			nodes = append(nodes, p.parseHTMLComment())
		case p.hasPrefix("</"):
			start := p.pos
			p.pos += 2
			name := strings.TrimSpace(p.readUntil(">"))
			p.consume(">")
			if tag != "" {
				return nodes, stop{kind: stopCloseTag, name: name, start: start}, nil
			}
		case p.startsElement():
			el, err := p.parseElement()
			if err != nil {
				return nil, stop{}, err
			}
			nodes = append(nodes, el)
		default:
			nodes = append(nodes, p.parseText())
		}
	}
	return nodes, stop{kind: stopEOF, start: len(p.src)}, nil
}

func isElseKeyword(rest string) bool {
	if !strings.HasPrefix(rest, "else") {
		return false
	}
	if len(rest) == 4 {
		return true
	}
	c := rest[4]
	return isSpace(c) || c == '}' || c == '~'
}

// startsElement reports whether the '<' at the cursor opens an element. A
// bare '<' at end of input is an element with an empty tag.
func (p *parser) startsElement() bool {
	if p.peek() != '<' {
		return false
	}
	if p.pos+1 >= len(p.src) {
		return true
	}
	c := p.src[p.pos+1]
	return c == '>' || c == ':' || c == '@' || c == '_' || isLetter(c)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// readUntil advances to the next occurrence of delim (or end of input) and
// returns the text skipped over, leaving the cursor on delim.
func (p *parser) readUntil(delim string) string {
	start := p.pos
	idx := strings.Index(p.src[p.pos:], delim)
	if idx < 0 {
		p.pos = len(p.src)
	} else {
		p.pos += idx
	}
	return p.src[start:p.pos]
}

func (p *parser) consume(s string) bool {
	if p.hasPrefix(s) {
		p.pos += len(s)
		return true
	}
	return false
}

func (p *parser) parseText() *ast.TextNode {
	start := p.pos
	p.pos++
	for !p.eof() {
		if p.hasPrefix("{{") || p.hasPrefix("</") || p.hasPrefix("<!--") || p.startsElement() {
			break
		}
		p.pos++
	}
	return &ast.TextNode{Span: p.span(start, p.pos), Chars: p.src[start:p.pos]}
}

func (p *parser) parseHTMLComment() *ast.CommentStatement {
	start := p.pos
	p.pos += len("<!--")
	value := p.readUntil("-->")
	p.consume("-->")
	return &ast.CommentStatement{Span: p.span(start, p.pos), Value: value}
}

func (p *parser) parseMustacheComment() *ast.CommentStatement {
	start := p.pos
	p.pos += 2
	p.consume("~")
	p.pos++ // !
	var value string
	if p.consume("--") {
		value = p.readUntil("--")
		for !p.eof() && !p.closesMustache(2) {
			p.pos += 2
			value += "--" + p.readUntil("--")
		}
		p.consume("--")
	} else {
		value = p.readUntil("}}")
	}
	value = strings.TrimSuffix(value, "~")
	p.consume("~")
	p.consume("}}")
	return &ast.CommentStatement{Span: p.span(start, p.pos), Value: value}
}

// closesMustache reports whether "}}" (optionally preceded by '~') follows
// the next skip bytes.
func (p *parser) closesMustache(skip int) bool {
	rest := p.src[min(p.pos+skip, len(p.src)):]
	return strings.HasPrefix(rest, "}}") || strings.HasPrefix(rest, "~}}")
}

func (p *parser) parseMustache() *ast.MustacheStatement {
	start := p.pos
	stmt := &ast.MustacheStatement{}
	closer := "}}"
	if p.hasPrefix("{{{") {
		stmt.Trusting = true
		closer = "}}}"
		p.pos += 3
	} else {
		p.pos += 2
	}
	p.consume("~")
	stmt.Path, stmt.Params, stmt.Hash, _ = p.parseCall(closer, false)
	p.closeCall(closer)
	stmt.Span = p.span(start, p.pos)
	return stmt
}

// closeCall consumes an optional '~' and the closer.
func (p *parser) closeCall(closer string) {
	p.skipWS()
	p.consume("~")
	p.consume(closer)
}

func (p *parser) parseBlock() (*ast.BlockStatement, error) {
	start := p.pos
	p.pos += 2
	p.consume("~")
	p.pos++ // #
	p.consume(">")

	stmt := &ast.BlockStatement{}
	var blockParams []string
	stmt.Path, stmt.Params, stmt.Hash, blockParams = p.parseCall("}}", true)
	p.closeCall("}}")

	end, err := p.parseBlockBody(stmt, blockParams, pathName(stmt.Path))
	if err != nil {
		return nil, err
	}
	stmt.Span = p.span(start, end)
	return stmt, nil
}

// parseBlockBody reads a block's program and any else chain up to the
// closing {{/closeName}}. It returns the offset just past the block.
func (p *parser) parseBlockBody(stmt *ast.BlockStatement, blockParams []string, closeName string) (int, error) {
	bodyStart := p.pos
	body, st, err := p.parseContent("", true)
	if err != nil {
		return 0, err
	}
	stmt.Program = &ast.Block{Span: p.span(bodyStart, st.start), Body: body, BlockParams: blockParams}

	switch st.kind {
	case stopCloseBlock:
		return p.pos, p.checkClose(st, closeName)
	case stopElse:
		elseStart := st.start
		p.skipWS()
		if p.closesMustache(0) {
			p.closeCall("}}")
			invStart := p.pos
			inv, st2, err := p.parseContent("", true)
			if err != nil {
				return 0, err
			}
			stmt.Inverse = &ast.Block{Span: p.span(invStart, st2.start), Body: inv}
			switch st2.kind {
			case stopCloseBlock:
				return p.pos, p.checkClose(st2, closeName)
			case stopElse:
				return 0, p.errorf(st2.start, "unexpected {{else}} after {{else}}")
			}
			return len(p.src), nil
		}

		nested := &ast.BlockStatement{}
		var nestedParams []string
		nested.Path, nested.Params, nested.Hash, nestedParams = p.parseCall("}}", true)
		p.closeCall("}}")
		end, err := p.parseBlockBody(nested, nestedParams, closeName)
		if err != nil {
			return 0, err
		}
		nested.Span = p.span(elseStart, end)
		stmt.Inverse = &ast.Block{Span: p.span(elseStart, end), Body: []ast.Node{nested}}
		return end, nil
	}
	return len(p.src), nil
}

func (p *parser) checkClose(st stop, want string) error {
	if st.name != want {
		return p.errorf(st.start, "{{/%s}} does not match {{#%s}}", st.name, want)
	}
	return nil
}

func pathName(n ast.Node) string {
	if pe, ok := n.(*ast.PathExpression); ok {
		return pe.Original
	}
	return ""
}

// parseCall reads "path params... key=value... [as |x y|]" up to closer
// (not consumed). Block params are only recognized when allowBlockParams
// is set.
func (p *parser) parseCall(closer string, allowBlockParams bool) (ast.Node, []ast.Node, *ast.Hash, []string) {
	var (
		path        ast.Node
		params      []ast.Node
		hash        *ast.Hash
		blockParams []string
		hashStart   int
	)
	for {
		p.skipWS()
		if p.eof() || p.hasPrefix(closer) || p.hasPrefix("~"+closer) || p.hasPrefix("}}") {
			break
		}
		if allowBlockParams && p.atBlockParams() {
			blockParams = p.parseBlockParams()
			continue
		}
		if key, start, ok := p.hashKey(); ok {
			value := p.parseExpr(closer)
			pair := &ast.HashPair{Span: p.span(start, p.pos), Key: key, Value: value}
			if hash == nil {
				hash = &ast.Hash{}
				hashStart = start
			}
			hash.Pairs = append(hash.Pairs, pair)
			hash.Span = p.span(hashStart, p.pos)
			continue
		}
		before := p.pos
		expr := p.parseExpr(closer)
		if expr == nil {
			if p.pos == before {
				p.pos++
			}
			continue
		}
		if path == nil {
			path = expr
		} else {
			params = append(params, expr)
		}
	}
	return path, params, hash, blockParams
}

func (p *parser) atBlockParams() bool {
	if !p.hasPrefix("as") {
		return false
	}
	i := p.pos + 2
	if i >= len(p.src) || !isSpace(p.src[i]) {
		return false
	}
	for i < len(p.src) && isSpace(p.src[i]) {
		i++
	}
	return i < len(p.src) && p.src[i] == '|'
}

func (p *parser) parseBlockParams() []string {
	p.pos += 2
	p.skipWS()
	p.pos++ // |
	raw := p.readUntil("|")
	p.consume("|")
	return strings.Fields(raw)
}

// hashKey recognizes "key=" and consumes it.
func (p *parser) hashKey() (string, int, bool) {
	start := p.pos
	i := p.pos
	for i < len(p.src) && isTokenChar(p.src[i]) {
		i++
	}
	if i == start || i >= len(p.src) || p.src[i] != '=' {
		return "", 0, false
	}
	p.pos = i + 1
	return p.src[start:i], start, true
}

func isTokenChar(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '}', '{', ')', '(', '=', '|', '"', '\'', '~':
		return false
	}
	return true
}

// parseExpr reads one expression: a sub-expression, string, literal or
// path. It returns nil when nothing could be read.
func (p *parser) parseExpr(closer string) ast.Node {
	p.skipWS()
	if p.eof() || p.hasPrefix(closer) {
		return nil
	}
	switch c := p.peek(); {
	case c == '(':
		return p.parseSubExpression()
	case c == '"' || c == '\'':
		return p.parseString(c)
	case isTokenChar(c):
		start := p.pos
		for !p.eof() && isTokenChar(p.peek()) {
			p.pos++
		}
		return p.literalOrPath(p.src[start:p.pos], start)
	}
	return nil
}

func (p *parser) parseSubExpression() *ast.SubExpression {
	start := p.pos
	p.pos++ // (
	sub := &ast.SubExpression{}
	sub.Path, sub.Params, sub.Hash, _ = p.parseCall(")", false)
	p.skipWS()
	p.consume(")")
	sub.Span = p.span(start, p.pos)
	return sub
}

func (p *parser) parseString(quote byte) *ast.StringLiteral {
	start := p.pos
	p.pos++
	var b strings.Builder
	for !p.eof() {
		c := p.peek()
		if c == '\\' && p.pos+1 < len(p.src) && p.src[p.pos+1] == quote {
			b.WriteByte(quote)
			p.pos += 2
			continue
		}
		if c == quote {
			p.pos++
			break
		}
		b.WriteByte(c)
		p.pos++
	}
	return &ast.StringLiteral{Span: p.span(start, p.pos), Value: b.String()}
}

func (p *parser) literalOrPath(tok string, start int) ast.Node {
	sp := p.span(start, start+len(tok))
	switch tok {
	case "true", "false", "null", "undefined":
		return &ast.Literal{Span: sp, Raw: tok}
	}
	if isNumber(tok) {
		return &ast.Literal{Span: sp, Raw: tok}
	}
	return NewPath(tok, sp)
}

func isNumber(tok string) bool {
	if tok == "" || tok == "-" {
		return false
	}
	dot := false
	for i := 0; i < len(tok); i++ {
		c := tok[i]
		switch {
		case c >= '0' && c <= '9':
		case c == '-' && i == 0:
		case c == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return true
}

// NewPath builds a PathExpression from its source text.
func NewPath(original string, sp ast.Span) *ast.PathExpression {
	pe := &ast.PathExpression{Span: sp, Original: original}
	rest := original
	switch {
	case original == "this":
		pe.This = true
		return pe
	case strings.HasPrefix(original, "this."):
		pe.This = true
		rest = original[len("this."):]
	case strings.HasPrefix(original, "@"):
		pe.Data = true
		rest = original[1:]
	}
	pe.Parts = strings.Split(rest, ".")
	return pe
}

func (p *parser) parseElement() (*ast.ElementNode, error) {
	start := p.pos
	p.pos++ // <
	tagStart := p.pos
	for !p.eof() {
		c := p.peek()
		if isSpace(c) || c == '>' || c == '/' || p.hasPrefix("{{") {
			break
		}
		p.pos++
	}
	el := &ast.ElementNode{Tag: p.src[tagStart:p.pos]}

	for {
		p.skipWS()
		switch {
		case p.eof():
			el.Span = p.span(start, p.pos)
			return el, nil
		case p.consume("/>"):
			el.SelfClosing = true
			el.Span = p.span(start, p.pos)
			return el, nil
		case p.consume(">"):
			if voidElements[el.Tag] {
				el.Span = p.span(start, p.pos)
				return el, nil
			}
			children, st, err := p.parseContent(el.Tag, false)
			if err != nil {
				return nil, err
			}
			el.Children = children
			if st.kind == stopEOF {
				el.Span = p.span(start, len(p.src))
			} else {
				el.Span = p.span(start, p.pos)
			}
			return el, nil
		case p.hasPrefix("{{"):
			el.Modifiers = append(el.Modifiers, p.parseModifier())
		case p.atBlockParams():
			el.BlockParams = p.parseBlockParams()
		case p.peek() == '/':
			p.pos++
		default:
			el.Attributes = append(el.Attributes, p.parseAttribute())
		}
	}
}

func (p *parser) parseModifier() *ast.ElementModifierStatement {
	start := p.pos
	p.pos += 2
	p.consume("~")
	mod := &ast.ElementModifierStatement{}
	mod.Path, mod.Params, mod.Hash, _ = p.parseCall("}}", false)
	p.closeCall("}}")
	mod.Span = p.span(start, p.pos)
	return mod
}

func (p *parser) parseAttribute() *ast.AttrNode {
	start := p.pos
	for !p.eof() {
		c := p.peek()
		if isSpace(c) || c == '=' || c == '>' || p.hasPrefix("/>") || p.hasPrefix("{{") {
			break
		}
		p.pos++
	}
	attr := &ast.AttrNode{Name: p.src[start:p.pos]}
	if !p.consume("=") {
		attr.Value = &ast.TextNode{Span: p.span(p.pos, p.pos)}
		attr.Span = p.span(start, p.pos)
		return attr
	}

	switch c := p.peek(); {
	case c == '"' || c == '\'':
		attr.Value = p.parseQuotedValue(c)
	case p.hasPrefix("{{"):
		attr.Value = p.parseMustache()
	default:
		vs := p.pos
		for !p.eof() && !isSpace(p.peek()) && p.peek() != '>' && !p.hasPrefix("/>") {
			p.pos++
		}
		attr.Value = &ast.TextNode{Span: p.span(vs, p.pos), Chars: p.src[vs:p.pos]}
	}
	attr.Span = p.span(start, p.pos)
	return attr
}

// parseQuotedValue returns a TextNode for plain values and a
// ConcatStatement when mustaches are interpolated.
func (p *parser) parseQuotedValue(quote byte) ast.Node {
	open := p.pos
	p.pos++
	var parts []ast.Node
	textStart := p.pos
	flush := func() {
		if p.pos > textStart {
			parts = append(parts, &ast.TextNode{Span: p.span(textStart, p.pos), Chars: p.src[textStart:p.pos]})
		}
	}
	sawMustache := false
	for !p.eof() && p.peek() != quote {
		if p.hasPrefix("{{") {
			flush()
			parts = append(parts, p.parseMustache())
			sawMustache = true
			textStart = p.pos
			continue
		}
		p.pos++
	}
	flush()
	innerEnd := p.pos
	p.consume(string(quote))

	if !sawMustache {
		return &ast.TextNode{Span: p.span(open+1, innerEnd), Chars: p.src[open+1 : innerEnd]}
	}
	return &ast.ConcatStatement{Span: p.span(open, p.pos), Parts: parts}
}
