package script

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
)

// MemberKind classifies a component class member.
type MemberKind int

const (
	MemberProperty MemberKind = iota
	MemberComputed
	MemberFunction
)

func (k MemberKind) String() string {
	switch k {
	case MemberComputed:
		return "computed"
	case MemberFunction:
		return "function"
	}
	return "property"
}

// Member is a property, computed property or function defined by a
// component class or an Object.extend({...}) body.
type Member struct {
	Name string
	Kind MemberKind
}

// computedMacros are calls whose result is a computed property.
var computedMacros = map[string]bool{
	"computed": true, "alias": true, "and": true, "bool": true, "collect": true,
	"deprecatingAlias": true, "empty": true, "equal": true, "filter": true,
	"filterBy": true, "gt": true, "gte": true, "intersect": true, "lt": true,
	"lte": true, "map": true, "mapBy": true, "match": true, "max": true,
	"min": true, "none": true, "not": true, "notEmpty": true, "oneWay": true,
	"or": true, "readOnly": true, "reads": true, "setDiff": true, "sort": true,
	"sum": true, "union": true, "uniq": true, "uniqBy": true,
}

// ClassMembers lists the members declared by every class body and
// .extend({...}) object in the source, in source order.
func ClassMembers(ctx context.Context, src []byte, lang string) ([]Member, error) {
	tree, err := parseTree(ctx, src, lang)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var members []Member
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		switch n.Type() {
		case "class_body":
			for _, child := range namedChildren(n) {
				if m, ok := classMember(child, src); ok {
					members = append(members, m)
				}
			}
		case "call_expression":
			if isExtendCall(n, src) {
				if args := n.ChildByFieldName("arguments"); args != nil {
					for _, arg := range namedChildren(args) {
						if arg.Type() == "object" {
							members = append(members, objectMembers(arg, src)...)
						}
					}
				}
			}
		}
		for _, child := range namedChildren(n) {
			visit(child)
		}
	}
	visit(tree.RootNode())
	return members, nil
}

func classMember(n *sitter.Node, src []byte) (Member, bool) {
	switch n.Type() {
	case "field_definition", "public_field_definition":
		key := n.ChildByFieldName("property")
		if key == nil {
			key = n.ChildByFieldName("name")
		}
		if key == nil {
			return Member{}, false
		}
		m := Member{Name: unquote(nodeText(key, src)), Kind: valueKind(n.ChildByFieldName("value"), src)}
		for _, child := range namedChildren(n) {
			if child.Type() == "decorator" && computedMacros[calleeName(firstNamed(child), src)] {
				m.Kind = MemberComputed
			}
		}
		return m, true
	case "method_definition":
		name := n.ChildByFieldName("name")
		if name == nil {
			return Member{}, false
		}
		m := Member{Name: nodeText(name, src), Kind: MemberFunction}
		for i := 0; i < int(n.ChildCount()); i++ {
			if n.Child(i).Type() == "get" {
				m.Kind = MemberComputed
			}
		}
		if m.Name == "constructor" {
			return Member{}, false
		}
		return m, true
	}
	return Member{}, false
}

func objectMembers(obj *sitter.Node, src []byte) []Member {
	var out []Member
	for _, child := range namedChildren(obj) {
		switch child.Type() {
		case "pair":
			key := child.ChildByFieldName("key")
			if key == nil {
				continue
			}
			name := unquote(nodeText(key, src))
			if name == "actions" {
				continue
			}
			out = append(out, Member{Name: name, Kind: valueKind(child.ChildByFieldName("value"), src)})
		case "method_definition":
			if m, ok := classMember(child, src); ok {
				out = append(out, m)
			}
		case "shorthand_property_identifier":
			out = append(out, Member{Name: nodeText(child, src), Kind: MemberProperty})
		}
	}
	return out
}

func valueKind(v *sitter.Node, src []byte) MemberKind {
	if v == nil {
		return MemberProperty
	}
	switch v.Type() {
	case "function", "function_expression", "arrow_function", "generator_function":
		return MemberFunction
	case "call_expression":
		if computedMacros[calleeName(v, src)] {
			return MemberComputed
		}
	}
	return MemberProperty
}

// calleeName returns the identifier a call (or bare decorator expression)
// resolves to: foo(), x.foo() and foo all yield "foo".
func calleeName(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	switch n.Type() {
	case "identifier", "property_identifier":
		return nodeText(n, src)
	case "member_expression":
		return calleeName(n.ChildByFieldName("property"), src)
	case "call_expression":
		return calleeName(n.ChildByFieldName("function"), src)
	}
	return ""
}

func firstNamed(n *sitter.Node) *sitter.Node {
	if children := namedChildren(n); len(children) > 0 {
		return children[0]
	}
	return nil
}

func isExtendCall(n *sitter.Node, src []byte) bool {
	fn := n.ChildByFieldName("function")
	return fn != nil && fn.Type() == "member_expression" && calleeName(fn, src) == "extend"
}

// PodModulePrefix returns the podModulePrefix configured in a
// config/environment.js source, or "" when none is set.
func PodModulePrefix(ctx context.Context, src []byte) (string, error) {
	tree, err := parseTree(ctx, src, JavaScript)
	if err != nil {
		return "", err
	}
	defer tree.Close()

	var prefix string
	var visit func(n *sitter.Node) bool
	visit = func(n *sitter.Node) bool {
		if n.Type() == "pair" {
			key := n.ChildByFieldName("key")
			value := n.ChildByFieldName("value")
			if key != nil && value != nil && unquote(nodeText(key, src)) == "podModulePrefix" && value.Type() == "string" {
				prefix = unquote(nodeText(value, src))
				return true
			}
		}
		for _, child := range namedChildren(n) {
			if visit(child) {
				return true
			}
		}
		return false
	}
	visit(tree.RootNode())
	return prefix, nil
}
