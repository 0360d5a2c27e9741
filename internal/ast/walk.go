package ast

// Children returns the direct children of n in source order. Nil fields are
// skipped.
func Children(n Node) []Node {
	var out []Node
	add := func(c Node) {
		if !isNil(c) {
			out = append(out, c)
		}
	}
	switch v := n.(type) {
	case *Program:
		if v == nil {
			return nil
		}
		out = append(out, v.Body...)
	case *CallExpression:
		if v == nil {
			return nil
		}
		add(v.Callee)
		out = append(out, v.Arguments...)
	case *MemberExpression:
		if v == nil {
			return nil
		}
		add(v.Object)
		add(v.Property)
	case *ObjectExpression:
		if v == nil {
			return nil
		}
		out = append(out, v.Properties...)
	case *ObjectProperty:
		if v == nil {
			return nil
		}
		add(v.Key)
		add(v.Value)
	case *ImportDeclaration:
		if v == nil {
			return nil
		}
		out = append(out, v.Specifiers...)
		if v.Source != nil {
			out = append(out, v.Source)
		}
	case *ImportSpecifier:
		if v == nil {
			return nil
		}
		if v.Imported != nil {
			out = append(out, v.Imported)
		}
		if v.Local != nil && v.Local != v.Imported {
			out = append(out, v.Local)
		}
	case *ImportDefaultSpecifier:
		if v != nil && v.Local != nil {
			out = append(out, v.Local)
		}
	case *TaggedTemplateExpression:
		if v == nil {
			return nil
		}
		add(v.Tag)
		if v.Quasi != nil {
			out = append(out, v.Quasi)
		}
	case *TemplateLiteral:
		if v == nil {
			return nil
		}
		for _, q := range v.Quasis {
			out = append(out, q)
		}
	case *ClassProperty:
		if v == nil {
			return nil
		}
		for _, d := range v.Decorators {
			out = append(out, d)
		}
		add(v.Key)
		add(v.Value)
	case *Decorator:
		if v != nil {
			add(v.Expression)
		}
	case *Unknown:
		if v != nil {
			out = append(out, v.Children...)
		}

	case *Template:
		if v != nil {
			out = append(out, v.Body...)
		}
	case *ElementNode:
		if v == nil {
			return nil
		}
		for _, a := range v.Attributes {
			out = append(out, a)
		}
		for _, m := range v.Modifiers {
			out = append(out, m)
		}
		out = append(out, v.Children...)
	case *AttrNode:
		if v != nil {
			add(v.Value)
		}
	case *MustacheStatement:
		if v == nil {
			return nil
		}
		add(v.Path)
		out = append(out, v.Params...)
		if v.Hash != nil {
			out = append(out, v.Hash)
		}
	case *BlockStatement:
		if v == nil {
			return nil
		}
		add(v.Path)
		out = append(out, v.Params...)
		if v.Hash != nil {
			out = append(out, v.Hash)
		}
		if v.Program != nil {
			out = append(out, v.Program)
		}
		if v.Inverse != nil {
			out = append(out, v.Inverse)
		}
	case *Block:
		if v != nil {
			out = append(out, v.Body...)
		}
	case *ElementModifierStatement:
		if v == nil {
			return nil
		}
		add(v.Path)
		out = append(out, v.Params...)
		if v.Hash != nil {
			out = append(out, v.Hash)
		}
	case *SubExpression:
		if v == nil {
			return nil
		}
		add(v.Path)
		out = append(out, v.Params...)
		if v.Hash != nil {
			out = append(out, v.Hash)
		}
	case *Hash:
		if v != nil {
			for _, p := range v.Pairs {
				out = append(out, p)
			}
		}
	case *HashPair:
		if v != nil {
			add(v.Value)
		}
	case *ConcatStatement:
		if v != nil {
			out = append(out, v.Parts...)
		}
	}
	return out
}

// Walk visits n and its descendants depth-first. Returning false from fn
// skips the node's children.
func Walk(n Node, fn func(Node) bool) {
	if isNil(n) {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, fn)
	}
}
