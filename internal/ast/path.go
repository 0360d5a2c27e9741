package ast

// Path is an immutable cursor over a tree: a node plus the chain of its
// ancestors. It never owns the tree.
type Path struct {
	node   Node
	parent *Path
}

// NewPath returns a path rooted at n.
func NewPath(n Node) *Path {
	return &Path{node: n}
}

// Child extends p with a child node.
func (p *Path) Child(n Node) *Path {
	return &Path{node: n, parent: p}
}

// Node returns the focused node, or nil for a nil path.
func (p *Path) Node() Node {
	if p == nil {
		return nil
	}
	return p.node
}

// Parent returns the parent node, or nil at the root.
func (p *Path) Parent() Node {
	return p.ParentFromLevel(1)
}

// ParentPath returns the path focused on the parent, or nil at the root.
func (p *Path) ParentPath() *Path {
	if p == nil {
		return nil
	}
	return p.parent
}

// ParentFromLevel returns the ancestor level steps up; level 1 is the parent.
func (p *Path) ParentFromLevel(level int) Node {
	cur := p
	for i := 0; i < level && cur != nil; i++ {
		cur = cur.parent
	}
	return cur.Node()
}

// Closest returns the nearest path (starting at p itself) whose node has
// the given kind.
func (p *Path) Closest(kind NodeKind) *Path {
	for cur := p; cur != nil; cur = cur.parent {
		if IsKind(cur.node, kind) {
			return cur
		}
	}
	return nil
}

// Depth is the number of ancestors above the focused node.
func (p *Path) Depth() int {
	d := 0
	for cur := p.ParentPath(); cur != nil; cur = cur.parent {
		d++
	}
	return d
}

// FocusPath descends from root to the deepest node whose range contains
// pos. Nodes without location information are never entered. When pos is
// outside root the returned path is focused on root.
func FocusPath(root Node, pos Position) *Path {
	if isNil(root) {
		return nil
	}
	p := NewPath(root)
	for {
		var next Node
		for _, c := range Children(p.node) {
			if c.Loc().Contains(pos) {
				next = c
				break
			}
		}
		if next == nil {
			return p
		}
		p = p.Child(next)
	}
}
