package runtime

import (
	"context"
	"sync"
	"unsafe"

	"github.com/charmbracelet/log"
	"github.com/risor-io/risor/object"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/emberls/internal/script"
	"github.com/jward/emberls/internal/template"
)

// parsedTree is the source and grammar a tree was parsed from.
type parsedTree struct {
	src  []byte
	lang *sitter.Language
}

// treeTable remembers every tree parsed during one script run, keyed by
// root node. go-tree-sitter nodes do not expose their tree, so node_text
// and query walk a node up to its root to find the source again.
type treeTable struct {
	mu     sync.RWMutex
	byRoot map[uintptr]parsedTree
}

func newTreeTable() *treeTable {
	return &treeTable{byRoot: make(map[uintptr]parsedTree)}
}

func rootKey(node *sitter.Node) uintptr {
	for node.Parent() != nil {
		node = node.Parent()
	}
	return uintptr(unsafe.Pointer(node))
}

func (t *treeTable) add(tree *sitter.Tree, src []byte, lang *sitter.Language) {
	t.mu.Lock()
	t.byRoot[rootKey(tree.RootNode())] = parsedTree{src: src, lang: lang}
	t.mu.Unlock()
}

func (t *treeTable) lookup(node *sitter.Node) (parsedTree, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	pt, ok := t.byRoot[rootKey(node)]
	return pt, ok
}

func stringArg(fn, name string, arg object.Object) (string, *object.Error) {
	s, ok := arg.(*object.String)
	if !ok {
		return "", object.Errorf("%s: %s must be a string, got %s", fn, name, arg.Type())
	}
	return s.Value(), nil
}

func nodeArg(fn string, arg object.Object) (*sitter.Node, *object.Error) {
	proxy, ok := arg.(*object.Proxy)
	if !ok {
		return nil, object.Errorf("%s: expected a node, got %s", fn, arg.Type())
	}
	node, ok := proxy.Interface().(*sitter.Node)
	if !ok || node == nil {
		return nil, object.Errorf("%s: expected a node, got %T", fn, proxy.Interface())
	}
	return node, nil
}

func proxyOrNil(fn string, node *sitter.Node) object.Object {
	if node == nil {
		return object.Nil
	}
	p, err := object.NewProxy(node)
	if err != nil {
		return object.Errorf("%s: %v", fn, err)
	}
	return p
}

// parseSrc is parse_src(source, language) → tree, for language
// "javascript" or "typescript".
func (t *treeTable) parseSrc() *object.Builtin {
	return object.NewBuiltin("parse_src", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("parse_src", 2, len(args))
		}
		src, errObj := stringArg("parse_src", "source", args[0])
		if errObj != nil {
			return errObj
		}
		langName, errObj := stringArg("parse_src", "language", args[1])
		if errObj != nil {
			return errObj
		}
		lang, ok := script.ParserForLanguage(langName)
		if !ok {
			return object.Errorf("parse_src: unsupported language %q", langName)
		}

		parser := sitter.NewParser()
		defer parser.Close()
		parser.SetLanguage(lang)
		tree, err := parser.ParseCtx(ctx, nil, []byte(src))
		if err != nil {
			return object.Errorf("parse_src: %v", err)
		}
		t.add(tree, []byte(src), lang)

		p, err := object.NewProxy(tree)
		if err != nil {
			return object.Errorf("parse_src: %v", err)
		}
		return p
	})
}

// nodeText is node_text(node) → string. Scripts cannot call
// node.Content directly since the proxy cannot pass a []byte.
func (t *treeTable) nodeText() *object.Builtin {
	return object.NewBuiltin("node_text", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("node_text", 1, len(args))
		}
		node, errObj := nodeArg("node_text", args[0])
		if errObj != nil {
			return errObj
		}
		pt, ok := t.lookup(node)
		if !ok {
			return object.Errorf("node_text: node does not belong to a parsed tree")
		}
		return object.NewString(node.Content(pt.src))
	})
}

// query is query(pattern, node) → list of maps from capture name to node.
func (t *treeTable) query() *object.Builtin {
	return object.NewBuiltin("query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("query", 2, len(args))
		}
		pattern, errObj := stringArg("query", "pattern", args[0])
		if errObj != nil {
			return errObj
		}
		node, errObj := nodeArg("query", args[1])
		if errObj != nil {
			return errObj
		}
		pt, ok := t.lookup(node)
		if !ok {
			return object.Errorf("query: node does not belong to a parsed tree")
		}

		q, err := sitter.NewQuery([]byte(pattern), pt.lang)
		if err != nil {
			return object.Errorf("query: invalid pattern: %v", err)
		}
		defer q.Close()
		cursor := sitter.NewQueryCursor()
		defer cursor.Close()
		cursor.Exec(q, node)

		matches := []object.Object{}
		for {
			match, ok := cursor.NextMatch()
			if !ok {
				break
			}
			match = cursor.FilterPredicates(match, pt.src)
			captures := make(map[string]object.Object, len(match.Captures))
			for _, c := range match.Captures {
				captures[q.CaptureNameForId(c.Index)] = proxyOrNil("query", c.Node)
			}
			matches = append(matches, object.NewMap(captures))
		}
		return object.NewList(matches)
	})
}

// nodeChild is node_child(node, field) → node or nil. A missing child is
// Risor nil rather than a proxied Go nil pointer.
func nodeChild() *object.Builtin {
	return object.NewBuiltin("node_child", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("node_child", 2, len(args))
		}
		node, errObj := nodeArg("node_child", args[0])
		if errObj != nil {
			return errObj
		}
		field, errObj := stringArg("node_child", "field", args[1])
		if errObj != nil {
			return errObj
		}
		return proxyOrNil("node_child", node.ChildByFieldName(field))
	})
}

// templateInfo is template_info(source) → {properties, blocks}: the
// this./@ paths a template reads and the blocks it yields to.
func templateInfo() *object.Builtin {
	return object.NewBuiltin("template_info", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("template_info", 1, len(args))
		}
		src, errObj := stringArg("template_info", "source", args[0])
		if errObj != nil {
			return errObj
		}
		tpl, err := template.Parse(src)
		if err != nil {
			return object.Errorf("template_info: %v", err)
		}
		return object.NewMap(map[string]object.Object{
			"properties": stringList(template.Properties(tpl)),
			"blocks":     stringList(template.Blocks(tpl)),
		})
	})
}

// classMembers is class_members(source, language) → list of {name, kind}
// for the members of every class body in a script.
func classMembers() *object.Builtin {
	return object.NewBuiltin("class_members", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("class_members", 2, len(args))
		}
		src, errObj := stringArg("class_members", "source", args[0])
		if errObj != nil {
			return errObj
		}
		lang, errObj := stringArg("class_members", "language", args[1])
		if errObj != nil {
			return errObj
		}
		members, err := script.ClassMembers(ctx, []byte(src), lang)
		if err != nil {
			return object.Errorf("class_members: %v", err)
		}
		out := make([]object.Object, 0, len(members))
		for _, m := range members {
			out = append(out, object.NewMap(map[string]object.Object{
				"name": object.NewString(m.Name),
				"kind": object.NewString(m.Kind.String()),
			}))
		}
		return object.NewList(out)
	})
}

// scriptLog backs the log global.
type scriptLog struct {
	logger *log.Logger
}

func (l *scriptLog) Debug(msg string) { l.logger.Debug(msg) }
func (l *scriptLog) Info(msg string)  { l.logger.Info(msg) }
func (l *scriptLog) Warn(msg string)  { l.logger.Warn(msg) }
func (l *scriptLog) Error(msg string) { l.logger.Error(msg) }
