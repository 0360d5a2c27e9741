package runtime

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/emberls/internal/ast"
	"github.com/jward/emberls/internal/classify"
	"github.com/jward/emberls/internal/project"
	"github.com/jward/emberls/internal/resolve"
	"github.com/jward/emberls/internal/vfs"
)

const jsTestSource = `export function greet(name) {
  return 'Hello, ' + name;
}

export function add(a, b) {
  return a + b;
}
`

func quiet() *log.Logger { return log.New(io.Discard) }

func newRuntime(opts ...Option) *Runtime {
	return New(append([]Option{WithLogger(quiet())}, opts...)...)
}

// --- tree-sitter host functions ---

func TestRunSource_ParseAndNodeText(t *testing.T) {
	t.Parallel()

	script := `
tree := parse_src(source, "javascript")
root := tree.RootNode()

assert(root.Type() == "program", 'expected program, got {root.Type()}')

names := []
count := int(root.NamedChildCount())
for i := 0; i < count; i++ {
    decl := node_child(root.NamedChild(i), "declaration")
    if decl != nil && decl.Type() == "function_declaration" {
        names.append(node_text(decl.ChildByFieldName("name")))
    }
}

assert(len(names) == 2, 'expected 2 functions, got {len(names)}')
assert(names[0] == "greet", 'expected greet, got {names[0]}')
assert(names[1] == "add", 'expected add, got {names[1]}')
`
	err := newRuntime().RunSource(context.Background(), script, map[string]any{"source": jsTestSource})
	require.NoError(t, err)
}

func TestRunSource_QueryHostFunction(t *testing.T) {
	t.Parallel()

	script := `
root := parse_src(source, "javascript").RootNode()

matches := query("(function_declaration name: (identifier) @name)", root)
assert(len(matches) == 2, 'expected 2 matches, got {len(matches)}')
assert(node_text(matches[0]["name"]) == "greet", "first match")
assert(node_text(matches[1]["name"]) == "add", "second match")

none := query("(class_declaration) @cls", root)
assert(len(none) == 0, "expected no classes")
`
	err := newRuntime().RunSource(context.Background(), script, map[string]any{"source": jsTestSource})
	require.NoError(t, err)
}

func TestRunSource_QueryInvalidPattern(t *testing.T) {
	t.Parallel()

	script := `
root := parse_src(source, "javascript").RootNode()
query("(not_a_node_type", root)
`
	err := newRuntime().RunSource(context.Background(), script, map[string]any{"source": jsTestSource})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid pattern")
}

func TestRunSource_NodeChildMissingField(t *testing.T) {
	t.Parallel()

	script := `
root := parse_src("const a = 1;", "typescript").RootNode()
assert(node_child(root, "nonexistent") == nil, "expected nil")
`
	require.NoError(t, newRuntime().RunSource(context.Background(), script, nil))
}

func TestRunSource_UnsupportedLanguage(t *testing.T) {
	t.Parallel()

	err := newRuntime().RunSource(context.Background(), `parse_src("x", "cobol")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported language")
}

func TestRunSource_TemplateInfo(t *testing.T) {
	t.Parallel()

	script := `
info := template_info(source)
assert(len(info["properties"]) == 2, 'expected 2 properties, got {len(info["properties"])}')
assert(info["properties"][0] == "this.user", 'got {info["properties"][0]}')
assert(info["properties"][1] == "@title", 'got {info["properties"][1]}')
assert(len(info["blocks"]) == 1 && info["blocks"][0] == "default", "expected default block")
`
	err := newRuntime().RunSource(context.Background(), script, map[string]any{
		"source": "{{this.user}}<h1>{{@title}}</h1>{{yield}}",
	})
	require.NoError(t, err)
}

func TestRunSource_TemplateInfoSyntaxError(t *testing.T) {
	t.Parallel()

	err := newRuntime().RunSource(context.Background(), `template_info("{{/if}}")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template_info")
}

func TestRunSource_ClassMembers(t *testing.T) {
	t.Parallel()

	script := `
members := class_members(source, "javascript")
names := []
for _, m := range members {
    names.append(m["name"] + ":" + m["kind"])
}
assert(len(names) == 2, 'expected 2 members, got {len(names)}')
assert(names[0] == "title:property", 'got {names[0]}')
assert(names[1] == "save:function", 'got {names[1]}')
`
	src := "export default class Card {\n  title = 'x';\n  save() {}\n}\n"
	require.NoError(t, newRuntime().RunSource(context.Background(), script, map[string]any{"source": src}))
}

// --- script loading ---

func TestLoadScript(t *testing.T) {
	t.Parallel()

	fsys := vfs.Map{"/w/app/node_modules/ui-kit/els.risor": `x := 1`}
	rt := newRuntime()

	src, err := rt.LoadScript(fsys, "/w/app/node_modules/ui-kit/els.risor")
	require.NoError(t, err)
	assert.Equal(t, "x := 1", src)

	_, err = rt.LoadScript(fsys, "/w/app/missing.risor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading script")
}

func TestLoadScript_FromFS(t *testing.T) {
	t.Parallel()

	rt := newRuntime(WithFS(fstest.MapFS{
		"addons/kit.risor": &fstest.MapFile{Data: []byte(`y := 2`)},
	}))

	src, err := rt.LoadScript(nil, "/addons/kit.risor")
	require.NoError(t, err)
	assert.Equal(t, "y := 2", src)

	_, err = rt.LoadScript(nil, "addons/missing.risor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from fs")
}

// --- importer wiring ---

func TestImport_FSImporter(t *testing.T) {
	t.Parallel()

	// FSImporter resolves "lib_helpers" by trying name + ".risor" at the
	// root of the FS.
	rt := newRuntime(WithFS(fstest.MapFS{
		"lib_helpers.risor": &fstest.MapFile{Data: []byte(`
func greet(name) {
	return "hello " + name
}
`)},
	}))

	script := `
import lib_helpers

msg := lib_helpers.greet("world")
assert(msg == "hello world", 'expected "hello world", got ' + msg)
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestImport_NextToScript(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "math_utils.risor"), []byte(`
func double(x) {
	return x * 2
}
`), 0o644))
	main := filepath.Join(dir, "els.risor")
	require.NoError(t, os.WriteFile(main, []byte(`
import math_utils

result := math_utils.double(21)
assert(result == 42, 'expected 42, got {result}')
log.Info("imported")
`), 0o644))

	require.NoError(t, newRuntime().RunScript(context.Background(), vfs.NewOS(), main, nil))
}

// --- provider scripts ---

const providerScript = `
if request["type"] == "completion" && request["kind"] == "mustache-path" {
    for _, name := range registry_names("helper") {
        add_item({"label": "kit-" + name, "kind": 3, "detail": request["addon"]})
    }
    add_item({"label": 'count-{len(results)}'})
}
if request["type"] == "definition" {
    add_location({"path": request["root"] + "/app/extra.js", "line": 2, "column": 4})
}
`

func providerProject(t *testing.T, script string) *project.Project {
	t.Helper()
	fsys := vfs.Map{
		"/w/app/package.json":                     `{"name": "my-app", "dependencies": {"ui-kit": "1.0.0", "plain": "1.0.0"}}`,
		"/w/app/app/helpers/format-date.js":       "",
		"/w/app/node_modules/ui-kit/package.json": `{"name": "ui-kit", "keywords": ["ember-addon"], "ember-language-server": {"script": "els.risor"}}`,
		"/w/app/node_modules/ui-kit/els.risor":    script,
		"/w/app/node_modules/plain/package.json":  `{"name": "plain", "keywords": ["ember-addon"]}`,
	}
	ctx := context.Background()
	p, err := project.New(ctx, "/w/app", project.WithFS(fsys), project.WithLogger(quiet()))
	require.NoError(t, err)
	require.NoError(t, p.Init(ctx))
	t.Cleanup(p.Unload)
	return p
}

func TestProvidersOnlyForScriptedAddons(t *testing.T) {
	t.Parallel()

	p := providerProject(t, providerScript)
	providers := newRuntime().Providers(context.Background(), p)
	require.Len(t, providers, 1)
	assert.Equal(t, "ui-kit", providers[0].Name())
}

func TestProviderComplete(t *testing.T) {
	t.Parallel()

	p := providerProject(t, providerScript)
	provider := newRuntime().Providers(context.Background(), p)[0]
	prior := []resolve.CompletionItem{{Label: "outlet", Kind: resolve.ItemFunction}}
	req := resolve.CompletionRequest{
		Request: resolve.Request{Project: p, Path: "/w/app/app/templates/application.hbs", Text: "{{}}"},
		Results: prior,
	}

	items, err := provider.Complete(context.Background(), req, classify.MustachePath)
	require.NoError(t, err)
	assert.Equal(t, []resolve.CompletionItem{
		{Label: "outlet", Kind: resolve.ItemFunction},
		{Label: "kit-format-date", Kind: resolve.ItemFunction, Detail: "ui-kit"},
		{Label: "count-1", Kind: resolve.ItemText},
	}, items)

	items, err = provider.Complete(context.Background(), req, classify.BlockPath)
	require.NoError(t, err)
	assert.Equal(t, prior, items)
}

func TestProviderDefine(t *testing.T) {
	t.Parallel()

	p := providerProject(t, providerScript)
	provider := newRuntime().Providers(context.Background(), p)[0]
	req := resolve.DefinitionRequest{
		Request: resolve.Request{Project: p, Path: "/w/app/app/templates/application.hbs"},
	}

	locs, err := provider.Define(context.Background(), req, classify.MustachePath)
	require.NoError(t, err)
	assert.Equal(t, []resolve.Location{{
		Path:  "/w/app/app/extra.js",
		Range: ast.Range{Start: ast.Position{Line: 2, Column: 4}, End: ast.Position{Line: 2, Column: 4}},
	}}, locs)
}

func TestProviderOutputOfOtherRequestType(t *testing.T) {
	t.Parallel()

	p := providerProject(t, `add_item({"label": "x"})`)
	provider := newRuntime().Providers(context.Background(), p)[0]
	prior := []resolve.Location{{Path: "/w/app/app/helpers/format-date.js"}}
	req := resolve.DefinitionRequest{Request: resolve.Request{Project: p}, Results: prior}

	locs, err := provider.Define(context.Background(), req, classify.MustachePath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only available for completion requests")
	assert.Equal(t, prior, locs)
}

func TestProviderScriptErrorKeepsResults(t *testing.T) {
	t.Parallel()

	p := providerProject(t, `x := (`)
	provider := newRuntime().Providers(context.Background(), p)[0]
	prior := []resolve.CompletionItem{{Label: "outlet"}}
	req := resolve.CompletionRequest{Request: resolve.Request{Project: p}, Results: prior}

	items, err := provider.Complete(context.Background(), req, classify.MustachePath)
	require.Error(t, err)
	assert.Equal(t, prior, items)
}

func TestProviderReadFileStaysInProject(t *testing.T) {
	t.Parallel()

	p := providerProject(t, `
read_file("/etc/passwd")
`)
	provider := newRuntime().Providers(context.Background(), p)[0]
	req := resolve.DefinitionRequest{Request: resolve.Request{Project: p}}

	_, err := provider.Define(context.Background(), req, classify.None)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside the project")
}

func TestEngineRunsProviders(t *testing.T) {
	t.Parallel()

	p := providerProject(t, providerScript)
	e := resolve.New(resolve.WithLogger(quiet()), resolve.WithProviders(newRuntime()))
	req := resolve.CompletionRequest{Request: resolve.Request{
		Project:  p,
		Path:     "/w/app/app/templates/application.hbs",
		Text:     "{{}}",
		Position: ast.Position{Line: 0, Column: 2},
	}}

	var labels []string
	for _, it := range e.Complete(context.Background(), req) {
		labels = append(labels, it.Label)
	}
	assert.Contains(t, labels, "format-date")
	assert.Contains(t, labels, "kit-format-date")
}
