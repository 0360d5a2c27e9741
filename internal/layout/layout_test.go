package layout

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const root = "/work/my-app"

func TestClassicModelCandidates(t *testing.T) {
	t.Parallel()

	var r Resolver
	paths, err := r.CandidatePaths(Classic, root, Model, "user", "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/work/my-app/app/models/user.js",
		"/work/my-app/app/models/user.ts",
	}, paths)
}

func TestCandidatesAreNotDeduplicated(t *testing.T) {
	t.Parallel()

	var r Resolver
	paths, err := r.CandidatePaths(Classic, root, Route, "blog.post", "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/work/my-app/app/routes/blog/post.js",
		"/work/my-app/app/routes/blog/post.ts",
		"/work/my-app/app/controllers/blog/post.js",
		"/work/my-app/app/controllers/blog/post.ts",
	}, paths)
}

func TestUnsupportedCombination(t *testing.T) {
	t.Parallel()

	var r Resolver
	_, err := r.CandidatePaths(Pod, root, Helper, "format", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupported))

	_, err = r.TemplatePaths(Classic, root, Service, "session", "")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestPodPrefix(t *testing.T) {
	t.Parallel()

	var r Resolver
	paths, err := r.CandidatePaths(Pod, root, Model, "user", "app/pods")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/work/my-app/app/pods/user/model.js",
		"/work/my-app/app/pods/user/model.ts",
	}, paths)
}

func TestAddonCandidatesDelegate(t *testing.T) {
	t.Parallel()

	addons := []AddonInfo{
		{Name: "ui-kit", Root: "/work/my-app/node_modules/ui-kit"},
		{Name: "auth", Root: "/work/auth"},
	}
	r := Resolver{Addons: AddonLayout{Roots: func(string) []AddonInfo { return addons }}}

	paths, err := r.CandidatePaths(Addon, root, Service, "session", "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/work/my-app/node_modules/ui-kit/addon/services/session.js",
		"/work/my-app/node_modules/ui-kit/addon/services/session.ts",
		"/work/auth/addon/services/session.js",
		"/work/auth/addon/services/session.ts",
	}, paths)

	var bare Resolver
	paths, err = bare.CandidatePaths(Addon, root, Service, "session", "")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

// Every script candidate maps back to the symbol it was generated for.
func TestMatcherRoundTrip(t *testing.T) {
	t.Parallel()

	addonRoot := "/work/my-app/node_modules/ui-kit"
	addons := []AddonInfo{{Name: "ui-kit", Root: addonRoot}}
	r := Resolver{Addons: AddonLayout{Roots: func(string) []AddonInfo { return addons }}}
	names := map[SymbolType][]string{
		Component: {"foo-bar", "forms/input-field"},
		Helper:    {"format-date"},
		Modifier:  {"on-resize"},
		Service:   {"session", "admin/audit"},
		Model:     {"user"},
		Transform: {"date"},
		Route:     {"items", "blog.post"},
	}

	for _, conv := range []Convention{Classic, Pod, ModuleUnification, Addon} {
		for _, podPrefix := range []string{"", "app/pods"} {
			m := NewMatcher(podPrefix, root, addonRoot)
			for typ, list := range names {
				for _, name := range list {
					paths, err := r.CandidatePaths(conv, root, typ, name, podPrefix)
					if errors.Is(err, ErrUnsupported) {
						continue
					}
					require.NoError(t, err)
					require.NotEmpty(t, paths, "%s %s %s", conv, typ, name)
					for _, p := range paths {
						got, ok := m.Match(p)
						require.True(t, ok, "no match for %s", p)
						assert.Equal(t, typ, got.Type, p)
						assert.Equal(t, name, got.Name, p)
					}
				}
			}
		}
	}
}

func TestTemplateRoundTrip(t *testing.T) {
	t.Parallel()

	var r Resolver
	m := NewMatcher("", root)
	for _, conv := range []Convention{Classic, Pod, ModuleUnification} {
		for _, tc := range []struct {
			typ  SymbolType
			name string
		}{{Component, "foo-bar"}, {Route, "blog.post"}} {
			paths, err := r.TemplatePaths(conv, root, tc.typ, tc.name, "")
			require.NoError(t, err)
			for _, p := range paths {
				got, ok := m.Match(p)
				require.True(t, ok, p)
				assert.Equal(t, tc.typ, got.Type, p)
				assert.Equal(t, tc.name, got.Name, p)
			}
		}
	}
}

func TestMatcherEdgeCases(t *testing.T) {
	t.Parallel()

	m := NewMatcher("", root)
	tests := []struct {
		path string
		want Match
		ok   bool
	}{
		{"app/templates/components/x-foo.hbs", Match{Type: Component, Name: "x-foo", Convention: Classic}, true},
		{"app/components/x-foo/index.hbs", Match{Type: Component, Name: "x-foo", Convention: Classic}, true},
		{"app/templates/application.hbs", Match{Type: Route, Name: "application", Convention: Classic}, true},
		{"tests/integration/components/x-foo-test.js", Match{Type: Component, Name: "x-foo", Convention: Classic, Test: true}, true},
		{"tests/unit/routes/blog/post-test.ts", Match{Type: Route, Name: "blog.post", Convention: Classic, Test: true}, true},
		{"tests/unit/routes/blog/post.js", Match{}, false},
		{"tmp/app/components/x-foo.js", Match{}, false},
		{"dist/assets/app.js", Match{}, false},
		{"app/app.js", Match{}, false},
		{"app/styles/app.css", Match{}, false},
		{"README.md", Match{}, false},
	}
	for _, tt := range tests {
		got, ok := m.Match(filepath.Join(root, tt.path))
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}

	_, ok := m.Match("/elsewhere/app/components/x.js")
	assert.False(t, ok)
}

func TestImportPaths(t *testing.T) {
	t.Parallel()

	addons := []AddonInfo{{Name: "@acme/ui", Root: "/work/ui"}}

	t.Run("test scope", func(t *testing.T) {
		got := ImportPaths(ImportRequest{Root: root, ProjectName: "my-app", ImportPath: "my-app/tests/helpers/foo"})
		assert.Equal(t, []string{
			"/work/my-app/tests/helpers/foo.js",
			"/work/my-app/tests/helpers/foo.ts",
		}, got)
	})

	t.Run("classic", func(t *testing.T) {
		got := ImportPaths(ImportRequest{Root: root, ProjectName: "my-app", ImportPath: "my-app/utils/math"})
		assert.Equal(t, []string{
			"/work/my-app/app/utils/math.js",
			"/work/my-app/app/utils/math.ts",
		}, got)
	})

	t.Run("module unification", func(t *testing.T) {
		got := ImportPaths(ImportRequest{Root: root, ImportPath: "my-app/src/utils/math", ModuleUnification: true})
		assert.Equal(t, []string{
			"/work/my-app/src/utils/math.js",
			"/work/my-app/src/utils/math.ts",
		}, got)
	})

	t.Run("scoped addon", func(t *testing.T) {
		got := ImportPaths(ImportRequest{Root: root, ProjectName: "my-app", ImportPath: "@acme/ui/components/button", Addons: addons})
		assert.Contains(t, got, "/work/ui/addon/components/button.js")
		assert.Contains(t, got, "/work/ui/addon/components/button/index.ts")
	})

	t.Run("addon tests", func(t *testing.T) {
		got := ImportPaths(ImportRequest{Root: root, ProjectName: "my-app", ImportPath: "@acme/ui/tests/helpers/setup", Addons: addons})
		assert.Equal(t, []string{"/work/ui/tests/helpers/setup.js", "/work/ui/tests/helpers/setup.ts"}, got)
	})

	t.Run("relative", func(t *testing.T) {
		got := ImportPaths(ImportRequest{Root: root, ImportPath: "../utils/math", FromFile: "/work/my-app/app/components/foo.js"})
		assert.Equal(t, "/work/my-app/app/utils/math.js", got[0])
		assert.Equal(t, "/work/my-app/app/utils/math/index.ts", got[3])
	})
}

func TestSplitPackage(t *testing.T) {
	t.Parallel()

	pkg, rest := SplitPackage("@acme/ui/components/button")
	assert.Equal(t, "@acme/ui", pkg)
	assert.Equal(t, "components/button", rest)

	pkg, rest = SplitPackage("ember-data")
	assert.Equal(t, "ember-data", pkg)
	assert.Empty(t, rest)
}

func TestNormalizers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "FooBar", ToAngleBracket("foo-bar"))
	assert.Equal(t, "Forms::InputField", ToAngleBracket("forms/input-field"))
	assert.Equal(t, "X2Foo", ToAngleBracket("x2-foo"))
	assert.Equal(t, "foo.bar", ToAngleBracket("foo.bar"))
	assert.Equal(t, "forms/input-field", FromAngleBracket("Forms::InputField"))
	assert.Equal(t, "current-user", NormalizeServiceName("currentUser"))
	assert.Equal(t, "admin/auth-session", NormalizeServiceName("admin.authSession"))
	assert.Equal(t, "ui-kit$foo-bar", QualifiedName("ui-kit", "foo-bar", false))
	assert.Equal(t, "UiKit$FooBar", QualifiedName("ui-kit", "foo-bar", true))

	addon, name, ok := SplitQualified("ui-kit$foo-bar")
	assert.True(t, ok)
	assert.Equal(t, "ui-kit", addon)
	assert.Equal(t, "foo-bar", name)
	_, _, ok = SplitQualified("foo-bar")
	assert.False(t, ok)
}
