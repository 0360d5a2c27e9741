package project

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/emberls/internal/layout"
	"github.com/jward/emberls/internal/vfs"
)

func fixture() vfs.Map {
	return vfs.Map{
		"/w/app/package.json": `{
			"name": "my-app",
			"dependencies": {"ui-kit": "1.0.0", "lodash": "4.0.0"},
			"devDependencies": {"ember-holy-futuristic-template-namespacing-batman": "1.0.0"},
			"ember-addon": {"paths": ["lib/in-repo"]}
		}`,
		"/w/app/config/environment.js":                              `module.exports = function () { return { modulePrefix: 'my-app', podModulePrefix: 'my-app/pods' }; };`,
		"/w/app/app/components/foo-bar.js":                          "",
		"/w/app/app/pods/user/model.js":                             "",
		"/w/app/tests/integration/components/foo-bar-test.js":       "",
		"/w/app/node_modules/ui-kit/package.json":                   `{"name": "ui-kit", "keywords": ["ember-addon"], "ember-language-server": {"script": "els.risor"}}`,
		"/w/app/node_modules/ui-kit/addon/components/kit-button.js": "",
		"/w/app/node_modules/lodash/package.json":                   `{"name": "lodash"}`,
		"/w/app/lib/in-repo/package.json":                           `{"name": "in-repo", "keywords": ["ember-addon"]}`,
		"/w/app/lib/in-repo/addon/services/audit.js":                "",
	}
}

func quiet() *log.Logger { return log.New(io.Discard) }

func newProject(t *testing.T, fsys vfs.FS, opts ...Option) *Project {
	t.Helper()
	opts = append([]Option{WithFS(fsys), WithLogger(quiet())}, opts...)
	p, err := New(context.Background(), "/w/app", opts...)
	require.NoError(t, err)
	return p
}

func TestNewReadsProjectShape(t *testing.T) {
	t.Parallel()

	p := newProject(t, fixture())
	assert.Equal(t, "my-app", p.Name())
	assert.Equal(t, "app/pods", p.PodPrefix())
	assert.False(t, p.IsModuleUnification())
	assert.True(t, p.NamespacesEnabled())
	assert.Equal(t, []AddonMeta{
		{Name: "in-repo", Root: "/w/app/lib/in-repo"},
		{Name: "ui-kit", Root: "/w/app/node_modules/ui-kit", Script: "/w/app/node_modules/ui-kit/els.risor"},
	}, p.Addons())
	// Both addons live under the host root.
	assert.Equal(t, []string{"/w/app"}, p.Roots())
}

func TestNewWithoutPackage(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), "/nowhere", WithFS(vfs.Map{}), WithLogger(quiet()))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoProject)
}

type staticAddons []AddonMeta

func (s staticAddons) Addons(context.Context, string) ([]AddonMeta, error) { return s, nil }

func TestRootsElideNestedAddons(t *testing.T) {
	t.Parallel()

	fsys := vfs.Map{"/w/app/package.json": `{"name": "my-app"}`}
	p := newProject(t, fsys, WithAddonProvider(staticAddons{
		{Name: "shared", Root: "/w/shared"},
		{Name: "shared-inner", Root: "/w/shared/packages/inner"},
		{Name: "local", Root: "/w/app/lib/local"},
		{Name: "self", Root: "/w/app"},
	}))
	assert.Equal(t, []string{"/w/app", "/w/shared"}, p.Roots())
	assert.Len(t, p.Addons(), 3, "the host root is never its own addon")
}

func TestInitOrder(t *testing.T) {
	t.Parallel()

	var seen []string
	destroyed := 0
	p := newProject(t, fixture(),
		WithBuiltin(func(_ context.Context, p *Project) (Destructor, error) {
			seen = append(seen, fmt.Sprintf("builtin:%d", p.Registry().Len()))
			return func(*Project) { destroyed++ }, nil
		}),
		WithInitializer(func(_ context.Context, p *Project) (Destructor, error) {
			seen = append(seen, fmt.Sprintf("late:%d", p.Registry().Len()))
			return nil, nil
		}),
		WithInitializer(func(context.Context, *Project) (Destructor, error) {
			return nil, errors.New("broken addon")
		}),
		WithInitializer(func(context.Context, *Project) (Destructor, error) {
			panic("worse addon")
		}),
	)
	require.NoError(t, p.Init(context.Background()))

	assert.Equal(t, []string{"builtin:0", "late:5"}, seen)
	require.Len(t, p.InitIssues(), 2)
	assert.EqualError(t, p.InitIssues()[0], "broken addon")

	reg := p.Registry()
	assert.Equal(t, []string{
		"/w/app/app/components/foo-bar.js",
		"/w/app/tests/integration/components/foo-bar-test.js",
	}, reg.PathsFor(layout.Component, "foo-bar"))
	assert.Equal(t, []string{"/w/app/app/pods/user/model.js"}, reg.PathsFor(layout.Model, "user"))
	assert.Equal(t, []string{"/w/app/node_modules/ui-kit/addon/components/kit-button.js"}, reg.PathsFor(layout.Component, "kit-button"))
	assert.Equal(t, []string{"/w/app/lib/in-repo/addon/services/audit.js"}, reg.PathsFor(layout.Service, "audit"))

	p.AddDestructor(func(*Project) { panic("teardown") })
	assert.NotPanics(t, p.Unload)
	assert.Equal(t, 1, destroyed)
	assert.Zero(t, reg.Len())
	assert.Empty(t, p.InitIssues())
}

func TestTrackChange(t *testing.T) {
	t.Parallel()

	p := newProject(t, fixture())
	var events []string
	p.AddWatcher(func(uri string, c ChangeKind) { events = append(events, "first:"+c.String()) })
	p.AddWatcher(func(uri string, c ChangeKind) { events = append(events, "second:"+c.String()) })

	const path = "/w/app/app/helpers/format-date.js"
	p.TrackChange("file://"+path, Created)
	assert.Equal(t, []string{path}, p.Registry().PathsFor(layout.Helper, "format-date"))
	p.TrackChange(path, Changed)
	v, ok := p.FileVersion(path)
	require.True(t, ok)
	assert.Equal(t, 2, v)

	p.TrackChange(path, Deleted)
	assert.Empty(t, p.Registry().PathsFor(layout.Helper, "format-date"))
	_, ok = p.FileVersion(path)
	assert.False(t, ok)

	assert.Equal(t, []string{
		"first:created", "second:created",
		"first:changed", "second:changed",
		"first:deleted", "second:deleted",
	}, events)
}

// countingFS counts directory listings per root.
type countingFS struct {
	vfs.Map
	mu    sync.Mutex
	lists map[string]int
}

func newCountingFS() *countingFS {
	return &countingFS{Map: fixture(), lists: make(map[string]int)}
}

func (c *countingFS) ListFiles(ctx context.Context, root string, globs ...string) ([]string, error) {
	c.mu.Lock()
	c.lists[root]++
	c.mu.Unlock()
	return c.Map.ListFiles(ctx, root, globs...)
}

func (c *countingFS) count(root string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lists[root]
}

func TestListingsAreMemoized(t *testing.T) {
	t.Parallel()

	const addonRoot = "/w/app/node_modules/ui-kit"
	ctx := context.Background()
	fsys := newCountingFS()
	p := newProject(t, fsys)

	require.NoError(t, p.Init(ctx))
	hostWalks, addonWalks := fsys.count("/w/app"), fsys.count(addonRoot)
	require.Positive(t, hostWalks)
	require.Positive(t, addonWalks)

	// A second walk reuses every listing.
	require.NoError(t, p.Init(ctx))
	assert.Equal(t, hostWalks, fsys.count("/w/app"))
	assert.Equal(t, addonWalks, fsys.count(addonRoot))

	routes, err := p.ListItems(ctx, "routes", "app/routes/**/*.js")
	require.NoError(t, err)
	assert.Empty(t, routes)
	_, err = p.ListItems(ctx, "routes", "app/routes/**/*.js")
	require.NoError(t, err)
	assert.Equal(t, hostWalks+1, fsys.count("/w/app"))

	// Edits keep listings; creations drop them, addon roots included.
	p.TrackChange("/w/app/app/components/foo-bar.js", Changed)
	_, err = p.ListItems(ctx, "routes", "app/routes/**/*.js")
	require.NoError(t, err)
	assert.Equal(t, hostWalks+1, fsys.count("/w/app"))

	fsys.Map["/w/app/app/routes/items.js"] = ""
	p.TrackChange("/w/app/app/routes/items.js", Created)
	routes, err = p.ListItems(ctx, "routes", "app/routes/**/*.js")
	require.NoError(t, err)
	assert.Equal(t, []string{"/w/app/app/routes/items.js"}, routes)
	assert.Equal(t, hostWalks+2, fsys.count("/w/app"))

	require.NoError(t, p.Init(ctx))
	assert.Equal(t, 2*addonWalks, fsys.count(addonRoot))
}

func TestListingBypass(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fsys := newCountingFS()
	p := newProject(t, fsys, WithListingBypass(true))

	for range 3 {
		_, err := p.ListItems(ctx, "routes", "app/routes/**/*.js")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, fsys.count("/w/app"))
	assert.Zero(t, p.Listings().Len())
}

func TestTrackChangeCapsFiles(t *testing.T) {
	t.Parallel()

	p := newProject(t, fixture())
	for i := 0; i <= maxTrackedFiles; i++ {
		p.TrackChange(fmt.Sprintf("/w/app/docs/%d.md", i), Created)
	}
	p.TrackChange("/w/app/docs/last.md", Created)

	_, ok := p.FileVersion("/w/app/docs/0.md")
	assert.False(t, ok, "files map is cleared once it exceeds the cap")
	_, ok = p.FileVersion("/w/app/docs/last.md")
	assert.True(t, ok)
}

func TestHooks(t *testing.T) {
	t.Parallel()

	p := newProject(t, fixture())
	p.AddLinter(func(_ context.Context, doc Document) ([]Diagnostic, error) {
		return []Diagnostic{{Message: "no bare strings", Severity: SeverityWarning}}, nil
	})
	p.AddLinter(func(context.Context, Document) ([]Diagnostic, error) {
		return nil, errors.New("linter crashed")
	})
	diags := p.Lint(context.Background(), Document{URI: "file:///w/app/app/templates/a.hbs"})
	require.Len(t, diags, 1)
	assert.Equal(t, "no bare strings", diags[0].Message)

	p.AddCommandExecutor("els.reload", func(_ context.Context, p *Project, args []any) (any, error) {
		return p.Name(), nil
	})
	assert.Equal(t, []string{"els.reload"}, p.Commands())
	out, err := p.Execute(context.Background(), "els.reload", nil)
	require.NoError(t, err)
	assert.Equal(t, "my-app", out)

	_, err = p.Execute(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestSetForPath(t *testing.T) {
	t.Parallel()

	fsys := vfs.Map{
		"/w/app/package.json":                `{"name": "my-app"}`,
		"/w/app/packages/inner/package.json": `{"name": "inner"}`,
	}
	outer := newProject(t, fsys, WithAddonProvider(staticAddons{{Name: "shared", Root: "/w/shared"}}))
	inner, err := New(context.Background(), "/w/app/packages/inner", WithFS(fsys), WithLogger(quiet()))
	require.NoError(t, err)

	s := NewSet()
	s.Add(outer)
	s.Add(inner)

	got, err := s.ForPath("/w/app/packages/inner/app/components/x.js")
	require.NoError(t, err)
	assert.Same(t, inner, got)

	got, err = s.ForURI("file:///w/shared/addon/components/y.js")
	require.NoError(t, err)
	assert.Same(t, outer, got)

	_, err = s.ForPath("/elsewhere/x.js")
	assert.ErrorIs(t, err, ErrNoProject)
	assert.Len(t, s.All(), 2)
}
