package emberls

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/emberls/internal/classify"
	"github.com/jward/emberls/internal/config"
	"github.com/jward/emberls/internal/layout"
	"github.com/jward/emberls/internal/project"
	"github.com/jward/emberls/internal/registry"
)

func fixtureRoot(t *testing.T) string {
	t.Helper()
	root, err := filepath.Abs(filepath.Join("testdata", "classic-app"))
	require.NoError(t, err)
	return root
}

func newServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	s, err := New(WithConfig(cfg), WithLogger(log.New(io.Discard)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func loadFixture(t *testing.T, cfg *config.Config) (*Server, string) {
	t.Helper()
	s := newServer(t, cfg)
	root := fixtureRoot(t)
	_, err := s.AddProject(context.Background(), root)
	require.NoError(t, err)
	return s, root
}

func at(uri, text string, line, col int) DocumentPosition {
	return DocumentPosition{URI: uri, Text: text, Position: Position{Line: line, Column: col}}
}

func fileURI(path string) string {
	return "file://" + filepath.ToSlash(path)
}

func locationPaths(locs []Location) []string {
	out := make([]string, 0, len(locs))
	for _, l := range locs {
		out = append(out, l.Path)
	}
	return out
}

func itemLabels(items []CompletionItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Label)
	}
	return out
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.MaxConcurrentReads = 0
	_, err := New(WithConfig(cfg))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurrent_reads")
}

func TestComponentDefinition(t *testing.T) {
	t.Parallel()

	s, root := loadFixture(t, nil)
	app := filepath.Join(root, "app", "templates", "application.hbs")

	locs, err := s.Definition(context.Background(), at(fileURI(app), "", 0, 2))
	require.NoError(t, err)
	paths := locationPaths(locs)
	assert.Contains(t, paths, filepath.Join(root, "app", "components", "user-card.js"))
	assert.Contains(t, paths, filepath.Join(root, "app", "templates", "components", "user-card.hbs"))
}

func TestHelperDefinition(t *testing.T) {
	t.Parallel()

	s, root := loadFixture(t, nil)
	app := filepath.Join(root, "app", "templates", "application.hbs")

	locs, err := s.Definition(context.Background(), at(fileURI(app), "", 1, 4))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "app", "helpers", "format-date.js")}, locationPaths(locs))
}

func TestMustacheCompletion(t *testing.T) {
	t.Parallel()

	s, root := loadFixture(t, nil)
	app := filepath.Join(root, "app", "templates", "application.hbs")

	items, err := s.Complete(context.Background(), at(fileURI(app), "{{}}", 0, 2))
	require.NoError(t, err)
	labels := itemLabels(items)
	assert.Contains(t, labels, "format-date")
	assert.Contains(t, labels, "kit-join")
	assert.Contains(t, labels, "user-card")
	assert.Contains(t, labels, "outlet")
}

func TestModelCompletion(t *testing.T) {
	t.Parallel()

	s, root := loadFixture(t, nil)
	route := filepath.Join(root, "app", "routes", "users.js")
	src := "export default Route.extend({ model() { return this.store.findAll(''); } });"

	items, err := s.Complete(context.Background(), at(fileURI(route), src, 0, len("export default Route.extend({ model() { return this.store.findAll('")))
	require.NoError(t, err)
	assert.Contains(t, itemLabels(items), "user")
}

func TestClassify(t *testing.T) {
	t.Parallel()

	s, root := loadFixture(t, nil)
	app := filepath.Join(root, "app", "templates", "application.hbs")

	kind, err := s.Classify(context.Background(), at(fileURI(app), "", 0, 2))
	require.NoError(t, err)
	assert.Equal(t, classify.AngleComponent, kind)
}

func TestUnknownProject(t *testing.T) {
	t.Parallel()

	s, _ := loadFixture(t, nil)
	_, err := s.Definition(context.Background(), at("file:///elsewhere/app/x.hbs", "{{x}}", 0, 2))
	require.ErrorIs(t, err, project.ErrNoProject)

	require.ErrorIs(t, s.TrackChange("/elsewhere/app/x.js", Created), project.ErrNoProject)
}

func TestIgnoredProject(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.IgnoredProjects = []string{"classic-app"}
	s := newServer(t, cfg)

	_, err := s.AddProject(context.Background(), fixtureRoot(t))
	require.ErrorIs(t, err, ErrIgnoredProject)
	assert.Empty(t, s.Projects())
}

func TestLazyRegistry(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.EagerRegistry = false
	s, root := loadFixture(t, cfg)

	p := s.Projects()[0]
	assert.Zero(t, p.Registry().Len())

	_, err := s.ProjectForURI(context.Background(), fileURI(filepath.Join(root, "app", "models", "user.js")))
	require.NoError(t, err)
	assert.NotEmpty(t, p.Registry().PathsFor(layout.Model, "user"))
}

func TestDisableInitialization(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.DisableInitialization = true
	s, root := loadFixture(t, cfg)

	model := filepath.Join(root, "app", "models", "user.js")
	p, err := s.ProjectForURI(context.Background(), fileURI(model))
	require.NoError(t, err)
	assert.Zero(t, p.Registry().Len())

	require.NoError(t, s.TrackChange(fileURI(model), Created))
	assert.Equal(t, []string{model}, p.Registry().PathsFor(layout.Model, "user"))
}

func TestAddProjectReplaces(t *testing.T) {
	t.Parallel()

	s, root := loadFixture(t, nil)
	first := s.Projects()[0]

	unloaded := false
	first.AddDestructor(func(*project.Project) { unloaded = true })

	second, err := s.AddProject(context.Background(), root)
	require.NoError(t, err)
	assert.True(t, unloaded)
	assert.NotSame(t, first, second)
	assert.Len(t, s.Projects(), 1)

	assert.True(t, s.RemoveProject(root))
	assert.False(t, s.RemoveProject(root))
}

func TestInitializerRuns(t *testing.T) {
	t.Parallel()

	var sawModel bool
	s, err := New(
		WithLogger(log.New(io.Discard)),
		WithInitializer(func(_ context.Context, p *project.Project) (project.Destructor, error) {
			sawModel = len(p.Registry().PathsFor(layout.Model, "user")) > 0
			return nil, nil
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.AddProject(context.Background(), fixtureRoot(t))
	require.NoError(t, err)
	assert.True(t, sawModel)
}

func TestLintTemplate(t *testing.T) {
	t.Parallel()

	s, root := loadFixture(t, nil)
	doc := Document{
		URI:  fileURI(filepath.Join(root, "app", "templates", "broken.hbs")),
		Text: "{{#if a}}\n{{/each}}",
	}

	diags, err := s.Lint(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, Position{Line: 1, Column: 0}, diags[0].Range.Start)
	assert.Equal(t, project.SeverityError, diags[0].Severity)
	assert.Contains(t, diags[0].Message, "does not match")
}

func TestLintInlineTemplate(t *testing.T) {
	t.Parallel()

	s, root := loadFixture(t, nil)
	doc := Document{
		URI:  fileURI(filepath.Join(root, "app", "components", "inline.js")),
		Text: "const t = hbs`{{/if}}`;",
	}

	diags, err := s.Lint(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, Position{Line: 0, Column: 14}, diags[0].Range.Start)
}

func TestLintingDisabled(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.UseBuiltinLinting = false
	s, root := loadFixture(t, cfg)

	diags, err := s.Lint(context.Background(), Document{
		URI:  fileURI(filepath.Join(root, "app", "templates", "broken.hbs")),
		Text: "{{/if}}",
	})
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestRegistryCommand(t *testing.T) {
	t.Parallel()

	s, root := loadFixture(t, nil)
	out, err := s.Execute(context.Background(), fileURI(filepath.Join(root, "package.json")), RegistryCommand, nil)
	require.NoError(t, err)

	entries, ok := out.([]registry.Entry)
	require.True(t, ok, "got %T", out)
	assert.Contains(t, entries, registry.Entry{
		Type: layout.Model,
		Name: "user",
		Path: filepath.Join(root, "app", "models", "user.js"),
	})

	_, err = s.Execute(context.Background(), fileURI(root), "nope", nil)
	require.ErrorIs(t, err, project.ErrUnknownCommand)
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	s, root := loadFixture(t, nil)
	snap, err := s.Snapshot(context.Background(), root, true)
	require.NoError(t, err)

	assert.Equal(t, "classic-app", snap.Name)
	assert.Equal(t, "app/pods", snap.PodPrefix)
	require.Len(t, snap.Addons, 1)
	assert.Equal(t, "ui-kit", snap.Addons[0].Name)

	var found bool
	for _, sym := range snap.Symbols {
		if sym.Type == "helper" && sym.Name == "format-date" {
			found = true
			assert.NotEmpty(t, sym.Hash)
		}
	}
	assert.True(t, found, "format-date helper missing from snapshot")

	_, err = s.Snapshot(context.Background(), filepath.Join(root, "app"), false)
	require.ErrorIs(t, err, project.ErrNoProject)
}

func TestWatchTracksNewFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "package.json"), []byte(`{"name": "watched"}`), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "app", "helpers"), 0o755))

	s := newServer(t, nil)
	p, err := s.AddProject(context.Background(), root)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, root, nil) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	helper := filepath.Join(root, "app", "helpers", "slugify.js")
	// Give the watcher time to register the tree.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(helper, []byte("export default 1;"), 0o644))

	assert.Eventually(t, func() bool {
		return len(p.Registry().PathsFor(layout.Helper, "slugify")) == 1
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatchUnknownRoot(t *testing.T) {
	t.Parallel()

	s := newServer(t, nil)
	err := s.Watch(context.Background(), t.TempDir(), nil)
	require.ErrorIs(t, err, project.ErrNoProject)
}
