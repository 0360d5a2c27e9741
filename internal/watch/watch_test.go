package watch

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
	"go.uber.org/goleak"

	"github.com/jward/emberls/internal/project"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// start runs a watcher over dir and returns a channel of its batches. The
// watcher is stopped and drained on cleanup.
func start(t *testing.T, dir string) <-chan []Event {
	t.Helper()

	batches := make(chan []Event, 16)
	w, err := New(Config{
		Root:     dir,
		Debounce: 50 * time.Millisecond,
		Logger:   log.New(io.Discard),
		OnChange: func(_ context.Context, events []Event) {
			batches <- events
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-errCh)
	})
	return batches
}

// collect merges batches until want paths have been seen or the deadline
// passes.
func collect(t *testing.T, batches <-chan []Event, want int) map[string]project.ChangeKind {
	t.Helper()

	got := make(map[string]project.ChangeKind)
	deadline := time.After(5 * time.Second)
	for len(got) < want {
		select {
		case events := <-batches:
			for _, e := range events {
				got[e.Path] = e.Kind
			}
		case <-deadline:
			t.Fatalf("timed out with %d of %d changes: %v", len(got), want, got)
		}
	}
	return got
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCoalescesCreatedFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "app", "components"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules", "ui-kit"), 0o755))
	batches := start(t, dir)

	foo := filepath.Join(dir, "app", "components", "foo-bar.js")
	tpl := filepath.Join(dir, "app", "components", "foo-bar.hbs")
	write(t, foo, "export default class {}")
	write(t, tpl, "{{yield}}")
	write(t, filepath.Join(dir, "app", "notes.txt"), "ignored")
	write(t, filepath.Join(dir, "node_modules", "ui-kit", "index.js"), "ignored")

	got := collect(t, batches, 2)
	assert.Equal(t, map[string]project.ChangeKind{
		foo: project.Created,
		tpl: project.Created,
	}, got)
}

func TestReportsChangesAndDeletes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	changed := filepath.Join(dir, "app", "helpers", "format-date.js")
	removed := filepath.Join(dir, "app", "helpers", "old.js")
	write(t, changed, "export default 1")
	write(t, removed, "export default 2")
	batches := start(t, dir)

	write(t, changed, "export default 3")
	require.NoError(t, os.Remove(removed))

	got := collect(t, batches, 2)
	assert.Equal(t, project.Changed, got[changed])
	assert.Equal(t, project.Deleted, got[removed])
}

func TestWatchesNewDirectories(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	batches := start(t, dir)

	sub := filepath.Join(dir, "app", "routes")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	// Give the watcher time to see the directory before the file lands in it.
	time.Sleep(100 * time.Millisecond)
	route := filepath.Join(sub, "items.js")
	write(t, route, "")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case events := <-batches:
			for _, e := range events {
				if e.Path == route {
					return
				}
			}
		case <-deadline:
			t.Fatal("change in new directory never reported")
		}
	}
}

func TestReportsFilesInNewTree(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	batches := start(t, dir)

	// No pause: the files may exist before the nested directories are watched.
	helper := filepath.Join(dir, "addon", "helpers", "deep", "kit-join.js")
	tpl := filepath.Join(dir, "addon", "templates", "components", "kit-button.hbs")
	write(t, helper, "")
	write(t, tpl, "")
	write(t, filepath.Join(dir, "addon", "helpers", "deep", "notes.txt"), "")

	got := collect(t, batches, 2)
	assert.Contains(t, got, helper)
	assert.Contains(t, got, tpl)
	assert.NotContains(t, got, filepath.Join(dir, "addon", "helpers", "deep", "notes.txt"))

	later := filepath.Join(dir, "addon", "helpers", "deep", "kit-split.js")
	write(t, later, "")
	waitFor(t, batches, later)
}

// waitFor drains batches until path is reported.
func waitFor(t *testing.T, batches <-chan []Event, path string) {
	t.Helper()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case events := <-batches:
			for _, e := range events {
				if e.Path == path {
					return
				}
			}
		case <-deadline:
			t.Fatalf("%s never reported", path)
		}
	}
}

func TestRunTwice(t *testing.T) {
	t.Parallel()

	w, err := New(Config{Root: t.TempDir(), Logger: log.New(io.Discard)})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Run(ctx))
	err = w.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "more than once")
}

func TestInvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Root: t.TempDir(), Patterns: []string{"app/[unclosed"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid pattern")
}

func TestMerge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prev, next, want project.ChangeKind
	}{
		{project.Created, project.Changed, project.Created},
		{project.Created, project.Deleted, project.Deleted},
		{project.Deleted, project.Created, project.Changed},
		{project.Changed, project.Changed, project.Changed},
		{project.Changed, project.Deleted, project.Deleted},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, merge(tt.prev, tt.next), "%v then %v", tt.prev, tt.next)
	}
}

func TestSelected(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, err := New(Config{Root: dir, Logger: log.New(io.Discard)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.fsw.Close() })

	tests := []struct {
		rel  string
		want bool
	}{
		{"app/components/foo.js", true},
		{"app/components/foo.hbs", true},
		{"addon/utils/x.ts", true},
		{"package.json", true},
		{"lib/engine/package.json", true},
		{"README.md", false},
		{"node_modules/ui-kit/index.js", false},
		{".git/HEAD", false},
		{"tmp/broccoli/foo.js", false},
		{"dist/assets/app.js", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, w.selected(filepath.Join(dir, tt.rel)), tt.rel)
	}
}
