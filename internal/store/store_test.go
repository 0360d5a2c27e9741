package store

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/emberls/internal/project"
	"github.com/jward/emberls/internal/vfs"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func testSnapshot() Snapshot {
	return Snapshot{
		Root:       "/w/app",
		Name:       "my-app",
		PodPrefix:  "app",
		Namespaces: true,
		IndexedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Addons: []Addon{
			{Name: "ui-kit", Root: "/w/app/node_modules/ui-kit", Script: "/w/app/node_modules/ui-kit/els.risor"},
			{Name: "in-repo", Root: "/w/app/lib/in-repo"},
		},
		Symbols: []Symbol{
			{Type: "component", Name: "foo-bar", Path: "/w/app/app/components/foo-bar.hbs", Hash: "a1"},
			{Type: "component", Name: "foo-bar", Path: "/w/app/app/components/foo-bar.js", Hash: "b2"},
			{Type: "component", Name: "foo-bar", Path: "/w/app/tests/integration/components/foo-bar-test.js", Test: true},
			{Type: "helper", Name: "format_date", Path: "/w/app/app/helpers/format_date.js"},
			{Type: "model", Name: "user", Path: "/w/app/app/models/user.js"},
		},
	}
}

// =============================================================================
// Schema & Lifecycle
// =============================================================================

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"projects", "addons", "files", "symbols"} {
		var name string
		err := s.DB().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

// =============================================================================
// Snapshots
// =============================================================================

func TestSnapshotRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	want := testSnapshot()
	require.NoError(t, s.SaveSnapshot(ctx, want))

	got, err := s.LoadSnapshot(ctx, "/w/app")
	require.NoError(t, err)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.PodPrefix, got.PodPrefix)
	assert.True(t, got.Namespaces)
	assert.False(t, got.ModuleUnification)
	assert.True(t, want.IndexedAt.Equal(got.IndexedAt))
	assert.Equal(t, want.Addons, got.Addons)
	assert.Equal(t, want.Symbols, got.Symbols)
}

func TestSaveSnapshotReplaces(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSnapshot(ctx, testSnapshot()))
	next := testSnapshot()
	next.Symbols = next.Symbols[4:]
	next.Addons = nil
	require.NoError(t, s.SaveSnapshot(ctx, next))

	got, err := s.LoadSnapshot(ctx, "/w/app")
	require.NoError(t, err)
	assert.Empty(t, got.Addons)
	assert.Equal(t, next.Symbols, got.Symbols)

	var files int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM files").Scan(&files))
	assert.Equal(t, 1, files)
}

func TestLoadSnapshotNotFound(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, err := s.LoadSnapshot(context.Background(), "/nowhere")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProjects(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	other := testSnapshot()
	other.Root, other.Name = "/w/admin", "admin"
	other.Symbols = other.Symbols[:1]
	require.NoError(t, s.SaveSnapshot(ctx, testSnapshot()))
	require.NoError(t, s.SaveSnapshot(ctx, other))

	infos, err := s.Projects(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "/w/admin", infos[0].Root)
	assert.Equal(t, 1, infos[0].Symbols)
	assert.Equal(t, "/w/app", infos[1].Root)
	assert.Equal(t, 5, infos[1].Symbols)
}

func TestFindSymbols(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveSnapshot(ctx, testSnapshot()))

	syms, err := s.FindSymbols(ctx, "/w/app", "foo", "component")
	require.NoError(t, err)
	assert.Len(t, syms, 3)

	syms, err = s.FindSymbols(ctx, "/w/app", "", "helper", "model")
	require.NoError(t, err)
	require.Len(t, syms, 2)
	assert.Equal(t, "format_date", syms[0].Name)
	assert.Equal(t, "user", syms[1].Name)

	// Underscore is literal, not a wildcard.
	syms, err = s.FindSymbols(ctx, "/w/app", "t_d")
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Equal(t, "format_date", syms[0].Name)

	syms, err = s.FindSymbols(ctx, "/w/other", "foo")
	require.NoError(t, err)
	assert.Empty(t, syms)
}

func TestDeleteSnapshot(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveSnapshot(ctx, testSnapshot()))

	require.NoError(t, s.DeleteSnapshot(ctx, "/w/app"))
	_, err := s.LoadSnapshot(ctx, "/w/app")
	assert.ErrorIs(t, err, ErrNotFound)

	var symbols int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM symbols").Scan(&symbols))
	assert.Zero(t, symbols)
}

// =============================================================================
// Capture
// =============================================================================

func TestCapture(t *testing.T) {
	t.Parallel()

	fsys := vfs.Map{
		"/w/app/package.json":                                 `{"name": "my-app"}`,
		"/w/app/app/components/foo-bar.js":                    "export default class {}",
		"/w/app/tests/integration/components/foo-bar-test.js": "test()",
	}
	ctx := context.Background()
	p, err := project.New(ctx, "/w/app", project.WithFS(fsys), project.WithLogger(log.New(io.Discard)))
	require.NoError(t, err)
	require.NoError(t, p.Init(ctx))

	snap, err := Capture(ctx, p, true)
	require.NoError(t, err)
	assert.Equal(t, "my-app", snap.Name)
	assert.Equal(t, []Symbol{
		{Type: "component", Name: "foo-bar", Path: "/w/app/app/components/foo-bar.js", Hash: ContentHash([]byte("export default class {}"))},
		{Type: "component", Name: "foo-bar", Path: "/w/app/tests/integration/components/foo-bar-test.js", Test: true, Hash: ContentHash([]byte("test()"))},
	}, snap.Symbols)

	snap, err = Capture(ctx, p, false)
	require.NoError(t, err)
	assert.Empty(t, snap.Symbols[0].Hash)
}

func TestContentHash(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ContentHash([]byte("a")), ContentHash([]byte("a")))
	assert.NotEqual(t, ContentHash([]byte("a")), ContentHash([]byte("b")))
}
