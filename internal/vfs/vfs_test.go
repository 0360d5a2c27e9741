package vfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestOSListFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	comp := writeFile(t, root, "app/components/foo.js", "")
	tpl := writeFile(t, root, "app/templates/components/foo.hbs", "")
	writeFile(t, root, "node_modules/x/index.js", "")
	writeFile(t, root, "tmp/app/components/foo.js", "")
	writeFile(t, root, "app/generated/skip.js", "")
	writeFile(t, root, ".gitignore", "app/generated/\n")
	writeFile(t, root, "README.md", "")

	fsys := NewOS()
	got, err := fsys.ListFiles(context.Background(), root, "app/**/*.{js,ts,hbs}")
	require.NoError(t, err)
	assert.Equal(t, []string{comp, tpl}, got)

	all, err := fsys.ListFiles(context.Background(), root)
	require.NoError(t, err)
	assert.Contains(t, all, filepath.Join(root, "README.md"))
	assert.NotContains(t, all, filepath.Join(root, "node_modules/x/index.js"))
}

func TestOSExistsAndRead(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := writeFile(t, root, "a.js", "export default 1;")

	fsys := NewOS()
	assert.True(t, fsys.Exists(path))
	assert.False(t, fsys.Exists(root), "directories are not files")
	assert.False(t, fsys.Exists(filepath.Join(root, "missing.js")))

	data, err := fsys.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "export default 1;", string(data))
}

func TestOSListMissingRoot(t *testing.T) {
	t.Parallel()

	got, err := NewOS().ListFiles(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMapFS(t *testing.T) {
	t.Parallel()

	m := Map{
		"/p/app/components/foo.js":         "",
		"/p/app/components/bar.hbs":        "<b/>",
		"/p/node_modules/x/addon/index.js": "",
		"/q/app/components/foo.js":         "",
	}
	got, err := m.ListFiles(context.Background(), "/p", "app/**/*.js")
	require.NoError(t, err)
	assert.Equal(t, []string{"/p/app/components/foo.js"}, got)

	data, err := m.ReadFile("/p/app/components/bar.hbs")
	require.NoError(t, err)
	assert.Equal(t, "<b/>", string(data))

	_, err = m.ReadFile("/p/missing.js")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
