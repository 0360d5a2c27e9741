package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, path, err := Load(context.Background(), LoadOptions{ProjectRoot: t.TempDir()})
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, 60*time.Second, cfg.CacheTTL)
	assert.Equal(t, 8, cfg.MaxConcurrentReads)
	assert.True(t, cfg.IncludeModules)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadProjectFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	content := `
namespaces: true
cache_ttl: 5s
ignored_projects: [docs-app]
addons:
  - name: shared-ui
    root: /work/shared-ui
`
	require.NoError(t, os.WriteFile(filepath.Join(root, ".emberls.yaml"), []byte(content), 0o644))

	cfg, path, err := Load(context.Background(), LoadOptions{ProjectRoot: root})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ".emberls.yaml"), path)
	assert.True(t, cfg.Namespaces)
	assert.Equal(t, 5*time.Second, cfg.CacheTTL)
	assert.True(t, cfg.IsIgnored("docs-app"))
	require.Len(t, cfg.Addons, 1)
	assert.Equal(t, AddonRoot{Name: "shared-ui", Root: "/work/shared-ui"}, cfg.Addons[0])
}

func TestLoadExplicitFileMissing(t *testing.T) {
	t.Parallel()

	_, _, err := Load(context.Background(), LoadOptions{File: filepath.Join(t.TempDir(), "nope.yaml")})
	require.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "c.yaml"), []byte("max_concurrent_reads: 0\n"), 0o644))
	_, _, err := Load(context.Background(), LoadOptions{File: filepath.Join(root, "c.yaml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurrent_reads")
}

func TestLoadCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Load(ctx, LoadOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
