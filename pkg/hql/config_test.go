package hql

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProjectConfigParsesToml(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hql.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
name = "demo"
entry = "src/main.hql"
out_dir = "build"
source_maps = false
target = "node"

[aliases]
"@app" = "./src"
`), 0o644))

	cfg, err := LoadProjectConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.Name)
	assert.Equal(t, "src/main.hql", cfg.Entry)
	assert.Equal(t, "build", cfg.OutDir)
	assert.False(t, cfg.SourceMaps)
	assert.Equal(t, "node", cfg.Target)
	assert.Equal(t, "./src", cfg.Aliases["@app"])
}

func TestLoadProjectConfigDefaultsUnsetFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hql.toml")
	require.NoError(t, os.WriteFile(path, []byte(`name = "demo"`), 0o644))

	cfg, err := LoadProjectConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "main.hql", cfg.Entry)
	assert.Equal(t, "dist", cfg.OutDir)
	assert.True(t, cfg.SourceMaps)
	assert.Equal(t, "es2022", cfg.Target)
}

func TestFindProjectConfigWalksUpToGitBoundary(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "hql.toml"), []byte(`name = "root-project"`), 0o644))

	nested := filepath.Join(root, "src", "nested")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	cfg, dir, ok := FindProjectConfig(nested)
	require.True(t, ok)
	assert.Equal(t, root, dir)
	assert.Equal(t, "root-project", cfg.Name)
}

func TestFindProjectConfigStopsAtGitBoundaryWithoutManifest(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	nested := filepath.Join(root, "pkg")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	cfg, dir, ok := FindProjectConfig(nested)
	assert.False(t, ok)
	assert.Equal(t, nested, dir)
	assert.Equal(t, DefaultProjectConfig(), cfg)
}
