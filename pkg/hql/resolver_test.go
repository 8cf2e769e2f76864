package hql

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySpecifier(t *testing.T) {
	assert.Equal(t, SpecifierLocal, ClassifySpecifier("./foo.hql"))
	assert.Equal(t, SpecifierNPM, ClassifySpecifier("npm:lodash"))
	assert.Equal(t, SpecifierJSR, ClassifySpecifier("jsr:@std/fs"))
	assert.Equal(t, SpecifierHTTPS, ClassifySpecifier("https://example.com/mod.hql"))
}

func TestResolveLocalFindsHqlSuffix(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "util.hql"), []byte("(defmacro noop [] nil)"), 0o644))

	r := NewResolver(dir)
	src, err := r.Resolve(context.Background(), "./util", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "util.hql"), src.Path)
}

func TestResolveLocalMissingModule(t *testing.T) {
	r := NewResolver(t.TempDir())
	_, err := r.Resolve(context.Background(), "./missing", "")
	require.Error(t, err)
	var notFound *ModuleNotFound
	require.ErrorAs(t, err, &notFound)
}

func TestBeginCompileDetectsImportCycle(t *testing.T) {
	r := NewResolver(t.TempDir())
	_, _, err := r.BeginCompile("/a.hql", []string{"/c.hql", "/b.hql", "/a.hql"})
	require.Error(t, err)
	var cycleErr *ImportCycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []string{"/c.hql", "/b.hql", "/a.hql", "/a.hql"}, cycleErr.Chain)
}

func TestBeginCompileSecondCallerAwaitsFirst(t *testing.T) {
	r := NewResolver(t.TempDir())
	entry, owner, err := r.BeginCompile("/a.hql", nil)
	require.NoError(t, err)
	assert.True(t, owner)

	entry2, owner2, err := r.BeginCompile("/a.hql", nil)
	require.NoError(t, err)
	assert.False(t, owner2)
	assert.Same(t, entry, entry2)

	want := &TranspileResult{Code: "const x = 1;"}
	r.FinishCompile(entry, want, nil)

	got, err := r.Await(context.Background(), entry2)
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestAwaitRespectsCancellation(t *testing.T) {
	r := NewResolver(t.TempDir())
	entry, _, err := r.BeginCompile("/a.hql", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Await(ctx, entry)
	require.Error(t, err)
	var cancelled *CancelledError
	require.ErrorAs(t, err, &cancelled)
}
