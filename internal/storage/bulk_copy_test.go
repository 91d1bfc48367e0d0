package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capfs/internal/storage"
	"capfs/internal/vfs"
)

// writeHostTree lays out a small tree on the host filesystem.
func writeHostTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

func TestImportTree(t *testing.T) {
	ctx := context.Background()
	src := t.TempDir()
	writeHostTree(t, src, map[string]string{
		"readme.md":        "hello",
		"src/main.go":      "package main",
		"src/util/util.go": "package util",
		"empty.txt":        "",
	})

	fs := vfs.NewMemFS()
	stats, err := storage.ImportTree(ctx, fs, src, "/", nil)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Files)
	assert.Equal(t, 2, stats.Dirs)
	assert.Equal(t, int64(29), stats.Bytes)

	st, err := fs.Stat(ctx, "/src/util/util.go")
	require.NoError(t, err)
	assert.Equal(t, uint64(12), st.Size)

	h, err := vfs.OpenFile[vfs.ReadOnly](ctx, fs, "/readme.md", 0)
	require.NoError(t, err)
	data, err := vfs.Read(ctx, fs, h, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestImportTreeFilter(t *testing.T) {
	ctx := context.Background()
	src := t.TempDir()
	writeHostTree(t, src, map[string]string{
		"keep.txt":            "keep",
		"skip.log":            "skip",
		"node_modules/lib.js": "junk",
	})

	filter := func(relPath string, isDir bool) bool {
		if isDir && relPath == "node_modules" {
			return false
		}
		return !strings.HasSuffix(relPath, ".log")
	}

	fs := vfs.NewMemFS()
	stats, err := storage.ImportTree(ctx, fs, src, "/", filter)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Files)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.SkippedDirs)

	_, err = fs.Stat(ctx, "/keep.txt")
	assert.NoError(t, err)
	_, err = fs.Stat(ctx, "/skip.log")
	assert.Error(t, err)
	_, err = fs.Stat(ctx, "/node_modules")
	assert.Error(t, err)
}

func TestImportTreeIntoSubdirectory(t *testing.T) {
	ctx := context.Background()
	src := t.TempDir()
	writeHostTree(t, src, map[string]string{"f.txt": "x"})

	fs := vfs.NewMemFS()
	_, err := vfs.CreateDir(ctx, fs, "/import", 0o755)
	require.NoError(t, err)

	_, err = storage.ImportTree(ctx, fs, src, "/import", nil)
	require.NoError(t, err)
	_, err = fs.Stat(ctx, "/import/f.txt")
	assert.NoError(t, err)

	// Destination must already exist.
	_, err = storage.ImportTree(ctx, fs, src, "/missing", nil)
	assert.Error(t, err)
}

func TestExportTree(t *testing.T) {
	ctx := context.Background()
	fs := vfs.NewMemFS()

	_, err := vfs.CreateDir(ctx, fs, "/out", 0o755)
	require.NoError(t, err)
	h, err := vfs.CreateFile[vfs.ReadWrite](ctx, fs, "/out/data.txt", 0o644)
	require.NoError(t, err)
	_, err = vfs.Write(ctx, fs, h, 0, []byte("exported"))
	require.NoError(t, err)
	_, err = vfs.CreateDir(ctx, fs, "/out/nested", 0o755)
	require.NoError(t, err)
	h2, err := vfs.CreateFile[vfs.ReadWrite](ctx, fs, "/out/nested/deep.txt", 0o644)
	require.NoError(t, err)
	_, err = vfs.Write(ctx, fs, h2, 0, []byte("deep"))
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "exported")
	stats, err := storage.ExportTree(ctx, fs, "/out", dest)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, 1, stats.Dirs)

	data, err := os.ReadFile(filepath.Join(dest, "data.txt"))
	require.NoError(t, err)
	assert.Equal(t, "exported", string(data))
	data, err = os.ReadFile(filepath.Join(dest, "nested", "deep.txt"))
	require.NoError(t, err)
	assert.Equal(t, "deep", string(data))
}

func TestImportExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := t.TempDir()
	files := map[string]string{
		"a.txt":     "alpha",
		"dir/b.txt": "beta",
	}
	writeHostTree(t, src, files)

	store, err := storage.Create(filepath.Join(t.TempDir(), "rt.capfs"))
	require.NoError(t, err)
	defer store.Close()
	fs := storage.NewSQLFS(store)

	_, err = storage.ImportTree(ctx, fs, src, "/", nil)
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "out")
	_, err = storage.ExportTree(ctx, fs, "/", dest)
	require.NoError(t, err)

	for rel, content := range files {
		data, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(rel)))
		require.NoError(t, err)
		assert.Equal(t, content, string(data))
	}
}
