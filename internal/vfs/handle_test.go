package vfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capfs/internal/common"
)

// These tests exercise the typed functions end to end against MemFS. The
// compile-time guarantees (no Read through a WriteOnly handle, no Write
// through ReadOnly, no ReadDir on a file handle) cannot be tested at runtime;
// what is tested here is that the legal combinations behave.

func TestTypedFileLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fs := NewMemFS()

	h, err := CreateFile[ReadWrite](ctx, fs, "/notes.txt", 0o644)
	require.NoError(t, err)
	assert.Equal(t, "/notes.txt", h.Path)
	assert.False(t, h.Qid.IsDir())

	n, err := Write(ctx, fs, h, 0, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	got, err := Read(ctx, fs, h, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestTypedReadOnlyReads(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fs := NewMemFS()

	w, err := CreateFile[WriteOnly](ctx, fs, "/w.txt", 0o644)
	require.NoError(t, err)
	_, err = Write(ctx, fs, w, 0, []byte("data"))
	require.NoError(t, err)

	r, err := OpenFile[ReadOnly](ctx, fs, "/w.txt", 0o444)
	require.NoError(t, err)
	got, err := Read(ctx, fs, r, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), got)
}

func TestTypedDirLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fs := NewMemFS()

	d, err := CreateDir(ctx, fs, "/docs", 0o755)
	require.NoError(t, err)
	assert.True(t, d.Qid.IsDir())

	_, err = CreateFile[ReadWrite](ctx, fs, "/docs/a.txt", 0o644)
	require.NoError(t, err)

	d2, err := OpenDir(ctx, fs, "/docs", 0o755)
	require.NoError(t, err)
	entries, err := ReadDir(ctx, fs, d2)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.txt", entries[0].Name)
}

func TestTypedKindMismatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fs := NewMemFS()

	_, err := CreateDir(ctx, fs, "/d", 0o755)
	require.NoError(t, err)
	_, err = CreateFile[ReadWrite](ctx, fs, "/f", 0o644)
	require.NoError(t, err)

	_, err = OpenFile[ReadOnly](ctx, fs, "/d", 0)
	assert.ErrorIs(t, err, common.ErrIsDir)
	_, err = OpenDir(ctx, fs, "/f", 0)
	assert.ErrorIs(t, err, common.ErrNotDir)
}

func TestHandleIDsUnique(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fs := NewMemFS()

	_, err := CreateFile[ReadWrite](ctx, fs, "/f", 0o644)
	require.NoError(t, err)

	seen := make(map[uint64]bool)
	for range 50 {
		h, err := OpenFile[ReadOnly](ctx, fs, "/f", 0)
		require.NoError(t, err)
		assert.False(t, seen[h.FID], "fid %d issued twice", h.FID)
		seen[h.FID] = true
	}
}
