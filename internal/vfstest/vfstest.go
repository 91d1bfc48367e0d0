// Copyright 2024 CapFS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package vfstest provides a conformance suite that every Backend
// implementation must pass. Backend packages call Run from their own tests
// with a factory producing a fresh, empty instance per subtest.
package vfstest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capfs/internal/common"
	"capfs/internal/vfs"
)

// Factory returns a fresh backend containing only the root directory.
type Factory func(t *testing.T) vfs.Backend

// Run exercises the full backend contract against backends produced by f.
func Run(t *testing.T, f Factory) {
	t.Run("Stat", func(t *testing.T) { testStat(t, f) })
	t.Run("Walk", func(t *testing.T) { testWalk(t, f) })
	t.Run("OpenCreate", func(t *testing.T) { testOpenCreate(t, f) })
	t.Run("ReadWrite", func(t *testing.T) { testReadWrite(t, f) })
	t.Run("Remove", func(t *testing.T) { testRemove(t, f) })
	t.Run("ReadDir", func(t *testing.T) { testReadDir(t, f) })
	t.Run("Versions", func(t *testing.T) { testVersions(t, f) })
	t.Run("StaleHandles", func(t *testing.T) { testStaleHandles(t, f) })
}

func testStat(t *testing.T, f Factory) {
	ctx := context.Background()

	t.Run("root always stats", func(t *testing.T) {
		b := f(t)
		st, err := b.Stat(ctx, "/")
		require.NoError(t, err)
		assert.Equal(t, "/", st.Name)
		assert.True(t, st.Qid.IsDir())
		assert.Zero(t, st.Size)
		assert.Equal(t, uint32(0o755), st.Mode)
	})

	t.Run("missing path", func(t *testing.T) {
		b := f(t)
		_, err := b.Stat(ctx, "/nope")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("invalid path", func(t *testing.T) {
		b := f(t)
		_, err := b.Stat(ctx, "/../etc/passwd")
		assert.ErrorIs(t, err, common.ErrInvalidPath)
	})

	t.Run("stat after create", func(t *testing.T) {
		b := f(t)
		_, err := b.Create(ctx, "/docs", vfs.KindDir, 0o755)
		require.NoError(t, err)
		_, err = b.Create(ctx, "/docs/readme.md", vfs.KindFile, 0o644)
		require.NoError(t, err)

		st, err := b.Stat(ctx, "/docs/readme.md")
		require.NoError(t, err)
		assert.Equal(t, "readme.md", st.Name)
		assert.Zero(t, st.Size)
		assert.False(t, st.Qid.IsDir())
		assert.Equal(t, uint32(0o644), st.Mode)
		assert.Equal(t, "user", st.UID)
		assert.Equal(t, "group", st.GID)

		dirStat, err := b.Stat(ctx, "/docs")
		require.NoError(t, err)
		assert.Equal(t, "docs", dirStat.Name)
		assert.True(t, dirStat.Qid.IsDir())
		assert.Zero(t, dirStat.Qid.Version)
	})

	t.Run("qid path is stable and distinct", func(t *testing.T) {
		b := f(t)
		_, err := b.Create(ctx, "/a", vfs.KindFile, 0o644)
		require.NoError(t, err)
		_, err = b.Create(ctx, "/b", vfs.KindFile, 0o644)
		require.NoError(t, err)

		stA1, err := b.Stat(ctx, "/a")
		require.NoError(t, err)
		stA2, err := b.Stat(ctx, "/a")
		require.NoError(t, err)
		stB, err := b.Stat(ctx, "/b")
		require.NoError(t, err)

		assert.Equal(t, stA1.Qid, stA2.Qid)
		assert.NotEqual(t, stA1.Qid.Path, stB.Qid.Path)
	})
}

func testWalk(t *testing.T, f Factory) {
	ctx := context.Background()

	// Lays out /a/b/c.txt.
	setup := func(t *testing.T) vfs.Backend {
		b := f(t)
		_, err := b.Create(ctx, "/a", vfs.KindDir, 0o755)
		require.NoError(t, err)
		_, err = b.Create(ctx, "/a/b", vfs.KindDir, 0o755)
		require.NoError(t, err)
		_, err = b.Create(ctx, "/a/b/c.txt", vfs.KindFile, 0o644)
		require.NoError(t, err)
		return b
	}

	t.Run("full walk", func(t *testing.T) {
		b := setup(t)
		res, err := b.Walk(ctx, "/", []string{"a", "b", "c.txt"})
		require.NoError(t, err)
		require.Len(t, res.Qids, 3)
		assert.True(t, res.Qids[0].IsDir())
		assert.True(t, res.Qids[1].IsDir())
		assert.False(t, res.Qids[2].IsDir())
	})

	t.Run("partial walk succeeds short", func(t *testing.T) {
		b := setup(t)
		res, err := b.Walk(ctx, "/", []string{"a", "missing", "c.txt"})
		require.NoError(t, err)
		assert.Len(t, res.Qids, 1)
	})

	t.Run("walk through file stops", func(t *testing.T) {
		b := setup(t)
		res, err := b.Walk(ctx, "/a/b", []string{"c.txt", "under-a-file"})
		require.NoError(t, err)
		assert.Len(t, res.Qids, 1)
	})

	t.Run("walk from subdirectory", func(t *testing.T) {
		b := setup(t)
		res, err := b.Walk(ctx, "/a", []string{"b"})
		require.NoError(t, err)
		require.Len(t, res.Qids, 1)
		assert.True(t, res.Qids[0].IsDir())
	})

	t.Run("empty names yields empty result", func(t *testing.T) {
		b := setup(t)
		res, err := b.Walk(ctx, "/a", nil)
		require.NoError(t, err)
		assert.Empty(t, res.Qids)
	})

	t.Run("missing start", func(t *testing.T) {
		b := setup(t)
		_, err := b.Walk(ctx, "/nope", []string{"a"})
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("invalid names rejected", func(t *testing.T) {
		b := setup(t)
		_, err := b.Walk(ctx, "/", []string{".."})
		assert.ErrorIs(t, err, common.ErrInvalidPath)
		_, err = b.Walk(ctx, "/", []string{"a/b"})
		assert.ErrorIs(t, err, common.ErrInvalidPath)
	})
}

func testOpenCreate(t *testing.T, f Factory) {
	ctx := context.Background()

	t.Run("create then open file", func(t *testing.T) {
		b := f(t)
		created, err := b.Create(ctx, "/f.txt", vfs.KindFile, 0o644)
		require.NoError(t, err)
		assert.NotZero(t, created.FID)
		assert.Equal(t, "/f.txt", created.Path)
		assert.False(t, created.Qid.IsDir())

		opened, err := b.Open(ctx, "/f.txt", vfs.KindFile, 0o644)
		require.NoError(t, err)
		assert.NotEqual(t, created.FID, opened.FID, "handle ids are never reused")
		assert.Equal(t, created.Qid, opened.Qid)
	})

	t.Run("open missing", func(t *testing.T) {
		b := f(t)
		_, err := b.Open(ctx, "/missing", vfs.KindFile, 0)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("kind mismatch", func(t *testing.T) {
		b := f(t)
		_, err := b.Create(ctx, "/dir", vfs.KindDir, 0o755)
		require.NoError(t, err)
		_, err = b.Create(ctx, "/file", vfs.KindFile, 0o644)
		require.NoError(t, err)

		_, err = b.Open(ctx, "/dir", vfs.KindFile, 0)
		assert.ErrorIs(t, err, common.ErrIsDir)
		_, err = b.Open(ctx, "/file", vfs.KindDir, 0)
		assert.ErrorIs(t, err, common.ErrNotDir)
	})

	t.Run("duplicate create", func(t *testing.T) {
		b := f(t)
		_, err := b.Create(ctx, "/dup", vfs.KindFile, 0o644)
		require.NoError(t, err)
		_, err = b.Create(ctx, "/dup", vfs.KindFile, 0o644)
		assert.ErrorIs(t, err, common.ErrExists)
		_, err = b.Create(ctx, "/dup", vfs.KindDir, 0o755)
		assert.ErrorIs(t, err, common.ErrExists)
	})

	t.Run("missing parent", func(t *testing.T) {
		b := f(t)
		_, err := b.Create(ctx, "/a/b", vfs.KindFile, 0o644)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("file parent", func(t *testing.T) {
		b := f(t)
		_, err := b.Create(ctx, "/a", vfs.KindFile, 0o644)
		require.NoError(t, err)
		_, err = b.Create(ctx, "/a/b", vfs.KindFile, 0o644)
		assert.ErrorIs(t, err, common.ErrNotDir)
	})

	t.Run("traversal rejected", func(t *testing.T) {
		b := f(t)
		_, err := b.Create(ctx, "/../etc/passwd", vfs.KindFile, 0o644)
		assert.ErrorIs(t, err, common.ErrInvalidPath)
	})

	t.Run("unknown kind", func(t *testing.T) {
		b := f(t)
		_, err := b.Create(ctx, "/x", vfs.Kind(42), 0o644)
		assert.ErrorIs(t, err, common.ErrInvalidArg)
	})
}

func testReadWrite(t *testing.T, f Factory) {
	ctx := context.Background()

	newFile := func(t *testing.T) (vfs.Backend, vfs.Handle) {
		b := f(t)
		h, err := b.Create(ctx, "/data.bin", vfs.KindFile, 0o644)
		require.NoError(t, err)
		return b, h
	}

	t.Run("round trip", func(t *testing.T) {
		b, h := newFile(t)
		n, err := b.Write(ctx, h, 0, []byte("Hello VFS!"))
		require.NoError(t, err)
		assert.Equal(t, 10, n)

		got, err := b.Read(ctx, h, 0, 10)
		require.NoError(t, err)
		assert.Equal(t, []byte("Hello VFS!"), got)

		st, err := b.Stat(ctx, "/data.bin")
		require.NoError(t, err)
		assert.Equal(t, uint64(10), st.Size)
	})

	t.Run("round trip at offset", func(t *testing.T) {
		b, h := newFile(t)
		payload := []byte{0x00, 0xff, 0x10, 0x20}
		_, err := b.Write(ctx, h, 1000, payload)
		require.NoError(t, err)
		got, err := b.Read(ctx, h, 1000, len(payload))
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	})

	t.Run("read past end is empty", func(t *testing.T) {
		b, h := newFile(t)
		_, err := b.Write(ctx, h, 0, []byte("abc"))
		require.NoError(t, err)
		got, err := b.Read(ctx, h, 100, 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("read at exact end is empty", func(t *testing.T) {
		b, h := newFile(t)
		_, err := b.Write(ctx, h, 0, []byte("abc"))
		require.NoError(t, err)
		got, err := b.Read(ctx, h, 3, 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("short read at boundary", func(t *testing.T) {
		b, h := newFile(t)
		_, err := b.Write(ctx, h, 0, []byte("abcdef"))
		require.NoError(t, err)
		got, err := b.Read(ctx, h, 4, 10)
		require.NoError(t, err)
		assert.Equal(t, []byte("ef"), got)
	})

	t.Run("gap is zero filled", func(t *testing.T) {
		b, h := newFile(t)
		_, err := b.Write(ctx, h, 0, []byte("Hello"))
		require.NoError(t, err)
		_, err = b.Write(ctx, h, 7, []byte("World"))
		require.NoError(t, err)

		got, err := b.Read(ctx, h, 0, 100)
		require.NoError(t, err)
		want := append([]byte("Hello"), 0x00, 0x00)
		want = append(want, []byte("World")...)
		assert.Equal(t, want, got)

		st, err := b.Stat(ctx, "/data.bin")
		require.NoError(t, err)
		assert.Equal(t, uint64(12), st.Size)
	})

	t.Run("overwrite splices in place", func(t *testing.T) {
		b, h := newFile(t)
		_, err := b.Write(ctx, h, 0, []byte("aaaaaa"))
		require.NoError(t, err)
		_, err = b.Write(ctx, h, 2, []byte("bb"))
		require.NoError(t, err)
		got, err := b.Read(ctx, h, 0, 10)
		require.NoError(t, err)
		assert.Equal(t, []byte("aabbaa"), got)
	})

	t.Run("read from directory handle kind", func(t *testing.T) {
		b := f(t)
		h, err := b.Open(ctx, "/", vfs.KindDir, 0)
		require.NoError(t, err)
		// The typed surface makes this unrepresentable; the stored kind is
		// still checked defensively.
		_, err = b.Read(ctx, h, 0, 10)
		assert.ErrorIs(t, err, common.ErrIsDir)
		_, err = b.Write(ctx, h, 0, []byte("x"))
		assert.ErrorIs(t, err, common.ErrIsDir)
	})
}

func testRemove(t *testing.T, f Factory) {
	ctx := context.Background()

	t.Run("remove file", func(t *testing.T) {
		b := f(t)
		_, err := b.Create(ctx, "/gone.txt", vfs.KindFile, 0o644)
		require.NoError(t, err)
		require.NoError(t, b.Remove(ctx, "/gone.txt"))
		_, err = b.Stat(ctx, "/gone.txt")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("remove empty dir", func(t *testing.T) {
		b := f(t)
		_, err := b.Create(ctx, "/d", vfs.KindDir, 0o755)
		require.NoError(t, err)
		require.NoError(t, b.Remove(ctx, "/d"))
	})

	t.Run("remove root denied", func(t *testing.T) {
		b := f(t)
		err := b.Remove(ctx, "/")
		assert.ErrorIs(t, err, common.ErrPermission)
	})

	t.Run("remove non-empty dir", func(t *testing.T) {
		b := f(t)
		_, err := b.Create(ctx, "/d", vfs.KindDir, 0o755)
		require.NoError(t, err)
		_, err = b.Create(ctx, "/d/child.txt", vfs.KindFile, 0o644)
		require.NoError(t, err)

		err = b.Remove(ctx, "/d")
		assert.ErrorIs(t, err, common.ErrInvalidArg)

		// Empties out, then removal succeeds.
		require.NoError(t, b.Remove(ctx, "/d/child.txt"))
		require.NoError(t, b.Remove(ctx, "/d"))
	})

	t.Run("remove missing", func(t *testing.T) {
		b := f(t)
		err := b.Remove(ctx, "/nope")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("create after remove", func(t *testing.T) {
		b := f(t)
		_, err := b.Create(ctx, "/x", vfs.KindFile, 0o644)
		require.NoError(t, err)
		require.NoError(t, b.Remove(ctx, "/x"))
		_, err = b.Create(ctx, "/x", vfs.KindDir, 0o755)
		require.NoError(t, err)
	})
}

func testReadDir(t *testing.T, f Factory) {
	ctx := context.Background()

	names := func(stats []vfs.Stat) []string {
		out := make([]string, len(stats))
		for i, st := range stats {
			out[i] = st.Name
		}
		return out
	}

	t.Run("lists immediate children only", func(t *testing.T) {
		b := f(t)
		_, err := b.Create(ctx, "/dir1", vfs.KindDir, 0o755)
		require.NoError(t, err)
		_, err = b.Create(ctx, "/dir1/dir2", vfs.KindDir, 0o755)
		require.NoError(t, err)
		_, err = b.Create(ctx, "/dir1/dir2/file.txt", vfs.KindFile, 0o644)
		require.NoError(t, err)

		root, err := b.Open(ctx, "/", vfs.KindDir, 0)
		require.NoError(t, err)
		entries, err := b.ReadDir(ctx, root)
		require.NoError(t, err)
		assert.Equal(t, []string{"dir1"}, names(entries))

		inner, err := b.Open(ctx, "/dir1/dir2", vfs.KindDir, 0)
		require.NoError(t, err)
		entries, err = b.ReadDir(ctx, inner)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "file.txt", entries[0].Name)
		assert.False(t, entries[0].Qid.IsDir())
	})

	t.Run("empty directory", func(t *testing.T) {
		b := f(t)
		_, err := b.Create(ctx, "/empty", vfs.KindDir, 0o755)
		require.NoError(t, err)
		h, err := b.Open(ctx, "/empty", vfs.KindDir, 0)
		require.NoError(t, err)
		entries, err := b.ReadDir(ctx, h)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("complete listing", func(t *testing.T) {
		b := f(t)
		want := []string{"a", "b.txt", "c", "d.log"}
		_, err := b.Create(ctx, "/a", vfs.KindDir, 0o755)
		require.NoError(t, err)
		_, err = b.Create(ctx, "/b.txt", vfs.KindFile, 0o644)
		require.NoError(t, err)
		_, err = b.Create(ctx, "/c", vfs.KindDir, 0o755)
		require.NoError(t, err)
		_, err = b.Create(ctx, "/d.log", vfs.KindFile, 0o644)
		require.NoError(t, err)
		// A nested entry must not show up at the root.
		_, err = b.Create(ctx, "/a/nested", vfs.KindFile, 0o644)
		require.NoError(t, err)

		h, err := b.Open(ctx, "/", vfs.KindDir, 0)
		require.NoError(t, err)
		entries, err := b.ReadDir(ctx, h)
		require.NoError(t, err)
		assert.ElementsMatch(t, want, names(entries))
	})
}

func testVersions(t *testing.T, f Factory) {
	ctx := context.Background()

	t.Run("writes strictly increase the version", func(t *testing.T) {
		b := f(t)
		h, err := b.Create(ctx, "/v.txt", vfs.KindFile, 0o644)
		require.NoError(t, err)

		st, err := b.Stat(ctx, "/v.txt")
		require.NoError(t, err)
		assert.Equal(t, uint32(0), st.Qid.Version, "fresh files start at version 0")

		for i := 1; i <= 3; i++ {
			_, err = b.Write(ctx, h, 0, []byte("x"))
			require.NoError(t, err)
			st, err = b.Stat(ctx, "/v.txt")
			require.NoError(t, err)
			assert.Equal(t, uint32(i), st.Qid.Version)
		}
	})

	t.Run("reads do not change the version", func(t *testing.T) {
		b := f(t)
		h, err := b.Create(ctx, "/v.txt", vfs.KindFile, 0o644)
		require.NoError(t, err)
		_, err = b.Write(ctx, h, 0, []byte("x"))
		require.NoError(t, err)

		before, err := b.Stat(ctx, "/v.txt")
		require.NoError(t, err)
		_, err = b.Read(ctx, h, 0, 1)
		require.NoError(t, err)
		_, err = b.Walk(ctx, "/", []string{"v.txt"})
		require.NoError(t, err)
		after, err := b.Stat(ctx, "/v.txt")
		require.NoError(t, err)
		assert.Equal(t, before.Qid, after.Qid)
	})
}

func testStaleHandles(t *testing.T, f Factory) {
	ctx := context.Background()

	t.Run("operations through a removed node fail not-found", func(t *testing.T) {
		b := f(t)
		h, err := b.Create(ctx, "/s.txt", vfs.KindFile, 0o644)
		require.NoError(t, err)
		require.NoError(t, b.Remove(ctx, "/s.txt"))

		_, err = b.Read(ctx, h, 0, 1)
		assert.ErrorIs(t, err, common.ErrNotFound)
		_, err = b.Write(ctx, h, 0, []byte("x"))
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("stale directory handle", func(t *testing.T) {
		b := f(t)
		_, err := b.Create(ctx, "/d", vfs.KindDir, 0o755)
		require.NoError(t, err)
		h, err := b.Open(ctx, "/d", vfs.KindDir, 0)
		require.NoError(t, err)
		require.NoError(t, b.Remove(ctx, "/d"))

		_, err = b.ReadDir(ctx, h)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}
