package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQidHelpers(t *testing.T) {
	t.Parallel()

	t.Run("file qid", func(t *testing.T) {
		q := FileQid(42, 7)
		assert.Equal(t, QTFile, q.Type)
		assert.Equal(t, uint32(7), q.Version)
		assert.Equal(t, uint64(42), q.Path)
		assert.False(t, q.IsDir())
	})

	t.Run("dir qid", func(t *testing.T) {
		q := DirQid(42)
		assert.Equal(t, QTDir, q.Type)
		assert.Zero(t, q.Version)
		assert.True(t, q.IsDir())
	})

	t.Run("equality tracks version", func(t *testing.T) {
		assert.Equal(t, FileQid(1, 0), FileQid(1, 0))
		assert.NotEqual(t, FileQid(1, 0), FileQid(1, 1))
		assert.NotEqual(t, FileQid(1, 0), FileQid(2, 0))
	})
}

func TestPathID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, PathID("/a/b"), PathID("/a/b"))
	assert.NotEqual(t, PathID("/a/b"), PathID("/a/c"))
	assert.NotEqual(t, PathID("/"), PathID(""))
}

func TestKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "file", KindFile.String())
	assert.Equal(t, "dir", KindDir.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
