package billyfs

import (
	"io"
	"os"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capfs/internal/vfs"
)

func newFS(t *testing.T) *FS {
	t.Helper()
	return New(vfs.NewMemFS())
}

func TestCreateWriteRead(t *testing.T) {
	t.Parallel()
	fs := newFS(t)

	f, err := fs.Create("/hello.txt")
	require.NoError(t, err)
	n, err := f.Write([]byte("hello billy"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	require.NoError(t, f.Close())

	f, err = fs.Open("/hello.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "hello billy", string(data))
	require.NoError(t, f.Close())
}

func TestOpenMissing(t *testing.T) {
	t.Parallel()
	fs := newFS(t)

	_, err := fs.Open("/missing")
	assert.True(t, os.IsNotExist(err))
	_, err = fs.Stat("/missing")
	assert.True(t, os.IsNotExist(err))
}

func TestOpenFileFlags(t *testing.T) {
	t.Parallel()
	fs := newFS(t)

	t.Run("excl on existing", func(t *testing.T) {
		f, err := fs.Create("/excl.txt")
		require.NoError(t, err)
		f.Close()
		_, err = fs.OpenFile("/excl.txt", os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
		assert.True(t, os.IsExist(err))
	})

	t.Run("trunc drops content", func(t *testing.T) {
		f, err := fs.Create("/trunc.txt")
		require.NoError(t, err)
		_, err = f.Write([]byte("old content"))
		require.NoError(t, err)
		f.Close()

		f, err = fs.OpenFile("/trunc.txt", os.O_RDWR|os.O_TRUNC, 0o644)
		require.NoError(t, err)
		f.Close()

		fi, err := fs.Stat("/trunc.txt")
		require.NoError(t, err)
		assert.Zero(t, fi.Size())
	})

	t.Run("append starts at end", func(t *testing.T) {
		f, err := fs.Create("/app.txt")
		require.NoError(t, err)
		_, err = f.Write([]byte("ab"))
		require.NoError(t, err)
		f.Close()

		f, err = fs.OpenFile("/app.txt", os.O_RDWR|os.O_APPEND, 0o644)
		require.NoError(t, err)
		_, err = f.Write([]byte("cd"))
		require.NoError(t, err)
		f.Close()

		f, err = fs.Open("/app.txt")
		require.NoError(t, err)
		data, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, "abcd", string(data))
	})

	t.Run("write denied on read-only handle", func(t *testing.T) {
		f, err := fs.Create("/ro.txt")
		require.NoError(t, err)
		f.Close()
		f, err = fs.Open("/ro.txt")
		require.NoError(t, err)
		_, err = f.Write([]byte("x"))
		assert.Error(t, err)
	})
}

func TestSeekAndReadAt(t *testing.T) {
	t.Parallel()
	fs := newFS(t)

	f, err := fs.Create("/seek.txt")
	require.NoError(t, err)
	_, err = f.Write([]byte("0123456789"))
	require.NoError(t, err)

	pos, err := f.Seek(4, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(4), pos)
	buf := make([]byte, 3)
	n, err := f.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "456", string(buf[:n]))

	pos, err = f.Seek(-2, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(8), pos)

	_, err = f.Seek(-100, io.SeekCurrent)
	assert.Error(t, err)

	n, err = f.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "012", string(buf[:n]))
}

func TestReadPastEnd(t *testing.T) {
	t.Parallel()
	fs := newFS(t)

	f, err := fs.Create("/eof.txt")
	require.NoError(t, err)
	_, err = f.Write([]byte("x"))
	require.NoError(t, err)
	_, err = f.Seek(0, io.SeekStart)
	require.NoError(t, err)

	buf := make([]byte, 10)
	n, err := f.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = f.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	fs := newFS(t)

	f, err := fs.Create("/t.txt")
	require.NoError(t, err)
	_, err = f.Write([]byte("abc"))
	require.NoError(t, err)

	// Growing zero-fills.
	require.NoError(t, f.Truncate(5))
	fi, err := fs.Stat("/t.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), fi.Size())

	// Shrinking is not supported.
	assert.ErrorIs(t, f.Truncate(1), billy.ErrNotSupported)
}

func TestMkdirAllAndReadDir(t *testing.T) {
	t.Parallel()
	fs := newFS(t)

	require.NoError(t, fs.MkdirAll("/a/b/c", 0o755))
	// Idempotent.
	require.NoError(t, fs.MkdirAll("/a/b/c", 0o755))

	f, err := fs.Create("/a/b/one.txt")
	require.NoError(t, err)
	f.Close()

	infos, err := fs.ReadDir("/a/b")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "c", infos[0].Name())
	assert.True(t, infos[0].IsDir())
	assert.Equal(t, "one.txt", infos[1].Name())
	assert.False(t, infos[1].IsDir())
}

func TestMkdirAllOverFile(t *testing.T) {
	t.Parallel()
	fs := newFS(t)

	f, err := fs.Create("/blocker")
	require.NoError(t, err)
	f.Close()
	assert.Error(t, fs.MkdirAll("/blocker", 0o755))
	assert.Error(t, fs.MkdirAll("/blocker/sub", 0o755))
}

func TestRemove(t *testing.T) {
	t.Parallel()
	fs := newFS(t)

	f, err := fs.Create("/gone")
	require.NoError(t, err)
	f.Close()
	require.NoError(t, fs.Remove("/gone"))
	assert.True(t, os.IsNotExist(fs.Remove("/gone")))
}

func TestUnsupportedOperations(t *testing.T) {
	t.Parallel()
	fs := newFS(t)

	assert.ErrorIs(t, fs.Rename("/a", "/b"), billy.ErrNotSupported)
	assert.ErrorIs(t, fs.Symlink("/a", "/b"), billy.ErrNotSupported)
	_, err := fs.Readlink("/a")
	assert.ErrorIs(t, err, billy.ErrNotSupported)
	_, err = fs.Chroot("/a")
	assert.ErrorIs(t, err, billy.ErrNotSupported)
	_, err = fs.TempFile("", "tmp")
	assert.ErrorIs(t, err, billy.ErrNotSupported)
}

func TestJoinAndRoot(t *testing.T) {
	t.Parallel()
	fs := newFS(t)

	assert.Equal(t, "/a/b", fs.Join("/a", "b"))
	assert.Equal(t, "/", fs.Root())
}
