// Package billyfs adapts a backend to the go-billy filesystem interface, so
// tooling written against billy (template renderers, go-git worktrees) can
// run on top of a capfs namespace without knowing about it.
package billyfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"

	"capfs/internal/common"
	"capfs/internal/vfs"
)

// FS implements billy.Filesystem over a Backend. Billy's API is flag-based
// and rooted, so the adapter maps os.O_* flags onto typed handle opens and
// translates the sentinel errors into the os errors billy consumers expect.
type FS struct {
	ctx context.Context
	b   vfs.Backend
}

var _ billy.Filesystem = (*FS)(nil)

// New returns an adapter using context.Background for every operation.
func New(b vfs.Backend) *FS {
	return NewWithContext(context.Background(), b)
}

// NewWithContext returns an adapter threading ctx through every operation.
func NewWithContext(ctx context.Context, b vfs.Backend) *FS {
	return &FS{ctx: ctx, b: b}
}

// translate maps backend sentinel errors to the os-package errors billy
// callers test with os.IsNotExist and friends.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrNotFound):
		return os.ErrNotExist
	case errors.Is(err, common.ErrExists):
		return os.ErrExist
	case errors.Is(err, common.ErrPermission):
		return os.ErrPermission
	default:
		return err
	}
}

func (fs *FS) Create(filename string) (billy.File, error) {
	return fs.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o666)
}

func (fs *FS) Open(filename string) (billy.File, error) {
	return fs.OpenFile(filename, os.O_RDONLY, 0)
}

func (fs *FS) OpenFile(filename string, flag int, perm os.FileMode) (billy.File, error) {
	name, err := common.NormalizePath(filename)
	if err != nil {
		return nil, err
	}

	_, statErr := fs.b.Stat(fs.ctx, name)
	exists := statErr == nil
	if !exists && !errors.Is(statErr, common.ErrNotFound) {
		return nil, statErr
	}

	switch {
	case exists && flag&os.O_EXCL != 0 && flag&os.O_CREATE != 0:
		return nil, os.ErrExist
	case !exists && flag&os.O_CREATE == 0:
		return nil, os.ErrNotExist
	}

	// O_TRUNC has no direct backend operation; recreating the node drops the
	// old content and resets the version history.
	if exists && flag&os.O_TRUNC != 0 {
		if err := fs.b.Remove(fs.ctx, name); err != nil {
			return nil, translate(err)
		}
		exists = false
	}

	var h vfs.FileHandle[vfs.File, vfs.ReadWrite]
	if exists {
		h, err = vfs.OpenFile[vfs.ReadWrite](fs.ctx, fs.b, name, uint32(perm))
	} else {
		h, err = vfs.CreateFile[vfs.ReadWrite](fs.ctx, fs.b, name, uint32(perm))
	}
	if err != nil {
		return nil, translate(err)
	}

	f := &file{fs: fs, name: name, h: h, flag: flag}
	if flag&os.O_APPEND != 0 {
		st, err := fs.b.Stat(fs.ctx, name)
		if err != nil {
			return nil, translate(err)
		}
		f.pos = int64(st.Size)
	}
	return f, nil
}

func (fs *FS) Stat(filename string) (os.FileInfo, error) {
	name, err := common.NormalizePath(filename)
	if err != nil {
		return nil, err
	}
	st, err := fs.b.Stat(fs.ctx, name)
	if err != nil {
		return nil, translate(err)
	}
	return fileInfo{st}, nil
}

func (fs *FS) Lstat(filename string) (os.FileInfo, error) {
	// No symlinks in the namespace, so Lstat and Stat agree.
	return fs.Stat(filename)
}

func (fs *FS) Rename(oldpath, newpath string) error {
	// Renames would need an atomic multi-node move; copy out and back in
	// instead if you need one.
	return billy.ErrNotSupported
}

func (fs *FS) Remove(filename string) error {
	name, err := common.NormalizePath(filename)
	if err != nil {
		return err
	}
	return translate(fs.b.Remove(fs.ctx, name))
}

func (fs *FS) Join(elem ...string) string {
	return path.Join(elem...)
}

func (fs *FS) TempFile(dir, prefix string) (billy.File, error) {
	return nil, billy.ErrNotSupported
}

func (fs *FS) ReadDir(dirname string) ([]os.FileInfo, error) {
	name, err := common.NormalizePath(dirname)
	if err != nil {
		return nil, err
	}
	h, err := vfs.OpenDir(fs.ctx, fs.b, name, 0)
	if err != nil {
		return nil, translate(err)
	}
	stats, err := vfs.ReadDir(fs.ctx, fs.b, h)
	if err != nil {
		return nil, translate(err)
	}
	infos := make([]os.FileInfo, len(stats))
	for i, st := range stats {
		infos[i] = fileInfo{st}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })
	return infos, nil
}

func (fs *FS) MkdirAll(filename string, perm os.FileMode) error {
	name, err := common.NormalizePath(filename)
	if err != nil {
		return err
	}
	if name == "/" {
		return nil
	}
	var cur string
	for _, part := range strings.Split(strings.TrimPrefix(name, "/"), "/") {
		cur = cur + "/" + part
		_, err := vfs.CreateDir(fs.ctx, fs.b, cur, uint32(perm))
		if err == nil || errors.Is(err, common.ErrExists) {
			continue
		}
		return translate(err)
	}
	// The leaf must actually be a directory now; a file along the way leaves
	// ErrNotDir above, but an existing file at the leaf slips past ErrExists.
	st, err := fs.b.Stat(fs.ctx, name)
	if err != nil {
		return translate(err)
	}
	if !st.Qid.IsDir() {
		return fmt.Errorf("%s: %w", name, os.ErrExist)
	}
	return nil
}

func (fs *FS) Symlink(target, link string) error {
	return billy.ErrNotSupported
}

func (fs *FS) Readlink(link string) (string, error) {
	return "", billy.ErrNotSupported
}

func (fs *FS) Chroot(path string) (billy.Filesystem, error) {
	return nil, billy.ErrNotSupported
}

func (fs *FS) Root() string {
	return "/"
}

// Capabilities reports what the adapter supports; no truncation because the
// backend only grows files in place.
func (fs *FS) Capabilities() billy.Capability {
	return billy.ReadCapability | billy.WriteCapability |
		billy.ReadAndWriteCapability | billy.SeekCapability
}

// file is an open billy handle with a seek position. Reads and writes go
// through the typed backend surface; billy's runtime O_RDONLY/O_WRONLY flags
// are enforced here.
type file struct {
	fs   *FS
	name string
	h    vfs.FileHandle[vfs.File, vfs.ReadWrite]
	flag int

	mu  sync.Mutex
	pos int64
}

var _ billy.File = (*file)(nil)

func (f *file) Name() string {
	return f.name
}

func (f *file) readable() bool {
	return f.flag&os.O_WRONLY == 0
}

func (f *file) writable() bool {
	return f.flag&(os.O_WRONLY|os.O_RDWR) != 0
}

func (f *file) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.readAt(p, f.pos)
	f.pos += int64(n)
	return n, err
}

func (f *file) ReadAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readAt(p, off)
}

func (f *file) readAt(p []byte, off int64) (int, error) {
	if !f.readable() {
		return 0, fmt.Errorf("read %s: %w", f.name, os.ErrPermission)
	}
	if off < 0 {
		return 0, fmt.Errorf("read %s: %w", f.name, common.ErrBadOffset)
	}
	data, err := vfs.Read(f.fs.ctx, f.fs.b, f.h, uint64(off), len(p))
	if err != nil {
		return 0, translate(err)
	}
	n := copy(p, data)
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (f *file) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.writable() {
		return 0, fmt.Errorf("write %s: %w", f.name, os.ErrPermission)
	}
	n, err := vfs.Write(f.fs.ctx, f.fs.b, f.h, uint64(f.pos), p)
	if err != nil {
		return 0, translate(err)
	}
	f.pos += int64(n)
	return n, nil
}

func (f *file) Seek(offset int64, whence int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = f.pos + offset
	case io.SeekEnd:
		st, err := f.fs.b.Stat(f.fs.ctx, f.name)
		if err != nil {
			return 0, translate(err)
		}
		next = int64(st.Size) + offset
	default:
		return 0, fmt.Errorf("seek %s: invalid whence %d", f.name, whence)
	}
	if next < 0 {
		return 0, fmt.Errorf("seek %s: %w", f.name, common.ErrBadOffset)
	}
	f.pos = next
	return next, nil
}

func (f *file) Close() error {
	// Handles hold no backend state; nothing to release.
	return nil
}

func (f *file) Lock() error {
	return billy.ErrNotSupported
}

func (f *file) Unlock() error {
	return billy.ErrNotSupported
}

// Truncate grows the file by zero-filling up to size. Shrinking is not
// supported by the backend contract.
func (f *file) Truncate(size int64) error {
	if !f.writable() {
		return fmt.Errorf("truncate %s: %w", f.name, os.ErrPermission)
	}
	if size < 0 {
		return fmt.Errorf("truncate %s: %w", f.name, common.ErrBadOffset)
	}
	st, err := f.fs.b.Stat(f.fs.ctx, f.name)
	if err != nil {
		return translate(err)
	}
	switch {
	case uint64(size) == st.Size:
		return nil
	case uint64(size) < st.Size:
		return billy.ErrNotSupported
	}
	// A zero-length write at the target offset extends the file.
	_, err = vfs.Write(f.fs.ctx, f.fs.b, f.h, uint64(size), nil)
	return translate(err)
}

// fileInfo adapts a Stat to os.FileInfo.
type fileInfo struct {
	st vfs.Stat
}

func (fi fileInfo) Name() string { return fi.st.Name }

func (fi fileInfo) Size() int64 { return int64(fi.st.Size) }

func (fi fileInfo) Mode() iofs.FileMode {
	mode := iofs.FileMode(fi.st.Mode & 0o777)
	if fi.st.Qid.IsDir() {
		mode |= iofs.ModeDir
	}
	return mode
}

func (fi fileInfo) ModTime() time.Time { return fi.st.Mtime }

func (fi fileInfo) IsDir() bool { return fi.st.Qid.IsDir() }

func (fi fileInfo) Sys() interface{} { return nil }
