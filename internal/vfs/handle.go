package vfs

import "context"

// FileHandle is an opened reference to a node, parameterized by the object
// kind and the access mode granted at open time. Both parameters are
// phantom: they carry no data, but Read, Write and ReadDir constrain them,
// so reading through a write-only handle or listing a file handle does not
// compile. Handles are plain values and may be freely copied.
type FileHandle[K ObjectKind, A AccessMode] struct {
	Handle
}

// OpenFile opens an existing regular file with access mode A.
//
//	h, err := vfs.OpenFile[vfs.ReadWrite](ctx, backend, "/notes.txt", 0o644)
func OpenFile[A AccessMode](ctx context.Context, b Backend, path string, mode uint32) (FileHandle[File, A], error) {
	h, err := b.Open(ctx, path, KindFile, mode)
	if err != nil {
		return FileHandle[File, A]{}, err
	}
	return FileHandle[File, A]{Handle: h}, nil
}

// OpenDir opens an existing directory. Directory handles are always
// read-only; ReadDir is the only operation they support.
func OpenDir(ctx context.Context, b Backend, path string, mode uint32) (FileHandle[Dir, ReadOnly], error) {
	h, err := b.Open(ctx, path, KindDir, mode)
	if err != nil {
		return FileHandle[Dir, ReadOnly]{}, err
	}
	return FileHandle[Dir, ReadOnly]{Handle: h}, nil
}

// CreateFile creates a new regular file and returns a handle to it, as if
// OpenFile had immediately followed.
func CreateFile[A AccessMode](ctx context.Context, b Backend, path string, mode uint32) (FileHandle[File, A], error) {
	h, err := b.Create(ctx, path, KindFile, mode)
	if err != nil {
		return FileHandle[File, A]{}, err
	}
	return FileHandle[File, A]{Handle: h}, nil
}

// CreateDir creates a new directory and returns a read-only handle to it.
func CreateDir(ctx context.Context, b Backend, path string, mode uint32) (FileHandle[Dir, ReadOnly], error) {
	h, err := b.Create(ctx, path, KindDir, mode)
	if err != nil {
		return FileHandle[Dir, ReadOnly]{}, err
	}
	return FileHandle[Dir, ReadOnly]{Handle: h}, nil
}

// Read returns up to count bytes of the file at offset. It is only callable
// with a file handle whose access mode satisfies CanRead.
func Read[A CanRead](ctx context.Context, b Backend, h FileHandle[File, A], offset uint64, count int) ([]byte, error) {
	return b.Read(ctx, h.Handle, offset, count)
}

// Write splices data into the file at offset, zero-filling any gap past the
// current end. It is only callable with a write-capable file handle.
func Write[A CanWrite](ctx context.Context, b Backend, h FileHandle[File, A], offset uint64, data []byte) (int, error) {
	return b.Write(ctx, h.Handle, offset, data)
}

// ReadDir lists the immediate children of the directory.
func ReadDir(ctx context.Context, b Backend, h FileHandle[Dir, ReadOnly]) ([]Stat, error) {
	return b.ReadDir(ctx, h.Handle)
}
