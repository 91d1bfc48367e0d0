package vfs

import "context"

// Handle is the untyped record of a successful open or create. FID is unique
// within the issuing backend's lifetime but carries no authority of its own:
// backends re-resolve Path on every operation, and a handle whose node has
// been removed simply reports not-found from then on.
type Handle struct {
	FID  uint64
	Qid  Qid
	Path string
	Mode uint32
}

// Backend is the eight-operation contract implemented by namespace stores.
// All paths are normalized by the implementation before any further work;
// every failure wraps one of the sentinel kinds in internal/common.
//
// Callers normally reach a backend through the typed functions in handle.go
// rather than calling Open/Create/Read/Write directly; the typed surface is
// what makes ill-formed operations unrepresentable.
type Backend interface {
	// Walk descends names in order from start, returning one Qid per
	// successfully resolved component. A missing component ends the walk
	// early with a shorter result, not an error. Names containing a
	// separator, or equal to "..", are rejected as invalid.
	Walk(ctx context.Context, start string, names []string) (WalkResult, error)

	// Stat returns the metadata record for the node at path.
	Stat(ctx context.Context, path string) (Stat, error)

	// Open resolves path and returns a fresh handle. The stored node's kind
	// must agree with kind: asking for a file where a directory lives fails
	// is-a-directory, and vice versa.
	Open(ctx context.Context, path string, kind Kind, mode uint32) (Handle, error)

	// Create makes a new node and returns a handle to it. The parent must
	// already exist and be a directory; parents are never created
	// implicitly. The existence check, parent check, and insert are atomic.
	Create(ctx context.Context, path string, kind Kind, mode uint32) (Handle, error)

	// Read returns up to count bytes of h's file starting at offset. An
	// offset past end of file yields an empty slice, not an error.
	Read(ctx context.Context, h Handle, offset uint64, count int) ([]byte, error)

	// Write splices data into h's file at offset, zero-extending the buffer
	// first when offset+len(data) exceeds the current length. Returns the
	// number of bytes written and bumps the node's version.
	Write(ctx context.Context, h Handle, offset uint64, data []byte) (int, error)

	// Remove deletes the node at path. The root cannot be removed, and a
	// directory must be empty. Removal is not recursive.
	Remove(ctx context.Context, path string) error

	// ReadDir returns the Stat of every immediate child of h's directory.
	// The order is unspecified but stable within a single call.
	ReadDir(ctx context.Context, h Handle) ([]Stat, error)
}
