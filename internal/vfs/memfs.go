package vfs

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"capfs/internal/common"
)

// memNode is the backend-internal node record. A regular file carries its
// byte buffer and version counter; a directory only its modification time.
// Parent/child structure is not stored here — the namespace is path-keyed,
// so children are found by prefix.
type memNode struct {
	kind    Kind
	data    []byte
	mtime   time.Time
	version uint32
}

func (n *memNode) qid(path string) Qid {
	if n.kind == KindDir {
		return DirQid(PathID(path))
	}
	return FileQid(PathID(path), n.version)
}

func (n *memNode) stat(path string) Stat {
	mode := uint32(0o644)
	var size uint64
	if n.kind == KindDir {
		mode = 0o755
	} else {
		size = uint64(len(n.data))
	}
	return Stat{
		Qid:   n.qid(path),
		Name:  common.BaseName(path),
		Size:  size,
		Mode:  mode,
		Atime: n.mtime,
		Mtime: n.mtime,
		UID:   "user",
		GID:   "group",
	}
}

// MemFS is the in-memory reference backend: a flat mapping from canonical
// paths to nodes guarded by a single readers-writer lock. Read-dominant
// operations take the lock shared; mutations take it exclusively, so any two
// operations on one instance are linearizable at the lock boundary.
//
// Handle ids come from a monotonic counter starting at 1 and are never
// reused within the instance's lifetime. The *MemFS pointer may be shared
// freely; all copies address the same namespace.
type MemFS struct {
	mu    sync.RWMutex
	nodes map[string]*memNode
	fid   atomic.Uint64
}

var _ Backend = (*MemFS)(nil)

// NewMemFS returns an empty filesystem containing only the root directory.
func NewMemFS() *MemFS {
	return &MemFS{
		nodes: map[string]*memNode{
			"/": {kind: KindDir, mtime: time.Now()},
		},
	}
}

func (fs *MemFS) Walk(ctx context.Context, start string, names []string) (WalkResult, error) {
	if err := ctx.Err(); err != nil {
		return WalkResult{}, err
	}
	start, err := common.NormalizePath(start)
	if err != nil {
		return WalkResult{}, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if _, ok := fs.nodes[start]; !ok {
		return WalkResult{}, NotFoundError(start)
	}

	current := start
	qids := make([]Qid, 0, len(names))
	for _, name := range names {
		if err := common.ValidateName(name); err != nil {
			return WalkResult{}, err
		}
		next := common.JoinChild(current, name)
		node, ok := fs.nodes[next]
		if !ok {
			// Partial walk: report how far we got. A file along the way
			// behaves the same — it has no children in a path-keyed store.
			break
		}
		qids = append(qids, node.qid(next))
		current = next
	}
	return WalkResult{Qids: qids}, nil
}

func (fs *MemFS) Stat(ctx context.Context, path string) (Stat, error) {
	if err := ctx.Err(); err != nil {
		return Stat{}, err
	}
	path, err := common.NormalizePath(path)
	if err != nil {
		return Stat{}, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	node, ok := fs.nodes[path]
	if !ok {
		return Stat{}, NotFoundError(path)
	}
	return node.stat(path), nil
}

func (fs *MemFS) Open(ctx context.Context, path string, kind Kind, mode uint32) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return Handle{}, err
	}
	path, err := common.NormalizePath(path)
	if err != nil {
		return Handle{}, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	node, ok := fs.nodes[path]
	if !ok {
		return Handle{}, NotFoundError(path)
	}
	if node.kind != kind {
		if node.kind == KindDir {
			return Handle{}, IsDirError(path)
		}
		return Handle{}, NotDirError(path)
	}
	return Handle{FID: fs.fid.Add(1), Qid: node.qid(path), Path: path, Mode: mode}, nil
}

func (fs *MemFS) Create(ctx context.Context, path string, kind Kind, mode uint32) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return Handle{}, err
	}
	if kind != KindFile && kind != KindDir {
		return Handle{}, InvalidArgError("unknown object kind")
	}
	path, err := common.NormalizePath(path)
	if err != nil {
		return Handle{}, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, ok := fs.nodes[path]; ok {
		return Handle{}, ExistsError(path)
	}
	parent := common.ParentPath(path)
	parentNode, ok := fs.nodes[parent]
	if !ok {
		return Handle{}, NotFoundError("parent directory: " + parent)
	}
	if parentNode.kind != KindDir {
		return Handle{}, NotDirError(parent)
	}

	node := &memNode{kind: kind, mtime: time.Now()}
	fs.nodes[path] = node
	return Handle{FID: fs.fid.Add(1), Qid: node.qid(path), Path: path, Mode: mode}, nil
}

func (fs *MemFS) Read(ctx context.Context, h Handle, offset uint64, count int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	node, ok := fs.nodes[h.Path]
	if !ok {
		return nil, NotFoundError(h.Path)
	}
	if node.kind == KindDir {
		return nil, IsDirError(h.Path)
	}
	if offset > uint64(len(node.data)) {
		return []byte{}, nil
	}
	end := offset + uint64(count)
	if end > uint64(len(node.data)) {
		end = uint64(len(node.data))
	}
	out := make([]byte, end-offset)
	copy(out, node.data[offset:end])
	return out, nil
}

func (fs *MemFS) Write(ctx context.Context, h Handle, offset uint64, data []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	node, ok := fs.nodes[h.Path]
	if !ok {
		return 0, NotFoundError(h.Path)
	}
	if node.kind == KindDir {
		return 0, IsDirError(h.Path)
	}

	// Any offset is valid; the gap up to it is zero-filled.
	end := offset + uint64(len(data))
	if end > uint64(len(node.data)) {
		grown := make([]byte, end)
		copy(grown, node.data)
		node.data = grown
	}
	copy(node.data[offset:], data)
	node.mtime = time.Now()
	node.version++
	return len(data), nil
}

func (fs *MemFS) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := common.NormalizePath(path)
	if err != nil {
		return err
	}
	if path == "/" {
		return PermissionError("cannot remove root")
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	node, ok := fs.nodes[path]
	if !ok {
		return NotFoundError(path)
	}
	if node.kind == KindDir && len(fs.childrenLocked(path)) > 0 {
		return InvalidArgError("directory not empty")
	}
	delete(fs.nodes, path)
	return nil
}

func (fs *MemFS) ReadDir(ctx context.Context, h Handle) ([]Stat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	node, ok := fs.nodes[h.Path]
	if !ok {
		return nil, NotFoundError(h.Path)
	}
	if node.kind != KindDir {
		return nil, NotDirError(h.Path)
	}

	children := fs.childrenLocked(h.Path)
	stats := make([]Stat, 0, len(children))
	for _, name := range children {
		childPath := common.JoinChild(h.Path, name)
		if child, ok := fs.nodes[childPath]; ok {
			stats = append(stats, child.stat(childPath))
		}
	}
	return stats, nil
}

// childrenLocked returns the names of dir's immediate children. Any
// descendant implies an immediate child exists (the namespace invariant says
// every present path has a present parent), so this also serves the
// emptiness check in Remove. Callers must hold fs.mu.
func (fs *MemFS) childrenLocked(dir string) []string {
	prefix := dir + "/"
	if dir == "/" {
		prefix = "/"
	}
	var names []string
	for p := range fs.nodes {
		if p == dir || !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := p[len(prefix):]
		if !strings.Contains(rest, "/") {
			names = append(names, rest)
		}
	}
	return names
}
