package storage

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/uptrace/bun"

	"capfs/internal/common"
	"capfs/internal/util"
	"capfs/internal/vfs"
)

// SQLFS serves the backend contract from an open Store. SQLite provides the
// durability and the isolation: reads go straight to the connection, and
// every mutation runs in a transaction so its lookup-check-write sequence is
// atomic. Transient "database is locked" failures are retried.
//
// Handle ids are process-local, monotonic, and never reused while the SQLFS
// value lives; they are not persisted across reopens.
type SQLFS struct {
	store *Store
	fid   atomic.Uint64
}

var _ vfs.Backend = (*SQLFS)(nil)

// NewSQLFS wraps an open store. The caller retains ownership of the store
// and closes it when done.
func NewSQLFS(store *Store) *SQLFS {
	return &SQLFS{store: store}
}

func (fs *SQLFS) handle(node *NodeModel, mode uint32) vfs.Handle {
	return vfs.Handle{
		FID:  fs.fid.Add(1),
		Qid:  node.Qid(),
		Path: node.Path,
		Mode: mode,
	}
}

func (fs *SQLFS) Walk(ctx context.Context, start string, names []string) (vfs.WalkResult, error) {
	if err := ctx.Err(); err != nil {
		return vfs.WalkResult{}, err
	}
	start, err := common.NormalizePath(start)
	if err != nil {
		return vfs.WalkResult{}, err
	}

	if _, err := fs.store.bunDB.GetNode(ctx, start); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return vfs.WalkResult{}, vfs.NotFoundError(start)
		}
		return vfs.WalkResult{}, err
	}

	current := start
	qids := make([]vfs.Qid, 0, len(names))
	for _, name := range names {
		if err := common.ValidateName(name); err != nil {
			return vfs.WalkResult{}, err
		}
		next := common.JoinChild(current, name)
		node, err := fs.store.bunDB.GetNode(ctx, next)
		if errors.Is(err, common.ErrNotFound) {
			break
		}
		if err != nil {
			return vfs.WalkResult{}, err
		}
		qids = append(qids, node.Qid())
		current = next
	}
	return vfs.WalkResult{Qids: qids}, nil
}

func (fs *SQLFS) Stat(ctx context.Context, path string) (vfs.Stat, error) {
	if err := ctx.Err(); err != nil {
		return vfs.Stat{}, err
	}
	path, err := common.NormalizePath(path)
	if err != nil {
		return vfs.Stat{}, err
	}

	node, err := fs.store.bunDB.GetNode(ctx, path)
	if errors.Is(err, common.ErrNotFound) {
		return vfs.Stat{}, vfs.NotFoundError(path)
	}
	if err != nil {
		return vfs.Stat{}, err
	}
	return node.ToStat(), nil
}

func (fs *SQLFS) Open(ctx context.Context, path string, kind vfs.Kind, mode uint32) (vfs.Handle, error) {
	if err := ctx.Err(); err != nil {
		return vfs.Handle{}, err
	}
	path, err := common.NormalizePath(path)
	if err != nil {
		return vfs.Handle{}, err
	}

	node, err := fs.store.bunDB.GetNode(ctx, path)
	if errors.Is(err, common.ErrNotFound) {
		return vfs.Handle{}, vfs.NotFoundError(path)
	}
	if err != nil {
		return vfs.Handle{}, err
	}
	if err := checkKind(node, kind); err != nil {
		return vfs.Handle{}, err
	}
	return fs.handle(node, mode), nil
}

func (fs *SQLFS) Create(ctx context.Context, path string, kind vfs.Kind, mode uint32) (vfs.Handle, error) {
	if err := ctx.Err(); err != nil {
		return vfs.Handle{}, err
	}
	if kind != vfs.KindFile && kind != vfs.KindDir {
		return vfs.Handle{}, vfs.InvalidArgError("unknown object kind")
	}
	path, err := common.NormalizePath(path)
	if err != nil {
		return vfs.Handle{}, err
	}

	node := &NodeModel{
		Path:  path,
		Kind:  nodeKind(kind),
		Mode:  int64(mode),
		Mtime: time.Now().Unix(),
	}
	err = util.Retry(ctx, func() error {
		return fs.store.bunDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := fs.store.bunDB.GetNodeWith(tx, ctx, path); err == nil {
				return vfs.ExistsError(path)
			} else if !errors.Is(err, common.ErrNotFound) {
				return err
			}

			parent := common.ParentPath(path)
			parentNode, err := fs.store.bunDB.GetNodeWith(tx, ctx, parent)
			if errors.Is(err, common.ErrNotFound) {
				return vfs.NotFoundError("parent directory: " + parent)
			}
			if err != nil {
				return err
			}
			if !parentNode.IsDir() {
				return vfs.NotDirError(parent)
			}

			return fs.store.bunDB.InsertNodeWith(tx, ctx, node)
		})
	}, util.DatabaseRetryOptions(ctx)...)
	if err != nil {
		return vfs.Handle{}, err
	}
	return fs.handle(node, mode), nil
}

func (fs *SQLFS) Read(ctx context.Context, h vfs.Handle, offset uint64, count int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	node, err := fs.store.bunDB.GetNode(ctx, h.Path)
	if errors.Is(err, common.ErrNotFound) {
		return nil, vfs.NotFoundError(h.Path)
	}
	if err != nil {
		return nil, err
	}
	if node.IsDir() {
		return nil, vfs.IsDirError(h.Path)
	}

	if offset > uint64(len(node.Data)) {
		return []byte{}, nil
	}
	end := offset + uint64(count)
	if end > uint64(len(node.Data)) {
		end = uint64(len(node.Data))
	}
	out := make([]byte, end-offset)
	copy(out, node.Data[offset:end])
	return out, nil
}

func (fs *SQLFS) Write(ctx context.Context, h vfs.Handle, offset uint64, data []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	err := util.Retry(ctx, func() error {
		return fs.store.bunDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			node, err := fs.store.bunDB.GetNodeWith(tx, ctx, h.Path)
			if errors.Is(err, common.ErrNotFound) {
				return vfs.NotFoundError(h.Path)
			}
			if err != nil {
				return err
			}
			if node.IsDir() {
				return vfs.IsDirError(h.Path)
			}

			// Any offset is valid; the gap up to it is zero-filled.
			end := offset + uint64(len(data))
			buf := node.Data
			if end > uint64(len(buf)) {
				grown := make([]byte, end)
				copy(grown, buf)
				buf = grown
			}
			copy(buf[offset:], data)

			node.Data = buf
			node.Mtime = time.Now().Unix()
			node.Version++
			return fs.store.bunDB.UpdateNodeDataWith(tx, ctx, node)
		})
	}, util.DatabaseRetryOptions(ctx)...)
	if err != nil {
		return 0, err
	}
	return len(data), nil
}

func (fs *SQLFS) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := common.NormalizePath(path)
	if err != nil {
		return err
	}
	if path == "/" {
		return vfs.PermissionError("cannot remove root")
	}

	return util.Retry(ctx, func() error {
		return fs.store.bunDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			node, err := fs.store.bunDB.GetNodeWith(tx, ctx, path)
			if errors.Is(err, common.ErrNotFound) {
				return vfs.NotFoundError(path)
			}
			if err != nil {
				return err
			}
			if node.IsDir() {
				hasChildren, err := fs.store.bunDB.HasChildrenWith(tx, ctx, path)
				if err != nil {
					return err
				}
				if hasChildren {
					return vfs.InvalidArgError("directory not empty")
				}
			}
			return fs.store.bunDB.DeleteNodeWith(tx, ctx, path)
		})
	}, util.DatabaseRetryOptions(ctx)...)
}

func (fs *SQLFS) ReadDir(ctx context.Context, h vfs.Handle) ([]vfs.Stat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	node, err := fs.store.bunDB.GetNode(ctx, h.Path)
	if errors.Is(err, common.ErrNotFound) {
		return nil, vfs.NotFoundError(h.Path)
	}
	if err != nil {
		return nil, err
	}
	if !node.IsDir() {
		return nil, vfs.NotDirError(h.Path)
	}

	children, err := fs.store.bunDB.ListChildren(ctx, h.Path)
	if err != nil {
		return nil, err
	}
	stats := make([]vfs.Stat, 0, len(children))
	for i := range children {
		stats = append(stats, children[i].ToStat())
	}
	return stats, nil
}

func checkKind(node *NodeModel, kind vfs.Kind) error {
	if nodeKind(kind) == node.Kind {
		return nil
	}
	if node.IsDir() {
		return vfs.IsDirError(node.Path)
	}
	return vfs.NotDirError(node.Path)
}

func nodeKind(kind vfs.Kind) int {
	if kind == vfs.KindDir {
		return NodeKindDir
	}
	return NodeKindFile
}
