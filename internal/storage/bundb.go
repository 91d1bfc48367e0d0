package storage

import (
	"context"
	"database/sql"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"capfs/internal/common"
)

// BunDB wraps a Bun database instance for type-safe queries.
type BunDB struct {
	*bun.DB
}

// NewBunDB wraps an existing *sql.DB with Bun's type-safe query builder.
func NewBunDB(sqlDB *sql.DB) *BunDB {
	bunDB := bun.NewDB(sqlDB, sqlitedialect.New())
	return &BunDB{DB: bunDB}
}

// --- FSInfo Operations ---

// GetFSInfo retrieves a store info value by key.
func (db *BunDB) GetFSInfo(ctx context.Context, key string) (string, error) {
	var info FSInfoModel
	err := db.NewSelect().
		Model(&info).
		Where("key = ?", key).
		Scan(ctx)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return info.Value, nil
}

// SetFSInfo sets a store info value (upserts).
func (db *BunDB) SetFSInfo(ctx context.Context, key, value string) error {
	_, err := db.NewInsert().
		Model(&FSInfoModel{Key: key, Value: value}).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(ctx)
	return err
}

// --- Node Operations ---

// GetNode retrieves the node at path. Returns common.ErrNotFound if absent.
func (db *BunDB) GetNode(ctx context.Context, path string) (*NodeModel, error) {
	return db.getNodeWith(db.DB, ctx, path)
}

// GetNodeWith is like GetNode but uses the provided bun.IDB (for transaction support).
func (db *BunDB) GetNodeWith(idb bun.IDB, ctx context.Context, path string) (*NodeModel, error) {
	return db.getNodeWith(idb, ctx, path)
}

func (db *BunDB) getNodeWith(idb bun.IDB, ctx context.Context, path string) (*NodeModel, error) {
	var node NodeModel
	err := idb.NewSelect().
		Model(&node).
		Where("path = ?", path).
		Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// InsertNode inserts a new node row.
func (db *BunDB) InsertNode(ctx context.Context, node *NodeModel) error {
	return db.insertNodeWith(db.DB, ctx, node)
}

// InsertNodeWith is like InsertNode but uses the provided bun.IDB.
func (db *BunDB) InsertNodeWith(idb bun.IDB, ctx context.Context, node *NodeModel) error {
	return db.insertNodeWith(idb, ctx, node)
}

func (db *BunDB) insertNodeWith(idb bun.IDB, ctx context.Context, node *NodeModel) error {
	_, err := idb.NewInsert().Model(node).Exec(ctx)
	return err
}

// UpdateNodeData replaces a file node's content, timestamp, and version.
func (db *BunDB) UpdateNodeData(ctx context.Context, node *NodeModel) error {
	return db.updateNodeDataWith(db.DB, ctx, node)
}

// UpdateNodeDataWith is like UpdateNodeData but uses the provided bun.IDB.
func (db *BunDB) UpdateNodeDataWith(idb bun.IDB, ctx context.Context, node *NodeModel) error {
	return db.updateNodeDataWith(idb, ctx, node)
}

func (db *BunDB) updateNodeDataWith(idb bun.IDB, ctx context.Context, node *NodeModel) error {
	_, err := idb.NewUpdate().
		Model((*NodeModel)(nil)).
		Set("data = ?", node.Data).
		Set("mtime = ?", node.Mtime).
		Set("version = ?", node.Version).
		Where("path = ?", node.Path).
		Exec(ctx)
	return err
}

// DeleteNode removes the node row at path.
func (db *BunDB) DeleteNode(ctx context.Context, path string) error {
	return db.deleteNodeWith(db.DB, ctx, path)
}

// DeleteNodeWith is like DeleteNode but uses the provided bun.IDB.
func (db *BunDB) DeleteNodeWith(idb bun.IDB, ctx context.Context, path string) error {
	return db.deleteNodeWith(idb, ctx, path)
}

func (db *BunDB) deleteNodeWith(idb bun.IDB, ctx context.Context, path string) error {
	_, err := idb.NewDelete().
		Model((*NodeModel)(nil)).
		Where("path = ?", path).
		Exec(ctx)
	return err
}

// ListChildren returns the rows of dir's immediate children ordered by path.
// Descendants deeper than one level are excluded by the NOT LIKE clause.
func (db *BunDB) ListChildren(ctx context.Context, dir string) ([]NodeModel, error) {
	prefix := likePrefix(childPrefix(dir))
	var nodes []NodeModel
	err := db.NewSelect().
		Model(&nodes).
		Where("path LIKE ? ESCAPE '\\'", prefix+"%").
		Where("path NOT LIKE ? ESCAPE '\\'", prefix+"%/%").
		Where("path != ?", dir).
		Order("path").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

// HasChildren reports whether any path lives under dir.
func (db *BunDB) HasChildren(ctx context.Context, dir string) (bool, error) {
	return db.hasChildrenWith(db.DB, ctx, dir)
}

// HasChildrenWith is like HasChildren but uses the provided bun.IDB.
func (db *BunDB) HasChildrenWith(idb bun.IDB, ctx context.Context, dir string) (bool, error) {
	return db.hasChildrenWith(idb, ctx, dir)
}

func (db *BunDB) hasChildrenWith(idb bun.IDB, ctx context.Context, dir string) (bool, error) {
	prefix := likePrefix(childPrefix(dir))
	exists, err := idb.NewSelect().
		Model((*NodeModel)(nil)).
		Where("path LIKE ? ESCAPE '\\'", prefix+"%").
		Where("path != ?", dir).
		Exists(ctx)
	return exists, err
}

// CountNodes returns the total number of node rows, the root included.
func (db *BunDB) CountNodes(ctx context.Context) (int64, error) {
	count, err := db.NewSelect().
		Model((*NodeModel)(nil)).
		Count(ctx)
	return int64(count), err
}

// childPrefix returns the string prefix shared by dir's descendants.
func childPrefix(dir string) string {
	if dir == "/" {
		return "/"
	}
	return dir + "/"
}

// likePrefix escapes LIKE metacharacters so a path prefix matches literally.
func likePrefix(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
