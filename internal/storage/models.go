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

package storage

import (
	"time"

	"github.com/uptrace/bun"

	"capfs/internal/common"
	"capfs/internal/vfs"
)

// Bun ORM models for capfs store tables.

// FSInfoModel represents the fsinfo table
type FSInfoModel struct {
	bun.BaseModel `bun:"table:fsinfo"`

	Key   string `bun:"key,pk"`
	Value string `bun:"value,notnull"`
}

// NodeModel represents the nodes table. One row per node, keyed by
// canonical path. Data is NULL for directories.
type NodeModel struct {
	bun.BaseModel `bun:"table:nodes"`

	Path    string `bun:"path,pk"`
	Kind    int    `bun:"kind,notnull"` // NodeKindFile or NodeKindDir
	Mode    int64  `bun:"mode,notnull"`
	Data    []byte `bun:"data,nullzero"`
	Mtime   int64  `bun:"mtime,notnull"` // Unix timestamp
	Version int64  `bun:"version,notnull"`
}

// IsDir reports whether the row describes a directory.
func (m *NodeModel) IsDir() bool {
	return m.Kind == NodeKindDir
}

// Qid derives the node's identity record.
func (m *NodeModel) Qid() vfs.Qid {
	if m.IsDir() {
		return vfs.DirQid(vfs.PathID(m.Path))
	}
	return vfs.FileQid(vfs.PathID(m.Path), uint32(m.Version))
}

// ToStat converts the row to the metadata record callers see.
func (m *NodeModel) ToStat() vfs.Stat {
	mtime := time.Unix(m.Mtime, 0)
	var size uint64
	if !m.IsDir() {
		size = uint64(len(m.Data))
	}
	return vfs.Stat{
		Qid:   m.Qid(),
		Name:  common.BaseName(m.Path),
		Size:  size,
		Mode:  uint32(m.Mode),
		Atime: mtime,
		Mtime: mtime,
		UID:   "user",
		GID:   "group",
	}
}
