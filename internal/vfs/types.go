package vfs

import (
	"hash/fnv"
	"time"
)

// Qid type bytes, as in 9P: the high bit marks a directory.
const (
	QTFile byte = 0x00
	QTDir  byte = 0x80
)

// Kind identifies the stored kind of a node at runtime. The typed handle
// surface in handle.go carries the same information at compile time; backends
// take an explicit Kind so open and create never inspect type names.
type Kind uint8

const (
	KindFile Kind = iota
	KindDir
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	default:
		return "unknown"
	}
}

// Qid is a stable node identifier: type byte, version, and path id.
// Qids compare by value; equality means "same node, same version".
type Qid struct {
	Type    byte
	Version uint32
	Path    uint64
}

// FileQid returns a Qid for a regular file.
func FileQid(path uint64, version uint32) Qid {
	return Qid{Type: QTFile, Version: version, Path: path}
}

// DirQid returns a Qid for a directory. Directory versions are always 0.
func DirQid(path uint64) Qid {
	return Qid{Type: QTDir, Path: path}
}

// IsDir reports whether the Qid identifies a directory.
func (q Qid) IsDir() bool {
	return q.Type&QTDir != 0
}

// PathID derives the Qid path identifier from a canonical path string.
// Every backend uses the same derivation, so a node keeps its identity when
// the same namespace is served by a different backend.
func PathID(path string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(path))
	return h.Sum64()
}

// Stat describes a node at a point in time. Name is the leaf component of
// the path, not the full path; for the root it is "/". Mode is recorded
// verbatim and never enforced.
type Stat struct {
	Qid   Qid
	Name  string
	Size  uint64
	Mode  uint32
	Atime time.Time
	Mtime time.Time
	UID   string
	GID   string
}

// WalkResult carries one Qid per successfully descended component. A result
// shorter than the requested name list is a partial walk, not an error; the
// caller learns how far it got by comparing lengths.
type WalkResult struct {
	Qids []Qid
}
