package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"capfs/internal/common"
	"capfs/internal/vfs"
)

// FileFilter decides whether a host path is imported. relPath is
// slash-separated and relative to the import root; isDir distinguishes
// directories so filters can prune whole subtrees.
type FileFilter func(relPath string, isDir bool) bool

// ImportStats summarizes a completed import or export.
type ImportStats struct {
	Files       int
	Dirs        int
	Bytes       int64
	SkippedDirs int
	Skipped     int
}

// ImportTree copies the host directory tree rooted at srcDir into the
// backend under destDir, which must already exist. Filtered directories are
// pruned without descending. Symlinks and other non-regular files are
// skipped.
func ImportTree(ctx context.Context, b vfs.Backend, srcDir, destDir string, filter FileFilter) (*ImportStats, error) {
	destDir, err := common.NormalizePath(destDir)
	if err != nil {
		return nil, err
	}
	if _, err := b.Stat(ctx, destDir); err != nil {
		return nil, err
	}

	stats := &ImportStats{}
	err = filepath.WalkDir(srcDir, func(hostPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, hostPath)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if filter != nil && !filter(rel, d.IsDir()) {
			if d.IsDir() {
				stats.SkippedDirs++
				return filepath.SkipDir
			}
			stats.Skipped++
			return nil
		}

		destPath := destDir + "/" + rel
		if destDir == "/" {
			destPath = "/" + rel
		}

		if d.IsDir() {
			if _, err := vfs.CreateDir(ctx, b, destPath, DefaultDirMode); err != nil {
				return fmt.Errorf("create dir %s: %w", destPath, err)
			}
			stats.Dirs++
			return nil
		}
		if !d.Type().IsRegular() {
			log.WithField("path", hostPath).Debug("skipping non-regular file")
			stats.Skipped++
			return nil
		}

		data, err := os.ReadFile(hostPath)
		if err != nil {
			return err
		}
		h, err := vfs.CreateFile[vfs.ReadWrite](ctx, b, destPath, DefaultFileMode)
		if err != nil {
			return fmt.Errorf("create file %s: %w", destPath, err)
		}
		if len(data) > 0 {
			if _, err := vfs.Write(ctx, b, h, 0, data); err != nil {
				return fmt.Errorf("write %s: %w", destPath, err)
			}
		}
		stats.Files++
		stats.Bytes += int64(len(data))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// ExportTree copies the backend subtree rooted at srcDir into the host
// directory destDir, creating it if needed.
func ExportTree(ctx context.Context, b vfs.Backend, srcDir, destDir string) (*ImportStats, error) {
	srcDir, err := common.NormalizePath(srcDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(destDir, DefaultDirMode); err != nil {
		return nil, err
	}

	stats := &ImportStats{}
	if err := exportDir(ctx, b, srcDir, destDir, stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func exportDir(ctx context.Context, b vfs.Backend, srcDir, destDir string, stats *ImportStats) error {
	dh, err := vfs.OpenDir(ctx, b, srcDir, 0)
	if err != nil {
		return err
	}
	entries, err := vfs.ReadDir(ctx, b, dh)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		srcPath := common.JoinChild(srcDir, entry.Name)
		hostPath := filepath.Join(destDir, filepath.FromSlash(entry.Name))

		if entry.Qid.IsDir() {
			if err := os.MkdirAll(hostPath, DefaultDirMode); err != nil {
				return err
			}
			stats.Dirs++
			if err := exportDir(ctx, b, srcPath, hostPath, stats); err != nil {
				return err
			}
			continue
		}

		data, err := readAll(ctx, b, srcPath, entry.Size)
		if err != nil {
			return err
		}
		if err := os.WriteFile(hostPath, data, DefaultFileMode); err != nil {
			return err
		}
		stats.Files++
		stats.Bytes += int64(len(data))
	}
	return nil
}

// readAll reads the whole file at path, following the size reported by the
// directory listing and re-reading if the file grew in between.
func readAll(ctx context.Context, b vfs.Backend, path string, sizeHint uint64) ([]byte, error) {
	h, err := vfs.OpenFile[vfs.ReadOnly](ctx, b, path, 0)
	if err != nil {
		return nil, err
	}
	var out []byte
	offset := uint64(0)
	chunk := int(sizeHint)
	if chunk == 0 {
		chunk = 1 << 16
	}
	for {
		data, err := vfs.Read(ctx, b, h, offset, chunk)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			return out, nil
		}
		out = append(out, data...)
		offset += uint64(len(data))
	}
}
