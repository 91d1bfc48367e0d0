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

// Package storage implements the SQLite-backed persistent store. A store is
// a single .capfs file holding the whole namespace; opening one takes an
// advisory file lock so two processes never mutate the same file at once.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	_ "github.com/tursodatabase/go-libsql"
)

// Store is an open handle to a .capfs store file.
type Store struct {
	path       string
	db         *sql.DB
	bunDB      *BunDB
	lock       *flock.Flock
	instanceID string
}

// execPragma runs a PRAGMA statement using Query (not Exec) because libsql
// returns rows for PRAGMA statements. The result rows are drained and closed.
func execPragma(db *sql.DB, pragma string) error {
	rows, err := db.Query(pragma)
	if err != nil {
		return err
	}
	rows.Close()
	return nil
}

// applyPragmas sets essential PRAGMAs after opening a libsql connection.
// libsql ignores DSN-based _pragma=value parameters, so all PRAGMAs must be
// set explicitly via SQL statements after the connection is opened.
func applyPragmas(db *sql.DB, busyTimeout int) error {
	// Busy timeout MUST be set first — all subsequent PRAGMAs (especially
	// journal_mode=WAL which needs exclusive access) will wait for locks
	// instead of failing immediately with "database is locked".
	if err := execPragma(db, fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout)); err != nil {
		return fmt.Errorf("failed to set busy_timeout: %w", err)
	}

	// WAL mode: enables concurrent readers during writes, reduces lock
	// contention. Must be set via explicit PRAGMA.
	if err := execPragma(db, "PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to set journal_mode=WAL: %w", err)
	}

	// synchronous=NORMAL: safe against process crashes in WAL mode, avoids
	// fsync on every commit.
	if err := execPragma(db, "PRAGMA synchronous=NORMAL"); err != nil {
		return fmt.Errorf("failed to set synchronous=NORMAL: %w", err)
	}

	return nil
}

// acquireLock takes the advisory lock guarding the store file. Non-blocking:
// a second opener fails immediately rather than queueing.
func acquireLock(path string) (*flock.Flock, error) {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire store lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("store is in use by another process: %s", path)
	}
	return lock, nil
}

// Create creates a new store file at path and opens it.
func Create(path string) (*Store, error) {
	return CreateWithTimeout(path, 0)
}

// CreateWithTimeout is Create with an explicit busy_timeout (milliseconds).
// A timeout of 0 falls back to the env var or the default.
func CreateWithTimeout(path string, busyTimeout int) (*Store, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("file already exists: %s", path)
	}

	lock, err := acquireLock(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("libsql", BuildDSN(path))
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	if err := applyPragmas(db, GetBusyTimeout(busyTimeout)); err != nil {
		db.Close()
		lock.Unlock()
		os.Remove(path)
		return nil, err
	}

	// Create schema (execute statements individually for libsql compatibility)
	if err := execStatements(db, storeSchema); err != nil {
		db.Close()
		lock.Unlock()
		os.Remove(path)
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	if err := execStatements(db, initStore, SchemaVersion, DefaultDirMode); err != nil {
		db.Close()
		lock.Unlock()
		os.Remove(path)
		return nil, fmt.Errorf("failed to initialize root: %w", err)
	}

	bunDB := NewBunDB(db)
	instanceID := uuid.NewString()
	if err := bunDB.SetFSInfo(context.Background(), "instance_id", instanceID); err != nil {
		db.Close()
		lock.Unlock()
		os.Remove(path)
		return nil, fmt.Errorf("failed to record instance id: %w", err)
	}

	log.WithFields(log.Fields{
		"path":        path,
		"instance_id": instanceID,
	}).Debug("created store")

	return &Store{
		path:       path,
		db:         db,
		bunDB:      bunDB,
		lock:       lock,
		instanceID: instanceID,
	}, nil
}

// Open opens an existing store file.
func Open(path string) (*Store, error) {
	return OpenWithTimeout(path, 0)
}

// OpenWithTimeout is Open with an explicit busy_timeout (milliseconds).
func OpenWithTimeout(path string, busyTimeout int) (*Store, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("file not found: %s", path)
	}

	lock, err := acquireLock(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("libsql", BuildDSN(path))
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := applyPragmas(db, GetBusyTimeout(busyTimeout)); err != nil {
		db.Close()
		lock.Unlock()
		return nil, err
	}

	bunDB := NewBunDB(db)
	bgCtx := context.Background()

	fileType, err := bunDB.GetFSInfo(bgCtx, "type")
	if err != nil {
		db.Close()
		lock.Unlock()
		return nil, fmt.Errorf("failed to read store info: %w", err)
	}
	if fileType != "store" {
		db.Close()
		lock.Unlock()
		return nil, fmt.Errorf("not a store file (type=%s)", fileType)
	}

	instanceID, err := bunDB.GetFSInfo(bgCtx, "instance_id")
	if err != nil {
		db.Close()
		lock.Unlock()
		return nil, fmt.Errorf("failed to read instance id: %w", err)
	}

	log.WithFields(log.Fields{
		"path":        path,
		"instance_id": instanceID,
	}).Debug("opened store")

	return &Store{
		path:       path,
		db:         db,
		bunDB:      bunDB,
		lock:       lock,
		instanceID: instanceID,
	}, nil
}

// Close checkpoints the WAL, closes the database, and releases the file lock.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}

	// TRUNCATE mode merges the WAL into the main file and zeroes it. PRAGMA
	// wal_checkpoint returns rows, so Query not Exec.
	rows, err := s.db.Query("PRAGMA wal_checkpoint(TRUNCATE)")
	if err != nil {
		log.WithError(err).Warn("WAL checkpoint failed")
	} else {
		rows.Close()
	}

	if err := s.db.Close(); err != nil {
		s.lock.Unlock()
		return err
	}
	s.db = nil

	os.Remove(s.path + "-wal")
	os.Remove(s.path + "-shm")

	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil {
			return err
		}
	}
	return nil
}

// Path returns the store file path.
func (s *Store) Path() string {
	return s.path
}

// InstanceID returns the store's unique id, assigned at creation.
func (s *Store) InstanceID() string {
	return s.instanceID
}

// SchemaVersion returns the schema version recorded in the store file.
func (s *Store) SchemaVersion(ctx context.Context) (string, error) {
	return s.bunDB.GetFSInfo(ctx, "version")
}

// NodeCount returns the number of nodes in the store, the root included.
func (s *Store) NodeCount(ctx context.Context) (int64, error) {
	return s.bunDB.CountNodes(ctx)
}
