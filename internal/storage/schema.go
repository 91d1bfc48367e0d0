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
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const SchemaVersion = "1"

// Default busy_timeout in milliseconds (30 seconds)
const DefaultBusyTimeout = 30000

// EnvBusyTimeout overrides the SQLite busy_timeout for all store handles.
const EnvBusyTimeout = "CAPFS_BUSY_TIMEOUT"

// GetBusyTimeout returns the busy_timeout value to apply.
// Priority: env var > config file > default.
func GetBusyTimeout(configTimeout int) int {
	if val := os.Getenv(EnvBusyTimeout); val != "" {
		if timeout, err := strconv.Atoi(val); err == nil && timeout > 0 {
			return timeout
		}
	}
	if configTimeout > 0 {
		return configTimeout
	}
	return DefaultBusyTimeout
}

// BuildDSN builds the SQLite DSN for a store file.
func BuildDSN(path string) string {
	return fmt.Sprintf("file:%s", path)
}

// Node kind values stored in the nodes table. They mirror vfs.Kind.
const (
	NodeKindFile = 0
	NodeKindDir  = 1
)

// Default permission bits recorded on import when the caller gives none.
const (
	DefaultDirMode  = 0o755
	DefaultFileMode = 0o644
)

// Schema SQL for a store file. The namespace is path-keyed: every row's
// path is canonical (leading "/", no trailing "/", no empty components),
// and every non-root row's parent path is also present.
const storeSchema = `
-- Store identity and schema version tracking
CREATE TABLE IF NOT EXISTS fsinfo (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- One row per node, keyed by canonical path
CREATE TABLE IF NOT EXISTS nodes (
    path TEXT PRIMARY KEY,
    kind INTEGER NOT NULL,
    mode INTEGER NOT NULL,
    data BLOB,
    mtime INTEGER NOT NULL,
    version INTEGER NOT NULL DEFAULT 0
);

-- Prefix scans for directory listings and emptiness checks
CREATE INDEX IF NOT EXISTS idx_nodes_path ON nodes(path);
`

// Initial rows: schema info plus the root directory.
const initStore = `
INSERT OR IGNORE INTO fsinfo (key, value) VALUES ('version', ?);
INSERT OR IGNORE INTO fsinfo (key, value) VALUES ('type', 'store');
INSERT OR IGNORE INTO fsinfo (key, value) VALUES ('created_at', datetime('now'));

INSERT OR IGNORE INTO nodes (path, kind, mode, data, mtime, version)
VALUES ('/', 1, ?, NULL, unixepoch(), 0);
`

// execStatements executes multiple SQL statements separated by semicolons.
// libsql driver doesn't support multi-statement Exec, so we split and execute individually.
func execStatements(db *sql.DB, sqlScript string, args ...interface{}) error {
	statements := splitStatements(sqlScript)
	argIdx := 0
	for _, stmt := range statements {
		if stmt == "" {
			continue
		}
		placeholders := strings.Count(stmt, "?")
		stmtArgs := args[argIdx : argIdx+placeholders]
		argIdx += placeholders
		if _, err := db.Exec(stmt, stmtArgs...); err != nil {
			return err
		}
	}
	return nil
}

// splitStatements splits a SQL script into individual statements
func splitStatements(script string) []string {
	var statements []string
	var current strings.Builder

	lines := strings.Split(script, "\n")
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		// Skip comments and empty lines
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			statements = append(statements, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if current.Len() > 0 {
		stmt := strings.TrimSpace(current.String())
		if stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}
