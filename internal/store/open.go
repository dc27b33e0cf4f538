// Package store is the State Store: the sole owner of persistent project,
// agent, session, message, broadcast, and task rows. It opens a pure-Go
// SQLite connection and enforces the schema's relational invariants.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const busyTimeoutMillis = 3000

// Open opens (creating parent directories as needed) the sqlite database
// at path with the pragmas the schema relies on: foreign keys enforced,
// write-ahead logging, and a bounded busy-wait so short contention does
// not surface as an error.
func Open(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMillis),
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	return db, nil
}
