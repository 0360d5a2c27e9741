// Package store persists registry snapshots to SQLite so an index can be
// inspected offline or reloaded without walking the project again.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store holds registry snapshots in a SQLite database.
type Store struct {
	db *sql.DB
}

// dsnPragmas keep readers unblocked while `emberls watch` writes.
const dsnPragmas = "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000"

// NewStore opens (creating if needed) the index database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dbPath, err)
	}
	if pingErr := db.Ping(); pingErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: open %s: %w", dbPath, pingErr)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the connection for ad hoc queries.
func (s *Store) DB() *sql.DB { return s.db }

// Migrate creates any missing tables and indexes.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS projects (
  id                 INTEGER PRIMARY KEY,
  root               TEXT NOT NULL UNIQUE,
  name               TEXT,
  pod_prefix         TEXT,
  module_unification BOOLEAN DEFAULT FALSE,
  namespaces         BOOLEAN DEFAULT FALSE,
  indexed_at         TIMESTAMP
);

CREATE TABLE IF NOT EXISTS addons (
  id         INTEGER PRIMARY KEY,
  project_id INTEGER NOT NULL REFERENCES projects(id),
  ordinal    INTEGER NOT NULL,
  name       TEXT NOT NULL,
  root       TEXT NOT NULL,
  script     TEXT
);

CREATE TABLE IF NOT EXISTS files (
  id         INTEGER PRIMARY KEY,
  project_id INTEGER NOT NULL REFERENCES projects(id),
  path       TEXT NOT NULL,
  hash       TEXT,
  UNIQUE (project_id, path)
);

CREATE TABLE IF NOT EXISTS symbols (
  id      INTEGER PRIMARY KEY,
  file_id INTEGER NOT NULL REFERENCES files(id),
  type    TEXT NOT NULL,
  name    TEXT NOT NULL,
  is_test BOOLEAN DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_addons_project ON addons(project_id);
CREATE INDEX IF NOT EXISTS idx_files_project ON files(project_id);
CREATE INDEX IF NOT EXISTS idx_symbols_file_id ON symbols(file_id);
CREATE INDEX IF NOT EXISTS idx_symbols_type_name ON symbols(type, name);
`
