package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for the provenance index.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS instances (
  id              INTEGER PRIMARY KEY,
  ref             TEXT NOT NULL UNIQUE,
  source_kind     TEXT,
  source_path     TEXT,
  metadata        TEXT NOT NULL,
  hash            TEXT NOT NULL,
  last_derived    TIMESTAMP
);

-- One row per relevant path; ordinal keeps insertion order and duplicates.
CREATE TABLE IF NOT EXISTS relevant_paths (
  id              INTEGER PRIMARY KEY,
  instance_id     INTEGER NOT NULL REFERENCES instances(id),
  ordinal         INTEGER NOT NULL,
  path            TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_instances_source_path ON instances(source_path);
CREATE INDEX IF NOT EXISTS idx_relevant_paths_path ON relevant_paths(path);
CREATE INDEX IF NOT EXISTS idx_relevant_paths_instance ON relevant_paths(instance_id);
`

// DeleteInstance transactionally removes an instance and its relevant paths.
// Deleting an unknown ref is not an error.
func (s *Store) DeleteInstance(ref string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteInstanceTx(tx, ref); err != nil {
		return err
	}
	return tx.Commit()
}

func deleteInstanceTx(tx *sql.Tx, ref string) error {
	if _, err := tx.Exec(
		"DELETE FROM relevant_paths WHERE instance_id IN (SELECT id FROM instances WHERE ref = ?)", ref,
	); err != nil {
		return fmt.Errorf("delete relevant paths for %s: %w", ref, err)
	}
	if _, err := tx.Exec("DELETE FROM instances WHERE ref = ?", ref); err != nil {
		return fmt.Errorf("delete instance %s: %w", ref, err)
	}
	return nil
}
