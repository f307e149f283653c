// Package duckdb records pipeline progress and paralog tables in DuckDB.
// Completed stages are keyed by a content fingerprint so reruns skip them.
// Paralog tables are stored one cell per row and are queryable by gene.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for stage results and paralog rows.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file, or "" for an in-memory store.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS stage_results (
		run_id VARCHAR,
		iteration BIGINT,
		stage VARCHAR,
		fingerprint VARCHAR,
		output VARCHAR,
		completed_at TIMESTAMP,
		PRIMARY KEY (iteration, stage)
	)`); err != nil {
		return err
	}
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS paralog_rows (
		iteration BIGINT,
		row_index BIGINT,
		ref_id VARCHAR,
		genome VARCHAR,
		members VARCHAR
	)`)
	return err
}
