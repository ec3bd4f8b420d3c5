// Package store persists imported rate sheets and solved plan runs in SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // register sqlite driver
)

var (
	// ErrNoRates is returned when no rate sheet has been imported.
	ErrNoRates = errors.New("store: no rate buckets")
	// ErrRunNotFound is returned when no stored run matches an id.
	ErrRunNotFound = errors.New("store: plan run not found")
	// ErrAmbiguousRun is returned when an id prefix matches several runs.
	ErrAmbiguousRun = errors.New("store: ambiguous plan run id")
)

// Store is a SQLite database of rate buckets and plan runs.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating database dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
