package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultDatabase is the SQLite file used when no path is configured.
const DefaultDatabase = "fetchkit_elements.db"

// ErrNotFound is returned by Retrieve when no fingerprint is stored for the
// identifier/selector pair.
var ErrNotFound = errors.New("storage: element not found")

// SQLiteStore is the default local persistent backend for auto-match data.
// It is safe for concurrent use; database/sql serializes access.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the SQLite database at path.
// An empty path uses DefaultDatabase; ":memory:" is accepted for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultDatabase
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS elements (
		identifier TEXT NOT NULL,
		selector   TEXT NOT NULL,
		element    TEXT NOT NULL,
		PRIMARY KEY (identifier, selector)
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save upserts the fingerprint for the identifier/selector pair.
func (s *SQLiteStore) Save(identifier, selector string, el *Element) error {
	payload, err := json.Marshal(el)
	if err != nil {
		return fmt.Errorf("storage: encode element: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO elements (identifier, selector, element) VALUES (?, ?, ?)
		 ON CONFLICT(identifier, selector) DO UPDATE SET element = excluded.element`,
		identifier, selector, string(payload),
	)
	if err != nil {
		return fmt.Errorf("storage: save element: %w", err)
	}
	return nil
}

// Retrieve loads the fingerprint stored for the identifier/selector pair.
func (s *SQLiteStore) Retrieve(identifier, selector string) (*Element, error) {
	var payload string
	err := s.db.QueryRow(
		`SELECT element FROM elements WHERE identifier = ? AND selector = ?`,
		identifier, selector,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: retrieve element: %w", err)
	}

	var el Element
	if err := json.Unmarshal([]byte(payload), &el); err != nil {
		return nil, fmt.Errorf("storage: decode element: %w", err)
	}
	return &el, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
