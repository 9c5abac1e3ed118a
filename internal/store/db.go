// Package store persists synced activities, streams and derived metrics in
// a local SQLite database.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"cyclecoach/internal/codec"

	_ "modernc.org/sqlite"
)

// DB is the application database
type DB struct {
	*sql.DB
	codec *codec.Codec
}

// Open opens the SQLite database at path, creating it if necessary.
// An empty path uses ~/.cyclecoach/data.db.
func Open(path string) (*DB, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, fmt.Errorf("getting db path: %w", err)
		}
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return open(path)
}

// OpenMemory opens a private in-memory database. Used by tests of packages
// that sit on top of the store.
func OpenMemory() (*DB, error) {
	return open(":memory:")
}

func open(dsn string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// in-memory databases are per connection
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if err := migrate(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	c, err := codec.New()
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	return &DB{DB: sqlDB, codec: c}, nil
}

// Close closes the database and releases the stream codec
func (db *DB) Close() error {
	db.codec.Close()
	return db.DB.Close()
}

// DefaultPath returns the path to the SQLite database file
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".cyclecoach", "data.db"), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
