package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteBackend persists entries in a single-table SQLite database. It backs
// the persistent scope so autosaves and drafts survive process restarts.
type SQLiteBackend struct {
	db       *sql.DB
	maxBytes int
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS entries (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// OpenSQLite creates or opens the database at path. maxBytes bounds the total
// stored byte count when greater than zero.
func OpenSQLite(path string, maxBytes int) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("storage: opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: pinging database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: running migrations: %w", err)
	}

	return &SQLiteBackend{db: db, maxBytes: maxBytes}, nil
}

// OpenSQLiteMemory opens an in-memory database. Useful for testing.
func OpenSQLiteMemory(maxBytes int) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("storage: opening in-memory database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: running migrations: %w", err)
	}
	return &SQLiteBackend{db: db, maxBytes: maxBytes}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}

func (s *SQLiteBackend) Store(key, value string) error {
	if s.maxBytes > 0 {
		var total sql.NullInt64
		err := s.db.QueryRow(
			`SELECT SUM(LENGTH(key) + LENGTH(value)) FROM entries WHERE key != ?`, key,
		).Scan(&total)
		if err != nil {
			return fmt.Errorf("storage: sizing entries: %w", err)
		}
		if int(total.Int64)+len(key)+len(value) > s.maxBytes {
			return ErrQuotaExceeded
		}
	}

	_, err := s.db.Exec(
		`INSERT INTO entries (key, value, updated_at) VALUES (?, ?, datetime('now'))
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("storage: storing %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteBackend) Load(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM entries WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("storage: loading %q: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteBackend) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("storage: deleting %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteBackend) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM entries`); err != nil {
		return fmt.Errorf("storage: clearing entries: %w", err)
	}
	return nil
}

func (s *SQLiteBackend) Keys() ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM entries ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("storage: listing keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("storage: scanning key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
