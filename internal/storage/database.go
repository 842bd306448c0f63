package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/spacedeck/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// SQLiteStore keeps documents in a single SQLite database file.
type SQLiteStore struct {
	conn *sql.DB
}

// OpenSQLite creates a new database connection and ensures the schema is up to date.
func OpenSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{conn: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// Load retrieves the document stored under key.
func (s *SQLiteStore) Load(key string) ([]byte, error) {
	var body string
	err := s.conn.QueryRow(`SELECT body FROM documents WHERE key = ?`, key).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: document %q", domain.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to load document %q: %w", key, err)
	}
	return []byte(body), nil
}

// Save inserts or replaces the document stored under key in one statement.
func (s *SQLiteStore) Save(key string, doc []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	_, err := s.conn.Exec(`
		INSERT INTO documents (key, body, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at
	`, key, string(doc), time.Now())
	if err != nil {
		return fmt.Errorf("failed to save document %q: %w", key, err)
	}
	return nil
}

// Delete removes the document stored under key.
func (s *SQLiteStore) Delete(key string) error {
	res, err := s.conn.Exec(`DELETE FROM documents WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete document %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete of document %q: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: document %q", domain.ErrNotFound, key)
	}
	return nil
}

// Keys retrieves all stored keys.
func (s *SQLiteStore) Keys() ([]string, error) {
	rows, err := s.conn.Query(`SELECT key FROM documents ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan document key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return keys, nil
}
