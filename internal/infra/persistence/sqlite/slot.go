// Package sqlite persists the durable slot in a SQLite database using the
// pure Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"placesdir/pkg/domain"
)

var _ domain.Slot = (*Slot)(nil)

// Slot stores one payload per key in the slots table.
type Slot struct {
	db   *sql.DB
	key  string
	path string
	now  func() time.Time
}

// Open opens (creating if needed) the database at path and returns the slot for key.
func Open(ctx context.Context, path, key string) (*Slot, error) {
	if path == "" {
		path = "placesdir.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single connection: shares :memory: databases and serializes writers
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS slots (
		key TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		updated_at TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create slots table: %w", err)
	}
	return &Slot{db: db, key: key, path: path, now: time.Now}, nil
}

// Read returns the payload stored under the slot key.
func (s *Slot) Read(ctx context.Context) ([]byte, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM slots WHERE key = ?`, s.key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select slot %s in %s: %w", s.key, s.path, err)
	}
	return payload, true, nil
}

// Write upserts the payload.
func (s *Slot) Write(ctx context.Context, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO slots(key,payload,updated_at) VALUES(?,?,?) ON CONFLICT(key) DO UPDATE SET payload=excluded.payload, updated_at=excluded.updated_at`,
		s.key, data, s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert slot %s in %s: %w", s.key, s.path, err)
	}
	return nil
}

// Clear deletes the slot row.
func (s *Slot) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM slots WHERE key = ?`, s.key); err != nil {
		return fmt.Errorf("delete slot %s: %w", s.key, err)
	}
	return nil
}

// Close releases the database handle.
func (s *Slot) Close() error { return s.db.Close() }
