// Package postgres persists the durable slot in Postgres through the pgx
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"placesdir/pkg/domain"
)

// Compile-time contract assertion ensuring the slot satisfies the domain port.
var _ domain.Slot = (*Slot)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/placesdir?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Slot stores one payload per key in the slots table.
type Slot struct {
	db  *sql.DB
	key string
	now func() time.Time
}

// Open connects using dsn (falls back to defaultDSN), ensures the slots
// table exists and returns the slot for key.
func Open(ctx context.Context, dsn, key string) (*Slot, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureSlotsTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Slot{db: db, key: key, now: time.Now}, nil
}

func ensureSlotsTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS slots (
		key TEXT PRIMARY KEY,
		payload BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure slots table: %w", err)
	}
	return nil
}

// Read returns the payload stored under the slot key.
func (s *Slot) Read(ctx context.Context) ([]byte, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM slots WHERE key = $1`, s.key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select slot %s: %w", s.key, err)
	}
	return payload, true, nil
}

// Write upserts the payload inside a transaction.
func (s *Slot) Write(ctx context.Context, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO slots(key,payload,updated_at) VALUES($1,$2,$3) ON CONFLICT(key) DO UPDATE SET payload=EXCLUDED.payload, updated_at=EXCLUDED.updated_at`,
		s.key, data, s.now().UTC()); err != nil {
		return fmt.Errorf("upsert slot %s: %w", s.key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// Clear deletes the slot row.
func (s *Slot) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM slots WHERE key = $1`, s.key); err != nil {
		return fmt.Errorf("delete slot %s: %w", s.key, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Slot) Close() error { return s.db.Close() }

// overrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func overrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
