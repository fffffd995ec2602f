// Package testutil provides a fake database/sql driver that understands the
// handful of statements the postgres slot issues against its slots table.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"
)

// SlotRow is one row of the fake slots table.
type SlotRow struct {
	Payload   []byte
	UpdatedAt time.Time
}

// StubConn records every statement and keeps slot rows by key. Writes made
// inside a transaction become visible on Commit only.
type StubConn struct {
	Execs []string
	Slots map[string]SlotRow

	FailPing   bool
	FailBegin  bool
	FailCommit bool
	FailQuery  bool
	FailUpsert bool

	pending map[string]*SlotRow
	inTx    bool
}

var driverSeq atomic.Uint64

// NewStubDB registers a uniquely named driver and opens a sql.DB on it.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Slots: make(map[string]SlotRow)}
	name := fmt.Sprintf("stubpg%d", driverSeq.Add(1))
	sql.Register(name, stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct{ conn *StubConn }

func (d stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

func (c *StubConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("stub: prepare not supported")
}

func (c *StubConn) Close() error { return nil }

func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *StubConn) Ping(context.Context) error {
	if c.FailPing {
		return errors.New("stub: ping failed")
	}
	return nil
}

func (c *StubConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, errors.New("stub: begin failed")
	}
	c.inTx = true
	c.pending = make(map[string]*SlotRow)
	return stubTx{conn: c}, nil
}

// ExecContext handles CREATE TABLE, the upsert and the delete.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.Execs = append(c.Execs, query)
	switch verb(query) {
	case "CREATE":
		return driver.RowsAffected(0), nil
	case "INSERT":
		if c.FailUpsert {
			return nil, errors.New("stub: upsert failed")
		}
		if len(args) != 3 {
			return nil, fmt.Errorf("stub: upsert wants 3 args, got %d", len(args))
		}
		key, _ := args[0].Value.(string)
		payload, _ := args[1].Value.([]byte)
		updated, _ := args[2].Value.(time.Time)
		c.put(key, &SlotRow{Payload: append([]byte(nil), payload...), UpdatedAt: updated})
		return driver.RowsAffected(1), nil
	case "DELETE":
		if len(args) != 1 {
			return nil, fmt.Errorf("stub: delete wants 1 arg, got %d", len(args))
		}
		key, _ := args[0].Value.(string)
		c.put(key, nil)
		return driver.RowsAffected(1), nil
	default:
		return nil, fmt.Errorf("stub: unsupported exec %q", query)
	}
}

// QueryContext handles SELECT payload FROM slots WHERE key = $1.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if verb(query) != "SELECT" {
		return nil, fmt.Errorf("stub: unsupported query %q", query)
	}
	if c.FailQuery {
		return nil, errors.New("stub: query failed")
	}
	if len(args) != 1 {
		return nil, fmt.Errorf("stub: select wants 1 arg, got %d", len(args))
	}
	key, _ := args[0].Value.(string)
	rows := &stubRows{}
	if row, ok := c.Slots[key]; ok {
		rows.values = [][]driver.Value{{row.Payload}}
	}
	return rows, nil
}

func (c *StubConn) put(key string, row *SlotRow) {
	if c.inTx {
		c.pending[key] = row
		return
	}
	c.apply(key, row)
}

func (c *StubConn) apply(key string, row *SlotRow) {
	if row == nil {
		delete(c.Slots, key)
		return
	}
	c.Slots[key] = *row
}

func verb(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

type stubTx struct{ conn *StubConn }

func (t stubTx) Commit() error {
	c := t.conn
	defer func() { c.inTx, c.pending = false, nil }()
	if c.FailCommit {
		return errors.New("stub: commit failed")
	}
	for key, row := range c.pending {
		c.apply(key, row)
	}
	return nil
}

func (t stubTx) Rollback() error {
	t.conn.inTx, t.conn.pending = false, nil
	return nil
}

type stubRows struct {
	values [][]driver.Value
	idx    int
}

func (r *stubRows) Columns() []string { return []string{"payload"} }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.values) {
		return io.EOF
	}
	copy(dest, r.values[r.idx])
	r.idx++
	return nil
}
