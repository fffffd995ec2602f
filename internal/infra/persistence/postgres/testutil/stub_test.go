package testutil

import (
	"context"
	"database/sql/driver"
	"io"
	"testing"
	"time"
)

func upsertArgs(key, payload string) []driver.NamedValue {
	return []driver.NamedValue{{Value: key}, {Value: []byte(payload)}, {Value: time.Unix(0, 0).UTC()}}
}

func TestStubConnSlotStatements(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()

	for _, key := range []string{"a", "b", "a"} {
		if _, err := conn.ExecContext(ctx, "INSERT INTO slots(key,payload,updated_at) VALUES($1,$2,$3)", upsertArgs(key, "payload-"+key)); err != nil {
			t.Fatalf("upsert %s: %v", key, err)
		}
	}
	if len(conn.Slots) != 2 {
		t.Fatalf("expected two keys, got %v", conn.Slots)
	}

	rows, err := conn.QueryContext(ctx, "SELECT payload FROM slots WHERE key = $1", []driver.NamedValue{{Value: "b"}})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	dest := make([]driver.Value, 1)
	if err := rows.Next(dest); err != nil {
		t.Fatalf("next: %v", err)
	}
	if string(dest[0].([]byte)) != "payload-b" {
		t.Fatalf("unexpected row %v", dest)
	}
	if err := rows.Next(dest); err != io.EOF {
		t.Fatalf("expected a single row, got %v", err)
	}

	if _, err := conn.ExecContext(ctx, "DELETE FROM slots WHERE key = $1", []driver.NamedValue{{Value: "a"}}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := conn.Slots["a"]; ok || len(conn.Slots) != 1 {
		t.Fatalf("expected a removed, got %v", conn.Slots)
	}
	if _, err := conn.ExecContext(ctx, "UPDATE slots SET payload = $1", nil); err == nil {
		t.Fatalf("expected unsupported statement error")
	}
}

func TestStubConnTransactions(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()

	tx, err := conn.BeginTx(ctx, driver.TxOptions{})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := conn.ExecContext(ctx, "INSERT INTO slots VALUES($1,$2,$3)", upsertArgs("k", "v1")); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, ok := conn.Slots["k"]; ok {
		t.Fatalf("uncommitted write visible")
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if len(conn.Slots) != 0 {
		t.Fatalf("rolled back write applied: %v", conn.Slots)
	}

	tx, _ = conn.BeginTx(ctx, driver.TxOptions{})
	if _, err := conn.ExecContext(ctx, "INSERT INTO slots VALUES($1,$2,$3)", upsertArgs("k", "v2")); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if string(conn.Slots["k"].Payload) != "v2" {
		t.Fatalf("commit not applied: %v", conn.Slots)
	}

	conn.FailCommit = true
	tx, _ = conn.BeginTx(ctx, driver.TxOptions{})
	_, _ = conn.ExecContext(ctx, "INSERT INTO slots VALUES($1,$2,$3)", upsertArgs("k", "v3"))
	if err := tx.Commit(); err == nil {
		t.Fatalf("expected commit failure")
	}
	if string(conn.Slots["k"].Payload) != "v2" {
		t.Fatalf("failed commit applied: %v", conn.Slots)
	}
}
