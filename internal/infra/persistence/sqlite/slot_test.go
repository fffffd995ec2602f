package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSlotPersistAndReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	slot, err := Open(ctx, path, "pop_online_places_data_v1")
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	if _, ok, err := slot.Read(ctx); err != nil || ok {
		t.Fatalf("expected empty slot, got ok=%v err=%v", ok, err)
	}
	if err := slot.Write(ctx, []byte(`{"regions":[]}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := slot.Write(ctx, []byte(`{"regions":[{"region":"IL","sites":[]}]}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := slot.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reloaded, err := Open(ctx, path, "pop_online_places_data_v1")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = reloaded.Close() })
	data, ok, err := reloaded.Read(ctx)
	if err != nil || !ok || string(data) != `{"regions":[{"region":"IL","sites":[]}]}` {
		t.Fatalf("unexpected reload %q %v %v", data, ok, err)
	}
	var rows int
	if err := reloaded.db.QueryRow(`SELECT COUNT(*) FROM slots`).Scan(&rows); err != nil || rows != 1 {
		t.Fatalf("expected a single upserted row, got %d %v", rows, err)
	}
	if reloaded.path != path {
		t.Fatalf("unexpected path %s", reloaded.path)
	}
}

func TestSlotKeysAreIndependentAndClearable(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx, filepath.Join(t.TempDir(), "state.db"), "a")
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	if err := a.Write(ctx, []byte("A")); err != nil {
		t.Fatalf("write a: %v", err)
	}
	b := &Slot{db: a.db, key: "b", path: a.path, now: a.now}
	if _, ok, _ := b.Read(ctx); ok {
		t.Fatalf("slot b must not see slot a")
	}
	if err := a.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := a.Read(ctx); ok {
		t.Fatalf("expected cleared slot")
	}
	if err := a.Clear(ctx); err != nil {
		t.Fatalf("clearing empty slot: %v", err)
	}
}
