package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"placesdir/internal/blob/core"
)

func newTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	store.now = func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.FixedZone("x", 3600)) }
	return store
}

func readAll(t *testing.T, store *Store, key string) (core.Info, string) {
	t.Helper()
	info, rc, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("get %s: %v", key, err)
	}
	defer func() { _ = rc.Close() }()
	b, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read %s: %v", key, err)
	}
	return info, string(b)
}

func TestStore_SlotLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	payload := []byte(`{"regions":[]}`)
	info, err := store.Put(ctx, "places/slot.json", bytes.NewReader(payload), core.PutOptions{ContentType: "application/json", Metadata: map[string]string{"slot": "places"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "places/slot.json" || info.Size != int64(len(payload)) || info.Checksum != core.Checksum(payload) {
		t.Fatalf("unexpected info %+v", info)
	}
	if !info.Modified.Equal(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)) || info.Modified.Location() != time.UTC {
		t.Fatalf("expected UTC modification time, got %v", info.Modified)
	}

	got, body := readAll(t, store, "places/slot.json")
	if body != string(payload) || got.Metadata["slot"] != "places" || got.ContentType != "application/json" {
		t.Fatalf("unexpected object %q %+v", body, got)
	}
	head, err := store.Head(ctx, "places/slot.json")
	if err != nil || head.Checksum != got.Checksum {
		t.Fatalf("head: %+v %v", head, err)
	}

	ok, err := store.Delete(ctx, "places/slot.json")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if _, err := os.Stat(filepath.Join(store.Root(), "places", "slot.json.meta")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("sidecar not removed: %v", err)
	}
	ok, err = store.Delete(ctx, "places/slot.json")
	if err != nil || ok {
		t.Fatalf("second delete should report false, got %v %v", ok, err)
	}
}

func TestStore_PutReplaces(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	first, err := store.Put(ctx, "slot.json", bytes.NewReader([]byte("one")), core.PutOptions{})
	if err != nil {
		t.Fatalf("put1: %v", err)
	}
	second, err := store.Put(ctx, "slot.json", bytes.NewReader([]byte("second")), core.PutOptions{})
	if err != nil {
		t.Fatalf("put2: %v", err)
	}
	if first.Checksum == second.Checksum || second.Size != 6 {
		t.Fatalf("expected replaced content, got %+v", second)
	}
	if _, body := readAll(t, store, "slot.json"); body != "second" {
		t.Fatalf("expected replaced body, got %q", body)
	}
	entries, err := os.ReadDir(store.Root())
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("temp files leaked: %v", entries)
	}
}

func TestStore_MissingWrapsNotFound(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	if _, _, err := store.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get: expected ErrNotFound, got %v", err)
	}
	if _, err := store.Head(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("head: expected ErrNotFound, got %v", err)
	}
}

func TestStore_RejectsInvalidKeys(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	for _, key := range []string{"../escape.txt", "a/../../b", "/abs.txt", "  ", "x.meta"} {
		if _, err := store.Put(ctx, key, bytes.NewReader([]byte("x")), core.PutOptions{}); !errors.Is(err, core.ErrInvalidKey) {
			t.Fatalf("key %q: expected ErrInvalidKey, got %v", key, err)
		}
		if _, err := store.Delete(ctx, key); !errors.Is(err, core.ErrInvalidKey) {
			t.Fatalf("delete %q: expected ErrInvalidKey, got %v", key, err)
		}
	}
}

func TestStore_SidecarFormat(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	if _, err := store.Put(ctx, "meta/data.json", bytes.NewReader([]byte("abc")), core.PutOptions{ContentType: "application/json", Metadata: map[string]string{"a": "1"}}); err != nil {
		t.Fatalf("put: %v", err)
	}
	dataPath, metaPath, err := store.resolve("meta/data.json")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := os.Stat(dataPath); err != nil {
		t.Fatalf("expected data file: %v", err)
	}
	b, err := os.ReadFile(metaPath)
	if err != nil {
		t.Fatalf("read sidecar: %v", err)
	}
	var m sidecar
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("decode sidecar: %v", err)
	}
	if m.ContentType != "application/json" || m.Size != 3 || m.Checksum != core.Checksum([]byte("abc")) {
		t.Fatalf("unexpected sidecar %+v", m)
	}

	if err := os.WriteFile(metaPath, []byte("{"), 0o600); err != nil {
		t.Fatalf("corrupt sidecar: %v", err)
	}
	if _, err := store.Head(ctx, "meta/data.json"); err == nil || errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

type errorReader struct{}

func (errorReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestStore_FailedPutKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	if _, err := store.Put(ctx, "k1.json", bytes.NewReader([]byte("hi")), core.PutOptions{}); err != nil {
		t.Fatalf("put1: %v", err)
	}
	if _, err := store.Put(ctx, "k1.json", errorReader{}, core.PutOptions{}); err == nil {
		t.Fatalf("expected copy error")
	}
	if _, body := readAll(t, store, "k1.json"); body != "hi" {
		t.Fatalf("failed put clobbered content: %q", body)
	}
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := store.Put(cancelled, "k1.json", bytes.NewReader([]byte("late")), core.PutOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
	if store.Driver() != core.DriverFilesystem {
		t.Fatalf("unexpected driver")
	}
}
