package memory

import (
	"context"
	"testing"
)

func TestSlotLifecycle(t *testing.T) {
	ctx := context.Background()
	slot := NewSlot()
	if _, ok, err := slot.Read(ctx); err != nil || ok {
		t.Fatalf("expected empty slot")
	}
	payload := []byte(`{"regions":[]}`)
	if err := slot.Write(ctx, payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	payload[0] = 'X'
	got, ok, err := slot.Read(ctx)
	if err != nil || !ok || string(got) != `{"regions":[]}` {
		t.Fatalf("slot must copy on write, got %q", got)
	}
	got[0] = 'Y'
	again, _, _ := slot.Read(ctx)
	if again[0] != '{' {
		t.Fatalf("slot must copy on read")
	}
	if err := slot.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := slot.Read(ctx); ok {
		t.Fatalf("expected cleared slot")
	}
	if slot.Writes() != 1 {
		t.Fatalf("expected 1 write, got %d", slot.Writes())
	}
}
