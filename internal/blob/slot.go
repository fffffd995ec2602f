package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
)

// SlotContentType is recorded on every slot write.
const SlotContentType = "application/json"

// Slot stores a single payload under one key of a blob Store.
// It implements domain.Slot for the fs, s3 and memory blob drivers.
type Slot struct {
	store Store
	key   string
}

// NewSlot returns a Slot persisting under key in store.
func NewSlot(store Store, key string) *Slot {
	return &Slot{store: store, key: key}
}

// Key returns the blob key backing the slot.
func (s *Slot) Key() string { return s.key }

// Read returns the stored payload; ok is false when nothing was written.
func (s *Slot) Read(ctx context.Context) ([]byte, bool, error) {
	_, rc, err := s.store.Get(ctx, s.key)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read slot %s: %w", s.key, err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, false, fmt.Errorf("read slot %s: %w", s.key, err)
	}
	return data, true, nil
}

// Write replaces the payload.
func (s *Slot) Write(ctx context.Context, data []byte) error {
	opts := PutOptions{ContentType: SlotContentType, Metadata: map[string]string{"slot": s.key}}
	if _, err := s.store.Put(ctx, s.key, bytes.NewReader(data), opts); err != nil {
		return fmt.Errorf("write slot %s: %w", s.key, err)
	}
	return nil
}

// Clear removes the payload. Clearing an empty slot is not an error.
func (s *Slot) Clear(ctx context.Context) error {
	if _, err := s.store.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("clear slot %s: %w", s.key, err)
	}
	return nil
}
