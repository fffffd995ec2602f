package domain

import "context"

// Slot is the durable storage port holding the whole serialized dataset
// under a single fixed key. Backends never interpret the bytes they store.
type Slot interface {
	// Read returns the stored bytes. ok is false when nothing has been written.
	Read(ctx context.Context) (data []byte, ok bool, err error)
	// Write replaces the stored bytes.
	Write(ctx context.Context, data []byte) error
	// Clear discards the stored bytes. Clearing an empty slot is not an error.
	Clear(ctx context.Context) error
}
