// Package memory provides an in-memory durable slot used for tests and
// ephemeral environments.
package memory

import (
	"context"
	"sync"

	"placesdir/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Slot adheres to the domain port.
var _ domain.Slot = (*Slot)(nil)

// Slot keeps the payload in process memory. Data is lost on exit.
type Slot struct {
	mu     sync.RWMutex
	data   []byte
	ok     bool
	writes int
}

// NewSlot returns an empty slot.
func NewSlot() *Slot { return &Slot{} }

// Read returns a copy of the stored payload.
func (s *Slot) Read(_ context.Context) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ok {
		return nil, false, nil
	}
	return append([]byte(nil), s.data...), true, nil
}

// Write replaces the payload with a copy of data.
func (s *Slot) Write(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
	s.ok = true
	s.writes++
	return nil
}

// Clear discards the payload.
func (s *Slot) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	s.ok = false
	return nil
}

// Writes reports how many successful writes the slot has received.
func (s *Slot) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}
