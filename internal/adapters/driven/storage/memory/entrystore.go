package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/scenesync/internal/core/domain"
	"github.com/custodia-labs/scenesync/internal/core/ports/driven"
)

// Ensure EntryStore implements the interface.
var _ driven.EntryStore = (*EntryStore)(nil)

// EntryStore is an in-memory implementation of driven.EntryStore.
type EntryStore struct {
	mu      sync.RWMutex
	entries map[uint64][]byte
	last    uint64
}

// NewEntryStore creates a new in-memory entry store.
func NewEntryStore() *EntryStore {
	return &EntryStore{
		entries: make(map[uint64][]byte),
	}
}

// PutEntry stores the payload for seq.
func (s *EntryStore) PutEntry(_ context.Context, seq uint64, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[seq] = append([]byte(nil), payload...)
	if seq > s.last {
		s.last = seq
	}
	return nil
}

// GetEntry retrieves the payload for seq.
func (s *EntryStore) GetEntry(_ context.Context, seq uint64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payload, ok := s.entries[seq]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), payload...), nil
}

// LastEntry returns the highest stored sequence number.
func (s *EntryStore) LastEntry(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, nil
}
