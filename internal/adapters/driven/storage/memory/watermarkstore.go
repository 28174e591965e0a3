package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/scenesync/internal/core/domain"
	"github.com/custodia-labs/scenesync/internal/core/ports/driven"
)

// Ensure WatermarkStore implements the interface.
var _ driven.WatermarkStore = (*WatermarkStore)(nil)

// WatermarkStore is an in-memory implementation of driven.WatermarkStore.
type WatermarkStore struct {
	mu         sync.RWMutex
	watermarks domain.SequenceVector
}

// NewWatermarkStore creates a new in-memory watermark store.
func NewWatermarkStore() *WatermarkStore {
	return &WatermarkStore{
		watermarks: make(domain.SequenceVector),
	}
}

// SaveWatermark records seq for writer.
func (s *WatermarkStore) SaveWatermark(_ context.Context, writer domain.WriterID, seq uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watermarks[writer] = seq
	return nil
}

// LoadWatermarks returns a copy of all watermarks.
func (s *WatermarkStore) LoadWatermarks(_ context.Context) (domain.SequenceVector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.watermarks.Clone(), nil
}
