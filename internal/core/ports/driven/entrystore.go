package driven

import (
	"context"

	"github.com/custodia-labs/scenesync/internal/core/domain"
)

// EntryStore holds the encoded patches published by the local writer,
// keyed by sequence number. Peers fetch from it.
type EntryStore interface {
	// PutEntry stores the payload for seq.
	PutEntry(ctx context.Context, seq uint64, payload []byte) error

	// GetEntry retrieves the payload for seq.
	// Returns domain.ErrNotFound if no entry exists.
	GetEntry(ctx context.Context, seq uint64) ([]byte, error)

	// LastEntry returns the highest stored sequence number, or 0.
	LastEntry(ctx context.Context) (uint64, error)
}

// WatermarkStore persists the per-writer fetch watermarks.
type WatermarkStore interface {
	// SaveWatermark records seq as the watermark for writer.
	SaveWatermark(ctx context.Context, writer domain.WriterID, seq uint64) error

	// LoadWatermarks returns all recorded watermarks.
	LoadWatermarks(ctx context.Context) (domain.SequenceVector, error)
}
