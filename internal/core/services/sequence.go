package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/scenesync/internal/core/domain"
	"github.com/custodia-labs/scenesync/internal/core/ports/driven"
	"github.com/custodia-labs/scenesync/internal/logger"
)

// ErrSequenceReserved indicates a local sequence reservation was misused.
var ErrSequenceReserved = errors.New("local sequence reservation")

// SequenceTracker owns the local writer's sequence counter and the
// per-writer watermarks. The local vector holds the local writer's own last
// sequence and, for every other writer, the highest sequence a fetch has
// been attempted for. Entries only move upward.
type SequenceTracker struct {
	self       domain.WriterID
	watermarks driven.WatermarkStore
	entries    driven.EntryStore

	mu      sync.Mutex
	local   domain.SequenceVector
	applied domain.SequenceVector
	// reserved is a local sequence handed out but not yet committed; 0 if none.
	reserved uint64
}

// NewSequenceTracker creates a tracker for the local writer self.
// watermarks and entries are optional; without them state is in memory only.
func NewSequenceTracker(
	self domain.WriterID,
	watermarks driven.WatermarkStore,
	entries driven.EntryStore,
) *SequenceTracker {
	return &SequenceTracker{
		self:       self,
		watermarks: watermarks,
		entries:    entries,
		local:      make(domain.SequenceVector),
		applied:    make(domain.SequenceVector),
	}
}

// Self returns the local writer id.
func (t *SequenceTracker) Self() domain.WriterID {
	return t.self
}

// Restore reloads persisted watermarks and the last published entry so that
// local sequence numbers never repeat across restarts.
func (t *SequenceTracker) Restore(ctx context.Context) error {
	restored := make(domain.SequenceVector)
	if t.watermarks != nil {
		wm, err := t.watermarks.LoadWatermarks(ctx)
		if err != nil {
			return fmt.Errorf("loading watermarks: %w", err)
		}
		restored.Merge(wm)
	}
	if t.entries != nil {
		last, err := t.entries.LastEntry(ctx)
		if err != nil {
			return fmt.Errorf("loading last entry: %w", err)
		}
		restored.Merge(domain.SequenceVector{t.self: last})
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.local.Merge(restored)
	logger.Debug("restored sequence state for %d writers", len(restored))
	return nil
}

// NextLocalSequence allocates and commits the next sequence number for the
// local writer. The first number is 1.
func (t *SequenceTracker) NextLocalSequence(ctx context.Context) (uint64, error) {
	seq, err := t.ReserveLocalSequence()
	if err != nil {
		return 0, err
	}
	if err := t.CommitLocalSequence(ctx, seq); err != nil {
		t.ReleaseLocalSequence(seq)
		return 0, err
	}
	return seq, nil
}

// ReserveLocalSequence hands out the next local sequence number without
// making it visible in the local vector. Only one reservation may be
// outstanding; it ends with CommitLocalSequence or ReleaseLocalSequence.
func (t *SequenceTracker) ReserveLocalSequence() (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.reserved != 0 {
		return 0, fmt.Errorf("%w: local sequence %d already reserved", ErrSequenceReserved, t.reserved)
	}
	t.reserved = t.local[t.self] + 1
	return t.reserved, nil
}

// CommitLocalSequence publishes a reserved sequence into the local vector.
// Call it only once the entry for seq is stored.
func (t *SequenceTracker) CommitLocalSequence(ctx context.Context, seq uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if seq == 0 || seq != t.reserved {
		return fmt.Errorf("%w: local sequence %d is not reserved", ErrSequenceReserved, seq)
	}
	if t.watermarks != nil {
		if err := t.watermarks.SaveWatermark(ctx, t.self, seq); err != nil {
			return fmt.Errorf("saving local sequence: %w", err)
		}
	}
	t.local[t.self] = seq
	t.reserved = 0
	return nil
}

// ReleaseLocalSequence drops a reservation so the number is handed out again.
func (t *SequenceTracker) ReleaseLocalSequence(seq uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.reserved == seq {
		t.reserved = 0
	}
}

// LocalSequence returns the last committed local sequence number.
func (t *SequenceTracker) LocalSequence() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.local[t.self]
}

// LocalSnapshot returns a copy of the local vector.
func (t *SequenceTracker) LocalSnapshot() domain.SequenceVector {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.local.Clone()
}

// MarkFetched records seq as the fetch watermark for writer. Lower or equal
// values are ignored.
func (t *SequenceTracker) MarkFetched(ctx context.Context, writer domain.WriterID, seq uint64) {
	t.mu.Lock()
	advanced := t.local.Merge(domain.SequenceVector{writer: seq})
	t.mu.Unlock()

	if advanced && t.watermarks != nil {
		if err := t.watermarks.SaveWatermark(ctx, writer, seq); err != nil {
			logger.Warn("saving watermark %s: %v", domain.EntryName(writer, seq), err)
		}
	}
}

// MarkApplied records that seq from writer was applied.
func (t *SequenceTracker) MarkApplied(writer domain.WriterID, seq uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.applied.Merge(domain.SequenceVector{writer: seq})
}

// AppliedSnapshot returns a copy of the applied vector. It never drives
// fetching.
func (t *SequenceTracker) AppliedSnapshot() domain.SequenceVector {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.applied.Clone()
}

// Gaps returns the ranges announced in remote beyond the local watermarks.
// The local writer is never included.
func (t *SequenceTracker) Gaps(remote domain.SequenceVector) []domain.Gap {
	return domain.ComputeGaps(t.LocalSnapshot(), remote, t.self)
}
