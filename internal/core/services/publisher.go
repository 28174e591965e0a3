package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/scenesync/internal/core/domain"
	"github.com/custodia-labs/scenesync/internal/core/ports/driven"
	"github.com/custodia-labs/scenesync/internal/core/ports/driving"
	"github.com/custodia-labs/scenesync/internal/logger"
)

// Ensure EditPublisher implements the interface.
var _ driving.Publisher = (*EditPublisher)(nil)

// ErrNotPublished indicates an edit was applied locally but its log entry
// could not be stored, so no sequence number was advertised for it.
var ErrNotPublished = errors.New("edit applied locally but not published")

// EditPublisher authors local edits. An edit is applied to the local store
// first; only an accepted edit gets a sequence number and is published.
type EditPublisher struct {
	docs      driving.DocumentService
	tracker   *SequenceTracker
	entries   driven.EntryStore
	announcer driven.Announcer
	listener  driven.PatchListener
	now       func() time.Time

	// mu keeps sequence order equal to local apply order.
	mu sync.Mutex
}

// NewEditPublisher creates a publisher. announcer and listener are optional.
func NewEditPublisher(
	docs driving.DocumentService,
	tracker *SequenceTracker,
	entries driven.EntryStore,
	announcer driven.Announcer,
	listener driven.PatchListener,
) *EditPublisher {
	return &EditPublisher{
		docs:      docs,
		tracker:   tracker,
		entries:   entries,
		announcer: announcer,
		listener:  listener,
		now:       time.Now,
	}
}

// Publish stamps, applies and publishes a local edit. For non-new edits
// prev is taken from the latest stored version. A missing version is
// stamped with the current Unix time in milliseconds.
func (p *EditPublisher) Publish(ctx context.Context, patch *domain.Patch) (*driving.PublishResult, error) {
	if patch == nil {
		return nil, fmt.Errorf("%w: nil patch", domain.ErrInvalidPatch)
	}
	edit := *patch

	p.mu.Lock()
	defer p.mu.Unlock()

	if edit.Op != domain.OpNew && edit.Name != "" {
		latest, err := p.docs.Get(ctx, edit.Name)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrObjectNotFound, edit.Name)
		}
		if err != nil {
			return nil, err
		}
		edit.Prev = latest.Version
	}
	if edit.Version < 0 {
		edit.Version = p.now().UnixMilli()
	}

	version, err := p.docs.Apply(ctx, &edit)
	if err != nil {
		return nil, err
	}

	payload, err := edit.Encode()
	if err != nil {
		return nil, fmt.Errorf("encoding patch: %w", err)
	}
	// The sequence only enters the advertised vector once its entry can be
	// served.
	seq, err := p.tracker.ReserveLocalSequence()
	if err != nil {
		return nil, err
	}
	if err := p.entries.PutEntry(ctx, seq, payload); err != nil {
		p.tracker.ReleaseLocalSequence(seq)
		return nil, fmt.Errorf("%w: storing entry %d: %v", ErrNotPublished, seq, err)
	}
	if err := p.tracker.CommitLocalSequence(ctx, seq); err != nil {
		p.tracker.ReleaseLocalSequence(seq)
		return nil, fmt.Errorf("%w: %v", ErrNotPublished, err)
	}
	logger.Debug("published %s as %s", domain.VersionedName(edit.Name, version), domain.EntryName(p.tracker.Self(), seq))

	if p.announcer != nil {
		if err := p.announcer.Announce(ctx, seq); err != nil {
			logger.Warn("announcing %s: %v", domain.EntryName(p.tracker.Self(), seq), err)
		}
	}
	if p.listener != nil {
		p.listener.PatchApplied(ctx, &edit)
	}

	return &driving.PublishResult{Name: edit.Name, Version: version, Seq: seq}, nil
}
