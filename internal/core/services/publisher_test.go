package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/scenesync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/scenesync/internal/core/domain"
)

type mockAnnouncer struct {
	seqs []uint64
	err  error
}

func (m *mockAnnouncer) Announce(_ context.Context, seq uint64) error {
	m.seqs = append(m.seqs, seq)
	return m.err
}

type publisherFixture struct {
	docs      *DocumentStore
	tracker   *SequenceTracker
	entries   *memory.EntryStore
	announcer *mockAnnouncer
	listener  *recordingListener
	publisher *EditPublisher
}

func newPublisherFixture(t *testing.T) *publisherFixture {
	t.Helper()
	docs := NewDocumentStore(memory.NewVersionStore(), memory.NewPatchLog(), nil, nil, DocumentStoreOptions{})
	seedColorScene(t, docs)
	tracker := NewSequenceTracker("self", nil, nil)
	entries := memory.NewEntryStore()
	announcer := &mockAnnouncer{}
	listener := &recordingListener{}
	p := NewEditPublisher(docs, tracker, entries, announcer, listener)
	p.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return &publisherFixture{
		docs:      docs,
		tracker:   tracker,
		entries:   entries,
		announcer: announcer,
		listener:  listener,
		publisher: p,
	}
}

func TestEditPublisher_Publish(t *testing.T) {
	f := newPublisherFixture(t)
	ctx := context.Background()

	res, err := f.publisher.Publish(ctx, &domain.Patch{
		Name: "/root/a", Version: -1, Prev: -1, Op: domain.OpReplace,
		Path: "/color", Value: json.RawMessage(`"blue"`),
	})
	require.NoError(t, err)
	assert.Equal(t, "/root/a", res.Name)
	assert.Equal(t, int64(1700000000000), res.Version)
	assert.Equal(t, uint64(1), res.Seq)

	// Applied locally.
	a, err := f.docs.Get(ctx, "/root/a")
	require.NoError(t, err)
	assert.Equal(t, "blue", propString(t, *a, "color"))

	// Stored under the sequence with prev stamped.
	payload, err := f.entries.GetEntry(ctx, 1)
	require.NoError(t, err)
	stored, err := domain.DecodePatch(payload)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Prev)
	assert.Equal(t, int64(1700000000000), stored.Version)

	assert.Equal(t, []uint64{1}, f.announcer.seqs)
	assert.Equal(t, 1, f.listener.count())
}

func TestEditPublisher_SequenceIncreases(t *testing.T) {
	f := newPublisherFixture(t)
	ctx := context.Background()

	for i := int64(2); i <= 4; i++ {
		res, err := f.publisher.Publish(ctx, &domain.Patch{
			Name: "/root/a", Version: i, Op: domain.OpNoop,
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(i-1), res.Seq)
		assert.Equal(t, i, res.Version)
	}
	assert.Equal(t, []uint64{1, 2, 3}, f.announcer.seqs)
}

func TestEditPublisher_NewKeepsPrev(t *testing.T) {
	f := newPublisherFixture(t)
	ctx := context.Background()

	_, err := f.publisher.Publish(ctx, &domain.Patch{
		Name: "/root/box", Version: 1, Prev: -1, Op: domain.OpNew,
		Value: json.RawMessage(`{"@type": "a-box"}`),
	})
	require.NoError(t, err)

	payload, err := f.entries.GetEntry(ctx, 1)
	require.NoError(t, err)
	stored, err := domain.DecodePatch(payload)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), stored.Prev)
}

func TestEditPublisher_RejectedEditPublishesNothing(t *testing.T) {
	tests := []struct {
		name    string
		patch   *domain.Patch
		wantErr error
	}{
		{"nil", nil, domain.ErrInvalidPatch},
		{"unknown object", &domain.Patch{Name: "/root/zzz", Version: 2, Op: domain.OpReplace, Path: "/color", Value: json.RawMessage(`1`)}, domain.ErrObjectNotFound},
		{"bad op", &domain.Patch{Name: "/root/a", Version: 2, Op: "copy"}, domain.ErrInvalidPatch},
		{"bad pointer", &domain.Patch{Name: "/root/a", Version: 2, Op: domain.OpRemove, Path: "/nope"}, domain.ErrInvalidPatch},
		{"new without value", &domain.Patch{Name: "/root/b", Version: 1, Op: domain.OpNew}, domain.ErrInvalidPatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPublisherFixture(t)
			ctx := context.Background()

			_, err := f.publisher.Publish(ctx, tt.patch)
			assert.ErrorIs(t, err, tt.wantErr)

			last, err := f.entries.LastEntry(ctx)
			require.NoError(t, err)
			assert.Equal(t, uint64(0), last)
			assert.Equal(t, uint64(0), f.tracker.LocalSequence())
			assert.Empty(t, f.announcer.seqs)

			versions, err := f.docs.History(ctx, "/root/a")
			require.NoError(t, err)
			assert.Equal(t, []int64{1}, versions.Versions)
		})
	}
}

func TestEditPublisher_AnnounceFailureIsNotFatal(t *testing.T) {
	f := newPublisherFixture(t)
	f.announcer.err = errors.New("no peers")

	res, err := f.publisher.Publish(context.Background(), &domain.Patch{Name: "/root/a", Version: 2, Op: domain.OpNoop})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Seq)
}

func TestEditPublisher_OptionalCollaborators(t *testing.T) {
	docs := NewDocumentStore(memory.NewVersionStore(), nil, nil, nil, DocumentStoreOptions{})
	seedColorScene(t, docs)
	p := NewEditPublisher(docs, NewSequenceTracker("self", nil, nil), memory.NewEntryStore(), nil, nil)

	res, err := p.Publish(context.Background(), &domain.Patch{Name: "/root/a", Version: 5, Op: domain.OpNoop})
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Version)
}

// observingEntryStore checks what the tracker advertises while an entry is
// being written.
type observingEntryStore struct {
	*memory.EntryStore
	tracker *SequenceTracker
	err     error

	advertised []uint64
	servable   []bool
}

func (s *observingEntryStore) PutEntry(ctx context.Context, seq uint64, payload []byte) error {
	adv := s.tracker.LocalSnapshot().Get(s.tracker.Self())
	s.advertised = append(s.advertised, adv)
	if adv > 0 {
		_, err := s.EntryStore.GetEntry(ctx, adv)
		s.servable = append(s.servable, err == nil)
	}
	if s.err != nil {
		return s.err
	}
	return s.EntryStore.PutEntry(ctx, seq, payload)
}

func TestEditPublisher_SequenceAdvertisedOnlyAfterEntryStored(t *testing.T) {
	f := newPublisherFixture(t)
	store := &observingEntryStore{EntryStore: f.entries, tracker: f.tracker}
	f.publisher.entries = store
	ctx := context.Background()

	for v := int64(2); v <= 3; v++ {
		_, err := f.publisher.Publish(ctx, &domain.Patch{Name: "/root/a", Version: v, Op: domain.OpNoop})
		require.NoError(t, err)
	}

	assert.Equal(t, []uint64{0, 1}, store.advertised)
	assert.Equal(t, []bool{true}, store.servable)
	assert.Equal(t, uint64(2), f.tracker.LocalSnapshot().Get("self"))
}

func TestEditPublisher_EntryStoreFailureKeepsSequence(t *testing.T) {
	f := newPublisherFixture(t)
	store := &observingEntryStore{EntryStore: f.entries, tracker: f.tracker, err: errors.New("disk full")}
	f.publisher.entries = store
	ctx := context.Background()

	_, err := f.publisher.Publish(ctx, &domain.Patch{Name: "/root/a", Version: 2, Op: domain.OpNoop})

	assert.ErrorIs(t, err, ErrNotPublished)
	assert.Equal(t, uint64(0), f.tracker.LocalSequence())
	assert.Empty(t, f.announcer.seqs)

	store.err = nil
	res, err := f.publisher.Publish(ctx, &domain.Patch{Name: "/root/a", Version: 3, Op: domain.OpNoop})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Seq)
	assert.Equal(t, []uint64{1}, f.announcer.seqs)
}
