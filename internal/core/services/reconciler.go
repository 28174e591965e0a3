package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/scenesync/internal/core/domain"
	"github.com/custodia-labs/scenesync/internal/core/ports/driven"
	"github.com/custodia-labs/scenesync/internal/core/ports/driving"
	"github.com/custodia-labs/scenesync/internal/logger"
)

// Ensure GapReconciler implements the interface.
var _ driving.Reconciler = (*GapReconciler)(nil)

// ErrAlreadyRunning is returned when Run is called twice concurrently.
var ErrAlreadyRunning = errors.New("reconciler already running")

// GapReconciler fetches the entries the local node is missing relative to
// the gossiped vector and applies them in per-writer sequence order.
// Only one pass runs at a time.
type GapReconciler struct {
	docs     driving.DocumentService
	tracker  *SequenceTracker
	fetcher  driven.Fetcher
	source   driven.VectorSource
	listener driven.PatchListener

	wakeCh   chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once

	mu      sync.RWMutex
	state   domain.ReconcilerState
	stats   domain.ReconcileStats
	running bool
}

// NewGapReconciler creates a reconciler. listener is optional.
func NewGapReconciler(
	docs driving.DocumentService,
	tracker *SequenceTracker,
	fetcher driven.Fetcher,
	source driven.VectorSource,
	listener driven.PatchListener,
) *GapReconciler {
	return &GapReconciler{
		docs:     docs,
		tracker:  tracker,
		fetcher:  fetcher,
		source:   source,
		listener: listener,
		wakeCh:   make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		state:    domain.ReconcilerIdle,
	}
}

// Wake requests a pass. It never blocks; pending wake-ups coalesce.
func (r *GapReconciler) Wake() {
	select {
	case r.wakeCh <- struct{}{}:
	default:
	}
}

// Stop moves the reconciler to Stopped. In-flight fetches finish but their
// outcome is discarded. Stop is idempotent.
func (r *GapReconciler) Stop() {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.state = domain.ReconcilerStopped
		r.mu.Unlock()
		close(r.stopCh)
	})
}

// Run blocks until Stop is called or ctx is cancelled.
func (r *GapReconciler) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.state == domain.ReconcilerStopped {
		r.mu.Unlock()
		return domain.ErrStopped
	}
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			r.Stop()
			return ctx.Err()
		case <-r.stopCh:
			return nil
		case <-r.wakeCh:
		}

		for {
			if !r.setState(domain.ReconcilerReconciling) {
				return nil
			}
			r.pass(ctx)

			// A wake-up that arrived during the pass starts the next one
			// without passing through Idle.
			select {
			case <-r.wakeCh:
				continue
			default:
			}
			if !r.setState(domain.ReconcilerIdle) {
				return nil
			}
			break
		}
	}
}

// Status returns a snapshot of the reconciler's state.
func (r *GapReconciler) Status() driving.ReconcileStatus {
	r.mu.RLock()
	state, stats := r.state, r.stats
	r.mu.RUnlock()

	return driving.ReconcileStatus{
		State:   state,
		Stats:   stats,
		Fetched: r.tracker.LocalSnapshot(),
		Applied: r.tracker.AppliedSnapshot(),
	}
}

// pass walks every gap once. The watermark for a writer is advanced to the
// end of its gap before fetching, so entries that fail are not retried until
// the writer announces more.
func (r *GapReconciler) pass(ctx context.Context) {
	gaps := r.tracker.Gaps(r.source.RemoteVector())
	if len(gaps) == 0 {
		logger.Debug("reconcile: no gaps")
	}

	for _, gap := range gaps {
		if r.stopped() {
			return
		}
		logger.Debug("reconcile: fetching %s", gap)
		r.tracker.MarkFetched(ctx, gap.Writer, gap.To)

		for seq := gap.From; seq <= gap.To; seq++ {
			if r.stopped() || ctx.Err() != nil {
				return
			}
			r.fetchAndApply(ctx, gap.Writer, seq)
		}
	}

	r.mu.Lock()
	r.stats.Passes++
	r.stats.LastPass = time.Now()
	r.mu.Unlock()
}

func (r *GapReconciler) fetchAndApply(ctx context.Context, writer domain.WriterID, seq uint64) {
	entry := domain.EntryName(writer, seq)

	payload, err := r.fetcher.Fetch(ctx, writer, seq)
	if r.stopped() {
		return
	}
	if err != nil {
		logger.Info("[%s] %s: %v", entry, classifyFetchError(err), err)
		r.count(func(s *domain.ReconcileStats) { s.Skipped++ })
		return
	}
	r.count(func(s *domain.ReconcileStats) { s.Fetched++ })

	patch, err := domain.DecodePatch(payload)
	if err != nil {
		logger.Error("[%s] %v", entry, err)
		r.count(func(s *domain.ReconcileStats) { s.Skipped++ })
		return
	}
	if _, err := r.docs.Apply(ctx, patch); err != nil {
		logger.Error("[%s] applying %s: %v", entry, patch.Name, err)
		r.count(func(s *domain.ReconcileStats) { s.Skipped++ })
		return
	}

	r.tracker.MarkApplied(writer, seq)
	r.count(func(s *domain.ReconcileStats) { s.Applied++ })
	if r.listener != nil {
		r.listener.PatchApplied(ctx, patch)
	}
}

// setState moves to s unless the reconciler is stopped.
func (r *GapReconciler) setState(s domain.ReconcilerState) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == domain.ReconcilerStopped {
		return false
	}
	r.state = s
	return true
}

func (r *GapReconciler) stopped() bool {
	select {
	case <-r.stopCh:
		return true
	default:
		return false
	}
}

func (r *GapReconciler) count(fn func(*domain.ReconcileStats)) {
	r.mu.Lock()
	fn(&r.stats)
	r.mu.Unlock()
}

// classifyFetchError maps err onto a fetch failure kind.
func classifyFetchError(err error) domain.FetchFailure {
	if kind, ok := domain.FetchFailureOf(err); ok {
		return kind
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return domain.FetchTimeout
	case errors.Is(err, context.Canceled):
		return domain.FetchCancelled
	default:
		return domain.FetchRejected
	}
}
