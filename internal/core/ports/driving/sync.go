package driving

import (
	"context"

	"github.com/custodia-labs/scenesync/internal/core/domain"
)

// Reconciler fetches and applies remote log entries the local node is missing.
type Reconciler interface {
	// Run blocks, performing a pass each time a wake-up arrives, until the
	// context is cancelled or Stop is called.
	Run(ctx context.Context) error

	// Wake signals that the remote vector may have advanced. Wake-ups that
	// arrive before a pass starts are coalesced.
	Wake()

	// Stop moves the reconciler to its terminal state.
	Stop()

	// Status returns the current state and counters.
	Status() ReconcileStatus
}

// ReconcileStatus is a snapshot of reconciler progress.
type ReconcileStatus struct {
	// State is the lifecycle state.
	State domain.ReconcilerState

	// Stats counts the work done so far.
	Stats domain.ReconcileStats

	// Fetched is the fetch-attempted watermark per writer.
	Fetched domain.SequenceVector

	// Applied is the highest applied sequence per writer.
	Applied domain.SequenceVector
}

// Publisher authors local edits: apply first, then publish.
type Publisher interface {
	Publish(ctx context.Context, patch *domain.Patch) (*PublishResult, error)
}

// PublishResult reports where a published edit landed.
type PublishResult struct {
	// Name is the document path.
	Name string

	// Version is the version the edit produced.
	Version int64

	// Seq is the local sequence number the entry was published under.
	Seq uint64
}
