package driven

import (
	"context"

	"github.com/custodia-labs/scenesync/internal/core/domain"
)

// Fetcher retrieves one log entry of a remote writer.
// Failures are reported as *domain.FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, writer domain.WriterID, seq uint64) ([]byte, error)
}

// VectorSource exposes the gossiped remote sequence vector.
type VectorSource interface {
	// RemoteVector returns a snapshot of what is known to exist.
	RemoteVector() domain.SequenceVector
}

// Announcer tells the group that the local writer produced a new entry.
type Announcer interface {
	Announce(ctx context.Context, seq uint64) error
}

// PatchListener is notified after a patch has been applied locally.
type PatchListener interface {
	PatchApplied(ctx context.Context, patch *domain.Patch)
}
