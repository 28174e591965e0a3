package driven

import (
	"context"

	"github.com/custodia-labs/scenesync/internal/core/domain"
)

// VersionStore persists immutable document versions keyed by (path, version).
type VersionStore interface {
	// PutVersion stores a document version. An existing (path, version)
	// entry is replaced.
	PutVersion(ctx context.Context, doc *domain.Document) error

	// GetVersion retrieves one exact version.
	// Returns domain.ErrNotFound if it is not stored.
	GetVersion(ctx context.Context, path string, version int64) (*domain.Document, error)

	// LatestVersion retrieves the version with the highest key for path.
	// Returns domain.ErrNotFound if the path has no stored version.
	LatestVersion(ctx context.Context, path string) (*domain.Document, error)

	// Versions returns the stored version keys for path in ascending order.
	Versions(ctx context.Context, path string) ([]int64, error)

	// Paths returns every path with at least one stored version, sorted.
	Paths(ctx context.Context) ([]string, error)
}

// PatchHistory records every accepted patch, including no-ops.
type PatchHistory interface {
	// AppendPatch records a patch.
	AppendPatch(ctx context.Context, patch *domain.Patch) error

	// Patches returns the patches recorded for path in the order accepted.
	Patches(ctx context.Context, path string) ([]domain.Patch, error)
}
