package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/scenesync/internal/core/domain"
)

// DocumentService reads and mutates the versioned scene.
type DocumentService interface {
	// Get returns one document. name may carry a "/v=N" suffix; without it
	// the latest version is returned.
	Get(ctx context.Context, name string) (*domain.Document, error)

	// Resolve returns the fully expanded tree rooted at name.
	Resolve(ctx context.Context, name string) (*domain.ResolvedDocument, error)

	// Render resolves name and serializes it as nested tags.
	Render(ctx context.Context, name string) (string, error)

	// Export resolves name and writes it as a snapshot archive.
	// Returns the root identifier.
	Export(ctx context.Context, name string, w io.Writer) (string, error)

	// Apply applies a patch and returns the resulting version.
	Apply(ctx context.Context, patch *domain.Patch) (int64, error)

	// PutInitial stores a bootstrap document.
	PutInitial(ctx context.Context, doc domain.Document) error

	// Seed stores docs if the store is empty. Returns how many were stored.
	Seed(ctx context.Context, docs []domain.Document) (int, error)

	// History returns the stored versions and recorded patches for path.
	History(ctx context.Context, path string) (*History, error)

	// Paths lists every stored path.
	Paths(ctx context.Context) ([]string, error)
}

// History describes the stored versions of one path.
type History struct {
	// Path is the document path.
	Path string

	// Versions are the stored version keys, ascending.
	Versions []int64

	// Patches are the recorded patches, in the order accepted.
	Patches []domain.Patch
}
