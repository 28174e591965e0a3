package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/scenesync/internal/core/domain"
)

// Renderer serializes a resolved tree into its textual tag form.
type Renderer interface {
	Render(doc *domain.ResolvedDocument) (string, error)
}

// SnapshotExporter writes a resolved tree as a content-addressed archive.
type SnapshotExporter interface {
	// Export writes doc to w and returns the root identifier.
	Export(ctx context.Context, doc *domain.ResolvedDocument, w io.Writer) (string, error)
}
