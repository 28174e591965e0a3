package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/custodia-labs/scenesync/internal/core/domain"
	"github.com/custodia-labs/scenesync/internal/core/ports/driven"
	"github.com/custodia-labs/scenesync/internal/core/ports/driving"
	"github.com/custodia-labs/scenesync/internal/logger"
)

// Ensure DocumentStore implements the interface.
var _ driving.DocumentService = (*DocumentStore)(nil)

// Sentinel errors for optional collaborators.
var (
	ErrRendererNotConfigured = errors.New("renderer not configured")
	ErrExporterNotConfigured = errors.New("snapshot exporter not configured")
)

// DocumentStoreOptions tunes DocumentStore behaviour.
type DocumentStoreOptions struct {
	// CheckPrev rejects non-new patches whose prev is set and differs from
	// the latest stored version.
	CheckPrev bool

	// MaxDepth bounds resolution depth. Zero means the default.
	MaxDepth int
}

// DocumentStore holds every version of every scene path and resolves
// child references into trees.
type DocumentStore struct {
	versions driven.VersionStore
	history  driven.PatchHistory
	renderer driven.Renderer
	exporter driven.SnapshotExporter

	checkPrev bool
	maxDepth  int

	// mu serializes Apply and PutInitial.
	mu sync.Mutex
}

// NewDocumentStore creates a document store over versions.
// history, renderer and exporter are optional.
func NewDocumentStore(
	versions driven.VersionStore,
	history driven.PatchHistory,
	renderer driven.Renderer,
	exporter driven.SnapshotExporter,
	opts DocumentStoreOptions,
) *DocumentStore {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = domain.DefaultConfig().MaxDepth
	}
	return &DocumentStore{
		versions:  versions,
		history:   history,
		renderer:  renderer,
		exporter:  exporter,
		checkPrev: opts.CheckPrev,
		maxDepth:  maxDepth,
	}
}

// Get returns the document for a possibly versioned name.
func (s *DocumentStore) Get(ctx context.Context, name string) (*domain.Document, error) {
	path, version, err := domain.ParseName(name)
	if err != nil {
		return nil, err
	}
	return s.lookup(ctx, path, version)
}

// PutInitial stores a bootstrap document as-is.
func (s *DocumentStore) PutInitial(ctx context.Context, doc domain.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	doc = doc.Clone()
	if doc.ID == "" {
		doc.ID = domain.Basename(doc.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.versions.PutVersion(ctx, &doc); err != nil {
		return fmt.Errorf("storing %s: %w", domain.VersionedName(doc.Name, doc.Version), err)
	}
	return nil
}

// Seed stores docs unless the store already holds documents.
func (s *DocumentStore) Seed(ctx context.Context, docs []domain.Document) (int, error) {
	paths, err := s.versions.Paths(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing paths: %w", err)
	}
	if len(paths) > 0 {
		logger.Debug("seed skipped: store holds %d paths", len(paths))
		return 0, nil
	}

	for i, doc := range docs {
		if err := s.PutInitial(ctx, doc); err != nil {
			return i, err
		}
	}
	logger.Debug("seeded %d documents", len(docs))
	return len(docs), nil
}

// Apply applies a patch and returns the version it produced. A rejected
// patch leaves the store untouched.
func (s *DocumentStore) Apply(ctx context.Context, patch *domain.Patch) (int64, error) {
	if patch == nil {
		return -1, fmt.Errorf("%w: nil patch", domain.ErrInvalidPatch)
	}
	if err := patch.Validate(); err != nil {
		return -1, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch patch.Op {
	case domain.OpNoop:
	case domain.OpNew:
		doc, err := newDocument(patch)
		if err != nil {
			return -1, err
		}
		if err := s.versions.PutVersion(ctx, doc); err != nil {
			return -1, fmt.Errorf("storing %s: %w", domain.VersionedName(doc.Name, doc.Version), err)
		}
	default:
		base, err := s.versions.LatestVersion(ctx, patch.Name)
		if errors.Is(err, domain.ErrNotFound) {
			return -1, fmt.Errorf("%w: %s", domain.ErrObjectNotFound, patch.Name)
		}
		if err != nil {
			return -1, fmt.Errorf("loading %s: %w", patch.Name, err)
		}
		if s.checkPrev && patch.Prev >= 0 && patch.Prev != base.Version {
			return -1, fmt.Errorf("%w: %s prev %d, latest %d", domain.ErrConflict, patch.Name, patch.Prev, base.Version)
		}
		doc, err := applyOperation(base, patch)
		if err != nil {
			return -1, err
		}
		if err := s.versions.PutVersion(ctx, doc); err != nil {
			return -1, fmt.Errorf("storing %s: %w", domain.VersionedName(doc.Name, doc.Version), err)
		}
	}

	if s.history != nil {
		if err := s.history.AppendPatch(ctx, patch); err != nil {
			logger.Warn("recording patch %s: %v", domain.VersionedName(patch.Name, patch.Version), err)
		}
	}
	return patch.Version, nil
}

// newDocument builds the first version from a new patch. The id always
// comes from the path basename.
func newDocument(patch *domain.Patch) (*domain.Document, error) {
	var doc domain.Document
	if err := json.Unmarshal(patch.Value, &doc); err != nil {
		return nil, fmt.Errorf("%w: new value: %w", domain.ErrInvalidPatch, err)
	}
	doc.Name = patch.Name
	doc.ID = domain.Basename(patch.Name)
	doc.Version = patch.Version
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: new value: %w", domain.ErrInvalidPatch, err)
	}
	return &doc, nil
}

// applyOperation applies a single JSON Patch operation to a copy of base.
func applyOperation(base *domain.Document, patch *domain.Patch) (*domain.Document, error) {
	ops, err := patch.Operation()
	if err != nil {
		return nil, err
	}
	decoded, err := jsonpatch.DecodePatch(ops)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPatch, err)
	}
	original, err := json.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", base.Name, err)
	}
	modified, err := decoded.Apply(original)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", domain.ErrInvalidPatch, patch.Op, patch.Path, err)
	}

	var doc domain.Document
	if err := json.Unmarshal(modified, &doc); err != nil {
		return nil, fmt.Errorf("%w: result is not a document: %v", domain.ErrInvalidPatch, err)
	}
	doc.Name = patch.Name
	doc.Version = patch.Version
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", domain.ErrInvalidPatch, patch.Op, patch.Path, err)
	}
	return &doc, nil
}

// Resolve returns the tree rooted at name with every child reference
// expanded. Latest references are re-evaluated on every call.
func (s *DocumentStore) Resolve(ctx context.Context, name string) (*domain.ResolvedDocument, error) {
	path, version, err := domain.ParseName(name)
	if err != nil {
		return nil, err
	}
	root, err := s.lookup(ctx, path, version)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrObjectNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, path, root, make(map[string]bool), 0)
}

func (s *DocumentStore) resolve(
	ctx context.Context,
	path string,
	doc *domain.Document,
	onBranch map[string]bool,
	depth int,
) (*domain.ResolvedDocument, error) {
	if depth > s.maxDepth {
		return nil, fmt.Errorf("%w: %s exceeds depth %d", domain.ErrCycle, path, s.maxDepth)
	}
	if onBranch[path] {
		return nil, fmt.Errorf("%w: %s references itself", domain.ErrCycle, path)
	}
	onBranch[path] = true
	defer delete(onBranch, path)

	resolved := &domain.ResolvedDocument{
		Document: doc.Clone(),
		Nodes:    make(map[string]*domain.ResolvedDocument, len(doc.Children)),
	}
	for _, id := range doc.ChildIDs() {
		childPath := domain.JoinName(path, id)
		child, err := s.lookup(ctx, childPath, doc.Children[id])
		if errors.Is(err, domain.ErrNotFound) {
			resolved.Nodes[id] = nil
			continue
		}
		if err != nil {
			return nil, err
		}
		node, err := s.resolve(ctx, childPath, child, onBranch, depth+1)
		if err != nil {
			return nil, err
		}
		resolved.Nodes[id] = node
	}
	return resolved, nil
}

// Render resolves name and serializes it.
func (s *DocumentStore) Render(ctx context.Context, name string) (string, error) {
	if s.renderer == nil {
		return "", ErrRendererNotConfigured
	}
	resolved, err := s.Resolve(ctx, name)
	if err != nil {
		return "", err
	}
	return s.renderer.Render(resolved)
}

// Export resolves name and writes it as a snapshot archive.
func (s *DocumentStore) Export(ctx context.Context, name string, w io.Writer) (string, error) {
	if s.exporter == nil {
		return "", ErrExporterNotConfigured
	}
	resolved, err := s.Resolve(ctx, name)
	if err != nil {
		return "", err
	}
	return s.exporter.Export(ctx, resolved, w)
}

// History returns the stored versions and recorded patches for path.
func (s *DocumentStore) History(ctx context.Context, path string) (*driving.History, error) {
	versions, err := s.versions.Versions(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("listing versions of %s: %w", path, err)
	}
	h := &driving.History{Path: path, Versions: versions}
	if s.history != nil {
		patches, err := s.history.Patches(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("listing patches of %s: %w", path, err)
		}
		h.Patches = patches
	}
	if len(h.Versions) == 0 && len(h.Patches) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrObjectNotFound, path)
	}
	return h, nil
}

// Paths lists every stored path.
func (s *DocumentStore) Paths(ctx context.Context) ([]string, error) {
	return s.versions.Paths(ctx)
}

func (s *DocumentStore) lookup(ctx context.Context, path string, version int64) (*domain.Document, error) {
	if domain.IsLatest(version) {
		return s.versions.LatestVersion(ctx, path)
	}
	return s.versions.GetVersion(ctx, path, version)
}
