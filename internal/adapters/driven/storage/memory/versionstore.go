package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/scenesync/internal/core/domain"
	"github.com/custodia-labs/scenesync/internal/core/ports/driven"
)

// Ensure VersionStore implements the interface.
var _ driven.VersionStore = (*VersionStore)(nil)

// VersionStore is an in-memory implementation of driven.VersionStore.
// Documents are copied on the way in and out.
type VersionStore struct {
	mu   sync.RWMutex
	docs map[string]map[int64]domain.Document
}

// NewVersionStore creates a new in-memory version store.
func NewVersionStore() *VersionStore {
	return &VersionStore{
		docs: make(map[string]map[int64]domain.Document),
	}
}

// PutVersion stores or replaces a document version.
func (s *VersionStore) PutVersion(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	versions, ok := s.docs[doc.Name]
	if !ok {
		versions = make(map[int64]domain.Document)
		s.docs[doc.Name] = versions
	}
	versions[doc.Version] = doc.Clone()
	return nil
}

// GetVersion retrieves one exact version.
func (s *VersionStore) GetVersion(_ context.Context, path string, version int64) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[path][version]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := doc.Clone()
	return &cp, nil
}

// LatestVersion retrieves the highest version stored for path.
func (s *VersionStore) LatestVersion(_ context.Context, path string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions, ok := s.docs[path]
	if !ok || len(versions) == 0 {
		return nil, domain.ErrNotFound
	}
	var (
		latest domain.Document
		found  bool
	)
	for v, doc := range versions {
		if !found || v > latest.Version {
			latest, found = doc, true
		}
	}
	cp := latest.Clone()
	return &cp, nil
}

// Versions returns the stored version keys for path, ascending.
func (s *VersionStore) Versions(_ context.Context, path string) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions := make([]int64, 0, len(s.docs[path]))
	for v := range s.docs[path] {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return versions, nil
}

// Paths returns every stored path, sorted.
func (s *VersionStore) Paths(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paths := make([]string, 0, len(s.docs))
	for p := range s.docs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// Ensure PatchLog implements the interface.
var _ driven.PatchHistory = (*PatchLog)(nil)

// PatchLog is an in-memory implementation of driven.PatchHistory.
type PatchLog struct {
	mu      sync.RWMutex
	patches map[string][]domain.Patch
}

// NewPatchLog creates a new in-memory patch log.
func NewPatchLog() *PatchLog {
	return &PatchLog{
		patches: make(map[string][]domain.Patch),
	}
}

// AppendPatch records a patch.
func (l *PatchLog) AppendPatch(_ context.Context, patch *domain.Patch) error {
	cp := *patch
	cp.Value = append([]byte(nil), patch.Value...)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.patches[patch.Name] = append(l.patches[patch.Name], cp)
	return nil
}

// Patches returns the patches recorded for path in order.
func (l *PatchLog) Patches(_ context.Context, path string) ([]domain.Patch, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	patches := make([]domain.Patch, len(l.patches[path]))
	copy(patches, l.patches[path])
	return patches, nil
}
