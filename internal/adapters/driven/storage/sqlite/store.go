package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/scenesync/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/scenesync/internal/core/domain"
	"github.com/custodia-labs/scenesync/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// all persistence interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.scenesync/data/scene.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".scenesync", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "scene.db")

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// VersionStore returns a VersionStore backed by this store.
func (s *Store) VersionStore() driven.VersionStore {
	return &versionStore{store: s}
}

// PatchHistory returns a PatchHistory backed by this store.
func (s *Store) PatchHistory() driven.PatchHistory {
	return &patchHistory{store: s}
}

// EntryStore returns an EntryStore backed by this store.
func (s *Store) EntryStore() driven.EntryStore {
	return &entryStore{store: s}
}

// WatermarkStore returns a WatermarkStore backed by this store.
func (s *Store) WatermarkStore() driven.WatermarkStore {
	return &watermarkStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Version Store ====================

// versionStore implements driven.VersionStore.
type versionStore struct {
	store *Store
}

var _ driven.VersionStore = (*versionStore)(nil)

// PutVersion stores or replaces a document version.
func (s *versionStore) PutVersion(ctx context.Context, doc *domain.Document) error {
	if doc == nil {
		return domain.ErrInvalidDocument
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshalling document: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO versions (path, version, body)
		VALUES (?, ?, ?)
		ON CONFLICT(path, version) DO UPDATE SET
			body = excluded.body
	`, doc.Name, doc.Version, string(body))
	if err != nil {
		return fmt.Errorf("saving version: %w", err)
	}
	return nil
}

// GetVersion retrieves one exact version.
func (s *versionStore) GetVersion(ctx context.Context, path string, version int64) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT body FROM versions WHERE path = ? AND version = ?", path, version)
	return scanVersion(row)
}

// LatestVersion retrieves the highest version stored for path.
func (s *versionStore) LatestVersion(ctx context.Context, path string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT body FROM versions WHERE path = ?
		ORDER BY version DESC LIMIT 1
	`, path)
	return scanVersion(row)
}

// Versions returns the version keys for path in ascending order.
func (s *versionStore) Versions(ctx context.Context, path string) ([]int64, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT version FROM versions WHERE path = ? ORDER BY version", path)
	if err != nil {
		return nil, fmt.Errorf("querying versions: %w", err)
	}
	defer rows.Close()

	var versions []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// Paths returns every stored path, sorted.
func (s *versionStore) Paths(ctx context.Context) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT DISTINCT path FROM versions ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("querying paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scanning path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// scanVersion decodes a single version row.
func scanVersion(row *sql.Row) (*domain.Document, error) {
	var body string
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning version: %w", err)
	}

	var doc domain.Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("unmarshalling document: %w", err)
	}
	return &doc, nil
}

// ==================== Patch History ====================

// patchHistory implements driven.PatchHistory.
type patchHistory struct {
	store *Store
}

var _ driven.PatchHistory = (*patchHistory)(nil)

// AppendPatch records an accepted patch.
func (s *patchHistory) AppendPatch(ctx context.Context, patch *domain.Patch) error {
	if patch == nil {
		return domain.ErrInvalidPatch
	}
	body, err := patch.Encode()
	if err != nil {
		return fmt.Errorf("encoding patch: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx,
		"INSERT INTO patches (path, version, body) VALUES (?, ?, ?)",
		patch.Name, patch.Version, string(body))
	if err != nil {
		return fmt.Errorf("saving patch: %w", err)
	}
	return nil
}

// Patches returns the patches for path in insertion order.
func (s *patchHistory) Patches(ctx context.Context, path string) ([]domain.Patch, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT body FROM patches WHERE path = ? ORDER BY id", path)
	if err != nil {
		return nil, fmt.Errorf("querying patches: %w", err)
	}
	defer rows.Close()

	var patches []domain.Patch
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scanning patch: %w", err)
		}
		p, err := domain.DecodePatch([]byte(body))
		if err != nil {
			return nil, fmt.Errorf("decoding patch: %w", err)
		}
		patches = append(patches, *p)
	}
	return patches, rows.Err()
}

// ==================== Entry Store ====================

// entryStore implements driven.EntryStore.
type entryStore struct {
	store *Store
}

var _ driven.EntryStore = (*entryStore)(nil)

// PutEntry stores the payload for seq.
func (s *entryStore) PutEntry(ctx context.Context, seq uint64, payload []byte) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO entries (seq, payload)
		VALUES (?, ?)
		ON CONFLICT(seq) DO UPDATE SET
			payload = excluded.payload
	`, int64(seq), payload)
	if err != nil {
		return fmt.Errorf("saving entry: %w", err)
	}
	return nil
}

// GetEntry retrieves the payload for seq.
func (s *entryStore) GetEntry(ctx context.Context, seq uint64) ([]byte, error) {
	var payload []byte
	row := s.store.db.QueryRowContext(ctx, "SELECT payload FROM entries WHERE seq = ?", int64(seq))
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning entry: %w", err)
	}
	return payload, nil
}

// LastEntry returns the highest stored sequence number, or 0.
func (s *entryStore) LastEntry(ctx context.Context) (uint64, error) {
	var last int64
	row := s.store.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) FROM entries")
	if err := row.Scan(&last); err != nil {
		return 0, fmt.Errorf("scanning last entry: %w", err)
	}
	return uint64(last), nil
}

// ==================== Watermark Store ====================

// watermarkStore implements driven.WatermarkStore.
type watermarkStore struct {
	store *Store
}

var _ driven.WatermarkStore = (*watermarkStore)(nil)

// SaveWatermark records seq for writer. Watermarks never move backwards.
func (s *watermarkStore) SaveWatermark(ctx context.Context, writer domain.WriterID, seq uint64) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO watermarks (writer, seq)
		VALUES (?, ?)
		ON CONFLICT(writer) DO UPDATE SET
			seq = MAX(watermarks.seq, excluded.seq)
	`, string(writer), int64(seq))
	if err != nil {
		return fmt.Errorf("saving watermark: %w", err)
	}
	return nil
}

// LoadWatermarks returns all recorded watermarks.
func (s *watermarkStore) LoadWatermarks(ctx context.Context) (domain.SequenceVector, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT writer, seq FROM watermarks")
	if err != nil {
		return nil, fmt.Errorf("querying watermarks: %w", err)
	}
	defer rows.Close()

	vector := make(domain.SequenceVector)
	for rows.Next() {
		var writer string
		var seq int64
		if err := rows.Scan(&writer, &seq); err != nil {
			return nil, fmt.Errorf("scanning watermark: %w", err)
		}
		vector[domain.WriterID(writer)] = uint64(seq)
	}
	return vector, rows.Err()
}
