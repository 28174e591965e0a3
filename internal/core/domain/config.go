package domain

import (
	"fmt"
	"time"
)

// StoreBackend selects where documents and sequence state are kept.
type StoreBackend string

// Store backends.
const (
	StoreMemory StoreBackend = "memory"
	StoreSQLite StoreBackend = "sqlite"
)

// Config holds the runtime settings of a node.
type Config struct {
	// NodeID is the local writer id.
	NodeID WriterID

	// DataDir holds the SQLite database and exported snapshots.
	DataDir string

	// Store selects the storage backend.
	Store StoreBackend

	// ListenAddr is the HTTP listen address.
	ListenAddr string

	// AdvertiseAddr is the base URL peers use to reach this node.
	AdvertiseAddr string

	// Peers are base URLs of other nodes in the group.
	Peers []string

	// GroupKey is the shared secret used to sign entries. Empty disables
	// signing.
	GroupKey string

	// GossipInterval is how often peers are polled for their vectors.
	GossipInterval time.Duration

	// FetchTimeout bounds a single entry fetch.
	FetchTimeout time.Duration

	// FetchRate limits outgoing fetches per second.
	FetchRate float64

	// FetchBurst is the burst size of the fetch rate limiter.
	FetchBurst int

	// SeedFile is an optional YAML file of initial documents.
	SeedFile string

	// SpoolDir is an optional directory watched for patch files.
	SpoolDir string

	// CheckPrev makes the store reject patches whose prev does not match
	// the latest stored version.
	CheckPrev bool

	// MaxDepth bounds resolution depth.
	MaxDepth int
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Store:          StoreMemory,
		ListenAddr:     ":6363",
		GossipInterval: 10 * time.Second,
		FetchTimeout:   4 * time.Second,
		FetchRate:      50,
		FetchBurst:     10,
		MaxDepth:       64,
	}
}

// Validate checks c for values the node cannot run with.
func (c Config) Validate() error {
	if c.NodeID == "" {
		return fmt.Errorf("%w: node id is required", ErrInvalidInput)
	}
	switch c.Store {
	case StoreMemory, StoreSQLite:
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidInput, c.Store)
	}
	if c.GossipInterval <= 0 {
		return fmt.Errorf("%w: gossip interval must be positive", ErrInvalidInput)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("%w: fetch timeout must be positive", ErrInvalidInput)
	}
	if c.FetchRate <= 0 || c.FetchBurst <= 0 {
		return fmt.Errorf("%w: fetch rate and burst must be positive", ErrInvalidInput)
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("%w: max depth must be positive", ErrInvalidInput)
	}
	return nil
}
