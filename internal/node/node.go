// Package node assembles a scenesync node from its configuration.
//
// Open builds the stores, services and adapters and seeds an empty scene.
// Run starts the entry server, the gossip and anti-entropy tasks, the
// reconciler and the spool watcher, and blocks until the context ends.
package node

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/scenesync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/scenesync/internal/adapters/driven/render"
	"github.com/custodia-labs/scenesync/internal/adapters/driven/seed"
	"github.com/custodia-labs/scenesync/internal/adapters/driven/snapshot"
	"github.com/custodia-labs/scenesync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/scenesync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/scenesync/internal/adapters/driven/transport"
	"github.com/custodia-labs/scenesync/internal/adapters/driving/spool"
	"github.com/custodia-labs/scenesync/internal/core/domain"
	"github.com/custodia-labs/scenesync/internal/core/ports/driven"
	"github.com/custodia-labs/scenesync/internal/core/ports/driving"
	"github.com/custodia-labs/scenesync/internal/core/services"
	"github.com/custodia-labs/scenesync/internal/logger"
)

const shutdownTimeout = 5 * time.Second

// Node is a fully wired scenesync node.
type Node struct {
	cfg       domain.Config
	configDir string

	settings   *services.SettingsService
	store      *sqlite.Store
	docs       *services.DocumentStore
	tracker    *services.SequenceTracker
	reconciler *services.GapReconciler
	publisher  *services.EditPublisher
	scheduler  *services.Scheduler

	gossip *transport.Gossip
	server *transport.Server
	spool  *spool.Watcher
}

// NewNodeID returns a fresh writer id of the form node-<8 hex>.
func NewNodeID() domain.WriterID {
	return domain.WriterID("node-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// Open loads the configuration in configDir and builds the node.
// An empty configDir means ~/.scenesync. A node on the memory store runs
// under a new writer id every time; only a persistent store keeps node.id.
func Open(ctx context.Context, configDir string) (*Node, error) {
	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	configDir = filepath.Dir(configStore.Path())

	settings := services.NewSettingsService(configStore, NewNodeID)
	cfg, err := settings.Get()
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if cfg.Store == domain.StoreMemory {
		// Memory sequences restart at 1; peers hold watermarks for the old id.
		if cfg.NodeID != "" {
			logger.Warn("ignoring node.id %s: the memory store needs a fresh writer id per run", cfg.NodeID)
		}
		cfg.NodeID = NewNodeID()
	} else {
		id, err := settings.EnsureNodeID()
		if err != nil {
			return nil, fmt.Errorf("assigning node id: %w", err)
		}
		cfg.NodeID = id
	}

	n, err := New(ctx, *cfg, configDir)
	if err != nil {
		return nil, err
	}
	n.settings = settings
	return n, nil
}

// New builds a node from cfg. Relative defaults are placed under configDir.
// With the memory store cfg.NodeID must not have been used by an earlier
// process.
func New(ctx context.Context, cfg domain.Config, configDir string) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(configDir, "data")
	}
	if cfg.SpoolDir == "" {
		cfg.SpoolDir = filepath.Join(configDir, "spool")
	}

	n := &Node{cfg: cfg, configDir: configDir}

	var (
		versions   driven.VersionStore
		history    driven.PatchHistory
		entries    driven.EntryStore
		watermarks driven.WatermarkStore
	)
	switch cfg.Store {
	case domain.StoreSQLite:
		store, err := sqlite.NewStore(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening store: %w", err)
		}
		n.store = store
		versions, history = store.VersionStore(), store.PatchHistory()
		entries, watermarks = store.EntryStore(), store.WatermarkStore()
	default:
		versions, history = memory.NewVersionStore(), memory.NewPatchLog()
		entries, watermarks = memory.NewEntryStore(), memory.NewWatermarkStore()
	}

	n.docs = services.NewDocumentStore(versions, history, render.NewRenderer(), snapshot.NewExporter(),
		services.DocumentStoreOptions{CheckPrev: cfg.CheckPrev, MaxDepth: cfg.MaxDepth})

	if err := n.seed(ctx); err != nil {
		_ = n.Close()
		return nil, err
	}

	n.tracker = services.NewSequenceTracker(cfg.NodeID, watermarks, entries)
	if err := n.tracker.Restore(ctx); err != nil {
		_ = n.Close()
		return nil, fmt.Errorf("restoring sequence state: %w", err)
	}

	feed := &patchFeed{}
	advertise := AdvertiseURL(cfg.AdvertiseAddr, cfg.ListenAddr)
	signer := transport.NewSigner(cfg.GroupKey)

	n.gossip = transport.NewGossip(cfg.NodeID, advertise, cfg.Peers, n.tracker.LocalSnapshot, nil)
	fetcher := transport.NewFetcher(n.gossip, signer, cfg.FetchRate, cfg.FetchBurst, cfg.FetchTimeout, nil)
	n.server = transport.NewServer(cfg.ListenAddr, cfg.NodeID, entries, signer, n.gossip)

	n.reconciler = services.NewGapReconciler(n.docs, n.tracker, fetcher, n.gossip, feed)
	n.gossip.OnAdvance(n.reconciler.Wake)
	n.publisher = services.NewEditPublisher(n.docs, n.tracker, entries, n.gossip, feed)

	n.scheduler = services.NewScheduler(time.Second)
	n.scheduler.Register(domain.TaskIDGossip, "Poll peer vectors", cfg.GossipInterval, n.gossip.Poll)
	n.scheduler.Register(domain.TaskIDAntiEntropy, "Retry missing entries", 3*cfg.GossipInterval,
		func(context.Context) error {
			n.reconciler.Wake()
			return nil
		})

	n.spool = spool.New(cfg.SpoolDir, n.publisher)
	return n, nil
}

func (n *Node) seed(ctx context.Context) error {
	docs := domain.DefaultScene()
	if n.cfg.SeedFile != "" {
		loaded, err := seed.Load(n.cfg.SeedFile)
		if err != nil {
			return err
		}
		docs = loaded
	}

	stored, err := n.docs.Seed(ctx, docs)
	if err != nil {
		return fmt.Errorf("seeding scene: %w", err)
	}
	if stored > 0 {
		logger.Info("seeded %d documents", stored)
	}
	return nil
}

// Run serves until ctx is cancelled, then shuts every component down.
func (n *Node) Run(ctx context.Context) error {
	if err := n.server.Start(); err != nil {
		return err
	}
	logger.Info("node %s advertising %s", n.cfg.NodeID, AdvertiseURL(n.cfg.AdvertiseAddr, n.cfg.ListenAddr))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 3)
	start := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("%s: %w", name, err)
			}
		}()
	}
	start("scheduler", n.scheduler.Start)
	start("reconciler", n.reconciler.Run)
	start("spool", n.spool.Run)
	n.reconciler.Wake()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	case err := <-n.server.Errors():
		runErr = fmt.Errorf("server: %w", err)
	}

	cancel()
	n.reconciler.Stop()
	_ = n.scheduler.Stop()
	wg.Wait()

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := n.server.Stop(shutdownCtx); err != nil {
		logger.Warn("%v", err)
	}
	return runErr
}

// Close releases the node's storage.
func (n *Node) Close() error {
	if n.store != nil {
		return n.store.Close()
	}
	return nil
}

// Config returns the effective configuration.
func (n *Node) Config() domain.Config { return n.cfg }

// Documents returns the document service.
func (n *Node) Documents() driving.DocumentService { return n.docs }

// Publisher returns the local edit publisher.
func (n *Node) Publisher() driving.Publisher { return n.publisher }

// Reconciler returns the gap reconciler.
func (n *Node) Reconciler() driving.Reconciler { return n.reconciler }

// Settings returns the settings service. It is nil for nodes built with New.
func (n *Node) Settings() driving.SettingsService {
	if n.settings == nil {
		return nil
	}
	return n.settings
}

// LocalVector returns the local sequence vector.
func (n *Node) LocalVector() domain.SequenceVector { return n.tracker.LocalSnapshot() }

// RemoteVector returns the gossiped remote vector.
func (n *Node) RemoteVector() domain.SequenceVector { return n.gossip.RemoteVector() }

// Tasks returns the scheduled background tasks.
func (n *Node) Tasks() []domain.ScheduledTask { return n.scheduler.Tasks() }

// AdvertiseURL returns the base URL peers should use. An explicit
// advertise address wins; otherwise it is derived from the listen
// address, with an empty host meaning loopback.
func AdvertiseURL(advertise, listen string) string {
	if advertise != "" {
		if !strings.Contains(advertise, "://") {
			advertise = "http://" + advertise
		}
		return strings.TrimRight(advertise, "/")
	}
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return ""
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// patchFeed is the local fan-out hook for applied patches.
type patchFeed struct{}

func (patchFeed) PatchApplied(_ context.Context, patch *domain.Patch) {
	logger.Debug("applied %s %s v=%d", patch.Op, patch.Name, patch.Version)
}
