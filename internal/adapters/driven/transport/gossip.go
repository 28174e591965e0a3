package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/scenesync/internal/core/domain"
	"github.com/custodia-labs/scenesync/internal/core/ports/driven"
	"github.com/custodia-labs/scenesync/internal/logger"
)

// maxStateBytes bounds a decoded vector state body.
const maxStateBytes = 1 << 20

var (
	_ driven.VectorSource = (*Gossip)(nil)
	_ driven.Announcer    = (*Gossip)(nil)
)

// VectorState is the body exchanged on /vector.
type VectorState struct {
	Writer    domain.WriterID            `json:"writer"`
	Addr      string                     `json:"addr,omitempty"`
	Vector    domain.SequenceVector      `json:"vector"`
	Directory map[domain.WriterID]string `json:"directory,omitempty"`
}

// AddressBook resolves a writer to the base URL serving its entries.
type AddressBook interface {
	Addr(writer domain.WriterID) (string, bool)
}

// Gossip keeps the merged remote state vector and the writer directory.
// It learns state by polling peers and by receiving pushes, and pushes
// its own state on Announce.
type Gossip struct {
	mu        sync.RWMutex
	self      domain.WriterID
	addr      string
	peers     []string
	client    *http.Client
	local     func() domain.SequenceVector
	remote    domain.SequenceVector
	directory map[domain.WriterID]string
	ownSeq    uint64
	onAdvance func()
}

// NewGossip creates a Gossip for self, advertised at addr.
// local supplies the local vector snapshot and may be nil.
// If client is nil, http.DefaultClient is used.
func NewGossip(self domain.WriterID, addr string, peers []string, local func() domain.SequenceVector, client *http.Client) *Gossip {
	if client == nil {
		client = http.DefaultClient
	}
	g := &Gossip{
		self:      self,
		addr:      strings.TrimRight(addr, "/"),
		client:    client,
		local:     local,
		remote:    make(domain.SequenceVector),
		directory: make(map[domain.WriterID]string),
	}
	for _, p := range peers {
		if p = strings.TrimRight(strings.TrimSpace(p), "/"); p != "" {
			g.peers = append(g.peers, p)
		}
	}
	return g
}

// OnAdvance registers fn to run whenever a merge advances the remote
// vector. fn must not block.
func (g *Gossip) OnAdvance(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onAdvance = fn
}

// RemoteVector returns a snapshot of the merged remote vector.
func (g *Gossip) RemoteVector() domain.SequenceVector {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.remote.Clone()
}

// Addr returns the base URL of writer's entry server.
func (g *Gossip) Addr(writer domain.WriterID) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if writer == g.self && g.addr != "" {
		return g.addr, true
	}
	addr, ok := g.directory[writer]
	return addr, ok
}

// State returns the state this node advertises.
func (g *Gossip) State() VectorState {
	var local domain.SequenceVector
	if g.local != nil {
		local = g.local()
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	vector := g.remote.Clone()
	vector.Merge(local)
	vector.Merge(domain.SequenceVector{g.self: g.ownSeq})

	directory := make(map[domain.WriterID]string, len(g.directory)+1)
	for w, a := range g.directory {
		directory[w] = a
	}
	if g.addr != "" {
		directory[g.self] = g.addr
	}

	return VectorState{
		Writer:    g.self,
		Addr:      g.addr,
		Vector:    vector,
		Directory: directory,
	}
}

// Merge folds a received state into the remote vector and directory.
// It reports whether the remote vector advanced.
func (g *Gossip) Merge(state VectorState) bool {
	g.mu.Lock()
	advanced := g.remote.Merge(state.Vector)
	for w, a := range state.Directory {
		if w == g.self || a == "" {
			continue
		}
		if _, known := g.directory[w]; !known {
			g.directory[w] = strings.TrimRight(a, "/")
		}
	}
	// A writer's own claim about its address wins over hearsay.
	if state.Writer != "" && state.Writer != g.self && state.Addr != "" {
		g.directory[state.Writer] = strings.TrimRight(state.Addr, "/")
	}
	onAdvance := g.onAdvance
	g.mu.Unlock()

	if advanced {
		logger.Debug("gossip: state from %s advanced remote vector", state.Writer)
		if onAdvance != nil {
			onAdvance()
		}
	}
	return advanced
}

// Poll fetches the state of every known peer and merges it.
func (g *Gossip) Poll(ctx context.Context) error {
	var errs []error
	for _, target := range g.targets() {
		state, err := g.pull(ctx, target)
		if err != nil {
			logger.Debug("gossip: polling %s: %v", target, err)
			errs = append(errs, err)
			continue
		}
		g.Merge(*state)
	}
	return errors.Join(errs...)
}

// Announce records seq as the newest local entry and pushes the local
// state to every known peer.
func (g *Gossip) Announce(ctx context.Context, seq uint64) error {
	g.mu.Lock()
	if seq > g.ownSeq {
		g.ownSeq = seq
	}
	g.mu.Unlock()

	state := g.State()
	var errs []error
	for _, target := range g.targets() {
		if err := g.push(ctx, target, state); err != nil {
			logger.Debug("gossip: pushing to %s: %v", target, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// targets returns configured peers plus every directory address, minus self.
func (g *Gossip) targets() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	add := func(a string) {
		if a == "" || a == g.addr || seen[a] {
			return
		}
		seen[a] = true
		out = append(out, a)
	}
	for _, p := range g.peers {
		add(p)
	}
	writers := make([]string, 0, len(g.directory))
	for w := range g.directory {
		writers = append(writers, string(w))
	}
	sort.Strings(writers)
	for _, w := range writers {
		add(g.directory[domain.WriterID(w)])
	}
	return out
}

func (g *Gossip) pull(ctx context.Context, base string) (*VectorState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/vector", nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting vector: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("requesting vector: status %d", resp.StatusCode)
	}

	var state VectorState
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxStateBytes)).Decode(&state); err != nil {
		return nil, fmt.Errorf("decoding vector: %w", err)
	}
	return &state, nil
}

func (g *Gossip) push(ctx context.Context, base string, state VectorState) error {
	body, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding vector: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/vector", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("pushing vector: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pushing vector: status %d", resp.StatusCode)
	}
	return nil
}
