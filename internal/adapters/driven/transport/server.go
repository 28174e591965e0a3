package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/custodia-labs/scenesync/internal/core/domain"
	"github.com/custodia-labs/scenesync/internal/core/ports/driven"
	"github.com/custodia-labs/scenesync/internal/logger"
)

// Server serves the local writer's entries and vector state.
type Server struct {
	mu       sync.Mutex
	addr     string
	self     domain.WriterID
	entries  driven.EntryStore
	signer   *Signer
	gossip   *Gossip
	server   *http.Server
	listener net.Listener
	errChan  chan error
}

// NewServer creates a Server listening on addr once started.
func NewServer(addr string, self domain.WriterID, entries driven.EntryStore, signer *Signer, gossip *Gossip) *Server {
	if signer == nil {
		signer = NewSigner("")
	}
	return &Server{
		addr:    addr,
		self:    self,
		entries: entries,
		signer:  signer,
		gossip:  gossip,
		errChan: make(chan error, 1),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /entries/{writer}/{seq}", s.handleEntry)
	mux.HandleFunc("GET /vector", s.handleGetVector)
	mux.HandleFunc("POST /vector", s.handlePostVector)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case s.errChan <- err:
			default:
			}
		}
	}()

	logger.Info("serving entries on %s", listener.Addr())
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Errors reports a failure of the background serve loop.
func (s *Server) Errors() <-chan error {
	return s.errChan
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

func (s *Server) handleEntry(w http.ResponseWriter, r *http.Request) {
	writer := domain.WriterID(r.PathValue("writer"))
	if writer != s.self {
		http.Error(w, "not the writer of this entry", http.StatusNotFound)
		return
	}

	seq, err := strconv.ParseUint(r.PathValue("seq"), 10, 64)
	if err != nil || seq == 0 {
		http.Error(w, "invalid sequence number", http.StatusBadRequest)
		return
	}

	payload, err := s.entries.GetEntry(r.Context(), seq)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "no such entry", http.StatusNotFound)
			return
		}
		logger.Warn("serving %s: %v", domain.EntryName(writer, seq), err)
		http.Error(w, "entry unavailable", http.StatusInternalServerError)
		return
	}

	if err := s.signer.Sign(w.Header(), writer, seq, payload); err != nil {
		logger.Warn("signing %s: %v", domain.EntryName(writer, seq), err)
		http.Error(w, "entry unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

func (s *Server) handleGetVector(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.gossip.State()); err != nil {
		logger.Warn("encoding vector state: %v", err)
	}
}

func (s *Server) handlePostVector(w http.ResponseWriter, r *http.Request) {
	var state VectorState
	if err := json.NewDecoder(io.LimitReader(r.Body, maxStateBytes)).Decode(&state); err != nil {
		http.Error(w, "malformed vector state", http.StatusBadRequest)
		return
	}
	s.gossip.Merge(state)
	w.WriteHeader(http.StatusNoContent)
}
