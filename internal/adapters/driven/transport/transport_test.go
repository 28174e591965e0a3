package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/scenesync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/scenesync/internal/core/domain"
)

// testNode is one writer's transport stack served by httptest.
type testNode struct {
	self    domain.WriterID
	entries *memory.EntryStore
	gossip  *Gossip
	server  *Server
	http    *httptest.Server
}

func newTestNode(t *testing.T, self domain.WriterID, groupKey string, peers ...string) *testNode {
	t.Helper()

	n := &testNode{self: self, entries: memory.NewEntryStore()}
	// handler is set once the server URL is known.
	var handler http.Handler
	n.http = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(n.http.Close)

	n.gossip = NewGossip(self, n.http.URL, peers, nil, n.http.Client())
	n.server = NewServer("127.0.0.1:0", self, n.entries, NewSigner(groupKey), n.gossip)
	handler = n.server.Handler()
	return n
}

func (n *testNode) publish(t *testing.T, seq uint64, payload string) {
	t.Helper()
	require.NoError(t, n.entries.PutEntry(context.Background(), seq, []byte(payload)))
}
