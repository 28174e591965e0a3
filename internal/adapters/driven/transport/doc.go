// Package transport carries sequence-numbered entries and state vectors
// between writers over HTTP.
//
// Each node serves its own published entries at
// GET /entries/{writer}/{seq} and its known state at GET /vector. Peers
// push state with POST /vector after publishing.
//
// Components:
//   - Server: serves entries and vector state
//   - Fetcher: driven.Fetcher with rate limiting and per-request timeouts
//   - Gossip: driven.VectorSource and driven.Announcer over peer polling
//   - Signer: entry authenticity (HS256 JWT when a group key is set,
//     otherwise a bare SHA-256 digest)
package transport
