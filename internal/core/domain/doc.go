// Package domain defines the core entities for scenesync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: One materialised version of a scene node
//   - Value: A payload property (null, bool, number, string, list, map)
//   - Patch: A single mutation of one document path
//   - SequenceVector: Writer to highest sequence number
//   - ResolvedDocument: A document with its children expanded
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
