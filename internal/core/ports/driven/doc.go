// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - VersionStore: Versioned document persistence
//   - EntryStore: The local writer's own log entries
//   - Fetcher: Retrieves remote log entries by writer and sequence
//   - VectorSource: The gossiped remote sequence vector
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - PatchHistory: Without it, History returns versions only.
//   - WatermarkStore: Without it, sequence state lives in memory only.
//   - Announcer: Without it, local entries are only found by polling peers.
//   - PatchListener: Local fan-out of applied patches.
//   - Renderer: Without it, Render is unavailable.
//   - SnapshotExporter: Without it, Export is unavailable.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
