package domain

import "time"

// ReconcilerState is the lifecycle state of a gap reconciler.
type ReconcilerState int

// Reconciler states.
const (
	ReconcilerIdle ReconcilerState = iota
	ReconcilerReconciling
	ReconcilerStopped
)

// String returns the state name.
func (s ReconcilerState) String() string {
	switch s {
	case ReconcilerIdle:
		return "idle"
	case ReconcilerReconciling:
		return "reconciling"
	case ReconcilerStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ReconcileStats counts the work done by a reconciler.
type ReconcileStats struct {
	// Passes is the number of completed reconciliation passes.
	Passes int

	// Fetched is the number of entries successfully retrieved.
	Fetched int

	// Applied is the number of entries applied to the document store.
	Applied int

	// Skipped counts entries abandoned after a fetch failure, a decode
	// failure or an apply failure.
	Skipped int

	// LastPass is when the last pass finished.
	LastPass time.Time
}
