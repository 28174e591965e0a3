package driving

import "context"

// Scheduler runs recurring background tasks such as vector gossip and
// anti-entropy retries.
type Scheduler interface {
	// Start begins running scheduled tasks.
	// Blocks until context is cancelled or an error occurs.
	Start(ctx context.Context) error

	// Stop gracefully stops all running tasks.
	Stop() error
}
