package driving

import "github.com/custodia-labs/scenesync/internal/core/domain"

// SettingsService manages node configuration.
type SettingsService interface {
	// Get returns the effective configuration: stored values over defaults.
	Get() (*domain.Config, error)

	// Save persists cfg.
	Save(cfg *domain.Config) error

	// EnsureNodeID returns the stored node id, generating and storing one
	// when none is set.
	EnsureNodeID() (domain.WriterID, error)

	// GetDefaults returns the default configuration.
	GetDefaults() domain.Config
}
