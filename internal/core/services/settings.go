package services

import (
	"fmt"
	"time"

	"github.com/custodia-labs/scenesync/internal/core/domain"
	"github.com/custodia-labs/scenesync/internal/core/ports/driven"
	"github.com/custodia-labs/scenesync/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyNodeID         = "node.id"
	keyDataDir        = "node.data_dir"
	keyStore          = "node.store"
	keyListen         = "network.listen"
	keyAdvertise      = "network.advertise"
	keyPeers          = "network.peers"
	keyGroupKey       = "network.group_key"
	keyGossipInterval = "sync.gossip_interval"
	keyFetchTimeout   = "sync.fetch_timeout"
	keyFetchRate      = "sync.fetch_rate"
	keyFetchBurst     = "sync.fetch_burst"
	keySeedFile       = "scene.seed_file"
	keySpoolDir       = "scene.spool_dir"
	keyCheckPrev      = "store.check_prev"
	keyMaxDepth       = "store.max_depth"
)

// SettingsService maps the flat configuration store onto domain.Config.
type SettingsService struct {
	configStore driven.ConfigStore
	newNodeID   func() domain.WriterID
}

// NewSettingsService creates a new settings service. newNodeID generates
// an id when none is stored.
func NewSettingsService(configStore driven.ConfigStore, newNodeID func() domain.WriterID) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		newNodeID:   newNodeID,
	}
}

// Get retrieves the effective configuration.
func (s *SettingsService) Get() (*domain.Config, error) {
	defaults := domain.DefaultConfig()

	gossip, err := s.getDuration(keyGossipInterval, defaults.GossipInterval)
	if err != nil {
		return nil, err
	}
	timeout, err := s.getDuration(keyFetchTimeout, defaults.FetchTimeout)
	if err != nil {
		return nil, err
	}

	cfg := &domain.Config{
		NodeID:         domain.WriterID(s.configStore.GetString(keyNodeID)),
		DataDir:        s.configStore.GetString(keyDataDir),
		Store:          domain.StoreBackend(s.getString(keyStore, string(defaults.Store))),
		ListenAddr:     s.getString(keyListen, defaults.ListenAddr),
		AdvertiseAddr:  s.configStore.GetString(keyAdvertise),
		Peers:          s.configStore.GetStringSlice(keyPeers),
		GroupKey:       s.configStore.GetString(keyGroupKey),
		GossipInterval: gossip,
		FetchTimeout:   timeout,
		FetchRate:      s.getFloat(keyFetchRate, defaults.FetchRate),
		FetchBurst:     s.getInt(keyFetchBurst, defaults.FetchBurst),
		SeedFile:       s.configStore.GetString(keySeedFile),
		SpoolDir:       s.configStore.GetString(keySpoolDir),
		CheckPrev:      s.getBool(keyCheckPrev, defaults.CheckPrev),
		MaxDepth:       s.getInt(keyMaxDepth, defaults.MaxDepth),
	}
	return cfg, nil
}

// Save persists cfg.
func (s *SettingsService) Save(cfg *domain.Config) error {
	values := []struct {
		key   string
		value any
	}{
		{keyNodeID, string(cfg.NodeID)},
		{keyDataDir, cfg.DataDir},
		{keyStore, string(cfg.Store)},
		{keyListen, cfg.ListenAddr},
		{keyAdvertise, cfg.AdvertiseAddr},
		{keyPeers, cfg.Peers},
		{keyGroupKey, cfg.GroupKey},
		{keyGossipInterval, cfg.GossipInterval.String()},
		{keyFetchTimeout, cfg.FetchTimeout.String()},
		{keyFetchRate, cfg.FetchRate},
		{keyFetchBurst, cfg.FetchBurst},
		{keySeedFile, cfg.SeedFile},
		{keySpoolDir, cfg.SpoolDir},
		{keyCheckPrev, cfg.CheckPrev},
		{keyMaxDepth, cfg.MaxDepth},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// EnsureNodeID returns the stored node id, generating one if needed.
func (s *SettingsService) EnsureNodeID() (domain.WriterID, error) {
	if id := s.configStore.GetString(keyNodeID); id != "" {
		return domain.WriterID(id), nil
	}
	if s.newNodeID == nil {
		return "", fmt.Errorf("%w: node id not configured", domain.ErrInvalidInput)
	}
	id := s.newNodeID()
	if err := s.configStore.Set(keyNodeID, string(id)); err != nil {
		return "", fmt.Errorf("save %s: %w", keyNodeID, err)
	}
	return id, nil
}

// GetDefaults returns the default configuration.
func (s *SettingsService) GetDefaults() domain.Config {
	return domain.DefaultConfig()
}

func (s *SettingsService) getString(key, defaultVal string) string {
	if val := s.configStore.GetString(key); val != "" {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	raw := s.configStore.GetString(key)
	if raw == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
	}
	return d, nil
}
