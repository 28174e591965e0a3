package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/scenesync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/scenesync/internal/core/domain"
)

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	cfg, err := service.Get()
	require.NoError(t, err)

	defaults := domain.DefaultConfig()
	assert.Equal(t, defaults.Store, cfg.Store)
	assert.Equal(t, defaults.ListenAddr, cfg.ListenAddr)
	assert.Equal(t, defaults.GossipInterval, cfg.GossipInterval)
	assert.Equal(t, defaults.FetchTimeout, cfg.FetchTimeout)
	assert.InDelta(t, defaults.FetchRate, cfg.FetchRate, 1e-9)
	assert.Equal(t, defaults.FetchBurst, cfg.FetchBurst)
	assert.Equal(t, defaults.MaxDepth, cfg.MaxDepth)
	assert.Empty(t, cfg.NodeID)
	assert.Equal(t, defaults, service.GetDefaults())
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("node.id", "node-a")
	_ = store.Set("node.store", "sqlite")
	_ = store.Set("network.peers", []any{"http://10.0.0.2:6363"})
	_ = store.Set("sync.gossip_interval", "2s")
	_ = store.Set("sync.fetch_rate", int64(5))
	_ = store.Set("sync.fetch_burst", int64(1))
	_ = store.Set("store.check_prev", true)

	cfg, err := NewSettingsService(store, nil).Get()
	require.NoError(t, err)

	assert.Equal(t, domain.WriterID("node-a"), cfg.NodeID)
	assert.Equal(t, domain.StoreSQLite, cfg.Store)
	assert.Equal(t, []string{"http://10.0.0.2:6363"}, cfg.Peers)
	assert.Equal(t, 2*time.Second, cfg.GossipInterval)
	assert.InDelta(t, 5.0, cfg.FetchRate, 1e-9)
	assert.Equal(t, 1, cfg.FetchBurst)
	assert.True(t, cfg.CheckPrev)
	assert.NoError(t, cfg.Validate())
}

func TestSettingsService_Get_BadDuration(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("sync.fetch_timeout", "soon")

	_, err := NewSettingsService(store, nil).Get()
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsService_SaveRoundTrip(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	cfg := domain.DefaultConfig()
	cfg.NodeID = "node-b"
	cfg.Peers = []string{"http://peer:6363"}
	cfg.GossipInterval = 3 * time.Second
	cfg.FetchRate = 7.5
	cfg.SpoolDir = "/tmp/spool"
	require.NoError(t, service.Save(&cfg))

	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, cfg, *got)
}

func TestSettingsService_EnsureNodeID(t *testing.T) {
	store := memory.NewConfigStore()
	calls := 0
	service := NewSettingsService(store, func() domain.WriterID {
		calls++
		return "node-1234abcd"
	})

	id, err := service.EnsureNodeID()
	require.NoError(t, err)
	assert.Equal(t, domain.WriterID("node-1234abcd"), id)

	id, err = service.EnsureNodeID()
	require.NoError(t, err)
	assert.Equal(t, domain.WriterID("node-1234abcd"), id)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "node-1234abcd", store.GetString("node.id"))
}

func TestSettingsService_EnsureNodeID_NoGenerator(t *testing.T) {
	_, err := NewSettingsService(memory.NewConfigStore(), nil).EnsureNodeID()
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
