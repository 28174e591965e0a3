package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Positive(t, cfg.GossipInterval)
	assert.Positive(t, cfg.MaxDepth)

	// Node id has no default.
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidInput)

	cfg.NodeID = "node-a"
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	base := DefaultConfig()
	base.NodeID = "node-a"

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown store", func(c *Config) { c.Store = "redis" }},
		{"zero gossip", func(c *Config) { c.GossipInterval = 0 }},
		{"zero timeout", func(c *Config) { c.FetchTimeout = 0 }},
		{"zero rate", func(c *Config) { c.FetchRate = 0 }},
		{"zero burst", func(c *Config) { c.FetchBurst = 0 }},
		{"zero depth", func(c *Config) { c.MaxDepth = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidInput)
		})
	}
}
