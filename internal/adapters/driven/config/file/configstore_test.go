package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*ConfigStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	return store, dir
}

func TestNewConfigStore_Path(t *testing.T) {
	store, dir := newTestStore(t)
	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())
}

func TestNewConfigStore_CreatesNestedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())
}

func TestNewConfigStore_CorruptedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[[[ not toml"), 0600))

	_, err := NewConfigStore(dir)
	assert.Error(t, err)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.Set("node.id", "alice"))
	require.NoError(t, store.Set("sync.fetch_burst", 12))
	require.NoError(t, store.Set("sync.fetch_rate", 2.5))
	require.NoError(t, store.Set("store.check_prev", true))
	require.NoError(t, store.Set("network.peers", []string{"http://a", "http://b"}))

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"string", store.GetString("node.id"), "alice"},
		{"int", store.GetInt("sync.fetch_burst"), 12},
		{"float", store.GetFloat("sync.fetch_rate"), 2.5},
		{"int as float", store.GetFloat("sync.fetch_burst"), 12.0},
		{"bool", store.GetBool("store.check_prev"), true},
		{"slice", store.GetStringSlice("network.peers"), []string{"http://a", "http://b"}},
		{"missing string", store.GetString("missing"), ""},
		{"missing int", store.GetInt("missing"), 0},
		{"missing float", store.GetFloat("missing"), 0.0},
		{"missing bool", store.GetBool("missing"), false},
		{"wrong type string", store.GetString("sync.fetch_burst"), ""},
		{"wrong type int", store.GetInt("node.id"), 0},
		{"wrong type float", store.GetFloat("node.id"), 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}

	assert.Nil(t, store.GetStringSlice("missing"))
}

func TestConfigStore_ReloadFromDisk(t *testing.T) {
	store, dir := newTestStore(t)

	require.NoError(t, store.Set("node.id", "alice"))
	require.NoError(t, store.Set("sync.fetch_burst", 7))
	require.NoError(t, store.Set("sync.fetch_rate", 0.5))
	require.NoError(t, store.Set("network.peers", []string{"http://peer:6363"}))

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "alice", reloaded.GetString("node.id"))
	assert.Equal(t, 7, reloaded.GetInt("sync.fetch_burst"))
	assert.Equal(t, 0.5, reloaded.GetFloat("sync.fetch_rate"))
	assert.Equal(t, []string{"http://peer:6363"}, reloaded.GetStringSlice("network.peers"))
}

func TestConfigStore_WritesNestedTables(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.Set("sync.gossip_interval", "5s"))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[sync]")
	assert.Contains(t, string(data), "gossip_interval")
}

func TestConfigStore_ReadsHandWrittenFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[node]
id = "bob"
store = "sqlite"

[network]
peers = ["http://a:6363"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "bob", store.GetString("node.id"))
	assert.Equal(t, "sqlite", store.GetString("node.store"))
	assert.Equal(t, []string{"http://a:6363"}, store.GetStringSlice("network.peers"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Save())

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_LoadMissingFileResets(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Set("node.id", "alice"))
	require.NoError(t, os.Remove(store.Path()))

	require.NoError(t, store.Load())
	_, ok := store.Get("node.id")
	assert.False(t, ok)
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, _ := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("sync.fetch_burst", n)
			_ = store.GetInt("sync.fetch_burst")
		}(i)
	}
	wg.Wait()

	_, ok := store.Get("sync.fetch_burst")
	assert.True(t, ok)
}

func TestNestMap(t *testing.T) {
	flat := map[string]any{
		"node.id":       "alice",
		"sync.rate":     1.0,
		"sync.deep.key": true,
		"top":           "x",
	}

	nested := nestMap(flat)

	assert.Equal(t, "x", nested["top"])
	node, ok := nested["node"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice", node["id"])
	syncTable, ok := nested["sync"].(map[string]any)
	require.True(t, ok)
	deep, ok := syncTable["deep"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, deep["key"])

	assert.Equal(t, flat, flattenMap(nested, ""))
}
