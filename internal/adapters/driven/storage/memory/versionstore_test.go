package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/scenesync/internal/core/domain"
)

func testDoc(name string, version int64, color string) *domain.Document {
	return &domain.Document{
		Name:    name,
		ID:      domain.Basename(name),
		Type:    "a-box",
		Version: version,
		Props:   map[string]domain.Value{"color": domain.String(color)},
	}
}

func TestVersionStore_PutAndGet(t *testing.T) {
	store := NewVersionStore()
	ctx := context.Background()

	require.NoError(t, store.PutVersion(ctx, testDoc("/root/a", 1, "red")))
	require.NoError(t, store.PutVersion(ctx, testDoc("/root/a", 3, "blue")))
	require.NoError(t, store.PutVersion(ctx, testDoc("/root/a", 2, "green")))

	got, err := store.GetVersion(ctx, "/root/a", 2)
	require.NoError(t, err)
	color, _ := got.Props["color"].AsString()
	assert.Equal(t, "green", color)

	latest, err := store.LatestVersion(ctx, "/root/a")
	require.NoError(t, err)
	assert.Equal(t, int64(3), latest.Version)

	versions, err := store.Versions(ctx, "/root/a")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, versions)
}

func TestVersionStore_NotFound(t *testing.T) {
	store := NewVersionStore()
	ctx := context.Background()
	require.NoError(t, store.PutVersion(ctx, testDoc("/x", 1, "red")))

	_, err := store.GetVersion(ctx, "/x", 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.LatestVersion(ctx, "/missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	versions, err := store.Versions(ctx, "/missing")
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestVersionStore_ReplaceSameKey(t *testing.T) {
	store := NewVersionStore()
	ctx := context.Background()

	require.NoError(t, store.PutVersion(ctx, testDoc("/x", 2, "blue")))
	require.NoError(t, store.PutVersion(ctx, testDoc("/x", 2, "green")))

	got, err := store.GetVersion(ctx, "/x", 2)
	require.NoError(t, err)
	color, _ := got.Props["color"].AsString()
	assert.Equal(t, "green", color)
}

func TestVersionStore_Isolation(t *testing.T) {
	store := NewVersionStore()
	ctx := context.Background()

	doc := testDoc("/x", 1, "red")
	require.NoError(t, store.PutVersion(ctx, doc))
	doc.Props["color"] = domain.String("mutated")

	got, err := store.GetVersion(ctx, "/x", 1)
	require.NoError(t, err)
	got.Props["color"] = domain.String("mutated again")

	again, err := store.GetVersion(ctx, "/x", 1)
	require.NoError(t, err)
	color, _ := again.Props["color"].AsString()
	assert.Equal(t, "red", color)
}

func TestVersionStore_Paths(t *testing.T) {
	store := NewVersionStore()
	ctx := context.Background()
	require.NoError(t, store.PutVersion(ctx, testDoc("/root/b", 1, "red")))
	require.NoError(t, store.PutVersion(ctx, testDoc("/root", 1, "red")))

	paths, err := store.Paths(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/root", "/root/b"}, paths)
}

func TestVersionStore_Concurrency(t *testing.T) {
	store := NewVersionStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(v int64) {
			defer wg.Done()
			_ = store.PutVersion(ctx, testDoc("/x", v, "red"))
			_, _ = store.LatestVersion(ctx, "/x")
		}(int64(i))
	}
	wg.Wait()

	versions, err := store.Versions(ctx, "/x")
	require.NoError(t, err)
	assert.Len(t, versions, 20)
}

func TestPatchLog(t *testing.T) {
	log := NewPatchLog()
	ctx := context.Background()

	require.NoError(t, log.AppendPatch(ctx, &domain.Patch{Name: "/x", Version: 1, Op: domain.OpNew}))
	require.NoError(t, log.AppendPatch(ctx, &domain.Patch{Name: "/x", Version: 2, Op: domain.OpNoop}))
	require.NoError(t, log.AppendPatch(ctx, &domain.Patch{Name: "/y", Version: 1, Op: domain.OpNew}))

	patches, err := log.Patches(ctx, "/x")
	require.NoError(t, err)
	require.Len(t, patches, 2)
	assert.Equal(t, domain.OpNew, patches[0].Op)
	assert.Equal(t, domain.OpNoop, patches[1].Op)

	none, err := log.Patches(ctx, "/z")
	require.NoError(t, err)
	assert.Empty(t, none)
}
