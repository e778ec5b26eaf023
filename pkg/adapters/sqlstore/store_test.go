package sqlstore_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/catset/pkg/adapters/sqlstore"
	"github.com/aretw0/catset/pkg/core"
)

func openSQLite(t *testing.T) *sqlstore.Store {
	t.Helper()
	ctx := context.Background()
	store, err := sqlstore.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "catset.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Initialize(ctx))
	// Initialize is idempotent.
	require.NoError(t, store.Initialize(ctx))
	return store
}

func TestStore_GetSet(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)

	snap, err := store.Get(ctx, core.DefaultDataset)
	require.NoError(t, err)
	assert.False(t, snap.Exists)

	require.NoError(t, store.Set(ctx, core.DefaultDataset, core.Data{"entries": []any{"a"}}))
	require.NoError(t, store.Set(ctx, core.DefaultDataset, core.Data{"entries": []any{"a", "b"}}))

	snap, err = store.Get(ctx, core.DefaultDataset)
	require.NoError(t, err)
	assert.True(t, snap.Exists)
	assert.Equal(t, "2", snap.Version)
	assert.Equal(t, []any{"a", "b"}, snap.Data["entries"])
}

func TestStore_SetIfVersion(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)
	id := core.DefaultDataset

	require.NoError(t, store.SetIfVersion(ctx, id, core.Data{"n": 1.0}, ""))
	assert.ErrorIs(t, store.SetIfVersion(ctx, id, core.Data{"n": 2.0}, ""), core.ErrConflict)
	assert.ErrorIs(t, store.SetIfVersion(ctx, id, core.Data{"n": 2.0}, "7"), core.ErrConflict)
	assert.ErrorIs(t, store.SetIfVersion(ctx, id, core.Data{"n": 2.0}, "abc"), core.ErrConflict)
	require.NoError(t, store.SetIfVersion(ctx, id, core.Data{"n": 2.0}, "1"))

	snap, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2.0, snap.Data["n"])
	assert.Equal(t, "2", snap.Version)
}

func TestStore_AtomicAggregator(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)
	agg, err := core.NewAggregator(store, core.WithMaxRetries(100))
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, agg.AppendEntry(ctx, core.DefaultDataset, core.BuildEntry("x ;", []string{"I", "S"}, "c")))
		}()
	}
	wg.Wait()

	entries, err := agg.Entries(ctx, core.DefaultDataset)
	require.NoError(t, err)
	assert.Len(t, entries, writers)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := sqlstore.Open(context.Background(), "oracle", "")
	assert.Error(t, err)
}
