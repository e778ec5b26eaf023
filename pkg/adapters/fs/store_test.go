package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/catset/pkg/adapters/fs"
	"github.com/aretw0/catset/pkg/core"
	"github.com/aretw0/catset/pkg/git"
)

var dataset = core.DefaultDataset

func newStore(t *testing.T, cfg fs.Config) *fs.Store {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = t.TempDir()
	}
	store, err := fs.NewStore(cfg)
	require.NoError(t, err)
	require.NoError(t, store.Initialize(context.Background()))
	return store
}

func TestStore_GetMissing(t *testing.T) {
	store := newStore(t, fs.Config{Gitless: true})

	snap, err := store.Get(context.Background(), dataset)
	require.NoError(t, err)
	assert.False(t, snap.Exists)
	assert.Empty(t, snap.Version)
}

func TestStore_RoundTrip(t *testing.T) {
	for _, format := range []string{".json", ".yaml", "yml"} {
		t.Run(format, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t, fs.Config{Gitless: true, Format: format})

			data := core.Data{
				"entries": []any{
					map[string]any{"code": "int x = NUM_ ;", "CAT": []any{"a", "b"}, "comment": "c"},
				},
				"owner": "lab",
			}
			require.NoError(t, store.Set(ctx, dataset, data))

			snap, err := store.Get(ctx, dataset)
			require.NoError(t, err)
			assert.True(t, snap.Exists)
			assert.Len(t, snap.Version, 16)
			assert.Equal(t, data, snap.Data)

			ext := "." + strings.TrimPrefix(format, ".")
			_, err = os.Stat(filepath.Join(store.Path, "datasets", "customData"+ext))
			assert.NoError(t, err)
		})
	}
}

func TestStore_SetIfVersion(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, fs.Config{Gitless: true})

	require.NoError(t, store.SetIfVersion(ctx, dataset, core.Data{"n": 1.0}, ""))
	assert.ErrorIs(t, store.SetIfVersion(ctx, dataset, core.Data{"n": 2.0}, ""), core.ErrConflict)

	snap, err := store.Get(ctx, dataset)
	require.NoError(t, err)
	require.NoError(t, store.SetIfVersion(ctx, dataset, core.Data{"n": 2.0}, snap.Version))
	assert.ErrorIs(t, store.SetIfVersion(ctx, dataset, core.Data{"n": 3.0}, snap.Version), core.ErrConflict)

	snap, err = store.Get(ctx, dataset)
	require.NoError(t, err)
	assert.Equal(t, 2.0, snap.Data["n"])
}

func TestStore_ReadOnly(t *testing.T) {
	store := newStore(t, fs.Config{Gitless: true, ReadOnly: true})
	assert.ErrorIs(t, store.Set(context.Background(), dataset, core.Data{}), core.ErrReadOnly)
}

func TestStore_InvalidIDs(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, fs.Config{Gitless: true})

	for _, id := range []core.DocumentID{
		{Collection: "", Name: "x"},
		{Collection: "datasets", Name: "../escape"},
		{Collection: "..", Name: "x"},
		{Collection: ".catset", Name: "store"},
		{Collection: ".git", Name: "config"},
	} {
		_, err := store.Get(ctx, id)
		assert.Error(t, err, id.String())
		assert.Error(t, store.Set(ctx, id, core.Data{}), id.String())
	}
}

func TestStore_LockTimeout(t *testing.T) {
	dir := t.TempDir()
	store := newStore(t, fs.Config{Path: dir, Gitless: true, LockTimeout: 50 * time.Millisecond})

	// Another process holds the lock.
	holder := git.NewClient(dir, filepath.Join(".catset", "store.lock"), nil)
	unlock, err := holder.Lock(context.Background())
	require.NoError(t, err)
	defer unlock()

	err = store.Set(context.Background(), dataset, core.Data{})
	assert.ErrorIs(t, err, git.ErrLockTimeout)
}

func TestStore_AtomicAppendsAcrossStores(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping stress test in short mode")
	}
	dir := t.TempDir()
	ctx := context.Background()

	// Two store handles over the same directory behave like two processes.
	const perStore = 10
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		store := newStore(t, fs.Config{Path: dir, Gitless: true})
		agg, err := core.NewAggregator(store, core.WithMaxRetries(100))
		require.NoError(t, err)

		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perStore; j++ {
				assert.NoError(t, agg.AppendEntry(ctx, dataset, core.BuildEntry("x ;", []string{"I", "S"}, "c")))
			}
		}()
	}
	wg.Wait()

	agg, err := core.NewAggregator(newStore(t, fs.Config{Path: dir, Gitless: true}))
	require.NoError(t, err)
	entries, err := agg.Entries(ctx, dataset)
	require.NoError(t, err)
	assert.Len(t, entries, 2*perStore)
}

func TestStore_GitHistory(t *testing.T) {
	if !git.IsInstalled() {
		t.Skip("git not installed")
	}
	ctx := context.Background()
	store := newStore(t, fs.Config{AutoInit: true})

	agg, err := core.NewAggregator(store)
	require.NoError(t, err)
	require.NoError(t, agg.AppendEntry(ctx, dataset, core.BuildEntry("x ;", []string{"I", "S"}, "first")))

	reasonCtx := context.WithValue(ctx, core.ChangeReasonKey, "append entry to datasets/customData")
	require.NoError(t, agg.AppendEntry(reasonCtx, dataset, core.BuildEntry("y ;", []string{"I", "S"}, "second")))

	commits, err := store.History(ctx, dataset, 0)
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, "feat(dataset): append entry to datasets/customData", commits[0].Subject)
	assert.Equal(t, "feat(dataset): update datasets/customData", commits[1].Subject)

	ignore, err := os.ReadFile(filepath.Join(store.Path, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(ignore), ".catset/")
}

func TestStore_FailedCommitRestoresDocument(t *testing.T) {
	if !git.IsInstalled() {
		t.Skip("git not installed")
	}
	if runtime.GOOS == "windows" {
		t.Skip("shell hooks")
	}
	ctx := context.Background()
	store := newStore(t, fs.Config{AutoInit: true})
	hook := filepath.Join(store.Path, ".git", "hooks", "pre-commit")
	require.NoError(t, os.MkdirAll(filepath.Dir(hook), 0755))
	failCommits := func() { require.NoError(t, os.WriteFile(hook, []byte("#!/bin/sh\nexit 1\n"), 0755)) }

	agg, err := core.NewAggregator(store)
	require.NoError(t, err)
	first := core.BuildEntry("x ;", []string{"I", "S"}, "first")
	second := core.BuildEntry("y ;", []string{"I", "S"}, "second")

	// New document: the file must not survive the failed commit.
	failCommits()
	err = agg.AppendEntry(ctx, dataset, first)
	var storeErr *core.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, core.OpWrite, storeErr.Op)
	snap, err := store.Get(ctx, dataset)
	require.NoError(t, err)
	assert.False(t, snap.Exists)

	require.NoError(t, os.Remove(hook))
	require.NoError(t, agg.AppendEntry(ctx, dataset, first))
	before, err := store.Get(ctx, dataset)
	require.NoError(t, err)

	// Existing document: the previous content and version come back.
	failCommits()
	require.Error(t, agg.AppendEntry(ctx, dataset, second))
	after, err := store.Get(ctx, dataset)
	require.NoError(t, err)
	assert.Equal(t, before.Version, after.Version)

	entries, err := agg.Entries(ctx, dataset)
	require.NoError(t, err)
	assert.Equal(t, []core.Entry{first}, entries)

	// A retry after the hook is fixed stores the entry exactly once.
	require.NoError(t, os.Remove(hook))
	require.NoError(t, agg.AppendEntry(ctx, dataset, second))
	entries, err = agg.Entries(ctx, dataset)
	require.NoError(t, err)
	assert.Equal(t, []core.Entry{first, second}, entries)
}

func TestStore_MustExist(t *testing.T) {
	store, err := fs.NewStore(fs.Config{Path: filepath.Join(t.TempDir(), "missing"), MustExist: true, Gitless: true})
	require.NoError(t, err)
	assert.Error(t, store.Initialize(context.Background()))
}

func TestStore_UnsupportedFormat(t *testing.T) {
	_, err := fs.NewStore(fs.Config{Path: t.TempDir(), Format: ".csv"})
	assert.Error(t, err)
}

func TestStore_Documents(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, fs.Config{Gitless: true})
	for _, name := range []string{"b", "a"} {
		require.NoError(t, store.Set(ctx, core.DocumentID{Collection: "datasets", Name: name}, core.Data{}))
	}

	ids, err := store.Documents(ctx, "datasets")
	require.NoError(t, err)
	assert.Equal(t, []core.DocumentID{
		{Collection: "datasets", Name: "a"},
		{Collection: "datasets", Name: "b"},
	}, ids)

	state := store.State().(fs.StoreState)
	assert.EqualValues(t, 2, state.Writes)
	assert.Equal(t, ".json", state.Format)
}
