package core_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/catset/pkg/adapters/memory"
	"github.com/aretw0/catset/pkg/core"
	"github.com/aretw0/catset/pkg/normalize"
)

// spyStore counts calls and can fail writes.
type spyStore struct {
	*memory.Store
	gets, sets atomic.Int32
	failWrite  error
}

func (s *spyStore) Get(ctx context.Context, id core.DocumentID) (core.Snapshot, error) {
	s.gets.Add(1)
	return s.Store.Get(ctx, id)
}

func (s *spyStore) Set(ctx context.Context, id core.DocumentID, data core.Data) error {
	s.sets.Add(1)
	if s.failWrite != nil {
		return s.failWrite
	}
	return s.Store.Set(ctx, id, data)
}

func (s *spyStore) SetIfVersion(ctx context.Context, id core.DocumentID, data core.Data, expected string) error {
	s.sets.Add(1)
	if s.failWrite != nil {
		return s.failWrite
	}
	return s.Store.SetIfVersion(ctx, id, data, expected)
}

// countTagger tags every token with "T" and counts its calls.
type countTagger struct {
	calls atomic.Int32
	err   error
	extra int
}

func (c *countTagger) GenerateTags(_ context.Context, code string) ([]string, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	n := len(strings.Fields(code)) + c.extra
	tags := make([]string, n)
	for i := range tags {
		tags[i] = "T"
	}
	return tags, nil
}

func newService(t *testing.T, store core.Store, tagger core.Tagger, opts ...core.ServiceOption) *core.Service {
	t.Helper()
	agg, err := core.NewAggregator(store)
	require.NoError(t, err)
	return core.NewService(normalize.New(nil), tagger, agg, opts...)
}

func TestService_Submit(t *testing.T) {
	store := &spyStore{Store: memory.New()}
	tagger := &countTagger{}
	svc := newService(t, store, tagger)

	entry, err := svc.Submit(context.Background(), "int x = 42; // set x", "declares x")
	require.NoError(t, err)
	assert.Equal(t, "int x = NUM_ ;", entry.Code)
	assert.Equal(t, []string{"T", "T", "T", "T", "T"}, entry.CAT)
	assert.Equal(t, "declares x", entry.Comment)

	entries, err := svc.Aggregator().Entries(context.Background(), svc.Dataset())
	require.NoError(t, err)
	assert.Equal(t, []core.Entry{entry}, entries)
	assert.EqualValues(t, 1, store.sets.Load())
}

func TestService_BlankFieldsNeverReachTaggerOrStore(t *testing.T) {
	cases := map[string]struct {
		code, comment, field string
	}{
		"empty code":    {"", "a comment", "code"},
		"blank code":    {" \n\t", "a comment", "code"},
		"empty comment": {"int x;", "", "comment"},
		"blank comment": {"int x;", "   ", "comment"},
		"only comments": {"// nothing to see", "a comment", "code"},
		"both empty":    {"", "", "code"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			store := &spyStore{Store: memory.New()}
			tagger := &countTagger{}
			svc := newService(t, store, tagger)

			_, err := svc.Submit(context.Background(), tc.code, tc.comment)
			var vErr *core.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tc.field, vErr.Field)

			assert.Zero(t, tagger.calls.Load())
			assert.Zero(t, store.gets.Load())
			assert.Zero(t, store.sets.Load())
		})
	}
}

func TestService_TaggerFailureLeavesDatasetUnchanged(t *testing.T) {
	ctx := context.Background()
	inner := memory.New()
	seed(t, inner, e0)
	before, err := inner.Get(ctx, core.DefaultDataset)
	require.NoError(t, err)

	store := &spyStore{Store: inner}
	svc := newService(t, store, &countTagger{err: errors.New("model unavailable")})

	_, err = svc.Submit(ctx, "return true;", "returns")
	var tagErr *core.TagGenerationError
	require.True(t, errors.As(err, &tagErr))
	assert.Contains(t, err.Error(), "model unavailable")

	after, err := inner.Get(ctx, core.DefaultDataset)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Zero(t, store.gets.Load())
	assert.Zero(t, store.sets.Load())
}

func TestService_TagCountMismatch(t *testing.T) {
	store := &spyStore{Store: memory.New()}
	svc := newService(t, store, &countTagger{extra: 1})

	_, err := svc.Submit(context.Background(), "x++;", "increments")
	var tagErr *core.TagGenerationError
	require.True(t, errors.As(err, &tagErr))
	assert.ErrorIs(t, err, core.ErrTagCountMismatch)
	assert.Zero(t, store.sets.Load())
}

func TestService_TokenizationError(t *testing.T) {
	tagger := &countTagger{}
	svc := newService(t, memory.New(), tagger)

	_, err := svc.Submit(context.Background(), `String s = "unterminated;`, "broken")
	var tokErr *core.TokenizationError
	require.True(t, errors.As(err, &tokErr))
	assert.Zero(t, tagger.calls.Load())
}

func TestService_StoreWriteFailure(t *testing.T) {
	store := &spyStore{Store: memory.New(), failWrite: errors.New("quota exceeded")}
	svc := newService(t, store, &countTagger{})

	_, err := svc.Submit(context.Background(), "int x;", "declares")
	var storeErr *core.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, core.OpWrite, storeErr.Op)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestService_TaggerTimeout(t *testing.T) {
	slow := core.TaggerFunc(func(ctx context.Context, _ string) ([]string, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	svc := newService(t, memory.New(), slow, core.WithTaggerTimeout(10*time.Millisecond))

	_, err := svc.Submit(context.Background(), "int x;", "declares")
	var tagErr *core.TagGenerationError
	require.True(t, errors.As(err, &tagErr))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestService_CustomDataset(t *testing.T) {
	id := core.DocumentID{Collection: "corpora", Name: "java"}
	store := memory.New()
	svc := newService(t, store, &countTagger{}, core.WithDataset(id))

	_, err := svc.Submit(context.Background(), "int x;", "declares")
	require.NoError(t, err)

	snap, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, snap.Exists)

	state := svc.State().(core.ServiceState)
	assert.Equal(t, "corpora/java", state.Dataset)
	assert.Equal(t, core.AppendAtomic, state.Aggregator.Mode)
}
