package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// AppendMode selects how the aggregator appends to a dataset document.
type AppendMode string

const (
	// AppendLegacy is a plain read-modify-write. Concurrent appenders that
	// read the same prior state overwrite each other (lost update).
	AppendLegacy AppendMode = "legacy"

	// AppendAtomic reads the document version and writes conditionally,
	// re-reading and retrying on conflict. No append is lost.
	AppendAtomic AppendMode = "atomic"
)

// DefaultMaxRetries bounds the conflict retries of an atomic append.
const DefaultMaxRetries = 5

// ParseAppendMode converts a configuration value into an AppendMode.
func ParseAppendMode(s string) (AppendMode, error) {
	switch AppendMode(s) {
	case AppendLegacy, AppendAtomic:
		return AppendMode(s), nil
	case "":
		return AppendAtomic, nil
	}
	return "", fmt.Errorf("unknown append mode %q (want %q or %q)", s, AppendLegacy, AppendAtomic)
}

// Aggregator grows dataset documents one entry at a time.
type Aggregator struct {
	store       Store
	conditional ConditionalStore
	mode        AppendMode
	maxRetries  int
	callTimeout time.Duration
	logger      *slog.Logger

	appends   atomic.Int64
	conflicts atomic.Int64
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithAppendMode sets the append strategy. Default is AppendAtomic.
func WithAppendMode(mode AppendMode) AggregatorOption {
	return func(a *Aggregator) { a.mode = mode }
}

// WithMaxRetries bounds the conflict retries of atomic appends.
func WithMaxRetries(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n > 0 {
			a.maxRetries = n
		}
	}
}

// WithStoreTimeout bounds every single store call. Zero disables the bound.
func WithStoreTimeout(d time.Duration) AggregatorOption {
	return func(a *Aggregator) { a.callTimeout = d }
}

// WithAggregatorLogger sets the logger.
func WithAggregatorLogger(l *slog.Logger) AggregatorOption {
	return func(a *Aggregator) { a.logger = l }
}

// NewAggregator creates an Aggregator over store. Atomic mode requires the
// store to implement ConditionalStore.
func NewAggregator(store Store, opts ...AggregatorOption) (*Aggregator, error) {
	if store == nil {
		return nil, errors.New("aggregator requires a store")
	}
	a := &Aggregator{
		store:      store,
		mode:       AppendAtomic,
		maxRetries: DefaultMaxRetries,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.DiscardHandler)
	}

	switch a.mode {
	case AppendLegacy:
	case AppendAtomic:
		cs, ok := store.(ConditionalStore)
		if !ok {
			return nil, fmt.Errorf("atomic append mode: %w", ErrConditionalUnsupported)
		}
		a.conditional = cs
	default:
		return nil, fmt.Errorf("unknown append mode %q", a.mode)
	}
	return a, nil
}

// Mode returns the configured append mode.
func (a *Aggregator) Mode() AppendMode { return a.mode }

// AppendEntry appends entry to the end of the dataset document id, creating
// the document if it does not exist. Failures are *StoreError values.
func (a *Aggregator) AppendEntry(ctx context.Context, id DocumentID, entry Entry) error {
	if a.mode == AppendLegacy {
		return a.appendLegacy(ctx, id, entry)
	}
	return a.appendAtomic(ctx, id, entry)
}

func (a *Aggregator) appendLegacy(ctx context.Context, id DocumentID, entry Entry) error {
	snap, data, err := a.prepare(ctx, id, entry)
	if err != nil {
		return err
	}

	err = a.call(ctx, func(ctx context.Context) error {
		return a.store.Set(ctx, id, data)
	})
	if err != nil {
		return &StoreError{Op: OpWrite, ID: id, Err: err}
	}

	a.appends.Add(1)
	a.logger.Debug("entry appended", "dataset", id.String(), "mode", a.mode, "existed", snap.Exists)
	return nil
}

func (a *Aggregator) appendAtomic(ctx context.Context, id DocumentID, entry Entry) error {
	for attempt := 1; attempt <= a.maxRetries; attempt++ {
		snap, data, err := a.prepare(ctx, id, entry)
		if err != nil {
			return err
		}

		err = a.call(ctx, func(ctx context.Context) error {
			return a.conditional.SetIfVersion(ctx, id, data, snap.Version)
		})
		if err == nil {
			a.appends.Add(1)
			a.logger.Debug("entry appended", "dataset", id.String(), "mode", a.mode, "attempt", attempt)
			return nil
		}
		if !errors.Is(err, ErrConflict) {
			return &StoreError{Op: OpWrite, ID: id, Err: err}
		}

		a.conflicts.Add(1)
		a.logger.Debug("append conflict, retrying", "dataset", id.String(), "attempt", attempt)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return &StoreError{Op: OpWrite, ID: id, Err: ctxErr}
		}
	}

	a.logger.Warn("append retries exhausted", "dataset", id.String(), "attempts", a.maxRetries)
	return &StoreError{
		Op:  OpWrite,
		ID:  id,
		Err: fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, a.maxRetries, ErrConflict),
	}
}

// prepare reads the document and returns the data to write back: every
// existing field preserved, the stored entries left as they are and the new
// entry appended.
func (a *Aggregator) prepare(ctx context.Context, id DocumentID, entry Entry) (Snapshot, Data, error) {
	snap, err := a.read(ctx, id)
	if err != nil {
		return Snapshot{}, nil, err
	}

	existing, err := rawEntries(snap.Data)
	if err != nil {
		return Snapshot{}, nil, &StoreError{Op: OpDecode, ID: id, Err: err}
	}
	encoded, err := encodeEntry(entry)
	if err != nil {
		return Snapshot{}, nil, &StoreError{Op: OpDecode, ID: id, Err: err}
	}
	entries := make([]any, len(existing), len(existing)+1)
	copy(entries, existing)
	entries = append(entries, encoded)

	data := make(Data, len(snap.Data)+1)
	for k, v := range snap.Data {
		data[k] = v
	}
	data[EntriesField] = entries
	return snap, data, nil
}

func (a *Aggregator) read(ctx context.Context, id DocumentID) (Snapshot, error) {
	var snap Snapshot
	err := a.call(ctx, func(ctx context.Context) error {
		var err error
		snap, err = a.store.Get(ctx, id)
		return err
	})
	if err != nil {
		return Snapshot{}, &StoreError{Op: OpRead, ID: id, Err: err}
	}
	if !snap.Exists {
		snap.Data = nil
		snap.Version = ""
	}
	return snap, nil
}

func (a *Aggregator) call(ctx context.Context, fn func(context.Context) error) error {
	if a.callTimeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()
	return fn(ctx)
}

// Entries returns the entries of dataset id in arrival order. A missing
// document yields no entries.
func (a *Aggregator) Entries(ctx context.Context, id DocumentID) ([]Entry, error) {
	snap, err := a.read(ctx, id)
	if err != nil {
		return nil, err
	}
	entries, err := decodeEntries(snap.Data)
	if err != nil {
		return nil, &StoreError{Op: OpDecode, ID: id, Err: err}
	}
	return entries, nil
}

// decodeEntries reads the entries field of a document. Stores hand back
// generic data (decoded JSON, YAML or rows), so the field goes through a JSON
// round trip into typed entries.
func decodeEntries(data Data) ([]Entry, error) {
	raw, ok := data[EntriesField]
	if !ok || raw == nil {
		return nil, nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s field: %w", EntriesField, err)
	}
	var entries []Entry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("malformed %s field: %w", EntriesField, err)
	}
	return entries, nil
}

// rawEntries returns the entries field untouched. Only a field that is not a
// list is an error; the shape of the items is not checked.
func rawEntries(data Data) ([]any, error) {
	raw, ok := data[EntriesField]
	if !ok || raw == nil {
		return nil, nil
	}
	if list, ok := raw.([]any); ok {
		return list, nil
	}
	// Typed slices (e.g. []map[string]any) from stores that do not decode
	// into generic data.
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s field: %w", EntriesField, err)
	}
	var list []any
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, fmt.Errorf("malformed %s field: want a list, got %T", EntriesField, raw)
	}
	return list, nil
}

// encodeEntry turns a typed entry into plain document data.
func encodeEntry(entry Entry) (map[string]any, error) {
	b, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to encode entry: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("failed to encode entry: %w", err)
	}
	return out, nil
}
