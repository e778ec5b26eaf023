package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/catset/internal/config"
	"github.com/aretw0/catset/pkg/adapters/fs"
	"github.com/aretw0/catset/pkg/core"
	"github.com/aretw0/catset/pkg/git"
	"github.com/aretw0/catset/pkg/normalize"
)

// ErrNotSupported is returned when the configured store lacks a capability
// (watching, history).
var ErrNotSupported = errors.New("not supported by the configured store")

// Runtime is the process-wide composition root: one store handle, opened
// once, shared by the aggregator and every surface.
type Runtime struct {
	Config     *config.Config
	Dataset    core.DocumentID
	Store      core.Store
	Normalizer *normalize.Normalizer
	Tagger     core.Tagger
	Aggregator *core.Aggregator
	Service    *core.Service

	logger  *slog.Logger
	closers []io.Closer
}

// Open wires a Runtime from cfg.
//
// Usage:
//
//	rt, err := platform.Open(ctx, cfg, platform.WithLogger(slog.Default()))
//	defer rt.Close()
//	entry, err := rt.Service.Submit(ctx, code, comment)
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Runtime, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	dataset, err := cfg.DatasetID()
	if err != nil {
		return nil, err
	}

	rt := &Runtime{Config: cfg, Dataset: dataset, logger: o.logger}

	// 1. Store
	store := o.store
	if store == nil {
		var closer io.Closer
		store, closer, err = openStore(ctx, cfg, o)
		if err != nil {
			return nil, err
		}
		if closer != nil {
			rt.closers = append(rt.closers, closer)
		}
	}
	if cfg.Store.ReadOnly {
		store = readOnly(store)
	}
	rt.Store = store

	// 2. Normalizer and tagger
	lx := o.lexer
	if lx == nil {
		if lx, err = newLexer(cfg.Lexer); err != nil {
			rt.Close()
			return nil, err
		}
	}
	rt.Normalizer = normalize.New(lx)

	if rt.Tagger, err = newTagger(ctx, cfg, o.tagger); err != nil {
		rt.Close()
		return nil, err
	}

	// 3. Aggregator and service
	mode, err := core.ParseAppendMode(cfg.AppendMode)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Aggregator, err = core.NewAggregator(store,
		core.WithAppendMode(mode),
		core.WithMaxRetries(cfg.MaxRetries),
		core.WithStoreTimeout(cfg.Timeouts.Store),
		core.WithAggregatorLogger(o.logger),
	)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to create aggregator for %s store: %w", cfg.Store.Backend, err)
	}

	rt.Service = core.NewService(rt.Normalizer, rt.Tagger, rt.Aggregator,
		core.WithDataset(dataset),
		core.WithTaggerTimeout(cfg.Timeouts.Tagger),
		core.WithLogger(o.logger),
	)

	o.logger.Debug("runtime ready",
		"store", cfg.Store.Backend,
		"tagger", cfg.Tagger.Kind,
		"mode", mode,
		"dataset", dataset.String(),
	)
	return rt, nil
}

// Close releases the store handle.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// Submit runs one submission through the pipeline.
func (r *Runtime) Submit(ctx context.Context, code, comment string) (core.Entry, error) {
	return r.Service.Submit(ctx, code, comment)
}

// Entries returns the entries of the configured dataset.
func (r *Runtime) Entries(ctx context.Context) ([]core.Entry, error) {
	return r.Aggregator.Entries(ctx, r.Dataset)
}

// Stats summarizes the configured dataset.
func (r *Runtime) Stats(ctx context.Context) (core.Stats, error) {
	return r.Aggregator.Stats(ctx, r.Dataset)
}

// Watch reports changes to documents matching pattern. Only stores that
// implement core.Watchable (fs) support it.
func (r *Runtime) Watch(ctx context.Context, pattern string, fn func(core.Event)) error {
	w, ok := unwrap(r.Store).(core.Watchable)
	if !ok {
		return fmt.Errorf("watch: %w", ErrNotSupported)
	}
	return w.Watch(ctx, pattern, fn)
}

// History returns the last n commits of the configured dataset.
func (r *Runtime) History(ctx context.Context, n int) ([]git.Commit, error) {
	s, ok := unwrap(r.Store).(*fs.Store)
	if !ok {
		return nil, fmt.Errorf("history: %w", ErrNotSupported)
	}
	return s.History(ctx, r.Dataset, n)
}
