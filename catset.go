package catset

import (
	"context"
	"log/slog"

	"github.com/aretw0/catset/internal/config"
	"github.com/aretw0/catset/internal/platform"
	"github.com/aretw0/catset/pkg/core"
	"github.com/aretw0/catset/pkg/lexer"
	"github.com/aretw0/catset/pkg/normalize"
)

// Version exposes the version of the library.
// See version.go for the implementation using go:embed.

// --- Types ---

// Runtime is the process-wide composition root (store, tagger, aggregator, service).
type Runtime = platform.Runtime

// Config is the layered catset configuration.
type Config = config.Config

// Entry is one (code, CAT, comment) triple of the dataset.
type Entry = core.Entry

// --- Configuration ---

// Option defines a functional option for opening a Runtime.
type Option = platform.Option

// DefaultConfig returns a copy of the default configuration: fs store in the
// working directory, atomic appends, Java lexer, lexical tagger.
func DefaultConfig() Config {
	return config.DefaultConfig
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithStore injects a document store instead of the configured backend.
func WithStore(store core.Store) Option {
	return platform.WithStore(store)
}

// WithTagger injects the aligned-tag generator.
func WithTagger(t core.Tagger) Option {
	return platform.WithTagger(t)
}

// WithLexer injects the lexer used by the normalizer.
func WithLexer(lx lexer.Lexer) Option {
	return platform.WithLexer(lx)
}

// WithWatcherErrorHandler registers a callback for runtime watcher failures.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// --- Constructors ---

// Open wires a Runtime from cfg. A nil cfg uses DefaultConfig.
func Open(ctx context.Context, cfg *Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		c := DefaultConfig()
		cfg = &c
	}
	return platform.Open(ctx, cfg, opts...)
}

// Normalize strips comments from Java source and returns its normalized
// token string, literals replaced by STR_, NUM_ and BOOL_.
func Normalize(src string) (string, error) {
	return normalize.Normalize(src)
}
