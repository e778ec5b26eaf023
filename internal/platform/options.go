package platform

import (
	"log/slog"

	"github.com/aretw0/catset/pkg/core"
	"github.com/aretw0/catset/pkg/lexer"
)

// options holds the wiring overrides of a Runtime.
type options struct {
	store        core.Store
	tagger       core.Tagger
	lexer        lexer.Lexer
	logger       *slog.Logger
	errorHandler func(error)
}

// Option defines a functional option for opening a Runtime.
type Option func(*options)

func defaultOptions() *options {
	return &options{}
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStore injects a document store (e.g. a mock, or one shared between
// runtimes). The configured backend is then skipped.
func WithStore(store core.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithTagger injects a tagger in place of the configured one. The tag cache
// still wraps it when enabled.
func WithTagger(t core.Tagger) Option {
	return func(o *options) {
		o.tagger = t
	}
}

// WithLexer injects the lexer used by the normalizer.
func WithLexer(lx lexer.Lexer) Option {
	return func(o *options) {
		o.lexer = lx
	}
}

// WithWatcherErrorHandler registers a callback for runtime watcher failures
// (e.g. permission denied), which are otherwise only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.errorHandler = fn
	}
}
