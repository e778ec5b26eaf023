package core

import "context"

// Store is a keyed document store. Adhering to this interface keeps the
// aggregator independent of the storage mechanism (filesystem, SQL, S3, ...).
type Store interface {
	// Get reads a document. A missing document is not an error; the
	// snapshot reports Exists=false.
	Get(ctx context.Context, id DocumentID) (Snapshot, error)

	// Set replaces the whole document unconditionally.
	Set(ctx context.Context, id DocumentID, data Data) error
}

// ConditionalStore supports compare-and-set writes.
type ConditionalStore interface {
	Store

	// SetIfVersion writes data only if the stored version still equals
	// expected. An empty expected version means "the document must not
	// exist". On mismatch it returns ErrConflict.
	SetIfVersion(ctx context.Context, id DocumentID, data Data, expected string) error
}

// Initializer is implemented by stores that need preparation before use
// (create directories, git init, schema migration).
type Initializer interface {
	Initialize(ctx context.Context) error
}

// Watchable is implemented by stores that can report external changes.
type Watchable interface {
	Watch(ctx context.Context, pattern string, fn func(Event)) error
}
