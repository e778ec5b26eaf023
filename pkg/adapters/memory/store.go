// Package memory is an in-process document store. It supports conditional
// writes and is used by tests and by `catset serve --store memory`.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/aretw0/catset/pkg/core"
)

type document struct {
	data    []byte
	version uint64
}

// Store keeps documents as JSON in memory. Versions are per-document
// counters starting at 1.
type Store struct {
	mu   sync.RWMutex
	docs map[core.DocumentID]document
}

// New returns an empty Store.
func New() *Store {
	return &Store{docs: make(map[core.DocumentID]document)}
}

var _ core.ConditionalStore = (*Store)(nil)

// Get implements core.Store.
func (s *Store) Get(ctx context.Context, id core.DocumentID) (core.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return core.Snapshot{}, err
	}
	s.mu.RLock()
	doc, ok := s.docs[id]
	s.mu.RUnlock()
	if !ok {
		return core.Snapshot{ID: id}, nil
	}

	var data core.Data
	if err := json.Unmarshal(doc.data, &data); err != nil {
		return core.Snapshot{}, fmt.Errorf("failed to decode %s: %w", id, err)
	}
	return core.Snapshot{ID: id, Exists: true, Data: data, Version: strconv.FormatUint(doc.version, 10)}, nil
}

// Set implements core.Store.
func (s *Store) Set(ctx context.Context, id core.DocumentID, data core.Data) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", id, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[id] = document{data: b, version: s.docs[id].version + 1}
	return nil
}

// SetIfVersion implements core.ConditionalStore.
func (s *Store) SetIfVersion(ctx context.Context, id core.DocumentID, data core.Data, expected string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.docs[id]
	switch {
	case !ok && expected != "":
		return fmt.Errorf("%s no longer exists: %w", id, core.ErrConflict)
	case ok && expected != strconv.FormatUint(current.version, 10):
		return fmt.Errorf("%s is at version %d, expected %s: %w", id, current.version, expected, core.ErrConflict)
	}
	s.docs[id] = document{data: b, version: current.version + 1}
	return nil
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string { return "memory" }

// State implements introspection.Introspectable.
func (s *Store) State() any {
	return map[string]any{"documents": s.Len()}
}
