// Package lifecycle exposes dataset change notifications as a
// lifecycle.Source, so the watch surface can consume them like any other
// supervised event stream.
package lifecycle

import (
	"context"
	"fmt"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/catset/pkg/core"
)

// bufferSize decouples the store watcher from a slow consumer.
const bufferSize = 64

type datasetSource struct {
	store   core.Watchable
	pattern string
	out     chan lifecycle.Event
}

// NewSource creates a lifecycle.Source that emits the changes of documents
// matching pattern ("collection/name" doublestar; empty matches all).
func NewSource(store core.Watchable, pattern string) lifecycle.Source {
	return &datasetSource{
		store:   store,
		pattern: pattern,
		out:     make(chan lifecycle.Event),
	}
}

func (s *datasetSource) Events() <-chan lifecycle.Event {
	return s.out
}

// Start begins watching. The events channel is closed once ctx is done.
func (s *datasetSource) Start(ctx context.Context) error {
	events := make(chan core.Event, bufferSize)
	err := s.store.Watch(ctx, s.pattern, func(e core.Event) {
		select {
		case events <- e:
		case <-ctx.Done():
		}
	})
	if err != nil {
		close(s.out)
		return fmt.Errorf("failed to start dataset watch: %w", err)
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e := <-events:
				// core.Event implements lifecycle.Event (has String())
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}
