package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/catset/pkg/core"
)

const debounceWindow = 50 * time.Millisecond

var _ core.Watchable = (*Store)(nil)

// Watch reports changes to documents whose "collection/name" matches the
// doublestar pattern (empty matches everything). It returns once the
// watcher is running; events are delivered until ctx is done.
func (s *Store) Watch(ctx context.Context, pattern string, fn func(core.Event)) error {
	if pattern == "" {
		pattern = "**"
	}
	if !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("invalid watch pattern %q", pattern)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	known, err := s.addTree(watcher)
	if err != nil {
		_ = watcher.Close()
		return err
	}

	w := &watchLoop{
		store:     s,
		pattern:   pattern,
		fn:        fn,
		watcher:   watcher,
		known:     known,
		debouncer: newDebouncer(debounceWindow),
	}
	s.setWatcherActive(true)

	lifecycle.Go(ctx, w.run, lifecycle.WithErrorHandler(func(err error) {
		if s.config.ErrorHandler != nil {
			s.config.ErrorHandler(fmt.Errorf("watcher: %w", err))
			return
		}
		s.config.Logger.Error("watcher failed", "error", err)
	}))
	return nil
}

// addTree watches the root and every collection directory. It returns the
// documents present at start so that later writes map to MODIFY.
func (s *Store) addTree(watcher *fsnotify.Watcher) (map[core.DocumentID]bool, error) {
	known := make(map[core.DocumentID]bool)
	if err := watcher.Add(s.Path); err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", s.Path, err)
	}

	entries, err := os.ReadDir(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.Path, err)
	}
	for _, e := range entries {
		if !e.IsDir() || s.reserved(e.Name()) {
			continue
		}
		if err := watcher.Add(filepath.Join(s.Path, e.Name())); err != nil {
			return nil, fmt.Errorf("failed to watch collection %s: %w", e.Name(), err)
		}
		ids, err := s.Documents(context.Background(), e.Name())
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			known[id] = true
		}
	}
	return known, nil
}

func (s *Store) reserved(dir string) bool {
	return dir == ".git" || dir == s.config.SystemDir
}

// resolveID maps a file path to a document ID.
func (s *Store) resolveID(path string) (core.DocumentID, bool) {
	rel, err := filepath.Rel(s.Path, path)
	if err != nil {
		return core.DocumentID{}, false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 2 || s.reserved(parts[0]) {
		return core.DocumentID{}, false
	}
	name := parts[1]
	if filepath.Ext(name) != s.ext || strings.HasPrefix(name, TempFilePrefix) {
		return core.DocumentID{}, false
	}
	return core.DocumentID{Collection: parts[0], Name: strings.TrimSuffix(name, s.ext)}, true
}

type watchLoop struct {
	store     *Store
	pattern   string
	fn        func(core.Event)
	watcher   *fsnotify.Watcher
	debouncer *debouncer

	mu    sync.Mutex
	known map[core.DocumentID]bool
}

func (w *watchLoop) run(ctx context.Context) error {
	defer w.store.setWatcherActive(false)
	defer w.watcher.Close()
	defer w.debouncer.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			w.handle(ctx, event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.store.config.Logger.Error("fsnotify error", "error", err)
			if w.store.config.ErrorHandler != nil {
				w.store.config.ErrorHandler(err)
			}
		}
	}
}

func (w *watchLoop) handle(ctx context.Context, event fsnotify.Event) {
	w.store.config.Logger.Debug("event received", "name", event.Name, "op", event.Op.String())

	// New collection directories are watched as they appear.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if filepath.Dir(event.Name) == filepath.Clean(w.store.Path) && !w.store.reserved(filepath.Base(event.Name)) {
				_ = w.watcher.Add(event.Name)
			}
			return
		}
	}

	id, ok := w.store.resolveID(event.Name)
	if !ok {
		return
	}
	if match, _ := doublestar.Match(w.pattern, id.String()); !match {
		return
	}

	typ := w.eventType(id, event)
	if typ == "" {
		return
	}

	w.debouncer.add(id, typ, func(typ core.EventType) {
		if ctx.Err() != nil {
			return
		}
		w.fn(core.Event{Type: typ, ID: id, Timestamp: time.Now().Unix()})
	})
}

func (w *watchLoop) eventType(id core.DocumentID, event fsnotify.Event) core.EventType {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		delete(w.known, id)
		return core.EventDelete
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		// Atomic writes rename over the target, which shows up as CREATE.
		if w.known[id] {
			return core.EventModify
		}
		w.known[id] = true
		return core.EventCreate
	}
	return ""
}

// debouncer coalesces bursts of events per document. A CREATE followed by
// writes in the same burst is still reported as CREATE.
type debouncer struct {
	window time.Duration

	mu      sync.Mutex
	timers  map[core.DocumentID]*time.Timer
	pending map[core.DocumentID]core.EventType
	stopped bool
}

func newDebouncer(window time.Duration) *debouncer {
	return &debouncer{
		window:  window,
		timers:  make(map[core.DocumentID]*time.Timer),
		pending: make(map[core.DocumentID]core.EventType),
	}
}

func (d *debouncer) add(id core.DocumentID, typ core.EventType, fire func(core.EventType)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if t, ok := d.timers[id]; ok {
		t.Stop()
	}
	if prev := d.pending[id]; prev == core.EventCreate && typ == core.EventModify {
		typ = core.EventCreate
	}
	d.pending[id] = typ

	d.timers[id] = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		if d.stopped {
			d.mu.Unlock()
			return
		}
		typ := d.pending[id]
		delete(d.timers, id)
		delete(d.pending, id)
		d.mu.Unlock()
		fire(typ)
	})
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for id, t := range d.timers {
		t.Stop()
		delete(d.timers, id)
	}
}
