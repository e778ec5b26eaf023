// Package fs stores dataset documents as files, optionally versioned in git.
//
// Document {collection, name} lives at <path>/<collection>/<name><ext>. Writes
// are atomic (temp file + rename) and serialized across processes by a lock
// file under the system directory, so conditional writes are safe for every
// process sharing the directory.
package fs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/aretw0/catset/pkg/core"
	"github.com/aretw0/catset/pkg/git"
)

// Config holds the configuration for the filesystem store.
type Config struct {
	Path      string
	Format    string // file extension: ".json" (default), ".yaml" or ".yml"
	AutoInit  bool
	Gitless   bool
	MustExist bool
	ReadOnly  bool
	SystemDir string // e.g. ".catset"

	// LockTimeout bounds the wait for the write lock when the caller's
	// context has no deadline. Zero waits as long as the context allows.
	LockTimeout time.Duration

	Logger       *slog.Logger
	ErrorHandler func(error)
}

// Store implements core.ConditionalStore on the filesystem.
type Store struct {
	Path       string
	git        *git.Client
	config     Config
	serializer Serializer
	ext        string

	mu            sync.RWMutex
	watcherActive bool
	writes        int64
	lastWrite     *time.Time
}

var _ core.ConditionalStore = (*Store)(nil)
var _ core.Initializer = (*Store)(nil)

// NewStore creates a new filesystem-backed store.
func NewStore(config Config) (*Store, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("store path is required")
	}
	if config.SystemDir == "" {
		config.SystemDir = ".catset"
	}
	if config.Format == "" {
		config.Format = ".json"
	}
	if !strings.HasPrefix(config.Format, ".") {
		config.Format = "." + config.Format
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}

	serializer, ok := DefaultSerializers()[config.Format]
	if !ok {
		return nil, fmt.Errorf("unsupported document format %q", config.Format)
	}

	return &Store{
		Path:       config.Path,
		git:        git.NewClient(config.Path, filepath.Join(config.SystemDir, "store.lock"), config.Logger),
		config:     config,
		serializer: serializer,
		ext:        config.Format,
	}, nil
}

// Initialize performs the necessary setup for the store (mkdir, git init).
func (s *Store) Initialize(ctx context.Context) error {
	// 1. Directory Initialization
	if s.config.MustExist {
		info, err := os.Stat(s.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("store path does not exist: %s", s.Path)
		}
		if err != nil {
			return fmt.Errorf("failed to stat store path: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("store path is not a directory: %s", s.Path)
		}
	} else if err := os.MkdirAll(s.Path, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(s.Path, s.config.SystemDir), 0755); err != nil {
		return fmt.Errorf("failed to create system directory: %w", err)
	}

	if s.config.Gitless {
		return nil
	}

	// 2. Git Initialization
	if !git.IsInstalled() {
		return fmt.Errorf("git is not installed")
	}

	wasNewRepo := false
	if !s.git.IsRepo() {
		if !s.config.AutoInit {
			return fmt.Errorf("path is not a git repository: %s", s.Path)
		}
		if err := s.git.Init(ctx); err != nil {
			return fmt.Errorf("failed to git init: %w", err)
		}
		wasNewRepo = true
	}

	// Ensure .gitignore has the system directory
	mod, err := s.ensureIgnore()
	if err != nil {
		return fmt.Errorf("failed to ensure .gitignore: %w", err)
	}

	if mod && wasNewRepo {
		// A fresh repository starts with the ignore rule committed.
		if err := s.git.Add(ctx, ".gitignore"); err != nil {
			return fmt.Errorf("failed to add .gitignore: %w", err)
		}
		if err := s.git.Commit(ctx, fmt.Sprintf("chore: configure %s ignore", s.config.SystemDir)); err != nil {
			return fmt.Errorf("failed to commit .gitignore: %w", err)
		}
	}

	return nil
}

func (s *Store) ensureIgnore() (bool, error) {
	ignorePath := filepath.Join(s.Path, ".gitignore")
	ignoreEntry := s.config.SystemDir + "/"

	content, err := os.ReadFile(ignorePath)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}

	for _, line := range strings.Split(string(content), "\n") {
		if strings.TrimSpace(line) == ignoreEntry {
			return false, nil
		}
	}

	f, err := os.OpenFile(ignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return false, err
	}
	defer f.Close()

	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		if _, err := f.WriteString("\n"); err != nil {
			return false, err
		}
	}
	if _, err := f.WriteString(ignoreEntry + "\n"); err != nil {
		return false, err
	}
	return true, nil
}

// relPath returns the document's path relative to the store root.
func (s *Store) relPath(id core.DocumentID) (string, error) {
	for _, part := range []string{id.Collection, id.Name} {
		if part == "" || part == "." || part == ".." || strings.ContainsAny(part, `/\`) {
			return "", fmt.Errorf("invalid document id %q", id.String())
		}
	}
	if id.Collection == s.config.SystemDir || id.Collection == ".git" {
		return "", fmt.Errorf("document id %q uses a reserved directory", id.String())
	}
	return filepath.Join(id.Collection, id.Name+s.ext), nil
}

// Get reads a document. A missing file is reported as Exists=false.
// The version is the xxh3 hash of the file content.
func (s *Store) Get(ctx context.Context, id core.DocumentID) (core.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return core.Snapshot{}, err
	}
	rel, err := s.relPath(id)
	if err != nil {
		return core.Snapshot{}, err
	}

	raw, err := os.ReadFile(filepath.Join(s.Path, rel))
	if os.IsNotExist(err) {
		return core.Snapshot{ID: id}, nil
	}
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("failed to read %s: %w", rel, err)
	}

	data, err := s.serializer.Parse(bytes.NewReader(raw))
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("failed to parse document %s: %w", id, err)
	}
	return core.Snapshot{ID: id, Exists: true, Data: data, Version: version(raw)}, nil
}

// Set replaces the document unconditionally.
func (s *Store) Set(ctx context.Context, id core.DocumentID, data core.Data) error {
	return s.write(ctx, id, data, nil)
}

// SetIfVersion replaces the document only if its content still hashes to expected.
func (s *Store) SetIfVersion(ctx context.Context, id core.DocumentID, data core.Data, expected string) error {
	return s.write(ctx, id, data, &expected)
}

// write persists a document under the store lock and commits it to git.
//
// Workflow:
//  1. Acquire the cross-process lock.
//  2. (Conditional) compare the current version with the expected one.
//  3. Serialize and write atomically to disk.
//  4. (If Git enabled) 'git add' and 'git commit' with the change reason from ctx.
//     A failed commit restores the previous file, so an error always means
//     the document is unchanged.
func (s *Store) write(ctx context.Context, id core.DocumentID, data core.Data, expected *string) error {
	if s.config.ReadOnly {
		return core.ErrReadOnly
	}
	rel, err := s.relPath(id)
	if err != nil {
		return err
	}
	fullPath := filepath.Join(s.Path, rel)

	lockCtx := ctx
	if _, ok := ctx.Deadline(); !ok && s.config.LockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, s.config.LockTimeout)
		defer cancel()
	}
	unlock, err := s.git.Lock(lockCtx)
	if err != nil {
		return fmt.Errorf("failed to acquire store lock: %w", err)
	}
	defer unlock()

	prev, existed, err := readCurrent(fullPath)
	if err != nil {
		return err
	}
	if expected != nil {
		current := ""
		if existed {
			current = version(prev)
		}
		if current != *expected {
			return fmt.Errorf("%s changed since it was read: %w", id, core.ErrConflict)
		}
	}

	payload, err := s.serializer.Serialize(data)
	if err != nil {
		return fmt.Errorf("failed to serialize document: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}
	if err := writeFileAtomic(fullPath, payload, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	s.recordWrite()

	if s.config.Gitless {
		return nil
	}
	if err := s.commit(ctx, id, rel); err != nil {
		if rbErr := s.rollback(ctx, fullPath, rel, prev, existed); rbErr != nil {
			return errors.Join(err, fmt.Errorf("failed to restore %s: %w", id, rbErr))
		}
		s.config.Logger.Warn("commit failed, document restored", "dataset", id.String(), "error", err)
		return err
	}
	return nil
}

// rollback puts back the file content seen before a write and resets its
// index entry.
func (s *Store) rollback(ctx context.Context, fullPath, rel string, prev []byte, existed bool) error {
	if !existed {
		if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
			return err
		}
		return s.git.Unstage(context.WithoutCancel(ctx), rel)
	}
	if err := writeFileAtomic(fullPath, prev, 0644); err != nil {
		return err
	}
	return s.git.Add(context.WithoutCancel(ctx), rel)
}

func (s *Store) commit(ctx context.Context, id core.DocumentID, rel string) error {
	if err := s.git.Add(ctx, rel); err != nil {
		return fmt.Errorf("failed to git add: %w", err)
	}
	staged, err := s.git.HasStagedChanges(ctx)
	if err != nil {
		return fmt.Errorf("failed to inspect git index: %w", err)
	}
	if !staged {
		s.config.Logger.Debug("document unchanged, nothing to commit", "dataset", id.String())
		return nil
	}

	reason := "update " + id.String()
	if val, ok := ctx.Value(core.ChangeReasonKey).(string); ok && val != "" {
		reason = val
	}
	if err := s.git.Commit(ctx, git.FormatMessage("feat", "dataset", reason)); err != nil {
		return fmt.Errorf("failed to git commit: %w", err)
	}
	return nil
}

func readCurrent(fullPath string) ([]byte, bool, error) {
	raw, err := os.ReadFile(fullPath)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read current version: %w", err)
	}
	return raw, true, nil
}

func version(raw []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(raw))
}

// History returns up to n commits that changed the document, newest first.
func (s *Store) History(ctx context.Context, id core.DocumentID, n int) ([]git.Commit, error) {
	if s.config.Gitless {
		return nil, fmt.Errorf("history is not available in gitless mode")
	}
	rel, err := s.relPath(id)
	if err != nil {
		return nil, err
	}
	return s.git.Log(ctx, rel, n)
}

// Documents lists the documents of a collection, sorted by name.
func (s *Store) Documents(ctx context.Context, collection string) ([]core.DocumentID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.Path, collection))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list collection %s: %w", collection, err)
	}

	var ids []core.DocumentID
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != s.ext || strings.HasPrefix(name, TempFilePrefix) {
			continue
		}
		ids = append(ids, core.DocumentID{Collection: collection, Name: strings.TrimSuffix(name, s.ext)})
	}
	return ids, nil
}
