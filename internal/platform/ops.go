package platform

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aretw0/catset/internal/config"
	"github.com/aretw0/catset/pkg/adapters/fs"
	"github.com/aretw0/catset/pkg/adapters/memory"
	"github.com/aretw0/catset/pkg/adapters/s3"
	"github.com/aretw0/catset/pkg/adapters/sqlstore"
	"github.com/aretw0/catset/pkg/core"
	"github.com/aretw0/catset/pkg/git"
	"github.com/aretw0/catset/pkg/lexer"
	"github.com/aretw0/catset/pkg/lexer/java"
	"github.com/aretw0/catset/pkg/lexer/treesitter"
	"github.com/aretw0/catset/pkg/normalize"
	"github.com/aretw0/catset/pkg/tagger"
)

// openStore creates and initializes the configured backend. The closer is
// nil for stores that hold no handle.
func openStore(ctx context.Context, cfg *config.Config, o *options) (core.Store, io.Closer, error) {
	var (
		store  core.Store
		closer io.Closer
		err    error
	)

	switch cfg.Store.Backend {
	case "fs":
		store, err = initFS(cfg, o)
	case "memory":
		store = memory.New()
	case "sqlite", "postgres":
		var s *sqlstore.Store
		s, err = initSQL(ctx, cfg)
		store, closer = s, s
	case "s3":
		store, err = s3.NewStore(s3.Config{
			Endpoint:  cfg.Store.S3.Endpoint,
			Region:    cfg.Store.S3.Region,
			AccessKey: cfg.Store.S3.AccessKey,
			SecretKey: cfg.Store.S3.SecretKey,
			Bucket:    cfg.Store.S3.Bucket,
			Prefix:    cfg.Store.S3.Prefix,
			UseSSL:    cfg.Store.S3.UseSSL,
		})
	default:
		return nil, nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
	if err != nil {
		return nil, nil, err
	}

	// A read-only fs store must not create directories or repositories.
	skipInit := cfg.Store.ReadOnly && cfg.Store.Backend == "fs"
	if initializer, ok := store.(core.Initializer); ok && !skipInit {
		if err := initializer.Initialize(ctx); err != nil {
			if closer != nil {
				_ = closer.Close()
			}
			return nil, nil, fmt.Errorf("failed to initialize %s store: %w", cfg.Store.Backend, err)
		}
	}
	return store, closer, nil
}

// initFS handles the initialization logic for the filesystem adapter.
func initFS(cfg *config.Config, o *options) (*fs.Store, error) {
	path, err := ResolvePath(cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	gitless := cfg.Store.Gitless
	if !gitless && !git.IsInstalled() {
		o.logger.Warn("git not found, versioning disabled", "path", path)
		gitless = true
	}

	return fs.NewStore(fs.Config{
		Path:         path,
		Format:       cfg.Store.Format,
		AutoInit:     cfg.Store.AutoInit,
		Gitless:      gitless,
		MustExist:    !cfg.Store.AutoInit || cfg.Store.ReadOnly,
		ReadOnly:     cfg.Store.ReadOnly,
		SystemDir:    SystemDir,
		LockTimeout:  cfg.Timeouts.Lock,
		Logger:       o.logger,
		ErrorHandler: o.errorHandler,
	})
}

// initSQL opens the sqlite or postgres store. sqlite defaults to a database
// file in the system directory of the store path.
func initSQL(ctx context.Context, cfg *config.Config) (*sqlstore.Store, error) {
	driver := "pgx"
	dsn := cfg.Store.DSN
	if cfg.Store.Backend == "sqlite" {
		driver = "sqlite3"
		if dsn == "" {
			path, err := ResolvePath(cfg.Store.Path)
			if err != nil {
				return nil, err
			}
			dir := filepath.Join(path, SystemDir)
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create system directory: %w", err)
			}
			dsn = filepath.Join(dir, "catset.db")
		}
	}
	if dsn == "" {
		return nil, fmt.Errorf("%s store requires a dsn", cfg.Store.Backend)
	}
	return sqlstore.Open(ctx, driver, dsn)
}

// NewNormalizer returns a normalizer for the named lexer backend. It needs
// no store, so previews work without opening a Runtime.
func NewNormalizer(lexerName string) (*normalize.Normalizer, error) {
	lx, err := newLexer(lexerName)
	if err != nil {
		return nil, err
	}
	return normalize.New(lx), nil
}

func newLexer(name string) (lexer.Lexer, error) {
	switch name {
	case "", "java":
		return java.New(), nil
	case "treesitter":
		return treesitter.New(), nil
	}
	return nil, fmt.Errorf("unknown lexer: %s", name)
}

// newTagger builds the configured tagger, or takes the injected one, and
// wraps it in the tag cache when enabled.
func newTagger(ctx context.Context, cfg *config.Config, injected core.Tagger) (core.Tagger, error) {
	t := injected
	if t == nil {
		var err error
		switch cfg.Tagger.Kind {
		case "lexical":
			t = tagger.NewLexical()
		case "http":
			if cfg.Tagger.URL == "" {
				return nil, fmt.Errorf("http tagger requires a url")
			}
			t = tagger.NewHTTP(cfg.Tagger.URL, cfg.Timeouts.Tagger)
		case "command":
			t, err = tagger.NewCommand(cfg.Tagger.Command...)
		case "gemini":
			t, err = tagger.NewGemini(ctx, cfg.Tagger.APIKey, cfg.Tagger.Model)
		default:
			return nil, fmt.Errorf("unknown tagger: %s", cfg.Tagger.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create %s tagger: %w", cfg.Tagger.Kind, err)
		}
	}

	if cfg.Tagger.CacheSize > 0 {
		cached, err := tagger.NewCached(t, cfg.Tagger.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create tag cache: %w", err)
		}
		return cached, nil
	}
	return t, nil
}

// readOnlyStore rejects every write. The conditional variant keeps atomic
// mode available so reads behave the same as in a writable runtime.
type readOnlyStore struct {
	core.Store
}

func (r readOnlyStore) Set(context.Context, core.DocumentID, core.Data) error {
	return core.ErrReadOnly
}

func (r readOnlyStore) unwrap() core.Store { return r.Store }

func (r readOnlyStore) ComponentType() string {
	if c, ok := r.Store.(interface{ ComponentType() string }); ok {
		return c.ComponentType() + " (read-only)"
	}
	return fmt.Sprintf("%T (read-only)", r.Store)
}

type readOnlyConditional struct {
	readOnlyStore
}

func (r readOnlyConditional) SetIfVersion(context.Context, core.DocumentID, core.Data, string) error {
	return core.ErrReadOnly
}

func readOnly(s core.Store) core.Store {
	ro := readOnlyStore{Store: s}
	if _, ok := s.(core.ConditionalStore); ok {
		return readOnlyConditional{ro}
	}
	return ro
}

// unwrap returns the store beneath the read-only guard.
func unwrap(s core.Store) core.Store {
	if w, ok := s.(interface{ unwrap() core.Store }); ok {
		return w.unwrap()
	}
	return s
}
