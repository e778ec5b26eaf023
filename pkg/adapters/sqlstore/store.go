// Package sqlstore keeps dataset documents in a SQL table. It works with
// SQLite (driver "sqlite3") and PostgreSQL (driver "pgx").
//
// Every document is one row holding its JSON encoded data and a version
// counter; conditional writes compare that counter in the WHERE clause.
package sqlstore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/aretw0/catset/pkg/core"
)

//go:embed schema.sql
var schema string

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Store implements core.ConditionalStore over database/sql.
type Store struct {
	db     *sql.DB
	driver string
}

var _ core.ConditionalStore = (*Store)(nil)
var _ core.Initializer = (*Store)(nil)

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	case "postgres", "postgresql":
		driver = DriverPostgres
	case "sqlite":
		driver = DriverSQLite
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sql.Open(driver, strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if driver == DriverSQLite {
		// SQLite allows one writer; a single connection avoids "database is locked".
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db, driver: driver}, nil
}

// Initialize creates the documents table.
func (s *Store) Initialize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Get implements core.Store.
func (s *Store) Get(ctx context.Context, id core.DocumentID) (core.Snapshot, error) {
	var (
		raw     string
		version int64
	)
	err := s.db.QueryRowContext(ctx,
		s.rebind("SELECT data, version FROM documents WHERE collection = ? AND name = ?"),
		id.Collection, id.Name,
	).Scan(&raw, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Snapshot{ID: id}, nil
	}
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("query document: %w", err)
	}

	var data core.Data
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return core.Snapshot{}, fmt.Errorf("decode document %s: %w", id, err)
	}
	return core.Snapshot{ID: id, Exists: true, Data: data, Version: strconv.FormatInt(version, 10)}, nil
}

// Set implements core.Store.
func (s *Store) Set(ctx context.Context, id core.DocumentID, data core.Data) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO documents (collection, name, data, version, updated_at) VALUES (?, ?, ?, 1, ?)
		ON CONFLICT (collection, name)
		DO UPDATE SET data = excluded.data, version = documents.version + 1, updated_at = excluded.updated_at`),
		id.Collection, id.Name, string(raw), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

// SetIfVersion implements core.ConditionalStore.
func (s *Store) SetIfVersion(ctx context.Context, id core.DocumentID, data core.Data, expected string) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	var res sql.Result
	if expected == "" {
		res, err = s.db.ExecContext(ctx, s.rebind(`
			INSERT INTO documents (collection, name, data, version, updated_at) VALUES (?, ?, ?, 1, ?)
			ON CONFLICT (collection, name) DO NOTHING`),
			id.Collection, id.Name, string(raw), time.Now().UTC(),
		)
	} else {
		version, perr := strconv.ParseInt(expected, 10, 64)
		if perr != nil {
			return fmt.Errorf("malformed version %q: %w", expected, core.ErrConflict)
		}
		res, err = s.db.ExecContext(ctx, s.rebind(`
			UPDATE documents SET data = ?, version = version + 1, updated_at = ?
			WHERE collection = ? AND name = ? AND version = ?`),
			string(raw), time.Now().UTC(), id.Collection, id.Name, version,
		)
	}
	if err != nil {
		return fmt.Errorf("write document: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s is not at version %q: %w", id, expected, core.ErrConflict)
	}
	return nil
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string { return "sql/" + s.driver }

// State implements introspection.Introspectable.
func (s *Store) State() any {
	stats := s.db.Stats()
	return map[string]any{
		"driver":           s.driver,
		"open_connections": stats.OpenConnections,
		"in_use":           stats.InUse,
	}
}
