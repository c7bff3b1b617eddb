// Package store implements the Store Façade: open/close lifecycle,
// transactional element reads and writes, relation writes, introspection,
// and pass-through execution against a schema.Model-driven set of
// collections.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/dukaforge/silo/pkg/dberr"
	"github.com/dukaforge/silo/pkg/migrate"
	"github.com/dukaforge/silo/pkg/schema"
	"github.com/dukaforge/silo/pkg/schemavalidate"
)

// MemoryPath denotes an ephemeral, non-persisted store.
const MemoryPath = ":memory:"

// Options configures Open, FromSchema and FromMigrations.
type Options struct {
	ReadOnly     bool
	ConsoleLevel slog.Level
}

// DefaultOptions returns a read-write store logging at Warn and above.
func DefaultOptions() Options {
	return Options{ReadOnly: false, ConsoleLevel: slog.LevelWarn}
}

// execer is the common subset of *sql.DB and *sql.Tx that store operations
// need; it lets every read/write helper run against either the bare
// connection or the active top-level transaction without duplicating code.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Store is a single handle against one on-disk (or in-memory) SQLite
// file. Scheduling model is single-threaded per handle; the façade holds
// no mutex because concurrent use of one handle is a caller contract,
// not something the façade enforces.
type Store struct {
	db     *sql.DB
	path   string
	model  *schema.Model
	logger *slog.Logger

	tx *sql.Tx // the active top-level transaction, nil when none is open
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Open opens path (or an in-memory store for MemoryPath) without loading a
// schema. Callers that need the Schema Model populated should use
// FromSchema or FromMigrations, or call LoadSchema afterward.
func Open(path string, opts Options) (*Store, error) {
	db, err := openDB(path, opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, path: path, model: schema.NewModel(), logger: newLogger(opts.ConsoleLevel)}, nil
}

func openDB(path string, opts Options) (*sql.DB, error) {
	dsn := path
	if path != MemoryPath {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, dberr.Newf(dberr.PermissionDenied, path, "creating store directory: %v", err)
			}
		}
		if opts.ReadOnly {
			dsn = fmt.Sprintf("file:%s?mode=ro", path)
		}
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, dberr.Newf(dberr.SqlError, path, "opening store: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, dberr.Newf(dberr.SqlError, path, "opening store: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, dberr.Newf(dberr.SqlError, path, "enabling foreign keys: %v", err)
	}
	return db, nil
}

// FromSchema opens path, validates ddl's shape, applies it, and populates
// the Schema Model from the validated result. A fresh store is migrated
// to the validated shape; reopening an already-initialised store with the
// same DDL is idempotent only if the DDL itself is CREATE TABLE IF NOT
// EXISTS-shaped, which is the caller's responsibility — the validator
// checks shape, not idempotency.
func FromSchema(path, ddl string, opts Options) (*Store, error) {
	model, err := schemavalidate.Validate(ddl)
	if err != nil {
		return nil, err
	}

	db, err := openDB(path, opts)
	if err != nil {
		return nil, err
	}
	for _, stmt := range schemavalidate.SplitStatements(ddl) {
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, dberr.Newf(dberr.SqlError, path, "applying schema: %v", err)
		}
	}

	return &Store{db: db, path: path, model: model, logger: newLogger(opts.ConsoleLevel)}, nil
}

// FromMigrations opens path and runs the Migration Runner against dir,
// then loads the resulting schema shape by inspecting sqlite_master (the
// runner itself does not know the Schema Model; it only executes SQL).
func FromMigrations(path, dir string, opts Options) (*Store, error) {
	db, err := openDB(path, opts)
	if err != nil {
		return nil, err
	}

	runner := &migrate.Runner{DB: db}
	if _, err := runner.Run(context.Background(), dir); err != nil {
		db.Close()
		return nil, err
	}

	model, err := introspectSchema(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, path: path, model: model, logger: newLogger(opts.ConsoleLevel)}, nil
}

// LoadSchema replaces the in-memory Schema Model by validating ddl without
// re-executing it. Useful when a store was opened with Open and the DDL
// was applied out of band.
func (s *Store) LoadSchema(ddl string) error {
	model, err := schemavalidate.Validate(ddl)
	if err != nil {
		return err
	}
	s.model = model
	return nil
}

// introspectSchema rebuilds a schema.Model from sqlite_master's CREATE
// TABLE statements after the migration runner has applied DDL that the
// façade never saw directly.
func introspectSchema(db *sql.DB) (*schema.Model, error) {
	rows, err := db.Query(`SELECT sql FROM sqlite_master WHERE type = 'table' AND sql IS NOT NULL ORDER BY name`)
	if err != nil {
		return nil, dberr.Newf(dberr.SqlError, "sqlite_master", "introspecting schema: %v", err)
	}
	defer rows.Close()

	var ddl string
	for rows.Next() {
		var stmt string
		if err := rows.Scan(&stmt); err != nil {
			return nil, dberr.Newf(dberr.SqlError, "sqlite_master", "scanning schema: %v", err)
		}
		ddl += stmt + ";\n"
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Newf(dberr.SqlError, "sqlite_master", "reading schema: %v", err)
	}

	return schemavalidate.Validate(ddl)
}

// Close releases the handle. A store with an open top-level transaction
// rolls it back before closing.
func (s *Store) Close() error {
	if s.tx != nil {
		_ = s.tx.Rollback()
		s.tx = nil
	}
	return s.db.Close()
}

// Model returns the store's in-memory Schema Model.
func (s *Store) Model() *schema.Model { return s.model }

// ex returns whatever the store should execute SQL against right now: the
// active top-level transaction if one is open, or the bare connection.
func (s *Store) ex() execer {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// CurrentVersion reads the persisted version (0 for a fresh store).
func (s *Store) CurrentVersion() (int64, error) {
	var v int64
	if err := s.ex().QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, dberr.Newf(dberr.SqlError, "user_version", "reading version: %v", err)
	}
	return v, nil
}

// SetVersion persists v directly, bypassing the migration runner. Exposed
// for adapters and tests; the runner is the normal path for advancing it.
func (s *Store) SetVersion(v int64) error {
	if _, err := s.ex().Exec(fmt.Sprintf("PRAGMA user_version = %d", v)); err != nil {
		return dberr.Newf(dberr.SqlError, "user_version", "writing version: %v", err)
	}
	return nil
}
