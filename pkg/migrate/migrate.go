// Package migrate implements the Migration Runner: directory discovery,
// ordering, and atomic per-version application against a persisted
// version counter.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dukaforge/silo/pkg/dberr"
	"github.com/dukaforge/silo/pkg/schemavalidate"
)

// Migration is one numbered migration directory and the SQL files inside
// it, ordered lexicographically by file name.
type Migration struct {
	Version int64
	Dir     string
	Files   []string
}

// Discover scans root's immediate children. A child is a migration
// directory iff its whole name parses as a base-10 integer strictly
// greater than zero (a partial parse, e.g. "12abc", is not a migration
// and is silently skipped, mirroring std::stoll's pos-check in the
// original runner). Results are sorted ascending by version.
func Discover(root string) ([]Migration, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, dberr.Newf(dberr.FileNotFound, root, "reading migration root: %v", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		version, ok := parseVersionDirName(entry.Name())
		if !ok {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		files, err := sqlFilesIn(dir)
		if err != nil {
			return nil, err
		}
		migrations = append(migrations, Migration{Version: version, Dir: dir, Files: files})
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

func parseVersionDirName(name string) (int64, bool) {
	v, err := strconv.ParseInt(name, 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func sqlFilesIn(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, dberr.Newf(dberr.FileNotFound, dir, "reading migration directory: %v", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".sql") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// Runner applies pending migrations against a *sql.DB, persisting a
// monotone integer version in SQLite's user_version pragma slot.
type Runner struct {
	DB *sql.DB
}

// CurrentVersion reads the persisted version, 0 for a fresh store.
func (r *Runner) CurrentVersion(ctx context.Context) (int64, error) {
	row := r.DB.QueryRowContext(ctx, "PRAGMA user_version")
	var v int64
	if err := row.Scan(&v); err != nil {
		return 0, dberr.Newf(dberr.SqlError, "user_version", "reading version: %v", err)
	}
	return v, nil
}

// setVersion persists v inside an already-open transaction. user_version
// takes no bind parameter in SQLite, so v — an internally computed int64,
// never user input — is interpolated directly.
func setVersion(ctx context.Context, tx *sql.Tx, v int64) error {
	_, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", v))
	if err != nil {
		return dberr.Newf(dberr.SqlError, "user_version", "writing version: %v", err)
	}
	return nil
}

// Run discovers migrations under root, filters to those strictly greater
// than the current version, and applies each in its own transaction in
// ascending order. A failure aborts that version's transaction and halts
// the runner; previously applied versions remain committed. Returns the
// resulting current version (unchanged if nothing was pending).
func (r *Runner) Run(ctx context.Context, root string) (int64, error) {
	migrations, err := Discover(root)
	if err != nil {
		return 0, err
	}

	current, err := r.CurrentVersion(ctx)
	if err != nil {
		return 0, err
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := r.applyOne(ctx, m); err != nil {
			return current, err
		}
		current = m.Version
	}
	return current, nil
}

func (r *Runner) applyOne(ctx context.Context, m Migration) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return dberr.Newf(dberr.SqlError, m.Dir, "beginning migration transaction: %v", err)
	}

	for _, file := range m.Files {
		content, err := os.ReadFile(file)
		if err != nil {
			tx.Rollback()
			return dberr.Newf(dberr.FileNotFound, file, "reading migration file: %v", err)
		}
		for _, stmt := range schemavalidate.SplitStatements(string(content)) {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				tx.Rollback()
				return dberr.Newf(dberr.SqlError, file, "applying migration statement: %v", err)
			}
		}
	}

	if err := setVersion(ctx, tx, m.Version); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return dberr.Newf(dberr.SqlError, m.Dir, "committing migration: %v", err)
	}
	return nil
}
