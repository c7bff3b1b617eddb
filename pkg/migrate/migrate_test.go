package migrate

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func openMemDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func writeMigrationFile(t *testing.T, root string, version, name, sql string) {
	t.Helper()
	dir := filepath.Join(root, version)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(sql), 0o644))
}

func TestDiscoverSkipsNonIntegerDirectories(t *testing.T) {
	root := t.TempDir()
	writeMigrationFile(t, root, "1", "a.sql", "SELECT 1;")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "12abc"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "0"), 0o755))

	migrations, err := Discover(root)
	require.NoError(t, err)
	require.Len(t, migrations, 1)
	require.Equal(t, int64(1), migrations[0].Version)
}

func TestDiscoverOrdersFilesLexicographicallyWithinAVersion(t *testing.T) {
	root := t.TempDir()
	writeMigrationFile(t, root, "1", "b.sql", "SELECT 1;")
	writeMigrationFile(t, root, "1", "a.sql", "SELECT 1;")

	migrations, err := Discover(root)
	require.NoError(t, err)
	require.Len(t, migrations, 1)
	require.Len(t, migrations[0].Files, 2)
	require.Contains(t, migrations[0].Files[0], "a.sql")
	require.Contains(t, migrations[0].Files[1], "b.sql")
}

func TestRunSkipsGapsAndIsMonotonic(t *testing.T) {
	root := t.TempDir()
	writeMigrationFile(t, root, "1", "a.sql", "CREATE TABLE t1 (id INTEGER);")
	writeMigrationFile(t, root, "3", "a.sql", "CREATE TABLE t3 (id INTEGER);")

	db := openMemDB(t)
	r := &Runner{DB: db}

	v, err := r.Run(context.Background(), root)
	require.NoError(t, err)
	require.Equal(t, int64(3), v)

	current, err := r.CurrentVersion(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(3), current)
}

func TestRunIsANoOpWhenNothingPending(t *testing.T) {
	root := t.TempDir()
	writeMigrationFile(t, root, "1", "a.sql", "CREATE TABLE t1 (id INTEGER);")

	db := openMemDB(t)
	r := &Runner{DB: db}

	_, err := r.Run(context.Background(), root)
	require.NoError(t, err)

	v, err := r.Run(context.Background(), root)
	require.NoError(t, err)
	require.Equal(t, int64(1), v)
}

func TestRunHaltsOnFailureAndKeepsLowerVersionsApplied(t *testing.T) {
	root := t.TempDir()
	writeMigrationFile(t, root, "1", "a.sql", "CREATE TABLE t1 (id INTEGER);")
	writeMigrationFile(t, root, "2", "a.sql", "THIS IS NOT VALID SQL;")

	db := openMemDB(t)
	r := &Runner{DB: db}

	_, err := r.Run(context.Background(), root)
	require.Error(t, err)

	current, err := r.CurrentVersion(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), current)
}
