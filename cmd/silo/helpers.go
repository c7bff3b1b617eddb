// Shared helpers for silo CLI commands.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dukaforge/silo/pkg/dberr"
	"github.com/dukaforge/silo/pkg/store"
)

// openStore opens dbPath with the resolved global options and loads the
// Schema Model from the CREATE TABLE statements already stored in it, so
// commands that name a collection can find it. openStoreWithSchema and
// openStoreWithMigrations apply DDL before loading the model.
func openStore(dbPath string) (*store.Store, error) {
	opts := store.Options{ConsoleLevel: consoleLevel()}
	s, err := store.Open(dbPath, opts)
	if err != nil {
		return nil, err
	}
	rows, err := s.Execute(`SELECT sql FROM sqlite_master WHERE type = 'table' AND sql IS NOT NULL ORDER BY name`, nil)
	if err == nil {
		var ddl strings.Builder
		for i := 0; i < rows.RowCount(); i++ {
			ddl.WriteString(rows.GetString(i, 0) + ";\n")
		}
		err = s.LoadSchema(ddl.String())
	}
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func openStoreWithSchema(dbPath, schemaFile string) (*store.Store, error) {
	ddl, err := os.ReadFile(schemaFile)
	if err != nil {
		return nil, dberr.Newf(dberr.FileNotFound, schemaFile, "reading schema file: %v", err)
	}
	opts := store.Options{ConsoleLevel: consoleLevel()}
	return store.FromSchema(dbPath, string(ddl), opts)
}

func openStoreWithMigrations(dbPath, migrationsDir string) (*store.Store, error) {
	opts := store.Options{ConsoleLevel: consoleLevel()}
	return store.FromMigrations(dbPath, migrationsDir, opts)
}

// fail prints err to stderr and exits with the given code. Subcommands
// call this instead of returning an error so the exit code distinguishes
// user mistakes (exitUserError) from system/adapter failures (exitSysError).
func fail(verb string, err error, code int) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", verb, err)
	os.Exit(code)
}

// exitCodeFor maps err's adapter code to a process exit code: invalid
// input is a user error, everything else is a system error.
func exitCodeFor(err error) int {
	if dberr.ToAdapterCode(err) == dberr.InvalidArgument {
		return exitUserError
	}
	return exitSysError
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
