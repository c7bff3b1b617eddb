// Open command: sanity-opens a store from a schema file or a migrations
// directory and reports its shape.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukaforge/silo/pkg/store"
)

var (
	openSchemaFile    string
	openMigrationsDir string
)

var openCmd = &cobra.Command{
	Use:   "open <db-path>",
	Short: "Open a store from --schema or --migrations and report its shape",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := resolveDBPath(args[0])
		if err != nil {
			fail("open", err, exitSysError)
		}

		s, err := openFromFlags(dbPath)
		if err != nil {
			fail("open", err, exitCodeFor(err))
		}
		defer s.Close()

		fmt.Println("opened", dbPath)
		fmt.Println("collections:", s.GetCollections())
		return nil
	},
}

func openFromFlags(dbPath string) (*store.Store, error) {
	switch {
	case openSchemaFile != "":
		return openStoreWithSchema(dbPath, openSchemaFile)
	case openMigrationsDir != "":
		return openStoreWithMigrations(dbPath, openMigrationsDir)
	default:
		return openStore(dbPath)
	}
}

func init() {
	openCmd.Flags().StringVar(&openSchemaFile, "schema", "", "schema DDL file to validate and apply")
	openCmd.Flags().StringVar(&openMigrationsDir, "migrations", "", "migrations root directory to run")
}
