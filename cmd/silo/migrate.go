// Migrate command: runs the Migration Runner against db-path.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate <db-path> <migrations-dir>",
	Short: "Apply pending migrations from migrations-dir",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[1]

		dbPath, err := resolveDBPath(args[0])
		if err != nil {
			fail("migrate", err, exitSysError)
		}

		s, err := openStoreWithMigrations(dbPath, dir)
		if err != nil {
			fail("migrate", err, exitSysError)
		}
		defer s.Close()

		v, err := s.CurrentVersion()
		if err != nil {
			fail("migrate", err, exitSysError)
		}
		fmt.Println("current_version:", v)
		return nil
	},
}
