// Init command: writes the default configuration only. No store is
// created until open/migrate names a database path.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukaforge/silo/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default silo configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configDir, err := resolveConfigDir()
		if err != nil {
			fail("init", err, exitSysError)
		}
		if err := config.EnsureDir(configDir); err != nil {
			fail("init", err, exitSysError)
		}
		cfg, err := config.Load(configDir)
		if err != nil {
			fail("init", err, exitSysError)
		}
		configDataDir = cfg.GetString(config.KeyDataDir)

		dataDir, err := resolveDataDir()
		if err != nil {
			fail("init", err, exitSysError)
		}

		fmt.Println("silo initialized")
		fmt.Println("  config:", configDir)
		fmt.Println("  data:  ", dataDir)
		return nil
	},
}
