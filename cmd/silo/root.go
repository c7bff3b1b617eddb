// Root command for the silo CLI.
package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dukaforge/silo/internal/config"
	"github.com/dukaforge/silo/internal/paths"
)

// Process exit codes. exitCodeFor collapses an error's adapter code onto
// exitUserError or exitSysError.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Global flag values, shared by every subcommand.
var (
	flagConfigDir string
	flagDataDir   string
	flagJSON      bool
	flagLogLevel  string
)

// configDataDir holds the data_dir value loaded from config.yaml, set by
// PersistentPreRunE so every subcommand can use it without reloading.
var configDataDir string

var rootCmd = &cobra.Command{
	Use:     "silo",
	Short:   "silo is an embedded, schema-aware element store",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		configDir, err := resolveConfigDir()
		if err != nil {
			return err
		}
		cfg, err := config.Load(configDir)
		if err != nil {
			return err
		}
		configDataDir = cfg.GetString(config.KeyDataDir)
		if flagLogLevel == "" {
			flagLogLevel = cfg.GetString(config.KeyLogLevel)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: XDG config dir)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory for relative db-path arguments (default: $(CWD)/.silo-db)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "console log level: debug, info, warn, error, off")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(execCmd)
}

// resolveConfigDir returns the configuration directory following the
// precedence chain: --config-dir flag > SILO_CONFIG_DIR env > default.
func resolveConfigDir() (string, error) {
	return paths.ResolveConfigDir(flagConfigDir)
}

// resolveDataDir returns the data directory following the precedence
// chain: --data-dir flag > config.yaml data_dir > SILO_DATA_DIR env >
// default. PersistentPreRunE must have run first to populate configDataDir.
func resolveDataDir() (string, error) {
	return paths.ResolveDataDir(flagDataDir, configDataDir)
}

// resolveDBPath joins a relative db-path argument onto the resolved data
// directory, leaving an absolute path untouched.
func resolveDBPath(dbPath string) (string, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return "", err
	}
	return paths.ResolveStorePath(dataDir, dbPath)
}

// consoleLevel parses flagLogLevel into a slog.Level, defaulting to Warn
// for an empty, "off" or unrecognised value; "off" gets no level or
// handler of its own.
func consoleLevel() slog.Level {
	switch flagLogLevel {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
