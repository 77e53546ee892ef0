package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoio/internal/cli/prompt"
	"github.com/marmos91/dittoio/pkg/config"
)

var (
	initForce       bool
	initInteractive bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file",
	Long: `Write a dittoio configuration file with default values.

By default, the file is created at $XDG_CONFIG_HOME/dittoio/config.yaml.
Use --config to choose another path.

Examples:
  # Initialize with default location
  dittoio config init

  # Ask for the cache directory and records backend
  dittoio config init --interactive

  # Force overwrite existing config
  dittoio config init --config /etc/dittoio/config.yaml --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing config file")
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "Prompt for the main settings")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configPath(cmd)

	if _, err := os.Stat(path); err == nil {
		ok, err := prompt.ConfirmWithForce(fmt.Sprintf("%s exists. Overwrite?", path), initForce)
		if err != nil {
			if prompt.IsAborted(err) {
				return nil
			}
			return err
		}
		if !ok {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}
	}

	cfg := config.GetDefaultConfig()
	if initInteractive {
		if err := askSettings(cfg); err != nil {
			if prompt.IsAborted(err) {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
			return err
		}
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := config.SaveConfig(cfg, path); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", path)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Edit the configuration file to enable the handlers you need")
	_, _ = fmt.Fprintf(out, "  2. Start the server with: dittoio start --config %s\n", path)
	return nil
}

// askSettings fills the settings most users change. Records of on-disk
// backends follow the chosen cache root.
func askSettings(cfg *config.Config) error {
	root, err := prompt.InputPath("Cache directory", cfg.Cache.Root)
	if err != nil {
		return err
	}
	cfg.Cache.Root = filepath.Clean(root)

	backend, err := prompt.Select("Transfer records", []prompt.SelectOption{
		{Label: "memory", Value: string(config.RecordsMemory), Description: "Lost on restart"},
		{Label: "badger", Value: string(config.RecordsBadger), Description: "Embedded key-value store next to the cache"},
		{Label: "sqlite", Value: string(config.RecordsSQL), Description: "SQLite file next to the cache"},
	})
	if err != nil {
		return err
	}
	cfg.Records.Backend = config.RecordsBackend(backend)
	cfg.Records.Badger.Path = ""
	cfg.Records.SQL.SQLite.Path = ""

	async, err := prompt.Confirm("Run transfers asynchronously", cfg.IO.Async)
	if err != nil {
		return err
	}
	cfg.IO.Async = async

	config.ApplyDefaults(cfg)
	return nil
}
