package cmd

import (
	"github.com/spf13/cobra"
)

// ConfigCmd is the top-level config command.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage lockbox configuration",
	Long: `Provides commands for managing the user configuration file.

The file lives at $XDG_CONFIG_HOME/lockbox/config.toml unless
LOCKBOX_CONFIG names another path.

Examples:
  # Write a config file with the defaults
  lockbox config init

  # Keep plaintext in memory instead of a temp directory
  lockbox config init --backend legacy --force

  # Show the effective configuration
  lockbox config show`,
}

func init() {
	RootCmd.AddCommand(ConfigCmd)
}

// GetConfigCmd returns the ConfigCmd for testing.
func GetConfigCmd() *cobra.Command {
	return ConfigCmd
}

// resetConfigState resets all config command global variables to their default values for testing.
func resetConfigState() {
	resetConfigInitState()
	resetConfigShowState()
}
