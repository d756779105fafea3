package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/PolarWolf314/lockbox/internal/configs"
	"github.com/PolarWolf314/lockbox/internal/ui"
	"github.com/PolarWolf314/lockbox/internal/utils"
)

var (
	configInitForce    bool
	configInitBackend  string
	configInitTempRoot string
)

func init() {
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "overwrite an existing config file")
	configInitCmd.Flags().StringVar(&configInitBackend, "backend", configs.BackendHybrid, "repository backend (hybrid or legacy)")
	configInitCmd.Flags().StringVar(&configInitTempRoot, "temp-root", "", "directory for extraction workspaces")
	ConfigCmd.AddCommand(configInitCmd)
}

// resetConfigInitState resets the config init command's global state for testing.
func resetConfigInitState() {
	configInitForce = false
	configInitBackend = configs.BackendHybrid
	configInitTempRoot = ""
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with default settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting config init command")

		paths, err := configs.ResolvePaths()
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to resolve config paths: %v", err)
		}
		Logger.Debugf("Config file: %s", paths.ConfigFile)

		if _, err := os.Stat(paths.ConfigFile); err == nil && !configInitForce {
			fmt.Println(ui.Warning.Sprint("⚠") + " " + ui.Path.Sprint(paths.ConfigFile) + " already exists")
			fmt.Println(ui.Info.Sprint("→") + " Use " + ui.Flag.Sprint("--force") + " to overwrite it")
			return nil
		}

		cfg := configs.Default()
		cfg.Backend = configInitBackend
		if cfg.TempRoot, err = utils.ExpandPath(configInitTempRoot); err != nil {
			return Logger.ErrorfAndReturn("Invalid temp root: %v", err)
		}

		if err := configs.Save(paths.ConfigFile, cfg); err != nil {
			return Logger.ErrorfAndReturn("Failed to write config: %v", err)
		}

		fmt.Println(ui.Success.Sprint("✓") + " Wrote " + ui.Path.Sprint(paths.ConfigFile))
		return nil
	},
}
