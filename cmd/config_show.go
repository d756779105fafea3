package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/PolarWolf314/lockbox/internal/configs"
	"github.com/PolarWolf314/lockbox/internal/ui"
)

var configShowJSON bool

func init() {
	configShowCmd.Flags().BoolVar(&configShowJSON, "json", false, "output in JSON format")
	ConfigCmd.AddCommand(configShowCmd)
}

// resetConfigShowState resets the config show command's global state for testing.
func resetConfigShowState() {
	configShowJSON = false
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	Long: `Displays the configuration lockbox runs with: the config file merged
over the defaults.

Examples:
  lockbox config show
  lockbox config show --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting config show command")

		paths, err := configs.ResolvePaths()
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to resolve config paths: %v", err)
		}

		cfg, unknown, err := configs.Load(paths.ConfigFile)
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to load config: %v", err)
		}
		for _, key := range unknown {
			Logger.WarnfUser("Unknown config key %q in %s", key, paths.ConfigFile)
		}

		if configShowJSON {
			output, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return Logger.ErrorfAndReturn("Failed to marshal config to JSON: %v", err)
			}
			fmt.Println(string(output))
			return nil
		}

		outputConfigText(paths, cfg)
		return nil
	},
}

func outputConfigText(paths *configs.Paths, cfg *configs.Config) {
	fmt.Println(ui.Info.Sprint("Configuration") + " (" + ui.Path.Sprint(paths.ConfigFile) + "):")
	fmt.Println()

	tempRoot := cfg.TempRoot
	if tempRoot == "" {
		tempRoot = ui.Muted.Sprint("system temp directory")
	}
	backupDir := cfg.Backup.Dir
	if backupDir == "" {
		backupDir = ui.Muted.Sprint("next to the archive")
	}
	metrics := cfg.MetricsTextfile
	if metrics == "" {
		metrics = ui.Muted.Sprint("disabled")
	}

	fmt.Print(ui.KeyValue([][2]string{
		{"backend", cfg.Backend},
		{"temp_root", tempRoot},
		{"operation_timeout", cfg.OperationTimeout.String()},
		{"lock_timeout", cfg.LockTimeout.String()},
		{"min_password_length", strconv.Itoa(cfg.MinPasswordLength)},
		{"audit", strconv.FormatBool(cfg.Audit) + " " + ui.Muted.Sprint(paths.AuditFile)},
		{"metrics_textfile", metrics},
		{"backup.enabled", strconv.FormatBool(cfg.Backup.Enabled)},
		{"backup.count", strconv.Itoa(cfg.Backup.Count)},
		{"backup.dir", backupDir},
		{"argon2", fmt.Sprintf("time=%d memory=%dKiB threads=%d", cfg.Argon2.Time, cfg.Argon2.MemoryKiB, cfg.Argon2.Threads)},
	}))
}
