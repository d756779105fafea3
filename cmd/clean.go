package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PolarWolf314/lockbox/internal/ui"
	"github.com/PolarWolf314/lockbox/internal/utils"
	"github.com/PolarWolf314/lockbox/internal/workflows"
)

var cleanDryRun bool

func init() {
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "show what would be removed without making changes")
	RootCmd.AddCommand(cleanCmd)
}

func resetCleanCommandState() {
	cleanDryRun = false
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove workspaces left behind by crashed processes",
	Long: `Removes extraction workspaces whose lockbox process is no longer running.

Such workspaces hold decrypted credentials. They appear when lockbox is
killed before it can clean up. Workspaces of running processes are kept.

Use --dry-run to preview what would be removed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting clean command")

		env, err := workflows.LoadEnv(Logger)
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to load configuration: %v", err)
		}

		result, err := workflows.Clean(cmd.Context(), env, workflows.CleanOptions{DryRun: cleanDryRun})
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to clean workspaces: %v", err)
		}

		if len(result.Stale) == 0 {
			fmt.Println(ui.Success.Sprint("✓") + " No stale workspaces found. Nothing to clean.")
			return nil
		}

		if result.DryRun {
			fmt.Printf("[dry-run] Would remove %d stale workspace(s):%s", len(result.Stale), utils.FormatPaths(result.Stale))
			fmt.Println("\nNo changes made.")
			return nil
		}

		fmt.Printf("%s Removed %d stale workspace(s):%s", ui.Success.Sprint("✓"), result.RemovedCount, utils.FormatPaths(result.Stale))
		return nil
	},
}
