package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/PolarWolf314/lockbox/internal/ui"
	"github.com/PolarWolf314/lockbox/internal/workflows"
)

func init() {
	RootCmd.AddCommand(backupsCmd)
}

var backupsCmd = &cobra.Command{
	Use:   "backups <archive>",
	Short: "List backups of a repository",
	Long: `Lists the backups kept for a repository, newest first.

A backup is a copy of the archive taken before it is replaced. To restore
one, copy it over the archive; it opens with the passphrase that was in use
when it was taken.

Examples:
  lockbox backups ~/vault.lbx`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting backups command")
		path := args[0]

		env, err := loadEnv()
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to load configuration: %v", err)
		}

		backups, err := workflows.Backups(env, path)
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to list backups: %v", err)
		}
		Logger.Debugf("Found %d backups", len(backups))

		if len(backups) == 0 {
			fmt.Println(ui.Info.Sprint("ℹ") + " No backups found for " + ui.Path.Sprint(path))
			if !env.Config.Backup.Enabled {
				fmt.Println(ui.Info.Sprint("→") + " Backups are disabled; enable them with " + ui.Code.Sprint("[backup] enabled = true"))
			}
			return nil
		}

		for _, b := range backups {
			fmt.Printf("%-19s  %10s  %s\n",
				b.Created.Format("2006-01-02 15:04:05"), humanize.Bytes(uint64(b.Size)), ui.Path.Sprint(b.Path))
		}
		return nil
	},
}
