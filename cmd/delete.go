package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PolarWolf314/lockbox/internal/ui"
	"github.com/PolarWolf314/lockbox/internal/workflows"
)

func init() {
	RootCmd.AddCommand(deleteCmd)
}

var deleteCmd = &cobra.Command{
	Use:     "delete <archive> <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a credential",
	Long: `Deletes a credential and saves the repository. With backups enabled
the previous archive is kept as a backup.

Examples:
  lockbox delete ~/vault.lbx github`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting delete command")
		path, id := args[0], args[1]

		env, err := loadEnv()
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to load configuration: %v", err)
		}
		defer env.Flush()

		password, err := readPassphrase("Passphrase: ")
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to read passphrase: %v", err)
		}
		defer wipe(password)

		spinner, cleanup := startSpinner("Deleting credential...", verbose)
		defer cleanup()

		result, err := workflows.Delete(cmd.Context(), env, workflows.DeleteOptions{
			Target: workflows.Target{Path: path, Password: password},
			ID:     id,
		})
		if err != nil {
			spinner.FinalMSG = formatRepositoryError(env, path, err)
			return reported(err)
		}

		spinner.FinalMSG = fmt.Sprintf("%s Deleted %s (%d credentials left)%s",
			ui.Success.Sprint("✓"), ui.Highlight.Sprint(id), result.Count, copyBackNotice(result.SaveOutcome))
		return nil
	},
}
