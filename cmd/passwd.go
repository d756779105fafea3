package cmd

import (
	"github.com/spf13/cobra"

	"github.com/PolarWolf314/lockbox/internal/ui"
	"github.com/PolarWolf314/lockbox/internal/workflows"
)

func init() {
	RootCmd.AddCommand(passwdCmd)
}

var passwdCmd = &cobra.Command{
	Use:   "passwd <archive>",
	Short: "Change the passphrase of a repository",
	Long: `Re-encrypts a repository under a new passphrase.

The current passphrase is read as usual; the new one comes from
LOCKBOX_NEW_PASSPHRASE or is prompted for twice. If writing fails the
repository still opens with the current passphrase.

Examples:
  lockbox passwd ~/vault.lbx`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting passwd command")
		path := args[0]

		env, err := loadEnv()
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to load configuration: %v", err)
		}
		defer env.Flush()

		current, err := readPassphrase("Current passphrase: ")
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to read passphrase: %v", err)
		}
		defer wipe(current)

		next, err := readNewPassphrase(newPassphraseEnv, "New passphrase: ")
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to read new passphrase: %v", err)
		}
		defer wipe(next)

		spinner, cleanup := startSpinner("Re-encrypting repository...", verbose)
		defer cleanup()

		result, err := workflows.Rotate(cmd.Context(), env, workflows.RotateOptions{
			Target:      workflows.Target{Path: path, Password: current},
			NewPassword: next,
		})
		if err != nil {
			spinner.FinalMSG = formatRepositoryError(env, path, err)
			return reported(err)
		}

		spinner.FinalMSG = ui.Success.Sprint("✓") + " Passphrase changed for " + ui.Path.Sprint(result.Path) +
			copyBackNotice(result.SaveOutcome)
		return nil
	},
}
