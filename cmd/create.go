package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/PolarWolf314/lockbox/internal/ui"
	"github.com/PolarWolf314/lockbox/internal/workflows"
)

var createForce bool

func init() {
	createCmd.Flags().BoolVarP(&createForce, "force", "f", false, "replace an existing archive")
	RootCmd.AddCommand(createCmd)
}

func resetCreateCommandState() {
	createForce = false
}

var createCmd = &cobra.Command{
	Use:   "create <archive>",
	Short: "Create a new, empty repository",
	Long: `Creates a new encrypted repository at the given path.

The passphrase is asked for twice unless LOCKBOX_PASSPHRASE is set. An
existing file is only replaced with --force; with backups enabled a copy of
it is kept first.

Examples:
  lockbox create ~/vault.lbx
  LOCKBOX_PASSPHRASE=... lockbox create ~/vault.lbx --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting create command")
		path := args[0]

		if _, err := os.Stat(path); err == nil && !createForce {
			Logger.Debugf("Archive %s exists and --force was not given", path)
			return reported(printFailure(ui.Error.Sprint("✗")+" "+ui.Path.Sprint(path)+" already exists\n"+
				ui.Info.Sprint("→")+" Use "+ui.Flag.Sprint("--force")+" to replace it",
				errors.New("archive already exists")))
		}

		env, err := loadEnv()
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to load configuration: %v", err)
		}
		defer env.Flush()

		password, err := readNewPassphraseForCreate()
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to read passphrase: %v", err)
		}
		defer wipe(password)

		spinner, cleanup := startSpinner("Creating repository...", verbose)
		defer cleanup()

		result, err := workflows.Create(cmd.Context(), env, workflows.CreateOptions{
			Target: workflows.Target{Path: path, Password: password},
		})
		if err != nil {
			spinner.FinalMSG = formatRepositoryError(env, path, err)
			return reported(err)
		}

		spinner.FinalMSG = ui.Success.Sprint("✓") + " Created " + ui.Path.Sprint(result.Path) +
			" (" + string(env.Manager.Backend()) + " backend)" + copyBackNotice(result.SaveOutcome)
		return nil
	},
}

func readNewPassphraseForCreate() ([]byte, error) {
	if passphraseStdin {
		return readPassphrase("")
	}
	return readNewPassphrase(passphraseEnv, "New passphrase: ")
}

// printFailure prints msg and returns err for the caller to mark as reported.
func printFailure(msg string, err error) error {
	fmt.Print(ui.EnsureNewline(msg))
	return err
}
