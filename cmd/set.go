package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PolarWolf314/lockbox/internal/ui"
	"github.com/PolarWolf314/lockbox/internal/utils"
	"github.com/PolarWolf314/lockbox/internal/workflows"
)

var (
	setSensitive bool
	setStdin     bool
)

func init() {
	setCmd.Flags().BoolVar(&setSensitive, "sensitive", false, "mark the field sensitive")
	setCmd.Flags().BoolVar(&setStdin, "stdin", false, "read the value from stdin")
	RootCmd.AddCommand(setCmd)
}

func resetSetCommandState() {
	setSensitive = false
	setStdin = false
}

var setCmd = &cobra.Command{
	Use:   "set <archive> <id> <field> [value]",
	Short: "Set one field of a credential",
	Long: `Creates or replaces one field of an existing credential and saves the
repository.

With --stdin the value is read from stdin, which keeps it out of shell
history; the passphrase is then read from the terminal.

Examples:
  lockbox set ~/vault.lbx github username octocat
  pbpaste | lockbox set ~/vault.lbx github password --stdin --sensitive`,
	Args: cobra.RangeArgs(3, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting set command")
		path, id, field := args[0], args[1], args[2]

		value, err := fieldValue(args)
		if err != nil {
			return err
		}

		env, err := loadEnv()
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to load configuration: %v", err)
		}
		defer env.Flush()

		password, err := readSetPassphrase()
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to read passphrase: %v", err)
		}
		defer wipe(password)

		spinner, cleanup := startSpinner("Updating credential...", verbose)
		defer cleanup()

		result, err := workflows.Set(cmd.Context(), env, workflows.SetOptions{
			Target:    workflows.Target{Path: path, Password: password},
			ID:        id,
			Field:     field,
			Value:     value,
			Sensitive: setSensitive,
		})
		if err != nil {
			spinner.FinalMSG = formatRepositoryError(env, path, err)
			return reported(err)
		}

		spinner.FinalMSG = fmt.Sprintf("%s Set %s on %s%s",
			ui.Success.Sprint("✓"), ui.Code.Sprint(field), ui.Highlight.Sprint(result.ID), copyBackNotice(result.SaveOutcome))
		return nil
	},
}

func fieldValue(args []string) (string, error) {
	switch {
	case setStdin && len(args) == 4:
		return "", fmt.Errorf("give the value as an argument or with --stdin, not both")
	case setStdin:
		data, err := utils.ReadStdin()
		if err != nil {
			return "", err
		}
		return string(utils.TrimLineEnding(data)), nil
	case len(args) == 4:
		return args[3], nil
	default:
		return "", fmt.Errorf("missing value: give it as an argument or use --stdin")
	}
}

// readSetPassphrase avoids stdin when it already carries the field value.
func readSetPassphrase() ([]byte, error) {
	if !setStdin {
		return readPassphrase("Passphrase: ")
	}
	if passphraseStdin {
		return nil, fmt.Errorf("--stdin and --passphrase-stdin cannot be combined")
	}
	if _, ok := lookupPassphraseEnv(); ok {
		return readPassphrase("")
	}
	if !utils.IsTTYAvailable() {
		return nil, fmt.Errorf("no terminal available for the passphrase; set %s", passphraseEnv)
	}
	return utils.ReadPassphraseFromTTY("Passphrase: ")
}
