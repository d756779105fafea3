package cmd

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/PolarWolf314/lockbox/internal/ui"
	"github.com/PolarWolf314/lockbox/internal/workflows"
)

func init() {
	RootCmd.AddCommand(verifyCmd)
}

var verifyCmd = &cobra.Command{
	Use:   "verify <archive>",
	Short: "Check a repository for corruption",
	Long: `Decrypts a repository, then decodes the archive a second time and
compares both copies credential by credential.

Examples:
  lockbox verify ~/vault.lbx`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting verify command")
		path := args[0]

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

		spinner, cleanup := startSpinner("Verifying repository...", verbose)
		defer cleanup()

		result, err := workflows.Verify(cmd.Context(), env, workflows.VerifyOptions{
			Target: workflows.Target{Path: path, Password: password},
		})
		if err != nil {
			spinner.FinalMSG = formatRepositoryError(env, path, err)
			return reported(err)
		}

		spinner.FinalMSG = formatIntegrityReport(result)
		if !result.Report.OK() {
			return reported(fmt.Errorf("integrity check failed for %s", path))
		}
		return nil
	},
}

func formatIntegrityReport(result *workflows.VerifyResult) string {
	r := result.Report
	pairs := [][2]string{
		{"layout", string(r.Layout)},
		{"metadata count", fmt.Sprint(r.MetadataCount)},
		{"archive count", fmt.Sprint(r.ArchiveCount)},
		{"loaded count", fmt.Sprint(r.MemoryCount)},
	}
	if result.LatestBackup != nil {
		pairs = append(pairs, [2]string{"latest backup",
			ui.Path.Sprint(result.LatestBackup.Path) + " (" + humanize.Time(result.LatestBackup.Created) + ")"})
	}

	var b strings.Builder
	if r.OK() {
		b.WriteString(ui.Success.Sprint("✓") + " " + ui.Path.Sprint(r.Archive) + " is intact\n")
	} else {
		b.WriteString(ui.Error.Sprint("✗") + " " + ui.Path.Sprint(r.Archive) + " differs from the loaded state\n")
	}
	b.WriteString(ui.KeyValue(pairs))
	writeIDs(&b, "missing from archive", r.MissingFromArchive)
	writeIDs(&b, "missing from memory", r.MissingFromMemory)
	writeIDs(&b, "differing", r.Differing)
	if r.Unsaved {
		b.WriteString(ui.Warning.Sprint("⚠") + " the session had unsaved changes\n")
	}
	if !r.OK() {
		b.WriteString(ui.Info.Sprint("→") + " Restore the repository from a backup")
	}
	return b.String()
}

func writeIDs(b *strings.Builder, label string, ids []string) {
	if len(ids) == 0 {
		return
	}
	b.WriteString(ui.Warning.Sprint("⚠") + " " + label + ": " + strings.Join(ids, ", ") + "\n")
}
