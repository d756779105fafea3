package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PolarWolf314/lockbox/internal/ui"
	"github.com/PolarWolf314/lockbox/internal/workflows"
)

var (
	doctorJSONOutput bool
	doctorArchive    string

	// doctorExitFunc reports the result's exit code; tests replace it.
	doctorExitFunc = os.Exit
)

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSONOutput, "json", false, "output in JSON format")
	doctorCmd.Flags().StringVar(&doctorArchive, "archive", "", "also check this repository file")
	RootCmd.AddCommand(doctorCmd)
}

func resetDoctorCommandState() {
	doctorJSONOutput = false
	doctorArchive = ""
	doctorExitFunc = os.Exit
}

// SetDoctorExitFunc sets the exit function for testing purposes.
func SetDoctorExitFunc(f func(int)) {
	doctorExitFunc = f
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks on the local lockbox setup",
	Long: `Checks the local setup, and with --archive one repository file. No
passphrase is needed and nothing is changed.

  Setup:    config file, temp root, stale workspaces, audit log
  Archive:  file permissions, lock holder, backups

Exits 0 when every check is ok, 1 on warnings and 2 when a check failed.
Use --json for machine-readable output.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting doctor command")

	env, err := workflows.LoadEnv(Logger)
	if err != nil {
		return Logger.ErrorfAndReturn("Failed to load configuration: %v", err)
	}

	spinner, cleanup := startSpinner("Running health checks...", verbose)
	result, err := workflows.Doctor(env, workflows.DoctorOptions{Archive: doctorArchive})
	if err != nil {
		spinner.FinalMSG = ui.Error.Sprint("✗") + " Failed to run health checks: " + err.Error()
		cleanup()
		return reported(err)
	}
	spinner.FinalMSG = ""
	cleanup()

	if doctorJSONOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(result); err != nil {
			return err
		}
	} else {
		fmt.Print(formatDoctorReport(result))
	}

	if code := result.ExitCode(); code != 0 {
		doctorExitFunc(code)
	}
	return nil
}

func severityMark(sev workflows.Severity) string {
	switch sev {
	case workflows.SeverityWarn:
		return ui.Warning.Sprint("⚠")
	case workflows.SeverityFail:
		return ui.Error.Sprint("✗")
	}
	return ui.Success.Sprint("✓")
}

// formatDoctorReport renders findings grouped by scope with the fix for each
// problem indented under it.
func formatDoctorReport(result *workflows.DoctorResult) string {
	width := 0
	for _, f := range result.Findings {
		width = max(width, len(f.Check))
	}

	var b strings.Builder
	section := func(title string, findings []workflows.Finding) {
		if len(findings) == 0 {
			return
		}
		b.WriteString(title + "\n")
		for _, f := range findings {
			fmt.Fprintf(&b, "  %s %-*s  %s\n", severityMark(f.Severity), width, f.Check, f.Detail)
			if f.Fix != "" && f.Severity != workflows.SeverityOK {
				fmt.Fprintf(&b, "    %*s %s %s\n", width, "", ui.Info.Sprint("→"), f.Fix)
			}
		}
		b.WriteString("\n")
	}
	section("Setup", result.InScope(workflows.ScopeSetup))
	section("Archive "+ui.Path.Sprint(result.Archive), result.InScope(workflows.ScopeArchive))

	fmt.Fprintf(&b, "%d checks: %d ok", len(result.Findings), result.Count(workflows.SeverityOK))
	if n := result.Count(workflows.SeverityWarn); n > 0 {
		b.WriteString(", " + ui.Warning.Sprintf("%d warning(s)", n))
	}
	if n := result.Count(workflows.SeverityFail); n > 0 {
		b.WriteString(", " + ui.Error.Sprintf("%d error(s)", n))
	}
	b.WriteString("\n")
	return b.String()
}
