package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/PolarWolf314/lockbox/internal/audit"
	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
	"github.com/PolarWolf314/lockbox/internal/ui"
	"github.com/PolarWolf314/lockbox/internal/workflows"
)

var (
	logLimit     int
	logReverse   bool
	logUser      string
	logArchive   string
	logOperation string
	logSince     string
	logUntil     string
	logJSON      bool
)

func init() {
	logCmd.Flags().IntVarP(&logLimit, "number", "n", 0, "show only the N most recent entries")
	logCmd.Flags().BoolVar(&logReverse, "reverse", false, "list the newest entry first")
	logCmd.Flags().StringVar(&logUser, "user", "", "filter by user name")
	logCmd.Flags().StringVar(&logArchive, "archive", "", "filter by repository path")
	logCmd.Flags().StringVar(&logOperation, "operation", "", "only these operations, e.g. save,change-password")
	logCmd.Flags().StringVar(&logSince, "since", "", "first day to include (YYYY-MM-DD)")
	logCmd.Flags().StringVar(&logUntil, "until", "", "last day to include (YYYY-MM-DD)")
	logCmd.Flags().BoolVar(&logJSON, "json", false, "print entries as a JSON array")

	RootCmd.AddCommand(logCmd)
}

func resetLogCommandState() {
	logLimit = 0
	logReverse = false
	logUser = ""
	logArchive = ""
	logOperation = ""
	logSince = ""
	logUntil = ""
	logJSON = false
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the audit trail of repository operations",
	Long: `Displays the audit log of repository operations.

Shows who opened, saved or changed which repository and when. Use filters
to narrow down the results.

Examples:
  lockbox log                                   # View full log
  lockbox log -n 10                             # Last 10 entries
  lockbox log --reverse                         # Most recent first
  lockbox log --archive ~/vault.lbx             # One repository
  lockbox log --operation save,change-password  # Filter by operation
  lockbox log --since 2024-01-01                # Filter by date
  lockbox log --json                            # JSON output`,
	Args: cobra.NoArgs,
	RunE: runLog,
}

func runLog(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting log command")

	env, err := workflows.LoadEnv(Logger)
	if err != nil {
		return Logger.ErrorfAndReturn("Failed to load configuration: %v", err)
	}

	spinner, cleanup := startSpinner("Loading audit log...", verbose)
	defer cleanup()

	opts := workflows.LogOptions{
		Limit:      logLimit,
		Reverse:    logReverse,
		User:       logUser,
		Archive:    logArchive,
		Operations: logOperation,
		Since:      logSince,
		Until:      logUntil,
	}

	result, err := workflows.Log(env, opts)
	if err != nil {
		msg, benign := logErrorMessage(err)
		spinner.FinalMSG = msg
		if benign {
			return nil
		}
		return reported(err)
	}

	Logger.Debugf("Selected %d of %d audit entries", len(result.Entries), result.TotalEntriesBeforeFilter)

	spinner.FinalMSG = ""
	cleanup()

	switch {
	case logJSON:
		return outputLogJSON(result.Entries)
	case len(result.Entries) == 0:
		fmt.Println("No audit entries match the filters.")
	default:
		printLogEntries(result.Entries)
	}
	return nil
}

// logErrorMessage returns the message for err and whether the command
// should still exit successfully.
func logErrorMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, kerrors.ErrNotFound):
		return ui.Info.Sprint("ℹ") + " No audit log found. Operations are recorded once a repository command runs.", true
	case errors.Is(err, kerrors.ErrInvalidDateFormat):
		return ui.Error.Sprint("✗") + " " + err.Error(), true
	}
	return ui.Error.Sprint("✗") + " Failed to read audit log: " + err.Error(), false
}

func outputLogJSON(entries []audit.Entry) error {
	if entries == nil {
		entries = []audit.Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entries to JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// printLogEntries prints entries under a heading per local day. Failed
// operations are marked with a cross.
func printLogEntries(entries []audit.Entry) {
	day := ""
	for _, e := range entries {
		date, clock := "undated", e.Timestamp
		if at, ok := workflows.EntryTime(e); ok {
			at = at.Local()
			date, clock = at.Format(time.DateOnly), at.Format(time.TimeOnly)
		}
		if date != day {
			if day != "" {
				fmt.Println()
			}
			fmt.Println(date)
			day = date
		}

		mark := " "
		if e.Error != "" {
			mark = ui.Error.Sprint("✗")
		}
		details := workflows.Summarize(e)
		if details != "" {
			details = ui.Muted.Sprint(details)
		}
		fmt.Printf("  %s %s  %-15s  %-10s  %s  %s\n",
			mark, clock, e.Operation, e.User, ui.Path.Sprint(e.Archive), details)
	}
}
