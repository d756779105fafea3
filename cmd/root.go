package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	logger "github.com/PolarWolf314/lockbox/internal/logging"
	"github.com/PolarWolf314/lockbox/internal/registry"
	"github.com/PolarWolf314/lockbox/internal/workflows"
	"github.com/PolarWolf314/lockbox/internal/workspace"
)

var (
	verbose bool
	debug   bool
	Logger  logger.Logger

	RootCmd = &cobra.Command{
		Use:   "lockbox",
		Short: "lockbox - an encrypted credential repository",
		Long: `lockbox keeps credentials in a single passphrase-encrypted archive.

While a repository is open its plaintext lives in a private temporary
workspace (the hybrid backend) or only in memory (the legacy backend), and
every save replaces the archive atomically.

Usage:
  lockbox <command> [flags]

The passphrase is read from LOCKBOX_PASSPHRASE, from stdin with
--passphrase-stdin, or prompted for without echo.

Run 'lockbox help <command>' for more details on a specific command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
			}
			Logger.Debugf("Initializing lockbox with verbose=%t, debug=%t", verbose, debug)
		},
	}
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	RootCmd.PersistentFlags().BoolVar(&passphraseStdin, "passphrase-stdin", false, "read the passphrase from stdin")
}

// reportedError marks an error whose message the command already printed.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	return &reportedError{err: err}
}

// Execute runs the root command and returns the process exit code.
//
// SIGINT and SIGTERM cancel the command context and close the open
// repository. A second signal gets the default behavior. Before returning,
// Execute closes whatever session is still registered, waiting for work
// abandoned after a timeout so its workspace does not outlive the process.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	handled := make(chan struct{})
	go func() {
		defer close(handled)
		select {
		case <-ctx.Done():
			stop()
			closeOpenRepository("interrupt")
		case <-done:
		}
	}()

	err := RootCmd.ExecuteContext(ctx)
	close(done)
	<-handled
	closeOpenRepository("exit")

	if err == nil {
		return 0
	}

	var shown *reportedError
	if !errors.As(err, &shown) {
		fmt.Fprintln(os.Stderr, err)
	}
	return 1
}

// closeOpenRepository closes the session held by the process slot. It blocks
// until any operation still running on that session has finished.
func closeOpenRepository(reason string) {
	if err := registry.Process().CloseCurrent(); err != nil {
		Logger.Warnf("Closing repository on %s: %v", reason, err)
	}
}

// loadEnv reads configuration and removes workspaces left by crashed runs.
func loadEnv() (*workflows.Env, error) {
	env, err := workflows.LoadEnv(Logger)
	if err != nil {
		return nil, err
	}

	removed, err := workspace.SweepStale(env.TempRoot(), Logger)
	if err != nil {
		Logger.Warnf("Scanning for stale workspaces failed: %v", err)
	}
	if len(removed) > 0 {
		Logger.WarnfUser("Removed %d workspace(s) left by an earlier crash", len(removed))
	}
	return env, nil
}

// Helper functions for testing

// GetRootCmd returns the RootCmd for testing.
func GetRootCmd() *cobra.Command {
	return RootCmd
}

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	passphraseStdin = false
	resetCreateCommandState()
	resetListCommandState()
	resetShowCommandState()
	resetAddCommandState()
	resetSetCommandState()
	resetCleanCommandState()
	resetDoctorCommandState()
	resetLogCommandState()
	resetConfigState()
	resetFlagsChanged(RootCmd)
}

// resetFlagsChanged clears the Changed mark left on flags by an earlier run.
func resetFlagsChanged(c *cobra.Command) {
	c.Flags().VisitAll(func(flag *pflag.Flag) {
		flag.Changed = false
	})
	c.PersistentFlags().VisitAll(func(flag *pflag.Flag) {
		flag.Changed = false
	})
	for _, sub := range c.Commands() {
		resetFlagsChanged(sub)
	}
}

// SetLogger sets the logger for testing.
func SetLogger(l logger.Logger) {
	Logger = l
}
