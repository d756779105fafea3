package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"

	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
	"github.com/PolarWolf314/lockbox/internal/ui"
	"github.com/PolarWolf314/lockbox/internal/utils"
	"github.com/PolarWolf314/lockbox/internal/workflows"
)

const (
	passphraseEnv    = "LOCKBOX_PASSPHRASE"
	newPassphraseEnv = "LOCKBOX_NEW_PASSPHRASE"
)

var passphraseStdin bool

// startSpinner creates and starts a spinner with the given message when not in verbose or debug mode.
// Returns the spinner and a function that should be deferred to clean up.
//
// IMPORTANT: spinner.FinalMSG values do NOT need trailing newlines. The cleanup function
// automatically calls ui.EnsureNewline() on the final message before printing it.
func startSpinner(message string, verbose bool) (*spinner.Spinner, func()) {
	Logger.Debugf("Starting spinner with message: %s", message)
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = os.Stderr

	if err := s.Color("cyan"); err != nil {
		Logger.Warnf("Failed to set spinner color: %v", err)
	}

	quiet := !verbose && !debug
	if quiet {
		s.Start()
		// Ensure log output is discarded unless in verbose mode.
		log.SetOutput(io.Discard)
	} else {
		Logger.Infof("Running in verbose or debug mode: %s", message)
	}

	var once sync.Once
	cleanup := func() {
		once.Do(func() { stopSpinner(s, quiet) })
	}

	return s, cleanup
}

// stopSpinner stops s and prints its final message once.
func stopSpinner(s *spinner.Spinner, quiet bool) {
	if quiet {
		log.SetOutput(os.Stdout)
	}

	finalMsg := ""
	if s.FinalMSG != "" {
		finalMsg = ui.EnsureNewline(s.FinalMSG)
		// Clear FinalMSG so s.Stop() doesn't print it.
		s.FinalMSG = ""
	}

	if quiet {
		s.Stop()
	}

	// Print final message to stdout (for tests to capture).
	if finalMsg != "" {
		fmt.Print(finalMsg)
	}
}

// readPassphrase returns the repository passphrase from, in order,
// --passphrase-stdin, LOCKBOX_PASSPHRASE or a no-echo prompt.
func readPassphrase(prompt string) ([]byte, error) {
	if passphraseStdin {
		Logger.Debugf("Reading passphrase from stdin")
		data, err := utils.ReadStdin()
		if err != nil {
			return nil, err
		}
		return utils.TrimLineEnding(data), nil
	}

	if value, ok := lookupPassphraseEnv(); ok {
		Logger.Debugf("Using passphrase from %s", passphraseEnv)
		return []byte(value), nil
	}

	return utils.ReadPassphrase(prompt)
}

func lookupPassphraseEnv() (string, bool) {
	return os.LookupEnv(passphraseEnv)
}

// readNewPassphrase asks for a passphrase twice unless it comes from envName.
func readNewPassphrase(envName, prompt string) ([]byte, error) {
	if value, ok := os.LookupEnv(envName); ok {
		Logger.Debugf("Using new passphrase from %s", envName)
		return []byte(value), nil
	}

	first, err := utils.ReadPassphrase(prompt)
	if err != nil {
		return nil, err
	}
	second, err := utils.ReadPassphrase("Repeat passphrase: ")
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(first, second) {
		return nil, fmt.Errorf("passphrases do not match")
	}
	return first, nil
}

// wipe zeroes a passphrase buffer once it has been handed to a workflow.
func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// formatRepositoryError turns a workflow error into the message shown to the user.
func formatRepositoryError(env *workflows.Env, path string, err error) string {
	msg := ui.Error.Sprint("✗") + " " + err.Error()

	switch {
	case errors.Is(err, kerrors.ErrAuthenticationFailed):
		return ui.Error.Sprint("✗") + " Could not unlock " + ui.Path.Sprint(path) + "\n" +
			ui.Info.Sprint("→") + " Check your passphrase and try again"

	case errors.Is(err, kerrors.ErrCorruptArchive), errors.Is(err, kerrors.ErrStructure):
		hint := ui.Info.Sprint("→") + " Restore the repository from a backup"
		if env != nil {
			if latest := workflows.LatestBackup(env, path); latest != "" {
				hint += ": " + ui.Path.Sprint(latest)
			}
		}
		return msg + "\n" + hint

	case errors.Is(err, kerrors.ErrTimeout):
		return msg + "\n" +
			ui.Info.Sprint("→") + " Retry the command; large repositories can take longer to decrypt"

	case errors.Is(err, kerrors.ErrNotFound):
		return msg + "\n" +
			ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("lockbox create "+path) + " to create a repository"

	case errors.Is(err, kerrors.ErrWeakPassword):
		return msg + "\n" +
			ui.Info.Sprint("→") + " Choose a longer passphrase"

	case errors.Is(err, kerrors.ErrRepositoryLocked):
		return msg + "\n" +
			ui.Info.Sprint("→") + " Wait for the other lockbox process to finish"

	case errors.Is(err, kerrors.ErrDuplicateID):
		return msg + "\n" +
			ui.Info.Sprint("→") + " Use " + ui.Code.Sprint("lockbox set") + " to change an existing credential"
	}
	return msg
}

// copyBackNotice describes a save that only reached the local working copy.
func copyBackNotice(outcome workflows.SaveOutcome) string {
	if outcome.CopyBackWarning == nil {
		return ""
	}
	return "\n" + ui.Warning.Sprint("⚠") + " Saved locally, but copying back to the original location failed: " +
		outcome.CopyBackWarning.Error() + "\n" +
		ui.Info.Sprint("→") + " Your changes are in " + ui.Path.Sprint(outcome.LocalCopy)
}
