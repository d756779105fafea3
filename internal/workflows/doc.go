// Package workflows provides high-level orchestration for lockbox commands.
//
// Workflows coordinate the repository manager, backups, the audit trail and
// workspace cleanup to implement complete user-facing features. Each
// workflow handles a single command's business logic, independent of CLI
// concerns like flag parsing, spinners, and output formatting.
//
// # Design Philosophy
//
// The cmd/ package should be a thin layer that:
//   - Parses command-line flags and arguments
//   - Reads the passphrase
//   - Calls the appropriate workflow function
//   - Formats the result for display
//
// Workflows handle everything else:
//   - Opening and closing the repository session
//   - Saving after a mutation
//   - Retrying a failed copy back to a remote location
//
// # Available Workflows
//
//   - Create: Writes a new, empty repository
//   - List, Show: Read credentials, redacted unless asked otherwise
//   - Add, Set, Delete: Change credentials and save
//   - Rotate: Re-encrypts a repository under a new passphrase
//   - Verify: Re-reads the archive and compares it with the loaded state
//   - Backups: Lists backups of a repository
//   - Clean: Removes workspaces left by crashed processes
//   - Doctor: Checks the local setup
//   - Log: Reads the audit trail
//
// # Error Handling
//
// Workflows return typed errors from the internal/errors package, allowing
// the CLI layer to provide appropriate user-facing messages without string
// matching. Use errors.Is() to check for specific error conditions:
//
//	result, err := workflows.List(ctx, env, opts)
//	if errors.Is(err, kerrors.ErrAuthenticationFailed) {
//	    // Ask the user to check their passphrase
//	}
//
// A copy-back failure is not an error: the change is saved in a local
// working copy whose path is reported in SaveOutcome.
package workflows
