// Package errors provides typed error values for the lockbox application.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching. The
// repository layer never returns a bare filesystem or codec error: every
// failure carries exactly one of the kinds below so that the CLI can pick
// the right remediation.
//
// # Error Categories
//
// Errors are grouped by category:
//
//   - Password errors: ErrWeakPassword, ErrAuthenticationFailed
//   - File errors: ErrNotFound, ErrEmptyFile, ErrPermissionDenied, ErrIO
//   - Archive errors: ErrCorruptArchive, ErrStructure
//   - Credential errors: ErrDuplicateID, ErrInvalidCredential
//   - Session errors: ErrAlreadyOpen, ErrRepositoryClosed, ErrTimeout
//   - Staging errors: ErrCopyBackFailed, ErrStagingConflict
//
// ErrCopyBackFailed is the only warning-level kind. The archive was written
// to its local working path, only the copy to the display location failed.
// Use IsWarning to detect it.
//
// # Codec Errors
//
// The archive codec reports failures as *CodecError carrying a CodecKind.
// The repository maps them onto ErrAuthenticationFailed, ErrCorruptArchive
// or ErrIO and keeps the CodecError in the chain:
//
//	var cerr *kerrors.CodecError
//	if errors.As(err, &cerr) && cerr.Kind == kerrors.CodecBadPassword {
//	    // prompt again
//	}
//
// # Usage
//
// Wrap errors with additional context:
//
//	return fmt.Errorf("%w: %v", kerrors.ErrIO, err)
//
// Handle errors in the CLI layer:
//
//	if errors.Is(err, kerrors.ErrAuthenticationFailed) {
//	    // Show user-friendly message
//	}
package errors
