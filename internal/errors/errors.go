package errors

import (
	"errors"
	"fmt"
)

// Password errors indicate a rejected or mismatched passphrase.
var (
	// ErrWeakPassword indicates the passphrase does not meet the minimum length policy.
	ErrWeakPassword = errors.New("password does not meet the minimum length")

	// ErrAuthenticationFailed indicates the passphrase does not unlock the archive.
	ErrAuthenticationFailed = errors.New("authentication failed: wrong passphrase")
)

// File errors indicate issues with the archive file itself.
var (
	// ErrNotFound indicates a file or credential id could not be located.
	ErrNotFound = errors.New("not found")

	// ErrEmptyFile indicates the archive file exists but holds no data.
	ErrEmptyFile = errors.New("archive file is empty")

	// ErrPermissionDenied indicates the archive file cannot be read or written.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrIO is the catch-all for underlying filesystem failures.
	ErrIO = errors.New("i/o error")
)

// Archive errors indicate a structurally broken repository.
var (
	// ErrCorruptArchive indicates the codec could not decode the archive.
	ErrCorruptArchive = errors.New("archive is corrupt or in an unsupported format")

	// ErrStructure indicates the loaded repository is internally inconsistent,
	// for example a metadata credential count that disagrees with the records found.
	ErrStructure = errors.New("repository structure is inconsistent")
)

// Credential errors indicate invalid in-memory mutations.
var (
	// ErrDuplicateID indicates a credential with the same id already exists.
	ErrDuplicateID = errors.New("credential id already exists")

	// ErrInvalidCredential indicates a credential failed validation.
	ErrInvalidCredential = errors.New("invalid credential")
)

// Input errors indicate malformed command arguments.
var (
	// ErrInvalidDateFormat indicates a date filter that is not YYYY-MM-DD.
	ErrInvalidDateFormat = errors.New("invalid date format")
)

// Session errors indicate misuse of the repository lifecycle.
var (
	// ErrAlreadyOpen indicates another repository session is already open.
	ErrAlreadyOpen = errors.New("a repository is already open")

	// ErrRepositoryClosed indicates an operation on a session that has been closed.
	ErrRepositoryClosed = errors.New("repository is closed")

	// ErrNoOpenRepository indicates no session is registered in the current slot.
	ErrNoOpenRepository = errors.New("no repository is open")

	// ErrTimeout indicates an operation was abandoned after its time budget.
	ErrTimeout = errors.New("operation timed out")

	// ErrRepositoryLocked indicates another process holds the archive lock.
	ErrRepositoryLocked = errors.New("repository is locked by another process")

	// ErrUnsupportedBackend indicates an unknown backend name in configuration.
	ErrUnsupportedBackend = errors.New("unsupported repository backend")
)

// Staging errors indicate a failure moving the archive between a staged
// working copy and its display location.
var (
	// ErrCopyBackFailed indicates the archive was saved locally but could not be
	// copied back to its display location.
	ErrCopyBackFailed = errors.New("saved locally but copy back to the original location failed")

	// ErrStagingConflict indicates the display location changed since it was staged.
	ErrStagingConflict = errors.New("original location was modified externally")
)

// CodecKind classifies archive codec failures.
type CodecKind int

const (
	CodecIO CodecKind = iota
	CodecBadPassword
	CodecUnsupportedFormat
	CodecTruncated
	CodecCorrupt
)

func (k CodecKind) String() string {
	switch k {
	case CodecBadPassword:
		return "bad password"
	case CodecUnsupportedFormat:
		return "unsupported format"
	case CodecTruncated:
		return "truncated"
	case CodecCorrupt:
		return "corrupt"
	default:
		return "io"
	}
}

// CodecError is returned by archive codecs.
type CodecError struct {
	Kind CodecKind
	Err  error
}

func (e *CodecError) Error() string {
	if e.Err == nil {
		return "codec: " + e.Kind.String()
	}
	return fmt.Sprintf("codec: %s: %v", e.Kind, e.Err)
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

// NewCodecError builds a CodecError with a formatted cause.
func NewCodecError(kind CodecKind, format string, args ...any) *CodecError {
	return &CodecError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// OpError records the repository operation and path that failed.
type OpError struct {
	Op   string
	Path string
	Err  error
}

func (e *OpError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// IsWarning reports whether err only signals a recoverable condition where
// the primary result was still produced.
func IsWarning(err error) bool {
	return errors.Is(err, ErrCopyBackFailed)
}

var kinds = []struct {
	err  error
	name string
}{
	{ErrWeakPassword, "WeakPassword"},
	{ErrAuthenticationFailed, "AuthenticationFailed"},
	{ErrCorruptArchive, "CorruptArchive"},
	{ErrStructure, "StructureError"},
	{ErrEmptyFile, "EmptyFile"},
	{ErrPermissionDenied, "PermissionDenied"},
	{ErrDuplicateID, "DuplicateId"},
	{ErrInvalidCredential, "InvalidCredential"},
	{ErrInvalidDateFormat, "InvalidDateFormat"},
	{ErrAlreadyOpen, "AlreadyOpen"},
	{ErrRepositoryClosed, "RepositoryClosed"},
	{ErrNoOpenRepository, "NoOpenRepository"},
	{ErrTimeout, "Timeout"},
	{ErrRepositoryLocked, "Locked"},
	{ErrUnsupportedBackend, "UnsupportedBackend"},
	{ErrCopyBackFailed, "CopyBackFailed"},
	{ErrStagingConflict, "StagingConflict"},
	{ErrNotFound, "NotFound"},
	{ErrIO, "IoError"},
}

// Kind returns a stable label for the first known error kind in err's chain.
// It is used for audit entries and metric labels.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Unknown"
}
