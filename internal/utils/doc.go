// Package utils provides shared utility functions for lockbox.
//
// # Filesystem Utilities
//
//   - WriteFileAtomic: temp sibling + rename, never leaves a partial file
//   - CopyFileAtomic: atomic copy preserving the source mode
//   - ExpandPath: resolves ~ in configured paths
//
// # System Utilities
//
//   - GetUsername, GetHostname: identity recorded in audit entries and lock files
//
// # String Utilities
//
//   - FormatPaths: formats file paths for human-readable output
//   - Mask: partially hides a value for display
//
// # I/O and Terminal Utilities
//
//   - ReadStdin, TrimLineEnding: passphrase piped on stdin
//   - ReadPassphrase, ReadPassphraseFromTTY: no-echo prompts
//   - IsTerminal, IsTTYAvailable: terminal detection
package utils
