// Package audit records repository lifecycle operations.
//
// Every create, open, save, close, password change and integrity check is
// appended to a per-user audit log so a user can tell when an archive was
// last touched and by which process.
//
// # Log Format
//
// The audit log is stored as JSON Lines (one JSON object per line) at:
//
//	$XDG_DATA_HOME/lockbox/audit.jsonl
//
// Each entry contains:
//   - Timestamp (RFC3339 with microseconds, UTC)
//   - OS user name
//   - Operation name and archive path
//   - Credential count, record layout and error kind where relevant
//
// Passphrases and field values are never recorded.
//
// # Usage
//
//	trail := audit.NewTrail(paths.AuditFile)
//	entry := audit.NewEntry(audit.OpSave, archive)
//	entry.Count = len(records)
//	trail.Log(entry)
//
// # Failure Handling
//
// Audit logging is best-effort. If logging fails (permissions, disk full,
// etc.), the operation continues without error.
package audit
