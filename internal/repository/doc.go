// Package repository opens, mutates and saves password-protected credential
// archives.
//
// A Manager owns the configuration and collaborators (codec, staging
// resolver, backups, audit trail, metrics) and a registry slot that admits
// a single open Session at a time. A Session holds the decrypted
// credentials in memory and the extracted files in a private workspace.
//
// # Lifecycle
//
//	mgr, err := repository.NewManager(opts)
//	s, err := mgr.Open(ctx, "vault.lbx", password)
//	defer s.Close()
//
//	id, err := s.AddCredential(store.Credential{Title: "mail"})
//	err = s.UpdateField(id, "password", "p@ss", true)
//	err = s.Save(ctx)
//
// Mutations only change memory. Save dumps the records into the workspace,
// packs it and atomically replaces the archive, so a reader never sees a
// partially written file and a failed save leaves the previous archive in
// place. Close zeroes the password and destroys the workspace.
//
// # Backends
//
// The hybrid backend extracts into a 0700 directory under the temp root.
// The legacy backend keeps the extracted files in memory and never writes
// plaintext to disk. The backend is fixed when the Manager is built.
//
// # Timeouts
//
// Create, Open, Save, ChangePassword and VerifyIntegrity run under the
// operation timeout layered on the caller's context. Cancellation is only
// checked before work starts; a running codec is never interrupted. If the
// deadline passes first the caller gets kerrors.ErrTimeout and the work is
// discarded when it finishes.
//
// # Errors
//
// Every error wraps a sentinel from internal/errors. Errors matching
// kerrors.ErrCopyBackFailed are warnings: the archive was saved locally.
package repository
