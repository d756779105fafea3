// Package logger provides leveled, colored logging for lockbox.
//
// The logger supports multiple verbosity levels controlled by command-line
// flags. The same value is handed to the repository layer so that library
// code and commands log through one switch.
//
// # Verbosity Levels
//
//   - --verbose: Shows info and warning messages
//   - --debug: Shows all messages including debug details
//
// Without flags, only data-safety warnings and user-facing warnings are shown.
//
// # Log Methods
//
//	Logger.Infof()          // Shown with --verbose or --debug
//	Logger.Debugf()         // Shown only with --debug
//	Logger.Warnf()          // Shown with --verbose or --debug
//	Logger.WarnfAlways()    // Always shown (residual plaintext, failed copy back)
//	Logger.WarnfUser()      // User-facing warnings
//	Logger.Errorf()         // Shown with --debug
//	Logger.ErrorfAndReturn() // Errorf, then returns the message as an error
//
// # Secrets
//
// Never pass a passphrase or a credential field value as a log argument.
// Use repository.Redacted to log a credential.
package logger
