// Package ui provides semantic text formatting for CLI output.
//
// Formatters render with color on capable terminals and fall back to text
// decorations (backticks, quotes, brackets) when NO_COLOR is set or the
// terminal does not support colors.
//
//	ui.Code.Sprint("lockbox open")       // Commands
//	ui.Path.Sprint("~/vault.lbx")        // Archive paths
//	ui.Highlight.Sprint("github-login")  // Credential ids and titles
//	ui.Secret.Sprint(value)              // Revealed sensitive values
//	ui.Muted.Sprint("3 fields")          // De-emphasized text
//
// KeyValue lays out aligned "key: value" blocks for credential details.
package ui
