// Package backup stashes a snapshot of the credential pair before the state
// store is rewritten, so a refresh that rotates the refresh token and then
// goes wrong is recoverable.
//
// Two backends are supported:
//   - File: local filesystem storage with atomic writes and secure permissions
//   - Keyring: OS-native credential storage (macOS Keychain, Windows Credential Manager, etc.)
package backup
