// Package inspect implements local diagnostics over the credential state:
// decoding JWT time claims without verification. Tokens never leave the
// machine.
package inspect
