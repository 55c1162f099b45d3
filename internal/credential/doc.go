// Package credential locates OAuth-style credential fields scattered across
// the untyped entries of the state store and decides when the access token
// is due for refresh.
package credential
