// Package tokensource implements the exchange of a Cursor refresh token for
// a new access token against the remote refresh endpoint.
//
// A single call makes exactly one attempt; retry cadence belongs to the
// scheduling loop, not to the exchange itself. Failures carry a kind
// (network, remote rejection, malformed response) so callers can log and
// classify without re-parsing error strings.
package tokensource
