package tokensource

import "time"

const (
	// DefaultBaseURL is the Cursor API base the refresh endpoint hangs off.
	DefaultBaseURL = "https://api2.cursor.sh/api"

	// UserAgent is the fixed client identifier the refresh endpoint expects.
	UserAgent = "Cursor/1.0"

	// DefaultTimeout bounds a single refresh exchange.
	DefaultTimeout = 30 * time.Second

	refreshPath = "/auth/refresh"
)
