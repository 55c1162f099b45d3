package credential

import (
	"encoding/json"
	"time"
)

// DefaultLeadTime is the threshold before actual expiry at which a refresh
// is triggered.
const DefaultLeadTime = 10 * 24 * time.Hour

// millisecondThreshold separates second- from millisecond-precision epoch
// timestamps: values above it are taken as milliseconds. The store carries
// no unit tag and its convention is outside our control, so the cutoff is
// kept as-is for compatibility rather than replaced with an explicit format.
const millisecondThreshold int64 = 1_000_000_000_000

// Policy decides whether a credential should be refreshed now.
type Policy struct {
	// LeadTime before expiry at which refresh triggers. Zero means
	// DefaultLeadTime.
	LeadTime time.Duration

	// Now overrides the clock, for tests. Nil means time.Now.
	Now func() time.Time
}

// ShouldRefresh reports whether the credential with the given expiry
// timestamp is due. A nil or unparseable timestamp cannot prove the token
// is still valid, so both fail safe toward refreshing.
func (p Policy) ShouldRefresh(expiresAt *json.Number) bool {
	if expiresAt == nil {
		return true
	}
	expiry, err := ExpiryInstant(*expiresAt)
	if err != nil {
		return true
	}

	lead := p.LeadTime
	if lead == 0 {
		lead = DefaultLeadTime
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return expiry.Sub(now()) < lead
}

// ExpiryInstant converts a stored expiry timestamp to a time.Time, inferring
// seconds or milliseconds from magnitude.
func ExpiryInstant(expiresAt json.Number) (time.Time, error) {
	n, err := expiresAt.Int64()
	if err != nil {
		return time.Time{}, err
	}
	if n > millisecondThreshold {
		return time.UnixMilli(n), nil
	}
	return time.Unix(n, 0), nil
}
