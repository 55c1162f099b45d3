package credential

import (
	"encoding/json"

	"github.com/hllvc/cursorkeep/internal/statedb"
)

// Field names used by the host application's credential entries.
const (
	FieldAccessToken  = "accessToken"
	FieldRefreshToken = "refreshToken"
	FieldExpiresAt    = "expiresAt"

	fieldExpiresAtAlt = "expires_at"
)

// Fragment is the credential-bearing slice of a single store entry. Any
// subset of the fields may be present; the three fields of a full credential
// may legitimately live in different entries.
type Fragment struct {
	AccessToken  *string
	RefreshToken *string
	ExpiresAt    *json.Number
}

// Classify maps a raw store entry to its credential fragment. This is the
// single seam isolating the untyped-store heuristic: raw values and
// structured objects without any credential field classify to nothing.
func Classify(value statedb.Value) (Fragment, bool) {
	obj, ok := value.Object()
	if !ok {
		return Fragment{}, false
	}

	f := Fragment{
		AccessToken:  stringField(obj, FieldAccessToken),
		RefreshToken: stringField(obj, FieldRefreshToken),
		ExpiresAt:    numberField(obj, FieldExpiresAt),
	}
	if f.ExpiresAt == nil {
		f.ExpiresAt = numberField(obj, fieldExpiresAtAlt)
	}

	if f.AccessToken == nil && f.RefreshToken == nil && f.ExpiresAt == nil {
		return Fragment{}, false
	}
	return f, true
}

// Record is the merged credential view across all matching entries. Nil
// fields mean the field was found nowhere; that is data, not an error.
type Record struct {
	AccessToken  *string
	RefreshToken *string
	ExpiresAt    *json.Number

	// Sources maps each contributing entry key to the fields it supplied,
	// for diagnostics and logging.
	Sources map[string][]string
}

// Locate merges credential fragments across entries in read order.
// First-found wins independently per field, so the access and refresh
// tokens may come from two different entries.
func Locate(entries []statedb.Entry) Record {
	record := Record{Sources: make(map[string][]string)}

	for _, entry := range entries {
		fragment, ok := Classify(entry.Value)
		if !ok {
			continue
		}

		var supplied []string
		if record.AccessToken == nil && fragment.AccessToken != nil {
			record.AccessToken = fragment.AccessToken
			supplied = append(supplied, FieldAccessToken)
		}
		if record.RefreshToken == nil && fragment.RefreshToken != nil {
			record.RefreshToken = fragment.RefreshToken
			supplied = append(supplied, FieldRefreshToken)
		}
		if record.ExpiresAt == nil && fragment.ExpiresAt != nil {
			record.ExpiresAt = fragment.ExpiresAt
			supplied = append(supplied, FieldExpiresAt)
		}
		if len(supplied) > 0 {
			record.Sources[entry.Key] = supplied
		}
	}
	return record
}

func stringField(obj map[string]any, name string) *string {
	if s, ok := obj[name].(string); ok {
		return &s
	}
	return nil
}

func numberField(obj map[string]any, name string) *json.Number {
	if n, ok := obj[name].(json.Number); ok {
		return &n
	}
	return nil
}
