package manager

import (
	"context"
	"errors"

	"golang.org/x/oauth2"

	"github.com/hllvc/cursorkeep/internal/credential"
)

// TokenSource exposes the managed credential as an oauth2.TokenSource:
// Token refreshes the stored pair first when it is due, then returns
// whatever the store holds. Useful for scripting against the same API the
// host application talks to.
func (m *Manager) TokenSource() oauth2.TokenSource {
	return &storeTokenSource{manager: m}
}

type storeTokenSource struct {
	manager *Manager
}

// Compile-time check to ensure storeTokenSource implements oauth2.TokenSource
var _ oauth2.TokenSource = (*storeTokenSource)(nil)

// Token returns the current access token, refreshing it first if near
// expiry.
func (s *storeTokenSource) Token() (*oauth2.Token, error) {
	// oauth2.TokenSource.Token() has no context parameter (legacy
	// interface limitation); the exchange is still bounded by the refresh
	// client's own timeout.
	ctx := context.Background()

	if err := s.manager.RefreshIfNeeded(ctx); err != nil {
		return nil, err
	}

	entries, err := s.manager.store.ReadAuthEntries(ctx)
	if err != nil {
		return nil, err
	}
	record := credential.Locate(entries)
	if record.AccessToken == nil || *record.AccessToken == "" {
		return nil, errors.New("no access token in state store")
	}

	token := &oauth2.Token{AccessToken: *record.AccessToken}
	if record.RefreshToken != nil {
		token.RefreshToken = *record.RefreshToken
	}
	if record.ExpiresAt != nil {
		if expiry, err := credential.ExpiryInstant(*record.ExpiresAt); err == nil {
			token.Expiry = expiry
		}
	}
	return token, nil
}
