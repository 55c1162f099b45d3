package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strconv"
	"time"

	"github.com/hllvc/cursorkeep/internal/credential"
	"github.com/hllvc/cursorkeep/internal/tokensource"
)

// update describes the field overwrites to apply to every entry that
// carries an access token. Empty refreshToken and nil expiresAt leave the
// existing fields alone.
type update struct {
	accessToken  string
	refreshToken string
	expiresAt    *json.Number
}

// applyRefreshResult rewrites the store with a fresh exchange result. The
// recomputed expiry is stored in milliseconds, matching the convention
// observed in the store.
func (m *Manager) applyRefreshResult(ctx context.Context, log *slog.Logger, result *tokensource.Result) (int, error) {
	up := update{
		accessToken:  result.AccessToken,
		refreshToken: result.RefreshToken,
	}
	if result.ExpiresIn > 0 {
		millis := m.now().Add(time.Duration(result.ExpiresIn) * time.Second).UnixMilli()
		n := json.Number(strconv.FormatInt(millis, 10))
		up.expiresAt = &n
	}
	return m.applyUpdate(ctx, log, up)
}

// applyUpdate re-reads the current auth entries (the write targets every
// entry carrying an access token, not just the one the locator used) and
// commits the overwrites as one transaction via the store.
func (m *Manager) applyUpdate(ctx context.Context, log *slog.Logger, up update) (int, error) {
	entries, err := m.store.ReadAuthEntries(ctx)
	if err != nil {
		return 0, fmt.Errorf("re-reading auth entries: %w", err)
	}

	updates := make(map[string]map[string]any)
	for _, entry := range entries {
		obj, ok := entry.Value.Object()
		if !ok {
			continue
		}
		current, ok := obj[credential.FieldAccessToken].(string)
		if !ok {
			if _, present := obj[credential.FieldAccessToken]; !present {
				continue
			}
			current = ""
		}

		next := maps.Clone(obj)
		next[credential.FieldAccessToken] = up.accessToken
		if up.refreshToken != "" {
			next[credential.FieldRefreshToken] = up.refreshToken
		}
		if up.expiresAt != nil {
			next[credential.FieldExpiresAt] = *up.expiresAt
		}
		updates[entry.Key] = next

		log.DebugContext(ctx, "rewriting credential entry",
			"key", entry.Key,
			"old_access_token", previewToken(current),
			"new_access_token", previewToken(up.accessToken),
		)
	}

	if len(updates) == 0 {
		return 0, ErrNoEntriesUpdated
	}

	updated, err := m.store.ApplyUpdates(ctx, updates)
	if err != nil {
		return 0, fmt.Errorf("applying credential updates: %w", err)
	}
	if updated == 0 {
		return 0, ErrNoEntriesUpdated
	}
	return updated, nil
}
