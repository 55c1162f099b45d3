package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// RestoreBackup replays the last stashed snapshot into every entry that
// currently carries an access token, through the same transactional write
// path a refresh uses. Meant for recovery after a refresh rotated the
// tokens and the new pair turned out broken.
func (m *Manager) RestoreBackup(ctx context.Context) error {
	if m.backup == nil {
		return errors.New("no backup storage configured")
	}

	log := slog.With("run_id", uuid.NewString())

	snap, err := m.backup.Read(ctx)
	if err != nil {
		log.ErrorContext(ctx, "reading backup snapshot failed", "error", err)
		return fmt.Errorf("reading backup snapshot: %w", err)
	}
	if snap.AccessToken == "" {
		return errors.New("backup snapshot carries no access token")
	}

	up := update{
		accessToken:  snap.AccessToken,
		refreshToken: snap.RefreshToken,
	}
	if snap.ExpiresAt != "" {
		expiresAt := snap.ExpiresAt
		up.expiresAt = &expiresAt
	}

	m.setState(StateWriting)
	defer m.setState(StateIdle)

	updated, err := m.applyUpdate(ctx, log, up)
	if err != nil {
		log.ErrorContext(ctx, "restoring backup failed", "error", err)
		return err
	}

	log.InfoContext(ctx, "credential restored from backup",
		"entries_updated", updated,
		"saved_at", snap.SavedAt,
	)
	return nil
}
