package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot is the credential pair as it stood before a refresh rewrote the
// store. ExpiresAt keeps the store's own representation (epoch seconds or
// milliseconds, untagged).
type Snapshot struct {
	AccessToken  string      `json:"access_token,omitempty"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	ExpiresAt    json.Number `json:"expires_at,omitempty"`
	SavedAt      time.Time   `json:"saved_at"`
}

// Store reads and writes credential snapshots.
type Store interface {
	// Read returns the last stashed snapshot. Returns error if none exists.
	Read(ctx context.Context) (*Snapshot, error)

	// Write persists the snapshot, overwriting any previous one.
	Write(ctx context.Context, snap *Snapshot) error
}

func encodeSnapshot(snap *Snapshot) ([]byte, error) {
	if snap == nil {
		return nil, fmt.Errorf("snapshot cannot be nil")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if snap.AccessToken == "" && snap.RefreshToken == "" {
		return nil, fmt.Errorf("snapshot carries no credentials")
	}
	return &snap, nil
}
