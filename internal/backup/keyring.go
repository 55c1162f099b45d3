package backup

import (
	"context"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringStore keeps the snapshot in OS-native secure credential storage.
// Uses macOS Keychain, Windows Credential Manager, or Linux Secret Service.
type KeyringStore struct {
	service string
	user    string
}

// Compile-time check to ensure KeyringStore implements Store
var _ Store = (*KeyringStore)(nil)

// NewKeyringStore creates a KeyringStore for the OS-native credential
// storage using the given service and user identifiers.
func NewKeyringStore(service, user string) (*KeyringStore, error) {
	if service == "" {
		return nil, fmt.Errorf("service cannot be empty")
	}
	if user == "" {
		return nil, fmt.Errorf("user cannot be empty")
	}

	return &KeyringStore{
		service: service,
		user:    user,
	}, nil
}

// Read returns the snapshot from the system keyring.
func (k *KeyringStore) Read(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := keyring.Get(k.service, k.user)
	if err != nil {
		return nil, err
	}
	return decodeSnapshot([]byte(data))
}

// Write persists the snapshot to the system keyring, overwriting any
// existing value.
func (k *KeyringStore) Write(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	return keyring.Set(k.service, k.user, string(data))
}
