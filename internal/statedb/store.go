package statedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	_ "modernc.org/sqlite"
)

// ErrStoreUnavailable indicates the state database could not be opened,
// typically because the host application is not installed or permissions
// deny access. Fatal for the current invocation, not for the process.
var ErrStoreUnavailable = errors.New("state store unavailable")

const (
	// Keys are not namespaced by schema, so candidates are selected by
	// case-sensitive substring match on "auth" or "token".
	authEntryQuery = `SELECT key, value FROM ItemTable WHERE key LIKE '%auth%' OR key LIKE '%token%'`

	selectEntryQuery = `SELECT value FROM ItemTable WHERE key = ?`
	updateEntryQuery = `UPDATE ItemTable SET value = ? WHERE key = ?`

	accessTokenField = "accessToken"
)

// Entry is one (key, value) pair read from ItemTable, in query order.
type Entry struct {
	Key   string
	Value Value
}

// Store accesses the auth-related entries of a state.vscdb file. The
// underlying database connection is opened and closed per operation and
// never held across the caller's scheduling interval.
type Store struct {
	path string
}

// New creates a Store for the given state database path. The file is not
// touched until the first operation.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store path cannot be empty")
	}
	return &Store{path: path}, nil
}

// Path returns the state database path the store was created with.
func (s *Store) Path() string {
	return s.path
}

// open establishes a connection for a single logical operation. The caller
// must close the returned handle before returning.
func (s *Store) open(ctx context.Context) (*sql.DB, error) {
	// Stat first: the sqlite driver would happily create a fresh database
	// where none exists, which must never happen to the host's store.
	if _, err := os.Stat(s.path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return db, nil
}

// ReadAuthEntries returns all entries whose key matches the auth/token
// naming heuristic, each value decoded best-effort. Order is whatever the
// store yields; it is preserved so per-field first-found-wins selection is
// at least stable within one read.
func (s *Store) ReadAuthEntries(ctx context.Context) ([]Entry, error) {
	db, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, authEntryQuery)
	if err != nil {
		return nil, fmt.Errorf("querying auth entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var key string
		var value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scanning auth entry: %w", err)
		}
		entries = append(entries, Entry{Key: key, Value: Decode(value.String)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading auth entries: %w", err)
	}
	return entries, nil
}

// ApplyUpdates writes new values for the given keys in a single transaction.
// A key is only written if its current value still decodes as a structured
// object carrying an accessToken field; anything else is skipped, so a
// concurrent change by the host application cannot be clobbered blindly.
// Returns the number of entries actually updated; zero is a valid non-error
// outcome the caller must treat as an overall failure.
func (s *Store) ApplyUpdates(ctx context.Context, updates map[string]map[string]any) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	db, err := s.open(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning update transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	updated := 0
	for key, next := range updates {
		var current sql.NullString
		err := tx.QueryRowContext(ctx, selectEntryQuery, key).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("reading current value of %q: %w", key, err)
		}

		obj, ok := Decode(current.String).Object()
		if !ok {
			continue
		}
		if _, ok := obj[accessTokenField]; !ok {
			continue
		}

		encoded, err := json.Marshal(next)
		if err != nil {
			return 0, fmt.Errorf("encoding new value of %q: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx, updateEntryQuery, string(encoded), key); err != nil {
			return 0, fmt.Errorf("updating %q: %w", key, err)
		}
		updated++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing updates: %w", err)
	}
	return updated, nil
}
