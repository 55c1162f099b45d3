package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hllvc/cursorkeep/internal/backup"
	"github.com/hllvc/cursorkeep/internal/credential"
	"github.com/hllvc/cursorkeep/internal/statedb"
	"github.com/hllvc/cursorkeep/internal/tokensource"
)

// Default scheduling cadence.
const (
	DefaultCheckInterval = 5 * 24 * time.Hour
	DefaultPollTick      = time.Hour
)

var (
	// ErrCredentialMissing indicates no refresh token could be located, so
	// no refresh is possible regardless of expiry.
	ErrCredentialMissing = errors.New("no refresh token found in state store")

	// ErrNoEntriesUpdated indicates the refresh exchange succeeded but no
	// store entry carried an access token to overwrite.
	ErrNoEntriesUpdated = errors.New("no credential entries updated")
)

// State names the phase the manager is currently in.
type State string

const (
	StateIdle       State = "idle"
	StateChecking   State = "checking"
	StateRefreshing State = "refreshing"
	StateWriting    State = "writing"
	StateSleeping   State = "sleeping"
)

// Store is the slice of the state database the manager needs.
type Store interface {
	ReadAuthEntries(ctx context.Context) ([]statedb.Entry, error)
	ApplyUpdates(ctx context.Context, updates map[string]map[string]any) (int, error)
}

// Refresher performs the remote token exchange.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*tokensource.Result, error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithPolicy overrides the expiry decision policy.
func WithPolicy(policy credential.Policy) Option {
	return func(m *Manager) { m.policy = policy }
}

// WithSchedule overrides the check interval and the poll tick of the
// daemon loop.
func WithSchedule(checkInterval, pollTick time.Duration) Option {
	return func(m *Manager) {
		if checkInterval > 0 {
			m.checkInterval = checkInterval
		}
		if pollTick > 0 {
			m.pollTick = pollTick
		}
	}
}

// WithBackup stashes the credential pair to the given store before every
// rewrite of the state database.
func WithBackup(store backup.Store) Option {
	return func(m *Manager) { m.backup = store }
}

// WithClock overrides the clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
		if m.policy.Now == nil {
			m.policy.Now = now
		}
	}
}

// Manager owns the credential refresh lifecycle.
type Manager struct {
	store     Store
	refresher Refresher
	policy    credential.Policy
	backup    backup.Store

	checkInterval time.Duration
	pollTick      time.Duration
	now           func() time.Time

	state atomic.Value // State
}

// New creates a Manager. The store connection itself is opened and closed
// per operation by the Store; the Manager never holds it across runs.
func New(store Store, refresher Refresher, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("missing store")
	}
	if refresher == nil {
		return nil, fmt.Errorf("missing refresher")
	}

	m := &Manager{
		store:         store,
		refresher:     refresher,
		checkInterval: DefaultCheckInterval,
		pollTick:      DefaultPollTick,
		now:           time.Now,
	}
	m.state.Store(StateIdle)
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// State returns the phase the manager is currently in.
func (m *Manager) State() State {
	return m.state.Load().(State)
}

func (m *Manager) setState(s State) {
	m.state.Store(s)
}

// RefreshIfNeeded runs one full check: locate the credential, decide
// expiry, exchange the refresh token and rewrite the store. A nil return
// means either a successful refresh or a credential that is not yet due.
// Nothing is written unless the exchange succeeded.
func (m *Manager) RefreshIfNeeded(ctx context.Context) error {
	log := slog.With("run_id", uuid.NewString())

	m.setState(StateChecking)
	defer m.setState(StateIdle)

	log.InfoContext(ctx, "checking credential state")

	entries, err := m.store.ReadAuthEntries(ctx)
	if err != nil {
		log.ErrorContext(ctx, "reading auth entries failed", "error", err)
		return fmt.Errorf("reading auth entries: %w", err)
	}

	record := credential.Locate(entries)
	log.InfoContext(ctx, "located credential fields",
		"entries", len(entries),
		"sources", record.Sources,
	)

	if record.RefreshToken == nil || *record.RefreshToken == "" {
		log.ErrorContext(ctx, "no refresh token located, cannot refresh")
		return ErrCredentialMissing
	}

	if !m.policy.ShouldRefresh(record.ExpiresAt) {
		log.InfoContext(ctx, "credential not near expiry, nothing to do")
		return nil
	}
	log.InfoContext(ctx, "credential near expiry, refreshing")

	m.setState(StateRefreshing)
	result, err := m.refresher.Refresh(ctx, *record.RefreshToken)
	if err != nil {
		log.ErrorContext(ctx, "refresh exchange failed", "error", err)
		return fmt.Errorf("refreshing access token: %w", err)
	}

	m.stashSnapshot(ctx, log, record)

	m.setState(StateWriting)
	updated, err := m.applyRefreshResult(ctx, log, result)
	if err != nil {
		log.ErrorContext(ctx, "writing refreshed credential failed", "error", err)
		return err
	}

	log.InfoContext(ctx, "credential refreshed", "entries_updated", updated)
	return nil
}

// stashSnapshot backs up the pre-refresh credential. Failure is logged but
// never blocks the refresh: a stale backup beats a wedged refresh loop.
func (m *Manager) stashSnapshot(ctx context.Context, log *slog.Logger, record credential.Record) {
	if m.backup == nil {
		return
	}

	snap := &backup.Snapshot{SavedAt: m.now()}
	if record.AccessToken != nil {
		snap.AccessToken = *record.AccessToken
	}
	if record.RefreshToken != nil {
		snap.RefreshToken = *record.RefreshToken
	}
	if record.ExpiresAt != nil {
		snap.ExpiresAt = *record.ExpiresAt
	}

	if err := m.backup.Write(ctx, snap); err != nil {
		log.WarnContext(ctx, "stashing credential backup failed", "error", err)
		return
	}
	log.InfoContext(ctx, "stashed credential backup")
}

// previewToken elides a token for logging.
func previewToken(token string) string {
	if len(token) <= 20 {
		return token
	}
	return token[:20] + "..."
}
