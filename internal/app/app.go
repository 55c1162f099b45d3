package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/hllvc/cursorkeep/internal/credential"
	"github.com/hllvc/cursorkeep/internal/manager"
	"github.com/hllvc/cursorkeep/internal/statedb"
	"github.com/hllvc/cursorkeep/internal/tokensource"
)

// App wires the state store, refresh client and lifecycle manager together.
type App struct {
	cfg     *Config
	store   *statedb.Store
	manager *manager.Manager
}

// New creates a new App instance. No I/O is performed; the store is first
// touched by the first operation.
func New(cfg *Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := statedb.New(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create state store accessor: %w", err)
	}

	client, err := tokensource.New(cfg.Refresh.BaseURL,
		tokensource.WithUserAgent(cfg.Refresh.UserAgent),
		tokensource.WithTimeout(cfg.Refresh.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh client: %w", err)
	}

	backupStore, err := cfg.Backup.NewBackupStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create backup store: %w", err)
	}

	opts := []manager.Option{
		manager.WithPolicy(credential.Policy{LeadTime: cfg.Refresh.LeadTime}),
		manager.WithSchedule(cfg.Schedule.CheckInterval, cfg.Schedule.PollTick),
	}
	if backupStore != nil {
		opts = append(opts, manager.WithBackup(backupStore))
	}

	mgr, err := manager.New(store, client, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create lifecycle manager: %w", err)
	}

	return &App{
		cfg:     cfg,
		store:   store,
		manager: mgr,
	}, nil
}

// Check runs the refresh-if-needed operation exactly once.
func (a *App) Check(ctx context.Context) error {
	return a.manager.RefreshIfNeeded(ctx)
}

// Daemon runs the scheduled refresh loop until the context is cancelled.
func (a *App) Daemon(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	slog.InfoContext(gCtx, "starting refresh daemon", "store", a.cfg.Store.Path)
	g.Go(func() error {
		return a.manager.Run(gCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("daemon: %w", err)
	}
	slog.Info("daemon stopped")
	return nil
}

// Token returns a currently-valid access token, refreshing the stored pair
// first when it is near expiry.
func (a *App) Token() (*oauth2.Token, error) {
	return a.manager.TokenSource().Token()
}

// Restore replays the last credential backup into the state store.
func (a *App) Restore(ctx context.Context) error {
	return a.manager.RestoreBackup(ctx)
}

// AuthEntries reads the current auth-related store entries, for diagnostics.
func (a *App) AuthEntries(ctx context.Context) ([]statedb.Entry, error) {
	return a.store.ReadAuthEntries(ctx)
}
