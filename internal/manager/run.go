package manager

import (
	"context"
	"log/slog"
	"time"
)

// Run checks immediately once, then repeats per check interval until the
// context is cancelled. The loop wakes on a coarse poll tick, far more
// often than the interval, purely so a shutdown signal is observed without
// waiting out a multi-day sleep. A failed or panicking invocation never
// ends the loop; the next scheduled run retries from scratch.
func (m *Manager) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "starting scheduled credential refresh",
		"check_interval", m.checkInterval,
		"poll_tick", m.pollTick,
	)

	// Missed runs self-correct: every process start checks immediately.
	m.runScheduled(ctx)
	next := m.now().Add(m.checkInterval)

	ticker := time.NewTicker(m.pollTick)
	defer ticker.Stop()

	for {
		m.setState(StateSleeping)
		select {
		case <-ctx.Done():
			m.setState(StateIdle)
			slog.InfoContext(ctx, "shutdown requested, stopping refresh loop")
			return nil
		case <-ticker.C:
			if m.now().Before(next) {
				continue
			}
			m.runScheduled(ctx)
			next = m.now().Add(m.checkInterval)
		}
	}
}

// runScheduled isolates a single scheduled invocation: errors and panics
// are logged and absorbed so the loop outlives any one bad run.
func (m *Manager) runScheduled(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "scheduled refresh panicked", "panic", r)
		}
	}()

	if err := m.RefreshIfNeeded(ctx); err != nil {
		slog.ErrorContext(ctx, "scheduled refresh failed, retrying next tick", "error", err)
	}
}
