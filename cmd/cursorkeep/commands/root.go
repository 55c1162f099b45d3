package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/hllvc/cursorkeep/internal/app"
	"github.com/hllvc/cursorkeep/internal/observability"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string) error {
	cmd := &cli.Command{
		Name:  "cursorkeep",
		Usage: "keeps the locally stored Cursor credential pair fresh",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: slog.LevelInfo.String(),
			},
		},
		Commands: []*cli.Command{
			checkCommand(),
			daemonCommand(),
			tokenCommand(),
			restoreCommand(),
			inspectCommand(),
		},
	}

	return cmd.Run(ctx, args)
}

// storeAndRefreshFlags are shared by every command that touches the store
// or the refresh endpoint.
func storeAndRefreshFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "log format (text|json|otlp|otel-stdout)",
			Value: string(app.DefaultConfigLogFormat),
		},
		&cli.StringFlag{
			Name:  "store--path",
			Usage: "path to the state.vscdb database",
		},
		&cli.StringFlag{
			Name:  "refresh--base-url",
			Usage: "refresh API base URL",
			Value: app.DefaultConfigRefreshBaseURL,
		},
		&cli.DurationFlag{
			Name:  "refresh--lead-time",
			Usage: "refresh this long before expiry",
			Value: app.DefaultConfigLeadTime,
		},
	}
}

// setupApp loads configuration, installs logging and builds the application.
func setupApp(cmd *cli.Command) (*app.App, error) {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Set up observability before creating app
	if err := observability.Instrument(cfg.LogLevel, string(cfg.LogFormat)); err != nil {
		return nil, fmt.Errorf("failed to set up observability layer: %w", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create app: %w", err)
	}
	return application, nil
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "run the refresh-if-needed check once and exit",
		Flags: storeAndRefreshFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			application, err := setupApp(cmd)
			if err != nil {
				return err
			}

			if err := application.Check(ctx); err != nil {
				return cli.Exit(fmt.Sprintf("check failed: %v", err), 1)
			}
			slog.InfoContext(ctx, "check completed")
			return nil
		},
	}
}

func daemonCommand() *cli.Command {
	flags := append(storeAndRefreshFlags(),
		&cli.DurationFlag{
			Name:  "schedule--check-interval",
			Usage: "interval between scheduled checks",
			Value: app.DefaultConfigCheckInterval,
		},
		&cli.DurationFlag{
			Name:  "schedule--poll-tick",
			Usage: "how often the sleeping loop wakes",
			Value: app.DefaultConfigPollTick,
		},
	)

	return &cli.Command{
		Name:  "daemon",
		Usage: "run the scheduled refresh loop until interrupted",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			application, err := setupApp(cmd)
			if err != nil {
				return err
			}

			slog.InfoContext(ctx, "starting")
			if err := application.Daemon(ctx); err != nil {
				return fmt.Errorf("daemon failed: %w", err)
			}
			slog.InfoContext(ctx, "stopped gracefully")
			return nil
		},
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "print a currently-valid access token, refreshing first if due",
		Flags: storeAndRefreshFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			application, err := setupApp(cmd)
			if err != nil {
				return err
			}

			token, err := application.Token()
			if err != nil {
				return cli.Exit(fmt.Sprintf("token unavailable: %v", err), 1)
			}
			fmt.Fprintln(cmd.Writer, token.AccessToken)
			return nil
		},
	}
}

func restoreCommand() *cli.Command {
	flags := append(storeAndRefreshFlags(),
		&cli.StringFlag{
			Name:  "backup--storage",
			Usage: "backup storage type (none|file|keyring)",
		},
		&cli.StringFlag{
			Name:  "backup--file",
			Usage: "path to the snapshot file for file backup storage",
		},
	)

	return &cli.Command{
		Name:  "restore",
		Usage: "replay the last credential backup into the state store",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			application, err := setupApp(cmd)
			if err != nil {
				return err
			}

			if err := application.Restore(ctx); err != nil {
				return cli.Exit(fmt.Sprintf("restore failed: %v", err), 1)
			}
			slog.InfoContext(ctx, "restore completed")
			return nil
		},
	}
}
