package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/hllvc/cursorkeep/internal/credential"
	"github.com/hllvc/cursorkeep/internal/inspect"
)

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "local diagnostics over the credential state",
		Commands: []*cli.Command{
			inspectEntriesCommand(),
			inspectJWTCommand(),
		},
	}
}

func inspectEntriesCommand() *cli.Command {
	return &cli.Command{
		Name:  "entries",
		Usage: "dump the auth-related store entries and their classification",
		Flags: storeAndRefreshFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			application, err := setupApp(cmd)
			if err != nil {
				return err
			}

			entries, err := application.AuthEntries(ctx)
			if err != nil {
				return cli.Exit(fmt.Sprintf("reading entries failed: %v", err), 1)
			}

			out := cmd.Writer
			fmt.Fprintf(out, "%d auth-related entries\n\n", len(entries))
			for _, entry := range entries {
				fmt.Fprintf(out, "%s\n", entry.Key)
				if !entry.Value.IsStructured() {
					fmt.Fprintf(out, "  raw value (%d bytes)\n", len(entry.Value.Raw()))
					continue
				}

				fragment, ok := credential.Classify(entry.Value)
				if !ok {
					fmt.Fprintln(out, "  structured, no credential fields")
					continue
				}
				if fragment.AccessToken != nil {
					fmt.Fprintf(out, "  accessToken  %s\n", preview(*fragment.AccessToken))
				}
				if fragment.RefreshToken != nil {
					fmt.Fprintf(out, "  refreshToken %s\n", preview(*fragment.RefreshToken))
				}
				if fragment.ExpiresAt != nil {
					if expiry, err := credential.ExpiryInstant(*fragment.ExpiresAt); err == nil {
						fmt.Fprintf(out, "  expiresAt    %s (%s)\n", fragment.ExpiresAt, expiry.Format(time.RFC3339))
					} else {
						fmt.Fprintf(out, "  expiresAt    %s (unparseable)\n", fragment.ExpiresAt)
					}
				}
			}
			return nil
		},
	}
}

func inspectJWTCommand() *cli.Command {
	return &cli.Command{
		Name:      "jwt",
		Usage:     "decode a JWT's time claims locally (nothing leaves the machine)",
		ArgsUsage: "[token]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			token := cmd.Args().First()
			if token == "" {
				var err error
				token, err = promptToken()
				if err != nil {
					return fmt.Errorf("reading token: %w", err)
				}
			}
			if token == "" {
				return cli.Exit("no token provided", 1)
			}

			report, err := inspect.AnalyzeToken(token, time.Now())
			if err != nil {
				return cli.Exit(fmt.Sprintf("not a decodable JWT: %v", err), 1)
			}

			out := cmd.Writer
			if report.Subject != "" {
				fmt.Fprintf(out, "subject:    %s\n", report.Subject)
			}
			if report.Issuer != "" {
				fmt.Fprintf(out, "issuer:     %s\n", report.Issuer)
			}
			if report.IssuedAt != nil {
				fmt.Fprintf(out, "issued at:  %s (age %s)\n", report.IssuedAt.Format(time.RFC3339), report.Age.Round(time.Second))
			}
			if report.ExpiresAt == nil {
				fmt.Fprintln(out, "expires at: no exp claim")
				return nil
			}

			fmt.Fprintf(out, "expires at: %s\n", report.ExpiresAt.Format(time.RFC3339))
			if report.Expired {
				fmt.Fprintf(out, "status:     expired %s ago\n", (-report.Remaining).Round(time.Second))
				return cli.Exit("", 1)
			}
			fmt.Fprintf(out, "status:     %s remaining\n", report.Remaining.Round(time.Second))
			return nil
		},
	}
}

// promptToken reads a token without echoing when attached to a terminal,
// and falls back to reading a line when input is piped.
func promptToken() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "token: ")
		data, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// preview elides a token for display.
func preview(token string) string {
	if len(token) <= 20 {
		return token
	}
	return token[:20] + "..."
}
