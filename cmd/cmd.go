// submodule cmd contains command definitions
package main

import (
	"fmt"
	"strings"

	"github.com/desertthunder/topspot/internal/formatter"
	"github.com/desertthunder/topspot/internal/models"
	"github.com/urfave/cli/v3"
)

// command builds the root command. Flags declared here are inherited by every subcommand.
func (r *Runner) command() *cli.Command {
	return &cli.Command{
		Name:    "topspot",
		Usage:   "Browse your Spotify top artists and tracks",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   defaultConfigPath,
			},
			&cli.StringFlag{
				Name:    "client-id",
				Usage:   "Spotify client ID (overrides config)",
				Sources: cli.EnvVars("SPOTIFY_CLIENT_ID"),
			},
			&cli.StringFlag{
				Name:    "client-secret",
				Usage:   "Spotify client secret (overrides config)",
				Sources: cli.EnvVars("SPOTIFY_CLIENT_SECRET"),
			},
			&cli.StringFlag{
				Name:    "redirect-uri",
				Usage:   "OAuth redirect URI (overrides config)",
				Sources: cli.EnvVars("SPOTIFY_REDIRECT_URI"),
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Before:   r.before,
		Commands: r.register(),
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create config.toml if missing, initialize the database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authorization",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authorize with Spotify (PKCE) and store a session",
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Discard the stored session",
				Action: r.AuthLogout,
			},
			{
				Name:  "status",
				Usage: "Show the stored session",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "verify",
						Usage: "Call /me to check the token is still accepted",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

func topCommand(r *Runner) *cli.Command {
	counts := make([]string, len(models.AllowedCounts))
	for i, n := range models.AllowedCounts {
		counts[i] = fmt.Sprint(n)
	}

	return &cli.Command{
		Name:  "top",
		Usage: "Fetch your top artists or tracks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "category",
				Aliases: []string{"t"},
				Usage:   "artists or tracks",
				Value:   models.Tracks.String(),
			},
			&cli.StringFlag{
				Name:    "time-range",
				Aliases: []string{"r"},
				Usage:   "short_term, medium_term or long_term",
				Value:   models.MediumTerm.String(),
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Number of items, one of " + strings.Join(counts, ", "),
				Value:   models.AllowedCounts[0],
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: " + strings.Join(formatter.Formats, ", "),
				Value:   formatter.Table.String(),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the export to a file instead of stdout",
			},
		},
		Action: r.Top,
	}
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive terminal UI",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the TUI is running",
				Value: "./tmp/topspot-tui.log",
			},
		},
		Action: r.TUI,
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web interface",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default from [server] in config)",
			},
			&cli.BoolFlag{
				Name:  "secure-cookies",
				Usage: "Mark cookies Secure (serve behind HTTPS)",
			},
		},
		Action: r.Serve,
	}
}
