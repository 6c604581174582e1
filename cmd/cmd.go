// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// userFlag selects which user's tokens a command operates on.
func userFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "user",
		Aliases: []string{"u"},
		Usage:   "User ID the tokens belong to",
		Value:   "default",
	}
}

// authCommand handles the OAuth authorization code flow and token lifecycle.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize with Spotify using the OAuth2 authorization code flow",
				Flags: []cli.Flag{
					userFlag(),
					&cli.StringSliceFlag{
						Name:    "scope",
						Aliases: []string{"s"},
						Usage:   "OAuth scope to request (repeatable)",
					},
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL instead of opening a browser",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "status",
				Usage: "Show stored token state for a user",
				Flags: []cli.Flag{
					userFlag(),
					&cli.BoolFlag{
						Name:  "verify",
						Usage: "Verify the token against the API by fetching the user profile",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
			{
				Name:  "refresh",
				Usage: "Force a token refresh for a user",
				Flags: []cli.Flag{
					userFlag(),
				},
				Action: r.AuthRefresh,
			},
			{
				Name:  "logout",
				Usage: "Forget all stored tokens for a user",
				Flags: []cli.Flag{
					userFlag(),
				},
				Action: r.AuthLogout,
			},
		},
	}
}

// tokensCommand handles token inventory operations on the durable store.
func tokensCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tokens",
		Usage: "Inspect stored token records",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List stored token records",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.TokensList,
			},
			{
				Name:    "ui",
				Aliases: []string{"interactive"},
				Usage:   "Launch interactive TUI for token management",
				Action:  r.TokensUI,
			},
		},
	}
}

// apiCommand handles direct Web API calls using stored tokens.
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Query the Spotify Web API with stored credentials",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET to a Web API path, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					userFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of items to return",
					},
					&cli.IntFlag{
						Name:  "offset",
						Usage: "Index of the first item to return",
					},
					&cli.StringFlag{
						Name:  "market",
						Usage: "Market override (ISO 3166-1 alpha-2)",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "search",
				Usage: "Search the Spotify catalog",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "query",
					},
				},
				Flags: []cli.Flag{
					userFlag(),
					&cli.StringFlag{
						Name:  "type",
						Usage: "Comma-separated item types (album, artist, track, playlist, show, episode)",
						Value: "track",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of items to return",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.APISearch,
			},
		},
	}
}

// setupCommand handles setup operations for database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}
