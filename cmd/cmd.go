// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// syncCommand handles playlist sync operations
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Sync local M3U playlists to the remote service",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Sync one playlist file",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "playlist",
						Aliases:  []string{"p"},
						Usage:    "Path to the M3U playlist file",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Sync even when the playlist is unchanged",
					},
					&cli.BoolFlag{
						Name:  "rebuild-index",
						Usage: "Rebuild the library index, ignoring the cached snapshot",
					},
					&cli.StringFlag{
						Name:  "report",
						Usage: "Report format: text, markdown, csv or json",
						Value: "text",
					},
				},
				Action: r.SyncRun,
			},
			{
				Name:  "status",
				Usage: "Show stored sync state for all playlists",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SyncStatus,
			},
		},
	}
}

// indexCommand handles library index operations
func indexCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Manage the remote library index cache",
		Commands: []*cli.Command{
			{
				Name:  "build",
				Usage: "Traverse the remote library and write a fresh index snapshot",
				Flags: []cli.Flag{
					configFlag(),
				},
				Action: r.IndexBuild,
			},
			{
				Name:  "info",
				Usage: "Show cached index age and size",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.IndexInfo,
			},
		},
	}
}

// catalogCommand handles the local song catalog
func catalogCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Manage the local song catalog",
		Commands: []*cli.Command{
			{
				Name:  "scan",
				Usage: "Scan a music directory into the catalog database",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:    "dir",
						Aliases: []string{"d"},
						Usage:   "Music directory to scan (defaults to catalog.music_dir)",
					},
				},
				Action: r.CatalogScan,
			},
		},
	}
}

// authCommand handles remote service login
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with the remote service",
		Commands: []*cli.Command{
			{
				Name:   "spotify",
				Usage:  "Run the Spotify OAuth2 login flow in the browser",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthSpotify,
			},
		},
	}
}

// configCommand handles configuration scaffolding
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write an example config.toml to the current directory",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output path",
						Value:   "config.toml",
					},
				},
				Action: r.ConfigInit,
			},
		},
	}
}
