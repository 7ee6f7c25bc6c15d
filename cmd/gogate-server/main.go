// Command gogate-server runs the session and authorization HTTP service.
//
//	gogate-server serve
//	gogate-server hash-password --password '...'
//
// Configuration is read from the environment and an optional .env file.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
)

var version = "dev"

func main() {
	cmd := &cli.Command{
		Name:    "gogate-server",
		Usage:   "Session issuance and authorization service",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Start the HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg := loadConfig()
					logger := newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
					logger.Info("starting gogate-server", slog.String("version", version))
					return runServer(ctx, cfg, logger)
				},
			},
			{
				Name:  "hash-password",
				Usage: "Print the argon2id hash of a password for seeding the users table",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Password to hash (read from stdin when omitted)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runHashPassword(loadConfig().Engine.Password, cmd.String("password"), os.Stdin, os.Stdout)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}
