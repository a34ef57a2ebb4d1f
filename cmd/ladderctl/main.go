// Command ladderctl administers a ladder database from the shell.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/atttc/ladder/internal/app"
	"github.com/atttc/ladder/internal/infra"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

func main() {
	cliApp := &cli.App{
		Name:  "ladderctl",
		Usage: "ladder administration",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log at info level"},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
			}
			return nil
		},
		Commands: []*cli.Command{
			newMigrateCommand(),
			newAdminCommand(),
			newSeasonCommand(),
			newTierCommand(),
			newTokenCommand(),
			newExportCommand(),
			newAuditCommand(),
			newEventsCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// env holds the services built on an open pool.
type env struct {
	app *app.App
	out io.Writer
}

// withEnv connects to the configured database, runs fn and closes the pool.
func withEnv(fn func(c *cli.Context, e *env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := infra.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		pool, err := infra.NewPostgresPool(c.Context, cfg)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()

		return fn(c, &env{
			app: app.New(cfg, pool, prometheus.NewRegistry(), logger),
			out: c.App.Writer,
		})
	}
}
