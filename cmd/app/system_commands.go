package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/urbanfleet/fleetcore/cmd/app/commands"
	"github.com/urbanfleet/fleetcore/internal/app"
	"github.com/urbanfleet/fleetcore/internal/config"
)

func getSystemCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "migrate",
			Usage: "Apply database schema migrations",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunMigrations(container)
			},
		},
		{
			Name:  "seed-keys",
			Usage: "Generate the master secret file if it does not exist",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunSeedKeys(container, commands.DefaultIO().Writer)
			},
		},
		{
			Name:  "metrics",
			Usage: "Dump collected metrics in Prometheus text format",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunMetrics(container, commands.DefaultIO().Writer)
			},
		},
	}
}
