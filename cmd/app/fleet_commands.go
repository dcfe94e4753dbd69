package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/urbanfleet/fleetcore/cmd/app/commands"
	"github.com/urbanfleet/fleetcore/internal/app"
	"github.com/urbanfleet/fleetcore/internal/config"
)

func getFleetCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-admin",
			Usage: "Bootstrap a staff account",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "username",
					Aliases:  []string{"u"},
					Required: true,
					Usage:    "Account username (8-10 chars, starts with a letter or underscore)",
				},
				&cli.StringFlag{
					Name:     "password",
					Aliases:  []string{"p"},
					Required: true,
					Usage:    "Account password (12-30 chars, mixed character classes)",
				},
				&cli.StringFlag{
					Name:     "first-name",
					Required: true,
					Usage:    "First name",
				},
				&cli.StringFlag{
					Name:     "last-name",
					Required: true,
					Usage:    "Last name",
				},
				&cli.StringFlag{
					Name:    "role",
					Aliases: []string{"r"},
					Value:   "administrator",
					Usage:   "Account role: 'administrator' or 'operator'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				userUseCase, err := container.UserUseCase()
				if err != nil {
					return err
				}

				return commands.RunCreateAdmin(
					ctx,
					userUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("username"),
					cmd.String("password"),
					cmd.String("first-name"),
					cmd.String("last-name"),
					cmd.String("role"),
				)
			},
		},
		{
			Name:  "create-backup",
			Usage: "Write a snapshot archive of the database",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				backupUseCase, err := container.BackupUseCase()
				if err != nil {
					return err
				}

				return commands.RunCreateBackup(
					ctx,
					backupUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
				)
			},
		},
	}
}
