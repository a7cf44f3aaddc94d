package main

import (
	"context"
	"fmt"
	"os"

	"donor-crm/internal/config"
	"donor-crm/internal/pkg/logger"

	cli "github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "donor-crm",
		Usage: "Donor CRM journeys and reports",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-mode",
				Usage:   "Log mode (development, production)",
				Value:   "development",
				Sources: cli.EnvVars("LOG_MODE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API and run the journey scheduler",
				Action: withApp(serve),
			},
			{
				Name:   "tick",
				Usage:  "Run one scheduler tick and exit",
				Action: withApp(tick),
			},
			{
				Name:  "migrate",
				Usage: "Create or update the database schema",
				Action: withApp(func(ctx context.Context, a *app) error {
					a.log.Info("Schema is up to date")
					return nil
				}),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func withApp(fn func(ctx context.Context, a *app) error) cli.ActionFunc {
	return func(ctx context.Context, command *cli.Command) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg.LogMode = command.String("log-mode")

		log, err := logger.New(cfg.LogMode)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer log.Sync()

		a, err := newApp(ctx, cfg, log)
		if err != nil {
			log.Error("Startup failed", "error", err)
			return err
		}
		defer a.Close()

		return fn(ctx, a)
	}
}
