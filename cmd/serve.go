package cmd

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/patchpilot/internal/driver"
	"github.com/patchpilot/internal/logging"
	"github.com/patchpilot/internal/server"
)

// ServeCommand returns the serve command.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the webhook server and review requests as they change",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (defaults to config)",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log.Level)

	// Fail fast on broken credentials instead of at the first delivery.
	if _, err := buildDriver(context.Background(), cfg, "github", 0, false, log); err != nil {
		return err
	}

	// Each delivery gets its own driver so app installation tokens, which
	// expire after an hour, are minted fresh per review.
	runner := runnerFunc(func(ctx context.Context, target driver.Target) error {
		runLog := log.With().Str("run_id", logging.NewRunID()).Logger()
		d, err := buildDriver(ctx, cfg, "github", 0, false, runLog)
		if err != nil {
			return err
		}
		return d.Run(ctx, target)
	})

	port := c.Int("port")
	if port == 0 {
		port = cfg.Server.Port
	}
	return server.New(port, cfg.Server.WebhookSecret, runner, log).Start()
}

type runnerFunc func(ctx context.Context, target driver.Target) error

func (f runnerFunc) Run(ctx context.Context, target driver.Target) error {
	return f(ctx, target)
}
