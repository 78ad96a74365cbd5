package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/patchpilot/internal/driver"
	githubforge "github.com/patchpilot/internal/forge/github"
	"github.com/patchpilot/internal/logging"
)

// reviewTimeout bounds a full run including every oracle round trip.
const reviewTimeout = 30 * time.Minute

// ReviewCommand returns the review command.
func ReviewCommand() *cli.Command {
	return &cli.Command{
		Name:  "review",
		Usage: "Review a pull or merge request and post the findings",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "pr",
				Usage: "Target request as `OWNER/REPO/NUMBER`",
			},
			&cli.StringFlag{
				Name:    "event-path",
				Usage:   "GitHub Actions event payload `FILE`",
				EnvVars: []string{"GITHUB_EVENT_PATH"},
			},
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   "Code host: github or gitlab",
				Value:   "github",
			},
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"d"},
				Usage:   "Print the report to stdout instead of posting it",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Hunks reviewed in parallel (defaults to config)",
			},
		},
		Action: runReview,
	}
}

func runReview(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log.Level)
	log = log.With().Str("run_id", logging.NewRunID()).Logger()

	target, ok, err := resolveTarget(c, log)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), reviewTimeout)
	defer cancel()

	d, err := buildDriver(ctx, cfg, c.String("provider"), c.Int("workers"), c.Bool("dry-run"), log)
	if err != nil {
		return err
	}
	return d.Run(ctx, target)
}

// resolveTarget picks the request to review from --pr or, failing that, the
// Actions event payload. The second return is false when the event does not
// call for a review, which is a successful no-op rather than an error.
func resolveTarget(c *cli.Context, log zerolog.Logger) (driver.Target, bool, error) {
	if pr := c.String("pr"); pr != "" {
		ref, err := resolveRef(pr)
		if err != nil {
			return driver.Target{}, false, err
		}
		return driver.Target{Ref: ref}, true, nil
	}

	eventPath := c.String("event-path")
	if eventPath == "" {
		return driver.Target{}, false, fmt.Errorf("no target: pass --pr or run with GITHUB_EVENT_PATH set")
	}
	ev, err := githubforge.ReadEvent(eventPath)
	if err != nil {
		return driver.Target{}, false, fmt.Errorf("reading event payload: %w", err)
	}
	if !ev.Supported() {
		log.Info().Str("action", ev.Action).Msg("event does not trigger a review, exiting")
		return driver.Target{}, false, nil
	}

	target := driver.Target{Ref: ev.Ref}
	if ev.Incremental() {
		target.BaseSHA = ev.Before
		target.HeadSHA = ev.After
	}
	return target, true, nil
}
