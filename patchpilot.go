package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/patchpilot/cmd"
)

const (
	version = "0.1.0"
)

func main() {
	app := &cli.App{
		Name:    "patchpilot",
		Usage:   "AI code review for GitHub pull requests and GitLab merge requests",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE` (default: ./patchpilot.toml)",
			},
		},
		Commands: []*cli.Command{
			cmd.ReviewCommand(),
			cmd.ServeCommand(),
			cmd.ConfigCommand(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
