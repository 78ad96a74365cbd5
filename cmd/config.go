package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/patchpilot/internal/config"
)

// ConfigCommand returns the config command.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write a starter configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
						Value:   "patchpilot.toml",
					},
				},
				Action: runConfigInit,
			},
			{
				Name:   "validate",
				Usage:  "Validate the configuration file",
				Action: runConfigValidate,
			},
			{
				Name:   "show",
				Usage:  "Print the effective configuration with secrets masked",
				Action: runConfigShow,
			},
		},
	}
}

func runConfigInit(c *cli.Context) error {
	outputPath := c.String("output")

	if err := config.InitConfig(outputPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Created configuration file at %s\n", outputPath)
	return nil
}

func runConfigValidate(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	fmt.Println("Configuration is valid")
	return nil
}

func runConfigShow(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	m := cfg.Masked()

	fmt.Println("[log]")
	fmt.Printf("level = %q\n", m.Log.Level)

	fmt.Println("\n[github]")
	fmt.Printf("token = %q\n", m.GitHub.Token)
	fmt.Printf("base_url = %q\n", m.GitHub.BaseURL)
	fmt.Printf("app_id = %q\n", m.GitHub.AppID)
	fmt.Printf("app_key_file = %q\n", m.GitHub.AppKeyFile)
	fmt.Printf("installation_id = %d\n", m.GitHub.InstallationID)

	fmt.Println("\n[gitlab]")
	fmt.Printf("token = %q\n", m.GitLab.Token)
	fmt.Printf("base_url = %q\n", m.GitLab.BaseURL)

	fmt.Println("\n[oracle]")
	fmt.Printf("provider = %q\n", m.Oracle.Provider)
	fmt.Printf("model = %q\n", m.Oracle.Model)
	fmt.Printf("api_key = %q\n", m.Oracle.APIKey)
	fmt.Printf("base_url = %q\n", m.Oracle.BaseURL)
	fmt.Printf("temperature = %g\n", m.Oracle.Temperature)
	fmt.Printf("max_tokens = %d\n", m.Oracle.MaxTokens)
	fmt.Printf("timeout_seconds = %d\n", m.Oracle.TimeoutSeconds)
	fmt.Printf("requests_per_minute = %d\n", m.Oracle.RequestsPerMinute)

	fmt.Println("\n[review]")
	fmt.Printf("instructions = %q\n", m.Review.Instructions)
	fmt.Printf("exclude = %q\n", m.Review.Exclude)
	fmt.Printf("redact_secrets = %v\n", m.Review.RedactSecrets)
	fmt.Printf("workers = %d\n", m.Review.Workers)

	fmt.Println("\n[server]")
	fmt.Printf("port = %d\n", m.Server.Port)
	fmt.Printf("webhook_secret = %q\n", m.Server.WebhookSecret)

	return nil
}
