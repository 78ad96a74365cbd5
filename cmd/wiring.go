package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/patchpilot/internal/config"
	"github.com/patchpilot/internal/driver"
	"github.com/patchpilot/internal/extract"
	"github.com/patchpilot/internal/forge"
	githubforge "github.com/patchpilot/internal/forge/github"
	gitlabforge "github.com/patchpilot/internal/forge/gitlab"
	"github.com/patchpilot/internal/oracle"
	"github.com/patchpilot/internal/pathfilter"
	"github.com/patchpilot/internal/prompts"
	"github.com/patchpilot/internal/redact"
	"github.com/patchpilot/internal/review"
)

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// resolveRef parses an owner/repo/number target.
func resolveRef(s string) (forge.Ref, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return forge.Ref{}, fmt.Errorf("invalid target %q: expected owner/repo/number", s)
	}
	number, err := strconv.Atoi(parts[2])
	if err != nil || number <= 0 {
		return forge.Ref{}, fmt.Errorf("invalid request number in %q", s)
	}
	return forge.Ref{Owner: parts[0], Repo: parts[1], Number: number}, nil
}

func buildReviewer(cfg *config.Config, workers int, log zerolog.Logger) (*review.Service, error) {
	client, err := oracle.NewClient(oracle.Options{
		Provider: oracle.Provider(cfg.Oracle.Provider),
		APIKey:   cfg.Oracle.APIKey,
		BaseURL:  cfg.Oracle.BaseURL,
		Params: oracle.Params{
			Model:            cfg.Oracle.Model,
			Temperature:      cfg.Oracle.Temperature,
			MaxTokens:        cfg.Oracle.MaxTokens,
			TopP:             cfg.Oracle.TopP,
			FrequencyPenalty: cfg.Oracle.FrequencyPenalty,
			PresencePenalty:  cfg.Oracle.PresencePenalty,
		},
		Timeout:           time.Duration(cfg.Oracle.TimeoutSeconds) * time.Second,
		RequestsPerMinute: cfg.Oracle.RequestsPerMinute,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("creating oracle client: %w", err)
	}

	if workers <= 0 {
		workers = cfg.Review.Workers
	}
	return review.NewService(
		prompts.NewBuilder(cfg.Review.Instructions),
		extract.NewExtractor(client, log),
		workers,
		log,
	), nil
}

func buildForge(ctx context.Context, cfg *config.Config, providerName string, log zerolog.Logger) (forge.Client, error) {
	switch providerName {
	case "", "github":
		return buildGitHub(ctx, cfg, log)
	case "gitlab":
		token := cfg.GitLab.Token
		if token == "" {
			token = os.Getenv("GITLAB_TOKEN")
		}
		if token == "" {
			return nil, fmt.Errorf("gitlab token is not configured")
		}
		return gitlabforge.NewClient(token, cfg.GitLab.BaseURL, log)
	default:
		return nil, fmt.Errorf("unsupported provider %q", providerName)
	}
}

func buildGitHub(ctx context.Context, cfg *config.Config, log zerolog.Logger) (forge.Client, error) {
	var opts []githubforge.Option
	if cfg.GitHub.BaseURL != "" {
		opts = append(opts, githubforge.WithBaseURL(cfg.GitHub.BaseURL))
	}

	if cfg.GitHub.AppID != "" && cfg.GitHub.AppKeyFile != "" {
		pem, err := os.ReadFile(cfg.GitHub.AppKeyFile)
		if err != nil {
			return nil, fmt.Errorf("reading app key: %w", err)
		}
		var appOpts []githubforge.AppOption
		if cfg.GitHub.BaseURL != "" {
			appOpts = append(appOpts, githubforge.WithAppBaseURL(cfg.GitHub.BaseURL))
		}
		auth, err := githubforge.NewAppAuth(cfg.GitHub.AppID, cfg.GitHub.InstallationID, pem, appOpts...)
		if err != nil {
			return nil, err
		}
		token, err := auth.InstallationToken(ctx)
		if err != nil {
			return nil, err
		}
		return githubforge.NewClient(token, log, opts...), nil
	}

	token := cfg.GitHub.Token
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	if token == "" {
		return nil, fmt.Errorf("github token is not configured")
	}
	return githubforge.NewClient(token, log, opts...), nil
}

func buildDriver(ctx context.Context, cfg *config.Config, providerName string, workers int, dryRun bool, log zerolog.Logger) (*driver.Driver, error) {
	forgeClient, err := buildForge(ctx, cfg, providerName, log)
	if err != nil {
		return nil, err
	}

	reviewer, err := buildReviewer(cfg, workers, log)
	if err != nil {
		return nil, err
	}

	var scrubber *redact.Scrubber
	if cfg.Review.RedactSecrets {
		scrubber, err = redact.NewScrubber(log)
		if err != nil {
			return nil, fmt.Errorf("initializing secret scrubber: %w", err)
		}
	}

	return driver.New(driver.Options{
		Forge:    forgeClient,
		Filter:   pathfilter.New(cfg.Review.Exclude),
		Scrubber: scrubber,
		Reviewer: reviewer,
		DryRun:   dryRun,
	}, log), nil
}
