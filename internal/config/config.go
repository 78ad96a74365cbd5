// Package config loads layered configuration: built-in defaults, then an
// optional TOML file, then PATCHPILOT_ environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the full application configuration.
type Config struct {
	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`

	GitHub struct {
		Token   string `koanf:"token"`
		BaseURL string `koanf:"base_url"`

		// App credentials; when set they take precedence over Token.
		AppID          string `koanf:"app_id"`
		AppKeyFile     string `koanf:"app_key_file"`
		InstallationID int64  `koanf:"installation_id"`
	} `koanf:"github"`

	GitLab struct {
		Token   string `koanf:"token"`
		BaseURL string `koanf:"base_url"`
	} `koanf:"gitlab"`

	Oracle struct {
		Provider          string  `koanf:"provider"`
		Model             string  `koanf:"model"`
		APIKey            string  `koanf:"api_key"`
		BaseURL           string  `koanf:"base_url"`
		Temperature       float64 `koanf:"temperature"`
		MaxTokens         int     `koanf:"max_tokens"`
		TopP              float64 `koanf:"top_p"`
		FrequencyPenalty  float64 `koanf:"frequency_penalty"`
		PresencePenalty   float64 `koanf:"presence_penalty"`
		TimeoutSeconds    int     `koanf:"timeout_seconds"`
		RequestsPerMinute int     `koanf:"requests_per_minute"`
	} `koanf:"oracle"`

	Review struct {
		Instructions  string `koanf:"instructions"`
		Exclude       string `koanf:"exclude"`
		RedactSecrets bool   `koanf:"redact_secrets"`
		Workers       int    `koanf:"workers"`
	} `koanf:"review"`

	Server struct {
		Port          int    `koanf:"port"`
		WebhookSecret string `koanf:"webhook_secret"`
	} `koanf:"server"`
}

const envPrefix = "PATCHPILOT_"

// LoadConfig loads the configuration. When configPath is empty the default
// locations are tried; a missing file is not an error, the defaults and
// environment still apply.
func LoadConfig(configPath string) (*Config, error) {
	k := koanf.New(".")

	k.Load(confmap.Provider(map[string]interface{}{
		"log.level":                  "info",
		"oracle.provider":            "openai",
		"oracle.model":               "gpt-4o-mini",
		"oracle.temperature":         0.2,
		"oracle.max_tokens":          700,
		"oracle.top_p":               1.0,
		"oracle.timeout_seconds":     120,
		"oracle.requests_per_minute": 0,
		"review.redact_secrets":      true,
		"review.workers":             1,
		"server.port":                8080,
	}, "."), nil)

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	} else {
		for _, path := range []string{"./patchpilot.toml", "$HOME/.patchpilot.toml"} {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	// PATCHPILOT_ORACLE__MAX_TOKENS -> oracle.max_tokens. Double underscore
	// separates sections so single underscores survive inside key names.
	k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the fields every run needs before any network call.
func Validate(cfg *Config) error {
	switch cfg.Oracle.Provider {
	case "openai", "anthropic", "ollama":
	case "":
		return fmt.Errorf("oracle provider is required")
	default:
		return fmt.Errorf("unsupported oracle provider %q", cfg.Oracle.Provider)
	}

	if cfg.Oracle.Model == "" {
		return fmt.Errorf("oracle model is required")
	}
	if cfg.Oracle.Provider != "ollama" && cfg.Oracle.APIKey == "" {
		return fmt.Errorf("oracle api_key is required for provider %q", cfg.Oracle.Provider)
	}
	if cfg.Review.Workers < 1 {
		return fmt.Errorf("review workers must be at least 1")
	}
	return nil
}

// InitConfig writes a sample configuration file, refusing to overwrite.
func InitConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# PatchPilot configuration

[log]
level = "info"

[github]
token = "your-github-token"

[gitlab]
token = ""
base_url = ""

[oracle]
provider = "openai"
model = "gpt-4o-mini"
api_key = "your-api-key"
temperature = 0.2
max_tokens = 700

[review]
exclude = "*.lock,**/generated/*"
redact_secrets = true
workers = 1
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0o644)
}

// Masked returns a copy with credential fields reduced to a hint, for
// printing the effective configuration.
func (c *Config) Masked() Config {
	masked := *c
	masked.GitHub.Token = maskSecret(c.GitHub.Token)
	masked.GitLab.Token = maskSecret(c.GitLab.Token)
	masked.Oracle.APIKey = maskSecret(c.Oracle.APIKey)
	masked.Server.WebhookSecret = maskSecret(c.Server.WebhookSecret)
	return masked
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
