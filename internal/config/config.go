// Package config loads railtrace's runtime configuration from a YAML
// file with environment-variable overrides, following the same
// precedence rule throughout: a set environment variable always wins
// over the file value.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (l LoggingConfig) Validate() error {
	if err := validateOption(l.Level, "logging.level", validLogLevels); err != nil {
		return err
	}
	return validateOption(l.Format, "logging.format", validLogFormats)
}

// MemoryConfig selects and configures the MemoryStore backend.
type MemoryConfig struct {
	Backend string `yaml:"backend"` // "sqlite" or "postgres"
	DSN     string `yaml:"dsn"`
}

func (m MemoryConfig) Validate() error {
	if err := validateOption(m.Backend, "memory.backend", validMemoryBackends); err != nil {
		return err
	}
	return validateNonEmpty(m.DSN, "memory.dsn")
}

// GitHubConfig configures the optional read-only project enrichment call.
type GitHubConfig struct {
	Token string `yaml:"token"`
}

// GatewayConfig configures the model provider registry. Tier 1 (the
// curated pattern matcher) never needs configuration and is always
// available; tiers 2-4 are hosted and optional.
type GatewayConfig struct {
	Tier2APIKey string `yaml:"tier2_api_key"`

	Tier3ClientID     string `yaml:"tier3_client_id"`
	Tier3ClientSecret string `yaml:"tier3_client_secret"`
	Tier3TokenURL     string `yaml:"tier3_token_url"`

	Tier4APIKey string `yaml:"tier4_api_key"`
}

// VcsConfig bounds the subprocess calls made by the version-control
// context component.
type VcsConfig struct {
	BlameTimeout time.Duration `yaml:"blame_timeout"`
	LogTimeout   time.Duration `yaml:"log_timeout"`
}

func (v VcsConfig) Validate() error {
	if v.BlameTimeout <= 0 {
		return fmt.Errorf("vcs.blame_timeout: %w", ErrNonPositive)
	}
	if v.LogTimeout <= 0 {
		return fmt.Errorf("vcs.log_timeout: %w", ErrNonPositive)
	}
	return nil
}

// Config is the top-level configuration for the diagnosis pipeline.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Memory  MemoryConfig  `yaml:"memory"`
	GitHub  GitHubConfig  `yaml:"github"`
	Gateway GatewayConfig `yaml:"gateway"`
	Vcs     VcsConfig     `yaml:"vcs"`
}

// Default returns the configuration used when no file is present: the
// embedded sqlite memory backend and no hosted model tiers configured
// (only the tier-1 pattern matcher will be available).
func Default() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Memory:  MemoryConfig{Backend: "sqlite", DSN: "railtrace.db"},
		Vcs:     VcsConfig{BlameTimeout: 5 * time.Second, LogTimeout: 10 * time.Second},
	}
}

// Load reads path if it exists, then applies environment overrides.
// A missing file is not an error — the defaults plus environment
// overrides are used instead.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every sub-config. GitHub and Gateway fields are
// optional (empty means the corresponding enrichment/tier is disabled).
func (c Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := c.Memory.Validate(); err != nil {
		return err
	}
	return c.Vcs.Validate()
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RAILTRACE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("RAILTRACE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("RAILTRACE_MEMORY_BACKEND"); v != "" {
		cfg.Memory.Backend = v
	}
	if v := os.Getenv("RAILTRACE_MEMORY_DSN"); v != "" {
		cfg.Memory.DSN = v
	}
	if v := os.Getenv("RAILTRACE_GITHUB_TOKEN"); v != "" {
		cfg.GitHub.Token = v
	}
	if v := os.Getenv("RAILTRACE_TIER2_API_KEY"); v != "" {
		cfg.Gateway.Tier2APIKey = v
	}
	if v := os.Getenv("RAILTRACE_TIER3_CLIENT_ID"); v != "" {
		cfg.Gateway.Tier3ClientID = v
	}
	if v := os.Getenv("RAILTRACE_TIER3_CLIENT_SECRET"); v != "" {
		cfg.Gateway.Tier3ClientSecret = v
	}
	if v := os.Getenv("RAILTRACE_TIER3_TOKEN_URL"); v != "" {
		cfg.Gateway.Tier3TokenURL = v
	}
	if v := os.Getenv("RAILTRACE_TIER4_API_KEY"); v != "" {
		cfg.Gateway.Tier4APIKey = v
	}
	if v := os.Getenv("RAILTRACE_VCS_BLAME_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Vcs.BlameTimeout = d
		}
	}
	if v := os.Getenv("RAILTRACE_VCS_LOG_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Vcs.LogTimeout = d
		}
	}
}
