package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

// ErrUnknownProvider indicates the configured provider is not github or gitlab.
var ErrUnknownProvider = errors.New("unknown provider")

// Config represents the gitdash configuration.
type Config struct {
	Provider  string          `yaml:"provider" env:"GITDASH_PROVIDER"`
	Providers ProvidersConfig `yaml:"providers"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
	Server    ServerConfig    `yaml:"server"`
}

// ServerConfig holds settings for the local dashboard API.
type ServerConfig struct {
	Host string `yaml:"host" env:"GITDASH_HOST"`
	Port int    `yaml:"port" env:"GITDASH_PORT"`
}

// StorageConfig holds durable session storage settings.
type StorageConfig struct {
	Path string `yaml:"path" env:"GITDASH_STORAGE_PATH"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level         string `yaml:"level" env:"GITDASH_LOG_LEVEL"`
	Dir           string `yaml:"dir" env:"GITDASH_LOG_DIR"`
	RetentionDays int    `yaml:"retention_days"`
}

// ProvidersConfig holds hosting platform configurations.
type ProvidersConfig struct {
	GitHub HostConfig `yaml:"github"`
	GitLab HostConfig `yaml:"gitlab"`
}

// HostConfig holds per-platform settings. Token is only a default for
// `login`; the session itself is restored from storage.
type HostConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

// envVarPattern matches ${VAR_NAME} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Provider: "github",
		Storage: StorageConfig{
			Path: defaultStoragePath(),
		},
		Logging: LoggingConfig{
			Level:         "info",
			RetentionDays: 14,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 7100,
		},
	}
}

func defaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "gitdash.db"
	}
	return filepath.Join(dir, "gitdash", "gitdash.db")
}

// Load reads and parses the config file at the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Substitute environment variables
	data = envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := envVarPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(varName)))
	})

	// Start with defaults
	cfg := DefaultConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// LoadOrDefault behaves like Load but falls back to defaults when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := DefaultConfig()
		if err := applyEnv(cfg); err != nil {
			return nil, err
		}
		return cfg, cfg.Validate()
	}
	return Load(path)
}

// applyEnv overrides file values with GITDASH_* environment variables.
func applyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}
	return nil
}

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Provider {
	case "github", "gitlab":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Provider)
	}
	if c.Storage.Path == "" {
		return errors.New("storage.path is required")
	}
	return nil
}

// Host returns the settings of the active provider.
func (c *Config) Host() HostConfig {
	if c.Provider == "gitlab" {
		return c.Providers.GitLab
	}
	return c.Providers.GitHub
}
