package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. BAZARRWATCH_BAZARR_API_KEY
const EnvPrefix = "BAZARRWATCH"

// Load reads configuration from configPath, or from the standard locations
// when configPath is empty. A missing file in the standard locations is not
// an error; defaults and environment variables apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".bazarrwatch"))
		}
		v.AddConfigPath("/etc/bazarrwatch/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Bazarr defaults, consumed by setup
	v.SetDefault("bazarr.url", "")
	v.SetDefault("bazarr.api_key", "")

	// Refresh defaults
	v.SetDefault("refresh.interval", "5m")
	v.SetDefault("refresh.timeout", "10s")
	v.SetDefault("refresh.setup_retry", "30s")

	v.SetDefault("storage.path", "bazarrwatch.db")

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.listen", ":8686")

	v.SetDefault("entities.problem_expression", "len(health_issues) > 0")

	// Supervisor defaults match suture's stock policy
	v.SetDefault("supervisor.failure_threshold", 5.0)
	v.SetDefault("supervisor.failure_decay", 30.0)
	v.SetDefault("supervisor.failure_backoff", "15s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.Refresh.Interval <= 0 {
		return fmt.Errorf("refresh.interval must be positive, got %s", cfg.Refresh.Interval)
	}
	if cfg.Refresh.Timeout <= 0 {
		return fmt.Errorf("refresh.timeout must be positive, got %s", cfg.Refresh.Timeout)
	}
	if cfg.Refresh.SetupRetry < 0 {
		return fmt.Errorf("refresh.setup_retry must not be negative, got %s", cfg.Refresh.SetupRetry)
	}

	if cfg.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}

	if cfg.Server.Enabled && cfg.Server.Listen == "" {
		return fmt.Errorf("server.listen is required when the server is enabled")
	}

	if strings.TrimSpace(cfg.Entities.ProblemExpression) == "" {
		return fmt.Errorf("entities.problem_expression must not be empty")
	}

	if cfg.Supervisor.FailureThreshold <= 0 {
		return fmt.Errorf("supervisor.failure_threshold must be positive")
	}
	if cfg.Supervisor.FailureDecay <= 0 {
		return fmt.Errorf("supervisor.failure_decay must be positive")
	}
	if cfg.Supervisor.FailureBackoff < 0 {
		return fmt.Errorf("supervisor.failure_backoff must not be negative")
	}

	// Validate logging level
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}
