package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	Bazarr     BazarrConfig     `mapstructure:"bazarr"`
	Refresh    RefreshConfig    `mapstructure:"refresh"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Server     ServerConfig     `mapstructure:"server"`
	Entities   EntitiesConfig   `mapstructure:"entities"`
	Supervisor SupervisorConfig `mapstructure:"supervisor"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// BazarrConfig holds connection defaults used by the setup command
type BazarrConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

// RefreshConfig controls polling
type RefreshConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	Timeout    time.Duration `mapstructure:"timeout"`
	SetupRetry time.Duration `mapstructure:"setup_retry"`
}

// StorageConfig locates the entry database
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig controls the HTTP surface
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// EntitiesConfig tunes the sensor projections
type EntitiesConfig struct {
	ProblemExpression string `mapstructure:"problem_expression"`
}

// SupervisorConfig is the restart policy for supervised services
type SupervisorConfig struct {
	FailureThreshold float64       `mapstructure:"failure_threshold"`
	FailureDecay     float64       `mapstructure:"failure_decay"`
	FailureBackoff   time.Duration `mapstructure:"failure_backoff"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
