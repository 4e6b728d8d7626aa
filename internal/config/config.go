package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/junho85/garden10/internal/dateutil"
)

// GitHubConfig holds commit-search API client configuration
type GitHubConfig struct {
	Token          string
	APIBaseURL     string
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// SchedulerConfig holds reconciliation scheduler configuration
type SchedulerConfig struct {
	Enabled  bool
	Interval time.Duration
}

// ChallengeConfig describes the fixed-length challenge period. It bounds
// default aggregation ranges and is never persisted.
type ChallengeConfig struct {
	StartDate time.Time
	TotalDays int
}

// EndDate returns the last calendar day of the challenge.
func (c ChallengeConfig) EndDate() time.Time {
	return c.StartDate.AddDate(0, 0, c.TotalDays-1)
}

// Config is the application configuration, loaded once at startup from an
// optional config.yaml plus environment overrides.
type Config struct {
	Port               string
	DBConnectionString string
	GitHub             GitHubConfig
	Scheduler          SchedulerConfig
	Challenge          ChallengeConfig
	IngestWorkers      int
}

// Load reads configuration with documented defaults. Environment variables
// (PORT, DB_CONNECTION_STRING, GITHUB_TOKEN, SCHEDULER_ENABLED, ...) take
// precedence over config.yaml.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetDefault("port", "8080")
	v.SetDefault("db_connection_string", "")
	v.SetDefault("github.token", "")
	v.SetDefault("github.api_base_url", "https://api.github.com")
	v.SetDefault("github.max_retries", 3)
	v.SetDefault("github.initial_backoff", time.Second)
	v.SetDefault("github.max_backoff", time.Minute)
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval", time.Hour)
	v.SetDefault("challenge.start_date", "2025-03-10")
	v.SetDefault("challenge.total_days", 100)
	v.SetDefault("ingest.workers", 1)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	startDate, err := dateutil.ParseDate(v.GetString("challenge.start_date"))
	if err != nil {
		return nil, fmt.Errorf("invalid challenge.start_date: %w", err)
	}

	cfg := &Config{
		Port:               v.GetString("port"),
		DBConnectionString: v.GetString("db_connection_string"),
		GitHub: GitHubConfig{
			Token:          v.GetString("github.token"),
			APIBaseURL:     v.GetString("github.api_base_url"),
			MaxRetries:     v.GetInt("github.max_retries"),
			InitialBackoff: v.GetDuration("github.initial_backoff"),
			MaxBackoff:     v.GetDuration("github.max_backoff"),
		},
		Scheduler: SchedulerConfig{
			Enabled:  v.GetBool("scheduler.enabled"),
			Interval: v.GetDuration("scheduler.interval"),
		},
		Challenge: ChallengeConfig{
			StartDate: startDate,
			TotalDays: v.GetInt("challenge.total_days"),
		},
		IngestWorkers: v.GetInt("ingest.workers"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks structural invariants. Secrets (DB connection string,
// GitHub token) are checked separately at startup so tests can construct
// configs without them.
func (c *Config) Validate() error {
	if c.Challenge.TotalDays < 1 {
		return fmt.Errorf("challenge.total_days must be at least 1, got %d", c.Challenge.TotalDays)
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be positive, got %v", c.Scheduler.Interval)
	}
	if c.IngestWorkers < 1 {
		return fmt.Errorf("ingest.workers must be at least 1, got %d", c.IngestWorkers)
	}
	return nil
}
