package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/nstop/reddit-topics/internal/collector"
	"gopkg.in/yaml.v3"
)

// Config holds service configuration. Values come from an optional YAML file
// overridden by environment variables; Reddit credentials are env-only.
type Config struct {
	Address string
	Port    int

	CollectorMode string
	UserAgent     string
	TopicsFile    string

	// Aggregation tuning
	DefaultPostLimit     int
	MaxConcurrentFetches int
	FetchTimeout         time.Duration

	// Server-side rate limiting
	RateLimit      float64
	RateLimitBurst int

	// HTTP timeouts
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	LogLevel string

	// Reddit API credentials (never read from the YAML file)
	RedditClientID     string
	RedditClientSecret string
	RedditUsername     string
	RedditPassword     string
}

// fileConfig is the YAML schema. Durations are strings in Go duration syntax
// ("5s", "1m30s"); pointers distinguish absent keys from zero values.
type fileConfig struct {
	Address              *string  `yaml:"address"`
	Port                 *int     `yaml:"port"`
	CollectorMode        *string  `yaml:"collector_mode"`
	UserAgent            *string  `yaml:"user_agent"`
	TopicsFile           *string  `yaml:"topics_file"`
	DefaultPostLimit     *int     `yaml:"default_post_limit"`
	MaxConcurrentFetches *int     `yaml:"max_concurrent_fetches"`
	FetchTimeout         *string  `yaml:"fetch_timeout"`
	RateLimit            *float64 `yaml:"rate_limit"`
	RateLimitBurst       *int     `yaml:"rate_limit_burst"`
	ReadTimeout          *string  `yaml:"read_timeout"`
	WriteTimeout         *string  `yaml:"write_timeout"`
	IdleTimeout          *string  `yaml:"idle_timeout"`
	ShutdownTimeout      *string  `yaml:"shutdown_timeout"`
	LogLevel             *string  `yaml:"log_level"`
}

// Default returns sensible defaults
func Default() *Config {
	return &Config{
		Address:              "",
		Port:                 8080,
		CollectorMode:        "public",
		TopicsFile:           "list.txt",
		DefaultPostLimit:     50,
		MaxConcurrentFetches: 4,
		FetchTimeout:         10 * time.Second,
		RateLimit:            100,
		RateLimitBurst:       200,
		ReadTimeout:          10 * time.Second,
		WriteTimeout:         30 * time.Second,
		IdleTimeout:          120 * time.Second,
		ShutdownTimeout:      30 * time.Second,
		LogLevel:             "info",
	}
}

// Load builds the config: defaults, then the YAML file at path (if any), then
// environment variable overrides. An empty path skips the file step.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&c.Address, fc.Address)
	setInt(&c.Port, fc.Port)
	setString(&c.CollectorMode, fc.CollectorMode)
	setString(&c.UserAgent, fc.UserAgent)
	setString(&c.TopicsFile, fc.TopicsFile)
	setInt(&c.DefaultPostLimit, fc.DefaultPostLimit)
	setInt(&c.MaxConcurrentFetches, fc.MaxConcurrentFetches)
	setInt(&c.RateLimitBurst, fc.RateLimitBurst)
	setString(&c.LogLevel, fc.LogLevel)
	if fc.RateLimit != nil {
		c.RateLimit = *fc.RateLimit
	}

	durations := []struct {
		raw *string
		dst *time.Duration
		key string
	}{
		{fc.FetchTimeout, &c.FetchTimeout, "fetch_timeout"},
		{fc.ReadTimeout, &c.ReadTimeout, "read_timeout"},
		{fc.WriteTimeout, &c.WriteTimeout, "write_timeout"},
		{fc.IdleTimeout, &c.IdleTimeout, "idle_timeout"},
		{fc.ShutdownTimeout, &c.ShutdownTimeout, "shutdown_timeout"},
	}
	for _, d := range durations {
		if d.raw == nil {
			continue
		}
		dur, err := time.ParseDuration(*d.raw)
		if err != nil {
			return fmt.Errorf("parse config file %s: %s: %w", path, d.key, err)
		}
		*d.dst = dur
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("COLLECTOR_MODE"); v != "" {
		c.CollectorMode = v
	}
	if v := os.Getenv("TOPICS_FILE"); v != "" {
		c.TopicsFile = v
	}
	if v := os.Getenv("REDDIT_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("FETCH_TIMEOUT_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.FetchTimeout = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("DEFAULT_POST_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.DefaultPostLimit = n
		}
	}

	if v := os.Getenv("REDDIT_CLIENT_ID"); v != "" {
		c.RedditClientID = v
	}
	if v := os.Getenv("REDDIT_CLIENT_SECRET"); v != "" {
		c.RedditClientSecret = v
	}
	if v := os.Getenv("REDDIT_USERNAME"); v != "" {
		c.RedditUsername = v
	}
	if v := os.Getenv("REDDIT_PASSWORD"); v != "" {
		c.RedditPassword = v
	}
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	switch c.CollectorMode {
	case "api", "public", "mock":
	default:
		return fmt.Errorf("invalid collector mode: %q", c.CollectorMode)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}
	if c.MaxConcurrentFetches <= 0 {
		return fmt.Errorf("max concurrent fetches must be positive")
	}
	if c.DefaultPostLimit <= 0 {
		return fmt.Errorf("default post limit must be positive")
	}
	return nil
}

// Collector maps the service config onto collector settings.
func (c *Config) Collector() collector.Config {
	return collector.Config{
		Mode:         c.CollectorMode,
		UserAgent:    c.UserAgent,
		ClientID:     c.RedditClientID,
		ClientSecret: c.RedditClientSecret,
		Username:     c.RedditUsername,
		Password:     c.RedditPassword,
	}
}

// Level parses the configured log level, defaulting to info.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
