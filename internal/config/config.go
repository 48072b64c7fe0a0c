// Terascout - Event Intelligence Scouts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/terascout

// Package config provides layered configuration loading for Terascout.
//
// Configuration is assembled from three layers, later layers overriding
// earlier ones:
//
//  1. Struct defaults (defaultConfig)
//  2. Optional YAML config file (config.yaml, /etc/terascout/config.yaml,
//     or the path named by CONFIG_PATH)
//  3. TERASCOUT_-prefixed environment variables
//
// The process-wide scout parameters (poll interval, cycle cap, lifetime
// bounds, email rate limit, text truncation limits, dedup lookback) live in
// ScoutConfig and are loaded once at startup; individual scouts cannot
// override them.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Store   StoreConfig   `koanf:"store"`
	Scout   ScoutConfig   `koanf:"scout"`
	Fetch   FetchConfig   `koanf:"fetch"`
	AI      AIConfig      `koanf:"ai"`
	SMTP    SMTPConfig    `koanf:"smtp"`
	Logging LoggingConfig `koanf:"logging"`
}

// ServerConfig holds HTTP control-plane settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// CORSOrigins is the allowed origin list. The scout API is consumed by a
	// static frontend served from anywhere, so the default is a wildcard.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitReqs/RateLimitWindow bound unauthenticated API traffic per IP.
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// StoreConfig holds state-store settings.
type StoreConfig struct {
	// Path is the badger database directory. Empty selects an in-memory
	// store, which is only useful in tests.
	Path string `koanf:"path"`
}

// ScoutConfig holds the process-wide scout engine parameters.
type ScoutConfig struct {
	MaxEmailsPerScoutPerDay int           `koanf:"max_emails_per_scout_per_day"`
	DefaultLifetimeHours    int           `koanf:"default_lifetime_hours"`
	MaxLifetimeHours        int           `koanf:"max_lifetime_hours"`
	PollInterval            time.Duration `koanf:"poll_interval"`
	MaxCycles               int           `koanf:"max_cycles"`
	MaxSnapshotTextLength   int           `koanf:"max_snapshot_text_length"`
	MaxAITextLength         int           `koanf:"max_ai_text_length"`
	DedupeLookback          int           `koanf:"dedupe_lookback"`
}

// FetchConfig holds source-page fetcher settings.
type FetchConfig struct {
	Timeout      time.Duration `koanf:"timeout"`
	Retries      int           `koanf:"retries"`
	RetryDelay   time.Duration `koanf:"retry_delay"`
	MaxTextBytes int           `koanf:"max_text_bytes"`
	UserAgent    string        `koanf:"user_agent"`

	// RequestsPerSecond bounds outbound fetch rate per host.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
}

// AIConfig holds language-model settings.
type AIConfig struct {
	// APIKey for the Anthropic API. ANTHROPIC_API_KEY takes precedence.
	APIKey    string `koanf:"api_key"`
	Model     string `koanf:"model"`
	MaxTokens int    `koanf:"max_tokens"`
	Retries   int    `koanf:"retries"`
}

// SMTPConfig holds outbound email settings.
type SMTPConfig struct {
	Host     string        `koanf:"host"`
	Port     int           `koanf:"port"`
	Username string        `koanf:"username"`
	Password string        `koanf:"password"`
	From     string        `koanf:"from"`
	FromName string        `koanf:"from_name"`
	StartTLS bool          `koanf:"starttls"`
	Timeout  time.Duration `koanf:"timeout"`

	// Retries and RetryDelay govern the email send step: up to Retries
	// attempts with exponential backoff starting at RetryDelay.
	Retries    int           `koanf:"retries"`
	RetryDelay time.Duration `koanf:"retry_delay"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config struct with all default values. These are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8787,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Store: StoreConfig{
			Path: "/data/terascout",
		},
		Scout: ScoutConfig{
			MaxEmailsPerScoutPerDay: 10,
			DefaultLifetimeHours:    72,
			MaxLifetimeHours:        168,
			PollInterval:            10 * time.Minute,
			MaxCycles:               200,
			MaxSnapshotTextLength:   5000,
			MaxAITextLength:         2500,
			DedupeLookback:          5,
		},
		Fetch: FetchConfig{
			Timeout:           30 * time.Second,
			Retries:           2,
			RetryDelay:        5 * time.Second,
			MaxTextBytes:      10240,
			UserAgent:         "Terascout/1.0 (+https://github.com/tomtom215/terascout)",
			RequestsPerSecond: 1,
		},
		AI: AIConfig{
			Model:     "claude-3-5-haiku-latest",
			MaxTokens: 1024,
			Retries:   3,
		},
		SMTP: SMTPConfig{
			Port:       587,
			FromName:   "Terascout",
			StartTLS:   true,
			Timeout:    30 * time.Second,
			Retries:    3,
			RetryDelay: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks configuration invariants that cannot be expressed as
// simple defaults. It is called by Load after all layers are merged.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Scout.MaxEmailsPerScoutPerDay < 0 {
		return fmt.Errorf("scout.max_emails_per_scout_per_day must be >= 0, got %d", c.Scout.MaxEmailsPerScoutPerDay)
	}
	if c.Scout.DefaultLifetimeHours <= 0 {
		return fmt.Errorf("scout.default_lifetime_hours must be > 0, got %d", c.Scout.DefaultLifetimeHours)
	}
	if c.Scout.MaxLifetimeHours < c.Scout.DefaultLifetimeHours {
		return fmt.Errorf("scout.max_lifetime_hours (%d) must be >= scout.default_lifetime_hours (%d)",
			c.Scout.MaxLifetimeHours, c.Scout.DefaultLifetimeHours)
	}
	if c.Scout.PollInterval <= 0 {
		return fmt.Errorf("scout.poll_interval must be > 0, got %s", c.Scout.PollInterval)
	}
	if c.Scout.MaxCycles <= 0 {
		return fmt.Errorf("scout.max_cycles must be > 0, got %d", c.Scout.MaxCycles)
	}
	if c.Scout.MaxSnapshotTextLength <= 0 {
		return fmt.Errorf("scout.max_snapshot_text_length must be > 0, got %d", c.Scout.MaxSnapshotTextLength)
	}
	if c.Scout.MaxAITextLength <= 0 {
		return fmt.Errorf("scout.max_ai_text_length must be > 0, got %d", c.Scout.MaxAITextLength)
	}
	if c.Scout.DedupeLookback < 0 {
		return fmt.Errorf("scout.dedupe_lookback must be >= 0, got %d", c.Scout.DedupeLookback)
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be > 0, got %s", c.Fetch.Timeout)
	}
	return nil
}

// DefaultLifetime returns the default scout lifetime as a duration.
func (c *ScoutConfig) DefaultLifetime() time.Duration {
	return time.Duration(c.DefaultLifetimeHours) * time.Hour
}

// MaxLifetime returns the lifetime cap as a duration.
func (c *ScoutConfig) MaxLifetime() time.Duration {
	return time.Duration(c.MaxLifetimeHours) * time.Hour
}
