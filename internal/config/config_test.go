// Terascout - Event Intelligence Scouts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/terascout

package config

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 8787 {
		t.Errorf("server.port: got %d, want 8787", cfg.Server.Port)
	}
	if cfg.Scout.MaxEmailsPerScoutPerDay != 10 {
		t.Errorf("scout.max_emails_per_scout_per_day: got %d, want 10", cfg.Scout.MaxEmailsPerScoutPerDay)
	}
	if cfg.Scout.PollInterval != 10*time.Minute {
		t.Errorf("scout.poll_interval: got %v, want 10m", cfg.Scout.PollInterval)
	}
	if cfg.Scout.MaxCycles != 200 {
		t.Errorf("scout.max_cycles: got %d, want 200", cfg.Scout.MaxCycles)
	}
	if cfg.Scout.DefaultLifetime() != 72*time.Hour {
		t.Errorf("default lifetime: got %v, want 72h", cfg.Scout.DefaultLifetime())
	}
	if cfg.Scout.MaxLifetime() != 168*time.Hour {
		t.Errorf("max lifetime: got %v, want 168h", cfg.Scout.MaxLifetime())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults fail validation: %v", err)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("TERASCOUT_SERVER_PORT", "9000")
	t.Setenv("TERASCOUT_SCOUT_MAX_CYCLES", "50")
	t.Setenv("TERASCOUT_LOGGING_LEVEL", "debug")
	t.Setenv("TERASCOUT_SERVER_CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("server.port: got %d, want 9000", cfg.Server.Port)
	}
	if cfg.Scout.MaxCycles != 50 {
		t.Errorf("scout.max_cycles: got %d, want 50", cfg.Scout.MaxCycles)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging.level: got %q, want debug", cfg.Logging.Level)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[0] != "https://a.example.com" {
		t.Errorf("server.cors_origins: got %v", cfg.Server.CORSOrigins)
	}
	// Untouched fields keep their defaults.
	if cfg.Scout.PollInterval != 10*time.Minute {
		t.Errorf("scout.poll_interval: got %v, want default 10m", cfg.Scout.PollInterval)
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"TERASCOUT_SERVER_PORT", "server.port"},
		{"TERASCOUT_SCOUT_POLL_INTERVAL", "scout.poll_interval"},
		{"TERASCOUT_SCOUT_MAX_EMAILS_PER_SCOUT_PER_DAY", "scout.max_emails_per_scout_per_day"},
		{"TERASCOUT_SMTP_HOST", "smtp.host"},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.in); got != tt.want {
			t.Errorf("envTransformFunc(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "port zero", mutate: func(c *Config) { c.Server.Port = 0 }},
		{name: "negative email cap", mutate: func(c *Config) { c.Scout.MaxEmailsPerScoutPerDay = -1 }},
		{name: "zero poll interval", mutate: func(c *Config) { c.Scout.PollInterval = 0 }},
		{name: "zero max cycles", mutate: func(c *Config) { c.Scout.MaxCycles = 0 }},
		{name: "max lifetime below default", mutate: func(c *Config) { c.Scout.MaxLifetimeHours = 1 }},
		{name: "zero fetch timeout", mutate: func(c *Config) { c.Fetch.Timeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate accepted invalid config")
			}
		})
	}
}
