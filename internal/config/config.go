// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

// Package config loads and validates Crewdeck configuration from
// layered sources: built-in defaults, an optional YAML file, and
// environment variables (highest priority, CREWDECK_ prefix).
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Storage  StorageConfig  `koanf:"storage"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	// Path is the SQLite database file. ":memory:" is accepted for tests.
	Path string `koanf:"path"`
}

// StorageConfig holds document blob storage settings.
type StorageConfig struct {
	// Dir is the directory where uploaded document files are written.
	Dir string `koanf:"dir"`
}

// SecurityConfig holds authentication and authorization settings.
type SecurityConfig struct {
	// AccessTokenSecret and RefreshTokenSecret sign the two token kinds.
	// They must be distinct and at least 32 characters each.
	AccessTokenSecret  string `koanf:"access_token_secret"`
	RefreshTokenSecret string `koanf:"refresh_token_secret"`

	AccessTokenTTL  time.Duration `koanf:"access_token_ttl"`
	RefreshTokenTTL time.Duration `koanf:"refresh_token_ttl"`

	// ClockSkew bounds the leeway applied to token expiry checks.
	ClockSkew time.Duration `koanf:"clock_skew"`

	Issuer   string `koanf:"issuer"`
	Audience string `koanf:"audience"`

	// BcryptCost is the bcrypt work factor for password hashing.
	BcryptCost int `koanf:"bcrypt_cost"`

	// MinPasswordLength applies to new and changed passwords.
	MinPasswordLength int `koanf:"min_password_length"`

	// LockoutThreshold failed logins lock the account for LockoutDuration.
	LockoutThreshold int           `koanf:"lockout_threshold"`
	LockoutDuration  time.Duration `koanf:"lockout_duration"`

	// Login rate limiting per (IP, username) pair.
	LoginRateLimit  int           `koanf:"login_rate_limit"`
	LoginRateWindow time.Duration `koanf:"login_rate_window"`

	RateLimitDisabled bool     `koanf:"rate_limit_disabled"`
	CORSOrigins       []string `koanf:"cors_origins"`

	// BootstrapAdminEmail/Password seed the first admin account when the
	// user table is empty. There is no self-registration.
	BootstrapAdminEmail    string `koanf:"bootstrap_admin_email"`
	BootstrapAdminPassword string `koanf:"bootstrap_admin_password"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values applied.
// Secrets intentionally have no defaults.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Database: DatabaseConfig{
			Path: "/data/crewdeck.db",
		},
		Storage: StorageConfig{
			Dir: "/data/documents",
		},
		Security: SecurityConfig{
			AccessTokenSecret:  "",
			RefreshTokenSecret: "",
			AccessTokenTTL:     15 * time.Minute,
			RefreshTokenTTL:    7 * 24 * time.Hour,
			ClockSkew:          5 * time.Second,
			Issuer:             "crewdeck",
			Audience:           "crewdeck-api",
			BcryptCost:         12,
			MinPasswordLength:  8,
			LockoutThreshold:   5,
			LockoutDuration:    2 * time.Hour,
			LoginRateLimit:     5,
			LoginRateWindow:    15 * time.Minute,
			RateLimitDisabled:  false,
			CORSOrigins:        []string{},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validation errors.
var (
	ErrMissingTokenSecret = errors.New("access and refresh token secrets are required")
	ErrWeakTokenSecret    = errors.New("token secrets must be at least 32 characters")
	ErrSharedTokenSecret  = errors.New("access and refresh token secrets must differ")
)

// minSecretLength is the minimum length for HMAC signing secrets.
const minSecretLength = 32

// Validate checks the configuration for consistency and completeness.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Storage.Dir == "" {
		return errors.New("storage directory is required")
	}

	sec := &c.Security
	if sec.AccessTokenSecret == "" || sec.RefreshTokenSecret == "" {
		return ErrMissingTokenSecret
	}
	if len(sec.AccessTokenSecret) < minSecretLength || len(sec.RefreshTokenSecret) < minSecretLength {
		return ErrWeakTokenSecret
	}
	if sec.AccessTokenSecret == sec.RefreshTokenSecret {
		return ErrSharedTokenSecret
	}
	if sec.AccessTokenTTL <= 0 || sec.RefreshTokenTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if sec.AccessTokenTTL >= sec.RefreshTokenTTL {
		return errors.New("access token lifetime must be shorter than refresh token lifetime")
	}
	if sec.BcryptCost < 4 || sec.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost %d out of range [4,31]", sec.BcryptCost)
	}
	if sec.LockoutThreshold < 1 {
		return errors.New("lockout threshold must be at least 1")
	}
	if sec.LockoutDuration <= 0 {
		return errors.New("lockout duration must be positive")
	}
	if sec.MinPasswordLength < 8 {
		return errors.New("minimum password length must be at least 8")
	}
	return nil
}
