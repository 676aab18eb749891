// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

// Package config defines the Farmgate server configuration and its
// koanf-based layered loading (defaults -> YAML file -> environment).
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Farmgate server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Security SecurityConfig `koanf:"security"`
	ML       MLConfig       `koanf:"ml"`
	Uploads  UploadsConfig  `koanf:"uploads"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// DatabaseConfig holds the embedded document store settings.
type DatabaseConfig struct {
	// Path is the directory holding the clover database files.
	Path string `koanf:"path"`
}

// SecurityConfig holds authentication and rate-limit settings.
type SecurityConfig struct {
	// JWTSecret signs access tokens. Required, 32+ characters in production.
	JWTSecret string `koanf:"jwt_secret"`

	// JWTRefreshSecret signs refresh tokens. Must differ from JWTSecret.
	JWTRefreshSecret string `koanf:"jwt_refresh_secret"`

	AccessTokenTTL  time.Duration `koanf:"access_token_ttl"`
	RefreshTokenTTL time.Duration `koanf:"refresh_token_ttl"`

	// BcryptCost is the bcrypt work factor for password hashing.
	BcryptCost int `koanf:"bcrypt_cost"`

	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// MLConfig holds settings for the external quality-inference service.
type MLConfig struct {
	// URL is the base URL of the inference service.
	URL string `koanf:"url"`

	// Timeout is deliberately long: the inference service downloads model
	// weights on first use and can take minutes to answer a cold request.
	Timeout time.Duration `koanf:"timeout"`

	// RequestsPerSecond throttles outbound inference calls. 0 = unlimited.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
}

// UploadsConfig holds file-upload storage settings.
type UploadsConfig struct {
	// Dir is the directory where uploaded images are stored and served from.
	Dir string `koanf:"dir"`

	// MaxBytes caps a single uploaded image.
	MaxBytes int64 `koanf:"max_bytes"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for values that would make the server
// misbehave at runtime. Called once after loading.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret is required")
	}
	if c.Security.JWTRefreshSecret == "" {
		return fmt.Errorf("security.jwt_refresh_secret is required")
	}
	if c.Server.Environment == "production" {
		if len(c.Security.JWTSecret) < 32 {
			return fmt.Errorf("security.jwt_secret must be at least 32 characters in production")
		}
		if c.Security.JWTSecret == c.Security.JWTRefreshSecret {
			return fmt.Errorf("security.jwt_secret and security.jwt_refresh_secret must differ in production")
		}
	}
	if c.Security.AccessTokenTTL <= 0 {
		return fmt.Errorf("security.access_token_ttl must be positive")
	}
	if c.Security.RefreshTokenTTL <= c.Security.AccessTokenTTL {
		return fmt.Errorf("security.refresh_token_ttl must exceed security.access_token_ttl")
	}
	if c.ML.URL == "" {
		return fmt.Errorf("ml.url is required")
	}
	if c.Uploads.Dir == "" {
		return fmt.Errorf("uploads.dir is required")
	}
	if c.Uploads.MaxBytes <= 0 {
		return fmt.Errorf("uploads.max_bytes must be positive")
	}
	return nil
}
