// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

package config

import (
	"strings"
	"testing"
	"time"
)

// validConfig returns a config that passes Validate, for mutation in tests.
func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Security.JWTSecret = "test-secret"
	cfg.Security.JWTRefreshSecret = "test-refresh-secret"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 4000 {
		t.Errorf("default port = %d, want 4000", cfg.Server.Port)
	}
	if cfg.Security.AccessTokenTTL != time.Hour {
		t.Errorf("default access TTL = %v, want 1h", cfg.Security.AccessTokenTTL)
	}
	if cfg.Security.RefreshTokenTTL != 7*24*time.Hour {
		t.Errorf("default refresh TTL = %v, want 168h", cfg.Security.RefreshTokenTTL)
	}
	if cfg.ML.Timeout != 5*time.Minute {
		t.Errorf("default ML timeout = %v, want 5m (cold-start tolerance)", cfg.ML.Timeout)
	}
	if cfg.Uploads.MaxBytes != 10<<20 {
		t.Errorf("default upload cap = %d, want 10MB", cfg.Uploads.MaxBytes)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"missing db path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"missing jwt secret", func(c *Config) { c.Security.JWTSecret = "" }, "jwt_secret"},
		{"missing refresh secret", func(c *Config) { c.Security.JWTRefreshSecret = "" }, "jwt_refresh_secret"},
		{"short secret in production", func(c *Config) {
			c.Server.Environment = "production"
			c.Security.JWTSecret = "short"
		}, "at least 32 characters"},
		{"same secrets in production", func(c *Config) {
			c.Server.Environment = "production"
			c.Security.JWTSecret = strings.Repeat("a", 32)
			c.Security.JWTRefreshSecret = strings.Repeat("a", 32)
		}, "must differ"},
		{"zero access ttl", func(c *Config) { c.Security.AccessTokenTTL = 0 }, "access_token_ttl"},
		{"refresh not beyond access", func(c *Config) {
			c.Security.RefreshTokenTTL = c.Security.AccessTokenTTL
		}, "refresh_token_ttl"},
		{"missing ml url", func(c *Config) { c.ML.URL = "" }, "ml.url"},
		{"missing uploads dir", func(c *Config) { c.Uploads.Dir = "" }, "uploads.dir"},
		{"zero upload cap", func(c *Config) { c.Uploads.MaxBytes = 0 }, "uploads.max_bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"HTTP_PORT", "server.port"},
		{"JWT_SECRET", "security.jwt_secret"},
		{"ML_SERVICE_URL", "ml.url"},
		{"UPLOADS_DIR", "uploads.dir"},
		{"LOG_LEVEL", "logging.level"},
		{"RANDOM_NOISE", ""},
	}

	for _, tt := range tests {
		if got := envTransformFunc(tt.env); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
		}
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("JWT_REFRESH_SECRET", "env-refresh-secret")
	t.Setenv("HTTP_PORT", "5050")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 5050 {
		t.Errorf("port = %d, want 5050", cfg.Server.Port)
	}
	if cfg.Security.JWTSecret != "env-secret" {
		t.Errorf("jwt secret = %q, want env-secret", cfg.Security.JWTSecret)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example" {
		t.Errorf("cors origins = %v, want two parsed origins", cfg.Security.CORSOrigins)
	}
}
