// Package config provides configuration loading and validation for the engine.
// It uses koanf to merge an optional YAML file with environment overrides.
package config

import (
	"errors"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the consent engine server.
type Config struct {
	// Server settings
	Addr        string `koanf:"addr"`
	MetricsAddr string `koanf:"metrics_addr"`
	Env         string `koanf:"env"`

	// API bearer auth
	JWTSigningKey string        `koanf:"jwt_signing_key"`
	APITokenTTL   time.Duration `koanf:"api_token_ttl"`

	// Consent engine defaults
	RequestTTL      time.Duration `koanf:"request_ttl"`
	GrantTTL        time.Duration `koanf:"grant_ttl"`
	SessionTokenTTL time.Duration `koanf:"session_token_ttl"`

	// Key rotation advisory thresholds
	RotationMaxKeyAge   time.Duration `koanf:"rotation_max_key_age"`
	RotationIdentityAge time.Duration `koanf:"rotation_identity_age"`

	// Identity provider edge
	ProviderTimeout time.Duration `koanf:"provider_timeout"`
}

// Configuration validation errors.
var (
	ErrMissingJWTSigningKey = errors.New("JWT_SIGNING_KEY is required outside development")
)

// Default values.
const (
	DefaultAddr                = ":8080"
	DefaultMetricsAddr         = ":9090"
	DefaultEnv                 = "development"
	DefaultAPITokenTTL         = 15 * time.Minute
	DefaultRequestTTL          = 24 * time.Hour
	DefaultGrantTTL            = 24 * time.Hour
	DefaultSessionTokenTTL     = 15 * time.Minute
	DefaultRotationMaxKeyAge   = 90 * 24 * time.Hour
	DefaultRotationIdentityAge = 30 * 24 * time.Hour
	DefaultProviderTimeout     = 5 * time.Second
)

// Load reads configuration from an optional YAML file and environment
// variables. Environment variables take precedence over file values.
func Load(configFilePath string) (*Config, error) {
	k := koanf.New(".")

	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Addr:                stringOr(k, "addr", "TRAVLR_ADDR", DefaultAddr),
		MetricsAddr:         stringOr(k, "metrics_addr", "TRAVLR_METRICS_ADDR", DefaultMetricsAddr),
		Env:                 stringOr(k, "env", "TRAVLR_ENV", DefaultEnv),
		JWTSigningKey:       stringOr(k, "jwt_signing_key", "JWT_SIGNING_KEY", ""),
		APITokenTTL:         durationOr(k, "api_token_ttl", "API_TOKEN_TTL", DefaultAPITokenTTL),
		RequestTTL:          durationOr(k, "request_ttl", "CONSENT_REQUEST_TTL", DefaultRequestTTL),
		GrantTTL:            durationOr(k, "grant_ttl", "CONSENT_GRANT_TTL", DefaultGrantTTL),
		SessionTokenTTL:     durationOr(k, "session_token_ttl", "SESSION_TOKEN_TTL", DefaultSessionTokenTTL),
		RotationMaxKeyAge:   durationOr(k, "rotation_max_key_age", "ROTATION_MAX_KEY_AGE", DefaultRotationMaxKeyAge),
		RotationIdentityAge: durationOr(k, "rotation_identity_age", "ROTATION_IDENTITY_AGE", DefaultRotationIdentityAge),
		ProviderTimeout:     durationOr(k, "provider_timeout", "PROVIDER_TIMEOUT", DefaultProviderTimeout),
	}

	if cfg.JWTSigningKey == "" {
		if cfg.Env != DefaultEnv {
			return nil, ErrMissingJWTSigningKey
		}
		// Development fallback - must be overridden in any real deployment.
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}

	return cfg, nil
}

// stringOr resolves a string setting: env var first, then file value, then default.
func stringOr(k *koanf.Koanf, key, envVar, def string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	if v := k.String(key); v != "" {
		return v
	}
	return def
}

// durationOr resolves a duration setting: env var first, then file value, then default.
// Invalid values fall back to the default rather than failing startup.
func durationOr(k *koanf.Koanf, key, envVar string, def time.Duration) time.Duration {
	if v := os.Getenv(envVar); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	if v := k.String(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
