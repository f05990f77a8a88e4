// Package config reads HOMECREW_* settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const prefix = "HOMECREW_"

type Config struct {
	Port          string
	DBPath        string
	LogLevel      string
	LogFormat     string
	JWTSecret     string
	CursorSecret  string
	PINTTL        time.Duration
	JoinRateLimit int // join attempts per client IP per minute
}

// Load reads envFile into the process environment when it exists, then
// builds a Config. Variables already set win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, applying defaults.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := getenv(prefix + key); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Port:      get("PORT", "8080"),
		DBPath:    get("DB_PATH", "homecrew.db"),
		LogLevel:  get("LOG_LEVEL", "info"),
		LogFormat: get("LOG_FORMAT", "text"),
		JWTSecret: get("JWT_SECRET", ""),
	}
	cfg.CursorSecret = get("CURSOR_SECRET", cfg.JWTSecret)

	ttl, err := time.ParseDuration(get("PIN_TTL", "24h"))
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("%sPIN_TTL: must be a positive duration", prefix)
	}
	cfg.PINTTL = ttl

	limit, err := strconv.Atoi(get("JOIN_RATE_LIMIT", "10"))
	if err != nil || limit < 1 {
		return nil, fmt.Errorf("%sJOIN_RATE_LIMIT: must be a positive integer", prefix)
	}
	cfg.JoinRateLimit = limit

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("%sLOG_FORMAT: must be text or json", prefix)
	}
	return cfg, nil
}

// RequireSecrets fails when the signing secrets needed to serve or mint
// tokens are missing.
func (c *Config) RequireSecrets() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("%sJWT_SECRET is required", prefix)
	}
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("%sJWT_SECRET must be at least 16 bytes", prefix)
	}
	return nil
}
