package server

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// DefaultConfig returns the server defaults, overridable through GLENS_*
// environment variables.
func DefaultConfig() *Config {
	cfg := &Config{
		Address:         "",
		Port:            8080,
		RateLimit:       100,
		RateLimitBurst:  200,
		CacheMaxAge:     300,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		LogLevel:        slog.LevelInfo.String(),
	}

	if addr := os.Getenv("GLENS_ADDRESS"); addr != "" {
		cfg.Address = addr
	}
	if raw := os.Getenv("GLENS_PORT"); raw != "" {
		if port, err := strconv.Atoi(raw); err == nil && port > 0 {
			cfg.Port = port
		}
	}
	if raw := os.Getenv("GLENS_RATE_LIMIT"); raw != "" {
		if limit, err := strconv.ParseFloat(raw, 64); err == nil && limit > 0 {
			cfg.RateLimit = rate.Limit(limit)
		}
	}
	if level := os.Getenv("GLENS_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	return cfg
}
