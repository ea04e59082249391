// Package config holds the process configuration for capture ingestion and
// analysis. Components receive a Config at construction instead of reading
// ambient state, which keeps them independently testable.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config holds all tunables consumed by the extraction, indexing and
// analysis components.
type Config struct {
	// Storage configuration
	StorageDir string

	// Extraction limits
	MaxCaptureBytes int64 // total uncompressed size across all entries
	MaxEntryBytes   int64 // per-entry uncompressed size
	MaxEntries      int   // archive entry count

	// Operation limits
	MaxConcurrentOps int
	OperationTimeout time.Duration
	ParseWorkers     int

	// Analyzer enable flags
	EnableClusterAnalysis bool
	EnableNodeAnalysis    bool
	EnablePodAnalysis     bool

	// Analyzer thresholds
	RestartThreshold   int
	StalenessThreshold time.Duration
	PendingAge         time.Duration

	// Logging
	LogLevel string
}

// DefaultConfig returns sensible defaults, overridden by GLENS_* environment
// variables where set.
func DefaultConfig() *Config {
	cfg := &Config{
		StorageDir:            "/tmp/gatherlens",
		MaxCaptureBytes:       2 << 30, // 2 GiB
		MaxEntryBytes:         512 << 20,
		MaxEntries:            250000,
		MaxConcurrentOps:      5,
		OperationTimeout:      5 * time.Minute,
		ParseWorkers:          8,
		EnableClusterAnalysis: true,
		EnableNodeAnalysis:    true,
		EnablePodAnalysis:     true,
		RestartThreshold:      5,
		StalenessThreshold:    10 * time.Minute,
		PendingAge:            5 * time.Minute,
		LogLevel:              slog.LevelInfo.String(),
	}

	if dir := os.Getenv("GLENS_STORAGE_DIR"); dir != "" {
		cfg.StorageDir = dir
	}

	if v := os.Getenv("GLENS_MAX_CAPTURE_MB"); v != "" {
		var mb int64
		if _, err := fmt.Sscanf(v, "%d", &mb); err == nil && mb > 0 {
			cfg.MaxCaptureBytes = mb << 20
		}
	}

	if v := os.Getenv("GLENS_MAX_CONCURRENT_OPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxConcurrentOps = n
		}
	}

	if v := os.Getenv("GLENS_OPERATION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.OperationTimeout = d
		}
	}

	if v := os.Getenv("GLENS_ENABLE_CLUSTER_ANALYSIS"); v != "" {
		cfg.EnableClusterAnalysis = parseBool(v, cfg.EnableClusterAnalysis)
	}
	if v := os.Getenv("GLENS_ENABLE_NODE_ANALYSIS"); v != "" {
		cfg.EnableNodeAnalysis = parseBool(v, cfg.EnableNodeAnalysis)
	}
	if v := os.Getenv("GLENS_ENABLE_POD_ANALYSIS"); v != "" {
		cfg.EnablePodAnalysis = parseBool(v, cfg.EnablePodAnalysis)
	}

	if v := os.Getenv("GLENS_RESTART_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.RestartThreshold = n
		}
	}

	if v := os.Getenv("GLENS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg
}

func parseBool(v string, fallback bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
