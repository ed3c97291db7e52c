package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/brojonat/solwallet/service/rpc"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Solana configuration. Multiple RPC URLs may be given comma-separated;
	// one is chosen at random per process.
	SolanaRPCURLs []string
	Commitment    rpc.Commitment
	RPCTimeout    time.Duration

	// Logging
	LogLevel string

	// Mint decimals cache
	MintCacheSize int

	// Signing key (solana-keygen JSON file). Optional; read-only commands
	// work without it.
	KeypairPath string

	// NATS configuration
	NATSURL string

	// Database configuration. Optional; the archive is disabled when empty.
	DatabaseURL string

	// Watch loop configuration
	WatchInterval time.Duration
	MetricsAddr   string
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Solana configuration
	cfg.SolanaRPCURLs = splitList(os.Getenv("SOLANA_RPC_URL"))
	if len(cfg.SolanaRPCURLs) == 0 {
		errs = append(errs, fmt.Errorf("SOLANA_RPC_URL is required"))
	}
	cfg.Commitment = rpc.Commitment(getEnvOrDefault("SOLANA_COMMITMENT", string(rpc.CommitmentConfirmed)))

	timeout, err := parseDuration("RPC_TIMEOUT", "30s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.RPCTimeout = timeout
	}

	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	cacheSize, err := parseInt("MINT_CACHE_SIZE", 512)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.MintCacheSize = cacheSize
	}

	cfg.KeypairPath = os.Getenv("KEYPAIR_PATH")
	cfg.NATSURL = getEnvOrDefault("NATS_URL", "nats://localhost:4222")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	interval, err := parseDuration("WATCH_INTERVAL", "30s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.WatchInterval = interval
	}
	cfg.MetricsAddr = getEnvOrDefault("METRICS_ADDR", ":9091")

	// Return all validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if len(c.SolanaRPCURLs) == 0 {
		errs = append(errs, fmt.Errorf("SolanaRPCURLs is required"))
	}
	for _, u := range c.SolanaRPCURLs {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			errs = append(errs, fmt.Errorf("RPC URL %q must be http or https", u))
		}
	}

	switch c.Commitment {
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
	default:
		errs = append(errs, fmt.Errorf("Commitment %q must be processed, confirmed or finalized", c.Commitment))
	}

	if c.RPCTimeout <= 0 {
		errs = append(errs, fmt.Errorf("RPCTimeout must be positive"))
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if c.MintCacheSize < 1 {
		errs = append(errs, fmt.Errorf("MintCacheSize must be at least 1"))
	}

	// Zero disables the watch loop.
	if c.WatchInterval != 0 && c.WatchInterval < time.Second {
		errs = append(errs, fmt.Errorf("WatchInterval must be at least 1 second"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// ParseLogLevel maps a LOG_LEVEL value to a slog level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", level)
	}
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
