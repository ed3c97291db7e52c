package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/brojonat/solwallet/service/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Setup environment variables
	t.Setenv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com")

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, []string{"https://api.mainnet-beta.solana.com"}, cfg.SolanaRPCURLs)
	assert.Equal(t, rpc.CommitmentConfirmed, cfg.Commitment) // Default
	assert.Equal(t, 30*time.Second, cfg.RPCTimeout)          // Default
	assert.Equal(t, "info", cfg.LogLevel)                    // Default
	assert.Equal(t, 512, cfg.MintCacheSize)
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
	assert.Equal(t, "", cfg.DatabaseURL)
	assert.Equal(t, 30*time.Second, cfg.WatchInterval)
	assert.Equal(t, ":9091", cfg.MetricsAddr)
}

func TestLoad_MultipleEndpoints(t *testing.T) {
	t.Setenv("SOLANA_RPC_URL", "https://a.example.com, https://b.example.com/?api-key=x,,")
	t.Setenv("SOLANA_COMMITMENT", "finalized")
	t.Setenv("KEYPAIR_PATH", "/tmp/id.json")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com/?api-key=x"}, cfg.SolanaRPCURLs)
	assert.Equal(t, rpc.CommitmentFinalized, cfg.Commitment)
	assert.Equal(t, "/tmp/id.json", cfg.KeypairPath)
}

func TestLoad_MissingSolanaRPCURL(t *testing.T) {
	t.Setenv("SOLANA_RPC_URL", "")

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "SOLANA_RPC_URL is required")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"bad timeout", "RPC_TIMEOUT", "soon", "invalid duration"},
		{"bad interval", "WATCH_INTERVAL", "forever", "invalid duration"},
		{"short interval", "WATCH_INTERVAL", "10ms", "WatchInterval must be at least 1 second"},
		{"bad cache size", "MINT_CACHE_SIZE", "lots", "invalid integer"},
		{"zero cache size", "MINT_CACHE_SIZE", "0", "MintCacheSize must be at least 1"},
		{"bad commitment", "SOLANA_COMMITMENT", "maybe", "must be processed, confirmed or finalized"},
		{"bad log level", "LOG_LEVEL", "chatty", "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com")
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMustLoad_Panics(t *testing.T) {
	t.Setenv("SOLANA_RPC_URL", "")
	assert.Panics(t, func() { MustLoad() })
}

func TestValidate(t *testing.T) {
	valid := Config{
		SolanaRPCURLs: []string{"https://api.devnet.solana.com"},
		Commitment:    rpc.CommitmentConfirmed,
		RPCTimeout:    time.Second,
		LogLevel:      "debug",
		MintCacheSize: 1,
		WatchInterval: time.Second,
	}
	assert.NoError(t, valid.Validate())

	bad := valid
	bad.SolanaRPCURLs = []string{"ftp://nope"}
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be http or https")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
