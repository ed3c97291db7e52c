package main

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/brojonat/solwallet/service/config"
	"github.com/brojonat/solwallet/service/metrics"
	"github.com/brojonat/solwallet/service/mint"
	"github.com/brojonat/solwallet/service/rpc"
	"github.com/brojonat/solwallet/service/solana"
	"github.com/urfave/cli/v2"
)

// deps holds the components shared by commands.
type deps struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	rpc     *rpc.Client
	mints   *mint.Cache
	parser  *solana.Parser
	history *solana.Client
}

// loadConfig builds the configuration from flags, which also read the
// environment. Command-specific flags that are not defined read as zero.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := &config.Config{
		Commitment:    rpc.Commitment(c.String("commitment")),
		RPCTimeout:    c.Duration("rpc-timeout"),
		LogLevel:      c.String("log-level"),
		MintCacheSize: c.Int("mint-cache-size"),
		KeypairPath:   c.String("keypair"),
		NATSURL:       c.String("nats-url"),
		DatabaseURL:   c.String("database-url"),
		WatchInterval: c.Duration("interval"),
		MetricsAddr:   c.String("metrics-addr"),
	}
	for _, u := range strings.Split(c.String("rpc-url"), ",") {
		if u = strings.TrimSpace(u); u != "" {
			cfg.SolanaRPCURLs = append(cfg.SolanaRPCURLs, u)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogger creates a structured JSON logger on stderr.
func setupLogger(levelStr string) *slog.Logger {
	level, err := config.ParseLogLevel(levelStr)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newDeps wires the RPC client, mint cache, parser and history client.
// m may be nil.
func newDeps(c *cli.Context, m *metrics.Metrics) (*deps, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	logger := setupLogger(cfg.LogLevel)

	rpcClient, err := solana.NewRPCClient(cfg.SolanaRPCURLs, &http.Client{Timeout: cfg.RPCTimeout}, m, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("using RPC endpoint", "endpoint", rpcClient.Endpoint(), "total_endpoints", len(cfg.SolanaRPCURLs))

	mints, err := mint.NewCache(cfg.MintCacheSize, rpcClient, m, logger)
	if err != nil {
		return nil, err
	}
	parser := solana.NewParser(mints, logger)

	return &deps{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		rpc:     rpcClient,
		mints:   mints,
		parser:  parser,
		history: solana.NewClient(rpcClient, parser, cfg.Commitment, m, logger),
	}, nil
}
