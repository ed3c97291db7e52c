package mint

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/brojonat/solwallet/service/metrics"
	"github.com/brojonat/solwallet/service/rpc"
	lru "github.com/hashicorp/golang-lru"
)

// NativeMint is the wrapped SOL mint. Its decimals never need a lookup.
const NativeMint = "So11111111111111111111111111111111111111112"

// NativeDecimals is the number of decimals of SOL (lamports per SOL = 1e9).
const NativeDecimals uint8 = 9

// Source resolves mint accounts. *rpc.Client satisfies it.
type Source interface {
	GetMintInfo(ctx context.Context, mint string) (*rpc.MintInfo, error)
}

// Cache is a concurrency-safe LRU of mint decimals backed by a Source.
// Decimals are immutable on chain so entries never expire.
type Cache struct {
	entries *lru.Cache
	source  Source
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewCache creates a Cache holding up to size mints.
func NewCache(size int, source Source, m *metrics.Metrics, logger *slog.Logger) (*Cache, error) {
	entries, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create mint cache: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Cache{
		entries: entries,
		source:  source,
		metrics: m,
		logger:  logger,
	}, nil
}

// Decimals returns the decimals of mint, fetching it on a miss.
func (c *Cache) Decimals(ctx context.Context, mint string) (uint8, error) {
	if mint == NativeMint {
		return NativeDecimals, nil
	}

	if v, ok := c.entries.Get(mint); ok {
		c.record("hit")
		return v.(uint8), nil
	}

	if c.source == nil {
		c.record("error")
		return 0, fmt.Errorf("decimals for mint %s not cached and no source configured", mint)
	}

	info, err := c.source.GetMintInfo(ctx, mint)
	if err != nil {
		c.record("error")
		c.logger.WarnContext(ctx, "failed to fetch mint info",
			"mint", mint,
			"error", err,
		)
		return 0, fmt.Errorf("failed to resolve decimals for mint %s: %w", mint, err)
	}

	c.record("miss")
	c.entries.Add(mint, info.Decimals)
	c.logger.DebugContext(ctx, "cached mint decimals",
		"mint", mint,
		"decimals", info.Decimals,
	)
	return info.Decimals, nil
}

// Set seeds the cache with a known mint.
func (c *Cache) Set(mint string, decimals uint8) {
	c.entries.Add(mint, decimals)
}

// Len returns the number of cached mints.
func (c *Cache) Len() int {
	return c.entries.Len()
}

func (c *Cache) record(result string) {
	if c.metrics != nil {
		c.metrics.RecordMintCacheLookup(result)
	}
}
