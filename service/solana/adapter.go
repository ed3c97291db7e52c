package solana

import (
	"log/slog"

	"github.com/brojonat/solwallet/service/metrics"
	"github.com/brojonat/solwallet/service/rpc"
)

// NewRPCClient picks one of the configured endpoints and returns a JSON-RPC
// client for it. For premium RPC endpoints that require API keys, include
// the key in the URL:
// - Helius: https://mainnet.helius-rpc.com/?api-key=YOUR-KEY
// - QuickNode: https://YOUR-ENDPOINT.quiknode.pro/YOUR-KEY/
// - Alchemy: https://solana-mainnet.g.alchemy.com/v2/YOUR-KEY
func NewRPCClient(endpoints []string, httpClient rpc.Doer, m *metrics.Metrics, logger *slog.Logger) (*rpc.Client, error) {
	endpoint, err := rpc.SelectRandomEndpoint(endpoints)
	if err != nil {
		return nil, err
	}
	return rpc.NewClient(endpoint, httpClient, m, logger), nil
}

var _ RPCClient = (*rpc.Client)(nil)
