package rpc

import (
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/brojonat/solwallet/service/metrics"
)

// Doer executes HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client issues JSON-RPC requests against a single Solana endpoint.
// It holds no per-call state and is safe for concurrent use.
type Client struct {
	endpoint string
	label    string
	http     Doer
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewClient creates a Client. For endpoints that need an API key, include it
// in the URL (e.g. https://mainnet.helius-rpc.com/?api-key=KEY). When
// httpClient is nil a client with a 30s timeout is used. If metrics is nil,
// no metrics will be recorded.
func NewClient(endpoint string, httpClient Doer, m *metrics.Metrics, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		endpoint: endpoint,
		label:    endpointLabel(endpoint),
		http:     httpClient,
		metrics:  m,
		logger:   logger,
	}
}

// Endpoint returns the URL requests are sent to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// endpointLabel strips paths and query strings so API keys never reach
// metric labels or logs.
func endpointLabel(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}
