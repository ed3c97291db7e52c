package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the library and CLI.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics. Components
// accept a nil *Metrics and skip recording in that case.
type Metrics struct {
	// Solana RPC Metrics
	solanaRPCCallsTotal        *prometheus.CounterVec
	solanaRPCCallDuration      *prometheus.HistogramVec
	solanaRPCRateLimitHits     *prometheus.CounterVec
	solanaRPCHTTPResponses     *prometheus.CounterVec
	solanaRPCBatchSize         *prometheus.HistogramVec
	solanaRPCSignaturesPerCall *prometheus.HistogramVec

	// Transaction Assembly Metrics
	transactionsSerializedTotal *prometheus.CounterVec
	transactionSerializeSeconds *prometheus.HistogramVec

	// Transaction Classification Metrics
	transactionsClassifiedTotal *prometheus.CounterVec
	transactionsParsedTotal     *prometheus.CounterVec
	transactionsSkippedTotal    *prometheus.CounterVec

	// Mint Cache Metrics
	mintCacheLookupsTotal *prometheus.CounterVec

	// Database Metrics
	dbQueryDuration   *prometheus.HistogramVec
	dbOperationsTotal *prometheus.CounterVec

	// NATS Metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec

	// Watch Metrics
	watchPollDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		// Solana RPC Metrics
		solanaRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC round trips by method and status",
			},
			[]string{"method", "status", "endpoint"},
		),
		solanaRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC round trips in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "endpoint"},
		),
		solanaRPCRateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_rate_limit_hits_total",
				Help: "Total number of Solana RPC rate limit hits (429 errors)",
			},
			[]string{"endpoint"},
		),
		solanaRPCHTTPResponses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_http_responses_total",
				Help: "Total number of Solana RPC HTTP responses by status class",
			},
			[]string{"endpoint", "status"},
		),
		solanaRPCBatchSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_batch_size",
				Help:    "Number of requests carried by a single batch round trip",
				Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
			},
			[]string{"method"},
		),
		solanaRPCSignaturesPerCall: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_signatures_per_call",
				Help:    "Number of signatures fetched per getSignaturesForAddress call",
				Buckets: []float64{1, 10, 50, 100, 250, 500, 1000},
			},
			[]string{"endpoint"},
		),

		// Transaction Assembly Metrics
		transactionsSerializedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transactions_serialized_total",
				Help: "Total number of transaction serialization attempts by status",
			},
			[]string{"status"},
		),
		transactionSerializeSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "transaction_serialize_duration_seconds",
				Help:    "Duration of transaction assembly including any blockhash fetch",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"blockhash_source"},
		),

		// Transaction Classification Metrics
		transactionsClassifiedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transactions_classified_total",
				Help: "Total number of transactions classified by resulting kind",
			},
			[]string{"kind"},
		),
		transactionsParsedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transactions_parsed_total",
				Help: "Total number of history transactions parsed",
			},
			[]string{"wallet_address", "status"},
		),
		transactionsSkippedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transactions_skipped_total",
				Help: "Total number of history transactions skipped",
			},
			[]string{"wallet_address", "reason"},
		),

		// Mint Cache Metrics
		mintCacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mint_cache_lookups_total",
				Help: "Total number of mint decimals lookups by result",
			},
			[]string{"result"},
		),

		// Database Metrics
		dbQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "db_query_duration_seconds",
				Help:    "Duration of database queries in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"operation", "table"},
		),
		dbOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "db_operations_total",
				Help: "Total number of database operations",
			},
			[]string{"operation", "status"},
		),

		// NATS Metrics
		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"subject"},
		),

		// Watch Metrics
		watchPollDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "watch_poll_duration_seconds",
				Help:    "Duration of one wallet poll including archive and publish",
				Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"wallet_address"},
		),
	}
}

// Solana RPC metric helpers

// RecordRPCCall records a Solana RPC round trip with duration.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, duration float64) {
	m.solanaRPCCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.solanaRPCCallDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordRateLimitHit records a rate limit hit (429 error).
func (m *Metrics) RecordRateLimitHit(endpoint string) {
	m.solanaRPCRateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordRPCHTTPStatus records the HTTP status class of an RPC response.
func (m *Metrics) RecordRPCHTTPStatus(endpoint string, statusCode int) {
	m.solanaRPCHTTPResponses.WithLabelValues(endpoint, statusCodeToString(statusCode)).Inc()
}

// RecordRPCBatchSize records how many requests one batch round trip carried.
func (m *Metrics) RecordRPCBatchSize(method string, size int) {
	m.solanaRPCBatchSize.WithLabelValues(method).Observe(float64(size))
}

// RecordRPCSignaturesPerCall records the number of signatures fetched.
func (m *Metrics) RecordRPCSignaturesPerCall(endpoint string, count float64) {
	m.solanaRPCSignaturesPerCall.WithLabelValues(endpoint).Observe(count)
}

// Transaction assembly metric helpers

// RecordTransactionSerialized records a serialization attempt.
// blockhashSource is "supplied" or "fetched".
func (m *Metrics) RecordTransactionSerialized(status, blockhashSource string, duration float64) {
	m.transactionsSerializedTotal.WithLabelValues(status).Inc()
	m.transactionSerializeSeconds.WithLabelValues(blockhashSource).Observe(duration)
}

// Transaction classification metric helpers

// RecordTransactionClassified records the kind a transaction was classified as.
func (m *Metrics) RecordTransactionClassified(kind string) {
	m.transactionsClassifiedTotal.WithLabelValues(kind).Inc()
}

// RecordTransactionParsed records a history transaction parse attempt.
func (m *Metrics) RecordTransactionParsed(walletAddress, status string) {
	m.transactionsParsedTotal.WithLabelValues(walletAddress, status).Inc()
}

// RecordTransactionsSkipped records history transactions skipped.
func (m *Metrics) RecordTransactionsSkipped(walletAddress, reason string, count int) {
	m.transactionsSkippedTotal.WithLabelValues(walletAddress, reason).Add(float64(count))
}

// RecordMintCacheLookup records a mint decimals lookup ("hit", "miss", "error").
func (m *Metrics) RecordMintCacheLookup(result string) {
	m.mintCacheLookupsTotal.WithLabelValues(result).Inc()
}

// Database metric helpers

// RecordDBQuery records a database query with duration.
func (m *Metrics) RecordDBQuery(operation, table string, duration float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.dbQueryDuration.WithLabelValues(operation, table).Observe(duration)
	m.dbOperationsTotal.WithLabelValues(operation, status).Inc()
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}

// RecordWatchPoll records the duration of one wallet poll.
func (m *Metrics) RecordWatchPoll(walletAddress string, duration float64) {
	m.watchPollDuration.WithLabelValues(walletAddress).Observe(duration)
}

// Helper functions

func statusCodeToString(code int) string {
	// Group status codes by class
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
