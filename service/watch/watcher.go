package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/brojonat/solwallet/service/metrics"
	natspkg "github.com/brojonat/solwallet/service/nats"
	"github.com/brojonat/solwallet/service/solana"
	lru "github.com/hashicorp/golang-lru"
)

// maxKnownSignatures bounds the already-seen set passed to each poll.
const maxKnownSignatures = 1000

// HistoryClient defines the Solana operations needed by the watcher.
type HistoryClient interface {
	GetTransactionsSince(ctx context.Context, params solana.GetTransactionsSinceParams) ([]*solana.Transaction, error)
}

// Store defines the archive operations needed by the watcher.
type Store interface {
	GetTransactionSignaturesByWallet(ctx context.Context, walletAddress string, limit int32) ([]string, error)
	SaveTransaction(ctx context.Context, walletAddress string, txn *solana.Transaction) (bool, error)
}

// Publisher defines the NATS publishing operations needed by the watcher.
type Publisher interface {
	PublishTransactionBatch(ctx context.Context, events []*natspkg.TransactionEvent) error
}

// Config configures a Watcher. Store and Publisher are optional.
type Config struct {
	Wallet          string
	MyAccountSymbol string
	Limit           int

	Client    HistoryClient
	Store     Store
	Publisher Publisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// PollResult summarizes one poll.
type PollResult struct {
	Fetched         int
	Written         int
	Skipped         int
	NewestSignature string
	Transactions    []*solana.Transaction // new entries only, newest first
}

// Watcher polls one wallet's history, archives what is new and publishes it.
type Watcher struct {
	cfg   Config
	seen  *lru.Cache
	until string
}

// NewWatcher validates cfg and creates a Watcher.
func NewWatcher(cfg Config) (*Watcher, error) {
	if cfg.Wallet == "" {
		return nil, fmt.Errorf("wallet address is required")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("history client is required")
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 100
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	seen, err := lru.New(maxKnownSignatures)
	if err != nil {
		return nil, fmt.Errorf("failed to create signature cache: %w", err)
	}
	return &Watcher{cfg: cfg, seen: seen}, nil
}

// Poll fetches and classifies history newer than the last poll, archives new
// entries and publishes them. Publish failures are logged, not returned.
func (w *Watcher) Poll(ctx context.Context) (*PollResult, error) {
	logger := w.cfg.Logger
	if w.cfg.Metrics != nil {
		defer metrics.Timer(time.Now(), func(d float64) {
			w.cfg.Metrics.RecordWatchPoll(w.cfg.Wallet, d)
		})()
	}

	existing, err := w.knownSignatures(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get existing transaction signatures: %w", err)
	}

	txns, err := w.cfg.Client.GetTransactionsSince(ctx, solana.GetTransactionsSinceParams{
		Wallet:             w.cfg.Wallet,
		Until:              w.until,
		Limit:              w.cfg.Limit,
		ExistingSignatures: existing,
		MyAccountSymbol:    w.cfg.MyAccountSymbol,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to poll solana: %w", err)
	}

	result := &PollResult{Fetched: len(txns)}
	for _, txn := range txns {
		isNew, err := w.record(ctx, txn)
		if err != nil {
			return nil, err
		}
		if !isNew {
			result.Skipped++
			continue
		}
		result.Written++
		result.Transactions = append(result.Transactions, txn)
	}

	// Transactions are in descending order (newest first)
	if len(txns) > 0 {
		w.until = txns[0].Signature
		result.NewestSignature = w.until
	}

	if w.cfg.Metrics != nil && result.Skipped > 0 {
		w.cfg.Metrics.RecordTransactionsSkipped(w.cfg.Wallet, "already_exists", result.Skipped)
	}

	if len(result.Transactions) > 0 && w.cfg.Publisher != nil {
		events := make([]*natspkg.TransactionEvent, 0, len(result.Transactions))
		for _, txn := range result.Transactions {
			events = append(events, natspkg.FromTransaction(w.cfg.Wallet, txn))
		}
		if err := w.cfg.Publisher.PublishTransactionBatch(ctx, events); err != nil {
			logger.ErrorContext(ctx, "failed to publish transactions to NATS",
				"wallet", w.cfg.Wallet,
				"count", len(events),
				"error", err,
			)
		}
	}

	logger.InfoContext(ctx, "polled wallet",
		"wallet", w.cfg.Wallet,
		"fetched", result.Fetched,
		"written", result.Written,
		"skipped", result.Skipped,
		"newest_signature", result.NewestSignature,
	)
	return result, nil
}

// Run polls immediately and then every interval until ctx is done. Poll
// errors are logged and the loop continues.
func (w *Watcher) Run(ctx context.Context, interval time.Duration, onPoll func(*PollResult)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for ctx.Err() == nil {
		result, err := w.Poll(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil
		case err != nil:
			w.cfg.Logger.ErrorContext(ctx, "poll failed", "wallet", w.cfg.Wallet, "error", err)
		case onPoll != nil:
			onPoll(result)
		}

		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

func (w *Watcher) knownSignatures(ctx context.Context) ([]string, error) {
	if w.cfg.Store != nil {
		return w.cfg.Store.GetTransactionSignaturesByWallet(ctx, w.cfg.Wallet, maxKnownSignatures)
	}
	keys := w.seen.Keys()
	signatures := make([]string, 0, len(keys))
	for _, k := range keys {
		signatures = append(signatures, k.(string))
	}
	return signatures, nil
}

// record reports whether txn had not been seen before.
func (w *Watcher) record(ctx context.Context, txn *solana.Transaction) (bool, error) {
	if w.cfg.Store != nil {
		inserted, err := w.cfg.Store.SaveTransaction(ctx, w.cfg.Wallet, txn)
		if err != nil {
			return false, fmt.Errorf("failed to write transaction %s: %w", txn.Signature, err)
		}
		return inserted, nil
	}
	if w.seen.Contains(txn.Signature) {
		return false, nil
	}
	w.seen.Add(txn.Signature, struct{}{})
	return true, nil
}
