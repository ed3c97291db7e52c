package solana

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/brojonat/solwallet/service/metrics"
	"github.com/brojonat/solwallet/service/rpc"
)

// RPCClient is an interface for the Solana RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real Solana nodes.
// *rpc.Client satisfies it.
type RPCClient interface {
	GetSignaturesForAddress(ctx context.Context, address string, opts *rpc.GetSignaturesOpts) ([]rpc.SignatureInfo, error)
	GetTransaction(ctx context.Context, signature string, commitment rpc.Commitment) (*rpc.TransactionInfo, error)
	GetTransactions(ctx context.Context, signatures []string, commitment rpc.Commitment) ([]rpc.Result[*rpc.TransactionInfo], error)
}

// Client fetches wallet history and classifies it.
type Client struct {
	rpc        RPCClient
	parser     *Parser
	commitment rpc.Commitment
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewClient creates a new history client.
// If metrics is nil, no metrics will be recorded.
func NewClient(rpcClient RPCClient, parser *Parser, commitment rpc.Commitment, m *metrics.Metrics, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if parser == nil {
		parser = NewParser(nil, logger)
	}
	return &Client{
		rpc:        rpcClient,
		parser:     parser,
		commitment: commitment,
		logger:     logger,
		metrics:    m,
	}
}

// GetTransactionsSinceParams contains parameters for fetching transactions.
type GetTransactionsSinceParams struct {
	Wallet string

	// Until stops at this signature (exclusive); empty returns the newest.
	Until string
	// Before starts below this signature (exclusive), for paging backwards.
	Before string
	Limit  int

	// ExistingSignatures are skipped without fetching.
	ExistingSignatures []string

	// MyAccount defaults to Wallet.
	MyAccount       string
	MyAccountSymbol string
}

// GetTransactionsSince lists the wallet's signatures newer than Until and
// classifies each. Returns transactions in descending order (newest first).
//
// Exactly two round trips are made: one getSignaturesForAddress and one
// batched getTransaction. Items that fail to fetch or classify are kept
// with metadata only.
func (c *Client) GetTransactionsSince(ctx context.Context, params GetTransactionsSinceParams) ([]*Transaction, error) {
	if params.Wallet == "" {
		return nil, errors.New("wallet is required")
	}
	myAccount := params.MyAccount
	if myAccount == "" {
		myAccount = params.Wallet
	}

	c.logger.DebugContext(ctx, "calling getSignaturesForAddress",
		"wallet", params.Wallet,
		"limit", params.Limit,
		"until", params.Until,
		"existing_sigs_count", len(params.ExistingSignatures),
	)

	signatures, err := c.rpc.GetSignaturesForAddress(ctx, params.Wallet, &rpc.GetSignaturesOpts{
		Limit:      params.Limit,
		Before:     params.Before,
		Until:      params.Until,
		Commitment: c.commitment,
	})
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to get signatures",
			"wallet", params.Wallet,
			"error", err,
		)
		return nil, fmt.Errorf("failed to get signatures for %s: %w", params.Wallet, err)
	}

	// Create a lookup map for existing signatures to avoid reprocessing.
	existing := make(map[string]struct{}, len(params.ExistingSignatures))
	for _, sig := range params.ExistingSignatures {
		existing[sig] = struct{}{}
	}

	pending := make([]rpc.SignatureInfo, 0, len(signatures))
	for _, sig := range signatures {
		if _, ok := existing[sig.Signature]; ok {
			continue
		}
		pending = append(pending, sig)
	}
	if skipped := len(signatures) - len(pending); skipped > 0 && c.metrics != nil {
		c.metrics.RecordTransactionsSkipped(params.Wallet, "already_fetched", skipped)
	}
	if len(pending) == 0 {
		return []*Transaction{}, nil
	}

	toFetch := make([]string, len(pending))
	for i, sig := range pending {
		toFetch[i] = sig.Signature
	}
	results, err := c.rpc.GetTransactions(ctx, toFetch, c.commitment)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to fetch transactions",
			"wallet", params.Wallet,
			"count", len(toFetch),
			"error", err,
		)
		return nil, fmt.Errorf("failed to fetch transactions for %s: %w", params.Wallet, err)
	}

	transactions := make([]*Transaction, 0, len(pending))
	for i, sig := range pending {
		txn := signatureToDomain(sig)
		transactions = append(transactions, txn)

		if i >= len(results) || results[i].Err != nil || results[i].Value == nil {
			var fetchErr error = rpc.ErrUnknownResponse
			if i < len(results) && results[i].Err != nil {
				fetchErr = results[i].Err
			}
			c.logger.WarnContext(ctx, "failed to get transaction details, using metadata only",
				"signature", sig.Signature,
				"error", fetchErr,
			)
			c.recordParsed(params.Wallet, "fetch_error")
			continue
		}

		info := results[i].Value
		if info.Meta != nil {
			txn.Fee = info.Meta.Fee
		}
		parsed, err := c.parser.Parse(ctx, info, myAccount, params.MyAccountSymbol)
		if err != nil {
			c.logger.WarnContext(ctx, "failed to parse transaction, using metadata only",
				"signature", sig.Signature,
				"error", err,
			)
			c.recordParsed(params.Wallet, "error")
			continue
		}
		txn.Parsed = parsed
		c.recordParsed(params.Wallet, "success")
		if c.metrics != nil {
			c.metrics.RecordTransactionClassified(string(parsed.Kind()))
		}
	}

	c.logger.InfoContext(ctx, "fetched and parsed transactions",
		"wallet", params.Wallet,
		"count", len(transactions),
	)
	return transactions, nil
}

// GetTransaction fetches and classifies one transaction by signature.
func (c *Client) GetTransaction(ctx context.Context, signature, myAccount, myAccountSymbol string) (*Transaction, ParsedTransaction, error) {
	info, err := c.rpc.GetTransaction(ctx, signature, c.commitment)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get transaction %s: %w", signature, err)
	}
	parsed, err := c.parser.Parse(ctx, info, myAccount, myAccountSymbol)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse transaction %s: %w", signature, err)
	}
	if c.metrics != nil {
		c.metrics.RecordTransactionClassified(string(parsed.Kind()))
	}

	txn := infoToDomain(info)
	txn.Parsed = parsed
	return txn, parsed, nil
}

func (c *Client) recordParsed(wallet, status string) {
	if c.metrics != nil {
		c.metrics.RecordTransactionParsed(wallet, status)
	}
}

// signatureToDomain converts signature metadata to our domain Transaction.
func signatureToDomain(sig rpc.SignatureInfo) *Transaction {
	txn := &Transaction{
		Signature: sig.Signature,
		Slot:      sig.Slot,
		Memo:      sig.Memo,
	}
	if sig.BlockTime != nil {
		txn.BlockTime = time.Unix(*sig.BlockTime, 0).UTC()
	}
	if sig.Failed() {
		errMsg := fmt.Sprintf("transaction failed: %s", string(sig.Err))
		txn.Err = &errMsg
	}
	return txn
}

func infoToDomain(info *rpc.TransactionInfo) *Transaction {
	txn := &Transaction{
		Signature: info.Signature(),
		Slot:      info.Slot,
	}
	if info.BlockTime != nil {
		txn.BlockTime = time.Unix(*info.BlockTime, 0).UTC()
	}
	if info.Meta != nil {
		txn.Fee = info.Meta.Fee
		if !info.Meta.Succeeded() {
			errMsg := fmt.Sprintf("transaction failed: %s", string(info.Meta.Err))
			txn.Err = &errMsg
		}
	}
	for _, ix := range info.Transaction.Message.Instructions {
		if (ix.ProgramID == MemoProgramIDSPL || ix.ProgramID == MemoProgramIDLegacy) && ix.Memo != "" {
			memo := ix.Memo
			txn.Memo = &memo
			break
		}
	}
	return txn
}
