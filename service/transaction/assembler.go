package transaction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/brojonat/solwallet/service/account"
	"github.com/brojonat/solwallet/service/metrics"
	"github.com/brojonat/solwallet/service/rpc"
	"github.com/gagliardetto/solana-go"
)

// BlockhashSource fetches a recent blockhash. *rpc.Client satisfies it.
type BlockhashSource interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.Commitment) (*rpc.LatestBlockhash, error)
}

// Submitter broadcasts an encoded transaction. *rpc.Client satisfies it.
type Submitter interface {
	SendTransaction(ctx context.Context, encoded string, opts *rpc.SendTransactionOpts) (string, error)
}

// SerializeParams describes a transaction to assemble.
type SerializeParams struct {
	Instructions []Instruction

	// RecentBlockhash is used verbatim when set; otherwise one is fetched.
	RecentBlockhash string

	// Signers default to the stored account when empty.
	Signers []solana.PrivateKey

	// FeePayer defaults to the stored account when nil.
	FeePayer *solana.PublicKey

	// Commitment applies to the blockhash fetch. Empty means the node default.
	Commitment rpc.Commitment
}

// Assembler builds, signs and encodes transactions.
type Assembler struct {
	store       account.Store
	blockhashes BlockhashSource
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// NewAssembler creates an Assembler. store may be nil when callers always
// pass a fee payer and signers.
func NewAssembler(store account.Store, blockhashes BlockhashSource, m *metrics.Metrics, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Assembler{
		store:       store,
		blockhashes: blockhashes,
		metrics:     m,
		logger:      logger,
	}
}

// SerializeTransaction returns the base64 wire encoding of a fully signed
// transaction. At most one RPC round trip is made, and only when no
// blockhash is supplied.
func (a *Assembler) SerializeTransaction(ctx context.Context, params SerializeParams) (string, error) {
	start := time.Now()
	source := "supplied"
	if params.RecentBlockhash == "" {
		source = "fetched"
	}

	encoded, err := a.serialize(ctx, params)

	if a.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		a.metrics.RecordTransactionSerialized(status, source, time.Since(start).Seconds())
	}
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to serialize transaction",
			"blockhash_source", source,
			"error", err,
		)
		return "", err
	}
	return encoded, nil
}

func (a *Assembler) serialize(ctx context.Context, params SerializeParams) (string, error) {
	stored, storeErr := a.storedAccount()

	var feePayer solana.PublicKey
	switch {
	case params.FeePayer != nil && !params.FeePayer.IsZero():
		feePayer = *params.FeePayer
	case storeErr == nil:
		feePayer = stored.PublicKey
	default:
		return "", fmt.Errorf("%w: no fee payer: %w", ErrInvalidRequest, storeErr)
	}

	signers := params.Signers
	if len(signers) == 0 && storeErr == nil && stored.CanSign() {
		signers = []solana.PrivateKey{stored.PrivateKey}
	}

	blockhash, err := a.resolveBlockhash(ctx, params)
	if err != nil {
		return "", err
	}

	msg, err := NewMessage(feePayer, params.Instructions, blockhash)
	if err != nil {
		return "", err
	}

	tx := NewTransaction(msg)
	if err := tx.Sign(signers...); err != nil {
		return "", err
	}

	encoded, err := tx.ToBase64()
	if err != nil {
		return "", err
	}

	a.logger.DebugContext(ctx, "serialized transaction",
		"fee_payer", feePayer.String(),
		"blockhash", blockhash.String(),
		"instructions", len(params.Instructions),
		"accounts", len(msg.AccountKeys),
	)
	return encoded, nil
}

func (a *Assembler) storedAccount() (account.Account, error) {
	if a.store == nil {
		return account.Account{}, account.ErrUnauthorized
	}
	return a.store.Get()
}

func (a *Assembler) resolveBlockhash(ctx context.Context, params SerializeParams) (solana.Hash, error) {
	if params.RecentBlockhash != "" {
		hash, err := solana.HashFromBase58(params.RecentBlockhash)
		if err != nil {
			return solana.Hash{}, fmt.Errorf("%w: invalid blockhash %q: %w", ErrInvalidRequest, params.RecentBlockhash, err)
		}
		return hash, nil
	}

	if a.blockhashes == nil {
		return solana.Hash{}, fmt.Errorf("%w: no blockhash supplied and no source configured", ErrInvalidRequest)
	}
	latest, err := a.blockhashes.GetLatestBlockhash(ctx, params.Commitment)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("failed to fetch blockhash: %w", err)
	}
	hash, err := solana.HashFromBase58(latest.Blockhash)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("%w: node returned invalid blockhash %q: %w", rpc.ErrMalformedEnvelope, latest.Blockhash, err)
	}
	return hash, nil
}

// SendTransaction serializes the transaction and submits it, returning the
// transaction signature reported by the node.
func (a *Assembler) SendTransaction(ctx context.Context, submitter Submitter, params SerializeParams, opts *rpc.SendTransactionOpts) (string, error) {
	if submitter == nil {
		return "", errors.New("submitter is required")
	}
	encoded, err := a.SerializeTransaction(ctx, params)
	if err != nil {
		return "", err
	}
	sig, err := submitter.SendTransaction(ctx, encoded, opts)
	if err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}
	a.logger.InfoContext(ctx, "submitted transaction", "signature", sig)
	return sig, nil
}
